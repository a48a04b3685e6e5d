package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

func TestParseAndValidateFlags(t *testing.T) {
	req, err := parseAndValidateFlags([]string{"--collect", "c1", "--amount", "150.00", "--method", "sbp", "--anonymous", "--comment", "hi"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.method != models.PaymentMethodSbp || !req.anonymous {
		t.Errorf("Unexpected request %+v", req)
	}

	params := req.params(nil)
	if params.UserId != nil {
		t.Errorf("Expected guest payment")
	}
	if params.Comment == nil || *params.Comment != "hi" {
		t.Errorf("Expected comment to be set")
	}
	if params.Amount.StringFixed(2) != "150.00" {
		t.Errorf("Unexpected amount %s", params.Amount)
	}

	if _, err := parseAndValidateFlags([]string{"--collect", "c1"}); err == nil {
		t.Errorf("Expected error for missing amount")
	}
	if _, err := parseAndValidateFlags([]string{"--collect", "c1", "--amount", "ten"}); err == nil {
		t.Errorf("Expected error for bad amount")
	}
}

func TestRunReturnsErrorsAfterServicesStart(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "pay.db"))
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("NOTIFY_QUEUE_BACKEND", "memory")

	ctx := context.Background()
	logger := zap.NewNop()

	err := run(ctx, logger, []string{"--collect", "c1"})
	if err == nil || !strings.Contains(err.Error(), "invalid arguments") {
		t.Fatalf("Expected invalid arguments error, got %v", err)
	}

	// Run twice against the same file: the first run must have closed its services
	for i := 0; i < 2; i++ {
		err = run(ctx, logger, []string{"--collect", "missing", "--amount", "10"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Run %d: expected ErrNotFound, got %v", i, err)
		}
	}
}
