package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"collect-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	verr := &ValidationError{}
	if verr.Err() != nil {
		t.Fatalf("Expected nil error for empty validation error")
	}

	verr.Add("amount", "must be at least 1.00").Add("payment_method", "unknown method")
	err := fmt.Errorf("create payment: %w", verr.Err())

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected errors.Is(err, ErrValidation), got %v", err)
	}

	var target *ValidationError
	if !errors.As(err, &target) {
		t.Fatalf("Expected errors.As to find *ValidationError")
	}
	if len(target.Fields) != 2 {
		t.Errorf("Expected 2 field errors, got %d", len(target.Fields))
	}
	if !strings.Contains(err.Error(), "amount: must be at least 1.00") {
		t.Errorf("Expected field detail in message, got %q", err.Error())
	}
}

func TestNotFound_WrapsSentinel(t *testing.T) {
	err := NotFound("collect", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrConflict) {
		t.Errorf("NotFound must not match ErrConflict")
	}
	if err.Error() != "collect abc: not found" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestValidateCreateCollect(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := CreateCollectParams{
		AuthorId:    "author",
		Title:       "Gift for Anna",
		Occasion:    models.OccasionBirthday,
		Description: "Flowers and a cake",
		EndsAt:      now.Add(time.Hour),
	}
	if err := ValidateCreateCollect(valid, now); err != nil {
		t.Fatalf("Expected valid collect, got %v", err)
	}

	target := int64(0)
	err := ValidateCreateCollect(CreateCollectParams{
		AuthorId:          "  ",
		Title:             strings.Repeat("я", MaxTitleLength+1),
		Occasion:          "party",
		Description:       "",
		TargetAmountCents: &target,
		EndsAt:            now.Add(-time.Minute),
	}, now)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	got := strings.Join(fieldNames(t, err), ",")
	want := "author,title,occasion,description,target_amount_cents,end_datetime"
	if got != want {
		t.Errorf("Expected fields %s, got %s", want, got)
	}

	exact := valid
	exact.Title = strings.Repeat("я", MaxTitleLength)
	exact.EndsAt = now
	if err := ValidateCreateCollect(exact, now); err != nil {
		t.Errorf("Expected 200-rune title and deadline equal to now to pass, got %v", err)
	}

	missing := valid
	missing.EndsAt = time.Time{}
	if names := fieldNames(t, ValidateCreateCollect(missing, now)); len(names) != 1 || names[0] != "end_datetime" {
		t.Errorf("Expected end_datetime error, got %v", names)
	}
}

func TestValidateUpdateCollect(t *testing.T) {
	now := time.Now()
	if err := ValidateUpdateCollect(UpdateCollectParams{}, now); err != nil {
		t.Fatalf("Expected empty patch to pass, got %v", err)
	}

	blank := " "
	target := int64(100)
	past := now.Add(-time.Hour)
	err := ValidateUpdateCollect(UpdateCollectParams{
		Description:       &blank,
		TargetAmountCents: &target,
		ClearTarget:       true,
		EndsAt:            &past,
	}, now)
	got := strings.Join(fieldNames(t, err), ",")
	if !strings.Contains(got, "description") || !strings.Contains(got, "target_amount_cents") || !strings.Contains(got, "end_datetime") {
		t.Errorf("Unexpected fields %s", got)
	}

	var verr *ValidationError
	errors.As(err, &verr)
	if !strings.Contains(verr.Error(), "cannot be set and cleared at once") {
		t.Errorf("Expected target conflict message, got %q", verr.Error())
	}
}

func TestValidateCreatePayment(t *testing.T) {
	tests := []struct {
		amount string
		cents  int64
		field  string
	}{
		{"1.00", 100, ""},
		{"99999999.99", 9999999999, ""},
		{"150.5", 15050, ""},
		{"0.99", 0, "must be at least 1.00"},
		{"-5", 0, "must be at least 1.00"},
		{"100000000", 0, "less than 100000000.00"},
		{"10.005", 0, "at most two decimal places"},
	}

	for _, tt := range tests {
		cents, err := ValidateCreatePayment(CreatePaymentParams{
			CollectId: "c1",
			Amount:    decimal.RequireFromString(tt.amount),
			Method:    models.PaymentMethodCard,
		})
		if tt.field == "" {
			if err != nil || cents != tt.cents {
				t.Errorf("%s: expected %d cents, got %d (%v)", tt.amount, tt.cents, cents, err)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), tt.field) {
			t.Errorf("%s: expected amount error %q, got %v", tt.amount, tt.field, err)
		}
	}

	blank := ""
	_, err := ValidateCreatePayment(CreatePaymentParams{
		UserId: &blank,
		Amount: decimal.NewFromInt(10),
		Method: "cash",
	})
	got := strings.Join(fieldNames(t, err), ",")
	if got != "user,collect,payment_method" {
		t.Errorf("Expected user,collect,payment_method, got %s", got)
	}
}

func TestValidatePaymentStatus(t *testing.T) {
	if err := ValidatePaymentStatus(models.PaymentStatus("successful")); err != nil {
		t.Errorf("Expected successful to be accepted, got %v", err)
	}
	names := fieldNames(t, ValidatePaymentStatus("lost"))
	if len(names) != 1 || names[0] != "status" {
		t.Errorf("Expected status error, got %v", names)
	}
}
