package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collect-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflicting concurrent update, retry the request")
	ErrValidation = errors.New("validation failed")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level problems found before persistence.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a field problem and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// Err returns nil when no field was rejected.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFound wraps ErrNotFound with the entity and id that were missing.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// CreateCollectParams contains the parameters for starting a collect.
// A nil TargetAmountCents makes the collect open-ended.
type CreateCollectParams struct {
	AuthorId          string          `json:"author" validate:"notblank"`
	Title             string          `json:"title" validate:"notblank,max=200"`
	Occasion          models.Occasion `json:"occasion" validate:"is-occasion"`
	Description       string          `json:"description" validate:"notblank"`
	TargetAmountCents *int64          `json:"target_amount_cents" validate:"omitempty,gt=0"`
	CoverImage        string          `json:"cover_image"`
	EndsAt            time.Time       `json:"end_datetime" validate:"required,not_past"`
}

// UpdateCollectParams patches descriptive fields; nil means unchanged.
// Aggregate fields are deliberately absent.
type UpdateCollectParams struct {
	Title             *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Occasion          *models.Occasion `json:"occasion" validate:"omitempty,is-occasion"`
	Description       *string          `json:"description" validate:"omitempty,notblank"`
	TargetAmountCents *int64           `json:"target_amount_cents" validate:"omitempty,gt=0"`
	ClearTarget       bool             `json:"clear_target"`
	CoverImage        *string          `json:"cover_image"`
	EndsAt            *time.Time       `json:"end_datetime" validate:"omitempty,not_past"`
	IsActive          *bool            `json:"is_active"`
}

// CreatePaymentParams contains the parameters for recording a contribution.
// A nil UserId records a guest payment.
type CreatePaymentParams struct {
	UserId      *string              `json:"user" validate:"omitempty,notblank"`
	CollectId   string               `json:"collect" validate:"notblank"`
	Amount      decimal.Decimal      `json:"amount" validate:"amount_range,minor_units"`
	Method      models.PaymentMethod `json:"payment_method" validate:"is-payment-method"`
	Comment     *string              `json:"comment"`
	IsAnonymous bool                 `json:"is_anonymous"`
	CreatedAt   time.Time            `json:"-"` // zero means now; only the seed path sets it
}

// CollectFilter narrows collect listings. Zero values mean "any".
type CollectFilter struct {
	AuthorId string
	Occasion models.Occasion
	Active   *bool
	Limit    int
	Offset   int
}

// PaymentFilter narrows payment listings. Zero values mean "any".
type PaymentFilter struct {
	CollectId string
	UserId    string
	Method    models.PaymentMethod
	Status    models.PaymentStatus
	Limit     int
	Offset    int
}

// LedgerStore defines the contract that every persistence backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userId string) error

	// --- Collects ---
	CreateCollect(ctx context.Context, params CreateCollectParams) (*models.Collect, error)
	GetCollect(ctx context.Context, collectId string) (*models.Collect, error)
	ListCollects(ctx context.Context, filter CollectFilter) ([]models.Collect, error)
	UpdateCollect(ctx context.Context, collectId string, params UpdateCollectParams) (*models.Collect, error)
	DeactivateCollect(ctx context.Context, collectId string) (*models.Collect, error)
	DeleteCollect(ctx context.Context, collectId string) error

	// --- Payments ---
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*models.Payment, error)
	GetPayment(ctx context.Context, paymentId string) (*models.Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentId string, status models.PaymentStatus) (*models.Payment, error)
	DeletePayment(ctx context.Context, paymentId string) (*models.Payment, error)
	BulkInsertPayments(ctx context.Context, params []CreatePaymentParams) (int, error)

	// --- Aggregates ---
	RecomputeCollectStats(ctx context.Context, collectId string) (*models.CollectStats, error)
	VerifyCollectStats(ctx context.Context, collectId string) (*models.StatsDrift, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
