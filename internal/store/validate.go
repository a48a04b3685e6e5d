package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"collect-ledger-go/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	MaxTitleLength = 200
	minorUnitScale = 2
)

var (
	// MinPaymentAmount is the smallest accepted contribution (one currency unit).
	MinPaymentAmount = decimal.NewFromInt(1)
	// MaxPaymentAmount is exclusive: ten digits with two of them after the point.
	MaxPaymentAmount = decimal.New(1, 8)
)

type nowContextKey struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Amounts are validated as their exact decimal string
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	registerCustomRules(v)
	v.RegisterStructValidation(validateTargetPatch, UpdateCollectParams{})
	return v
}

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register validation tag %q: %v", tag, err))
		}
	}

	mustRegister("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister("is-occasion", func(fl validator.FieldLevel) bool {
		return models.Occasion(fl.Field().String()).Valid()
	})
	mustRegister("is-payment-method", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).Valid()
	})
	mustRegister("is-payment-status", func(fl validator.FieldLevel) bool {
		return models.PaymentStatus(fl.Field().String()).Valid()
	})
	mustRegister("amount_range", func(fl validator.FieldLevel) bool {
		amount, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return !amount.LessThan(MinPaymentAmount) && amount.LessThan(MaxPaymentAmount)
	})
	mustRegister("minor_units", func(fl validator.FieldLevel) bool {
		amount, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		_, ok := ToMinorUnits(amount)
		return ok
	})

	if err := v.RegisterValidationCtx("not_past", func(ctx context.Context, fl validator.FieldLevel) bool {
		endsAt, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		now, ok := ctx.Value(nowContextKey{}).(time.Time)
		if !ok {
			now = time.Now()
		}
		return !endsAt.Before(now)
	}); err != nil {
		panic(fmt.Sprintf("failed to register validation tag %q: %v", "not_past", err))
	}
}

func validateTargetPatch(sl validator.StructLevel) {
	params := sl.Current().Interface().(UpdateCollectParams)
	if params.ClearTarget && params.TargetAmountCents != nil {
		sl.ReportError(params.TargetAmountCents, "target_amount_cents", "TargetAmountCents", "target_cleared", "")
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be positive or omitted for an open-ended collect"
	case "is-occasion":
		return fmt.Sprintf("unknown occasion %q", fe.Value())
	case "is-payment-method":
		return fmt.Sprintf("unknown payment method %q", fe.Value())
	case "is-payment-status":
		return fmt.Sprintf("unknown status %q", fe.Value())
	case "amount_range":
		return "must be at least " + MinPaymentAmount.StringFixed(minorUnitScale) +
			" and less than " + MaxPaymentAmount.StringFixed(minorUnitScale)
	case "minor_units":
		return "must have at most two decimal places"
	case "not_past":
		return "must not be in the past"
	case "target_cleared":
		return "cannot be set and cleared at once"
	default:
		return "is invalid"
	}
}

// toValidationError maps validator output onto field-level problems. field
// names a bare value checked with validate.Var.
func toValidationError(err error, field string) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("validation could not run: %w", err)
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrors {
		name := fe.Field()
		if name == "" {
			name = field
		}
		verr.Add(name, fieldMessage(fe))
	}
	return verr.Err()
}

func structAt(params any, now time.Time) error {
	ctx := context.WithValue(context.Background(), nowContextKey{}, now)
	return toValidationError(validate.StructCtx(ctx, params), "")
}

// ToMinorUnits converts a decimal amount into integer minor units (x100).
// The second return value is false when the amount has sub-minor precision.
func ToMinorUnits(amount decimal.Decimal) (int64, bool) {
	shifted := amount.Shift(minorUnitScale)
	if !shifted.IsInteger() {
		return 0, false
	}
	return shifted.IntPart(), true
}

// FromMinorUnits converts integer minor units back into a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -minorUnitScale)
}

// ValidateCreateCollect checks the collect input. Deadlines must not be in the past.
func ValidateCreateCollect(params CreateCollectParams, now time.Time) error {
	return structAt(params, now)
}

// ValidateUpdateCollect checks only the fields present in the patch.
func ValidateUpdateCollect(params UpdateCollectParams, now time.Time) error {
	return structAt(params, now)
}

// ValidateCreatePayment checks the payment input and returns the amount in minor units.
func ValidateCreatePayment(params CreatePaymentParams) (int64, error) {
	if err := structAt(params, time.Now()); err != nil {
		return 0, err
	}
	cents, _ := ToMinorUnits(params.Amount)
	return cents, nil
}

// ValidatePaymentStatus checks a record-keeping status change.
func ValidatePaymentStatus(status models.PaymentStatus) error {
	return toValidationError(validate.Var(string(status), "is-payment-status"), "status")
}
