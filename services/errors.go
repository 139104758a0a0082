package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMailDelivery       = errors.New("email delivery failed")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

var (
	ErrCartEmpty          = newKind(ErrInvalidInput, "Cart empty")
	ErrItemNotInCart      = newKind(ErrInvalidInput, "Item not in cart")
	ErrPlanHasNoMeals     = newKind(ErrInvalidInput, "Meal plan has no meals")
	ErrRemoveTarget       = newKind(ErrInvalidInput, "Provide cart_plan_id or food_item")
	ErrPaymentIncomplete  = newKind(ErrInvalidInput, "Payment not successful")
	ErrOrderNotPending    = newKind(ErrInvalidInput, "Order is not awaiting payment")
	ErrInvalidCredentials = newKind(ErrUnauthorized, "Invalid email or password")

	ErrPlanNotFound     = newKind(ErrNotFound, "Meal plan not found")
	ErrFoodItemNotFound = newKind(ErrNotFound, "Food item not found")
	ErrCartPlanNotFound = newKind(ErrNotFound, "Cart plan not found")
	ErrCartItemNotFound = newKind(ErrNotFound, "Cart item not found")
	ErrOrderNotFound    = newKind(ErrNotFound, "Order not found")
	ErrUserNotFound     = newKind(ErrNotFound, "User not found")
)

// ValidationError carries per-field messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalidField(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AmountMismatchError means the gateway settled a different amount than the
// order expects. The order is left unpaid for manual reconciliation.
type AmountMismatchError struct {
	Reference    string
	ExpectedKobo int64
	PaidKobo     int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch for %s: expected %d kobo, gateway reported %d kobo",
		e.Reference, e.ExpectedKobo, e.PaidKobo)
}
