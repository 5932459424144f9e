package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrPriceUnavailable    = errors.New("price unavailable")
)

// Business rule identifiers carried by BusinessRuleError. They are stable
// machine-readable codes, not display text.
const (
	RuleInsufficientBalance = "insufficient_balance"
	RuleUnknownSymbol       = "unknown_symbol"
	RulePriceUnavailable    = "price_unavailable"
)

// SchemaError reports a request whose shape or field values are malformed.
// It is produced by validation before any business logic runs.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s", e.Reason)
	}
	return fmt.Sprintf("schema: %s: %s", e.Field, e.Reason)
}

// NewSchemaError builds a SchemaError for the given field.
func NewSchemaError(field, reason string) *SchemaError {
	return &SchemaError{Field: field, Reason: reason}
}

// BusinessRuleError reports a well-formed command that cannot execute
// against current state or market data. Rule is one of the Rule* constants;
// Err carries the underlying sentinel so errors.Is keeps working across
// layers.
type BusinessRuleError struct {
	Rule   string
	Detail string
	Err    error
}

func (e *BusinessRuleError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rule %s violated", e.Rule)
	}
	return fmt.Sprintf("rule %s violated: %s", e.Rule, e.Detail)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

// NewBusinessRuleError builds a BusinessRuleError wrapping the sentinel that
// corresponds to the rule.
func NewBusinessRuleError(rule, detail string, err error) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Detail: detail, Err: err}
}
