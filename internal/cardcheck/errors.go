package cardcheck

import "fmt"

// ErrorKind classifies why a field was rejected.
type ErrorKind string

const (
	KindMissing       ErrorKind = "missing"
	KindInvalidFormat ErrorKind = "invalid_format"
	KindOutOfRange    ErrorKind = "out_of_range"
	KindExpired       ErrorKind = "expired"
)

// Field names used in FieldError and in Result.Errors.
const (
	FieldNumber       = "number"
	FieldExpiry       = "expiry"
	FieldCVV          = "cvv"
	FieldHolderName   = "holderName"
	FieldInstallments = "installments"
)

// FieldError is the rejection of a single form field. A nil *FieldError means
// the field is valid.
type FieldError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field string, kind ErrorKind, msg string) *FieldError {
	return &FieldError{Field: field, Kind: kind, Message: msg}
}
