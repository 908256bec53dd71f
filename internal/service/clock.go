package service

import (
	"sort"
	"time"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/pipeline"
)

// Clock returns the current instant in the business time zone. Services never
// call time.Now directly so tests can pin "today".
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func (c Clock) today() time.Time {
	return pipeline.Midnight(c())
}

var fieldOrder = map[string]int{
	cardcheck.FieldNumber:       0,
	cardcheck.FieldExpiry:       1,
	cardcheck.FieldCVV:          2,
	cardcheck.FieldHolderName:   3,
	cardcheck.FieldInstallments: 4,
}

// sortedFieldErrors lists the errors of a card result in form order.
func sortedFieldErrors(errs map[string]*cardcheck.FieldError) []*cardcheck.FieldError {
	out := make([]*cardcheck.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe)
	}
	sort.Slice(out, func(i, j int) bool {
		return fieldOrder[out[i].Field] < fieldOrder[out[j].Field]
	})
	return out
}

// cardFieldErrors converts a card result's errors, in form order, for an
// ErrValidation.
func cardFieldErrors(errs map[string]*cardcheck.FieldError) []domain.FieldError {
	sorted := sortedFieldErrors(errs)
	out := make([]domain.FieldError, len(sorted))
	for i, fe := range sorted {
		out[i] = domain.FieldError{Field: fe.Field, Kind: string(fe.Kind), Message: fe.Message}
	}
	return out
}
