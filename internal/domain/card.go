package domain

import "github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"

// CardValidationRequest is the body of POST /v1/cards/validate.
type CardValidationRequest struct {
	cardcheck.Form
	RequireInstallments bool `json:"requireInstallments"`
}

// CardValidationResponse tells the app which fields to highlight and whether
// the submit button may be enabled.
type CardValidationResponse struct {
	Valid     bool                    `json:"valid"`
	Brand     cardcheck.Brand         `json:"brand,omitempty"`
	Errors    []*cardcheck.FieldError `json:"errors"`
	Formatted cardcheck.Formatted     `json:"formatted"`
}

// CardBrandResponse is returned by GET /v1/cards/brand.
type CardBrandResponse struct {
	Brand     cardcheck.Brand `json:"brand,omitempty"`
	Detected  bool            `json:"detected"`
	Formatted string          `json:"formatted"`
}
