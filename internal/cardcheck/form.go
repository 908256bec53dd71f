package cardcheck

import "time"

// Form is a snapshot of the card form as typed by the user.
type Form struct {
	Number       string `json:"number"`
	Expiry       string `json:"expiry"`
	CVV          string `json:"cvv"`
	HolderName   string `json:"holderName"`
	Installments string `json:"installments,omitempty"`
}

// Formatted echoes the display form of the masked fields.
type Formatted struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	HolderName string `json:"holderName"`
}

// Result aggregates every validator over one Form.
type Result struct {
	Brand     Brand                  `json:"brand,omitempty"`
	Errors    map[string]*FieldError `json:"errors"`
	Formatted Formatted              `json:"formatted"`
}

// Valid is the submit gate: true when no field has an error.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateForm runs every validator. The installment descriptor is only
// checked when requireInstallments is set, since PIX and boleto checkouts
// have none.
func ValidateForm(f Form, now time.Time, requireInstallments bool) Result {
	brand, _ := DetectBrand(f.Number)

	res := Result{
		Brand:  brand,
		Errors: make(map[string]*FieldError),
		Formatted: Formatted{
			Number:     FormatNumber(f.Number),
			Expiry:     FormatExpiry(f.Expiry),
			HolderName: NormalizeHolderName(f.HolderName),
		},
	}

	checks := []*FieldError{
		ValidateNumber(f.Number),
		ValidateExpiry(f.Expiry, now),
		ValidateCVV(f.CVV, brand),
		ValidateHolderName(f.HolderName),
	}
	if requireInstallments {
		checks = append(checks, ValidateInstallments(f.Installments))
	}
	for _, fe := range checks {
		if fe != nil {
			res.Errors[fe.Field] = fe
		}
	}
	return res
}

// Last4 returns the last four digits of a card number, or "" when shorter.
func Last4(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
