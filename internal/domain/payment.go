package domain

import (
	"time"

	"github.com/boddenberg/sales-flow-bfa-go/internal/cardcheck"
)

// ============================================================
// Payments (PIX, cartão de crédito, boleto, transferência)
// ============================================================

// PaymentMethod is one of the checkout options of the payment screens.
type PaymentMethod string

const (
	PaymentPix          PaymentMethod = "pix"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBankSlip     PaymentMethod = "bank_slip"
	PaymentWireTransfer PaymentMethod = "wire_transfer"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPix, PaymentCreditCard, PaymentBankSlip, PaymentWireTransfer:
		return true
	}
	return false
}

// PaymentStatus is the outcome shown by the awaiting/approved/error screens.
type PaymentStatus string

const (
	PaymentAwaiting PaymentStatus = "awaiting"
	PaymentApproved PaymentStatus = "approved"
	PaymentError    PaymentStatus = "error"
)

// PaymentRequest is the body of POST /v1/payments. Card is required for
// credit_card only.
type PaymentRequest struct {
	CustomerID string          `json:"customerId"`
	ContractID string          `json:"contractId,omitempty"`
	Method     PaymentMethod   `json:"method"`
	Amount     float64         `json:"amount"`
	Card       *cardcheck.Form `json:"card,omitempty"`
}

// Payment is a simulated checkout. It starts awaiting and settles once the
// settle delay has elapsed.
type Payment struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	ContractID    string          `json:"contractId,omitempty"`
	Method        PaymentMethod   `json:"method"`
	Amount        float64         `json:"amount"`
	Installments  string          `json:"installments,omitempty"`
	CardBrand     cardcheck.Brand `json:"cardBrand,omitempty"`
	CardLast4     string          `json:"cardLast4,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"` // boleto only, DD/MM/YYYY
	Status        PaymentStatus   `json:"status"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	SettledAt     *time.Time      `json:"settledAt,omitempty"`
}
