package domain

import "time"

// KeymanRequest is the body of POST /v1/customers/{customerId}/keymen.
type KeymanRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Keyman is a referral contact registered for a customer.
type Keyman struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`        // E.164
	PhoneDisplay string    `json:"phoneDisplay"` // national format
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
