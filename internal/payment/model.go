package payment

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the reconciled state of a payment order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusInvalid   Status = "Invalid"
	StatusReversed  Status = "Reversed"
)

// StatusFromDescription maps Pesapal's textual payment_status_description to
// a Status. Only an exact "Completed" counts as completed; anything
// unrecognized is treated as Pending so it can never trigger a confirmation.
func StatusFromDescription(desc string) Status {
	switch desc {
	case "Completed":
		return StatusCompleted
	case "Failed":
		return StatusFailed
	case "Invalid":
		return StatusInvalid
	case "Reversed":
		return StatusReversed
	default:
		return StatusPending
	}
}

// Request is the payload accepted by the submit endpoint.
type Request struct {
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency,omitempty"`
	Description   string      `json:"description,omitempty"`
	Email         string      `json:"email"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	PhoneNumber   string      `json:"phoneNumber,omitempty"`
	PaymentMethod string      `json:"paymentMethod,omitempty"` // "mobile" or "card"
}

// Validate rejects bad caller input before any network call is made.
func (r *Request) Validate() error {
	if r.Amount == "" {
		return fmt.Errorf("%w: amount is required", ErrValidation)
	}
	amount, err := r.Amount.Float64()
	if err != nil {
		return fmt.Errorf("%w: amount must be a number", ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if r.Email == "" || r.FirstName == "" || r.LastName == "" {
		return fmt.Errorf("%w: email, firstName and lastName are required", ErrValidation)
	}
	return nil
}

// DefaultDescription mirrors the storefront's method-specific label.
func (r *Request) DefaultDescription() string {
	if r.Description != "" {
		return r.Description
	}
	label := "Card Payment"
	if r.PaymentMethod == "mobile" {
		label = "Mobile Money"
	}
	return "Smart Win Payment - " + label
}

// Payment is the durable record of a submitted order.
type Payment struct {
	ID                uint
	MerchantReference string
	OrderTrackingID   string
	Amount            float64
	Currency          string
	Description       string
	Email             string
	FirstName         string
	LastName          string
	PhoneNumber       string
	PaymentMethod     string
	NotificationID    string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SubmitResult is returned to the caller after a successful submission.
type SubmitResult struct {
	OrderTrackingID   string `json:"orderTrackingId"`
	MerchantReference string `json:"merchantReference"`
	RedirectURL       string `json:"redirectUrl"`
}

// ReconciliationResult is the outcome of re-querying authoritative status
// for a callback. It is returned to the provider regardless of whether the
// operator notification succeeded.
type ReconciliationResult struct {
	OrderTrackingID   string
	MerchantReference string
	Status            Status
	Amount            float64
	Currency          string
	PaymentMethod     string
	Raw               json.RawMessage
}
