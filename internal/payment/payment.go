// internal/payment/payment.go
package payment

import (
	"context"
)

// OrderRequest is the order payload submitted to the provider.
type OrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	CountryCode  string `json:"country_code"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Line1        string `json:"line_1"`
	Line2        string `json:"line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	ZipCode      string `json:"zip_code"`
}

// OrderResponse carries the provider-assigned identifiers for a submitted order.
type OrderResponse struct {
	OrderTrackingID   string
	MerchantReference string
	RedirectURL       string
}

// TransactionStatus is the authoritative state of an order as reported by
// the provider's status endpoint.
type TransactionStatus struct {
	PaymentStatusDescription string
	Amount                   float64
	Currency                 string
	PaymentMethod            string
	MerchantReference        string
	ConfirmationCode         string
	Raw                      []byte
}

// Gateway abstracts the payment provider. Token acquisition and caching are
// the implementation's concern; every method acquires its own token.
type Gateway interface {
	RegisterIPN(ctx context.Context, callbackURL string) (notificationID string, err error)
	SubmitOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error)
	GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error)
}
