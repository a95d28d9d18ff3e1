package notifier

import (
	"context"
	"time"
)

// Notification is the operator-facing summary of a reconciled payment.
type Notification struct {
	MerchantReference string
	OrderTrackingID   string
	Amount            float64
	Currency          string
	PaymentMethod     string
	Status            string
	ReceivedAt        time.Time
}

// Notifier delivers a notification to the operator and returns the
// provider's delivery identifier. Implementations must never be placed on
// the critical path of acknowledging a payment callback.
type Notifier interface {
	Send(ctx context.Context, n Notification) (deliveryID string, err error)
}
