package payment

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	SavePayment(ctx context.Context, p *Payment) error
	UpdateStatus(ctx context.Context, orderTrackingID string, status Status) error
	GetByReference(ctx context.Context, merchantReference string) (*Payment, error)

	SaveCallback(ctx context.Context, orderTrackingID, merchantReference string) (callbackID int64, err error)
	MarkCallbackProcessed(ctx context.Context, callbackID int64, status Status) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error

	// MarkNotified claims the notification slot for a tracking id. The first
	// caller gets true; every later caller gets false. Claimed before the
	// notifier runs so provider callback retries cannot double-notify.
	MarkNotified(ctx context.Context, orderTrackingID string) (first bool, err error)
	SetNotificationDelivery(ctx context.Context, orderTrackingID, deliveryID string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (merchant_reference,
		order_tracking_id,
		amount,
		currency,
		description,
		email,
		first_name,
		last_name,
		phone_number,
		payment_method,
		notification_id,
		status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		p.MerchantReference, p.OrderTrackingID, p.Amount, p.Currency, p.Description,
		p.Email, p.FirstName, p.LastName, p.PhoneNumber, p.PaymentMethod,
		p.NotificationID, p.Status,
	)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, orderTrackingID string, status Status) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = now() WHERE order_tracking_id = $2
	`, status, orderTrackingID)
	return err
}

func (r *repository) GetByReference(ctx context.Context, merchantReference string) (*Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, merchant_reference, order_tracking_id, amount, currency, status, payment_method, created_at, updated_at
		FROM payments WHERE merchant_reference = $1
	`, merchantReference)

	var p Payment
	err := row.Scan(
		&p.ID, &p.MerchantReference, &p.OrderTrackingID,
		&p.Amount, &p.Currency, &p.Status, &p.PaymentMethod, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) SaveCallback(ctx context.Context, orderTrackingID, merchantReference string) (int64, error) {
	const q = `
	INSERT INTO payment_callbacks (
		order_tracking_id,
		merchant_reference
	)
	VALUES ($1, $2)
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q, orderTrackingID, merchantReference).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64, status Status) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now(), status = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, status)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	const q = `
	UPDATE payment_callbacks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, reason)
	return err
}

func (r *repository) MarkNotified(ctx context.Context, orderTrackingID string) (bool, error) {
	const q = `
	INSERT INTO payment_notifications (order_tracking_id)
	VALUES ($1)
	ON CONFLICT (order_tracking_id)
	DO NOTHING
	RETURNING order_tracking_id;
	`

	var id string
	err := r.db.QueryRowContext(ctx, q, orderTrackingID).Scan(&id)
	if err != nil {
		// Conflict → already claimed → duplicate callback
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) SetNotificationDelivery(ctx context.Context, orderTrackingID, deliveryID string) error {
	const q = `
	UPDATE payment_notifications
	SET delivery_id = $2, notified_at = now()
	WHERE order_tracking_id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, orderTrackingID, deliveryID)
	return err
}
