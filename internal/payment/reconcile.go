package payment

import (
	"context"
	"time"

	"smartwin-be/internal/logger"
	"smartwin-be/internal/notifier"

	"go.uber.org/zap"
)

// Reconcile handles the provider's asynchronous status callback: it
// re-queries authoritative transaction status instead of trusting the
// callback parameters, records the outcome, and notifies the operator on
// completion. Notification failures never fail the reconciliation; the
// provider still gets its acknowledgment.
func (s *service) Reconcile(ctx context.Context, orderTrackingID, merchantReference string) (*ReconciliationResult, error) {
	if orderTrackingID == "" {
		return nil, ErrMissingTrackingID
	}

	log := logger.FromCtx(ctx).With(zap.String("order_tracking_id", orderTrackingID))
	s.metrics.Callbacks.Inc()

	callbackID, err := s.repo.SaveCallback(ctx, orderTrackingID, merchantReference)
	if err != nil {
		// Audit log only; the callback itself must still be reconciled.
		log.Error("Failed to record callback", zap.Error(err))
	}

	status, err := s.gateway.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		if callbackID != 0 {
			if ferr := s.repo.MarkCallbackFailed(ctx, callbackID, err.Error()); ferr != nil {
				log.Error("Failed to mark callback failed", zap.Error(ferr))
			}
		}
		return nil, err
	}

	mapped := StatusFromDescription(status.PaymentStatusDescription)
	log.Info("Transaction status reconciled",
		zap.String("status", string(mapped)),
		zap.String("provider_status", status.PaymentStatusDescription),
		zap.Float64("amount", status.Amount),
		zap.String("currency", status.Currency),
	)

	if err := s.repo.UpdateStatus(ctx, orderTrackingID, mapped); err != nil {
		log.Error("Failed to update payment status", zap.Error(err))
	}

	if mapped == StatusCompleted {
		s.notifyCompleted(ctx, orderTrackingID, status, log)
	}

	if callbackID != 0 {
		if err := s.repo.MarkCallbackProcessed(ctx, callbackID, mapped); err != nil {
			log.Error("Failed to mark callback processed", zap.Error(err))
		}
	}

	return &ReconciliationResult{
		OrderTrackingID:   orderTrackingID,
		MerchantReference: status.MerchantReference,
		Status:            mapped,
		Amount:            status.Amount,
		Currency:          status.Currency,
		PaymentMethod:     status.PaymentMethod,
		Raw:               status.Raw,
	}, nil
}

// notifyCompleted delivers the operator summary at most once per tracking
// id. The slot is claimed before sending; a duplicate provider callback
// finds it already claimed and sends nothing.
func (s *service) notifyCompleted(ctx context.Context, orderTrackingID string, status *TransactionStatus, log *zap.Logger) {
	first, err := s.repo.MarkNotified(ctx, orderTrackingID)
	if err != nil {
		// If the idempotency store is unavailable, prefer a possible
		// duplicate email over a silently missed payment.
		log.Error("Failed to claim notification slot", zap.Error(err))
		first = true
	}
	if !first {
		log.Info("Duplicate callback, notification already sent")
		return
	}

	deliveryID, err := s.notifier.Send(ctx, notifier.Notification{
		MerchantReference: status.MerchantReference,
		OrderTrackingID:   orderTrackingID,
		Amount:            status.Amount,
		Currency:          status.Currency,
		PaymentMethod:     status.PaymentMethod,
		Status:            status.PaymentStatusDescription,
		ReceivedAt:        time.Now().UTC(),
	})
	if err != nil {
		s.metrics.NotificationFailures.Inc()
		log.Error("Operator notification failed", zap.Error(err))
		return
	}

	s.metrics.NotificationsSent.Inc()
	if err := s.repo.SetNotificationDelivery(ctx, orderTrackingID, deliveryID); err != nil {
		log.Error("Failed to record notification delivery", zap.Error(err))
	}
}
