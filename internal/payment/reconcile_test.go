package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smartwin-be/internal/notifier"
)

func completedStatus() *TransactionStatus {
	return &TransactionStatus{
		PaymentStatusDescription: "Completed",
		Amount:                   100,
		Currency:                 "USD",
		PaymentMethod:            "Visa",
		MerchantReference:        "SMARTWIN-1-abc",
		ConfirmationCode:         "CONF-9",
		Raw:                      []byte(`{"payment_status_description":"Completed"}`),
	}
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("CompletedNotifiesOnce", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "SMARTWIN-1-abc").Return(int64(7), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(nil)
		repo.On("MarkNotified", ctx, "trk-001").Return(true, nil)
		n.On("Send", ctx, mock.MatchedBy(func(msg notifier.Notification) bool {
			return msg.OrderTrackingID == "trk-001" &&
				msg.Amount == 100 &&
				msg.Currency == "USD" &&
				msg.Status == "Completed"
		})).Return("email-1", nil)
		repo.On("SetNotificationDelivery", ctx, "trk-001", "email-1").Return(nil)
		repo.On("MarkCallbackProcessed", ctx, int64(7), StatusCompleted).Return(nil)

		res, err := svc.Reconcile(ctx, "trk-001", "SMARTWIN-1-abc")
		assert.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, float64(100), res.Amount)
		assert.Equal(t, "USD", res.Currency)

		n.AssertNumberOfCalls(t, "Send", 1)
		repo.AssertExpectations(t)
	})

	t.Run("DuplicateCallbackSkipsNotification", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(8), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(nil)
		repo.On("MarkNotified", ctx, "trk-001").Return(false, nil)
		repo.On("MarkCallbackProcessed", ctx, int64(8), StatusCompleted).Return(nil)

		res, err := svc.Reconcile(ctx, "trk-001", "")
		assert.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)

		n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("NonCompletedStatusesDoNotNotify", func(t *testing.T) {
		for _, desc := range []string{"Pending", "Failed", "Invalid", "Reversed", "", "Settled"} {
			repo := new(MockRepository)
			gw := new(MockGateway)
			n := new(MockNotifier)
			svc := newTestService(repo, gw, n)

			status := completedStatus()
			status.PaymentStatusDescription = desc

			repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(1), nil)
			gw.On("GetTransactionStatus", ctx, "trk-001").Return(status, nil)
			repo.On("UpdateStatus", ctx, "trk-001", mock.Anything).Return(nil)
			repo.On("MarkCallbackProcessed", ctx, int64(1), mock.Anything).Return(nil)

			res, err := svc.Reconcile(ctx, "trk-001", "")
			assert.NoError(t, err, "description %q", desc)
			assert.NotEqual(t, StatusCompleted, res.Status, "description %q", desc)

			n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything)
		}
	})

	t.Run("MissingTrackingID", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		svc := newTestService(repo, gw, new(MockNotifier))

		_, err := svc.Reconcile(ctx, "", "SMARTWIN-1-abc")
		assert.ErrorIs(t, err, ErrMissingTrackingID)

		gw.AssertNotCalled(t, "GetTransactionStatus", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "SaveCallback", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StatusQueryFailure", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(9), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(nil, errors.New("provider unavailable"))
		repo.On("MarkCallbackFailed", ctx, int64(9), "provider unavailable").Return(nil)

		_, err := svc.Reconcile(ctx, "trk-001", "")
		assert.Error(t, err)

		n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("CallbackAuditFailureStillReconciles", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(0), errors.New("db down"))
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(nil)
		repo.On("MarkNotified", ctx, "trk-001").Return(true, nil)
		n.On("Send", ctx, mock.Anything).Return("email-1", nil)
		repo.On("SetNotificationDelivery", ctx, "trk-001", "email-1").Return(nil)

		res, err := svc.Reconcile(ctx, "trk-001", "")
		assert.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)

		// No callback row to update when the insert itself failed.
		repo.AssertNotCalled(t, "MarkCallbackProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotifierFailureStillSucceeds", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(3), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(nil)
		repo.On("MarkNotified", ctx, "trk-001").Return(true, nil)
		n.On("Send", ctx, mock.Anything).Return("", errors.New("resend unavailable"))
		repo.On("MarkCallbackProcessed", ctx, int64(3), StatusCompleted).Return(nil)

		res, err := svc.Reconcile(ctx, "trk-001", "")
		assert.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)

		repo.AssertNotCalled(t, "SetNotificationDelivery", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotifiesWhenClaimStoreUnavailable", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(4), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(nil)
		repo.On("MarkNotified", ctx, "trk-001").Return(false, errors.New("db down"))
		n.On("Send", ctx, mock.Anything).Return("email-1", nil)
		repo.On("SetNotificationDelivery", ctx, "trk-001", "email-1").Return(errors.New("db down"))
		repo.On("MarkCallbackProcessed", ctx, int64(4), StatusCompleted).Return(nil)

		res, err := svc.Reconcile(ctx, "trk-001", "")
		assert.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)

		n.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("StoreFailuresDoNotFailReconciliation", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		n := new(MockNotifier)
		svc := newTestService(repo, gw, n)

		repo.On("SaveCallback", ctx, "trk-001", "").Return(int64(5), nil)
		gw.On("GetTransactionStatus", ctx, "trk-001").Return(completedStatus(), nil)
		repo.On("UpdateStatus", ctx, "trk-001", StatusCompleted).Return(errors.New("db down"))
		repo.On("MarkNotified", ctx, "trk-001").Return(true, nil)
		n.On("Send", ctx, mock.Anything).Return("email-1", nil)
		repo.On("SetNotificationDelivery", ctx, "trk-001", "email-1").Return(nil)
		repo.On("MarkCallbackProcessed", ctx, int64(5), StatusCompleted).Return(errors.New("db down"))

		res, err := svc.Reconcile(ctx, "trk-001", "")
		assert.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, StatusCompleted, res.Status)
	})
}
