package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartwin-be/internal/logger"
	"smartwin-be/internal/payment"
	"smartwin-be/internal/utils"

	"go.uber.org/zap"
)

// Handler receives Pesapal's Instant Payment Notifications.
type Handler struct {
	svc payment.Service
}

func NewHandler(svc payment.Service) *Handler {
	return &Handler{svc: svc}
}

// HandleIPN is the callback endpoint Pesapal invokes after the payer
// finishes (or abandons) checkout. Pesapal delivers it as GET in this
// integration but may use POST; the tracking id always arrives as a query
// parameter.
func (h *Handler) HandleIPN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		utils.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trackingID := r.URL.Query().Get("OrderTrackingId")
	merchantRef := r.URL.Query().Get("OrderMerchantReference")

	res, err := h.svc.Reconcile(r.Context(), trackingID, merchantRef)
	if err != nil {
		if errors.Is(err, payment.ErrMissingTrackingID) {
			utils.WriteJSONError(w, "Missing OrderTrackingId", http.StatusBadRequest)
			return
		}

		logger.FromCtx(r.Context()).Error("IPN processing failed",
			zap.String("order_tracking_id", trackingID),
			zap.Error(err),
		)
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "IPN processing failed",
			"message": err.Error(),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"orderTrackingId":    res.OrderTrackingID,
		"status":             res.Status,
		"transactionDetails": json.RawMessage(res.Raw),
	})
}
