package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartwin-be/internal/logger"
	"smartwin-be/internal/utils"

	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// SubmitPayment handles POST /payments.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request body",
			"details": "amount must be a number; see required fields",
		})
		return
	}

	res, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"orderTrackingId":   res.OrderTrackingID,
		"merchantReference": res.MerchantReference,
		"redirectUrl":       res.RedirectURL,
		"message":           "Payment initiated successfully",
	})
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromCtx(r.Context())

	switch {
	case errors.Is(err, ErrValidation):
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "Missing or invalid fields",
			"details":  err.Error(),
			"required": []string{"amount", "email", "firstName", "lastName"},
		})
	case errors.Is(err, ErrAuth):
		// Never leak credentials or the provider's auth response.
		log.Error("Payment initiation failed: authentication", zap.Error(err))
		utils.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":   "Payment initiation failed",
			"details": "Failed to authenticate with payment provider",
		})
	case errors.Is(err, ErrTimeout):
		log.Error("Payment initiation failed: timeout", zap.Error(err))
		utils.WriteJSON(w, http.StatusGatewayTimeout, map[string]interface{}{
			"error":   "Payment initiation failed",
			"details": "Payment provider did not respond in time",
		})
	case errors.Is(err, ErrRegistration), errors.Is(err, ErrSubmission):
		log.Error("Payment initiation failed: upstream", zap.Error(err))
		utils.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":   "Payment initiation failed",
			"details": err.Error(),
		})
	default:
		log.Error("Payment initiation failed", zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Payment initiation failed",
			"details": "Please check your payment details and try again",
		})
	}
}
