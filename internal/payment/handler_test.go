package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Submit(ctx context.Context, req Request) (*SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubmitResult), args.Error(1)
}

func (m *MockService) Reconcile(ctx context.Context, orderTrackingID, merchantReference string) (*ReconciliationResult, error) {
	args := m.Called(ctx, orderTrackingID, merchantReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReconciliationResult), args.Error(1)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/payments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_SubmitPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(r Request) bool {
			return r.Amount == json.Number("100") && r.Email == "buyer@example.com"
		})).Return(&SubmitResult{
			OrderTrackingID:   "trk-001",
			MerchantReference: "SMARTWIN-1-abc",
			RedirectURL:       "https://pay.pesapal.com/iframe?OrderTrackingId=trk-001",
		}, nil)

		rec := postJSON(t, h.SubmitPayment, `{
			"amount": 100,
			"currency": "USD",
			"email": "buyer@example.com",
			"firstName": "Jane",
			"lastName": "Doe"
		}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "trk-001", body["orderTrackingId"])
		assert.Equal(t, "SMARTWIN-1-abc", body["merchantReference"])
		assert.Contains(t, body["redirectUrl"], "OrderTrackingId=trk-001")
		svc.AssertExpectations(t)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		req := httptest.NewRequest("GET", "/payments", nil)
		rec := httptest.NewRecorder()
		h.SubmitPayment(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		rec := postJSON(t, h.SubmitPayment, `{not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid request body", body["error"])
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("NonNumericAmount", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)
		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.New("unexpected")).Maybe()

		rec := postJSON(t, h.SubmitPayment, `{"amount": true, "email": "a@b.com"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ValidationError", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.Join(ErrValidation))

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Missing or invalid fields", body["error"])
		assert.ElementsMatch(t,
			[]interface{}{"amount", "email", "firstName", "lastName"},
			body["required"],
		)
	})

	t.Run("AuthErrorIsGeneric", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		// The wrapped detail must never reach the caller.
		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.Join(ErrAuth, errors.New("consumer_secret=super-secret")))

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100, "email": "a@b.com", "firstName": "A", "lastName": "B"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Failed to authenticate with payment provider", body["details"])
		assert.NotContains(t, rec.Body.String(), "super-secret")
	})

	t.Run("Timeout", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).Return(nil, ErrTimeout)

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100, "email": "a@b.com", "firstName": "A", "lastName": "B"}`)

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("RegistrationError", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.Join(ErrRegistration, errors.New("ipn url unreachable")))

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100, "email": "a@b.com", "firstName": "A", "lastName": "B"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Payment initiation failed", body["error"])
	})

	t.Run("SubmissionError", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.Join(ErrSubmission, errors.New("amount rejected")))

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100, "email": "a@b.com", "firstName": "A", "lastName": "B"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("UnknownError", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)

		svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.New("something unexpected"))

		rec := postJSON(t, h.SubmitPayment, `{"amount": 100, "email": "a@b.com", "firstName": "A", "lastName": "B"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "something unexpected")
	})
}
