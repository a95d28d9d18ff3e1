package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"smartwin-be/internal/config"
	"smartwin-be/internal/logger"

	"go.uber.org/zap"
)

const (
	authPath   = "/api/Auth/RequestToken"
	ipnPath    = "/api/URLSetup/RegisterIPN"
	orderPath  = "/api/Transactions/SubmitOrderRequest"
	statusPath = "/api/Transactions/GetTransactionStatus"

	gatewayTimeout = 15 * time.Second
)

// APIError is a non-success response from the provider. The raw body is
// kept for operator diagnosis and never returned to the original caller.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pesapal %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// pesapalError is the error object Pesapal embeds in otherwise-valid
// responses.
type pesapalError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *pesapalError) isSet() bool {
	return e != nil && (e.Code != "" || e.Message != "" || e.ErrorType != "")
}

// message is nil-safe: a 200 response can carry an empty value with no
// error object at all.
func (e *pesapalError) message() string {
	if e == nil {
		return "provider returned no error detail"
	}
	return e.Message
}

type pesapalGateway struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	tokens         *tokenSource
}

// NewPesapalGateway builds the Pesapal v3 client. Credentials and the
// sandbox/production base URL come from the injected configuration; nothing
// is read from the environment here.
func NewPesapalGateway(cfg *config.Config) Gateway {
	g := &pesapalGateway{
		baseURL:        cfg.PesapalBaseURL,
		consumerKey:    cfg.PesapalConsumerKey,
		consumerSecret: cfg.PesapalConsumerSecret,
		httpClient: &http.Client{
			Timeout: gatewayTimeout,
		},
	}
	g.tokens = newTokenSource(g.requestToken)
	return g
}

// requestToken performs the synchronous authentication call. Called only by
// the token source, under its critical section.
func (g *pesapalGateway) requestToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		"consumer_key":    g.consumerKey,
		"consumer_secret": g.consumerSecret,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+authPath, bytes.NewBuffer(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		terr := transportError("auth", err)
		if !errors.Is(terr, ErrTimeout) {
			terr = fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return "", time.Time{}, terr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: failed to read auth response: %v", ErrAuth, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.L().Error("Pesapal authentication rejected",
			zap.Int("status", resp.StatusCode),
		)
		return "", time.Time{}, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}

	var res struct {
		Token      string        `json:"token"`
		ExpiryDate string        `json:"expiryDate"`
		Error      *pesapalError `json:"error"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: failed decoding auth response: %v", ErrAuth, err)
	}
	if res.Error.isSet() || res.Token == "" {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrAuth, res.Error.message())
	}

	var expiresAt time.Time
	if res.ExpiryDate != "" {
		if t, err := time.Parse(time.RFC3339, res.ExpiryDate); err == nil {
			expiresAt = t
		}
	}
	return res.Token, expiresAt, nil
}

func (g *pesapalGateway) RegisterIPN(ctx context.Context, callbackURL string) (string, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{
		"url":                   callbackURL,
		"ipn_notification_type": "GET",
	})
	if err != nil {
		return "", err
	}

	respBody, err := g.post(ctx, "register_ipn", ipnPath, body, token)
	if err != nil {
		return "", err
	}

	var res struct {
		IPNID string        `json:"ipn_id"`
		URL   string        `json:"url"`
		Error *pesapalError `json:"error"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return "", fmt.Errorf("failed decoding register_ipn response: %w", err)
	}
	if res.Error.isSet() || res.IPNID == "" {
		return "", fmt.Errorf("register_ipn rejected: %s", res.Error.message())
	}

	logger.FromCtx(ctx).Debug("IPN URL registered",
		zap.String("ipn_id", res.IPNID),
		zap.String("url", callbackURL),
	)
	return res.IPNID, nil
}

func (g *pesapalGateway) SubmitOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("merchant_reference", order.ID),
		zap.Float64("amount", order.Amount),
		zap.String("currency", order.Currency),
	)
	log.Info("Submitting order to Pesapal")

	respBody, err := g.post(ctx, "submit_order", orderPath, body, token)
	if err != nil {
		return nil, err
	}

	var res struct {
		OrderTrackingID   string        `json:"order_tracking_id"`
		MerchantReference string        `json:"merchant_reference"`
		RedirectURL       string        `json:"redirect_url"`
		Error             *pesapalError `json:"error"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("failed decoding submit_order response: %w", err)
	}
	if res.Error.isSet() || res.OrderTrackingID == "" {
		return nil, &APIError{Op: "submit_order", StatusCode: http.StatusOK, Body: string(respBody)}
	}

	log.Info("Order submitted",
		zap.String("order_tracking_id", res.OrderTrackingID),
	)
	return &OrderResponse{
		OrderTrackingID:   res.OrderTrackingID,
		MerchantReference: res.MerchantReference,
		RedirectURL:       res.RedirectURL,
	}, nil
}

func (g *pesapalGateway) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s%s?orderTrackingId=%s", g.baseURL, statusPath, url.QueryEscape(orderTrackingID))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError("transaction_status", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction_status response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: "transaction_status", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var res struct {
		PaymentMethod            string        `json:"payment_method"`
		Amount                   float64       `json:"amount"`
		PaymentStatusDescription string        `json:"payment_status_description"`
		ConfirmationCode         string        `json:"confirmation_code"`
		MerchantReference        string        `json:"merchant_reference"`
		Currency                 string        `json:"currency"`
		Error                    *pesapalError `json:"error"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, fmt.Errorf("failed decoding transaction_status response: %w", err)
	}
	if res.Error.isSet() {
		return nil, &APIError{Op: "transaction_status", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return &TransactionStatus{
		PaymentStatusDescription: res.PaymentStatusDescription,
		Amount:                   res.Amount,
		Currency:                 res.Currency,
		PaymentMethod:            res.PaymentMethod,
		MerchantReference:        res.MerchantReference,
		ConfirmationCode:         res.ConfirmationCode,
		Raw:                      respBody,
	}, nil
}

// post sends an authenticated JSON request and returns the raw body of a
// 2xx response; anything else becomes an *APIError.
func (g *pesapalGateway) post(ctx context.Context, op, path string, body []byte, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// transportError maps client-side failures onto the error taxonomy. Bounded
// timeouts surface as ErrTimeout instead of hanging the request.
func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("pesapal %s: %w", op, err)
}
