package payment

import (
	"context"
	"errors"
	"fmt"

	"smartwin-be/internal/config"
	"smartwin-be/internal/logger"
	"smartwin-be/internal/metrics"
	"smartwin-be/internal/notifier"
	"smartwin-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	Submit(ctx context.Context, req Request) (*SubmitResult, error)
	Reconcile(ctx context.Context, orderTrackingID, merchantReference string) (*ReconciliationResult, error)
}

type service struct {
	repo     Repository
	gateway  Gateway
	notifier notifier.Notifier
	metrics  *metrics.Registry

	ipnURL          string
	returnURL       string
	defaultCurrency string
	countryCode     string
}

func NewService(repo Repository, gateway Gateway, n notifier.Notifier, m *metrics.Registry, cfg *config.Config) Service {
	return &service{
		repo:            repo,
		gateway:         gateway,
		notifier:        n,
		metrics:         m,
		ipnURL:          cfg.PesapalIPNURL,
		returnURL:       cfg.PaymentReturnURL,
		defaultCurrency: cfg.DefaultCurrency,
		countryCode:     cfg.DefaultCountryCode,
	}
}

// Submit validates the request, registers the IPN callback, submits the
// order to the provider and returns the redirect target for the payer.
// There are no retries here; transient failures surface to the caller.
func (s *service) Submit(ctx context.Context, req Request) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	amount, _ := req.Amount.Float64()

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx)

	// The provider does not guarantee a stable ipn_id across calls, so the
	// result of this registration is authoritative for this request only.
	notificationID, err := s.gateway.RegisterIPN(ctx, s.ipnURL)
	if err != nil {
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	reference := utils.GenerateMerchantReference()
	order := OrderRequest{
		ID:             reference,
		Currency:       currency,
		Amount:         amount,
		Description:    req.DefaultDescription(),
		CallbackURL:    s.returnURL + "?ref=" + reference,
		NotificationID: notificationID,
		BillingAddress: BillingAddress{
			EmailAddress: req.Email,
			PhoneNumber:  req.PhoneNumber,
			CountryCode:  s.countryCode,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
		},
	}

	resp, err := s.gateway.SubmitOrder(ctx, order)
	if err != nil {
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	merchantRef := resp.MerchantReference
	if merchantRef == "" {
		merchantRef = reference
	}

	record := &Payment{
		MerchantReference: merchantRef,
		OrderTrackingID:   resp.OrderTrackingID,
		Amount:            amount,
		Currency:          currency,
		Description:       order.Description,
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		PhoneNumber:       req.PhoneNumber,
		PaymentMethod:     req.PaymentMethod,
		NotificationID:    notificationID,
		Status:            StatusPending,
	}
	// The gateway is the source of truth; a store failure must not turn a
	// submitted order into a caller-visible error.
	if err := s.repo.SavePayment(ctx, record); err != nil {
		log.Error("Failed to persist payment record",
			zap.String("merchant_reference", merchantRef),
			zap.Error(err),
		)
	}

	s.metrics.Submissions.Inc()
	log.Info("Payment initiated",
		zap.String("merchant_reference", merchantRef),
		zap.String("order_tracking_id", resp.OrderTrackingID),
		zap.Duration("took", timer.Duration()),
	)

	return &SubmitResult{
		OrderTrackingID:   resp.OrderTrackingID,
		MerchantReference: merchantRef,
		RedirectURL:       resp.RedirectURL,
	}, nil
}
