package payment

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrAuth              = errors.New("gateway authentication failed")
	ErrRegistration      = errors.New("ipn registration failed")
	ErrSubmission        = errors.New("order submission failed")
	ErrTimeout           = errors.New("gateway request timed out")
	ErrMissingTrackingID = errors.New("missing OrderTrackingId")
)
