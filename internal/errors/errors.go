package errors

import "errors"

// Flow guard errors.
var (
	ErrInFlight     = errors.New("another authentication request is already in flight")
	ErrCodeConsumed = errors.New("authorization code already consumed")
	ErrGateSettled  = errors.New("access gate already settled")
	ErrFlowSettled  = errors.New("recovery flow already settled")
)

// Local input validation errors.
var (
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrNoAuthorizationCode = errors.New("no authorization code in callback")
	ErrNoCredential        = errors.New("no session credential stored")
)
