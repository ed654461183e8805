package authflow

import (
	"context"
	"log/slog"
	"sync/atomic"

	errs "github.com/truthlens/truthlens-cli/internal/errors"
)

// RecoveryState is a phase of the password-recovery flow.
type RecoveryState int

const (
	// RecoveryRequest is Phase A: asking for a reset email.
	RecoveryRequest RecoveryState = iota

	// RecoveryEmailSent is the terminal state of Phase A.
	RecoveryEmailSent

	// RecoveryRedeem is Phase B: a reset ticket is present and a new
	// password can be submitted.
	RecoveryRedeem

	// RecoveryComplete is the terminal state of Phase B; the user
	// returns to the login entry point.
	RecoveryComplete
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryRequest:
		return "request"
	case RecoveryEmailSent:
		return "email_sent"
	case RecoveryRedeem:
		return "redeem"
	case RecoveryComplete:
		return "complete"
	}

	return "invalid"
}

// Recovery is the two-phase password-recovery machine. The starting
// phase is keyed on ticket presence: without a ticket the flow requests
// a reset email, with one it redeems the ticket for a new password.
type Recovery struct {
	backend Backend
	logger  *slog.Logger
	ticket  string
	state   RecoveryState

	submitting atomic.Bool
}

// NewRecovery creates a recovery flow. ticket is the opaque server-issued
// reset token carried in the navigation context, or "" for Phase A.
func NewRecovery(backend Backend, logger *slog.Logger, ticket string) *Recovery {
	state := RecoveryRequest
	if ticket != "" {
		state = RecoveryRedeem
	}

	return &Recovery{backend: backend, logger: logger, ticket: ticket, state: state}
}

// State returns the flow's current phase.
func (r *Recovery) State() RecoveryState {
	return r.state
}

// RequestReset submits the Phase A form. Whatever the server answers is
// success: the backend must not leak whether the address exists. Only a
// transport failure is an error, and it leaves the form resubmittable.
func (r *Recovery) RequestReset(ctx context.Context, email string) error {
	if r.state != RecoveryRequest {
		return errs.ErrFlowSettled
	}

	if !r.submitting.CompareAndSwap(false, true) {
		return errs.ErrInFlight
	}
	defer r.submitting.Store(false)

	if err := r.backend.ForgotPassword(ctx, NormalizeIdentifier(email)); err != nil {
		return err
	}

	r.state = RecoveryEmailSent
	r.logger.Info("password reset email requested")

	return nil
}

// RedeemReset submits the Phase B form. The two password fields must
// match before anything is transmitted. A server rejection (expired or
// already-used ticket) leaves the flow resubmittable but never causes a
// partial state change; recovering from a dead ticket means restarting
// Phase A.
func (r *Recovery) RedeemReset(ctx context.Context, newPassword, confirmPassword string) error {
	if r.state != RecoveryRedeem {
		return errs.ErrFlowSettled
	}

	if newPassword != confirmPassword {
		return errs.ErrPasswordMismatch
	}

	if !r.submitting.CompareAndSwap(false, true) {
		return errs.ErrInFlight
	}
	defer r.submitting.Store(false)

	if err := r.backend.ResetPassword(ctx, r.ticket, newPassword); err != nil {
		return err
	}

	r.state = RecoveryComplete
	r.logger.Info("password reset complete")

	return nil
}
