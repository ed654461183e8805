package session

import (
	"context"
	"log/slog"

	errs "github.com/truthlens/truthlens-cli/internal/errors"
	"github.com/truthlens/truthlens-cli/internal/models"
)

// GateState is the access gate's position in its lifecycle.
type GateState int

const (
	// StateUnknown is the initial state of a fresh gate.
	StateUnknown GateState = iota

	// StateValidating means introspection is in flight. Protected
	// content must not render in this state.
	StateValidating

	// StateAuthenticated means the server confirmed the credential.
	StateAuthenticated

	// StateUnauthenticated means there is no usable session.
	StateUnauthenticated
)

func (s GateState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}

	return "invalid"
}

// gateEvent drives gate transitions.
type gateEvent int

const (
	eventEnter gateEvent = iota
	eventValid
	eventInvalid
)

// reduce is the pure transition function. Authenticated and
// Unauthenticated are terminal: no event moves a settled gate.
func reduce(s GateState, ev gateEvent) GateState {
	switch {
	case s == StateUnknown && ev == eventEnter:
		return StateValidating
	case s == StateValidating && ev == eventValid:
		return StateAuthenticated
	case s == StateValidating && ev == eventInvalid:
		return StateUnauthenticated
	}

	return s
}

// Decision is what a settled gate tells its consumer.
type Decision struct {
	State GateState

	// Profile is populated only when State is StateAuthenticated. It is
	// the gate's sole protected output: nothing protected is exposed
	// before the server confirms the credential.
	Profile models.UserProfile

	// SessionExpired is true when a previously stored credential turned
	// out invalid, warranting a one-time notice to the user.
	SessionExpired bool
}

// Gate guards entry into protected surfaces. A gate instance settles
// exactly once; each fresh navigation into a protected area gets a
// fresh gate starting at StateUnknown.
type Gate struct {
	validator *Validator
	logger    *slog.Logger
	state     GateState
}

// NewGate creates a gate in StateUnknown.
func NewGate(validator *Validator, logger *slog.Logger) *Gate {
	return &Gate{validator: validator, logger: logger, state: StateUnknown}
}

// State returns the gate's current state.
func (g *Gate) State() GateState {
	return g.state
}

// Enter drives the gate to a terminal state: Unknown -> Validating ->
// Authenticated or Unauthenticated. The validator is invoked exactly
// once per gate instance; a second Enter returns ErrGateSettled.
//
// If ctx is cancelled before the validation response arrives, the
// response is discarded: the gate stays in StateValidating and the
// context error is returned.
func (g *Gate) Enter(ctx context.Context) (Decision, error) {
	if g.state != StateUnknown {
		return Decision{State: g.state}, errs.ErrGateSettled
	}

	g.state = reduce(g.state, eventEnter)

	res := g.validator.Validate(ctx)
	if err := ctx.Err(); err != nil {
		return Decision{State: g.state}, err
	}

	if res.Valid {
		g.state = reduce(g.state, eventValid)
		g.logger.Debug("access gate settled", slog.String("state", g.state.String()))

		return Decision{State: g.state, Profile: res.Profile}, nil
	}

	g.state = reduce(g.state, eventInvalid)
	g.logger.Debug("access gate settled",
		slog.String("state", g.state.String()),
		slog.Bool("session_expired", res.Expired),
	)

	return Decision{State: g.state, SessionExpired: res.Expired}, nil
}
