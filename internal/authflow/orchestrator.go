// Package authflow drives the authentication entry points: password
// login, registration, the two federated exchanges, and password
// recovery. Each entry point turns user input into an AuthOutcome; on
// success the session store receives the new credential.
package authflow

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"

	errs "github.com/truthlens/truthlens-cli/internal/errors"
	"github.com/truthlens/truthlens-cli/internal/logging"
	"github.com/truthlens/truthlens-cli/internal/models"
	"github.com/truthlens/truthlens-cli/internal/truthlens"
)

// Backend is the subset of the TruthLens API used by authentication
// flows. *truthlens.Client satisfies this interface.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, req truthlens.RegisterRequest) error
	GoogleLogin(ctx context.Context, token string) (string, error)
	GithubLogin(ctx context.Context, code string) (string, error)
	MyData(ctx context.Context, credential string) (models.UserProfile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// CredentialWriter is the store side the orchestrator needs: it only
// ever writes on success and clears on logout.
type CredentialWriter interface {
	SetCredential(credential string) error
	ClearCredential() error
}

// NormalizeIdentifier case-folds and trims an account identifier so the
// same account is reachable regardless of input casing. Normalization
// happens client-side, before transmission.
func NormalizeIdentifier(identifier string) string {
	return cases.Fold().String(strings.TrimSpace(identifier))
}

// SynthesizeUsername derives a candidate handle from the name fragments
// plus a random 0-999 suffix, dodging collisions without a pre-check
// round trip.
func SynthesizeUsername(firstName, lastName string) string {
	base := cases.Fold().String(strings.TrimSpace(firstName) + strings.TrimSpace(lastName))
	base = strings.ReplaceAll(base, " ", "")

	return base + strconv.Itoa(rand.IntN(1000))
}

// Registration is the input to the registration entry point.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Orchestrator turns credentials or federated-provider proofs into a
// stored session, or a reported failure.
type Orchestrator struct {
	backend Backend
	store   CredentialWriter
	logger  *slog.Logger

	// submitting guards against duplicate in-flight attempts from the
	// same surface: while a request is outstanding, re-submission is
	// rejected with ErrInFlight.
	submitting atomic.Bool
}

// New creates an orchestrator over the given backend and store.
func New(backend Backend, store CredentialWriter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{backend: backend, store: store, logger: logger}
}

// beginSubmit latches the in-flight guard. The returned func releases it.
func (o *Orchestrator) beginSubmit() (func(), error) {
	if !o.submitting.CompareAndSwap(false, true) {
		return nil, errs.ErrInFlight
	}

	return func() { o.submitting.Store(false) }, nil
}

// outcomeFromError maps a backend error to its AuthOutcome variant. A
// malformed response is treated as a rejection with a generic reason.
func outcomeFromError(err error) models.AuthOutcome {
	if detail, ok := truthlens.IsRejection(err); ok {
		return models.Rejected(detail)
	}

	if truthlens.IsMalformed(err) {
		return models.Rejected("unexpected response from server")
	}

	return models.NetworkFailure()
}

// completeLogin stores the freshly issued credential and fetches the
// profile to attach to the outcome. A failed profile fetch does not
// undo the login; the profile is refetched on the next validation.
func (o *Orchestrator) completeLogin(ctx context.Context, credential string) models.AuthOutcome {
	if err := o.store.SetCredential(credential); err != nil {
		o.logger.Warn("failed to persist credential", slog.String("error", err.Error()))
	}

	profile, err := o.backend.MyData(ctx, credential)
	if err != nil {
		o.logger.Debug("profile fetch after login failed",
			logging.CredentialDigest(credential),
			slog.String("error", err.Error()),
		)
	}

	return models.Authenticated(credential, profile)
}

// Login authenticates with an identifier and password. The identifier
// is normalized before transmission; the server's rejection reason is
// surfaced verbatim; nothing retries automatically.
func (o *Orchestrator) Login(ctx context.Context, identifier, password string) (models.AuthOutcome, error) {
	release, err := o.beginSubmit()
	if err != nil {
		return models.AuthOutcome{}, err
	}
	defer release()

	username := NormalizeIdentifier(identifier)

	credential, err := o.backend.Login(ctx, username, password)
	if err != nil {
		return outcomeFromError(err), nil
	}

	o.logger.Info("login succeeded", slog.String("username", username))

	return o.completeLogin(ctx, credential), nil
}

// Register creates a new account. Success does not authenticate: the
// user returns to the login entry point and must verify their address
// first, so the store is never written here.
func (o *Orchestrator) Register(ctx context.Context, reg Registration) (models.AuthOutcome, error) {
	release, err := o.beginSubmit()
	if err != nil {
		return models.AuthOutcome{}, err
	}
	defer release()

	req := truthlens.RegisterRequest{
		Email:     NormalizeIdentifier(reg.Email),
		Username:  SynthesizeUsername(reg.FirstName, reg.LastName),
		Password:  reg.Password,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		FullName:  strings.TrimSpace(reg.FirstName + " " + reg.LastName),
	}

	if err := o.backend.Register(ctx, req); err != nil {
		return outcomeFromError(err), nil
	}

	o.logger.Info("registration accepted", slog.String("username", req.Username))

	return models.Registered(), nil
}

// ExchangeGitHubCode trades a redirect-delivered authorization code for
// a session. The at-most-once guarantee per code lives in the callback
// handler; this method performs a single exchange.
func (o *Orchestrator) ExchangeGitHubCode(ctx context.Context, code string) (models.AuthOutcome, error) {
	release, err := o.beginSubmit()
	if err != nil {
		return models.AuthOutcome{}, err
	}
	defer release()

	credential, err := o.backend.GithubLogin(ctx, code)
	if err != nil {
		return outcomeFromError(err), nil
	}

	o.logger.Info("github login succeeded")

	return o.completeLogin(ctx, credential), nil
}

// ExchangeGoogleToken trades a provider-issued access token for a
// session. Unlike the GitHub code, the token is not redirect-delivered,
// so no replay latch is needed.
func (o *Orchestrator) ExchangeGoogleToken(ctx context.Context, token string) (models.AuthOutcome, error) {
	release, err := o.beginSubmit()
	if err != nil {
		return models.AuthOutcome{}, err
	}
	defer release()

	credential, err := o.backend.GoogleLogin(ctx, token)
	if err != nil {
		return outcomeFromError(err), nil
	}

	o.logger.Info("google login succeeded")

	return o.completeLogin(ctx, credential), nil
}

// Logout clears the stored credential. The backend keeps no session
// state to tear down, so this is purely local.
func (o *Orchestrator) Logout() error {
	return o.store.ClearCredential()
}
