package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/truthlens/truthlens-cli/internal/logging"
	"github.com/truthlens/truthlens-cli/internal/models"
)

// Introspector confirms a credential with the backend and returns the
// profile it belongs to. *truthlens.Client satisfies this interface.
type Introspector interface {
	MyData(ctx context.Context, credential string) (models.UserProfile, error)
}

// Result reduces a stored credential to valid-with-profile or invalid.
type Result struct {
	Valid   bool
	Profile models.UserProfile

	// Expired is true when a credential was present but the server no
	// longer accepts it. Callers use it to surface a one-time
	// "session expired" notice.
	Expired bool
}

// Validator checks the stored credential against the backend.
type Validator struct {
	store  *Store
	client Introspector
	logger *slog.Logger

	// group collapses overlapping introspection calls into one server
	// round trip; every dashboard surface validates on entry, so
	// several can ask at once.
	group singleflight.Group
}

// NewValidator creates a validator over the given store and backend.
func NewValidator(store *Store, client Introspector, logger *slog.Logger) *Validator {
	return &Validator{store: store, client: client, logger: logger}
}

// Validate confirms the stored credential with the server.
//
// Fail closed: any failure to verify, including pure connectivity
// loss, clears the slot and reports Invalid. An unverifiable session
// is treated as no session; the worst outcome is a forced re-login,
// never an unverified one.
func (v *Validator) Validate(ctx context.Context) Result {
	credential := v.store.Credential()
	if credential == "" {
		return Result{}
	}

	ch := v.group.DoChan(credential, func() (any, error) {
		profile, err := v.client.MyData(ctx, credential)
		if err != nil {
			if ctx.Err() != nil {
				// The caller was torn down mid-flight. That says nothing
				// about the credential, so leave the slot alone.
				return nil, err
			}

			v.logger.Debug("introspection failed, clearing session",
				logging.CredentialDigest(credential),
				slog.String("error", err.Error()),
			)

			if clearErr := v.store.ClearCredential(); clearErr != nil {
				v.logger.Warn("failed to clear credential", slog.String("error", clearErr.Error()))
			}

			return nil, err
		}

		return profile, nil
	})

	select {
	case <-ctx.Done():
		// Caller torn down before the response arrived; the shared call
		// finishes on its own and the result is discarded here.
		return Result{}
	case res := <-ch:
		if res.Err != nil {
			if ctx.Err() != nil {
				return Result{}
			}

			return Result{Expired: true}
		}

		return Result{Valid: true, Profile: res.Val.(models.UserProfile)}
	}
}
