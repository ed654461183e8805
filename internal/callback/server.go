// Package callback runs the loopback HTTP listener that receives the
// GitHub OAuth redirect and redeems the authorization code exactly once.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	errs "github.com/truthlens/truthlens-cli/internal/errors"
	"github.com/truthlens/truthlens-cli/internal/models"
)

const shutdownGrace = 3 * time.Second

// Exchanger redeems a GitHub authorization code for a session.
type Exchanger interface {
	ExchangeGitHubCode(ctx context.Context, code string) (models.AuthOutcome, error)
}

// ConsentURL builds the GitHub authorize URL the user opens in a
// browser. GitHub redirects back to redirectURL with a one-shot code.
func ConsentURL(clientID, redirectURL string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURL)
	q.Set("scope", "user:email")

	return "https://github.com/login/oauth/authorize?" + q.Encode()
}

// Handler serves the redirect endpoint. The authorization code is
// single-use: the first delivery wins the latch and performs the
// exchange, any repeat of the same redirect is refused without a second
// network round trip.
type Handler struct {
	exchanger Exchanger
	logger    *slog.Logger

	consumed atomic.Bool
	outcomes chan models.AuthOutcome
}

func NewHandler(exchanger Exchanger, logger *slog.Logger) *Handler {
	return &Handler{
		exchanger: exchanger,
		logger:    logger,
		outcomes:  make(chan models.AuthOutcome, 1),
	}
}

// Outcome yields the result of the first completed delivery.
func (h *Handler) Outcome() <-chan models.AuthOutcome {
	return h.outcomes
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if denial := query.Get("error"); denial != "" {
		h.logger.Info("consent denied", "error", denial)
		h.deliver(models.Rejected("GitHub sign-in was cancelled"))
		respond(w, http.StatusOK, "Sign-in cancelled. You can close this tab.")

		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, errs.ErrNoAuthorizationCode.Error(), http.StatusBadRequest)

		return
	}

	// Win the latch before touching the network so a duplicate redirect
	// can never trigger a second exchange of the same code.
	if !h.consumed.CompareAndSwap(false, true) {
		http.Error(w, errs.ErrCodeConsumed.Error(), http.StatusConflict)

		return
	}

	outcome, err := h.exchanger.ExchangeGitHubCode(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		http.Error(w, "code exchange failed", http.StatusBadGateway)

		return
	}

	h.deliver(outcome)

	switch outcome.Kind {
	case models.OutcomeAuthenticated:
		respond(w, http.StatusOK, "Signed in. You can close this tab and return to the terminal.")
	case models.OutcomeRejected:
		respond(w, http.StatusUnauthorized, "Sign-in failed: "+outcome.Reason)
	default:
		respond(w, http.StatusBadGateway, "Sign-in failed. Check the terminal for details.")
	}
}

func (h *Handler) deliver(outcome models.AuthOutcome) {
	select {
	case h.outcomes <- outcome:
	default:
	}
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, body)
}

// Server binds the loopback address from the configured redirect URL
// and serves the Handler until an outcome arrives or the context ends.
type Server struct {
	handler    *Handler
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	path       string
}

func NewServer(redirectURL string, exchanger Exchanger, logger *slog.Logger) (*Server, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	handler := NewHandler(exchanger, logger)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("binding callback listener on %q: %w", u.Host, err)
	}

	return &Server{
		handler:    handler,
		logger:     logger,
		httpServer: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		listener:   listener,
		path:       path,
	}, nil
}

// URL is the exact address GitHub must redirect to, with the bound port
// filled in.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + s.path
}

// Run serves until the first delivered outcome or context cancellation,
// then shuts the listener down. It returns the outcome of the exchange.
func (s *Server) Run(ctx context.Context) (models.AuthOutcome, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	var outcome models.AuthOutcome

	g.Go(func() error {
		var cause error

		select {
		case outcome = <-s.handler.Outcome():
		case <-gctx.Done():
			cause = gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && cause == nil {
			cause = err
		}

		return cause
	})

	if err := g.Wait(); err != nil {
		return models.AuthOutcome{}, err
	}

	return outcome, nil
}
