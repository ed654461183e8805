package callback

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthlens/truthlens-cli/internal/models"
)

type fakeExchanger struct {
	calls   atomic.Int32
	outcome models.AuthOutcome
	err     error
}

func (f *fakeExchanger) ExchangeGitHubCode(_ context.Context, _ string) (models.AuthOutcome, error) {
	f.calls.Add(1)

	return f.outcome, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsentURL(t *testing.T) {
	raw := ConsentURL("client-1", "http://localhost:5173/auth/github/callback")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "/login/oauth/authorize", u.Path)
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:5173/auth/github/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, "user:email", u.Query().Get("scope"))
}

func TestHandler_MissingCode(t *testing.T) {
	exchanger := &fakeExchanger{}
	handler := NewHandler(exchanger, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, exchanger.calls.Load())
}

func TestHandler_ConsentDenied(t *testing.T) {
	exchanger := &fakeExchanger{}
	handler := NewHandler(exchanger, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, exchanger.calls.Load())

	select {
	case outcome := <-handler.Outcome():
		assert.Equal(t, models.OutcomeRejected, outcome.Kind)
	default:
		t.Fatal("expected a delivered outcome")
	}
}

func TestHandler_ExchangesCode(t *testing.T) {
	exchanger := &fakeExchanger{outcome: models.Authenticated("tok", models.UserProfile{Username: "ann"})}
	handler := NewHandler(exchanger, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), exchanger.calls.Load())

	outcome := <-handler.Outcome()
	assert.Equal(t, models.OutcomeAuthenticated, outcome.Kind)
	assert.Equal(t, "tok", outcome.Credential)
}

func TestHandler_RejectedExchange(t *testing.T) {
	exchanger := &fakeExchanger{outcome: models.Rejected("Invalid token")}
	handler := NewHandler(exchanger, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestHandler_ReplayedCodeRefused(t *testing.T) {
	exchanger := &fakeExchanger{outcome: models.Authenticated("tok", models.UserProfile{})}
	handler := NewHandler(exchanger, testLogger())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, int32(1), exchanger.calls.Load(), "replay must not reach the network")
}

func TestHandler_ConcurrentDeliveriesExchangeOnce(t *testing.T) {
	exchanger := &fakeExchanger{outcome: models.Authenticated("tok", models.UserProfile{})}
	handler := NewHandler(exchanger, testLogger())

	const deliveries = 8

	codes := make([]int, 0, deliveries)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < deliveries; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

			mu.Lock()
			codes = append(codes, rec.Code)
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), exchanger.calls.Load(), "exactly one delivery wins the latch")

	won := 0

	for _, code := range codes {
		if code == http.StatusOK {
			won++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}

	assert.Equal(t, 1, won)
}

func TestServer_RunDeliversOutcome(t *testing.T) {
	exchanger := &fakeExchanger{outcome: models.Authenticated("tok", models.UserProfile{Username: "ann"})}

	server, err := NewServer("http://127.0.0.1:0/auth/github/callback", exchanger, testLogger())
	require.NoError(t, err)

	type result struct {
		outcome models.AuthOutcome
		err     error
	}

	done := make(chan result, 1)

	go func() {
		outcome, runErr := server.Run(context.Background())
		done <- result{outcome: outcome, err: runErr}
	}()

	require.True(t, strings.HasSuffix(server.URL(), "/auth/github/callback"))

	resp, err := http.Get(server.URL() + "?code=abc")
	require.NoError(t, err)
	resp.Body.Close()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, models.OutcomeAuthenticated, res.outcome.Kind)
		assert.Equal(t, "tok", res.outcome.Credential)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after delivering the outcome")
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	server, err := NewServer("http://127.0.0.1:0/auth/github/callback", &fakeExchanger{}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		_, runErr := server.Run(ctx)
		done <- runErr
	}()

	cancel()

	select {
	case runErr := <-done:
		assert.ErrorIs(t, runErr, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
