// Package truthlens wraps the TruthLens backend auth API. It is a pure
// request/response layer: no session state lives here.
package truthlens

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/truthlens/truthlens-cli/internal/models"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads. Auth responses are
	// small JSON payloads.
	maxResponseBytes = 1024 * 1024
)

// NetworkError wraps a transport-level failure: no usable HTTP response
// arrived at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err (or any error in its chain) is a
// NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// RejectionError is a non-2xx response from the server. Detail carries
// the server-provided reason verbatim when one was sent.
type RejectionError struct {
	StatusCode int
	Detail     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Detail)
}

// IsRejection reports whether err is a server rejection and returns its
// detail message.
func IsRejection(err error) (string, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Detail, true
	}

	return "", false
}

// MalformedResponseError is a 2xx response whose payload did not have
// the expected shape.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsMalformed reports whether err (or any error in its chain) is a
// MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// Client talks to the TruthLens auth API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host, so bearer credentials cannot leak
// to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the given base URL. If httpClient
// is nil, a client with a 30-second timeout and same-host redirect
// policy is created.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// sanitizeBody truncates a response body for inclusion in error
// messages and strips control characters to prevent log injection.
func sanitizeBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	return strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || (r < 0x20 && r != '\t') {
			return '?'
		}

		return r
	}, string(body))
}

// rejectionDetail extracts the server's {detail} message from a failure
// body, falling back to a sanitized body excerpt.
func rejectionDetail(body []byte) string {
	if detail := gjson.GetBytes(body, "detail").Str; detail != "" {
		return detail
	}

	if s := strings.TrimSpace(sanitizeBody(body)); s != "" {
		return s
	}

	return "request failed"
}

// do sends a JSON request and reads the (capped) response body. A
// bearer credential is attached when one is given. Transport failures
// come back as NetworkError, non-2xx responses as RejectionError.
func (c *Client) do(ctx context.Context, method, endpoint, bearer string, body any) ([]byte, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("sending request to %s: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("reading response from %s: %w", endpoint, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RejectionError{
			StatusCode: resp.StatusCode,
			Detail:     rejectionDetail(respBody),
		}
	}

	return respBody, nil
}

// accessToken extracts access_token from a 2xx exchange response.
func (c *Client) accessToken(endpoint string, body []byte) (string, error) {
	token := gjson.GetBytes(body, "access_token").Str
	if token == "" {
		return "", &MalformedResponseError{
			Endpoint: endpoint,
			Err:      errors.New("missing access_token field"),
		}
	}

	return token, nil
}

// Login authenticates with a normalized identifier and password,
// returning a session credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/login", "", LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", err
	}

	return c.accessToken("/auth/login", body)
}

// Register creates a new account. No credential is issued: the server
// gates the first login on email verification.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/register", "", req)

	return err
}

// GoogleLogin exchanges a Google-issued access token for a session
// credential.
func (c *Client) GoogleLogin(ctx context.Context, token string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/google-login", "", GoogleLoginRequest{Token: token})
	if err != nil {
		return "", err
	}

	return c.accessToken("/auth/google-login", body)
}

// GithubLogin exchanges a GitHub authorization code for a session
// credential. The server consumes the code; replays are rejected.
func (c *Client) GithubLogin(ctx context.Context, code string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/github-login", "", GithubLoginRequest{Code: code})
	if err != nil {
		return "", err
	}

	return c.accessToken("/auth/github-login", body)
}

// MyData introspects a credential and returns the associated profile.
// Field parsing is defensive: anything the server omits becomes the
// zero value rather than an error.
func (c *Client) MyData(ctx context.Context, credential string) (models.UserProfile, error) {
	body, err := c.do(ctx, http.MethodGet, "/auth/myData", credential, nil)
	if err != nil {
		return models.UserProfile{}, err
	}

	return models.UserProfile{
		Username:    gjson.GetBytes(body, "username").Str,
		Email:       gjson.GetBytes(body, "email").Str,
		FirstName:   gjson.GetBytes(body, "first_name").Str,
		LastName:    gjson.GetBytes(body, "last_name").Str,
		PhoneNumber: gjson.GetBytes(body, "phone_number").Str,
		Avatar:      gjson.GetBytes(body, "avatar").Str,
	}, nil
}

// ForgotPassword requests a password-reset email. Any HTTP response is
// treated as success so callers cannot learn whether the address
// exists; only transport failure is an error.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/forgot-password", "", ForgotPasswordRequest{Email: email})
	if err != nil && IsNetwork(err) {
		return err
	}

	return nil
}

// ResetPassword redeems a reset ticket for a new password. An expired
// or already-used ticket comes back as a rejection with the server's
// reason.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/reset-password", "", ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	})

	return err
}
