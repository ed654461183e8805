package truthlens

// LoginRequest is the body of POST /auth/login. Username carries the
// normalized identifier (email or handle).
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the success body of the login and federated
// exchange endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// RegisterRequest is the body of POST /auth/register. FullName is kept
// for backward compatibility with older server versions.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

// GoogleLoginRequest is the body of POST /auth/google-login. Token is
// the short-lived provider access token from the Google consent flow.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// GithubLoginRequest is the body of POST /auth/github-login. Code is
// the one-time authorization code from the GitHub redirect.
type GithubLoginRequest struct {
	Code string `json:"code"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
