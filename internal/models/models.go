// Package models defines types shared across internal packages.
package models

import "strings"

// UserProfile is the read-only profile returned by session introspection.
// It is never authoritative client-side: it is refetched from the server
// whenever the credential is confirmed valid.
type UserProfile struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// DisplayName returns the name to show in UI surfaces, or "" when the
// profile carries no name parts.
func (p UserProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// OutcomeKind tags an AuthOutcome variant.
type OutcomeKind int

const (
	// OutcomeAuthenticated means a session credential was issued.
	OutcomeAuthenticated OutcomeKind = iota

	// OutcomeRegistered means the account was created but no session was
	// issued: the address must be verified before the first login.
	OutcomeRegistered

	// OutcomeRejected means the server refused the attempt with a reason.
	OutcomeRejected

	// OutcomeNetworkFailure means no usable response arrived at all.
	OutcomeNetworkFailure
)

// AuthOutcome is the result of a single authentication attempt. It is
// consumed immediately by the caller and never persisted.
type AuthOutcome struct {
	Kind OutcomeKind

	// Credential is set only for OutcomeAuthenticated. Treated as a
	// secret: never logged.
	Credential string

	// Profile is set for OutcomeAuthenticated when the follow-up
	// introspection succeeded.
	Profile UserProfile

	// Reason carries the server-provided detail, verbatim, for
	// OutcomeRejected.
	Reason string
}

// Authenticated builds a successful outcome.
func Authenticated(credential string, profile UserProfile) AuthOutcome {
	return AuthOutcome{Kind: OutcomeAuthenticated, Credential: credential, Profile: profile}
}

// Registered builds a registration-accepted outcome.
func Registered() AuthOutcome {
	return AuthOutcome{Kind: OutcomeRegistered}
}

// Rejected builds a server-rejection outcome with the verbatim reason.
func Rejected(reason string) AuthOutcome {
	return AuthOutcome{Kind: OutcomeRejected, Reason: reason}
}

// NetworkFailure builds a no-response outcome.
func NetworkFailure() AuthOutcome {
	return AuthOutcome{Kind: OutcomeNetworkFailure}
}
