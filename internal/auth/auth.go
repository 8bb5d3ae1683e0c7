// Package auth defines the storefront's authentication boundary: sign
// in, sign up, sign out, current-session retrieval, and a subscription
// channel for session-change events.
package auth

import (
	"context"
	"time"
)

// Session-change event names, mirroring the hosted auth service's
// vocabulary.
const (
	EventInitialSession = "INITIAL_SESSION"
	EventSignedIn       = "SIGNED_IN"
	EventSignedOut      = "SIGNED_OUT"
	EventTokenRefreshed = "TOKEN_REFRESHED"
)

// Session is the server-issued proof of an authenticated identity. The
// auth service owns it; everything else holds read-only copies.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	Email        string
}

// Expired reports whether the session's access token has expired.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Callback receives session-change notifications. A nil session means
// signed out. Callbacks run synchronously on the emitting goroutine and
// must not call back into the Service.
type Callback func(event string, session *Session)

// Unsubscribe detaches a previously registered callback.
type Unsubscribe func()

// Service is the authentication boundary consumed by the session
// manager.
type Service interface {
	// SignIn verifies credentials and issues a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new user with profile attributes attached as
	// user metadata. The returned session is nil when the account
	// requires email confirmation before it becomes usable.
	SignUp(ctx context.Context, email, password string, profileAttrs map[string]any) (*Session, error)

	// SignOut revokes the current session. The local session is cleared
	// and SIGNED_OUT is emitted even when the remote call fails.
	SignOut(ctx context.Context) error

	// CurrentSession returns the cached session, or nil when signed
	// out. It never performs a network call.
	CurrentSession(ctx context.Context) (*Session, error)

	// OnSessionChange registers a callback for session-change events.
	OnSessionChange(cb Callback) Unsubscribe
}
