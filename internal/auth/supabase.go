package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trademart/storefront/supabase/client"
)

// refreshMargin is how long before expiry the refresh loop fires. GoTrue
// access tokens live for an hour by default; refreshing early keeps
// in-flight queries from racing an expired token.
const refreshMargin = 30 * time.Second

// SupabaseService implements Service over the GoTrue API. It caches the
// issued session, schedules token refresh ahead of expiry, and fans
// session-change events out to subscribers.
type SupabaseService struct {
	auth   *client.AuthClient
	logger *zap.Logger

	mu           sync.Mutex
	session      *Session
	listeners    map[int]Callback
	nextListener int
	refreshTimer *time.Timer
	closed       bool
}

// NewSupabaseService creates an auth service over the given Supabase
// client.
func NewSupabaseService(c *client.Client, logger *zap.Logger) *SupabaseService {
	return &SupabaseService{
		auth:      c.Auth(),
		logger:    logger,
		listeners: make(map[int]Callback),
	}
}

// SignIn verifies credentials and caches the issued session.
func (s *SupabaseService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess := sessionFromResponse(resp)
	if sess == nil {
		return nil, fmt.Errorf("sign in returned no session")
	}

	s.setSession(sess, EventSignedIn)
	return sess, nil
}

// SignUp registers a new user. When the backend requires email
// confirmation it returns a user without tokens; the session is nil
// then and no event fires.
func (s *SupabaseService) SignUp(ctx context.Context, email, password string, profileAttrs map[string]any) (*Session, error) {
	resp, err := s.auth.SignUp(ctx, email, password, profileAttrs)
	if err != nil {
		return nil, err
	}

	sess := sessionFromResponse(resp)
	if sess == nil {
		return nil, nil
	}

	s.setSession(sess, EventSignedIn)
	return sess, nil
}

// SignOut revokes the session remotely and clears it locally. The local
// clear and the SIGNED_OUT event happen regardless of the remote
// outcome; the user's intent to leave is always honored.
func (s *SupabaseService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	var remoteErr error
	if sess != nil {
		remoteErr = s.auth.SignOut(ctx, sess.AccessToken)
		if remoteErr != nil {
			s.logger.Warn("remote sign-out failed, clearing local session anyway", zap.Error(remoteErr))
		}
	}

	s.setSession(nil, EventSignedOut)
	return remoteErr
}

// CurrentSession returns the cached session or nil.
func (s *SupabaseService) CurrentSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

// OnSessionChange registers a callback. Events are delivered
// synchronously in registration order.
func (s *SupabaseService) OnSessionChange(cb Callback) Unsubscribe {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close stops the refresh loop and drops all listeners.
func (s *SupabaseService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
	s.listeners = make(map[int]Callback)
}

// setSession swaps the cached session, reschedules refresh, and emits
// the event. Callbacks run outside the lock so they may read
// CurrentSession.
func (s *SupabaseService) setSession(sess *Session, event string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = sess
	s.scheduleRefreshLocked(sess)
	// map order is random; deliver in registration order
	cbs := make([]Callback, 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if cb, ok := s.listeners[i]; ok {
			cbs = append(cbs, cb)
		}
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(event, sess)
	}
}

func (s *SupabaseService) scheduleRefreshLocked(sess *Session) {
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
	if sess == nil || sess.RefreshToken == "" || sess.ExpiresAt.IsZero() {
		return
	}

	wait := time.Until(sess.ExpiresAt) - refreshMargin
	if wait < 0 {
		wait = 0
	}
	s.refreshTimer = time.AfterFunc(wait, s.refresh)
}

// refresh exchanges the refresh token for a new session. A transient
// failure retries on a short fuse; a definitive rejection signs out.
func (s *SupabaseService) refresh() {
	s.mu.Lock()
	sess := s.session
	closed := s.closed
	s.mu.Unlock()

	if closed || sess == nil || sess.RefreshToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := s.auth.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed", zap.Error(err))
		s.mu.Lock()
		if !s.closed && s.session == sess {
			s.refreshTimer = time.AfterFunc(10*time.Second, s.refresh)
		}
		s.mu.Unlock()
		return
	}

	next := sessionFromResponse(resp)
	if next == nil {
		s.logger.Warn("token refresh returned no session, signing out")
		s.setSession(nil, EventSignedOut)
		return
	}

	s.setSession(next, EventTokenRefreshed)
}

func sessionFromResponse(resp *client.AuthResponse) *Session {
	if resp == nil || resp.AccessToken == "" {
		return nil
	}

	sess := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.Expiry(time.Now()),
	}
	if resp.User != nil {
		sess.UserID = resp.User.ID
		sess.Email = resp.User.Email
	}
	return sess
}
