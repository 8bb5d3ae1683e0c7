// Package session owns the client-side authentication lifecycle. The
// Manager is the single source of truth for "is someone logged in" and
// "who are they", reconciling two asynchronous inputs: the auth
// service's session-change events and a one-time startup session check.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/auth"
	"github.com/trademart/storefront/internal/store"
)

// Profile is the user's profile row, keyed by the session's user id. It
// exists only while a session exists and is populated asynchronously
// after sign-in, so a signed-in user can briefly have a nil profile.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is a consistent read of the manager's state. Authentication
// is decided by session presence alone, never by the profile.
type Snapshot struct {
	Session         *auth.Session
	User            *Profile
	IsAuthenticated bool
	IsLoading       bool
}

// Result is the outcome of login and register calls. These surface
// failures as values; they never return an error to the caller.
type Result struct {
	Success bool
	Message string
}

// Listener receives a snapshot after every state change.
type Listener func(Snapshot)

// ErrNotAuthenticated is returned by helpers that require a signed-in
// user.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager coordinates the authentication state machine.
type Manager struct {
	authSvc auth.Service
	store   store.Store
	logger  *zap.Logger

	mu            sync.RWMutex
	session       *auth.Session
	user          *Profile
	authenticated bool
	loading       bool
	unsubscribe   auth.Unsubscribe
	listeners     map[int]Listener
	nextListener  int
}

// NewManager creates a session manager. It starts in the loading state;
// call Start to subscribe to session changes and run the startup check.
func NewManager(authSvc auth.Service, st store.Store, logger *zap.Logger) *Manager {
	return &Manager{
		authSvc:   authSvc,
		store:     st,
		logger:    logger,
		loading:   true,
		listeners: make(map[int]Listener),
	}
}

// Start subscribes to session-change events first, then checks for an
// existing session. The loading flag drops once the startup check has
// resolved, found session or not, and never rises again for startup.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.unsubscribe = m.authSvc.OnSessionChange(m.handleSessionChange)
	m.mu.Unlock()

	initial, err := m.authSvc.CurrentSession(ctx)
	if err != nil {
		m.logger.Error("startup session check failed", zap.Error(err))
	}
	if initial != nil {
		m.mu.Lock()
		m.session = initial
		m.authenticated = true
		m.mu.Unlock()
		// Startup rehydration waits for the profile so the first
		// render after loading has a complete identity when one is
		// available. A fetch failure leaves the user signed in with a
		// nil profile.
		m.fetchProfile(ctx, initial)
	}

	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	m.notify()
}

// Close detaches the session-change subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// handleSessionChange reconciles a session-change event. A null session
// clears everything synchronously. A non-null session flips the
// authenticated flag synchronously but defers the profile fetch to a
// detached goroutine, so this handler returns before any further auth
// work can re-enter the subscription path.
func (m *Manager) handleSessionChange(event string, sess *auth.Session) {
	if sess == nil {
		m.mu.Lock()
		m.session = nil
		m.user = nil
		m.authenticated = false
		m.mu.Unlock()
		m.notify()
		return
	}

	m.mu.Lock()
	m.session = sess
	m.authenticated = true
	m.mu.Unlock()
	m.notify()

	go m.fetchProfile(context.Background(), sess)
}

// fetchProfile looks up the profile row for the session's user. A
// failure is logged and swallowed: a transient read must never log the
// user out.
func (m *Manager) fetchProfile(ctx context.Context, sess *auth.Session) {
	if sess.UserID == "" {
		return
	}

	var profile Profile
	err := m.store.SelectSingle(store.WithAccessToken(ctx, sess.AccessToken), store.CollectionProfiles, store.Query{
		Columns: "id, name, email",
		Filters: []store.Filter{store.Eq("id", sess.UserID)},
	}, &profile)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("profile fetch failed", zap.String("user_id", sess.UserID), zap.Error(err))
		}
		return
	}

	m.mu.Lock()
	// A sign-out may have raced the fetch; a stale profile must not
	// resurrect a cleared session.
	if m.session == nil || m.session.UserID != profile.ID {
		m.mu.Unlock()
		return
	}
	m.user = &profile
	m.mu.Unlock()
	m.notify()
}

// Login signs in with email and password. Failures come back as a
// Result, never an error.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	m.setLoading(true)
	defer m.setLoading(false)

	if _, err := m.authSvc.SignIn(ctx, email, password); err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true, Message: "Login successful!"}
}

// Register signs up a new user with the display name attached as
// profile metadata. The account may need email confirmation before the
// session becomes usable; the message says so.
func (m *Manager) Register(ctx context.Context, name, email, password string) Result {
	m.setLoading(true)
	defer m.setLoading(false)

	_, err := m.authSvc.SignUp(ctx, email, password, map[string]any{"name": name})
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true, Message: "Registration successful! Please check your email for confirmation."}
}

// Logout signs out remotely and clears local state regardless of the
// remote outcome.
func (m *Manager) Logout(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.authSvc.SignOut(ctx); err != nil {
		m.logger.Warn("logout call failed", zap.Error(err))
	}

	m.mu.Lock()
	m.session = nil
	m.user = nil
	m.authenticated = false
	m.mu.Unlock()
	m.notify()
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Session:         m.session,
		User:            m.user,
		IsAuthenticated: m.authenticated,
		IsLoading:       m.loading,
	}
}

// IsAuthenticated reports whether a session is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// CurrentUserID returns the signed-in user's id.
func (m *Manager) CurrentUserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return "", false
	}
	return m.session.UserID, true
}

// Authorize attaches the current access token to the context so store
// queries run under the user's row-level security. A signed-out context
// passes through unchanged.
func (m *Manager) Authorize(ctx context.Context) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ctx
	}
	return store.WithAccessToken(ctx, m.session.AccessToken)
}

// OnChange registers a listener called after every state change.
func (m *Manager) OnChange(fn Listener) auth.Unsubscribe {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.RLock()
	snap := Snapshot{
		Session:         m.session,
		User:            m.user,
		IsAuthenticated: m.authenticated,
		IsLoading:       m.loading,
	}
	fns := make([]Listener, 0, len(m.listeners))
	for i := 0; i < m.nextListener; i++ {
		if fn, ok := m.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
