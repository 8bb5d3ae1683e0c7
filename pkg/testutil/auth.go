package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trademart/storefront/internal/auth"
)

// MockAuthService is an in-memory auth.Service. Events are emitted
// synchronously to listeners in registration order, matching the real
// client's delivery.
type MockAuthService struct {
	mu           sync.Mutex
	users        map[string]mockUser // keyed by email
	session      *auth.Session
	listeners    map[int]auth.Callback
	nextListener int

	// RequireConfirmation makes SignUp succeed without issuing a
	// session, as a project with email confirmation enabled would.
	RequireConfirmation bool

	// SignOutErr is returned by SignOut; the local session is still
	// cleared and SIGNED_OUT still emitted.
	SignOutErr error
}

type mockUser struct {
	id       string
	password string
	metadata map[string]any
}

// NewMockAuthService creates an empty mock auth service.
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		users:     make(map[string]mockUser),
		listeners: make(map[int]auth.Callback),
	}
}

// AddUser registers a user and returns its generated id.
func (m *MockAuthService) AddUser(email, password string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.users[email] = mockUser{id: id, password: password}
	return id
}

// SeedSession installs a session without emitting any event, as a
// persisted session restored before the app starts would be.
func (m *MockAuthService) SeedSession(sess *auth.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = sess
}

// SignIn verifies credentials and emits SIGNED_IN.
func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	m.mu.Lock()
	user, ok := m.users[email]
	if !ok || user.password != password {
		m.mu.Unlock()
		return nil, errors.New("Invalid login credentials")
	}
	sess := m.newSession(user.id, email)
	m.session = sess
	m.mu.Unlock()

	m.Emit(auth.EventSignedIn, sess)
	return sess, nil
}

// SignUp registers a user. With RequireConfirmation set it returns a
// nil session and emits nothing.
func (m *MockAuthService) SignUp(ctx context.Context, email, password string, profileAttrs map[string]any) (*auth.Session, error) {
	m.mu.Lock()
	if _, ok := m.users[email]; ok {
		m.mu.Unlock()
		return nil, errors.New("User already registered")
	}
	user := mockUser{id: uuid.NewString(), password: password, metadata: profileAttrs}
	m.users[email] = user

	if m.RequireConfirmation {
		m.mu.Unlock()
		return nil, nil
	}

	sess := m.newSession(user.id, email)
	m.session = sess
	m.mu.Unlock()

	m.Emit(auth.EventSignedIn, sess)
	return sess, nil
}

// SignOut clears the session and emits SIGNED_OUT even when SignOutErr
// is set.
func (m *MockAuthService) SignOut(ctx context.Context) error {
	m.mu.Lock()
	err := m.SignOutErr
	m.session = nil
	m.mu.Unlock()

	m.Emit(auth.EventSignedOut, nil)
	return err
}

// CurrentSession returns the cached session.
func (m *MockAuthService) CurrentSession(ctx context.Context) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

// OnSessionChange registers a callback.
func (m *MockAuthService) OnSessionChange(cb auth.Callback) auth.Unsubscribe {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Emit delivers an event to every listener in registration order. Tests
// use it directly to simulate server-driven changes such as a token
// refresh or a revocation from another tab.
func (m *MockAuthService) Emit(event string, sess *auth.Session) {
	m.mu.Lock()
	cbs := make([]auth.Callback, 0, len(m.listeners))
	for i := 0; i < m.nextListener; i++ {
		if cb, ok := m.listeners[i]; ok {
			cbs = append(cbs, cb)
		}
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(event, sess)
	}
}

func (m *MockAuthService) newSession(userID, email string) *auth.Session {
	return &auth.Session{
		AccessToken:  fmt.Sprintf("token-%s", uuid.NewString()),
		RefreshToken: fmt.Sprintf("refresh-%s", uuid.NewString()),
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       userID,
		Email:        email,
	}
}

var _ auth.Service = (*MockAuthService)(nil)
