package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/auth"
	"github.com/trademart/storefront/pkg/testutil"
)

type redirectRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (r *redirectRecorder) navigate(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
}

func (r *redirectRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Decision
	}{
		{"loading", Snapshot{IsLoading: true}, DecisionPending},
		{"loading and authenticated", Snapshot{IsLoading: true, IsAuthenticated: true}, DecisionPending},
		{"authenticated", Snapshot{IsAuthenticated: true}, DecisionAllow},
		{"anonymous", Snapshot{}, DecisionRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.snap))
		})
	}
}

func TestGuardWaitsOutLoading(t *testing.T) {
	m, _, _ := newTestManager(t)

	rec := &redirectRecorder{}
	g := NewGuard(m, "/login", rec.navigate)
	defer g.Close()

	assert.Equal(t, 0, rec.count(), "no redirect while the startup check is pending")

	m.Start(context.Background())
	assert.Equal(t, 1, rec.count(), "one redirect once loading resolves without a session")
	assert.Equal(t, "/login", rec.targets[0])
}

func TestGuardRedirectsExactlyOnce(t *testing.T) {
	m, authSvc, _ := newTestManager(t)
	authSvc.AddUser("maya@example.com", "secret")
	m.Start(context.Background())

	rec := &redirectRecorder{}
	g := NewGuard(m, "/login", rec.navigate)
	defer g.Close()

	require.Equal(t, 1, rec.count(), "already-settled anonymous state redirects on attach")

	// A failed login produces more anonymous snapshots; none of them
	// redirect again.
	m.Login(context.Background(), "maya@example.com", "wrong")
	assert.Equal(t, 1, rec.count())
}

func TestGuardRearmsAfterSignIn(t *testing.T) {
	m, authSvc, _ := newTestManager(t)
	authSvc.AddUser("maya@example.com", "secret")
	m.Start(context.Background())

	rec := &redirectRecorder{}
	g := NewGuard(m, "/login", rec.navigate)
	defer g.Close()
	require.Equal(t, 1, rec.count())

	require.True(t, m.Login(context.Background(), "maya@example.com", "secret").Success)
	assert.Equal(t, 1, rec.count(), "authenticated snapshots never redirect")

	m.Logout(context.Background())
	assert.Equal(t, 2, rec.count(), "a later sign-out redirects again")
}

func TestGuardAllowsRehydratedSession(t *testing.T) {
	authSvc := testutil.NewMockAuthService()
	userID := authSvc.AddUser("maya@example.com", "secret")
	authSvc.SeedSession(&auth.Session{AccessToken: "token-1", UserID: userID})

	m := NewManager(authSvc, testutil.NewMemoryStore(), zap.NewNop())
	defer m.Close()

	rec := &redirectRecorder{}
	g := NewGuard(m, "/login", rec.navigate)
	defer g.Close()

	m.Start(context.Background())
	assert.Equal(t, 0, rec.count(), "a rehydrated session is never bounced to sign-in")
}
