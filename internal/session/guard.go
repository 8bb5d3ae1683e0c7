package session

import (
	"sync"

	"github.com/trademart/storefront/internal/auth"
)

// Decision is the route guard's verdict for a protected view.
type Decision int

const (
	// DecisionPending renders a neutral waiting state; the startup
	// session check has not resolved yet, so redirecting now would
	// flash the sign-in page at a user who is about to be rehydrated.
	DecisionPending Decision = iota
	// DecisionAllow lets navigation proceed.
	DecisionAllow
	// DecisionRedirect sends the visitor to the sign-in entry point.
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decide is the route guard: a pure function of the session manager's
// state. No redirect is ever issued while loading.
func Decide(snap Snapshot) Decision {
	if snap.IsLoading {
		return DecisionPending
	}
	if snap.IsAuthenticated {
		return DecisionAllow
	}
	return DecisionRedirect
}

// Guard watches a Manager and invokes the navigate callback exactly
// once when the loading window closes without an authenticated session.
// The trigger re-arms after a successful sign-in so a later sign-out
// redirects again.
type Guard struct {
	target   string
	navigate func(target string)
	unsub    auth.Unsubscribe

	mu         sync.Mutex
	redirected bool
}

// NewGuard attaches a guard to the manager. target is the sign-in entry
// point handed to navigate.
func NewGuard(m *Manager, target string, navigate func(target string)) *Guard {
	g := &Guard{target: target, navigate: navigate}
	g.unsub = m.OnChange(g.observe)
	// Evaluate the current state too; the manager may already be
	// settled by the time the guard attaches.
	g.observe(m.Snapshot())
	return g
}

// Close detaches the guard.
func (g *Guard) Close() {
	if g.unsub != nil {
		g.unsub()
		g.unsub = nil
	}
}

func (g *Guard) observe(snap Snapshot) {
	g.mu.Lock()
	fire := false
	switch Decide(snap) {
	case DecisionPending:
		// wait for the startup check
	case DecisionAllow:
		g.redirected = false
	case DecisionRedirect:
		if !g.redirected {
			g.redirected = true
			fire = true
		}
	}
	g.mu.Unlock()

	if fire {
		g.navigate(g.target)
	}
}
