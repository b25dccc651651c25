package elevation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kioskops/kioskctl/internal/logger"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// flightKey is the single slot all elevation requests collapse into.
const flightKey = "elevation"

// ManagerOptions tunes a Manager. Zero values fall back to defaults.
type ManagerOptions struct {
	TTL time.Duration
	Log *logger.Logger
	Now func() time.Time
}

// Manager owns the process-wide elevation session. Concurrent Ensure calls
// share one in-flight broker request: the first caller performs it and
// every waiter observes the same outcome.
type Manager struct {
	broker Broker
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	session *Session
}

// NewManager builds a Manager around broker.
func NewManager(broker Broker, opts ManagerOptions) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		broker: broker,
		ttl:    ttl,
		log:    opts.Log,
		now:    now,
	}
}

// Ensure returns the active session, requesting elevation through the
// broker when none exists. A refusal comes back as ElevationDeclinedError.
// The request credential is wiped before Ensure returns, granted or not.
func (m *Manager) Ensure(ctx context.Context, req Request) (*Session, error) {
	defer wipe(req.Credential)

	if s := m.Active(); s != nil {
		return s, nil
	}

	v, err, _ := m.group.Do(flightKey, func() (any, error) {
		// A waiter that lost the race to a just-finished flight lands
		// here; reuse the fresh session instead of prompting again.
		if s := m.Active(); s != nil {
			return s, nil
		}

		m.log.WithFields(map[string]any{"method": string(req.Method)}).Info("requesting elevation")

		grant, err := m.broker.RequestElevation(ctx, req)
		if err != nil {
			return nil, err
		}
		if !grant.Granted {
			m.log.WithFields(map[string]any{"reason": grant.Reason}).Warn("elevation declined")
			return nil, kioskerrors.NewElevationDeclinedError(string(req.Method), grant.Reason)
		}

		now := m.now()
		session := &Session{
			Method:    req.Method,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}

		m.mu.Lock()
		m.session = session
		m.mu.Unlock()

		m.log.WithFields(map[string]any{
			"method":  string(req.Method),
			"expires": session.ExpiresAt.Format(time.RFC3339),
		}).Info("elevation session established")

		return session, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Active returns the current session, or nil when none is valid. An
// expired session is dropped on sight.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	if !m.session.Active(m.now()) {
		m.session = nil
		return nil
	}
	return m.session
}

// Invalidate revokes the current session, if any.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.log.Info("elevation session revoked")
	}
	m.session = nil
}

// ShouldWarn reports whether the session is close to expiry. The warning
// fires once per session.
func (m *Manager) ShouldWarn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.WarningIssued {
		return false
	}
	if !m.session.expiringSoon(m.now()) {
		return false
	}
	m.session.WarningIssued = true
	return true
}
