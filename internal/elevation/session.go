// Package elevation manages administrator privilege for elevated setting
// commands: one process-wide session, acquired through a Broker, guarded so
// concurrent requests can never trigger two OS prompts.
package elevation

import "time"

// Method selects how elevation is requested.
type Method string

const (
	// MethodNative asks through the OS authorization dialog.
	MethodNative Method = "native"
	// MethodPassword validates an administrator password fed over stdin.
	MethodPassword Method = "password"
)

// IsValid reports whether m is a known method.
func (m Method) IsValid() bool {
	return m == MethodNative || m == MethodPassword
}

// DefaultTTL is how long a session stays valid after a successful grant.
const DefaultTTL = 45 * time.Minute

// warningWindow is how close to expiry the one-shot warning fires.
const warningWindow = 5 * time.Minute

// Session records one successful elevation grant. At most one session is
// active per process; a new grant replaces the old one.
type Session struct {
	Method        Method
	CreatedAt     time.Time
	ExpiresAt     time.Time
	WarningIssued bool
}

// Active reports whether the session is still valid at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Remaining returns how much validity is left at now. Expired sessions
// report zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.Active(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// expiringSoon reports whether the session is inside the warning window.
func (s *Session) expiringSoon(now time.Time) bool {
	return s.Active(now) && s.ExpiresAt.Sub(now) <= warningWindow
}
