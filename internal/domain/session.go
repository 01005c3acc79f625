package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a phone-scoped authentication window with an absolute expiry
// (table user_sessions). At most one session per phone may be active and
// unexpired at any time; the constraint is enforced by a partial unique
// index over (phone) WHERE is_active.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Phone        string
	Token        string
	IsActive     bool
	SessionType  SessionType
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
	EndedAt      *time.Time
	EndReason    *EndReason
}

// IsLive reports whether the session is active and unexpired at t.
func (s *Session) IsLive(t time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(t)
}

// Remaining returns how long the session has left at t (zero if expired).
func (s *Session) Remaining(t time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(t); d > 0 {
		return d
	}
	return 0
}
