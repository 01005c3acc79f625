// Package session manages timed phone-scoped sessions. One phone holds at
// most one live session; expiry is absolute from creation so the user can
// predict when re-authentication is due. Ending a session — by timeout,
// cancel, completion, or re-login — silently cancels any draft its owner
// left behind.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// sessionRepo defines the session repository interface needed by the manager.
type sessionRepo interface {
	GetActiveByPhone(ctx context.Context, phone string) (*domain.Session, error)
	Insert(ctx context.Context, s *domain.Session) (*domain.Session, error)
	Touch(ctx context.Context, id uuid.UUID, now time.Time) error
	End(ctx context.Context, id uuid.UUID, reason domain.EndReason, now time.Time) error
	EndActiveByPhone(ctx context.Context, phone string, reason domain.EndReason, now time.Time) (int64, error)
	TimeoutExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// draftStore is the slice of the draft repository the manager needs so a
// session end deletes the owner's draft, without pulling in the FSM.
type draftStore interface {
	Delete(ctx context.Context, userID uuid.UUID) error
}

// txManager defines the transaction manager interface needed by the manager.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager implements the session lifecycle.
type Manager struct {
	log      *slog.Logger
	sessions sessionRepo
	drafts   draftStore
	tx       txManager
	clock    clockwork.Clock
	ttl      time.Duration
}

// NewManager creates a new session manager.
func NewManager(logger *slog.Logger, sessions sessionRepo, drafts draftStore, tx txManager, clock clockwork.Clock, cfg config.SessionConfig) *Manager {
	return &Manager{
		log:      logger.With("service", "session"),
		sessions: sessions,
		drafts:   drafts,
		tx:       tx,
		clock:    clock,
		ttl:      cfg.TTL(),
	}
}

// Current returns the live session for phone, or nil if none. An active but
// expired row is lazily transitioned to end_reason=timeout — and its
// owner's draft cancelled — before nil is returned, so callers never
// observe a stale "active" session.
func (m *Manager) Current(ctx context.Context, phone string) (*domain.Session, error) {
	now := m.clock.Now()

	s, err := postgres.RetryRead(ctx, func(ctx context.Context) (*domain.Session, error) {
		return m.sessions.GetActiveByPhone(ctx, phone)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session.Current get: %w", err)
	}

	if s.ExpiresAt.After(now) {
		return s, nil
	}

	// Lazy timeout.
	if err := m.sessions.End(ctx, s.ID, domain.EndReasonTimeout, now); err != nil {
		return nil, fmt.Errorf("session.Current lazy timeout: %w", err)
	}
	m.cancelDraft(ctx, s.UserID)
	m.log.InfoContext(ctx, "session timed out lazily",
		slog.String("session_id", s.ID.String()),
	)
	return nil, nil
}

// Open creates a fresh session for the user. Any prior active session on the
// phone is ended with reason=manual inside the same transaction — and that
// user's draft cancelled — so exactly one row is active when the
// transaction commits. A concurrent Open losing the race against the
// partial unique index retries once.
func (m *Manager) Open(ctx context.Context, userID uuid.UUID, phone string) (*domain.Session, error) {
	for attempt := 0; ; attempt++ {
		s, err := m.open(ctx, userID, phone)
		if err == nil {
			m.log.InfoContext(ctx, "session opened",
				slog.String("session_id", s.ID.String()),
				slog.String("user_id", userID.String()),
			)
			return s, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) && attempt == 0 {
			// Another turn opened a session between our invalidation and
			// insert. Invalidate again and retry once.
			continue
		}
		return nil, err
	}
}

func (m *Manager) open(ctx context.Context, userID uuid.UUID, phone string) (*domain.Session, error) {
	now := m.clock.Now()

	fresh := &domain.Session{
		ID:          uuid.New(),
		UserID:      userID,
		Phone:       phone,
		Token:       uuid.New().String(),
		SessionType: domain.SessionTypeTimed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}

	var created *domain.Session
	var endedPrior int64
	err := m.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		endedPrior, err = m.sessions.EndActiveByPhone(ctx, phone, domain.EndReasonManual, now)
		if err != nil {
			return err
		}
		created, err = m.sessions.Insert(ctx, fresh)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}

	// The prior session ended, so its draft goes with it.
	if endedPrior > 0 {
		m.cancelDraft(ctx, userID)
	}
	return created, nil
}

// Touch records activity on a session. It never extends expires_at.
func (m *Manager) Touch(ctx context.Context, id uuid.UUID) error {
	if err := m.sessions.Touch(ctx, id, m.clock.Now()); err != nil {
		return fmt.Errorf("session.Touch: %w", err)
	}
	return nil
}

// End terminates a session with the given reason. Idempotent. Callers that
// know the session's owner use EndForUser so the draft is cancelled too.
func (m *Manager) End(ctx context.Context, id uuid.UUID, reason domain.EndReason) error {
	if err := m.sessions.End(ctx, id, reason, m.clock.Now()); err != nil {
		return fmt.Errorf("session.End: %w", err)
	}
	m.log.InfoContext(ctx, "session ended",
		slog.String("session_id", id.String()),
		slog.String("reason", reason.String()),
	)
	return nil
}

// EndForUser terminates a session and silently cancels the owner's draft.
func (m *Manager) EndForUser(ctx context.Context, id, userID uuid.UUID, reason domain.EndReason) error {
	if err := m.End(ctx, id, reason); err != nil {
		return err
	}
	m.cancelDraft(ctx, userID)
	return nil
}

// SweepExpired times out every expired session and cancels the drafts
// their owners left behind. Returns how many sessions were closed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	userIDs, err := m.sessions.TimeoutExpired(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("session.SweepExpired: %w", err)
	}
	for _, userID := range userIDs {
		m.cancelDraft(ctx, userID)
	}
	return len(userIDs), nil
}

// cancelDraft silently removes the user's draft after their session ended.
// Best effort: the session transition stands even if the delete fails.
func (m *Manager) cancelDraft(ctx context.Context, userID uuid.UUID) {
	if err := m.drafts.Delete(ctx, userID); err != nil {
		m.log.WarnContext(ctx, "draft cleanup after session end failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }
