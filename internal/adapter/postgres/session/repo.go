// Package session implements the timed-session repository (table
// user_sessions). A partial unique index over (phone) WHERE is_active
// guarantees at most one active row per phone; concurrent opens surface as
// domain.ErrAlreadyExists and are retried by the manager.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides session persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const sessionColumns = `id, user_id, phone, token, is_active, session_type, created_at, expires_at, last_activity, ended_at, end_reason`

const insertSQL = `
INSERT INTO user_sessions (id, user_id, phone, token, is_active, session_type, created_at, expires_at, last_activity)
VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $6)
RETURNING ` + sessionColumns

const getActiveByPhoneSQL = `
SELECT ` + sessionColumns + `
FROM user_sessions
WHERE phone = $1 AND is_active`

const getByTokenSQL = `
SELECT ` + sessionColumns + `
FROM user_sessions
WHERE token = $1`

const touchSQL = `
UPDATE user_sessions
SET last_activity = $2
WHERE id = $1 AND is_active`

const endSQL = `
UPDATE user_sessions
SET is_active = FALSE, ended_at = $2, end_reason = $3
WHERE id = $1 AND is_active`

const endActiveByPhoneSQL = `
UPDATE user_sessions
SET is_active = FALSE, ended_at = $2, end_reason = $3
WHERE phone = $1 AND is_active`

const timeoutExpiredSQL = `
UPDATE user_sessions
SET is_active = FALSE, ended_at = $1, end_reason = 'timeout'
WHERE is_active AND expires_at <= $1
RETURNING user_id`

// GetActiveByPhone returns the single active session row for a phone,
// expired or not — expiry policy belongs to the manager.
// Returns domain.ErrNotFound if no active row exists.
func (r *Repo) GetActiveByPhone(ctx context.Context, phone string) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	s, err := scanSession(querier.QueryRow(ctx, getActiveByPhoneSQL, phone))
	if err != nil {
		return nil, postgres.MapError(err, "session", phone)
	}
	return s, nil
}

// GetByToken returns a session by its opaque token.
func (r *Repo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	s, err := scanSession(querier.QueryRow(ctx, getByTokenSQL, token))
	if err != nil {
		return nil, postgres.MapError(err, "session", token)
	}
	return s, nil
}

// Insert creates a new active session row. The partial unique index rejects
// a second active row per phone with domain.ErrAlreadyExists.
func (r *Repo) Insert(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	created := s.CreatedAt.UTC().Truncate(time.Microsecond)
	expires := s.ExpiresAt.UTC().Truncate(time.Microsecond)

	out, err := scanSession(querier.QueryRow(ctx, insertSQL,
		s.ID,
		s.UserID,
		s.Phone,
		s.Token,
		string(s.SessionType),
		created,
		expires,
	))
	if err != nil {
		return nil, postgres.MapError(err, "session", s.Phone)
	}
	return out, nil
}

// Touch updates last_activity. It never moves expires_at: expiry is absolute
// from creation. Touching an inactive session is a no-op.
func (r *Repo) Touch(ctx context.Context, id uuid.UUID, now time.Time) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, touchSQL, id, now.UTC().Truncate(time.Microsecond)); err != nil {
		return postgres.MapError(err, "session", id.String())
	}
	return nil
}

// End transitions a session to inactive with the given reason. Idempotent:
// ending an already-ended session changes nothing.
func (r *Repo) End(ctx context.Context, id uuid.UUID, reason domain.EndReason, now time.Time) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, endSQL, id, now.UTC().Truncate(time.Microsecond), string(reason)); err != nil {
		return postgres.MapError(err, "session", id.String())
	}
	return nil
}

// EndActiveByPhone ends whatever active session the phone holds and reports
// how many rows it closed. Used inside the open transaction so invalidation
// and insert commit together.
func (r *Repo) EndActiveByPhone(ctx context.Context, phone string, reason domain.EndReason, now time.Time) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, endActiveByPhoneSQL, phone, now.UTC().Truncate(time.Microsecond), string(reason))
	if err != nil {
		return 0, postgres.MapError(err, "session", phone)
	}
	return tag.RowsAffected(), nil
}

// TimeoutExpired transitions every active-but-expired session to
// end_reason=timeout and returns the owners of the sessions it closed, so
// the caller can cancel the drafts they left behind. The sweeper calls this
// periodically; the lazy path in the manager covers individual phones.
func (r *Repo) TimeoutExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, timeoutExpiredSQL, now.UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, postgres.MapError(err, "session", "sweep")
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, postgres.MapError(err, "session", "sweep")
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "session", "sweep")
	}
	return userIDs, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var sessionType string
	var endReason *string
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Phone,
		&s.Token,
		&s.IsActive,
		&sessionType,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.LastActivity,
		&s.EndedAt,
		&endReason,
	); err != nil {
		return nil, err
	}
	s.SessionType = domain.SessionType(sessionType)
	if endReason != nil {
		r := domain.EndReason(*endReason)
		s.EndReason = &r
	}
	return &s, nil
}
