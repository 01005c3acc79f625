// Package security implements the PinRecord repository (table user_security)
// and the append-only PIN attempt audit (table pin_verification_attempts).
package security

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides PIN credential persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new security repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const pinColumns = `user_id, phone, pin_hash, failed_attempts, is_locked, blocked_until, last_login, created_at, updated_at`

const getByPhoneSQL = `
SELECT ` + pinColumns + `
FROM user_security
WHERE phone = $1`

const deleteOrphansSQL = `
DELETE FROM user_security
WHERE phone = $1 AND user_id <> $2`

const upsertPinSQL = `
INSERT INTO user_security (user_id, phone, pin_hash, failed_attempts, is_locked, blocked_until, created_at, updated_at)
VALUES ($1, $2, $3, 0, FALSE, NULL, $4, $4)
ON CONFLICT (user_id) DO UPDATE
SET phone = EXCLUDED.phone,
    pin_hash = EXCLUDED.pin_hash,
    failed_attempts = 0,
    is_locked = FALSE,
    blocked_until = NULL,
    updated_at = EXCLUDED.updated_at
RETURNING ` + pinColumns

const setAttemptsSQL = `
UPDATE user_security
SET failed_attempts = $2,
    is_locked = $3,
    blocked_until = $4,
    updated_at = $5
WHERE phone = $1`

const markSuccessSQL = `
UPDATE user_security
SET failed_attempts = 0,
    is_locked = FALSE,
    blocked_until = NULL,
    last_login = $2,
    updated_at = $2
WHERE phone = $1`

const insertAttemptSQL = `
INSERT INTO pin_verification_attempts (id, phone, attempted_at, success, source)
VALUES ($1, $2, $3, $4, $5)`

// GetByPhone returns the PIN record for a phone.
// Returns domain.ErrNotFound if the phone has no registered PIN.
func (r *Repo) GetByPhone(ctx context.Context, phone string) (*domain.PinRecord, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rec, err := scanPin(querier.QueryRow(ctx, getByPhoneSQL, phone))
	if err != nil {
		return nil, postgres.MapError(err, "pin", phone)
	}
	return rec, nil
}

// Upsert stores (or replaces) a user's PIN hash and resets all counters.
// Rows left behind by a previous owner of the same phone are removed first,
// so the unique index on phone cannot trip on a stale record. Run inside a
// transaction for the multi-row effect.
func (r *Repo) Upsert(ctx context.Context, userID uuid.UUID, phone, pinHash string, now time.Time) (*domain.PinRecord, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteOrphansSQL, phone, userID); err != nil {
		return nil, postgres.MapError(err, "pin", phone)
	}

	now = now.UTC().Truncate(time.Microsecond)
	rec, err := scanPin(querier.QueryRow(ctx, upsertPinSQL, userID, phone, pinHash, now))
	if err != nil {
		return nil, postgres.MapError(err, "pin", phone)
	}
	return rec, nil
}

// SetAttempts persists the failed-attempt counter and lock state for a phone.
func (r *Repo) SetAttempts(ctx context.Context, phone string, attempts int, locked bool, blockedUntil *time.Time, now time.Time) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, setAttemptsSQL, phone, attempts, locked, blockedUntil, now.UTC().Truncate(time.Microsecond))
	if err != nil {
		return postgres.MapError(err, "pin", phone)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "pin", phone)
	}
	return nil
}

// MarkSuccess resets counters and records the login time after a verified PIN.
func (r *Repo) MarkSuccess(ctx context.Context, phone string, now time.Time) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, markSuccessSQL, phone, now.UTC().Truncate(time.Microsecond))
	if err != nil {
		return postgres.MapError(err, "pin", phone)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "pin", phone)
	}
	return nil
}

// InsertAttempt appends one audit row. Attempts are write-only from the
// gateway's point of view; admin tooling reads them.
func (r *Repo) InsertAttempt(ctx context.Context, attempt domain.PinAttempt) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	id := attempt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := attempt.AttemptedAt.UTC().Truncate(time.Microsecond)

	if _, err := querier.Exec(ctx, insertAttemptSQL, id, attempt.Phone, at, attempt.Success, attempt.Source); err != nil {
		return postgres.MapError(err, "pin_attempt", attempt.Phone)
	}
	return nil
}

func scanPin(row pgx.Row) (*domain.PinRecord, error) {
	var rec domain.PinRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.Phone,
		&rec.PinHash,
		&rec.FailedAttempts,
		&rec.IsLocked,
		&rec.BlockedUntil,
		&rec.LastLogin,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
