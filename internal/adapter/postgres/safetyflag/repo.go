// Package safetyflag implements the append-only image safety flag audit
// (table image_safety_flags). The gateway only inserts; review happens in
// admin tooling.
package safetyflag

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides safety flag persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new safety flag repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const flagColumns = `id, user_id, image_url, flag_type, confidence, message, status, created_at, reviewed_at, reviewer, notes`

const insertSQL = `
INSERT INTO image_safety_flags (id, user_id, image_url, flag_type, confidence, message, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + flagColumns

// Insert appends one flag row and returns the persisted record.
func (r *Repo) Insert(ctx context.Context, flag domain.ImageSafetyFlag) (*domain.ImageSafetyFlag, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	id := flag.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := flag.CreatedAt.UTC().Truncate(time.Microsecond)

	out, err := scanFlag(querier.QueryRow(ctx, insertSQL,
		id,
		flag.UserID,
		flag.ImageRef,
		string(flag.FlagType),
		string(flag.Confidence),
		flag.Message,
		string(flag.Status),
		created,
	))
	if err != nil {
		return nil, postgres.MapError(err, "safety_flag", id.String())
	}
	return out, nil
}

func scanFlag(row pgx.Row) (*domain.ImageSafetyFlag, error) {
	var f domain.ImageSafetyFlag
	var flagType, confidence, status string
	if err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.ImageRef,
		&flagType,
		&confidence,
		&f.Message,
		&status,
		&f.CreatedAt,
		&f.ReviewedAt,
		&f.Reviewer,
		&f.Notes,
	); err != nil {
		return nil, err
	}
	f.FlagType = domain.FlagType(flagType)
	f.Confidence = domain.Confidence(confidence)
	f.Status = domain.FlagStatus(status)
	return &f, nil
}
