// Package draft implements the per-user draft repository (table
// active_drafts, unique on user_id). Listing data and the vision snapshot
// are JSONB; images are a text array.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides draft persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new draft repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const draftColumns = `user_id, state, listing_data, images, vision_product, created_at, updated_at`

const getSQL = `
SELECT ` + draftColumns + `
FROM active_drafts
WHERE user_id = $1`

const upsertSQL = `
INSERT INTO active_drafts (user_id, state, listing_data, images, vision_product, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (user_id) DO UPDATE
SET state = EXCLUDED.state,
    listing_data = EXCLUDED.listing_data,
    images = EXCLUDED.images,
    vision_product = EXCLUDED.vision_product,
    updated_at = EXCLUDED.updated_at
RETURNING ` + draftColumns

const deleteSQL = `
DELETE FROM active_drafts
WHERE user_id = $1`

// Get returns the user's draft.
// Returns domain.ErrNotFound if the user has none.
func (r *Repo) Get(ctx context.Context, userID uuid.UUID) (*domain.Draft, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	d, err := scanDraft(querier.QueryRow(ctx, getSQL, userID))
	if err != nil {
		return nil, postgres.MapError(err, "draft", userID.String())
	}
	return d, nil
}

// Upsert inserts or replaces the user's draft. The unique constraint on
// user_id makes this the one-draft-per-user invariant.
func (r *Repo) Upsert(ctx context.Context, d *domain.Draft) (*domain.Draft, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	data, err := json.Marshal(d.Listing)
	if err != nil {
		return nil, fmt.Errorf("marshal listing data: %w", err)
	}

	now := d.UpdatedAt.UTC().Truncate(time.Microsecond)

	images := d.Images
	if images == nil {
		images = []string{} // images is NOT NULL; nil would encode as NULL
	}

	out, err := scanDraft(querier.QueryRow(ctx, upsertSQL,
		d.UserID,
		string(d.State),
		data,
		images,
		d.VisionProduct,
		now,
	))
	if err != nil {
		return nil, postgres.MapError(err, "draft", d.UserID.String())
	}
	return out, nil
}

// Delete removes the user's draft. Deleting a missing draft is a no-op.
func (r *Repo) Delete(ctx context.Context, userID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, deleteSQL, userID); err != nil {
		return postgres.MapError(err, "draft", userID.String())
	}
	return nil
}

func scanDraft(row pgx.Row) (*domain.Draft, error) {
	var d domain.Draft
	var state string
	var data []byte
	if err := row.Scan(
		&d.UserID,
		&state,
		&data,
		&d.Images,
		&d.VisionProduct,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.State = domain.DraftState(state)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d.Listing); err != nil {
			return nil, fmt.Errorf("unmarshal listing data: %w", err)
		}
	}
	return &d, nil
}
