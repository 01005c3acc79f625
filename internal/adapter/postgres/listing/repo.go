// Package listing implements the published-listing repository (table
// listings). Search uses squirrel because the filter set is dynamic;
// everything else is plain SQL like the other repositories.
package listing

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides listing persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New creates a new listing repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const listingColumns = `id, user_id, title, price, condition, category, description, location, stock, listing_type, images, created_at, updated_at`

const insertSQL = `
INSERT INTO listings (id, user_id, title, price, condition, category, description, location, stock, listing_type, images, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
RETURNING ` + listingColumns

const getByIDSQL = `
SELECT ` + listingColumns + `
FROM listings
WHERE id = $1`

const deleteSQL = `
DELETE FROM listings
WHERE id = $1 AND user_id = $2`

// Insert publishes a listing and returns the persisted row.
func (r *Repo) Insert(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	id := l.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := l.CreatedAt.UTC().Truncate(time.Microsecond)

	images := l.Images
	if images == nil {
		images = []string{} // images is NOT NULL; nil would encode as NULL
	}

	out, err := scanListing(querier.QueryRow(ctx, insertSQL,
		id,
		l.UserID,
		l.Title,
		l.Price,
		string(l.Condition),
		l.Category,
		l.Description,
		l.Location,
		l.Stock,
		string(l.Type),
		images,
		now,
	))
	if err != nil {
		return nil, postgres.MapError(err, "listing", id.String())
	}
	return out, nil
}

// GetByID returns a listing by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	l, err := scanListing(querier.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, postgres.MapError(err, "listing", id.String())
	}
	return l, nil
}

// Delete removes a listing owned by the user.
// Returns domain.ErrNotFound if the row does not exist or belongs to someone else.
func (r *Repo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, deleteSQL, id, userID)
	if err != nil {
		return postgres.MapError(err, "listing", id.String())
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "listing", id.String())
	}
	return nil
}

// Search returns listings matching the filter, newest first. Zero-valued
// filter fields add no constraint.
func (r *Repo) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	q := r.sb.Select(listingColumns).
		From("listings").
		OrderBy("created_at DESC")

	if f.UserID != nil {
		q = q.Where(sq.Eq{"user_id": *f.UserID})
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Condition != "" {
		q = q.Where(sq.Eq{"condition": string(f.Condition)})
	}
	if f.Location != "" {
		q = q.Where(sq.ILike{"location": "%" + f.Location + "%"})
	}
	if f.MinPrice > 0 {
		q = q.Where(sq.GtOrEq{"price": f.MinPrice})
	}
	if f.MaxPrice > 0 {
		q = q.Where(sq.LtOrEq{"price": f.MaxPrice})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	q = q.Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "listing", "search")
	}
	defer rows.Close()

	var out []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, postgres.MapError(err, "listing", "search")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "listing", "search")
	}
	return out, nil
}

// ListByUser returns all listings owned by a user, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Listing, error) {
	return r.Search(ctx, domain.ListingFilter{UserID: &userID, Limit: limit})
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var condition, listingType string
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.Price,
		&condition,
		&l.Category,
		&l.Description,
		&l.Location,
		&l.Stock,
		&listingType,
		&l.Images,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Condition = domain.Condition(condition)
	l.Type = domain.ListingType(listingType)
	return &l, nil
}
