// Package profile implements the read-only Profile repository. Profiles are
// provisioned by the auth frontend; the gateway only resolves them.
package profile

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Repo provides profile lookups backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new profile repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const profileColumns = `id, phone, full_name, role, created_at`

const getByPhoneSQL = `
SELECT ` + profileColumns + `
FROM profiles
WHERE phone = $1`

const getByIDSQL = `
SELECT ` + profileColumns + `
FROM profiles
WHERE id = $1`

// GetByPhone returns the profile owning a phone number.
// Returns domain.ErrNotFound if no profile has the phone.
func (r *Repo) GetByPhone(ctx context.Context, phone string) (*domain.Profile, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	p, err := scanProfile(querier.QueryRow(ctx, getByPhoneSQL, phone))
	if err != nil {
		return nil, postgres.MapError(err, "profile", phone)
	}
	return p, nil
}

// GetByID returns a profile by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	p, err := scanProfile(querier.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, postgres.MapError(err, "profile", id.String())
	}
	return p, nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var role string
	if err := row.Scan(&p.ID, &p.Phone, &p.DisplayName, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	return &p, nil
}
