package testhelper

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// phoneSeq hands out unique phone suffixes across parallel tests.
var phoneSeq atomic.Int64

// SeedProfile inserts a profile with a unique phone and returns it.
func SeedProfile(t *testing.T, pool *pgxpool.Pool) *domain.Profile {
	t.Helper()

	id := uuid.New()
	phone := fmt.Sprintf("+90555%07d", phoneSeq.Add(1))
	name := "Test User " + id.String()[:8]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx,
		`INSERT INTO profiles (id, phone, full_name, role) VALUES ($1, $2, $3, 'user')`,
		id, phone, name,
	)
	if err != nil {
		t.Fatalf("testhelper: seed profile: %v", err)
	}

	return &domain.Profile{
		ID:          id,
		Phone:       &phone,
		DisplayName: &name,
		Role:        domain.RoleUser,
	}
}
