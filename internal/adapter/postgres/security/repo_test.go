package security_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/security"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/testhelper"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

func newRepo(t *testing.T) (*security.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return security.New(pool), pool
}

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestRepo_Upsert_HappyPath(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC()

	got, err := repo.Upsert(ctx, user.ID, *user.Phone, testHash, now)
	if err != nil {
		t.Fatalf("Upsert: unexpected error: %v", err)
	}

	if got.UserID != user.ID || got.Phone != *user.Phone || got.PinHash != testHash {
		t.Errorf("record = %+v", got)
	}
	if got.FailedAttempts != 0 || got.IsLocked || got.BlockedUntil != nil {
		t.Error("fresh record must carry zeroed counters")
	}
}

func TestRepo_Upsert_ReplaceResetsCounters(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC()

	if _, err := repo.Upsert(ctx, user.ID, *user.Phone, testHash, now); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	blocked := now.Add(15 * time.Minute)
	if err := repo.SetAttempts(ctx, *user.Phone, 3, true, &blocked, now); err != nil {
		t.Fatalf("SetAttempts: %v", err)
	}

	const newHash = "aaaa4355a46b19d348dc2f585c3f0b8fbb797f0aaab39bf2d1e0d0c0a0b0c0d0"
	got, err := repo.Upsert(ctx, user.ID, *user.Phone, newHash, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}

	if got.PinHash != newHash {
		t.Errorf("PinHash = %q, want replacement", got.PinHash)
	}
	if got.FailedAttempts != 0 || got.IsLocked || got.BlockedUntil != nil {
		t.Error("re-register must reset counters and lock")
	}
}

func TestRepo_Upsert_RemovesOrphanRowForPhone(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	old := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC()
	if _, err := repo.Upsert(ctx, old.ID, *old.Phone, testHash, now); err != nil {
		t.Fatalf("seed old row: %v", err)
	}

	// A different profile claims the same phone; the stale row must go so
	// the unique index on phone does not trip.
	current := testhelper.SeedProfile(t, pool)
	got, err := repo.Upsert(ctx, current.ID, *old.Phone, testHash, now)
	if err != nil {
		t.Fatalf("Upsert with reclaimed phone: %v", err)
	}
	if got.UserID != current.ID {
		t.Errorf("UserID = %s, want %s", got.UserID, current.ID)
	}

	rec, err := repo.GetByPhone(ctx, *old.Phone)
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if rec.UserID != current.ID {
		t.Errorf("phone still owned by %s", rec.UserID)
	}
}

func TestRepo_SetAttempts_AndMarkSuccess(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := repo.Upsert(ctx, user.ID, *user.Phone, testHash, now); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	blocked := now.Add(15 * time.Minute)
	if err := repo.SetAttempts(ctx, *user.Phone, 3, true, &blocked, now); err != nil {
		t.Fatalf("SetAttempts: %v", err)
	}
	rec, err := repo.GetByPhone(ctx, *user.Phone)
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if rec.FailedAttempts != 3 || !rec.IsLocked || rec.BlockedUntil == nil {
		t.Errorf("record = %+v, want locked", rec)
	}

	if err := repo.MarkSuccess(ctx, *user.Phone, now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	rec, err = repo.GetByPhone(ctx, *user.Phone)
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if rec.FailedAttempts != 0 || rec.IsLocked || rec.BlockedUntil != nil {
		t.Errorf("record = %+v, want reset", rec)
	}
	if rec.LastLogin == nil {
		t.Error("LastLogin should be set")
	}
}

func TestRepo_SetAttempts_UnknownPhone(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	err := repo.SetAttempts(context.Background(), "+900000000001", 1, false, nil, time.Now().UTC())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRepo_InsertAttempt_AppendOnly(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	phone := "+905559999999"
	for _, success := range []bool{false, false, true} {
		err := repo.InsertAttempt(ctx, domain.PinAttempt{
			Phone:       phone,
			AttemptedAt: time.Now().UTC(),
			Success:     success,
			Source:      "whatsapp",
		})
		if err != nil {
			t.Fatalf("InsertAttempt: %v", err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM pin_verification_attempts WHERE phone = $1`, phone).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("attempts = %d, want 3", count)
	}
}
