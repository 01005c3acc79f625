package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/session"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/testhelper"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// newRepo is a test helper that sets up the DB and returns a ready Repo.
func newRepo(t *testing.T) (*session.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return session.New(pool), pool
}

func freshSession(userID uuid.UUID, phone string) *domain.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Session{
		ID:          uuid.New(),
		UserID:      userID,
		Phone:       phone,
		Token:       uuid.New().String(),
		SessionType: domain.SessionTypeTimed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestRepo_Insert_HappyPath(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)

	got, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone))
	if err != nil {
		t.Fatalf("Insert: unexpected error: %v", err)
	}

	if !got.IsActive {
		t.Error("inserted session must be active")
	}
	if got.SessionType != domain.SessionTypeTimed {
		t.Errorf("SessionType = %s", got.SessionType)
	}
	if got.EndedAt != nil || got.EndReason != nil {
		t.Error("fresh session must not carry end markers")
	}
	if !got.LastActivity.Equal(got.CreatedAt) {
		t.Errorf("LastActivity = %v, want CreatedAt %v", got.LastActivity, got.CreatedAt)
	}
}

func TestRepo_Insert_SecondActivePerPhoneRejected(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)

	if _, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone)); err != nil {
		t.Fatalf("first Insert: %v", err)
	}

	// The partial unique index over (phone) WHERE is_active rejects this.
	_, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestRepo_End_ThenInsertSucceeds(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC()

	first, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.End(ctx, first.ID, domain.EndReasonManual, now); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone)); err != nil {
		t.Fatalf("Insert after End: %v", err)
	}
}

func TestRepo_End_Idempotent(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	s, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := repo.End(ctx, s.ID, domain.EndReasonUserCancelled, now); err != nil {
		t.Fatalf("End: %v", err)
	}
	after, err := repo.GetByToken(ctx, s.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}

	// Second End with a different reason must not change the row.
	if err := repo.End(ctx, s.ID, domain.EndReasonTimeout, now.Add(time.Hour)); err != nil {
		t.Fatalf("second End: %v", err)
	}
	again, err := repo.GetByToken(ctx, s.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}

	if *again.EndReason != *after.EndReason || !again.EndedAt.Equal(*after.EndedAt) {
		t.Error("second End changed the row")
	}
}

func TestRepo_Touch_DoesNotMoveExpiry(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)

	s, err := repo.Insert(ctx, freshSession(user.ID, *user.Phone))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	later := time.Now().UTC().Add(3 * time.Minute).Truncate(time.Microsecond)
	if err := repo.Touch(ctx, s.ID, later); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, err := repo.GetActiveByPhone(ctx, *user.Phone)
	if err != nil {
		t.Fatalf("GetActiveByPhone: %v", err)
	}
	if !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("ExpiresAt moved: %v -> %v", s.ExpiresAt, got.ExpiresAt)
	}
	if !got.LastActivity.Equal(later) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, later)
	}
}

func TestRepo_TimeoutExpired(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedProfile(t, pool)

	s := freshSession(user.ID, *user.Phone)
	s.ExpiresAt = s.CreatedAt.Add(-time.Minute) // already expired
	if _, err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	userIDs, err := repo.TimeoutExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("TimeoutExpired: %v", err)
	}
	found := false
	for _, id := range userIDs {
		if id == user.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("swept users %v should include %s", userIDs, user.ID)
	}

	got, err := repo.GetByToken(ctx, s.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got.IsActive || got.EndReason == nil || *got.EndReason != domain.EndReasonTimeout {
		t.Errorf("row = %+v, want timed out", got)
	}
}

func TestRepo_GetActiveByPhone_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.GetActiveByPhone(context.Background(), "+900000000000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
