package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// memSessions is an in-memory user_sessions table enforcing the
// one-active-per-phone partial unique index.
type memSessions struct {
	rows map[uuid.UUID]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{rows: make(map[uuid.UUID]*domain.Session)}
}

func (m *memSessions) GetActiveByPhone(_ context.Context, phone string) (*domain.Session, error) {
	for _, s := range m.rows {
		if s.Phone == phone && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessions) Insert(_ context.Context, s *domain.Session) (*domain.Session, error) {
	for _, existing := range m.rows {
		if existing.Phone == s.Phone && existing.IsActive {
			return nil, domain.ErrAlreadyExists
		}
	}
	cp := *s
	cp.IsActive = true
	cp.LastActivity = cp.CreatedAt
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memSessions) Touch(_ context.Context, id uuid.UUID, now time.Time) error {
	if s, ok := m.rows[id]; ok && s.IsActive {
		s.LastActivity = now
	}
	return nil
}

func (m *memSessions) End(_ context.Context, id uuid.UUID, reason domain.EndReason, now time.Time) error {
	s, ok := m.rows[id]
	if !ok || !s.IsActive {
		return nil
	}
	s.IsActive = false
	s.EndedAt = &now
	r := reason
	s.EndReason = &r
	return nil
}

func (m *memSessions) EndActiveByPhone(ctx context.Context, phone string, reason domain.EndReason, now time.Time) (int64, error) {
	var n int64
	for id, s := range m.rows {
		if s.Phone == phone && s.IsActive {
			if err := m.End(ctx, id, reason, now); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (m *memSessions) TimeoutExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	for id, s := range m.rows {
		if s.IsActive && !s.ExpiresAt.After(now) {
			if err := m.End(ctx, id, domain.EndReasonTimeout, now); err != nil {
				return userIDs, err
			}
			userIDs = append(userIDs, s.UserID)
		}
	}
	return userIDs, nil
}

// memDraftStore records which users had their drafts deleted.
type memDraftStore struct {
	byUser map[uuid.UUID]bool
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{byUser: make(map[uuid.UUID]bool)}
}

func (m *memDraftStore) put(userID uuid.UUID) { m.byUser[userID] = true }

func (m *memDraftStore) Delete(_ context.Context, userID uuid.UUID) error {
	delete(m.byUser, userID)
	return nil
}

type txMock struct{}

func (txMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const testPhone = "+905551234567"

func newTestManager(repo *memSessions, drafts *memDraftStore, clock clockwork.Clock) *Manager {
	return NewManager(slog.Default(), repo, drafts, txMock{}, clock, config.SessionConfig{TTLSeconds: 600})
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestManager_OpenThenCurrent(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, newMemDraftStore(), clock)
	ctx := context.Background()
	userID := uuid.New()

	opened, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Token == "" {
		t.Error("opened session must carry a token")
	}
	if want := clock.Now().Add(10 * time.Minute); !opened.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", opened.ExpiresAt, want)
	}

	current, err := m.Current(ctx, testPhone)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current == nil || current.ID != opened.ID {
		t.Errorf("Current should return the opened session")
	}
}

func TestManager_Current_LazyTimeout(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	drafts := newMemDraftStore()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, drafts, clock)
	ctx := context.Background()
	userID := uuid.New()

	opened, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	drafts.put(userID)

	clock.Advance(11 * time.Minute)

	current, err := m.Current(ctx, testPhone)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != nil {
		t.Fatal("expired session should not be returned")
	}

	row := repo.rows[opened.ID]
	if row.IsActive {
		t.Error("expired session should be inactive after lazy timeout")
	}
	if row.EndReason == nil || *row.EndReason != domain.EndReasonTimeout {
		t.Errorf("EndReason = %v, want timeout", row.EndReason)
	}
	if row.EndedAt == nil {
		t.Error("EndedAt must be set on any inactive session")
	}
	if drafts.byUser[userID] {
		t.Error("lazy timeout must silently cancel the user's draft")
	}
}

func TestManager_Open_EndsPriorSessionAndDraft(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	drafts := newMemDraftStore()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, drafts, clock)
	ctx := context.Background()
	userID := uuid.New()

	first, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	drafts.put(userID)

	second, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}

	// Exactly one active row per phone, and the prior one carries manual.
	active := 0
	for _, s := range repo.rows {
		if s.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active sessions = %d, want 1", active)
	}
	firstRow := repo.rows[first.ID]
	if firstRow.IsActive || firstRow.EndReason == nil || *firstRow.EndReason != domain.EndReasonManual {
		t.Errorf("prior session = %+v, want ended with manual", firstRow)
	}
	if second.ID == first.ID {
		t.Error("second open must create a fresh session")
	}
	// Ending the prior session takes its draft with it.
	if drafts.byUser[userID] {
		t.Error("re-login must cancel the draft left by the prior session")
	}
}

func TestManager_Open_FreshLoginKeepsNoDraftCleanup(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	drafts := newMemDraftStore()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, drafts, clock)
	userID := uuid.New()
	drafts.put(userID)

	// No prior session: nothing ended, so no draft cleanup either.
	if _, err := m.Open(context.Background(), userID, testPhone); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !drafts.byUser[userID] {
		t.Error("open without a prior session must not touch drafts")
	}
}

func TestManager_Touch_DoesNotExtendExpiry(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, newMemDraftStore(), clock)
	ctx := context.Background()

	opened, err := m.Open(ctx, uuid.New(), testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	expiry := opened.ExpiresAt

	clock.Advance(5 * time.Minute)
	if err := m.Touch(ctx, opened.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	row := repo.rows[opened.ID]
	if !row.ExpiresAt.Equal(expiry) {
		t.Errorf("Touch moved ExpiresAt: %v -> %v", expiry, row.ExpiresAt)
	}
	if !row.LastActivity.Equal(clock.Now()) {
		t.Errorf("LastActivity = %v, want %v", row.LastActivity, clock.Now())
	}
}

func TestManager_End_Idempotent(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, newMemDraftStore(), clock)
	ctx := context.Background()

	opened, err := m.Open(ctx, uuid.New(), testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := m.End(ctx, opened.ID, domain.EndReasonUserCancelled); err != nil {
		t.Fatalf("End: %v", err)
	}
	row := *repo.rows[opened.ID]

	clock.Advance(time.Minute)
	if err := m.End(ctx, opened.ID, domain.EndReasonUserCancelled); err != nil {
		t.Fatalf("second End: %v", err)
	}

	after := *repo.rows[opened.ID]
	if !after.EndedAt.Equal(*row.EndedAt) || *after.EndReason != *row.EndReason {
		t.Error("second End must not change the row")
	}
}

func TestManager_EndForUser_CancelsDraft(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	drafts := newMemDraftStore()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, drafts, clock)
	ctx := context.Background()
	userID := uuid.New()

	opened, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	drafts.put(userID)

	if err := m.EndForUser(ctx, opened.ID, userID, domain.EndReasonOperationCompleted); err != nil {
		t.Fatalf("EndForUser: %v", err)
	}

	row := repo.rows[opened.ID]
	if row.IsActive || *row.EndReason != domain.EndReasonOperationCompleted {
		t.Errorf("row = %+v, want completed", row)
	}
	if drafts.byUser[userID] {
		t.Error("EndForUser must cancel the owner's draft")
	}
}

func TestManager_SweepExpired_CancelsDrafts(t *testing.T) {
	t.Parallel()

	repo := newMemSessions()
	drafts := newMemDraftStore()
	clock := clockwork.NewFakeClock()
	m := newTestManager(repo, drafts, clock)
	ctx := context.Background()
	userID := uuid.New()

	opened, err := m.Open(ctx, userID, testPhone)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	drafts.put(userID)

	clock.Advance(11 * time.Minute)

	n, err := m.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}
	row := repo.rows[opened.ID]
	if row.IsActive || row.EndReason == nil || *row.EndReason != domain.EndReasonTimeout {
		t.Errorf("row = %+v, want timed out", row)
	}
	if drafts.byUser[userID] {
		t.Error("sweep must cancel drafts of swept sessions")
	}
}
