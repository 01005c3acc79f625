// Package pinauth implements PIN-based phone authentication with
// brute-force protection. PINs are 4–6 digits, stored as hex-encoded
// SHA-256; after PIN_MAX_FAILED consecutive misses the phone locks for
// PIN_LOCK_SECONDS.
package pinauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// pinRe matches a well-formed raw PIN.
var pinRe = regexp.MustCompile(`^\d{4,6}$`)

// IsPinShaped reports whether text looks like a PIN entry. The controller
// uses this to distinguish a login attempt from a normal message.
func IsPinShaped(text string) bool {
	return pinRe.MatchString(text)
}

// pinRepo defines the security repository interface needed by the service.
type pinRepo interface {
	GetByPhone(ctx context.Context, phone string) (*domain.PinRecord, error)
	Upsert(ctx context.Context, userID uuid.UUID, phone, pinHash string, now time.Time) (*domain.PinRecord, error)
	SetAttempts(ctx context.Context, phone string, attempts int, locked bool, blockedUntil *time.Time, now time.Time) error
	MarkSuccess(ctx context.Context, phone string, now time.Time) error
	InsertAttempt(ctx context.Context, attempt domain.PinAttempt) error
}

// txManager defines the transaction manager interface needed by the service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements PIN registration and verification.
type Service struct {
	log   *slog.Logger
	pins  pinRepo
	tx    txManager
	clock clockwork.Clock
	cfg   config.PinConfig
}

// NewService creates a new pinauth service.
func NewService(logger *slog.Logger, pins pinRepo, tx txManager, clock clockwork.Clock, cfg config.PinConfig) *Service {
	return &Service{
		log:   logger.With("service", "pinauth"),
		pins:  pins,
		tx:    tx,
		clock: clock,
		cfg:   cfg,
	}
}

// Register stores (or replaces) the PIN for userID's phone. Only the owner
// may set their own PIN: callerID must equal userID. Replacing an existing
// PIN resets counters; any stale row another profile left on the same phone
// is removed in the same transaction.
func (s *Service) Register(ctx context.Context, callerID, userID uuid.UUID, phone, pinRaw string) error {
	if callerID != userID {
		return domain.ErrUnauthorized
	}
	if !pinRe.MatchString(pinRaw) {
		return domain.NewValidationError("pin", "PIN 4-6 haneli rakam olmalı")
	}
	if phone == "" {
		return domain.NewValidationError("phone", "telefon numarası gerekli")
	}

	hash := HashPin(pinRaw)
	now := s.clock.Now()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.pins.Upsert(ctx, userID, phone, hash, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("pinauth.Register upsert: %w", err)
	}

	s.log.InfoContext(ctx, "pin registered",
		slog.String("user_id", userID.String()),
		slog.String("phone", maskPhone(phone)),
	)
	return nil
}

// Verify checks pinRaw against the stored hash for phone and applies the
// brute-force policy. Every consumed attempt is recorded in the append-only
// audit; a rejected-while-locked call consumes nothing.
func (s *Service) Verify(ctx context.Context, phone, pinRaw, source string) (domain.VerifyResult, error) {
	now := s.clock.Now()

	rec, err := postgres.RetryRead(ctx, func(ctx context.Context) (*domain.PinRecord, error) {
		return s.pins.GetByPhone(ctx, phone)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.appendAttempt(ctx, phone, false, source)
			return domain.VerifyResult{Outcome: domain.VerifyNotRegistered}, nil
		}
		return domain.VerifyResult{}, fmt.Errorf("pinauth.Verify load: %w", err)
	}

	// Standing lock: report it without consuming an attempt.
	if rec.IsLocked && rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		return domain.VerifyResult{Outcome: domain.VerifyLocked, BlockedUntil: *rec.BlockedUntil}, nil
	}

	// Expired lock: clear it before evaluating this attempt.
	if rec.IsLocked {
		if err := s.pins.SetAttempts(ctx, phone, 0, false, nil, now); err != nil {
			return domain.VerifyResult{}, fmt.Errorf("pinauth.Verify clear lock: %w", err)
		}
		rec.FailedAttempts = 0
		rec.IsLocked = false
	}

	candidate := HashPin(pinRaw)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(rec.PinHash)) == 1 {
		if err := s.pins.MarkSuccess(ctx, phone, now); err != nil {
			return domain.VerifyResult{}, fmt.Errorf("pinauth.Verify mark success: %w", err)
		}
		s.appendAttempt(ctx, phone, true, source)
		s.log.InfoContext(ctx, "pin verified",
			slog.String("user_id", rec.UserID.String()),
			slog.String("phone", maskPhone(phone)),
		)
		return domain.VerifyResult{Outcome: domain.VerifySuccess, UserID: rec.UserID}, nil
	}

	attempts := rec.FailedAttempts + 1
	if attempts >= s.cfg.MaxFailed {
		blockedUntil := now.Add(s.cfg.LockDuration())
		if err := s.pins.SetAttempts(ctx, phone, attempts, true, &blockedUntil, now); err != nil {
			return domain.VerifyResult{}, fmt.Errorf("pinauth.Verify lock: %w", err)
		}
		s.appendAttempt(ctx, phone, false, source)
		s.log.WarnContext(ctx, "pin locked after repeated failures",
			slog.String("phone", maskPhone(phone)),
			slog.Int("attempts", attempts),
		)
		return domain.VerifyResult{Outcome: domain.VerifyLocked, BlockedUntil: blockedUntil}, nil
	}

	if err := s.pins.SetAttempts(ctx, phone, attempts, false, nil, now); err != nil {
		return domain.VerifyResult{}, fmt.Errorf("pinauth.Verify count failure: %w", err)
	}
	s.appendAttempt(ctx, phone, false, source)
	return domain.VerifyResult{
		Outcome:           domain.VerifyInvalid,
		RemainingAttempts: s.cfg.MaxFailed - attempts,
	}, nil
}

// appendAttempt writes one audit row. The audit is best effort: a failed
// insert is logged, never surfaced, so auth itself keeps working when the
// audit table is briefly unavailable.
func (s *Service) appendAttempt(ctx context.Context, phone string, success bool, source string) {
	err := s.pins.InsertAttempt(ctx, domain.PinAttempt{
		Phone:       phone,
		AttemptedAt: s.clock.Now(),
		Success:     success,
		Source:      source,
	})
	if err != nil {
		s.log.WarnContext(ctx, "pin attempt audit write failed",
			slog.String("phone", maskPhone(phone)),
			slog.String("error", err.Error()),
		)
	}
}

// HashPin returns the hex-encoded SHA-256 of a raw PIN.
func HashPin(pinRaw string) string {
	sum := sha256.Sum256([]byte(pinRaw))
	return hex.EncodeToString(sum[:])
}

// maskPhone hides all but the last four digits in log output.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
