package domain

import (
	"time"

	"github.com/google/uuid"
)

// PinRecord is a user's PIN credential row (table user_security).
// Invariant: IsLocked ⇔ BlockedUntil is in the future.
type PinRecord struct {
	UserID         uuid.UUID
	Phone          string
	PinHash        string // hex of SHA-256 over the raw 4–6 digit PIN
	FailedAttempts int
	IsLocked       bool
	BlockedUntil   *time.Time
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PinAttempt is one append-only audit row (table pin_verification_attempts).
type PinAttempt struct {
	ID          uuid.UUID
	Phone       string
	AttemptedAt time.Time
	Success     bool
	Source      string
}

// VerifyOutcome tags the result of a PIN verification.
type VerifyOutcome string

const (
	VerifySuccess       VerifyOutcome = "success"
	VerifyInvalid       VerifyOutcome = "invalid"
	VerifyLocked        VerifyOutcome = "locked"
	VerifyNotRegistered VerifyOutcome = "not_registered"
)

// VerifyResult is the sum-typed outcome of PinAuth.Verify.
// UserID is set only on VerifySuccess; RemainingAttempts only on
// VerifyInvalid; BlockedUntil only on VerifyLocked.
type VerifyResult struct {
	Outcome           VerifyOutcome
	UserID            uuid.UUID
	RemainingAttempts int
	BlockedUntil      time.Time
}
