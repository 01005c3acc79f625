package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// MapError converts pgx/pgconn errors to domain errors. The key may be a
// UUID, a phone number, or any other identifier useful in logs.
// context.DeadlineExceeded and context.Canceled are NOT mapped — they pass
// through so callers can distinguish a turn-deadline breach from a store
// failure.
func MapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	// pgx.ErrNoRows → domain.ErrNotFound
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	// PgError codes
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrValidation)
		}
		// Class 08 — connection exceptions are transient.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return fmt.Errorf("%s %s: %v: %w", entity, key, err, domain.ErrStoreUnavailable)
		}
	}

	// Network-level failures (pool exhausted, connection refused) are
	// retryable: surface them as ErrStoreUnavailable.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s %s: %v: %w", entity, key, err, domain.ErrStoreUnavailable)
	}

	// Everything else: wrap with context
	return fmt.Errorf("%s %s: %w", entity, key, err)
}
