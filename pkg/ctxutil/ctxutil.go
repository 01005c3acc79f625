// Package ctxutil carries per-turn identity through context. The legacy
// implementation used a process-wide "current user" variable; with parallel
// turn workers that is a correctness hazard, so identity travels with the
// request context instead.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	turnKey      ctxKey = "turn_identity"
)

// TurnIdentity is the immutable identity snapshot for one inbound turn.
type TurnIdentity struct {
	UserID       uuid.UUID
	Phone        string
	SessionToken string
	Transport    string
}

// WithTurn stores the turn identity in the context.
func WithTurn(ctx context.Context, id TurnIdentity) context.Context {
	return context.WithValue(ctx, turnKey, id)
}

// TurnFromCtx extracts the turn identity from the context.
// The second return is false if none was set.
func TurnFromCtx(ctx context.Context) (TurnIdentity, bool) {
	id, ok := ctx.Value(turnKey).(TurnIdentity)
	return id, ok
}

// UserIDFromCtx extracts the authenticated user ID from the context.
// Returns uuid.Nil and false if the turn is unauthenticated.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(turnKey).(TurnIdentity)
	if !ok || id.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return id.UserID, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
