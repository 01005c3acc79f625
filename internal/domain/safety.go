package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImageSafetyFlag is one append-only review row (table image_safety_flags).
// A row is written whenever the gate blocks an upload; admins review it
// later, the gate itself never bans.
type ImageSafetyFlag struct {
	ID         uuid.UUID
	UserID     *uuid.UUID
	ImageRef   *string
	FlagType   FlagType
	Confidence Confidence
	Message    string
	Status     FlagStatus
	CreatedAt  time.Time
	ReviewedAt *time.Time
	Reviewer   *string
	Notes      *string
}

// Verdict is the safety gate's sum-typed result over an image.
// Blocked=false means Safe; ProductSummary is opaque classifier metadata
// forwarded to downstream agents when present.
type Verdict struct {
	Blocked        bool
	FlagType       FlagType
	Confidence     Confidence
	Message        string
	ProductSummary json.RawMessage
}

// SafeVerdict constructs a passing verdict carrying optional product metadata.
func SafeVerdict(product json.RawMessage) Verdict {
	return Verdict{Blocked: false, FlagType: FlagTypeNone, ProductSummary: product}
}

// BlockVerdict constructs a blocking verdict.
func BlockVerdict(flag FlagType, confidence Confidence, message string) Verdict {
	return Verdict{Blocked: true, FlagType: flag, Confidence: confidence, Message: message}
}
