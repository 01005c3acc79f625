// Package safety is the pre-flight image gate. It runs before any routing
// decision: a blocked image short-circuits the whole turn.
package safety

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/vision"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// classifier defines the vision client interface needed by the gate.
type classifier interface {
	Classify(ctx context.Context, imageRef string) (*vision.Classification, error)
}

// flagRepo defines the safety flag repository interface needed by the gate.
type flagRepo interface {
	Insert(ctx context.Context, flag domain.ImageSafetyFlag) (*domain.ImageSafetyFlag, error)
}

// eventPublisher defines the event sink interface needed by the gate.
type eventPublisher interface {
	PublishImageFlagged(ctx context.Context, flag *domain.ImageSafetyFlag) error
}

// Gate evaluates inbound images against the external classifier.
type Gate struct {
	log        *slog.Logger
	classifier classifier
	flags      flagRepo
	events     eventPublisher
	clock      clockwork.Clock
	failOpen   bool
}

// NewGate creates a safety gate. events may be nil when no broker is
// configured.
func NewGate(logger *slog.Logger, cls classifier, flags flagRepo, events eventPublisher, clock clockwork.Clock, cfg config.SafetyConfig) *Gate {
	return &Gate{
		log:        logger.With("service", "safety"),
		classifier: cls,
		flags:      flags,
		events:     events,
		clock:      clock,
		failOpen:   cfg.FailOpen,
	}
}

// Evaluate classifies the first image of a turn; the remaining images
// inherit its verdict. A classifier outage yields Safe when fail-open is
// configured (the product does not auto-ban) and Block{unknown} otherwise.
// Every Block persists exactly one pending ImageSafetyFlag before returning.
func (g *Gate) Evaluate(ctx context.Context, userID uuid.UUID, imageRefs []string) (domain.Verdict, error) {
	if len(imageRefs) == 0 {
		return domain.SafeVerdict(nil), nil
	}
	first := imageRefs[0]

	cls, err := g.classifier.Classify(ctx, first)
	if err != nil {
		if g.failOpen {
			g.log.WarnContext(ctx, "safety classifier unavailable, failing open",
				slog.String("image_ref", first),
				slog.String("error", err.Error()),
			)
			return domain.SafeVerdict(nil), nil
		}
		g.log.WarnContext(ctx, "safety classifier unavailable, failing closed",
			slog.String("image_ref", first),
			slog.String("error", err.Error()),
		)
		verdict := domain.BlockVerdict(domain.FlagTypeUnknown, domain.ConfidenceLow,
			"Görsel doğrulanamadı, lütfen daha sonra tekrar deneyin.")
		if err := g.persistFlag(ctx, userID, first, verdict); err != nil {
			return domain.Verdict{}, err
		}
		return verdict, nil
	}

	if cls.Safe && cls.AllowListing {
		return domain.SafeVerdict(cls.Product), nil
	}

	flagType := domain.FlagType(cls.FlagType)
	if !flagType.IsValid() || flagType == domain.FlagTypeNone {
		flagType = domain.FlagTypeUnknown
	}
	confidence := domain.Confidence(cls.Confidence)
	if confidence == "" {
		confidence = domain.ConfidenceLow
	}

	verdict := domain.BlockVerdict(flagType, confidence, cls.Message)
	if err := g.persistFlag(ctx, userID, first, verdict); err != nil {
		return domain.Verdict{}, err
	}

	g.log.InfoContext(ctx, "image blocked",
		slog.String("user_id", userID.String()),
		slog.String("flag_type", flagType.String()),
		slog.String("confidence", confidence.String()),
	)
	return verdict, nil
}

func (g *Gate) persistFlag(ctx context.Context, userID uuid.UUID, imageRef string, v domain.Verdict) error {
	flag := domain.ImageSafetyFlag{
		ID:         uuid.New(),
		FlagType:   v.FlagType,
		Confidence: v.Confidence,
		Message:    v.Message,
		Status:     domain.FlagStatusPending,
		CreatedAt:  g.clock.Now(),
	}
	if userID != uuid.Nil {
		flag.UserID = &userID
	}
	if imageRef != "" {
		flag.ImageRef = &imageRef
	}

	persisted, err := g.flags.Insert(ctx, flag)
	if err != nil {
		return fmt.Errorf("safety.Evaluate persist flag: %w", err)
	}

	if g.events != nil {
		if err := g.events.PublishImageFlagged(ctx, persisted); err != nil {
			g.log.WarnContext(ctx, "image.flagged event publish failed",
				slog.String("flag_id", persisted.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
