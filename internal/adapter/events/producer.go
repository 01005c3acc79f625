// Package events publishes gateway domain events to Kafka. Publishing is
// best effort: a broker outage must never fail the user's turn, so callers
// log and continue on error. A nil *Producer is a valid no-op sink.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Producer writes listing and safety events.
type Producer struct {
	listings *kafka.Writer
	safety   *kafka.Writer
}

// NewProducer creates a producer for the configured brokers, or nil when
// none are configured.
func NewProducer(cfg config.KafkaConfig) *Producer {
	if !cfg.Enabled() {
		return nil
	}
	writeTimeout := time.Duration(cfg.WriteTimeoutMS) * time.Millisecond

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			WriteTimeout: writeTimeout,
		}
	}

	return &Producer{
		listings: newWriter(cfg.ListingTopic),
		safety:   newWriter(cfg.SafetyTopic),
	}
}

// Close flushes and closes both writers.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	if err := p.listings.Close(); err != nil {
		return err
	}
	return p.safety.Close()
}

type listingPublishedEvent struct {
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishListingPublished emits one listing.published event keyed by user,
// so a consumer sees each seller's listings in order.
func (p *Producer) PublishListingPublished(ctx context.Context, l *domain.Listing) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(listingPublishedEvent{
		ListingID: l.ID.String(),
		UserID:    l.UserID.String(),
		Title:     l.Title,
		Price:     l.Price,
		Category:  l.Category,
		CreatedAt: l.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("events: marshal listing.published: %w", err)
	}
	return p.listings.WriteMessages(ctx, kafka.Message{
		Key:   []byte(l.UserID.String()),
		Value: value,
	})
}

type imageFlaggedEvent struct {
	FlagID     string    `json:"flag_id"`
	UserID     string    `json:"user_id,omitempty"`
	FlagType   string    `json:"flag_type"`
	Confidence string    `json:"confidence"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// PublishImageFlagged emits one image.flagged event for the review queue.
func (p *Producer) PublishImageFlagged(ctx context.Context, f *domain.ImageSafetyFlag) error {
	if p == nil {
		return nil
	}
	ev := imageFlaggedEvent{
		FlagID:     f.ID.String(),
		FlagType:   f.FlagType.String(),
		Confidence: f.Confidence.String(),
		Status:     f.Status.String(),
		CreatedAt:  f.CreatedAt,
	}
	if f.UserID != nil {
		ev.UserID = f.UserID.String()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal image.flagged: %w", err)
	}
	return p.safety.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.FlagID),
		Value: value,
	})
}
