// Package draft implements the per-user draft-listing state machine:
// DRAFT (collecting attributes) → PREVIEW (awaiting confirmation) →
// PUBLISHED, with CANCELLED reachable from any active state. The draft is
// persisted every turn so the flow survives process restarts.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	postgres "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// defaultLocation and defaultStock fill attributes the user rarely states.
const (
	defaultLocation = "Türkiye"
	defaultStock    = 1
)

// StepKind tags the outcome of one FSM step. The controller maps kinds to
// user-visible Turkish; the FSM never formats messages itself.
type StepKind string

const (
	StepDraftUpdated    StepKind = "draft_updated"    // attributes merged, fields missing
	StepPreviewReady    StepKind = "preview_ready"    // required fields complete
	StepPublished       StepKind = "published"        // listing inserted, draft gone
	StepPublishFailed   StepKind = "publish_failed"   // insert failed, still PREVIEW
	StepNothingPending  StepKind = "nothing_pending"  // publish/update with no draft
	StepCancelled       StepKind = "cancelled"        // draft removed
	StepDeleteRequested StepKind = "delete_requested" // user wants a listing gone
)

// StepResult is what one turn through the FSM produced.
type StepResult struct {
	Kind          StepKind
	Draft         *domain.Draft
	MissingFields []string
	ListingID     *uuid.UUID
	Listings      []*domain.Listing // populated for StepDeleteRequested
	Err           error             // populated for StepPublishFailed
}

// StepInput is the slice of a turn the FSM needs.
type StepInput struct {
	UserID    uuid.UUID
	Text      string
	ImageRefs []string
	Vision    json.RawMessage
}

// draftRepo defines the draft repository interface needed by the FSM.
type draftRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Draft, error)
	Upsert(ctx context.Context, d *domain.Draft) (*domain.Draft, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// listingRepo defines the listing repository interface needed by the FSM.
type listingRepo interface {
	Insert(ctx context.Context, l *domain.Listing) (*domain.Listing, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Listing, error)
}

// eventPublisher defines the event sink interface needed by the FSM.
type eventPublisher interface {
	PublishListingPublished(ctx context.Context, l *domain.Listing) error
}

// FSM drives the draft lifecycle.
type FSM struct {
	log      *slog.Logger
	drafts   draftRepo
	listings listingRepo
	events   eventPublisher
	clock    clockwork.Clock
}

// NewFSM creates a draft FSM. events may be nil when no broker is configured.
func NewFSM(logger *slog.Logger, drafts draftRepo, listings listingRepo, events eventPublisher, clock clockwork.Clock) *FSM {
	return &FSM{
		log:      logger.With("service", "draft"),
		drafts:   drafts,
		listings: listings,
		events:   events,
		clock:    clock,
	}
}

// HasActive reports whether the user currently has a non-terminal draft.
func (f *FSM) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	d, err := postgres.RetryRead(ctx, func(ctx context.Context) (*domain.Draft, error) {
		return f.drafts.Get(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("draft.HasActive: %w", err)
	}
	return !d.State.IsTerminal(), nil
}

// Step advances the FSM by one turn for a listing-adjacent intent.
func (f *FSM) Step(ctx context.Context, intent domain.Intent, in StepInput) (StepResult, error) {
	switch intent {
	case domain.IntentCreateListing, domain.IntentUpdateListing:
		return f.merge(ctx, intent, in)
	case domain.IntentPublishListing:
		return f.publish(ctx, in)
	case domain.IntentDeleteListing:
		return f.requestDelete(ctx, in)
	default:
		return StepResult{}, fmt.Errorf("draft.Step: intent %s is not listing-adjacent", intent)
	}
}

// merge folds the turn's attributes into the draft, creating it on first
// contact. An edit while in PREVIEW drops back to DRAFT. When the required
// fields are complete the draft advances to PREVIEW.
func (f *FSM) merge(ctx context.Context, intent domain.Intent, in StepInput) (StepResult, error) {
	now := f.clock.Now()

	d, err := f.load(ctx, in.UserID)
	if err != nil {
		return StepResult{}, err
	}
	if d == nil {
		if intent == domain.IntentUpdateListing {
			// Nothing to update; the agent handles edits to published
			// listings, the FSM only edits drafts.
			return StepResult{Kind: StepNothingPending}, nil
		}
		d = &domain.Draft{
			UserID:    in.UserID,
			State:     domain.DraftStateDraft,
			CreatedAt: now,
		}
	}

	attrs := ExtractAttributes(in.Text)
	d.Listing.Merge(attrs)
	d.State = domain.DraftStateDraft

	// Normalize and default.
	if d.Listing.Condition != "" {
		d.Listing.Condition = NormalizeCondition(string(d.Listing.Condition))
	}
	if d.Listing.Location == "" {
		d.Listing.Location = defaultLocation
	}
	if d.Listing.Stock == 0 {
		d.Listing.Stock = defaultStock
	}
	if d.Listing.Category == "" {
		if cat, typ := ClassifyCategory(in.Text + " " + d.Listing.Title); cat != "" {
			d.Listing.Category = cat
			d.Listing.Type = typ
		}
	}
	if d.Listing.Type == "" {
		d.Listing.Type = TypeForCategory(d.Listing.Category)
	}
	if len(in.ImageRefs) > 0 {
		d.Images = append(d.Images, in.ImageRefs...)
	}
	if len(in.Vision) > 0 {
		d.VisionProduct = in.Vision
	}

	missing := d.Listing.MissingRequired()
	if len(missing) == 0 {
		d.State = domain.DraftStatePreview
	}
	d.UpdatedAt = now

	saved, err := f.drafts.Upsert(ctx, d)
	if err != nil {
		return StepResult{}, fmt.Errorf("draft.Step merge upsert: %w", err)
	}

	if saved.State == domain.DraftStatePreview {
		return StepResult{Kind: StepPreviewReady, Draft: saved}, nil
	}
	return StepResult{Kind: StepDraftUpdated, Draft: saved, MissingFields: missing}, nil
}

// publish inserts the listing. Success deletes the draft and reports the
// new id; failure keeps the draft in PREVIEW so the user can retry or edit.
func (f *FSM) publish(ctx context.Context, in StepInput) (StepResult, error) {
	now := f.clock.Now()

	d, err := f.load(ctx, in.UserID)
	if err != nil {
		return StepResult{}, err
	}
	if d == nil {
		return StepResult{Kind: StepNothingPending}, nil
	}

	if missing := d.Listing.MissingRequired(); len(missing) > 0 {
		return StepResult{Kind: StepDraftUpdated, Draft: d, MissingFields: missing}, nil
	}

	listing := &domain.Listing{
		ID:          uuid.New(),
		UserID:      d.UserID,
		Title:       d.Listing.Title,
		Price:       d.Listing.Price,
		Condition:   d.Listing.Condition,
		Category:    d.Listing.Category,
		Description: d.Listing.Description,
		Location:    d.Listing.Location,
		Stock:       d.Listing.Stock,
		Type:        d.Listing.Type,
		Images:      d.Images,
		CreatedAt:   now,
	}
	if listing.Condition == "" {
		listing.Condition = domain.ConditionUsed
	}

	inserted, err := f.listings.Insert(ctx, listing)
	if err != nil {
		// Stay in PREVIEW; persist the state in case merge left it DRAFT.
		if d.State != domain.DraftStatePreview {
			d.State = domain.DraftStatePreview
			d.UpdatedAt = now
			if _, upErr := f.drafts.Upsert(ctx, d); upErr != nil {
				f.log.WarnContext(ctx, "draft state persist failed after publish error",
					slog.String("user_id", d.UserID.String()),
					slog.String("error", upErr.Error()),
				)
			}
		}
		f.log.WarnContext(ctx, "publish failed",
			slog.String("user_id", d.UserID.String()),
			slog.String("error", err.Error()),
		)
		return StepResult{Kind: StepPublishFailed, Draft: d, Err: err}, nil
	}

	if err := f.drafts.Delete(ctx, d.UserID); err != nil {
		// The listing is live; a lingering draft row is an annoyance, not
		// a correctness problem. Log and move on.
		f.log.WarnContext(ctx, "draft delete failed after publish",
			slog.String("user_id", d.UserID.String()),
			slog.String("error", err.Error()),
		)
	}

	if f.events != nil {
		if err := f.events.PublishListingPublished(ctx, inserted); err != nil {
			f.log.WarnContext(ctx, "listing.published event publish failed",
				slog.String("listing_id", inserted.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	f.log.InfoContext(ctx, "listing published",
		slog.String("listing_id", inserted.ID.String()),
		slog.String("user_id", inserted.UserID.String()),
	)
	return StepResult{Kind: StepPublished, ListingID: &inserted.ID}, nil
}

// requestDelete cancels any active draft and surfaces the user's published
// listings so the reply can ask which one to remove.
func (f *FSM) requestDelete(ctx context.Context, in StepInput) (StepResult, error) {
	d, err := f.load(ctx, in.UserID)
	if err != nil {
		return StepResult{}, err
	}
	if d != nil {
		if err := f.drafts.Delete(ctx, in.UserID); err != nil {
			return StepResult{}, fmt.Errorf("draft.Step delete draft: %w", err)
		}
	}

	listings, err := f.listings.ListByUser(ctx, in.UserID, 10)
	if err != nil {
		return StepResult{}, fmt.Errorf("draft.Step list for delete: %w", err)
	}
	return StepResult{Kind: StepDeleteRequested, Listings: listings}, nil
}

// Cancel removes the user's draft. Called for an explicit cancel while a
// draft is in flight; session-end cleanup (timeout, re-login, completion)
// goes through the session manager's draft store instead. Idempotent.
func (f *FSM) Cancel(ctx context.Context, userID uuid.UUID) (StepResult, error) {
	if err := f.drafts.Delete(ctx, userID); err != nil {
		return StepResult{}, fmt.Errorf("draft.Cancel: %w", err)
	}
	return StepResult{Kind: StepCancelled}, nil
}

func (f *FSM) load(ctx context.Context, userID uuid.UUID) (*domain.Draft, error) {
	d, err := postgres.RetryRead(ctx, func(ctx context.Context) (*domain.Draft, error) {
		return f.drafts.Get(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("draft load: %w", err)
	}
	if d.State.IsTerminal() {
		return nil, nil
	}
	return d, nil
}
