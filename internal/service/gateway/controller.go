// Package gateway orchestrates one inbound turn: safety gate → session
// lookup → PIN verification → intent routing → draft FSM or agent dispatch.
// Turns for the same phone are serialized behind a keyed mutex; each turn
// runs under a hard wall-clock deadline.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	agentclient "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/agent"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/draft"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/pinauth"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/pkg/ctxutil"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/pkg/phonelock"
)

// completedStem marks an agent intent that finishes the operation. Detected
// by substring until the agent contract grows a dedicated boolean field.
const completedStem = "complet"

// safetyGate defines the safety service interface needed by the controller.
type safetyGate interface {
	Evaluate(ctx context.Context, userID uuid.UUID, imageRefs []string) (domain.Verdict, error)
}

// profileResolver defines the profile lookup needed by the controller.
type profileResolver interface {
	GetByPhone(ctx context.Context, phone string) (*domain.Profile, error)
}

// pinVerifier defines the pinauth interface needed by the controller.
type pinVerifier interface {
	Verify(ctx context.Context, phone, pinRaw, source string) (domain.VerifyResult, error)
}

// sessionManager defines the session lifecycle interface needed by the controller.
type sessionManager interface {
	Current(ctx context.Context, phone string) (*domain.Session, error)
	Open(ctx context.Context, userID uuid.UUID, phone string) (*domain.Session, error)
	Touch(ctx context.Context, id uuid.UUID) error
	EndForUser(ctx context.Context, id, userID uuid.UUID, reason domain.EndReason) error
	TTL() time.Duration
}

// intentRouter defines the router interface needed by the controller.
type intentRouter interface {
	Classify(text string, hasDraft bool) domain.Intent
	MatchesCancel(text string) bool
}

// draftFSM defines the FSM interface needed by the controller.
type draftFSM interface {
	HasActive(ctx context.Context, userID uuid.UUID) (bool, error)
	Step(ctx context.Context, intent domain.Intent, in draft.StepInput) (draft.StepResult, error)
	Cancel(ctx context.Context, userID uuid.UUID) (draft.StepResult, error)
}

// agentBackend defines the agent client interface needed by the controller.
type agentBackend interface {
	Run(ctx context.Context, req agentclient.Request) (*agentclient.Response, error)
}

// Controller handles inbound turns.
type Controller struct {
	log      *slog.Logger
	safety   safetyGate
	profiles profileResolver
	pins     pinVerifier
	sessions sessionManager
	router   intentRouter
	fsm      draftFSM
	agent    agentBackend
	locks    *phonelock.KeyedMutex
	clock    clockwork.Clock
	deadline time.Duration
}

// NewController wires the turn pipeline.
func NewController(
	logger *slog.Logger,
	safety safetyGate,
	profiles profileResolver,
	pins pinVerifier,
	sessions sessionManager,
	router intentRouter,
	fsm draftFSM,
	agent agentBackend,
	clock clockwork.Clock,
	cfg config.TurnConfig,
) *Controller {
	return &Controller{
		log:      logger.With("service", "gateway"),
		safety:   safety,
		profiles: profiles,
		pins:     pins,
		sessions: sessions,
		router:   router,
		fsm:      fsm,
		agent:    agent,
		locks:    phonelock.New(),
		clock:    clock,
		deadline: cfg.Deadline(),
	}
}

// Handle processes one turn and always returns a reply the transport can
// deliver — infrastructure failures become Turkish apologies, never panics
// or empty envelopes. State mutations committed before a deadline breach
// stay committed; nothing new is written after it.
func (c *Controller) Handle(ctx context.Context, turn domain.Turn) (domain.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	// Per-phone serialization: turns from one phone apply in arrival order.
	if err := c.locks.Lock(ctx, turn.Phone); err != nil {
		return domain.Reply{Text: msgGenericError}, fmt.Errorf("gateway.Handle lock: %w", err)
	}
	defer c.locks.Unlock(turn.Phone)

	reply, err := c.handleLocked(ctx, turn)
	if err != nil {
		c.log.ErrorContext(ctx, "turn failed",
			slog.String("phone", maskPhone(turn.Phone)),
			slog.String("transport", turn.Transport.String()),
			slog.String("error", err.Error()),
		)
		return c.fallbackReply(err), nil
	}
	return reply, nil
}

func (c *Controller) handleLocked(ctx context.Context, turn domain.Turn) (domain.Reply, error) {
	// 1. Safety gate runs before anything else; a blocked image ends the
	// turn before any routing or session mutation.
	if len(turn.ImageRefs) > 0 {
		verdict, err := c.safety.Evaluate(ctx, c.resolveUser(ctx, turn), turn.ImageRefs)
		if err != nil {
			return domain.Reply{}, fmt.Errorf("safety gate: %w", err)
		}
		if verdict.Blocked {
			return domain.Reply{
				Text:    msgSafetyBlocked(verdict),
				Intent:  domain.IntentSmallTalk,
				Success: false,
			}, nil
		}
		turn = withVisionMetadata(turn, verdict)
	}

	// 2–3. Session lookup; without one the only accepted input is a PIN.
	session, err := c.sessions.Current(ctx, turn.Phone)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("session lookup: %w", err)
	}
	if session == nil {
		return c.handleUnauthenticated(ctx, turn)
	}

	ctx = ctxutil.WithTurn(ctx, ctxutil.TurnIdentity{
		UserID:       session.UserID,
		Phone:        turn.Phone,
		SessionToken: session.Token,
		Transport:    turn.Transport.String(),
	})

	// 4. Activity mark. Never extends expiry.
	if err := c.sessions.Touch(ctx, session.ID); err != nil {
		c.log.WarnContext(ctx, "session touch failed", slog.String("error", err.Error()))
	}

	hasDraft, err := c.fsm.HasActive(ctx, session.UserID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("draft lookup: %w", err)
	}

	// 5. A bare cancel ends the session — unless a draft is in flight, in
	// which case it cancels the draft and the session survives.
	if c.router.MatchesCancel(turn.Text) && !strings.Contains(domain.FoldText(turn.Text), "ilan") {
		if hasDraft {
			if _, err := c.fsm.Cancel(ctx, session.UserID); err != nil {
				return domain.Reply{}, fmt.Errorf("draft cancel: %w", err)
			}
			return domain.Reply{
				Text:         msgDraftCancelled,
				Intent:       domain.IntentCancel,
				SessionToken: session.Token,
				Success:      true,
			}, nil
		}
		if err := c.sessions.EndForUser(ctx, session.ID, session.UserID, domain.EndReasonUserCancelled); err != nil {
			return domain.Reply{}, fmt.Errorf("session end: %w", err)
		}
		reason := domain.EndReasonUserCancelled
		return domain.Reply{
			Text:      msgSessionCancelled,
			Intent:    domain.IntentCancel,
			Success:   true,
			EndReason: &reason,
		}, nil
	}

	// 6. Route.
	intent := c.router.Classify(turn.Text, hasDraft)

	// 7. Listing-adjacent intents run through the FSM.
	if intent.IsListingIntent() {
		return c.handleListing(ctx, intent, session, turn)
	}
	if intent == domain.IntentCancel {
		// Router-level cancel with an ilan token stripped upstream; treat
		// like step 5 without a draft.
		if err := c.sessions.EndForUser(ctx, session.ID, session.UserID, domain.EndReasonUserCancelled); err != nil {
			return domain.Reply{}, fmt.Errorf("session end: %w", err)
		}
		reason := domain.EndReasonUserCancelled
		return domain.Reply{Text: msgSessionCancelled, Intent: intent, Success: true, EndReason: &reason}, nil
	}

	// 8–9. Everything else goes to the agent backend.
	return c.dispatchAgent(ctx, intent, session, turn)
}

// handleUnauthenticated implements step 3: PIN-shaped input is verified,
// anything else gets the PIN prompt.
func (c *Controller) handleUnauthenticated(ctx context.Context, turn domain.Turn) (domain.Reply, error) {
	if !pinauth.IsPinShaped(turn.Text) {
		return domain.Reply{Text: msgPinPrompt, Intent: domain.IntentSmallTalk, Success: false}, nil
	}

	result, err := c.pins.Verify(ctx, turn.Phone, turn.Text, turn.Transport.String())
	if err != nil {
		return domain.Reply{}, fmt.Errorf("pin verify: %w", err)
	}

	switch result.Outcome {
	case domain.VerifySuccess:
		session, err := c.sessions.Open(ctx, result.UserID, turn.Phone)
		if err != nil {
			return domain.Reply{}, fmt.Errorf("session open: %w", err)
		}
		return domain.Reply{
			Text:         msgLoginSuccess(c.sessions.TTL()),
			Intent:       domain.IntentSmallTalk,
			SessionToken: session.Token,
			Success:      true,
		}, nil
	case domain.VerifyInvalid:
		return domain.Reply{Text: msgInvalidPin(result.RemainingAttempts), Intent: domain.IntentSmallTalk, Success: false}, nil
	case domain.VerifyLocked:
		return domain.Reply{Text: msgPinLocked(result.BlockedUntil, c.clock.Now()), Intent: domain.IntentSmallTalk, Success: false}, nil
	default:
		return domain.Reply{Text: msgNotRegistered, Intent: domain.IntentSmallTalk, Success: false}, nil
	}
}

func (c *Controller) handleListing(ctx context.Context, intent domain.Intent, session *domain.Session, turn domain.Turn) (domain.Reply, error) {
	step, err := c.fsm.Step(ctx, intent, draft.StepInput{
		UserID:    session.UserID,
		Text:      turn.Text,
		ImageRefs: turn.ImageRefs,
		Vision:    turn.Vision,
	})
	if err != nil {
		return domain.Reply{}, fmt.Errorf("draft step: %w", err)
	}

	reply := domain.Reply{Intent: intent, SessionToken: session.Token}

	switch step.Kind {
	case draft.StepPreviewReady:
		reply.Text = msgPreview(step.Draft)
		reply.Success = true
	case draft.StepDraftUpdated:
		reply.Text = msgDraftUpdated(step.Draft, step.MissingFields)
		reply.Success = true
	case draft.StepPublished:
		reply.Text = msgPublished(*step.ListingID)
		reply.ListingID = step.ListingID
		reply.Success = true
		// Publishing completes the operation; the window closes. The FSM
		// already removed the draft, EndForUser is a no-op on it.
		if err := c.sessions.EndForUser(ctx, session.ID, session.UserID, domain.EndReasonOperationCompleted); err != nil {
			c.log.WarnContext(ctx, "session end after publish failed", slog.String("error", err.Error()))
		} else {
			reason := domain.EndReasonOperationCompleted
			reply.EndReason = &reason
		}
	case draft.StepPublishFailed:
		reply.Text = msgPublishFailed(step.Err)
		reply.Success = false
	case draft.StepNothingPending:
		reply.Text = msgNothingToPublish
		reply.Success = false
	case draft.StepCancelled:
		reply.Text = msgDraftCancelled
		reply.Success = true
	case draft.StepDeleteRequested:
		reply.Text = msgDeleteList(step.Listings)
		reply.Success = true
	default:
		reply.Text = msgGenericError
		reply.Success = false
	}
	return reply, nil
}

func (c *Controller) dispatchAgent(ctx context.Context, intent domain.Intent, session *domain.Session, turn domain.Turn) (domain.Reply, error) {
	resp, err := c.agent.Run(ctx, agentclient.Request{
		UserID:     session.UserID.String(),
		Phone:      turn.Phone,
		Message:    turn.Text,
		MediaPaths: turn.ImageRefs,
		AuthContext: agentclient.AuthContext{
			UserID:           session.UserID.String(),
			Authenticated:    true,
			SessionExpiresAt: session.ExpiresAt,
		},
		ConversationState: domain.ConversationState{
			Mode:       "chat",
			LastIntent: intent,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrExternalUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			// The agent being down is not the user's problem; apologize and
			// keep the session alive.
			c.log.WarnContext(ctx, "agent backend unavailable", slog.String("error", err.Error()))
			return domain.Reply{Text: msgAgentDown, Intent: intent, SessionToken: session.Token, Success: false}, nil
		}
		return domain.Reply{}, fmt.Errorf("agent dispatch: %w", err)
	}

	reply := domain.Reply{
		Text:         resp.Response,
		Intent:       intent,
		SessionToken: session.Token,
		Success:      resp.Success,
	}

	// 9. Completion signal from the agent closes the session and, with it,
	// any draft still in flight.
	if strings.Contains(strings.ToLower(resp.Intent), completedStem) {
		if err := c.sessions.EndForUser(ctx, session.ID, session.UserID, domain.EndReasonOperationCompleted); err != nil {
			c.log.WarnContext(ctx, "session end after completion failed", slog.String("error", err.Error()))
		} else {
			reason := domain.EndReasonOperationCompleted
			reply.EndReason = &reason
		}
	}
	return reply, nil
}

// resolveUser attributes a turn to a profile before any session exists, so
// safety flags reference the uploader. Best effort: an unknown phone leaves
// the flag anonymous.
func (c *Controller) resolveUser(ctx context.Context, turn domain.Turn) uuid.UUID {
	if turn.UserID != uuid.Nil {
		return turn.UserID
	}
	p, err := c.profiles.GetByPhone(ctx, turn.Phone)
	if err != nil {
		return uuid.Nil
	}
	return p.ID
}

// fallbackReply maps an unhandled error to the least-wrong Turkish apology.
func (c *Controller) fallbackReply(err error) domain.Reply {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return domain.Reply{Text: msgStoreDown, Success: false}
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Reply{Text: msgGenericError, Success: false}
	default:
		return domain.Reply{Text: msgGenericError, Success: false}
	}
}

// withVisionMetadata threads the classifier's product summary into the turn
// so the FSM can attach it to the draft.
func withVisionMetadata(turn domain.Turn, v domain.Verdict) domain.Turn {
	if len(v.ProductSummary) > 0 {
		turn.Vision = v.ProductSummary
	}
	return turn
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
