package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// turnController defines the gateway interface needed by TurnHandler.
type turnController interface {
	Handle(ctx context.Context, turn domain.Turn) (domain.Reply, error)
}

// webTokenVerifier defines the auth interface needed for web turns.
type webTokenVerifier interface {
	Verify(token string) (uuid.UUID, string, error)
}

// TurnHandler serves POST /turn, the single inbound endpoint. Every domain
// outcome — refusals, PIN prompts, lockouts — is a 200; 4xx is reserved for
// malformed input and 5xx for unrecovered infrastructure failures.
type TurnHandler struct {
	controller turnController
	verifier   webTokenVerifier // nil when no web JWT secret is configured
	log        *slog.Logger
}

// NewTurnHandler creates a TurnHandler.
func NewTurnHandler(controller turnController, verifier webTokenVerifier, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		controller: controller,
		verifier:   verifier,
		log:        logger.With("handler", "turn"),
	}
}

type turnRequest struct {
	Phone       string       `json:"phone"`
	UserID      string       `json:"user_id,omitempty"`
	Text        string       `json:"text"`
	ImageRefs   []string     `json:"image_refs,omitempty"`
	Transport   string       `json:"transport"`
	AuthContext *authContext `json:"auth_context,omitempty"`
}

type authContext struct {
	Token string `json:"token,omitempty"`
}

type turnResponse struct {
	ReplyText    string  `json:"reply_text"`
	Intent       string  `json:"intent"`
	SessionToken string  `json:"session_token,omitempty"`
	ListingID    *string `json:"listing_id,omitempty"`
	Success      bool    `json:"success"`
	EndReason    string  `json:"end_reason,omitempty"`
}

// Handle serves POST /turn.
func (h *TurnHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, errMsg := h.buildTurn(req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	reply, err := h.controller.Handle(r.Context(), turn)
	if err != nil {
		h.log.ErrorContext(r.Context(), "turn handling failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTurnResponse(reply))
}

// buildTurn validates the request and resolves web identity. Returns a
// non-empty message on malformed input.
func (h *TurnHandler) buildTurn(req turnRequest) (domain.Turn, string) {
	transport := domain.Transport(strings.ToLower(strings.TrimSpace(req.Transport)))
	if !transport.IsValid() {
		return domain.Turn{}, "transport must be whatsapp or web"
	}

	phone := strings.TrimSpace(strings.TrimPrefix(req.Phone, "whatsapp:"))
	if phone == "" {
		return domain.Turn{}, "phone is required"
	}

	turn := domain.Turn{
		Phone:     phone,
		Text:      req.Text,
		ImageRefs: req.ImageRefs,
		Transport: transport,
	}

	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return domain.Turn{}, "user_id must be a UUID"
		}
		turn.UserID = id
	}

	// A web turn may carry a frontend JWT; a valid one pins the user ID
	// regardless of what the body claims.
	if transport == domain.TransportWeb && req.AuthContext != nil && req.AuthContext.Token != "" && h.verifier != nil {
		id, _, err := h.verifier.Verify(req.AuthContext.Token)
		if err != nil {
			return domain.Turn{}, "invalid auth token"
		}
		turn.UserID = id
	}

	return turn, ""
}

func toTurnResponse(reply domain.Reply) turnResponse {
	resp := turnResponse{
		ReplyText:    reply.Text,
		Intent:       reply.Intent.String(),
		SessionToken: reply.SessionToken,
		Success:      reply.Success,
	}
	if reply.ListingID != nil {
		id := reply.ListingID.String()
		resp.ListingID = &id
	}
	if reply.EndReason != nil {
		resp.EndReason = reply.EndReason.String()
	}
	return resp
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
