// Package agent is the HTTP client for the downstream agent backend that
// handles small talk, search formatting, and listing edits on published
// rows. The gateway forwards a turn with auth and conversation context and
// relays the agent's Turkish reply.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// AuthContext mirrors the gateway's authentication state for the agent.
type AuthContext struct {
	UserID           string    `json:"user_id"`
	Authenticated    bool      `json:"authenticated"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

// Request is the outbound agent payload.
type Request struct {
	UserID              string                   `json:"user_id"`
	Phone               string                   `json:"phone,omitempty"`
	Message             string                   `json:"message"`
	ConversationHistory []map[string]string      `json:"conversation_history"`
	MediaPaths          []string                 `json:"media_paths"`
	AuthContext         AuthContext              `json:"auth_context"`
	ConversationState   domain.ConversationState `json:"conversation_state"`
}

// Response is the agent's reply envelope.
type Response struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
	Success  bool   `json:"success"`
}

// Client calls the agent backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates an agent client bounded by the configured timeout.
func NewClient(logger *slog.Logger, cfg config.AgentConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		log:        logger.With("adapter", "agent"),
	}
}

// Run forwards one turn. Transport and decode failures surface as
// domain.ErrExternalUnavailable; the controller renders the apology and
// keeps the session alive.
func (c *Client) Run(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("agent: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agent/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("agent: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent: request failed: %v: %w", err, domain.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: unexpected status %d: %w", resp.StatusCode, domain.ErrExternalUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agent: read body: %v: %w", err, domain.ErrExternalUnavailable)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("agent: decode json: %v: %w", err, domain.ErrExternalUnavailable)
	}

	c.log.DebugContext(ctx, "agent replied",
		slog.String("intent", out.Intent),
		slog.Bool("success", out.Success),
	)
	return &out, nil
}
