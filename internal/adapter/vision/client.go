// Package vision is the HTTP client for the external image-safety
// classifier. The response contract is strict JSON; anything else is an
// ErrExternalUnavailable and the gate decides what to do with it.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Classification is the classifier's verdict over one image.
type Classification struct {
	Safe         bool            `json:"safe"`
	FlagType     string          `json:"flag_type"`
	Confidence   string          `json:"confidence"`
	Message      string          `json:"message"`
	AllowListing bool            `json:"allow_listing"`
	Product      json.RawMessage `json:"product,omitempty"`
}

type classifyRequest struct {
	ImageRef string `json:"image_ref"`
}

// Client calls the safety classifier service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a classifier client bounded by the configured timeout.
func NewClient(logger *slog.Logger, cfg config.SafetyConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		log:        logger.With("adapter", "vision"),
	}
}

// Classify submits one image reference and returns the parsed verdict.
// Transport and decode failures surface as domain.ErrExternalUnavailable.
func (c *Client) Classify(ctx context.Context, imageRef string) (*Classification, error) {
	payload, err := json.Marshal(classifyRequest{ImageRef: imageRef})
	if err != nil {
		return nil, fmt.Errorf("vision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("vision: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: request failed: %v: %w", err, domain.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: unexpected status %d: %w", resp.StatusCode, domain.ErrExternalUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision: read body: %v: %w", err, domain.ErrExternalUnavailable)
	}

	var out Classification
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("vision: decode json: %v: %w", err, domain.ErrExternalUnavailable)
	}

	c.log.DebugContext(ctx, "image classified",
		slog.Bool("safe", out.Safe),
		slog.String("flag_type", out.FlagType),
		slog.String("confidence", out.Confidence),
	)

	return &out, nil
}
