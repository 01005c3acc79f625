package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration
// and materializes parsed fields. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Session.TTLSeconds <= 0 {
		return fmt.Errorf("session.ttl_seconds must be > 0 (got %d)", c.Session.TTLSeconds)
	}
	if c.Pin.MaxFailed <= 0 {
		return fmt.Errorf("pin.max_failed must be > 0 (got %d)", c.Pin.MaxFailed)
	}
	if c.Pin.LockSeconds <= 0 {
		return fmt.Errorf("pin.lock_seconds must be > 0 (got %d)", c.Pin.LockSeconds)
	}
	if c.Turn.DeadlineMS <= 0 {
		return fmt.Errorf("turn.deadline_ms must be > 0 (got %d)", c.Turn.DeadlineMS)
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Router.validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}

	c.Kafka.Brokers = splitList(c.Kafka.BrokersRaw)

	return nil
}

func (r *RouterConfig) validate() error {
	sets := []struct {
		name string
		raw  string
		dst  *[]string
	}{
		{"cancel_keywords", r.CancelKeywordsRaw, &r.CancelKeywords},
		{"delete_triggers", r.DeleteTriggersRaw, &r.DeleteTriggers},
		{"own_listing_triggers", r.OwnListingTriggersRaw, &r.OwnListingTriggers},
		{"all_listing_triggers", r.AllListingTriggersRaw, &r.AllListingTriggers},
		{"update_triggers", r.UpdateTriggersRaw, &r.UpdateTriggers},
		{"confirm_triggers", r.ConfirmTriggersRaw, &r.ConfirmTriggers},
		{"sell_triggers", r.SellTriggersRaw, &r.SellTriggers},
		{"buy_triggers", r.BuyTriggersRaw, &r.BuyTriggers},
	}

	for _, s := range sets {
		parsed := splitList(s.raw)
		if len(parsed) == 0 {
			return fmt.Errorf("%s must not be empty", s.name)
		}
		*s.dst = parsed
	}
	return nil
}

// splitList parses a comma-separated string into trimmed, non-empty items.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
