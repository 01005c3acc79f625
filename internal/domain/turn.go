package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Turn is one inbound message from the transport.
type Turn struct {
	Phone     string
	UserID    uuid.UUID // zero unless the transport pre-resolved the user (web)
	Text      string
	ImageRefs []string
	Transport Transport
	// Vision is the safety classifier's product snapshot, attached by the
	// controller after the gate passes; transports never set it.
	Vision json.RawMessage
}

// ConversationState is the router-visible dialogue snapshot forwarded to
// the agent backend.
type ConversationState struct {
	Mode            string     `json:"mode"`
	LastIntent      Intent     `json:"last_intent,omitempty"`
	ActiveListingID *uuid.UUID `json:"active_listing_id,omitempty"`
}

// Reply is the outbound envelope for one turn.
type Reply struct {
	Text         string
	Intent       Intent
	SessionToken string
	ListingID    *uuid.UUID
	Success      bool
	EndReason    *EndReason
}
