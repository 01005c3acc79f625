package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ListingData is the attribute bag accumulated across draft turns.
// It is persisted as JSONB on active_drafts and copied into the listing
// row on publish. Extra holds attributes without a dedicated column.
type ListingData struct {
	Title       string            `json:"title,omitempty"`
	Price       int64             `json:"price,omitempty"`
	Condition   Condition         `json:"condition,omitempty"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Location    string            `json:"location,omitempty"`
	Stock       int               `json:"stock,omitempty"`
	Type        ListingType       `json:"type,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Merge overlays non-zero fields of other onto d. Extra keys are merged
// with other winning on conflict.
func (d *ListingData) Merge(other ListingData) {
	if other.Title != "" {
		d.Title = other.Title
	}
	if other.Price != 0 {
		d.Price = other.Price
	}
	if other.Condition != "" {
		d.Condition = other.Condition
	}
	if other.Category != "" {
		d.Category = other.Category
	}
	if other.Description != "" {
		d.Description = other.Description
	}
	if other.Location != "" {
		d.Location = other.Location
	}
	if other.Stock != 0 {
		d.Stock = other.Stock
	}
	if other.Type != "" {
		d.Type = other.Type
	}
	if len(other.Extra) > 0 {
		if d.Extra == nil {
			d.Extra = make(map[string]string, len(other.Extra))
		}
		for k, v := range other.Extra {
			d.Extra[k] = v
		}
	}
}

// MissingRequired returns the required-for-preview fields that are still
// empty, in a stable order.
func (d *ListingData) MissingRequired() []string {
	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.Price == 0 {
		missing = append(missing, "price")
	}
	if d.Category == "" {
		missing = append(missing, "category")
	}
	return missing
}

// Draft is a user's in-progress listing (table active_drafts, unique per user).
type Draft struct {
	UserID        uuid.UUID
	State         DraftState
	Listing       ListingData
	Images        []string
	VisionProduct json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
