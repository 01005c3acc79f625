package domain

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a published marketplace listing (table listings).
type Listing struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Price       int64 // TRY, integer
	Condition   Condition
	Category    string
	Description string
	Location    string
	Stock       int
	Type        ListingType
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListingFilter narrows a listing search. Zero values mean "no constraint".
type ListingFilter struct {
	UserID    *uuid.UUID
	Query     string
	Category  string
	Condition Condition
	Location  string
	MinPrice  int64
	MaxPrice  int64
	Limit     int
}
