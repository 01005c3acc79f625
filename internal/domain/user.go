package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a marketplace user account. Profiles are created out-of-band
// (Supabase auth); this service only reads them.
type Profile struct {
	ID          uuid.UUID
	Phone       *string
	DisplayName *string
	Role        Role
	CreatedAt   time.Time
}

// IsAdmin reports whether the profile can perform admin actions.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
