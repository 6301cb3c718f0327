package domain

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanFree   Plan = "free"
	PlanAgency Plan = "agency"
)

// UnlimitedCredits marks a plan that never runs out.
const UnlimitedCredits = -1

type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Plan      Plan      `json:"plan"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// CanRoast reports whether the profile may start another roast. Only free
// profiles are metered.
func (p *Profile) CanRoast() bool {
	if p == nil {
		return false
	}
	if p.Plan != PlanFree {
		return true
	}
	return p.Credits > 0
}
