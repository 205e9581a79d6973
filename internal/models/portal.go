package models

import "time"

// ClientPortal is a capability: whoever holds AccessToken may read the
// restricted projection of one opportunity, no login required.
type ClientPortal struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	UUID          string `gorm:"uniqueIndex;size:64;not null" json:"id"`
	OpportunityID uint   `gorm:"index;not null" json:"-"`

	AccessToken string `gorm:"uniqueIndex;size:64;not null" json:"access_token"`
	IsActive    bool   `gorm:"index;not null;default:true" json:"is_active"`

	// nil means the link never expires.
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// Engagement stage status values.
const (
	EngagementPending  = "pending"
	EngagementApproved = "approved"
	EngagementDisputed = "disputed"
)

func ValidEngagementStatus(s string) bool {
	return s == EngagementPending || s == EngagementApproved || s == EngagementDisputed
}

// EngagementStage is a named checkpoint of the conversation with the prospect,
// shown on the client portal. Distinct from the pipeline Stage.
type EngagementStage struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID          string `gorm:"uniqueIndex;size:64;not null" json:"id"`
	OpportunityID uint   `gorm:"index;not null" json:"-"`
	Position      int    `gorm:"not null" json:"position"`

	Name             string `gorm:"size:255;not null" json:"name"`
	ArchitectNote    string `gorm:"type:text" json:"architect_note"`
	ProspectResponse string `gorm:"type:text" json:"prospect_response"`
	// pending until the prospect approves or disputes; no way back after that.
	Status string `gorm:"size:16;not null;default:pending" json:"status"`
}
