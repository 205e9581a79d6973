package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Pipeline stages.
const (
	StageDiscovery   = "Discovery"
	StageProposal    = "Proposal"
	StageNegotiation = "Negotiation"
	StageClosedWon   = "Closed_Won"
	StageClosedLost  = "Closed_Lost"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidStage(s string) bool {
	switch s {
	case StageDiscovery, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Closed reports whether the opportunity left the active pipeline.
func (o *Opportunity) Closed() bool {
	return o.Stage == StageClosedWon || o.Stage == StageClosedLost
}

type Opportunity struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	UUID string `gorm:"uniqueIndex;size:64;not null" json:"id"`

	CompanyName  string          `gorm:"size:255;not null" json:"company_name"`
	ContactName  string          `gorm:"size:255;not null" json:"contact_name"`
	ContactEmail string          `gorm:"size:255;not null" json:"contact_email"`
	Value        decimal.Decimal `gorm:"type:decimal(12,2)" json:"value"`
	Stage        string          `gorm:"size:32;index;not null" json:"stage"`
	Priority     string          `gorm:"size:16;not null" json:"priority"`

	Description    string `gorm:"type:text" json:"description"`
	SARequestNotes string `gorm:"type:text" json:"sa_request_notes"`
	NextSteps      string `gorm:"type:text" json:"next_steps"`

	// Ordered lists; insertion order is meaningful for display.
	TechnologyStack         datatypes.JSONSlice[string] `json:"technology_stack"`
	IntegrationRequirements datatypes.JSONSlice[string] `json:"integration_requirements"`
	ComplianceRequirements  datatypes.JSONSlice[string] `json:"compliance_requirements"`

	// Maintained by the service on every mutating write, never by reads.
	LastUpdated time.Time `json:"last_updated"`

	CreatedByID  uint  `gorm:"index;not null" json:"-"`
	AssignedSAID *uint `gorm:"index" json:"-"`

	CreatedBy  *User `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedSA *User `gorm:"foreignKey:AssignedSAID" json:"-"`
}
