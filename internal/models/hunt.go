package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hunt workflow statuses
const (
	HuntStatusScheduled    = "scheduled"
	HuntStatusPendingGuide = "pending_guide_assignment"
	HuntStatusCompleted    = "completed"
	HuntStatusCancelled    = "cancelled"
)

// Hunt audience visibility
const (
	HuntVisibilityInternal = "internal" // admins only, e.g. freshly projected from a contract
	HuntVisibilityMembers  = "members"  // staff and assigned guide/client
	HuntVisibilityPublic   = "public"   // shown on the outfitter's public calendar
)

// Hunt represents a scheduled guided hunting trip for one client.
// A hunt may exist before any contract (manual scheduling) or be created as a
// side effect of a contract reaching full execution.
type Hunt struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OutfitterID uuid.UUID `json:"outfitter_id" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"size:255;not null"`

	StartsAt time.Time `json:"starts_at" gorm:"index"`
	EndsAt   time.Time `json:"ends_at"`

	GuideID     *uuid.UUID `json:"guide_id" gorm:"type:uuid;index"`
	ClientEmail string     `json:"client_email" gorm:"size:255;index"`

	// Species/unit/weapon metadata, typically derived from the contract's
	// completion data
	Species  string `json:"species" gorm:"size:100"`
	Unit     string `json:"unit" gorm:"size:50"`
	Weapon   string `json:"weapon" gorm:"size:50"`
	Camp     string `json:"camp" gorm:"size:100"`
	HuntCode string `json:"hunt_code" gorm:"size:50;index"`

	Status     string `json:"status" gorm:"size:50;not null;default:'scheduled';index" validate:"oneof=scheduled pending_guide_assignment completed cancelled"`
	Visibility string `json:"visibility" gorm:"size:20;not null;default:'members'" validate:"oneof=internal members public"`

	Notes string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Outfitter *Outfitter `json:"outfitter,omitempty" gorm:"foreignKey:OutfitterID"`
}

// TableName specifies the table name for Hunt
func (Hunt) TableName() string {
	return "hunts"
}

// BeforeCreate hook
func (h *Hunt) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
