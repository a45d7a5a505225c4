package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outfitter represents a hunting-guide business (tenant) in the system
type Outfitter struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name        string    `json:"name" gorm:"not null" validate:"required,min=2,max=255"`
	Slug        string    `json:"slug" gorm:"unique;not null;size:50" validate:"required,min=3,max=50"`
	DisplayName string    `json:"display_name" gorm:"size:255"`
	LogoURL     string    `json:"logo_url"`
	Status      string    `json:"status" gorm:"default:'active';index" validate:"oneof=active inactive suspended"`

	// Contact / billing
	ContactEmail string `json:"contact_email" gorm:"size:255"`
	Phone        string `json:"phone" gorm:"size:50"`
	State        string `json:"state" gorm:"size:50"` // operating state (e.g. "CO", "MT")

	// Defaults
	DefaultTimezone string `json:"default_timezone" gorm:"size:50;default:'America/Denver'"`
	DefaultCurrency string `json:"default_currency" gorm:"size:3;default:'USD'"`

	// Stripe Connect account for client payments (external, opaque here)
	StripeAccountID string `json:"stripe_account_id,omitempty" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Memberships []OutfitterMembership `json:"memberships,omitempty" gorm:"foreignKey:OutfitterID"`
}

// TableName specifies the table name for Outfitter
func (Outfitter) TableName() string {
	return "outfitters"
}

// OutfitterMembership associates a user with an outfitter and a role.
// Every operation in the system is gated by looking up an active membership
// with a sufficient role.
type OutfitterMembership struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_membership_user_outfitter,unique"`
	OutfitterID uuid.UUID `json:"outfitter_id" gorm:"type:uuid;not null;index:idx_membership_user_outfitter,unique"`

	// Role within this outfitter
	// owner: full control, can delete the outfitter and manage billing
	// admin: manages contracts, hunts, payments, staff
	// guide: sees assigned hunts and their clients
	// cook:  sees camp schedules
	// client: portal access to own contracts, documents and payments
	Role string `json:"role" gorm:"size:50;not null;default:'client'" validate:"oneof=owner admin guide cook client"`

	Email  string `json:"email" gorm:"size:255;not null;index"`
	Status string `json:"status" gorm:"size:20;not null;default:'invited';index" validate:"oneof=invited active inactive"`

	// Invitation tracking
	InvitedBy           *uuid.UUID `json:"invited_by" gorm:"type:uuid"`
	InvitedAt           *time.Time `json:"invited_at"`
	InvitationToken     string     `json:"invitation_token,omitempty" gorm:"size:255;index"`
	InvitationExpiresAt *time.Time `json:"invitation_expires_at"`
	AcceptedAt          *time.Time `json:"accepted_at"`

	LastAccessedAt *time.Time `json:"last_accessed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Outfitter *Outfitter `json:"outfitter,omitempty" gorm:"foreignKey:OutfitterID"`
}

// TableName specifies the table name for OutfitterMembership
func (OutfitterMembership) TableName() string {
	return "outfitter_memberships"
}

// Membership role constants
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleGuide  = "guide"
	RoleCook   = "cook"
	RoleClient = "client"
)

// Membership status constants
const (
	MembershipStatusInvited  = "invited"
	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
)

// IsStaffRole reports whether the role can manage outfitter resources
func IsStaffRole(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// OutfitterActivityLog represents an audit trail row for outfitter activities
type OutfitterActivityLog struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OutfitterID  uuid.UUID  `json:"outfitter_id" gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"` // e.g. 'contract.reviewed', 'hunt.guide_assigned'
	ResourceType string     `json:"resource_type" gorm:"size:50"`          // e.g. 'contract', 'hunt', 'payment_item'
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid"`
	Details      JSONB      `json:"details" gorm:"type:jsonb;default:'{}'"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for OutfitterActivityLog
func (OutfitterActivityLog) TableName() string {
	return "outfitter_activity_log"
}

// BeforeCreate hooks
func (o *Outfitter) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (m *OutfitterMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
