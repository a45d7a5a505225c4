package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractStatus is the lifecycle status of a hunt contract.
// Transitions are validated centrally by CanTransition rather than with
// allow-lists scattered across handlers.
type ContractStatus string

// Contract lifecycle statuses
const (
	ContractStatusDraft             ContractStatus = "draft"
	ContractStatusPendingCompletion ContractStatus = "pending_client_completion"
	ContractStatusReadyForSignature ContractStatus = "ready_for_signature"
	ContractStatusSentToDocuSign    ContractStatus = "sent_to_docusign"
	ContractStatusDelivered         ContractStatus = "delivered"
	ContractStatusClientSigned      ContractStatus = "client_signed"
	ContractStatusFullyExecuted     ContractStatus = "fully_executed"
	ContractStatusCancelled         ContractStatus = "cancelled"
)

// contractTransitions is the allowed forward-path transition table.
// The reject transition (ready_for_signature -> pending_client_completion)
// is the only rewind; cancellation is handled separately by CanTransition.
var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusDraft:             {ContractStatusPendingCompletion, ContractStatusReadyForSignature},
	ContractStatusPendingCompletion: {ContractStatusReadyForSignature},
	ContractStatusReadyForSignature: {ContractStatusSentToDocuSign, ContractStatusPendingCompletion},
	ContractStatusSentToDocuSign:    {ContractStatusDelivered, ContractStatusClientSigned},
	ContractStatusDelivered:         {ContractStatusClientSigned},
	ContractStatusClientSigned:      {ContractStatusFullyExecuted},
	ContractStatusFullyExecuted:     {},
	ContractStatusCancelled:         {},
}

// ValidContractStatus reports whether s is a known contract status
func ValidContractStatus(s ContractStatus) bool {
	_, ok := contractTransitions[s]
	return ok
}

// CanTransition reports whether a contract may move from one status to another.
// Any non-cancelled status may transition to cancelled via explicit admin action.
func CanTransition(from, to ContractStatus) bool {
	if !ValidContractStatus(from) || !ValidContractStatus(to) {
		return false
	}
	if to == ContractStatusCancelled {
		return from != ContractStatusCancelled
	}
	for _, next := range contractTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no forward transition remains from s
func (s ContractStatus) IsTerminal() bool {
	return s == ContractStatusFullyExecuted || s == ContractStatusCancelled
}

// HuntContract represents one hunting-trip agreement between one client and
// one outfitter, optionally tied to a calendar hunt.
// Contracts are never physically deleted; cancellation is a status value.
type HuntContract struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OutfitterID uuid.UUID  `json:"outfitter_id" gorm:"type:uuid;not null;index"`
	HuntID      *uuid.UUID `json:"hunt_id" gorm:"type:uuid;index"`
	ClientEmail string     `json:"client_email" gorm:"size:255;not null;index"`

	// Content is the agreement text rendered from the outfitter's template
	Content string         `json:"content" gorm:"type:text"`
	Status  ContractStatus `json:"status" gorm:"size:50;not null;default:'draft';index"`

	// Client-submitted completion payload (species, unit, weapon, dates, camp, ...)
	CompletionData    JSONB      `json:"completion_data" gorm:"type:jsonb"`
	ClientCompletedAt *time.Time `json:"client_completed_at"`
	ReviewNotes       string     `json:"review_notes" gorm:"type:text"`

	// E-signature provider linkage. Mock envelopes carry the "mock-" prefix
	// and are signed via the in-app typed-name path.
	EnvelopeID        string     `json:"envelope_id,omitempty" gorm:"size:255;index"`
	ProviderStatus    string     `json:"provider_status,omitempty" gorm:"size:50"`
	ClientSignedAt    *time.Time `json:"client_signed_at"`
	AdminSignedAt     *time.Time `json:"admin_signed_at"`
	ClientSignedName  string     `json:"client_signed_name,omitempty" gorm:"size:255"`
	AdminSignedName   string     `json:"admin_signed_name,omitempty" gorm:"size:255"`
	SignedDocumentURL string     `json:"signed_document_url,omitempty" gorm:"size:1024"`

	// Guide fee billed to the client on full execution, in cents
	GuideFeeCents int64 `json:"guide_fee_cents" gorm:"default:0"`

	CancelledAt *time.Time `json:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Outfitter *Outfitter `json:"outfitter,omitempty" gorm:"foreignKey:OutfitterID"`
	Hunt      *Hunt      `json:"hunt,omitempty" gorm:"foreignKey:HuntID"`
}

// TableName specifies the table name for HuntContract
func (HuntContract) TableName() string {
	return "hunt_contracts"
}

// BeforeCreate hook
func (c *HuntContract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ContractStatusDraft
	}
	return nil
}

// FullySigned reports whether both the client and the outfitter admin have signed
func (c *HuntContract) FullySigned() bool {
	return c.ClientSignedAt != nil && c.AdminSignedAt != nil
}

// MockEnvelopePrefix marks envelope ids assigned when no signing provider is
// configured; such contracts are signed via the typed-name path.
const MockEnvelopePrefix = "mock-"

// HasMockEnvelope reports whether the contract uses the in-app signing fallback
func (c *HuntContract) HasMockEnvelope() bool {
	return len(c.EnvelopeID) > len(MockEnvelopePrefix) && c.EnvelopeID[:len(MockEnvelopePrefix)] == MockEnvelopePrefix
}
