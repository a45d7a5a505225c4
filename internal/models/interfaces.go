package models

import (
	"context"

	"github.com/google/uuid"
)

// ContractRepository defines the interface for hunt contract persistence
type ContractRepository interface {
	Create(ctx context.Context, contract *HuntContract) error
	GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*HuntContract, error)
	GetByEnvelopeID(ctx context.Context, envelopeID string) (*HuntContract, error)
	Update(ctx context.Context, contract *HuntContract) error
	List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]HuntContract, int64, error)
	ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]HuntContract, error)
	CountActiveForHunt(ctx context.Context, outfitterID, huntID uuid.UUID) (int64, error)
}

// PaymentItemRepository defines the interface for payment item persistence
type PaymentItemRepository interface {
	// CreateForContract inserts a payment item referencing a contract.
	// Returns created=false with the existing item when one already references
	// the same contract (application-level check plus the unique index).
	CreateForContract(ctx context.Context, item *PaymentItem) (created bool, existing *PaymentItem, err error)
	Create(ctx context.Context, item *PaymentItem) error
	GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*PaymentItem, error)
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*PaymentItem, error)
	Update(ctx context.Context, item *PaymentItem) error
	ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, status string, page, pageSize int) ([]PaymentItem, int64, error)
	ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]PaymentItem, error)
}

// HuntRepository defines the interface for hunt (calendar event) persistence
type HuntRepository interface {
	Create(ctx context.Context, hunt *Hunt) error
	GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*Hunt, error)
	Update(ctx context.Context, hunt *Hunt) error
	List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]Hunt, int64, error)
	ListByGuide(ctx context.Context, outfitterID, guideID uuid.UUID) ([]Hunt, error)
}

// MembershipRepository defines the interface for outfitter membership persistence
type MembershipRepository interface {
	GetMembership(ctx context.Context, userID, outfitterID uuid.UUID) (*OutfitterMembership, error)
	GetMembershipByEmail(ctx context.Context, email string, outfitterID uuid.UUID) (*OutfitterMembership, error)
	CreateMembership(ctx context.Context, membership *OutfitterMembership) error
	UpdateMembership(ctx context.Context, membership *OutfitterMembership) error
	ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, role string) ([]OutfitterMembership, error)
	GetByInvitationToken(ctx context.Context, token string) (*OutfitterMembership, error)
	UpdateLastAccessed(ctx context.Context, userID, outfitterID uuid.UUID) error
	GetOutfitterByID(ctx context.Context, outfitterID uuid.UUID) (*Outfitter, error)
	GetOutfitterBySlug(ctx context.Context, slug string) (*Outfitter, error)
	LogActivity(ctx context.Context, entry *OutfitterActivityLog) error
}

// SignatureProvider defines the interface for the external e-signature service.
// Implemented by the DocuSign client; a mock envelope path is used when the
// provider is unconfigured.
type SignatureProvider interface {
	Configured() bool
	CreateEnvelope(ctx context.Context, req EnvelopeRequest) (envelopeID string, err error)
	CreateRecipientView(ctx context.Context, envelopeID string, signer EnvelopeSigner, returnURL string) (signingURL string, err error)
}

// EnvelopeSigner identifies one signer on an envelope
type EnvelopeSigner struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"` // "client" or "admin"
}

// EnvelopeRequest is the payload for creating a signing envelope
type EnvelopeRequest struct {
	ContractID   uuid.UUID        `json:"contract_id"`
	Subject      string           `json:"subject"`
	DocumentName string           `json:"document_name"`
	DocumentHTML string           `json:"document_html"`
	Signers      []EnvelopeSigner `json:"signers"`
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	PublishContractEvent(eventType string, contract *HuntContract) error
	PublishPaymentItemCreated(item *PaymentItem) error
	PublishHuntProjected(hunt *Hunt, contractID uuid.UUID) error
}
