package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment item statuses
const (
	PaymentStatusUnpaid        = "unpaid"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusPaid          = "paid"
)

// Payment item types
const (
	PaymentItemTypeGuideFee = "guide_fee"
	PaymentItemTypeDeposit  = "deposit"
	PaymentItemTypeOther    = "other"
)

// PaymentItem is a billable obligation owed by a client to an outfitter.
// At most one item may reference a given contract; the unique index on
// contract_id is the last line of defense against duplicate settlement
// triggers (webhook redelivery, manual status edits).
type PaymentItem struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OutfitterID uuid.UUID  `json:"outfitter_id" gorm:"type:uuid;not null;index"`
	ClientEmail string     `json:"client_email" gorm:"size:255;not null;index"`
	ContractID  *uuid.UUID `json:"contract_id" gorm:"type:uuid;uniqueIndex:idx_payment_items_contract,where:contract_id IS NOT NULL"`
	HuntID      *uuid.UUID `json:"hunt_id" gorm:"type:uuid;index"`

	ItemType    string `json:"item_type" gorm:"size:50;not null" validate:"oneof=guide_fee deposit other"`
	Description string `json:"description" gorm:"size:500"`

	// All amounts in cents. Total must equal subtotal + platform fee.
	SubtotalCents    int64 `json:"subtotal_cents" gorm:"not null"`
	PlatformFeeCents int64 `json:"platform_fee_cents" gorm:"not null;default:0"`
	TotalCents       int64 `json:"total_cents" gorm:"not null"`
	AmountPaidCents  int64 `json:"amount_paid_cents" gorm:"not null;default:0"`

	Status  string     `json:"status" gorm:"size:20;not null;default:'unpaid';index" validate:"oneof=unpaid partially_paid paid"`
	DueDate *time.Time `json:"due_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Outfitter *Outfitter    `json:"outfitter,omitempty" gorm:"foreignKey:OutfitterID"`
	Contract  *HuntContract `json:"contract,omitempty" gorm:"foreignKey:ContractID"`
}

// TableName specifies the table name for PaymentItem
func (PaymentItem) TableName() string {
	return "payment_items"
}

// BeforeCreate hook
func (p *PaymentItem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TotalCents == 0 {
		p.TotalCents = p.SubtotalCents + p.PlatformFeeCents
	}
	return nil
}

// ReconcileStatus re-derives status from amount paid vs total:
// paid iff amount_paid >= total, partially_paid when anything has been paid.
func (p *PaymentItem) ReconcileStatus() {
	switch {
	case p.AmountPaidCents >= p.TotalCents && p.TotalCents > 0:
		p.Status = PaymentStatusPaid
	case p.AmountPaidCents > 0:
		p.Status = PaymentStatusPartiallyPaid
	default:
		p.Status = PaymentStatusUnpaid
	}
}
