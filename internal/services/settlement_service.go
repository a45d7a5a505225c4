package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"outfitter-service/internal/config"
	"outfitter-service/internal/metrics"
	"outfitter-service/internal/models"

	"github.com/google/uuid"
)

// SettlementService derives payment obligations from executed contracts.
// Creation is idempotent: webhook redelivery, manual status edits and the
// admin signing endpoint all funnel into the same existence-checked insert,
// backed by the unique index on payment_items.contract_id.
type SettlementService struct {
	paymentRepo models.PaymentItemRepository
	cfg         config.BillingConfig
	events      models.EventPublisher
	metrics     *metrics.Metrics
}

// NewSettlementService creates a new settlement service
func NewSettlementService(paymentRepo models.PaymentItemRepository, cfg config.BillingConfig) *SettlementService {
	return &SettlementService{
		paymentRepo: paymentRepo,
		cfg:         cfg,
	}
}

// SetEventPublisher wires the NATS publisher for payment events
func (s *SettlementService) SetEventPublisher(events models.EventPublisher) {
	s.events = events
}

// SetMetrics wires the Prometheus collectors
func (s *SettlementService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// CreateGuideFeeItem creates the guide fee payment item for an executed
// contract exactly once. Returns the item whether it was created now or
// already existed.
func (s *SettlementService) CreateGuideFeeItem(ctx context.Context, contract *models.HuntContract) (*models.PaymentItem, error) {
	if !contract.FullySigned() {
		return nil, NewInvalidStateError("contract", string(contract.Status), "settlement requires both signatures")
	}
	if contract.GuideFeeCents <= 0 {
		// Zero-fee contracts (comped hunts) produce no billable obligation
		log.Printf("Contract %s has no guide fee; skipping settlement", contract.ID)
		return nil, nil
	}

	subtotal := contract.GuideFeeCents
	platformFee := subtotal * s.cfg.PlatformFeeBasisPoints / 10000
	dueDate := time.Now().AddDate(0, 0, s.cfg.PaymentDueDays)

	contractID := contract.ID
	item := &models.PaymentItem{
		OutfitterID:      contract.OutfitterID,
		ClientEmail:      contract.ClientEmail,
		ContractID:       &contractID,
		HuntID:           contract.HuntID,
		ItemType:         models.PaymentItemTypeGuideFee,
		Description:      fmt.Sprintf("Guide fee for contract %s", contract.ID),
		SubtotalCents:    subtotal,
		PlatformFeeCents: platformFee,
		TotalCents:       subtotal + platformFee,
		Status:           models.PaymentStatusUnpaid,
		DueDate:          &dueDate,
	}

	created, existing, err := s.paymentRepo.CreateForContract(ctx, item)
	if err != nil {
		s.recordOutcome("error")
		return nil, err
	}
	if !created {
		s.recordOutcome("duplicate")
		log.Printf("Settlement for contract %s already exists (payment item %s)", contract.ID, existing.ID)
		return existing, nil
	}

	s.recordOutcome("created")
	if s.events != nil {
		if err := s.events.PublishPaymentItemCreated(item); err != nil {
			log.Printf("Warning: failed to publish payment_item.created for %s: %v", item.ID, err)
		}
	}
	return item, nil
}

// ApplyPayment applies a received amount to a payment item and re-derives
// its status. Admin-only; the actual charge happens in the external payments
// component, this records the result.
func (s *SettlementService) ApplyPayment(ctx context.Context, tc TenantContext, itemID uuid.UUID, amountCents int64) (*models.PaymentItem, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, NewValidationError("amount_cents", "payment amount must be positive")
	}

	item, err := s.paymentRepo.GetByID(ctx, tc.OutfitterID, itemID)
	if err != nil {
		return nil, err
	}

	item.AmountPaidCents += amountCents
	item.ReconcileStatus()

	if err := s.paymentRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem retrieves one payment item. Clients may only see their own.
func (s *SettlementService) GetItem(ctx context.Context, tc TenantContext, itemID uuid.UUID) (*models.PaymentItem, error) {
	item, err := s.paymentRepo.GetByID(ctx, tc.OutfitterID, itemID)
	if err != nil {
		return nil, err
	}
	if !tc.IsStaff() && !strings.EqualFold(item.ClientEmail, tc.Email) {
		return nil, NewAuthorizationError("payment item belongs to another client")
	}
	return item, nil
}

// ListItems retrieves payment items for the outfitter. Staff only.
func (s *SettlementService) ListItems(ctx context.Context, tc TenantContext, status string, page, pageSize int) ([]models.PaymentItem, int64, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.paymentRepo.ListByOutfitter(ctx, tc.OutfitterID, status, page, pageSize)
}

// ListForClient retrieves the caller's own payment items
func (s *SettlementService) ListForClient(ctx context.Context, tc TenantContext) ([]models.PaymentItem, error) {
	return s.paymentRepo.ListByClientEmail(ctx, tc.OutfitterID, tc.Email)
}

// recordOutcome increments the settlement metric when wired
func (s *SettlementService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSettlement(outcome)
	}
}
