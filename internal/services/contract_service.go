package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
)

// ContractService handles hunt contract lifecycle business logic.
// All status changes pass through the central transition table; the
// fully-executed side effects (settlement, calendar projection) are
// consolidated behind OnFullyExecuted so the idempotency check lives in
// exactly one place.
type ContractService struct {
	contractRepo  models.ContractRepository
	settlementSvc *SettlementService
	calendarSvc   *CalendarService
	membershipSvc *MembershipService
	events        models.EventPublisher
}

// NewContractService creates a new contract service
func NewContractService(
	contractRepo models.ContractRepository,
	settlementSvc *SettlementService,
	calendarSvc *CalendarService,
	membershipSvc *MembershipService,
) *ContractService {
	return &ContractService{
		contractRepo:  contractRepo,
		settlementSvc: settlementSvc,
		calendarSvc:   calendarSvc,
		membershipSvc: membershipSvc,
	}
}

// SetEventPublisher wires the NATS publisher for contract lifecycle events
func (s *ContractService) SetEventPublisher(events models.EventPublisher) {
	s.events = events
}

// CreateContractRequest represents a request to create a contract
type CreateContractRequest struct {
	HuntID          *uuid.UUID `json:"hunt_id,omitempty"`
	ClientEmail     string     `json:"client_email" validate:"required,email"`
	TemplateContent string     `json:"template_content" validate:"required"`
	GuideFeeCents   int64      `json:"guide_fee_cents"`
	// AsDraft keeps the contract in draft instead of sending it straight to
	// the client for completion
	AsDraft bool `json:"as_draft"`
}

// Create generates a new contract from a rendered template. Admin-only.
func (s *ContractService) Create(ctx context.Context, tc TenantContext, req *CreateContractRequest) (*models.HuntContract, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.ClientEmail == "" {
		return nil, NewValidationError("client_email", "client email is required")
	}
	if req.TemplateContent == "" {
		return nil, NewValidationError("template_content", "contract content is required")
	}

	// Uniqueness of (outfitter, hunt) is not enforced; two admins acting
	// concurrently can still create duplicates. Warn so the duplicate shows
	// up in the logs rather than failing the second admin.
	if req.HuntID != nil {
		count, err := s.contractRepo.CountActiveForHunt(ctx, tc.OutfitterID, *req.HuntID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			log.Printf("Warning: hunt %s already has %d active contract(s) for outfitter %s", req.HuntID, count, tc.OutfitterID)
		}
	}

	status := models.ContractStatusPendingCompletion
	if req.AsDraft {
		status = models.ContractStatusDraft
	}

	contract := &models.HuntContract{
		OutfitterID:   tc.OutfitterID,
		HuntID:        req.HuntID,
		ClientEmail:   strings.ToLower(req.ClientEmail),
		Content:       req.TemplateContent,
		Status:        status,
		GuideFeeCents: req.GuideFeeCents,
	}
	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.membershipSvc.LogActivity(ctx, tc, "contract.created", "contract", &contract.ID, map[string]interface{}{
		"client_email": contract.ClientEmail,
		"status":       contract.Status,
	})
	return contract, nil
}

// Get retrieves a contract. Clients may only see their own contracts.
func (s *ContractService) Get(ctx context.Context, tc TenantContext, contractID uuid.UUID) (*models.HuntContract, error) {
	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	if !tc.IsStaff() && !strings.EqualFold(contract.ClientEmail, tc.Email) {
		return nil, NewAuthorizationError("contract belongs to another client")
	}
	return contract, nil
}

// List retrieves contracts for the outfitter. Staff only.
func (s *ContractService) List(ctx context.Context, tc TenantContext, filters map[string]interface{}, page, pageSize int) ([]models.HuntContract, int64, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin, models.RoleGuide); err != nil {
		return nil, 0, err
	}
	return s.contractRepo.List(ctx, tc.OutfitterID, filters, page, pageSize)
}

// ListForClient retrieves the caller's own contracts (client portal)
func (s *ContractService) ListForClient(ctx context.Context, tc TenantContext) ([]models.HuntContract, error) {
	return s.contractRepo.ListByClientEmail(ctx, tc.OutfitterID, strings.ToLower(tc.Email))
}

// SubmitCompletion records the client's completion payload. The caller's
// email must match the contract's client email; allowed from draft or
// pending_client_completion. The contract stays pending until an admin acts.
func (s *ContractService) SubmitCompletion(ctx context.Context, tc TenantContext, contractID uuid.UUID, completionData map[string]interface{}) (*models.HuntContract, error) {
	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(contract.ClientEmail, tc.Email) {
		return nil, NewAuthorizationError("completion may only be submitted by the contract's client")
	}
	if contract.Status != models.ContractStatusDraft && contract.Status != models.ContractStatusPendingCompletion {
		return nil, NewInvalidStateError("contract", string(contract.Status), "contract is not awaiting client completion")
	}
	if len(completionData) == 0 {
		return nil, NewValidationError("completion_data", "completion data is required")
	}

	payload, err := models.NewJSONB(completionData)
	if err != nil {
		return nil, NewValidationError("completion_data", "completion data is not valid JSON")
	}

	now := time.Now()
	contract.CompletionData = payload
	contract.ClientCompletedAt = &now
	if contract.Status == models.ContractStatusDraft {
		contract.Status = models.ContractStatusPendingCompletion
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// Review actions
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// Review approves or rejects a client's completion submission. Admin-only.
// Reject rewinds to pending_client_completion and clears the completion data;
// the client resubmits from scratch.
func (s *ContractService) Review(ctx context.Context, tc TenantContext, contractID uuid.UUID, action, notes string) (*models.HuntContract, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusPendingCompletion {
		return nil, NewInvalidStateError("contract", string(contract.Status), "contract is not in a reviewable state")
	}
	if contract.ClientCompletedAt == nil {
		return nil, NewInvalidStateError("contract", string(contract.Status), "client has not submitted completion data")
	}

	switch action {
	case ReviewActionApprove:
		contract.Status = models.ContractStatusReadyForSignature
	case ReviewActionReject:
		contract.CompletionData = nil
		contract.ClientCompletedAt = nil
	default:
		return nil, NewValidationError("action", fmt.Sprintf("unknown review action %q", action))
	}
	contract.ReviewNotes = notes

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.membershipSvc.LogActivity(ctx, tc, "contract.reviewed", "contract", &contract.ID, map[string]interface{}{
		"action": action,
		"status": contract.Status,
	})
	return contract, nil
}

// UpdateStatus moves a contract to a new status. Admin-only; the transition
// table rejects illegal moves. Entering a signed status backfills the unset
// signature timestamps; entering fully_executed fires the executed hook.
func (s *ContractService) UpdateStatus(ctx context.Context, tc TenantContext, contractID uuid.UUID, newStatus models.ContractStatus) (*models.HuntContract, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !models.ValidContractStatus(newStatus) {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	// Repeating the current status is a no-op, but terminal states still
	// refuse: a second cancel or execute must surface as an error
	if contract.Status == newStatus && !models.IsTerminal(contract.Status) {
		return contract, nil
	}
	if !models.CanTransition(contract.Status, newStatus) {
		return nil, NewInvalidStateError("contract", string(contract.Status), fmt.Sprintf("cannot transition to %q", newStatus))
	}

	now := time.Now()
	contract.Status = newStatus
	switch newStatus {
	case models.ContractStatusClientSigned:
		if contract.ClientSignedAt == nil {
			contract.ClientSignedAt = &now
		}
	case models.ContractStatusFullyExecuted:
		if contract.AdminSignedAt == nil {
			contract.AdminSignedAt = &now
		}
		if contract.ClientSignedAt == nil {
			contract.ClientSignedAt = &now
		}
	case models.ContractStatusCancelled:
		contract.CancelledAt = &now
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}

	s.membershipSvc.LogActivity(ctx, tc, "contract.status_updated", "contract", &contract.ID, map[string]interface{}{
		"status": newStatus,
	})

	switch newStatus {
	case models.ContractStatusClientSigned:
		s.publish(EventContractClientSigned, contract)
	case models.ContractStatusFullyExecuted:
		s.OnFullyExecuted(ctx, contract)
	case models.ContractStatusCancelled:
		s.publish(EventContractCancelled, contract)
	}
	return contract, nil
}

// Cancel moves a contract to cancelled from any non-terminal state. Admin-only.
func (s *ContractService) Cancel(ctx context.Context, tc TenantContext, contractID uuid.UUID) (*models.HuntContract, error) {
	return s.UpdateStatus(ctx, tc, contractID, models.ContractStatusCancelled)
}

// Event subjects re-exported for publishing without importing the nats package
const (
	EventContractSent          = "contract.sent"
	EventContractClientSigned  = "contract.client_signed"
	EventContractFullyExecuted = "contract.fully_executed"
	EventContractCancelled     = "contract.cancelled"
)

// OnFullyExecuted is the single consolidated hook for a contract reaching
// full execution. It is reached from manual status edits, the admin
// typed-name signing path and webhook delivery, and is safe to run more than
// once: settlement creation and calendar projection are both idempotent.
func (s *ContractService) OnFullyExecuted(ctx context.Context, contract *models.HuntContract) {
	if s.settlementSvc != nil {
		if _, err := s.settlementSvc.CreateGuideFeeItem(ctx, contract); err != nil {
			log.Printf("Warning: settlement trigger failed for contract %s: %v", contract.ID, err)
		}
	}
	if s.calendarSvc != nil {
		if _, err := s.calendarSvc.ProjectFromContract(ctx, contract); err != nil {
			log.Printf("Warning: calendar projection failed for contract %s: %v", contract.ID, err)
		}
	}
	s.publish(EventContractFullyExecuted, contract)
}

// publish emits a contract event when a publisher is wired
func (s *ContractService) publish(eventType string, contract *models.HuntContract) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishContractEvent(eventType, contract); err != nil {
		log.Printf("Warning: failed to publish %s for contract %s: %v", eventType, contract.ID, err)
	}
}
