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
	"outfitter-service/internal/redis"

	"github.com/google/uuid"
)

// ExecutedHook receives a contract the moment it reaches full execution.
// Implemented by ContractService so settlement and calendar projection run
// through one idempotent entry point no matter which path signed last.
type ExecutedHook interface {
	OnFullyExecuted(ctx context.Context, contract *models.HuntContract)
}

// Webhook processing outcomes, also used as metric labels
const (
	WebhookOutcomeApplied         = "applied"
	WebhookOutcomeDuplicate       = "duplicate"
	WebhookOutcomeStale           = "stale"
	WebhookOutcomeIgnored         = "ignored"
	WebhookOutcomeUnknownEnvelope = "unknown_envelope"
)

// webhookSeenTTL is how long processed (envelope, status) markers live in
// Redis. Past this window the database short-circuit still catches replays.
const webhookSeenTTL = 24 * time.Hour

// SignatureService bridges contracts to the e-signature provider. When no
// provider is configured contracts get mock envelopes and are signed with the
// in-app typed-name flow; every downstream transition is identical either way.
type SignatureService struct {
	contractRepo models.ContractRepository
	provider     models.SignatureProvider
	cfg          config.DocuSignConfig
	redis        *redis.Client
	metrics      *metrics.Metrics
	events       models.EventPublisher
	executedHook ExecutedHook
}

// NewSignatureService creates a new signature service
func NewSignatureService(contractRepo models.ContractRepository, provider models.SignatureProvider, cfg config.DocuSignConfig) *SignatureService {
	return &SignatureService{
		contractRepo: contractRepo,
		provider:     provider,
		cfg:          cfg,
	}
}

// SetEventPublisher wires the NATS publisher for signing events
func (s *SignatureService) SetEventPublisher(events models.EventPublisher) {
	s.events = events
}

// SetExecutedHook wires the fully-executed side effects
func (s *SignatureService) SetExecutedHook(hook ExecutedHook) {
	s.executedHook = hook
}

// SetRedisClient wires the optional webhook replay fast path
func (s *SignatureService) SetRedisClient(client *redis.Client) {
	s.redis = client
}

// SetMetrics wires the prometheus collectors
func (s *SignatureService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// providerConfigured reports whether envelopes go to the real provider
func (s *SignatureService) providerConfigured() bool {
	return s.provider != nil && s.provider.Configured()
}

// SendToProvider sends a reviewed contract out for signature. With a
// configured provider this creates a real envelope; otherwise the contract
// gets a mock envelope id and waits for typed-name signatures. A provider
// failure leaves the contract in ready_for_signature so the send can be
// retried. Admin-only.
func (s *SignatureService) SendToProvider(ctx context.Context, tc TenantContext, contractID uuid.UUID) (*models.HuntContract, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusReadyForSignature {
		return nil, NewInvalidStateError("contract", string(contract.Status), "only reviewed contracts can be sent for signature")
	}

	var envelopeID string
	if s.providerConfigured() {
		envelopeID, err = s.provider.CreateEnvelope(ctx, models.EnvelopeRequest{
			ContractID:   contract.ID,
			Subject:      fmt.Sprintf("Hunt contract for %s", contract.ClientEmail),
			DocumentName: "hunt-contract.html",
			DocumentHTML: contract.Content,
			Signers: []models.EnvelopeSigner{
				{Email: contract.ClientEmail, Name: contract.ClientEmail, Role: "client"},
				{Email: tc.Email, Name: tc.Email, Role: "admin"},
			},
		})
		if err != nil {
			return nil, NewProviderError("create envelope", err)
		}
	} else {
		envelopeID = models.MockEnvelopePrefix + uuid.New().String()
		log.Printf("Signature provider not configured, contract %s assigned mock envelope %s", contract.ID, envelopeID)
	}

	contract.EnvelopeID = envelopeID
	contract.ProviderStatus = "sent"
	contract.Status = models.ContractStatusSentToDocuSign
	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishContractEvent(EventContractSent, contract); err != nil {
			log.Printf("Warning: failed to publish %s for contract %s: %v", EventContractSent, contract.ID, err)
		}
	}
	return contract, nil
}

// GetSigningURL returns an embedded signing URL for one of the envelope's
// recipients. Both recipients are registered as embedded signers, so neither
// gets a provider email; clients may only request their own view and the
// admin view is staff-only. Mock envelopes have no provider session; those
// contracts are signed with the typed-name flow instead.
func (s *SignatureService) GetSigningURL(ctx context.Context, tc TenantContext, contractID uuid.UUID, signerRole string) (string, error) {
	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return "", err
	}

	var signer models.EnvelopeSigner
	switch signerRole {
	case "", "client":
		if !tc.IsStaff() && !strings.EqualFold(contract.ClientEmail, tc.Email) {
			return "", NewAuthorizationError("contract belongs to another client")
		}
		signer = models.EnvelopeSigner{Email: contract.ClientEmail, Name: contract.ClientEmail, Role: "client"}
	case "admin":
		if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
			return "", err
		}
		signer = models.EnvelopeSigner{Email: tc.Email, Name: tc.Email, Role: "admin"}
	default:
		return "", NewValidationError("signer_role", fmt.Sprintf("unknown signer role %q", signerRole))
	}

	if contract.EnvelopeID == "" {
		return "", NewInvalidStateError("contract", string(contract.Status), "contract has not been sent for signature")
	}
	if contract.HasMockEnvelope() {
		return "", NewInvalidStateError("contract", string(contract.Status), "contract uses in-app typed-name signing")
	}

	url, err := s.provider.CreateRecipientView(ctx, contract.EnvelopeID, signer, s.cfg.ReturnURL)
	if err != nil {
		return "", NewProviderError("create recipient view", err)
	}
	return url, nil
}

// SignTypedName records an in-app typed-name signature. Clients sign first,
// moving the contract to client_signed; staff countersign afterwards, moving
// it to fully_executed and firing the executed hook.
func (s *SignatureService) SignTypedName(ctx context.Context, tc TenantContext, contractID uuid.UUID, typedName string) (*models.HuntContract, error) {
	typedName = strings.TrimSpace(typedName)
	if typedName == "" {
		return nil, NewValidationError("typed_name", "typed name is required")
	}

	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}

	if tc.IsStaff() {
		return s.adminCountersign(ctx, contract, typedName)
	}
	return s.clientTypedSign(ctx, tc, contract, typedName)
}

func (s *SignatureService) clientTypedSign(ctx context.Context, tc TenantContext, contract *models.HuntContract, typedName string) (*models.HuntContract, error) {
	if !strings.EqualFold(contract.ClientEmail, tc.Email) {
		return nil, NewAuthorizationError("contract belongs to another client")
	}
	if contract.EnvelopeID != "" && !contract.HasMockEnvelope() {
		return nil, NewInvalidStateError("contract", string(contract.Status), "contract is out for provider signature")
	}
	if contract.Status != models.ContractStatusSentToDocuSign && contract.Status != models.ContractStatusDelivered {
		return nil, NewInvalidStateError("contract", string(contract.Status), "contract is not awaiting the client signature")
	}

	now := time.Now()
	contract.ClientSignedAt = &now
	contract.ClientSignedName = typedName
	contract.Status = models.ContractStatusClientSigned
	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishContractEvent(EventContractClientSigned, contract); err != nil {
			log.Printf("Warning: failed to publish %s for contract %s: %v", EventContractClientSigned, contract.ID, err)
		}
	}
	return contract, nil
}

func (s *SignatureService) adminCountersign(ctx context.Context, contract *models.HuntContract, typedName string) (*models.HuntContract, error) {
	if contract.Status != models.ContractStatusClientSigned {
		return nil, NewInvalidStateError("contract", string(contract.Status), "the client has not signed yet")
	}

	now := time.Now()
	// client_signed can be reached by a manual status edit that carried no
	// timestamp; an executed contract must always hold both
	if contract.ClientSignedAt == nil {
		contract.ClientSignedAt = &now
	}
	contract.AdminSignedAt = &now
	contract.AdminSignedName = typedName
	contract.Status = models.ContractStatusFullyExecuted
	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}

	if s.executedHook != nil {
		s.executedHook.OnFullyExecuted(ctx, contract)
	}
	return contract, nil
}

// ============================================================================
// Webhook processing
// ============================================================================

// WebhookPayload is the normalized envelope status notification. The handler
// accepts both the JSON connect format and the legacy XML one and maps both
// here.
type WebhookPayload struct {
	EnvelopeID  string `json:"envelope_id"`
	Status      string `json:"status"`
	SignerEmail string `json:"signer_email,omitempty"`
}

// providerStatusTargets maps normalized provider statuses to contract statuses
var providerStatusTargets = map[string]models.ContractStatus{
	"sent":      models.ContractStatusSentToDocuSign,
	"delivered": models.ContractStatusDelivered,
	"signed":    models.ContractStatusClientSigned,
	"completed": models.ContractStatusFullyExecuted,
	"declined":  models.ContractStatusCancelled,
	"voided":    models.ContractStatusCancelled,
}

// HandleWebhook applies one provider notification to its contract. Processing
// is idempotent: replays, out-of-order deliveries and notifications for
// envelopes this service never issued are all acknowledged without effect.
// The returned outcome is for logging and metrics.
func (s *SignatureService) HandleWebhook(ctx context.Context, payload *WebhookPayload) (string, error) {
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	outcome, err := s.applyWebhook(ctx, payload.EnvelopeID, status)
	if s.metrics != nil {
		label := outcome
		if err != nil {
			label = "error"
		}
		s.metrics.RecordWebhookEvent(status, label)
	}
	return outcome, err
}

func (s *SignatureService) applyWebhook(ctx context.Context, envelopeID, status string) (string, error) {
	if envelopeID == "" {
		return WebhookOutcomeIgnored, NewValidationError("envelope_id", "envelope id is required")
	}

	target, known := providerStatusTargets[status]
	if !known {
		log.Printf("Ignoring webhook with unhandled provider status %q for envelope %s", status, envelopeID)
		return WebhookOutcomeIgnored, nil
	}

	// Fast path for redelivered notifications; the status short-circuit
	// below is the durable check.
	if s.redis != nil {
		if seen, err := s.redis.WebhookSeen(ctx, envelopeID, status); err == nil && seen {
			return WebhookOutcomeDuplicate, nil
		}
	}

	contract, err := s.contractRepo.GetByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return "", err
	}
	if contract == nil {
		// Not one of ours. Acknowledge so the provider stops retrying.
		log.Printf("Webhook for unknown envelope %s acknowledged without effect", envelopeID)
		return WebhookOutcomeUnknownEnvelope, nil
	}

	if contract.Status == target {
		s.markWebhookSeen(ctx, envelopeID, status)
		return WebhookOutcomeDuplicate, nil
	}
	if !webhookTransitionAllowed(contract.Status, target) {
		// Late or out-of-order notification; the contract already moved on
		log.Printf("Webhook %q for envelope %s arrived with contract %s at %s, skipping", status, envelopeID, contract.ID, contract.Status)
		s.markWebhookSeen(ctx, envelopeID, status)
		return WebhookOutcomeStale, nil
	}

	now := time.Now()
	contract.ProviderStatus = status
	contract.Status = target
	switch target {
	case models.ContractStatusClientSigned:
		if contract.ClientSignedAt == nil {
			contract.ClientSignedAt = &now
		}
	case models.ContractStatusFullyExecuted:
		if contract.ClientSignedAt == nil {
			contract.ClientSignedAt = &now
		}
		if contract.AdminSignedAt == nil {
			contract.AdminSignedAt = &now
		}
	case models.ContractStatusCancelled:
		contract.CancelledAt = &now
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return "", err
	}
	s.markWebhookSeen(ctx, envelopeID, status)

	switch target {
	case models.ContractStatusClientSigned:
		s.publishEvent(EventContractClientSigned, contract)
	case models.ContractStatusFullyExecuted:
		if s.executedHook != nil {
			s.executedHook.OnFullyExecuted(ctx, contract)
		}
	case models.ContractStatusCancelled:
		s.publishEvent(EventContractCancelled, contract)
	}
	return WebhookOutcomeApplied, nil
}

// webhookTransitionAllowed is CanTransition plus the provider quirk that a
// "completed" notification may arrive without a preceding "signed" one.
func webhookTransitionAllowed(from, to models.ContractStatus) bool {
	if to == models.ContractStatusFullyExecuted {
		switch from {
		case models.ContractStatusSentToDocuSign, models.ContractStatusDelivered, models.ContractStatusClientSigned:
			return true
		}
		return false
	}
	return models.CanTransition(from, to)
}

func (s *SignatureService) markWebhookSeen(ctx context.Context, envelopeID, status string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.MarkWebhookSeen(ctx, envelopeID, status, webhookSeenTTL); err != nil {
		log.Printf("Warning: failed to mark webhook %s/%s as seen: %v", envelopeID, status, err)
	}
}

func (s *SignatureService) publishEvent(eventType string, contract *models.HuntContract) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishContractEvent(eventType, contract); err != nil {
		log.Printf("Warning: failed to publish %s for contract %s: %v", eventType, contract.ID, err)
	}
}
