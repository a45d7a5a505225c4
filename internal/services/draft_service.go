package services

import (
	"context"
	"log"
	"strings"
	"time"

	"outfitter-service/internal/config"
	"outfitter-service/internal/models"
	"outfitter-service/internal/redis"

	"github.com/google/uuid"
)

// DraftService autosaves a client's in-progress completion form in Redis so
// a half-filled form survives the browser session. Drafts are discarded on
// submit; the contract row is the only durable copy of completion data.
type DraftService struct {
	redis        *redis.Client
	contractRepo models.ContractRepository
	cfg          config.DraftConfig
}

// NewDraftService creates a new draft service. The Redis client may be nil,
// in which case autosave is disabled.
func NewDraftService(client *redis.Client, contractRepo models.ContractRepository, cfg config.DraftConfig) *DraftService {
	return &DraftService{
		redis:        client,
		contractRepo: contractRepo,
		cfg:          cfg,
	}
}

// Enabled reports whether draft autosave is available
func (s *DraftService) Enabled() bool {
	return s.redis != nil
}

func (s *DraftService) ttl() time.Duration {
	return time.Duration(s.cfg.ExpiryHours) * time.Hour
}

// loadOwnedContract fetches the contract and checks the caller may fill it in
func (s *DraftService) loadOwnedContract(ctx context.Context, tc TenantContext, contractID uuid.UUID) (*models.HuntContract, error) {
	contract, err := s.contractRepo.GetByID(ctx, tc.OutfitterID, contractID)
	if err != nil {
		return nil, err
	}
	if !tc.IsStaff() && !strings.EqualFold(contract.ClientEmail, tc.Email) {
		return nil, NewAuthorizationError("contract belongs to another client")
	}
	return contract, nil
}

// Save autosaves the client's partial completion form. Only contracts still
// awaiting completion accept drafts.
func (s *DraftService) Save(ctx context.Context, tc TenantContext, contractID uuid.UUID, formData map[string]interface{}) (*redis.CompletionDraft, error) {
	if !s.Enabled() {
		return nil, NewValidationError("draft", "draft autosave is not available")
	}
	contract, err := s.loadOwnedContract(ctx, tc, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusDraft && contract.Status != models.ContractStatusPendingCompletion {
		return nil, NewInvalidStateError("contract", string(contract.Status), "contract is no longer accepting completion data")
	}

	draft, err := s.redis.GetDraft(ctx, contractID.String())
	if err != nil {
		return nil, err
	}
	if draft == nil {
		draft = &redis.CompletionDraft{
			ContractID:  contractID.String(),
			OutfitterID: contract.OutfitterID.String(),
			ClientEmail: contract.ClientEmail,
		}
	}
	draft.FormData = formData
	draft.LastSavedAt = time.Now().UTC()

	if err := s.redis.SaveDraft(ctx, contractID.String(), draft, s.ttl()); err != nil {
		return nil, err
	}
	return draft, nil
}

// Get returns the caller's saved draft, or nil when none exists
func (s *DraftService) Get(ctx context.Context, tc TenantContext, contractID uuid.UUID) (*redis.CompletionDraft, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if _, err := s.loadOwnedContract(ctx, tc, contractID); err != nil {
		return nil, err
	}
	return s.redis.GetDraft(ctx, contractID.String())
}

// Discard deletes a saved draft. Called on submit and available to the client
// directly.
func (s *DraftService) Discard(ctx context.Context, tc TenantContext, contractID uuid.UUID) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.loadOwnedContract(ctx, tc, contractID); err != nil {
		return err
	}
	return s.redis.DeleteDraft(ctx, contractID.String())
}

// DiscardForContract removes a draft without an owner check, for internal
// cleanup after a successful submit.
func (s *DraftService) DiscardForContract(ctx context.Context, contractID uuid.UUID) {
	if !s.Enabled() {
		return
	}
	if err := s.redis.DeleteDraft(ctx, contractID.String()); err != nil {
		log.Printf("Warning: failed to delete draft for contract %s: %v", contractID, err)
	}
}

// ============================================================================
// Background jobs
// ============================================================================

// CleanupOrphanedDrafts drops drafts whose contracts already moved past the
// completion phase. Redis TTLs handle plain expiry; this catches contracts
// that advanced through other paths.
func (s *DraftService) CleanupOrphanedDrafts(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	ids, err := s.redis.ListDraftContractIDs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		draft, err := s.redis.GetDraft(ctx, id)
		if err != nil || draft == nil {
			continue
		}
		contractID, err := uuid.Parse(id)
		if err != nil {
			// Malformed key, drop it
			_ = s.redis.DeleteDraft(ctx, id)
			removed++
			continue
		}
		outfitterID, err := uuid.Parse(draft.OutfitterID)
		if err != nil {
			continue
		}
		contract, err := s.contractRepo.GetByID(ctx, outfitterID, contractID)
		if err != nil {
			continue
		}
		if contract.Status == models.ContractStatusDraft || contract.Status == models.ContractStatusPendingCompletion {
			continue
		}
		if err := s.redis.DeleteDraft(ctx, id); err != nil {
			log.Printf("Warning: failed to delete stale draft for contract %s: %v", id, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// SendDueReminders nudges clients whose drafts have been idle past the
// reminder interval, up to the configured maximum per draft. Delivery is a
// log line here; the notifications component consumes the same signal.
func (s *DraftService) SendDueReminders(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	ids, err := s.redis.ListDraftContractIDs(ctx)
	if err != nil {
		return 0, err
	}

	interval := time.Duration(s.cfg.ReminderInterval) * time.Hour
	sent := 0
	for _, id := range ids {
		draft, err := s.redis.GetDraft(ctx, id)
		if err != nil || draft == nil {
			continue
		}
		if draft.ReminderCount >= s.cfg.MaxReminders {
			continue
		}
		if time.Since(draft.LastSavedAt) < interval {
			continue
		}
		recent, err := s.redis.ReminderSentRecently(ctx, id, interval)
		if err != nil || recent {
			continue
		}

		log.Printf("Reminder: contract %s completion draft idle since %s (client %s, reminder %d/%d)",
			id, draft.LastSavedAt.Format(time.RFC3339), draft.ClientEmail, draft.ReminderCount+1, s.cfg.MaxReminders)

		draft.ReminderCount++
		if err := s.redis.SaveDraft(ctx, id, draft, s.ttl()); err != nil {
			log.Printf("Warning: failed to bump reminder count for draft %s: %v", id, err)
			continue
		}
		if err := s.redis.MarkReminderSent(ctx, id, s.ttl()); err != nil {
			log.Printf("Warning: failed to mark reminder sent for draft %s: %v", id, err)
		}
		sent++
	}
	return sent, nil
}
