package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes over the repository interfaces. They mimic the behaviors
// the services depend on: not-found conventions, the payment item unique
// constraint, and envelope lookups.

type fakeContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*models.HuntContract
	updateErr error
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[uuid.UUID]*models.HuntContract)}
}

func (r *fakeContractRepo) put(contract *models.HuntContract) *models.HuntContract {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	cp := *contract
	r.mu.Lock()
	r.contracts[contract.ID] = &cp
	r.mu.Unlock()
	return contract
}

func (r *fakeContractRepo) Create(ctx context.Context, contract *models.HuntContract) error {
	if contract.Status == "" {
		contract.Status = models.ContractStatusDraft
	}
	r.put(contract)
	return nil
}

func (r *fakeContractRepo) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.HuntContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contract, ok := r.contracts[id]
	if !ok || contract.OutfitterID != outfitterID {
		return nil, fmt.Errorf("contract %s: %w", id, gorm.ErrRecordNotFound)
	}
	cp := *contract
	return &cp, nil
}

func (r *fakeContractRepo) GetByEnvelopeID(ctx context.Context, envelopeID string) (*models.HuntContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, contract := range r.contracts {
		if contract.EnvelopeID == envelopeID {
			cp := *contract
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeContractRepo) Update(ctx context.Context, contract *models.HuntContract) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.put(contract)
	return nil
}

func (r *fakeContractRepo) List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]models.HuntContract, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.HuntContract
	for _, contract := range r.contracts {
		if contract.OutfitterID != outfitterID {
			continue
		}
		if status, ok := filters["status"]; ok && string(contract.Status) != status {
			continue
		}
		out = append(out, *contract)
	}
	return out, int64(len(out)), nil
}

func (r *fakeContractRepo) ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]models.HuntContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.HuntContract
	for _, contract := range r.contracts {
		if contract.OutfitterID == outfitterID && strings.EqualFold(contract.ClientEmail, email) {
			out = append(out, *contract)
		}
	}
	return out, nil
}

func (r *fakeContractRepo) CountActiveForHunt(ctx context.Context, outfitterID, huntID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, contract := range r.contracts {
		if contract.OutfitterID == outfitterID && contract.HuntID != nil && *contract.HuntID == huntID && contract.Status != models.ContractStatusCancelled {
			count++
		}
	}
	return count, nil
}

type fakePaymentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.PaymentItem
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{items: make(map[uuid.UUID]*models.PaymentItem)}
}

func (r *fakePaymentRepo) CreateForContract(ctx context.Context, item *models.PaymentItem) (bool, *models.PaymentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ContractID != nil && item.ContractID != nil && *existing.ContractID == *item.ContractID {
			cp := *existing
			return false, &cp, nil
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	r.items[item.ID] = &cp
	return true, nil, nil
}

func (r *fakePaymentRepo) Create(ctx context.Context, item *models.PaymentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.PaymentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.OutfitterID != outfitterID {
		return nil, fmt.Errorf("payment item %s: %w", id, gorm.ErrRecordNotFound)
	}
	cp := *item
	return &cp, nil
}

func (r *fakePaymentRepo) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.PaymentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ContractID != nil && *item.ContractID == contractID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, item *models.PaymentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, status string, page, pageSize int) ([]models.PaymentItem, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentItem
	for _, item := range r.items {
		if item.OutfitterID != outfitterID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]models.PaymentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentItem
	for _, item := range r.items {
		if item.OutfitterID == outfitterID && strings.EqualFold(item.ClientEmail, email) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeHuntRepo struct {
	mu    sync.Mutex
	hunts map[uuid.UUID]*models.Hunt
}

func newFakeHuntRepo() *fakeHuntRepo {
	return &fakeHuntRepo{hunts: make(map[uuid.UUID]*models.Hunt)}
}

func (r *fakeHuntRepo) Create(ctx context.Context, hunt *models.Hunt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hunt.ID == uuid.Nil {
		hunt.ID = uuid.New()
	}
	cp := *hunt
	r.hunts[hunt.ID] = &cp
	return nil
}

func (r *fakeHuntRepo) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.Hunt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hunt, ok := r.hunts[id]
	if !ok || hunt.OutfitterID != outfitterID {
		return nil, fmt.Errorf("hunt %s: %w", id, gorm.ErrRecordNotFound)
	}
	cp := *hunt
	return &cp, nil
}

func (r *fakeHuntRepo) Update(ctx context.Context, hunt *models.Hunt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *hunt
	r.hunts[hunt.ID] = &cp
	return nil
}

func (r *fakeHuntRepo) List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]models.Hunt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Hunt
	for _, hunt := range r.hunts {
		if hunt.OutfitterID == outfitterID {
			out = append(out, *hunt)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeHuntRepo) ListByGuide(ctx context.Context, outfitterID, guideID uuid.UUID) ([]models.Hunt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Hunt
	for _, hunt := range r.hunts {
		if hunt.OutfitterID == outfitterID && hunt.GuideID != nil && *hunt.GuideID == guideID {
			out = append(out, *hunt)
		}
	}
	return out, nil
}

func (r *fakeHuntRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hunts)
}

type fakeMembershipRepo struct {
	mu          sync.Mutex
	memberships map[string]*models.OutfitterMembership
	outfitters  map[uuid.UUID]*models.Outfitter
	activity    []models.OutfitterActivityLog
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		memberships: make(map[string]*models.OutfitterMembership),
		outfitters:  make(map[uuid.UUID]*models.Outfitter),
	}
}

func membershipKey(userID, outfitterID uuid.UUID) string {
	return userID.String() + "/" + outfitterID.String()
}

func (r *fakeMembershipRepo) GetMembership(ctx context.Context, userID, outfitterID uuid.UUID) (*models.OutfitterMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[membershipKey(userID, outfitterID)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMembershipRepo) GetMembershipByEmail(ctx context.Context, email string, outfitterID uuid.UUID) (*models.OutfitterMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.OutfitterID == outfitterID && strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) CreateMembership(ctx context.Context, membership *models.OutfitterMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	cp := *membership
	r.memberships[membershipKey(membership.UserID, membership.OutfitterID)] = &cp
	return nil
}

func (r *fakeMembershipRepo) UpdateMembership(ctx context.Context, membership *models.OutfitterMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.memberships {
		if m.ID == membership.ID {
			delete(r.memberships, key)
			break
		}
	}
	cp := *membership
	r.memberships[membershipKey(membership.UserID, membership.OutfitterID)] = &cp
	return nil
}

func (r *fakeMembershipRepo) ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, role string) ([]models.OutfitterMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OutfitterMembership
	for _, m := range r.memberships {
		if m.OutfitterID != outfitterID {
			continue
		}
		if role != "" && m.Role != role {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMembershipRepo) GetByInvitationToken(ctx context.Context, token string) (*models.OutfitterMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.InvitationToken == token {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) UpdateLastAccessed(ctx context.Context, userID, outfitterID uuid.UUID) error {
	return nil
}

func (r *fakeMembershipRepo) GetOutfitterByID(ctx context.Context, outfitterID uuid.UUID) (*models.Outfitter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outfitters[outfitterID]
	if !ok {
		return nil, fmt.Errorf("outfitter %s: %w", outfitterID, gorm.ErrRecordNotFound)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeMembershipRepo) GetOutfitterBySlug(ctx context.Context, slug string) (*models.Outfitter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outfitters {
		if o.Slug == slug {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("outfitter %s: %w", slug, gorm.ErrRecordNotFound)
}

func (r *fakeMembershipRepo) LogActivity(ctx context.Context, entry *models.OutfitterActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity = append(r.activity, *entry)
	return nil
}

type publishedEvent struct {
	eventType string
	payload   interface{}
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeEvents) PublishContractEvent(eventType string, contract *models.HuntContract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType, contract})
	return nil
}

func (f *fakeEvents) PublishPaymentItemCreated(item *models.PaymentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{"payment_item.created", item})
	return nil
}

func (f *fakeEvents) PublishHuntProjected(hunt *models.Hunt, contractID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{"hunt.projected", hunt})
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.eventType
	}
	return out
}

type fakeProvider struct {
	configured   bool
	envelopes    int
	createErr    error
	recipientURL string
}

func (p *fakeProvider) Configured() bool {
	return p.configured
}

func (p *fakeProvider) CreateEnvelope(ctx context.Context, req models.EnvelopeRequest) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.envelopes++
	return fmt.Sprintf("env-%d", p.envelopes), nil
}

func (p *fakeProvider) CreateRecipientView(ctx context.Context, envelopeID string, signer models.EnvelopeSigner, returnURL string) (string, error) {
	if p.recipientURL == "" {
		return "", errors.New("no session")
	}
	return p.recipientURL, nil
}

// Shared identities used across the service tests
var (
	testOutfitterID = uuid.New()
	testAdminID     = uuid.New()
	testClientID    = uuid.New()
)

func adminContext() TenantContext {
	return TenantContext{
		OutfitterID: testOutfitterID,
		UserID:      testAdminID,
		Email:       "admin@highcountry.example",
		Role:        models.RoleAdmin,
	}
}

func clientContext(email string) TenantContext {
	return TenantContext{
		OutfitterID: testOutfitterID,
		UserID:      testClientID,
		Email:       email,
		Role:        models.RoleClient,
	}
}

func seedContract(repo *fakeContractRepo, status models.ContractStatus, mutate func(*models.HuntContract)) *models.HuntContract {
	contract := &models.HuntContract{
		ID:          uuid.New(),
		OutfitterID: testOutfitterID,
		ClientEmail: "hunter@example.com",
		Content:     "agreement text",
		Status:      status,
	}
	if mutate != nil {
		mutate(contract)
	}
	repo.put(contract)
	return contract
}

func signedTimes(contract *models.HuntContract) {
	now := time.Now()
	contract.ClientSignedAt = &now
	contract.AdminSignedAt = &now
}
