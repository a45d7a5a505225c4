package repository

import (
	"context"
	"fmt"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractRepository handles hunt contract database operations
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.HuntContract) error {
	if err := r.db.WithContext(ctx).Create(contract).Error; err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// GetByID retrieves a contract scoped to an outfitter
func (r *ContractRepository) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.HuntContract, error) {
	var contract models.HuntContract
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND id = ?", outfitterID, id).
		First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("contract not found: %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return &contract, nil
}

// GetByEnvelopeID looks up a contract by its signature provider envelope id.
// Returns (nil, nil) when no contract matches so webhook handlers can
// acknowledge unknown envelopes without side effects.
func (r *ContractRepository) GetByEnvelopeID(ctx context.Context, envelopeID string) (*models.HuntContract, error) {
	var contract models.HuntContract
	err := r.db.WithContext(ctx).Where("envelope_id = ?", envelopeID).First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contract by envelope: %w", err)
	}
	return &contract, nil
}

// Update saves contract changes
func (r *ContractRepository) Update(ctx context.Context, contract *models.HuntContract) error {
	if err := r.db.WithContext(ctx).Save(contract).Error; err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return nil
}

// List retrieves contracts for an outfitter with optional filters and pagination
func (r *ContractRepository) List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]models.HuntContract, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.HuntContract{}).Where("outfitter_id = ?", outfitterID)

	for field, value := range filters {
		switch field {
		case "status":
			query = query.Where("status = ?", value)
		case "client_email":
			query = query.Where("client_email = ?", value)
		case "hunt_id":
			query = query.Where("hunt_id = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var contracts []models.HuntContract
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&contracts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, total, nil
}

// ListByClientEmail retrieves a client's contracts for the client portal
func (r *ContractRepository) ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]models.HuntContract, error) {
	var contracts []models.HuntContract
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND client_email = ?", outfitterID, email).
		Order("created_at DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list client contracts: %w", err)
	}
	return contracts, nil
}

// CountActiveForHunt counts non-cancelled contracts referencing a hunt.
// Uniqueness per (outfitter, hunt) is not DB-enforced; callers use this to
// warn when a duplicate is about to be created.
func (r *ContractRepository) CountActiveForHunt(ctx context.Context, outfitterID, huntID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.HuntContract{}).
		Where("outfitter_id = ? AND hunt_id = ? AND status != ?", outfitterID, huntID, models.ContractStatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count contracts for hunt: %w", err)
	}
	return count, nil
}
