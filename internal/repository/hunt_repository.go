package repository

import (
	"context"
	"fmt"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HuntRepository handles hunt (calendar event) database operations
type HuntRepository struct {
	db *gorm.DB
}

// NewHuntRepository creates a new hunt repository
func NewHuntRepository(db *gorm.DB) *HuntRepository {
	return &HuntRepository{db: db}
}

// Create inserts a new hunt
func (r *HuntRepository) Create(ctx context.Context, hunt *models.Hunt) error {
	if err := r.db.WithContext(ctx).Create(hunt).Error; err != nil {
		return fmt.Errorf("failed to create hunt: %w", err)
	}
	return nil
}

// GetByID retrieves a hunt scoped to an outfitter
func (r *HuntRepository) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.Hunt, error) {
	var hunt models.Hunt
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND id = ?", outfitterID, id).
		First(&hunt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("hunt not found: %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get hunt: %w", err)
	}
	return &hunt, nil
}

// Update saves hunt changes
func (r *HuntRepository) Update(ctx context.Context, hunt *models.Hunt) error {
	if err := r.db.WithContext(ctx).Save(hunt).Error; err != nil {
		return fmt.Errorf("failed to update hunt: %w", err)
	}
	return nil
}

// List retrieves hunts for an outfitter with optional filters and pagination
func (r *HuntRepository) List(ctx context.Context, outfitterID uuid.UUID, filters map[string]interface{}, page, pageSize int) ([]models.Hunt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Hunt{}).Where("outfitter_id = ?", outfitterID)

	for field, value := range filters {
		switch field {
		case "status":
			query = query.Where("status = ?", value)
		case "visibility":
			query = query.Where("visibility = ?", value)
		case "guide_id":
			query = query.Where("guide_id = ?", value)
		case "client_email":
			query = query.Where("client_email = ?", value)
		case "starts_after":
			query = query.Where("starts_at >= ?", value)
		case "starts_before":
			query = query.Where("starts_at < ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count hunts: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var hunts []models.Hunt
	err := query.Order("starts_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&hunts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list hunts: %w", err)
	}
	return hunts, total, nil
}

// ListByGuide retrieves a guide's assigned hunts
func (r *HuntRepository) ListByGuide(ctx context.Context, outfitterID, guideID uuid.UUID) ([]models.Hunt, error) {
	var hunts []models.Hunt
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND guide_id = ?", outfitterID, guideID).
		Order("starts_at ASC").
		Find(&hunts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hunts by guide: %w", err)
	}
	return hunts, nil
}
