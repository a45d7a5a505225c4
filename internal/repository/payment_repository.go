package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentItemRepository handles payment item database operations
type PaymentItemRepository struct {
	db *gorm.DB
}

// NewPaymentItemRepository creates a new payment item repository
func NewPaymentItemRepository(db *gorm.DB) *PaymentItemRepository {
	return &PaymentItemRepository{db: db}
}

// CreateForContract inserts a payment item referencing a contract exactly once.
// The existence check handles the common redelivery case; the partial unique
// index on contract_id catches the race where two callers pass the check
// concurrently, in which case the loser's duplicate-key error is resolved by
// re-reading the winner's row.
func (r *PaymentItemRepository) CreateForContract(ctx context.Context, item *models.PaymentItem) (bool, *models.PaymentItem, error) {
	if item.ContractID == nil {
		return false, nil, fmt.Errorf("payment item has no contract reference")
	}

	existing, err := r.GetByContractID(ctx, *item.ContractID)
	if err != nil {
		return false, nil, err
	}
	if existing != nil {
		return false, existing, nil
	}

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := r.GetByContractID(ctx, *item.ContractID)
			if lookupErr != nil {
				return false, nil, lookupErr
			}
			if existing != nil {
				return false, existing, nil
			}
		}
		return false, nil, fmt.Errorf("failed to create payment item: %w", err)
	}
	return true, item, nil
}

// isUniqueViolation reports whether err is a unique constraint violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres error 23505 surfaces in the message when the gorm translator
	// is not enabled
	return strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "23505")
}

// Create inserts a payment item not tied to a contract (deposits, misc fees)
func (r *PaymentItemRepository) Create(ctx context.Context, item *models.PaymentItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create payment item: %w", err)
	}
	return nil
}

// GetByID retrieves a payment item scoped to an outfitter
func (r *PaymentItemRepository) GetByID(ctx context.Context, outfitterID, id uuid.UUID) (*models.PaymentItem, error) {
	var item models.PaymentItem
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND id = ?", outfitterID, id).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment item not found: %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get payment item: %w", err)
	}
	return &item, nil
}

// GetByContractID retrieves the payment item referencing a contract, or nil
// when none exists
func (r *PaymentItemRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.PaymentItem, error) {
	var item models.PaymentItem
	err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment item by contract: %w", err)
	}
	return &item, nil
}

// Update saves payment item changes
func (r *PaymentItemRepository) Update(ctx context.Context, item *models.PaymentItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to update payment item: %w", err)
	}
	return nil
}

// ListByOutfitter retrieves payment items for an outfitter with pagination
func (r *PaymentItemRepository) ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, status string, page, pageSize int) ([]models.PaymentItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentItem{}).Where("outfitter_id = ?", outfitterID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payment items: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var items []models.PaymentItem
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payment items: %w", err)
	}
	return items, total, nil
}

// ListByClientEmail retrieves a client's payment items for the client portal
func (r *PaymentItemRepository) ListByClientEmail(ctx context.Context, outfitterID uuid.UUID, email string) ([]models.PaymentItem, error) {
	var items []models.PaymentItem
	err := r.db.WithContext(ctx).
		Where("outfitter_id = ? AND client_email = ?", outfitterID, email).
		Order("due_date ASC NULLS LAST").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list client payment items: %w", err)
	}
	return items, nil
}
