package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipRepository handles outfitter and membership database operations
type MembershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ============================================================================
// Outfitter Operations
// ============================================================================

// GetOutfitterByID retrieves an outfitter by its ID
func (r *MembershipRepository) GetOutfitterByID(ctx context.Context, outfitterID uuid.UUID) (*models.Outfitter, error) {
	var outfitter models.Outfitter
	if err := r.db.WithContext(ctx).First(&outfitter, "id = ?", outfitterID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("outfitter not found: %s: %w", outfitterID, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get outfitter: %w", err)
	}
	return &outfitter, nil
}

// GetOutfitterBySlug retrieves an outfitter by its URL slug
func (r *MembershipRepository) GetOutfitterBySlug(ctx context.Context, slug string) (*models.Outfitter, error) {
	var outfitter models.Outfitter
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&outfitter).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("outfitter not found: %s: %w", slug, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get outfitter by slug: %w", err)
	}
	return &outfitter, nil
}

// ============================================================================
// Membership Operations
// ============================================================================

// GetMembership retrieves a user's membership in an outfitter.
// Returns (nil, nil) when no membership exists.
func (r *MembershipRepository) GetMembership(ctx context.Context, userID, outfitterID uuid.UUID) (*models.OutfitterMembership, error) {
	var membership models.OutfitterMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND outfitter_id = ?", userID, outfitterID).
		First(&membership).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &membership, nil
}

// GetMembershipByEmail retrieves a membership by member email.
// Returns (nil, nil) when no membership exists.
func (r *MembershipRepository) GetMembershipByEmail(ctx context.Context, email string, outfitterID uuid.UUID) (*models.OutfitterMembership, error) {
	var membership models.OutfitterMembership
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? AND outfitter_id = ?", strings.ToLower(email), outfitterID).
		First(&membership).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership by email: %w", err)
	}
	return &membership, nil
}

// CreateMembership inserts a new membership
func (r *MembershipRepository) CreateMembership(ctx context.Context, membership *models.OutfitterMembership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// UpdateMembership saves membership changes
func (r *MembershipRepository) UpdateMembership(ctx context.Context, membership *models.OutfitterMembership) error {
	if err := r.db.WithContext(ctx).Save(membership).Error; err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// ListByOutfitter retrieves memberships for an outfitter, optionally by role
func (r *MembershipRepository) ListByOutfitter(ctx context.Context, outfitterID uuid.UUID, role string) ([]models.OutfitterMembership, error) {
	query := r.db.WithContext(ctx).Where("outfitter_id = ?", outfitterID)
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var memberships []models.OutfitterMembership
	if err := query.Order("created_at ASC").Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// GetByInvitationToken retrieves a membership by its invitation token.
// Returns (nil, nil) when the token is unknown.
func (r *MembershipRepository) GetByInvitationToken(ctx context.Context, token string) (*models.OutfitterMembership, error) {
	var membership models.OutfitterMembership
	err := r.db.WithContext(ctx).Where("invitation_token = ?", token).First(&membership).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership by token: %w", err)
	}
	return &membership, nil
}

// UpdateLastAccessed stamps a membership's last access time
func (r *MembershipRepository) UpdateLastAccessed(ctx context.Context, userID, outfitterID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.OutfitterMembership{}).
		Where("user_id = ? AND outfitter_id = ?", userID, outfitterID).
		Update("last_accessed_at", now).Error
}

// ============================================================================
// Activity Logging
// ============================================================================

// LogActivity inserts an audit trail row
func (r *MembershipRepository) LogActivity(ctx context.Context, entry *models.OutfitterActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}
