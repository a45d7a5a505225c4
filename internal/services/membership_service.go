package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"outfitter-service/internal/models"

	"github.com/google/uuid"
)

// TenantContext carries the caller's identity and resolved role for one
// request. It is constructed once at the boundary and threaded explicitly
// into every operation; services never read ambient request state.
type TenantContext struct {
	OutfitterID uuid.UUID `json:"outfitter_id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
}

// IsStaff reports whether the caller can manage outfitter resources
func (tc TenantContext) IsStaff() bool {
	return models.IsStaffRole(tc.Role)
}

// MembershipService handles outfitter membership business logic and acts as
// the authorization guard for every other service.
type MembershipService struct {
	membershipRepo models.MembershipRepository
}

// NewMembershipService creates a new membership service
func NewMembershipService(membershipRepo models.MembershipRepository) *MembershipService {
	return &MembershipService{membershipRepo: membershipRepo}
}

// ============================================================================
// Authorization Guard
// ============================================================================

// Resolve builds the TenantContext for a caller accessing an outfitter.
// Fails with an AuthorizationError when no active membership exists.
func (s *MembershipService) Resolve(ctx context.Context, userID, outfitterID uuid.UUID) (*TenantContext, error) {
	membership, err := s.membershipRepo.GetMembership(ctx, userID, outfitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}
	if membership == nil {
		return nil, NewAuthorizationError("no membership for this outfitter")
	}
	if membership.Status != models.MembershipStatusActive {
		return nil, NewAuthorizationError(fmt.Sprintf("membership is %s", membership.Status))
	}

	if err := s.membershipRepo.UpdateLastAccessed(ctx, userID, outfitterID); err != nil {
		log.Printf("Warning: failed to update last accessed: %v", err)
	}

	return &TenantContext{
		OutfitterID: outfitterID,
		UserID:      userID,
		Email:       membership.Email,
		Role:        membership.Role,
	}, nil
}

// RequireRole checks the caller's resolved role against an allow-list
func RequireRole(tc TenantContext, roles ...string) error {
	for _, role := range roles {
		if tc.Role == role {
			return nil
		}
	}
	return NewAuthorizationError(fmt.Sprintf("role %q is not permitted for this operation", tc.Role))
}

// ============================================================================
// Member Management
// ============================================================================

// InviteMemberRequest represents a request to invite a member
type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin guide cook client"`
}

// InviteMemberResponse represents the response after inviting a member
type InviteMemberResponse struct {
	MembershipID    uuid.UUID `json:"membership_id"`
	InvitationToken string    `json:"invitation_token"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// InviteMember creates an invited membership for a new member.
// Only owners and admins may invite; only owners may grant the admin role.
func (s *MembershipService) InviteMember(ctx context.Context, tc TenantContext, req *InviteMemberRequest) (*InviteMemberResponse, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Role == models.RoleAdmin && tc.Role != models.RoleOwner {
		return nil, NewAuthorizationError("only owners can grant the admin role")
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleGuide, models.RoleCook, models.RoleClient:
	default:
		return nil, NewValidationError("role", fmt.Sprintf("unknown role %q", req.Role))
	}

	existing, err := s.membershipRepo.GetMembershipByEmail(ctx, req.Email, tc.OutfitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}
	if existing != nil && existing.Status != models.MembershipStatusInactive {
		return nil, NewConflictError("membership", fmt.Sprintf("%s already has a membership", req.Email))
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	now := time.Now()
	expiresAt := now.Add(7 * 24 * time.Hour)
	membership := &models.OutfitterMembership{
		OutfitterID:         tc.OutfitterID,
		UserID:              uuid.New(), // provisional until the invitee accepts with their account
		Email:               req.Email,
		Role:                req.Role,
		Status:              models.MembershipStatusInvited,
		InvitedBy:           &tc.UserID,
		InvitedAt:           &now,
		InvitationToken:     token,
		InvitationExpiresAt: &expiresAt,
	}
	if err := s.membershipRepo.CreateMembership(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.logActivity(ctx, tc, "member.invited", "membership", &membership.ID, map[string]interface{}{
		"email": req.Email,
		"role":  req.Role,
	})

	return &InviteMemberResponse{
		MembershipID:    membership.ID,
		InvitationToken: token,
		ExpiresAt:       expiresAt,
	}, nil
}

// AcceptInvitation activates an invited membership for the accepting user
func (s *MembershipService) AcceptInvitation(ctx context.Context, token string, userID uuid.UUID) (*models.OutfitterMembership, error) {
	membership, err := s.membershipRepo.GetByInvitationToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	if membership == nil {
		return nil, NewValidationError("token", "invitation not found")
	}
	if membership.Status != models.MembershipStatusInvited {
		return nil, NewConflictError("invitation", "invitation has already been used")
	}
	if membership.InvitationExpiresAt != nil && time.Now().After(*membership.InvitationExpiresAt) {
		return nil, NewValidationError("token", "invitation has expired")
	}

	now := time.Now()
	membership.UserID = userID
	membership.Status = models.MembershipStatusActive
	membership.AcceptedAt = &now
	membership.InvitationToken = ""

	if err := s.membershipRepo.UpdateMembership(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return membership, nil
}

// DeactivateMember deactivates a member. Owners cannot be deactivated.
func (s *MembershipService) DeactivateMember(ctx context.Context, tc TenantContext, membershipEmail string) error {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return err
	}

	membership, err := s.membershipRepo.GetMembershipByEmail(ctx, membershipEmail, tc.OutfitterID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return NewValidationError("email", "no membership for that email")
	}
	if membership.Role == models.RoleOwner {
		return NewAuthorizationError("cannot deactivate the outfitter owner")
	}

	membership.Status = models.MembershipStatusInactive
	if err := s.membershipRepo.UpdateMembership(ctx, membership); err != nil {
		return fmt.Errorf("failed to deactivate membership: %w", err)
	}

	s.logActivity(ctx, tc, "member.deactivated", "membership", &membership.ID, map[string]interface{}{
		"email": membershipEmail,
	})
	return nil
}

// ListMembers retrieves memberships for the outfitter, optionally by role
func (s *MembershipService) ListMembers(ctx context.Context, tc TenantContext, role string) ([]models.OutfitterMembership, error) {
	if err := RequireRole(tc, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.membershipRepo.ListByOutfitter(ctx, tc.OutfitterID, role)
}

// ============================================================================
// Activity Logging
// ============================================================================

// logActivity records an audit row; failures are logged, not surfaced
func (s *MembershipService) logActivity(ctx context.Context, tc TenantContext, action, resourceType string, resourceID *uuid.UUID, details map[string]interface{}) {
	detailsJSON, err := models.NewJSONB(details)
	if err != nil {
		log.Printf("Warning: failed to serialize activity details: %v", err)
		detailsJSON = models.JSONB{}
	}

	entry := &models.OutfitterActivityLog{
		OutfitterID:  tc.OutfitterID,
		UserID:       tc.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      detailsJSON,
	}
	if err := s.membershipRepo.LogActivity(ctx, entry); err != nil {
		log.Printf("Warning: failed to log activity %s: %v", action, err)
	}
}

// LogActivity records an audit row on behalf of another service
func (s *MembershipService) LogActivity(ctx context.Context, tc TenantContext, action, resourceType string, resourceID *uuid.UUID, details map[string]interface{}) {
	s.logActivity(ctx, tc, action, resourceType, resourceID, details)
}
