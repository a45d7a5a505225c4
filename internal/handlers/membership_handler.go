package handlers

import (
	"net/http"

	"outfitter-service/internal/middleware"
	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MembershipHandler handles outfitter membership HTTP requests
type MembershipHandler struct {
	membershipSvc *services.MembershipService
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(membershipSvc *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc}
}

// InviteRequest represents the request to invite a member
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin guide cook client"`
}

// Invite invites a new member to the outfitter
// @Router /api/v1/members/invite [post]
func (h *MembershipHandler) Invite(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	result, err := h.membershipSvc.InviteMember(c.Request.Context(), tc, &services.InviteMemberRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Invitation created", result)
}

// AcceptInvitationRequest carries the invitation token
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptInvitation activates an invited membership for the authenticated user
// @Router /api/v1/members/accept [post]
func (h *MembershipHandler) AcceptInvitation(c *gin.Context) {
	userIDStr := middleware.GetUserID(c)
	if userIDStr == "" {
		ErrorResponse(c, http.StatusUnauthorized, "User identity is required", nil)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format", err)
		return
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	membership, err := h.membershipSvc.AcceptInvitation(c.Request.Context(), req.Token, userID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Invitation accepted", membership)
}

// List retrieves the outfitter's members, optionally filtered by role
// @Router /api/v1/members [get]
func (h *MembershipHandler) List(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	members, err := h.membershipSvc.ListMembers(c.Request.Context(), tc, c.Query("role"))
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Members retrieved", gin.H{"members": members})
}

// DeactivateRequest identifies the member to deactivate
type DeactivateRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Deactivate marks a membership inactive
// @Router /api/v1/members/deactivate [post]
func (h *MembershipHandler) Deactivate(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	var req DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.membershipSvc.DeactivateMember(c.Request.Context(), tc, req.Email); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Member deactivated", nil)
}
