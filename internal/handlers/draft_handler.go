package handlers

import (
	"net/http"

	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
)

// DraftHandler handles completion-draft autosave HTTP requests
type DraftHandler struct {
	draftService  *services.DraftService
	membershipSvc *services.MembershipService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService *services.DraftService, membershipSvc *services.MembershipService) *DraftHandler {
	return &DraftHandler{
		draftService:  draftService,
		membershipSvc: membershipSvc,
	}
}

// SaveDraftRequest carries the partial completion form
type SaveDraftRequest struct {
	FormData map[string]interface{} `json:"form_data" binding:"required"`
}

// Save autosaves a partial completion form
// @Router /api/v1/contracts/{id}/draft [put]
func (h *DraftHandler) Save(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	draft, err := h.draftService.Save(c.Request.Context(), tc, contractID, req.FormData)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Draft saved", draft)
}

// Get retrieves the caller's saved draft
// @Router /api/v1/contracts/{id}/draft [get]
func (h *DraftHandler) Get(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	draft, err := h.draftService.Get(c.Request.Context(), tc, contractID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	if draft == nil {
		ErrorResponse(c, http.StatusNotFound, "No draft found", nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Draft retrieved", draft)
}

// Discard deletes the caller's saved draft
// @Router /api/v1/contracts/{id}/draft [delete]
func (h *DraftHandler) Discard(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.draftService.Discard(c.Request.Context(), tc, contractID); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Draft discarded", nil)
}
