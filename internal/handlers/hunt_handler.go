package handlers

import (
	"net/http"
	"time"

	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HuntHandler handles calendar hunt HTTP requests
type HuntHandler struct {
	calendarService *services.CalendarService
	membershipSvc   *services.MembershipService
}

// NewHuntHandler creates a new hunt handler
func NewHuntHandler(calendarService *services.CalendarService, membershipSvc *services.MembershipService) *HuntHandler {
	return &HuntHandler{
		calendarService: calendarService,
		membershipSvc:   membershipSvc,
	}
}

// CreateHuntRequest represents the request to schedule a hunt manually
type CreateHuntRequest struct {
	Title       string     `json:"title" binding:"required"`
	StartsAt    time.Time  `json:"starts_at" binding:"required"`
	EndsAt      time.Time  `json:"ends_at"`
	GuideID     *uuid.UUID `json:"guide_id"`
	ClientEmail string     `json:"client_email"`
	Species     string     `json:"species"`
	Unit        string     `json:"unit"`
	Weapon      string     `json:"weapon"`
	Camp        string     `json:"camp"`
	HuntCode    string     `json:"hunt_code"`
	Visibility  string     `json:"visibility" binding:"omitempty,oneof=internal members public"`
	Notes       string     `json:"notes"`
}

// Create schedules a hunt manually
// @Router /api/v1/hunts [post]
func (h *HuntHandler) Create(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	var req CreateHuntRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	hunt, err := h.calendarService.CreateHunt(c.Request.Context(), tc, &services.CreateHuntRequest{
		Title:       req.Title,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		GuideID:     req.GuideID,
		ClientEmail: req.ClientEmail,
		Species:     req.Species,
		Unit:        req.Unit,
		Weapon:      req.Weapon,
		Camp:        req.Camp,
		HuntCode:    req.HuntCode,
		Visibility:  req.Visibility,
		Notes:       req.Notes,
	})
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Hunt scheduled", hunt)
}

// Get retrieves one hunt
// @Router /api/v1/hunts/{id} [get]
func (h *HuntHandler) Get(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	huntID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	hunt, err := h.calendarService.GetHunt(c.Request.Context(), tc, huntID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Hunt retrieved", hunt)
}

// List retrieves the outfitter's calendar with optional filters
// @Router /api/v1/hunts [get]
func (h *HuntHandler) List(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if after := c.Query("starts_after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			filters["starts_after"] = t
		}
	}
	if before := c.Query("starts_before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			filters["starts_before"] = t
		}
	}
	page, pageSize := paginationParams(c)

	hunts, total, err := h.calendarService.ListHunts(c.Request.Context(), tc, filters, page, pageSize)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Hunts retrieved", gin.H{
		"hunts":     hunts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AssignGuideRequest carries the guide assignment
type AssignGuideRequest struct {
	GuideID uuid.UUID `json:"guide_id" binding:"required"`
}

// AssignGuide assigns a guide to a hunt
// @Router /api/v1/hunts/{id}/guide [put]
func (h *HuntHandler) AssignGuide(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	huntID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignGuideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	hunt, err := h.calendarService.AssignGuide(c.Request.Context(), tc, huntID, req.GuideID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Guide assigned", hunt)
}
