package handlers

import (
	"net/http"

	"outfitter-service/internal/middleware"
	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// resolveTenant builds the per-request TenantContext from the identity set by
// the auth and outfitter-extraction middleware, verifying the caller is an
// active member of the outfitter. Handlers bail out when ok is false; the
// error response has already been written.
func resolveTenant(c *gin.Context, membershipSvc *services.MembershipService) (services.TenantContext, bool) {
	userIDStr := middleware.GetUserID(c)
	if userIDStr == "" {
		ErrorResponse(c, http.StatusUnauthorized, "User identity is required", nil)
		return services.TenantContext{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format", err)
		return services.TenantContext{}, false
	}

	outfitterIDStr := middleware.GetOutfitterID(c)
	if outfitterIDStr == "" {
		ErrorResponse(c, http.StatusBadRequest, "Outfitter ID is required", nil)
		return services.TenantContext{}, false
	}
	outfitterID, err := uuid.Parse(outfitterIDStr)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid outfitter ID format", err)
		return services.TenantContext{}, false
	}

	tc, err := membershipSvc.Resolve(c.Request.Context(), userID, outfitterID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return services.TenantContext{}, false
	}
	return *tc, true
}

// parseIDParam parses a uuid path parameter, writing a 400 on failure
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name+" format", err)
		return uuid.Nil, false
	}
	return id, true
}
