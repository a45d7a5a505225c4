package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by middleware
const (
	OutfitterIDKey   = "outfitter_id"
	OutfitterSlugKey = "outfitter_slug"
	UserIDKey        = "user_id"
	UserEmailKey     = "user_email"
	UserRoleKey      = "user_role"
)

// RequestID middleware generates or extracts correlation IDs for request tracing
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if request ID exists in header
		requestID := c.GetHeader("X-Request-ID")

		// Generate new UUID if not provided
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// StructuredLogger middleware logs requests with structured fields
func StructuredLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		requestID, _ := c.Get("request_id")

		log.Printf(
			"[%s] method=%s path=%s status=%d duration=%v ip=%s user_agent=%s request_id=%s",
			time.Now().Format(time.RFC3339),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			duration,
			c.ClientIP(),
			c.Request.UserAgent(),
			requestID,
		)
	}
}

// OutfitterExtraction extracts the target outfitter for the request.
// Supports multiple identification methods:
// 1. X-Outfitter-ID header (UUID)
// 2. X-Outfitter-Slug header (slug string)
// 3. Query parameter (outfitter_id or slug)
// The resolved outfitter is threaded explicitly into every service call via
// TenantContext; handlers never read ambient request state past this point.
func OutfitterExtraction() gin.HandlerFunc {
	return func(c *gin.Context) {
		outfitterID := c.GetHeader("X-Outfitter-ID")
		outfitterSlug := c.GetHeader("X-Outfitter-Slug")

		if outfitterID == "" {
			outfitterID = c.Query("outfitter_id")
		}
		if outfitterSlug == "" {
			outfitterSlug = c.Query("slug")
		}

		if outfitterID != "" {
			c.Set(OutfitterIDKey, outfitterID)
		}
		if outfitterSlug != "" {
			c.Set(OutfitterSlugKey, outfitterSlug)
		}

		c.Next()
	}
}

// GetOutfitterID extracts the outfitter ID from gin context
func GetOutfitterID(c *gin.Context) string {
	if id, exists := c.Get(OutfitterIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetOutfitterSlug extracts the outfitter slug from gin context
func GetOutfitterSlug(c *gin.Context) string {
	if slug, exists := c.Get(OutfitterSlugKey); exists {
		return slug.(string)
	}
	return ""
}

// GetUserID extracts the user ID from gin context
func GetUserID(c *gin.Context) string {
	// First check context (set by auth middleware)
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	// Then check header (set by API gateway/auth)
	return c.GetHeader("X-User-ID")
}

// GetUserEmail extracts the user email from gin context
func GetUserEmail(c *gin.Context) string {
	if email, exists := c.Get(UserEmailKey); exists {
		return email.(string)
	}
	return c.GetHeader("X-User-Email")
}
