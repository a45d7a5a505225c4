package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorResponse sends a standardized error response
// Internal errors are logged but not exposed to clients
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	requestID := getRequestID(c)

	// Log internal error details
	if err != nil {
		log.Printf("[ERROR] [%s] %s: %v", requestID, message, err)
	}

	// Send user-friendly response (don't expose internal errors)
	response := gin.H{
		"success":    false,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	// Only include error details in development mode
	if gin.Mode() == gin.DebugMode && err != nil {
		response["error_details"] = err.Error()
	}

	c.JSON(statusCode, response)
}

// SuccessResponse sends a standardized success response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	requestID := getRequestID(c)

	response := gin.H{
		"success":    true,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	if data != nil {
		response["data"] = data
	}

	c.JSON(statusCode, response)
}

// ServiceErrorResponse maps service-layer error types to HTTP responses.
// Unrecognized errors become a 500 with the details kept in the logs.
func ServiceErrorResponse(c *gin.Context, err error) {
	if _, ok := services.IsAuthorizationError(err); ok {
		ErrorResponse(c, http.StatusForbidden, err.Error(), nil)
		return
	}
	if stateErr, ok := services.IsInvalidStateError(err); ok {
		requestID := getRequestID(c)
		c.JSON(http.StatusConflict, gin.H{
			"success":        false,
			"message":        stateErr.Message,
			"current_status": stateErr.CurrentStatus,
			"request_id":     requestID,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if _, ok := services.IsValidationError(err); ok {
		ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, ok := services.IsConflictError(err); ok {
		ErrorResponse(c, http.StatusConflict, err.Error(), nil)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Resource not found", nil)
		return
	}
	if _, ok := services.IsProviderError(err); ok {
		ErrorResponse(c, http.StatusBadGateway, "Signature provider request failed", err)
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, "Internal server error", err)
}

// getRequestID retrieves or generates a request ID
func getRequestID(c *gin.Context) string {
	// Check if request ID was set by middleware
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	// Fallback to X-Request-ID header
	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		return requestID
	}
	return time.Now().Format("20060102150405")
}
