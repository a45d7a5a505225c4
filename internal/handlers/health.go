package handlers

import (
	"net/http"
	"time"

	natsClient "outfitter-service/internal/nats"
	redisClient "outfitter-service/internal/redis"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db          *gorm.DB
	natsClient  *natsClient.Client
	redisClient *redisClient.Client
}

// NewHealthHandler creates a new health handler. The NATS and Redis clients
// may be nil; both are optional dependencies.
func NewHealthHandler(db *gorm.DB, nc *natsClient.Client, rc *redisClient.Client) *HealthHandler {
	return &HealthHandler{
		db:          db,
		natsClient:  nc,
		redisClient: rc,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Service   string           `json:"service"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents a health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "outfitter-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if c.Query("detailed") == "true" {
		response.Checks = h.performChecks(c)
	}

	c.JSON(http.StatusOK, response)
}

// Ready godoc
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	response := HealthResponse{
		Service:   "outfitter-service",
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    h.performChecks(c),
	}

	// Only the database is required. Redis (drafts, webhook replay markers)
	// and NATS (events) degrade gracefully.
	if response.Checks["database"].Status != "healthy" {
		response.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "ready"
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) performChecks(c *gin.Context) map[string]Check {
	checks := map[string]Check{
		"database": h.checkDatabase(),
		"nats":     h.checkNATS(),
		"redis":    h.checkRedis(c),
	}
	return checks
}

func (h *HealthHandler) checkDatabase() Check {
	sqlDB, err := h.db.DB()
	if err != nil {
		return Check{Status: "unhealthy", Message: "Failed to get database instance"}
	}
	if err := sqlDB.Ping(); err != nil {
		return Check{Status: "unhealthy", Message: "Database ping failed"}
	}
	return Check{Status: "healthy", Message: "Database connected"}
}

func (h *HealthHandler) checkNATS() Check {
	if h.natsClient == nil {
		return Check{Status: "disabled", Message: "NATS not configured"}
	}
	if !h.natsClient.IsConnected() {
		return Check{Status: "unhealthy", Message: "NATS disconnected"}
	}
	return Check{Status: "healthy", Message: "NATS connected"}
}

func (h *HealthHandler) checkRedis(c *gin.Context) Check {
	if h.redisClient == nil {
		return Check{Status: "disabled", Message: "Redis not configured"}
	}
	if err := h.redisClient.Ping(c.Request.Context()); err != nil {
		return Check{Status: "unhealthy", Message: "Redis ping failed"}
	}
	return Check{Status: "healthy", Message: "Redis connected"}
}
