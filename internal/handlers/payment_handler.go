package handlers

import (
	"net/http"

	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment item HTTP requests
type PaymentHandler struct {
	settlementService *services.SettlementService
	membershipSvc     *services.MembershipService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(settlementService *services.SettlementService, membershipSvc *services.MembershipService) *PaymentHandler {
	return &PaymentHandler{
		settlementService: settlementService,
		membershipSvc:     membershipSvc,
	}
}

// Get retrieves one payment item
// @Router /api/v1/payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := h.settlementService.GetItem(c.Request.Context(), tc, itemID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Payment item retrieved", item)
}

// List retrieves the outfitter's payment items (staff only)
// @Router /api/v1/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	page, pageSize := paginationParams(c)
	items, total, err := h.settlementService.ListItems(c.Request.Context(), tc, c.Query("status"), page, pageSize)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Payment items retrieved", gin.H{
		"payment_items": items,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

// ListMine retrieves the authenticated client's own payment items
// @Router /api/v1/payments/mine [get]
func (h *PaymentHandler) ListMine(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	items, err := h.settlementService.ListForClient(c.Request.Context(), tc)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Payment items retrieved", gin.H{"payment_items": items})
}

// ApplyPaymentRequest records an amount received against a payment item
type ApplyPaymentRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// ApplyPayment records a received payment and re-derives the item status
// @Router /api/v1/payments/{id}/apply [post]
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	item, err := h.settlementService.ApplyPayment(c.Request.Context(), tc, itemID, req.AmountCents)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Payment applied", item)
}
