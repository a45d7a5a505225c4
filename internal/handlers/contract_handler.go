package handlers

import (
	"net/http"
	"strconv"

	"outfitter-service/internal/models"
	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContractHandler handles hunt contract HTTP requests
type ContractHandler struct {
	contractService  *services.ContractService
	signatureService *services.SignatureService
	draftService     *services.DraftService
	membershipSvc    *services.MembershipService
}

// NewContractHandler creates a new contract handler
func NewContractHandler(
	contractService *services.ContractService,
	signatureService *services.SignatureService,
	draftService *services.DraftService,
	membershipSvc *services.MembershipService,
) *ContractHandler {
	return &ContractHandler{
		contractService:  contractService,
		signatureService: signatureService,
		draftService:     draftService,
		membershipSvc:    membershipSvc,
	}
}

// CreateContractRequest represents the request to create a contract
type CreateContractRequest struct {
	HuntID          *uuid.UUID `json:"hunt_id"`
	ClientEmail     string     `json:"client_email" binding:"required,email"`
	TemplateContent string     `json:"template_content" binding:"required"`
	GuideFeeCents   int64      `json:"guide_fee_cents"`
	AsDraft         bool       `json:"as_draft"`
}

// Create creates a new contract from a rendered template
// @Summary Create contract
// @Tags contracts
// @Accept json
// @Produce json
// @Param request body CreateContractRequest true "Contract creation request"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	contract, err := h.contractService.Create(c.Request.Context(), tc, &services.CreateContractRequest{
		HuntID:          req.HuntID,
		ClientEmail:     req.ClientEmail,
		TemplateContent: req.TemplateContent,
		GuideFeeCents:   req.GuideFeeCents,
		AsDraft:         req.AsDraft,
	})
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Contract created successfully", contract)
}

// Get retrieves one contract
// @Router /api/v1/contracts/{id} [get]
func (h *ContractHandler) Get(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Get(c.Request.Context(), tc, contractID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Contract retrieved", contract)
}

// List retrieves contracts with optional status/client/hunt filters
// @Router /api/v1/contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if email := c.Query("client_email"); email != "" {
		filters["client_email"] = email
	}
	if huntID := c.Query("hunt_id"); huntID != "" {
		filters["hunt_id"] = huntID
	}
	page, pageSize := paginationParams(c)

	contracts, total, err := h.contractService.List(c.Request.Context(), tc, filters, page, pageSize)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Contracts retrieved", gin.H{
		"contracts": contracts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListMine retrieves the authenticated client's own contracts
// @Router /api/v1/contracts/mine [get]
func (h *ContractHandler) ListMine(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}

	contracts, err := h.contractService.ListForClient(c.Request.Context(), tc)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Contracts retrieved", gin.H{"contracts": contracts})
}

// SubmitCompletionRequest carries the client's completion payload
type SubmitCompletionRequest struct {
	CompletionData map[string]interface{} `json:"completion_data" binding:"required"`
}

// SubmitCompletion records the client's hunt details on the contract
// @Router /api/v1/contracts/{id}/completion [post]
func (h *ContractHandler) SubmitCompletion(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	contract, err := h.contractService.SubmitCompletion(c.Request.Context(), tc, contractID, req.CompletionData)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}

	// The autosaved draft is superseded by the submitted payload
	if h.draftService != nil {
		h.draftService.DiscardForContract(c.Request.Context(), contractID)
	}

	SuccessResponse(c, http.StatusOK, "Completion submitted", contract)
}

// ReviewRequest carries the admin's review decision
type ReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Notes  string `json:"notes"`
}

// Review approves or rejects a client's submitted completion data
// @Router /api/v1/contracts/{id}/review [post]
func (h *ContractHandler) Review(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	contract, err := h.contractService.Review(c.Request.Context(), tc, contractID, req.Action, req.Notes)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Review recorded", contract)
}

// UpdateStatusRequest carries a manual status transition
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies an explicit status transition
// @Router /api/v1/contracts/{id}/status [put]
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	contract, err := h.contractService.UpdateStatus(c.Request.Context(), tc, contractID, models.ContractStatus(req.Status))
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Contract status updated", contract)
}

// Cancel cancels a contract
// @Router /api/v1/contracts/{id}/cancel [post]
func (h *ContractHandler) Cancel(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.Cancel(c.Request.Context(), tc, contractID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Contract cancelled", contract)
}

// SendForSignature sends a reviewed contract to the e-signature provider
// @Router /api/v1/contracts/{id}/send [post]
func (h *ContractHandler) SendForSignature(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	contract, err := h.signatureService.SendToProvider(c.Request.Context(), tc, contractID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Contract sent for signature", contract)
}

// GetSigningURL returns an embedded signing session URL for one recipient
// @Router /api/v1/contracts/{id}/signing-url [get]
func (h *ContractHandler) GetSigningURL(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	signerRole := c.DefaultQuery("signer_role", "client")

	url, err := h.signatureService.GetSigningURL(c.Request.Context(), tc, contractID, signerRole)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Signing URL created", gin.H{"signing_url": url})
}

// SignTypedNameRequest carries an in-app typed-name signature
type SignTypedNameRequest struct {
	TypedName string `json:"typed_name" binding:"required"`
}

// SignTypedName records an in-app typed-name signature (client or admin)
// @Router /api/v1/contracts/{id}/sign [post]
func (h *ContractHandler) SignTypedName(c *gin.Context) {
	tc, ok := resolveTenant(c, h.membershipSvc)
	if !ok {
		return
	}
	contractID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SignTypedNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	contract, err := h.signatureService.SignTypedName(c.Request.Context(), tc, contractID, req.TypedName)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Signature recorded", contract)
}

// paginationParams parses page/page_size query values with sane bounds
func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
