package handlers

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"outfitter-service/internal/services"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives envelope status notifications from the e-signature
// provider. The route is unauthenticated; processing is idempotent and
// notifications for unknown envelopes are acknowledged so the provider stops
// retrying them.
type WebhookHandler struct {
	signatureService *services.SignatureService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(signatureService *services.SignatureService) *WebhookHandler {
	return &WebhookHandler{signatureService: signatureService}
}

// docusignJSONPayload is the JSON connect notification format
type docusignJSONPayload struct {
	Event string `json:"event"`
	Data  struct {
		EnvelopeID      string `json:"envelopeId"`
		EnvelopeSummary struct {
			Status string `json:"status"`
		} `json:"envelopeSummary"`
	} `json:"data"`
}

// docusignXMLPayload is the legacy XML connect notification format
type docusignXMLPayload struct {
	XMLName        xml.Name `xml:"DocuSignEnvelopeInformation"`
	EnvelopeStatus struct {
		EnvelopeID string `xml:"EnvelopeID"`
		Status     string `xml:"Status"`
	} `xml:"EnvelopeStatus"`
}

// HandleEnvelopeStatus processes one provider notification
// @Summary E-signature webhook
// @Tags webhooks
// @Accept json,xml
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/webhooks/docusign [post]
func (h *WebhookHandler) HandleEnvelopeStatus(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Failed to read webhook body", err)
		return
	}

	payload, err := parseWebhookBody(c.ContentType(), body)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Unparseable webhook payload", err)
		return
	}

	outcome, err := h.signatureService.HandleWebhook(c.Request.Context(), payload)
	if err != nil {
		if _, ok := services.IsValidationError(err); ok {
			ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		// Transient failure: non-2xx makes the provider redeliver
		ErrorResponse(c, http.StatusInternalServerError, "Failed to process webhook", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Webhook processed", gin.H{
		"envelope_id": payload.EnvelopeID,
		"outcome":     outcome,
	})
}

// parseWebhookBody decodes either the JSON connect format or the legacy XML
// one into the normalized payload.
func parseWebhookBody(contentType string, body []byte) (*services.WebhookPayload, error) {
	if strings.Contains(contentType, "xml") || looksLikeXML(body) {
		var p docusignXMLPayload
		if err := xml.Unmarshal(body, &p); err != nil {
			return nil, err
		}
		return &services.WebhookPayload{
			EnvelopeID: p.EnvelopeStatus.EnvelopeID,
			Status:     p.EnvelopeStatus.Status,
		}, nil
	}

	// Try the structured connect format first, then the flat shape used by
	// tests and manual replays.
	var p docusignJSONPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.Data.EnvelopeID != "" {
		status := p.Data.EnvelopeSummary.Status
		if status == "" {
			// "envelope-completed" -> "completed"
			status = strings.TrimPrefix(p.Event, "envelope-")
		}
		return &services.WebhookPayload{
			EnvelopeID: p.Data.EnvelopeID,
			Status:     status,
		}, nil
	}

	var flat services.WebhookPayload
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	return &flat, nil
}

func looksLikeXML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}
