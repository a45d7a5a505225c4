package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"outfitter-service/internal/config"
	"outfitter-service/internal/models"
)

// DocuSignClient handles communication with the DocuSign eSignature REST API.
// It implements models.SignatureProvider.
type DocuSignClient struct {
	baseURL    string
	accountID  string
	apiKey     string
	returnURL  string
	httpClient *http.Client
}

// NewDocuSignClient creates a new DocuSign client
func NewDocuSignClient(cfg config.DocuSignConfig) *DocuSignClient {
	return &DocuSignClient{
		baseURL:   cfg.BaseURL,
		accountID: cfg.AccountID,
		apiKey:    cfg.APIKey,
		returnURL: cfg.ReturnURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether real provider credentials are present.
// When false, the signature service assigns mock envelopes and signing
// happens via the in-app typed-name path.
func (c *DocuSignClient) Configured() bool {
	return c.accountID != "" && c.apiKey != ""
}

// envelopeDefinition is the DocuSign envelope creation payload
type envelopeDefinition struct {
	EmailSubject string             `json:"emailSubject"`
	Status       string             `json:"status"`
	Documents    []envelopeDocument `json:"documents"`
	Recipients   envelopeRecipients `json:"recipients"`
}

type envelopeDocument struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type envelopeRecipients struct {
	Signers []envelopeSignerDef `json:"signers"`
}

type envelopeSignerDef struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	ClientUserID string `json:"clientUserId"` // enables embedded signing
	RoleName     string `json:"roleName"`
}

type createEnvelopeResponse struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// CreateEnvelope creates a signing envelope for the contract document.
// Single attempt; errors are surfaced and the contract is left unchanged so
// the caller may retry safely (creating an envelope twice would be a bug).
func (c *DocuSignClient) CreateEnvelope(ctx context.Context, req models.EnvelopeRequest) (string, error) {
	signers := make([]envelopeSignerDef, 0, len(req.Signers))
	for i, s := range req.Signers {
		signers = append(signers, envelopeSignerDef{
			Email:        s.Email,
			Name:         s.Name,
			RecipientID:  fmt.Sprintf("%d", i+1),
			RoutingOrder: fmt.Sprintf("%d", i+1),
			ClientUserID: s.Email,
			RoleName:     s.Role,
		})
	}

	def := envelopeDefinition{
		EmailSubject: req.Subject,
		Status:       "sent",
		Documents: []envelopeDocument{{
			DocumentBase64: base64.StdEncoding.EncodeToString([]byte(req.DocumentHTML)),
			Name:           req.DocumentName,
			FileExtension:  "html",
			DocumentID:     "1",
		}},
		Recipients: envelopeRecipients{Signers: signers},
	}

	var resp createEnvelopeResponse
	url := fmt.Sprintf("%s/accounts/%s/envelopes", c.baseURL, c.accountID)
	if err := c.doJSON(ctx, http.MethodPost, url, def, &resp); err != nil {
		return "", fmt.Errorf("failed to create envelope: %w", err)
	}
	if resp.EnvelopeID == "" {
		return "", fmt.Errorf("provider returned empty envelope id")
	}
	return resp.EnvelopeID, nil
}

type recipientViewRequest struct {
	ReturnURL            string `json:"returnUrl"`
	AuthenticationMethod string `json:"authenticationMethod"`
	Email                string `json:"email"`
	UserName             string `json:"userName"`
	ClientUserID         string `json:"clientUserId"`
}

type recipientViewResponse struct {
	URL string `json:"url"`
}

// CreateRecipientView returns an embedded-signing URL for one signer
func (c *DocuSignClient) CreateRecipientView(ctx context.Context, envelopeID string, signer models.EnvelopeSigner, returnURL string) (string, error) {
	if returnURL == "" {
		returnURL = c.returnURL
	}
	req := recipientViewRequest{
		ReturnURL:            returnURL,
		AuthenticationMethod: "none",
		Email:                signer.Email,
		UserName:             signer.Name,
		ClientUserID:         signer.Email,
	}

	var resp recipientViewResponse
	url := fmt.Sprintf("%s/accounts/%s/envelopes/%s/views/recipient", c.baseURL, c.accountID, envelopeID)
	if err := c.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return "", fmt.Errorf("failed to create recipient view: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("provider returned empty signing url")
	}
	return resp.URL, nil
}

// doJSON executes one JSON request/response round trip
func (c *DocuSignClient) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
