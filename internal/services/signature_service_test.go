package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"outfitter-service/internal/config"
	"outfitter-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docusignConfig() config.DocuSignConfig {
	return config.DocuSignConfig{ReturnURL: "http://localhost:3000/contracts/signed"}
}

// newSignatureStack wires the signature service with a full executed hook so
// webhook and countersign tests can verify downstream side effects.
func newSignatureStack(provider *fakeProvider) (*SignatureService, *fakeContractRepo, *fakePaymentRepo, *fakeHuntRepo) {
	contractSvc, contractRepo, paymentRepo, huntRepo := newContractStack()

	svc := NewSignatureService(contractRepo, provider, docusignConfig())
	svc.SetExecutedHook(contractSvc)
	return svc, contractRepo, paymentRepo, huntRepo
}

func TestSendToProvider_MockEnvelopeWhenUnconfigured(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: false})
	contract := seedContract(repo, models.ContractStatusReadyForSignature, nil)

	sent, err := svc.SendToProvider(context.Background(), adminContext(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusSentToDocuSign, sent.Status)
	assert.True(t, strings.HasPrefix(sent.EnvelopeID, models.MockEnvelopePrefix))
	assert.True(t, sent.HasMockEnvelope())
}

func TestSendToProvider_RealEnvelope(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true})
	contract := seedContract(repo, models.ContractStatusReadyForSignature, nil)

	sent, err := svc.SendToProvider(context.Background(), adminContext(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, "env-1", sent.EnvelopeID)
	assert.False(t, sent.HasMockEnvelope())
}

func TestSendToProvider_FailureLeavesStatusUnchanged(t *testing.T) {
	provider := &fakeProvider{configured: true, createErr: errors.New("503 from provider")}
	svc, repo, _, _ := newSignatureStack(provider)
	contract := seedContract(repo, models.ContractStatusReadyForSignature, nil)

	_, err := svc.SendToProvider(context.Background(), adminContext(), contract.ID)
	_, ok := IsProviderError(err)
	require.True(t, ok)

	// The send is retryable: the contract stays reviewable
	stored, err := repo.GetByID(context.Background(), testOutfitterID, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusReadyForSignature, stored.Status)
	assert.Empty(t, stored.EnvelopeID)
}

func TestSendToProvider_OnlyFromReadyForSignature(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{})
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	_, err := svc.SendToProvider(context.Background(), adminContext(), contract.ID)
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestGetSigningURL_MockEnvelopeRejected(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{recipientURL: "https://sign.example/session"})
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = models.MockEnvelopePrefix + "abc"
	})

	_, err := svc.GetSigningURL(context.Background(), clientContext("hunter@example.com"), contract.ID, "client")
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestGetSigningURL_RealEnvelope(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true, recipientURL: "https://sign.example/session"})
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
	})

	url, err := svc.GetSigningURL(context.Background(), clientContext("hunter@example.com"), contract.ID, "client")
	require.NoError(t, err)
	assert.Equal(t, "https://sign.example/session", url)

	// Another client's contract is off limits
	_, err = svc.GetSigningURL(context.Background(), clientContext("other@example.com"), contract.ID, "client")
	_, ok := IsAuthorizationError(err)
	assert.True(t, ok)
}

func TestGetSigningURL_AdminRecipientView(t *testing.T) {
	provider := &fakeProvider{configured: true, recipientURL: "https://sign.example/admin-session"}
	svc, repo, _, _ := newSignatureStack(provider)
	contract := seedContract(repo, models.ContractStatusClientSigned, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
	})

	url, err := svc.GetSigningURL(context.Background(), adminContext(), contract.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "https://sign.example/admin-session", url)

	// The admin view is staff-only
	_, err = svc.GetSigningURL(context.Background(), clientContext("hunter@example.com"), contract.ID, "admin")
	_, ok := IsAuthorizationError(err)
	assert.True(t, ok)

	// Unknown roles are rejected outright
	_, err = svc.GetSigningURL(context.Background(), adminContext(), contract.ID, "witness")
	_, ok = IsValidationError(err)
	assert.True(t, ok)
}

func TestAdminCountersign_BackfillsClientTimestamp(t *testing.T) {
	contractSvc, repo, paymentRepo, _ := newContractStack()
	svc := NewSignatureService(repo, &fakeProvider{}, docusignConfig())
	svc.SetExecutedHook(contractSvc)

	// A manual status edit can park a contract at client_signed without a
	// typed signature ever being recorded
	contract := seedContract(repo, models.ContractStatusClientSigned, func(c *models.HuntContract) {
		c.EnvelopeID = models.MockEnvelopePrefix + "abc"
		c.GuideFeeCents = 10000
	})
	require.Nil(t, contract.ClientSignedAt)

	executed, err := svc.SignTypedName(context.Background(), adminContext(), contract.ID, "Casey Admin")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusFullyExecuted, executed.Status)
	assert.NotNil(t, executed.ClientSignedAt)
	assert.NotNil(t, executed.AdminSignedAt)

	// The guide fee is billed, not silently skipped
	assert.Equal(t, 1, paymentRepo.count())
}

func TestSignTypedName_FullMockFlow(t *testing.T) {
	svc, repo, paymentRepo, huntRepo := newSignatureStack(&fakeProvider{})
	contract := seedContract(repo, models.ContractStatusReadyForSignature, func(c *models.HuntContract) {
		c.GuideFeeCents = 10000
	})

	sent, err := svc.SendToProvider(context.Background(), adminContext(), contract.ID)
	require.NoError(t, err)
	require.True(t, sent.HasMockEnvelope())

	// Client signs with a typed name
	clientSigned, err := svc.SignTypedName(context.Background(), clientContext("hunter@example.com"), contract.ID, "Dana Hunter")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusClientSigned, clientSigned.Status)
	assert.Equal(t, "Dana Hunter", clientSigned.ClientSignedName)
	require.NotNil(t, clientSigned.ClientSignedAt)

	// Admin countersigns, reaching full execution and triggering settlement
	// plus calendar projection
	executed, err := svc.SignTypedName(context.Background(), adminContext(), contract.ID, "Casey Admin")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusFullyExecuted, executed.Status)
	assert.Equal(t, "Casey Admin", executed.AdminSignedName)
	assert.Equal(t, 1, paymentRepo.count())
	assert.Equal(t, 1, huntRepo.count())
}

func TestSignTypedName_ClientCannotSignProviderEnvelope(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true})
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
	})

	_, err := svc.SignTypedName(context.Background(), clientContext("hunter@example.com"), contract.ID, "Dana Hunter")
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestSignTypedName_AdminNeedsClientFirst(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{})
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = models.MockEnvelopePrefix + "abc"
	})

	_, err := svc.SignTypedName(context.Background(), adminContext(), contract.ID, "Casey Admin")
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestHandleWebhook_AppliesStatusAndSideEffects(t *testing.T) {
	svc, repo, paymentRepo, _ := newSignatureStack(&fakeProvider{configured: true})
	seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
		c.GuideFeeCents = 10000
	})

	outcome, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, outcome)

	outcome, err = svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "signed"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, outcome)

	outcome, err = svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, outcome)

	stored, err := repo.GetByEnvelopeID(context.Background(), "env-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusFullyExecuted, stored.Status)
	assert.NotNil(t, stored.ClientSignedAt)
	assert.NotNil(t, stored.AdminSignedAt)
	assert.Equal(t, 1, paymentRepo.count())
}

func TestHandleWebhook_RedeliveryIsIdempotent(t *testing.T) {
	svc, repo, paymentRepo, _ := newSignatureStack(&fakeProvider{configured: true})
	seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
		c.GuideFeeCents = 10000
	})

	first, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, first)

	second, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeDuplicate, second)

	assert.Equal(t, 1, paymentRepo.count())
}

func TestHandleWebhook_UnknownEnvelopeAcknowledged(t *testing.T) {
	svc, _, _, _ := newSignatureStack(&fakeProvider{configured: true})

	outcome, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "someone-elses-envelope", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeUnknownEnvelope, outcome)
}

func TestHandleWebhook_OutOfOrderSkipped(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true})
	seedContract(repo, models.ContractStatusClientSigned, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
		now := time.Now()
		c.ClientSignedAt = &now
	})

	// A late "sent" notification must not rewind the contract
	outcome, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "sent"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeStale, outcome)

	stored, err := repo.GetByEnvelopeID(context.Background(), "env-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusClientSigned, stored.Status)
}

func TestHandleWebhook_DeclinedCancels(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true})
	seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
	})

	outcome, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "declined"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, outcome)

	stored, err := repo.GetByEnvelopeID(context.Background(), "env-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
}

func TestHandleWebhook_UnknownStatusIgnored(t *testing.T) {
	svc, repo, _, _ := newSignatureStack(&fakeProvider{configured: true})
	seedContract(repo, models.ContractStatusSentToDocuSign, func(c *models.HuntContract) {
		c.EnvelopeID = "env-1"
	})

	outcome, err := svc.HandleWebhook(context.Background(), &WebhookPayload{EnvelopeID: "env-1", Status: "autoresponded"})
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeIgnored, outcome)
}
