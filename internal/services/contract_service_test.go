package services

import (
	"context"
	"testing"
	"time"

	"outfitter-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContractStack wires a contract service with working settlement and
// calendar services over in-memory repos.
func newContractStack() (*ContractService, *fakeContractRepo, *fakePaymentRepo, *fakeHuntRepo) {
	contractRepo := newFakeContractRepo()
	paymentRepo := newFakePaymentRepo()
	huntRepo := newFakeHuntRepo()
	membershipSvc := NewMembershipService(newFakeMembershipRepo())

	settlementSvc := NewSettlementService(paymentRepo, billingConfig())
	calendarSvc := NewCalendarService(huntRepo, contractRepo)
	contractSvc := NewContractService(contractRepo, settlementSvc, calendarSvc, membershipSvc)
	return contractSvc, contractRepo, paymentRepo, huntRepo
}

func TestCreateContract_SendsToClientByDefault(t *testing.T) {
	svc, _, _, _ := newContractStack()

	contract, err := svc.Create(context.Background(), adminContext(), &CreateContractRequest{
		ClientEmail:     "Hunter@Example.com",
		TemplateContent: "agreement text",
		GuideFeeCents:   10000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingCompletion, contract.Status)
	assert.Equal(t, "hunter@example.com", contract.ClientEmail)

	draft, err := svc.Create(context.Background(), adminContext(), &CreateContractRequest{
		ClientEmail:     "hunter@example.com",
		TemplateContent: "agreement text",
		AsDraft:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusDraft, draft.Status)
}

func TestCreateContract_StaffOnly(t *testing.T) {
	svc, _, _, _ := newContractStack()

	_, err := svc.Create(context.Background(), clientContext("hunter@example.com"), &CreateContractRequest{
		ClientEmail:     "hunter@example.com",
		TemplateContent: "agreement text",
	})
	_, ok := IsAuthorizationError(err)
	assert.True(t, ok)

	guide := adminContext()
	guide.Role = models.RoleGuide
	_, err = svc.Create(context.Background(), guide, &CreateContractRequest{
		ClientEmail:     "hunter@example.com",
		TemplateContent: "agreement text",
	})
	_, ok = IsAuthorizationError(err)
	assert.True(t, ok)
}

func TestGetContract_ClientSeesOnlyOwn(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	got, err := svc.Get(context.Background(), clientContext("hunter@example.com"), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, got.ID)

	_, err = svc.Get(context.Background(), clientContext("other@example.com"), contract.ID)
	_, ok := IsAuthorizationError(err)
	assert.True(t, ok)
}

func TestSubmitCompletion(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	payload := map[string]interface{}{
		"species":    "elk",
		"unit":       "23",
		"weapon":     "archery",
		"start_date": "2026-09-12",
		"end_date":   "2026-09-18",
	}

	updated, err := svc.SubmitCompletion(context.Background(), clientContext("hunter@example.com"), contract.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingCompletion, updated.Status)
	assert.NotNil(t, updated.ClientCompletedAt)
	assert.NotEmpty(t, updated.CompletionData)
}

func TestSubmitCompletion_WrongClientRejected(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	_, err := svc.SubmitCompletion(context.Background(), clientContext("intruder@example.com"), contract.ID, map[string]interface{}{"species": "elk"})
	_, ok := IsAuthorizationError(err)
	assert.True(t, ok)
}

func TestSubmitCompletion_RejectedAfterSend(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, nil)

	_, err := svc.SubmitCompletion(context.Background(), clientContext("hunter@example.com"), contract.ID, map[string]interface{}{"species": "elk"})
	stateErr, ok := IsInvalidStateError(err)
	require.True(t, ok)
	assert.Equal(t, string(models.ContractStatusSentToDocuSign), stateErr.CurrentStatus)
}

func TestReview_ApproveMovesToReadyForSignature(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	_, err := svc.SubmitCompletion(context.Background(), clientContext("hunter@example.com"), contract.ID, map[string]interface{}{"species": "elk"})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), adminContext(), contract.ID, ReviewActionApprove, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusReadyForSignature, reviewed.Status)
	assert.Equal(t, "looks good", reviewed.ReviewNotes)
}

func TestReview_RejectClearsCompletionData(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	_, err := svc.SubmitCompletion(context.Background(), clientContext("hunter@example.com"), contract.ID, map[string]interface{}{"species": "elk"})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), adminContext(), contract.ID, ReviewActionReject, "wrong unit")
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingCompletion, reviewed.Status)
	assert.Nil(t, reviewed.ClientCompletedAt)
	assert.Empty(t, reviewed.CompletionData)

	// Nothing to review until the client resubmits
	_, err = svc.Review(context.Background(), adminContext(), contract.ID, ReviewActionApprove, "")
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestReview_RequiresSubmission(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusPendingCompletion, nil)

	_, err := svc.Review(context.Background(), adminContext(), contract.ID, ReviewActionApprove, "")
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestUpdateStatus_IllegalTransitionRejected(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusDraft, nil)

	_, err := svc.UpdateStatus(context.Background(), adminContext(), contract.ID, models.ContractStatusFullyExecuted)
	stateErr, ok := IsInvalidStateError(err)
	require.True(t, ok)
	assert.Equal(t, string(models.ContractStatusDraft), stateErr.CurrentStatus)
}

func TestUpdateStatus_ClientSignedStampsTimestamp(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, nil)

	signed, err := svc.UpdateStatus(context.Background(), adminContext(), contract.ID, models.ContractStatusClientSigned)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusClientSigned, signed.Status)
	assert.NotNil(t, signed.ClientSignedAt)
}

func TestUpdateStatus_RepeatedTerminalStatusRejected(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, nil)

	_, err := svc.Cancel(context.Background(), adminContext(), contract.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), adminContext(), contract.ID, models.ContractStatusCancelled)
	stateErr, ok := IsInvalidStateError(err)
	require.True(t, ok)
	assert.Equal(t, string(models.ContractStatusCancelled), stateErr.CurrentStatus)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusDraft, nil)

	got, err := svc.UpdateStatus(context.Background(), adminContext(), contract.ID, models.ContractStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusDraft, got.Status)
}

func TestUpdateStatus_FullyExecutedTriggersSettlementOnce(t *testing.T) {
	svc, repo, paymentRepo, huntRepo := newContractStack()
	contract := seedContract(repo, models.ContractStatusClientSigned, func(c *models.HuntContract) {
		c.GuideFeeCents = 10000
		now := time.Now()
		c.ClientSignedAt = &now
	})

	executed, err := svc.UpdateStatus(context.Background(), adminContext(), contract.ID, models.ContractStatusFullyExecuted)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusFullyExecuted, executed.Status)
	assert.NotNil(t, executed.AdminSignedAt)
	assert.Equal(t, 1, paymentRepo.count())
	assert.Equal(t, 1, huntRepo.count())

	// Running the hook again (webhook redelivery path) changes nothing
	svc.OnFullyExecuted(context.Background(), executed)
	assert.Equal(t, 1, paymentRepo.count())
	assert.Equal(t, 1, huntRepo.count())
}

func TestCancel(t *testing.T) {
	svc, repo, _, _ := newContractStack()
	contract := seedContract(repo, models.ContractStatusSentToDocuSign, nil)

	cancelled, err := svc.Cancel(context.Background(), adminContext(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Terminal: cannot cancel twice
	_, err = svc.Cancel(context.Background(), adminContext(), contract.ID)
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
}
