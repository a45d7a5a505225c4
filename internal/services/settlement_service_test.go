package services

import (
	"context"
	"testing"

	"outfitter-service/internal/config"
	"outfitter-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billingConfig() config.BillingConfig {
	return config.BillingConfig{
		PlatformFeeBasisPoints: 250,
		PaymentDueDays:         14,
	}
}

func TestCreateGuideFeeItem_CreatesExactlyOnce(t *testing.T) {
	repo := newFakePaymentRepo()
	events := &fakeEvents{}
	svc := NewSettlementService(repo, billingConfig())
	svc.SetEventPublisher(events)

	contractRepo := newFakeContractRepo()
	contract := seedContract(contractRepo, models.ContractStatusFullyExecuted, func(c *models.HuntContract) {
		c.GuideFeeCents = 10000
		signedTimes(c)
	})

	item, err := svc.CreateGuideFeeItem(context.Background(), contract)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(10000), item.SubtotalCents)
	assert.Equal(t, int64(250), item.PlatformFeeCents) // 2.5% of 10000
	assert.Equal(t, int64(10250), item.TotalCents)
	assert.Equal(t, models.PaymentStatusUnpaid, item.Status)
	require.NotNil(t, item.DueDate)
	require.NotNil(t, item.ContractID)
	assert.Equal(t, contract.ID, *item.ContractID)

	// Re-triggering (webhook redelivery, manual status edit) must not create
	// a second obligation
	again, err := svc.CreateGuideFeeItem(context.Background(), contract)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, item.ID, again.ID)
	assert.Equal(t, 1, repo.count())

	// Only the first trigger publishes an event
	assert.Equal(t, []string{"payment_item.created"}, events.types())
}

func TestCreateGuideFeeItem_RequiresBothSignatures(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewSettlementService(repo, billingConfig())

	contractRepo := newFakeContractRepo()
	contract := seedContract(contractRepo, models.ContractStatusClientSigned, func(c *models.HuntContract) {
		c.GuideFeeCents = 10000
	})

	_, err := svc.CreateGuideFeeItem(context.Background(), contract)
	_, ok := IsInvalidStateError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, repo.count())
}

func TestCreateGuideFeeItem_ZeroFeeSkipped(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewSettlementService(repo, billingConfig())

	contractRepo := newFakeContractRepo()
	contract := seedContract(contractRepo, models.ContractStatusFullyExecuted, func(c *models.HuntContract) {
		c.GuideFeeCents = 0
		signedTimes(c)
	})

	item, err := svc.CreateGuideFeeItem(context.Background(), contract)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 0, repo.count())
}

func TestApplyPayment_ReconcilesStatus(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewSettlementService(repo, billingConfig())

	item := &models.PaymentItem{
		OutfitterID:   testOutfitterID,
		ClientEmail:   "hunter@example.com",
		ItemType:      models.PaymentItemTypeGuideFee,
		SubtotalCents: 10000,
		TotalCents:    10250,
		Status:        models.PaymentStatusUnpaid,
	}
	require.NoError(t, repo.Create(context.Background(), item))

	updated, err := svc.ApplyPayment(context.Background(), adminContext(), item.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartiallyPaid, updated.Status)
	assert.Equal(t, int64(5000), updated.AmountPaidCents)

	updated, err = svc.ApplyPayment(context.Background(), adminContext(), item.ID, 5250)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.Status)
}

func TestApplyPayment_Validation(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewSettlementService(repo, billingConfig())

	item := &models.PaymentItem{OutfitterID: testOutfitterID, TotalCents: 1000}
	require.NoError(t, repo.Create(context.Background(), item))

	_, err := svc.ApplyPayment(context.Background(), adminContext(), item.ID, 0)
	_, ok := IsValidationError(err)
	assert.True(t, ok)

	_, err = svc.ApplyPayment(context.Background(), clientContext("hunter@example.com"), item.ID, 100)
	_, ok = IsAuthorizationError(err)
	assert.True(t, ok)
}
