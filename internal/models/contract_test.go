package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ForwardPath(t *testing.T) {
	allowed := []struct {
		from, to ContractStatus
	}{
		{ContractStatusDraft, ContractStatusPendingCompletion},
		{ContractStatusDraft, ContractStatusReadyForSignature},
		{ContractStatusPendingCompletion, ContractStatusReadyForSignature},
		{ContractStatusReadyForSignature, ContractStatusSentToDocuSign},
		{ContractStatusReadyForSignature, ContractStatusPendingCompletion}, // reject rewind
		{ContractStatusSentToDocuSign, ContractStatusDelivered},
		{ContractStatusSentToDocuSign, ContractStatusClientSigned},
		{ContractStatusDelivered, ContractStatusClientSigned},
		{ContractStatusClientSigned, ContractStatusFullyExecuted},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestCanTransition_IllegalMoves(t *testing.T) {
	denied := []struct {
		from, to ContractStatus
	}{
		{ContractStatusDraft, ContractStatusSentToDocuSign},
		{ContractStatusDraft, ContractStatusFullyExecuted},
		{ContractStatusPendingCompletion, ContractStatusClientSigned},
		{ContractStatusSentToDocuSign, ContractStatusFullyExecuted},
		{ContractStatusClientSigned, ContractStatusDraft},
		{ContractStatusFullyExecuted, ContractStatusDraft},
		{ContractStatusFullyExecuted, ContractStatusClientSigned},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestCanTransition_CancelFromAnyActiveState(t *testing.T) {
	active := []ContractStatus{
		ContractStatusDraft,
		ContractStatusPendingCompletion,
		ContractStatusReadyForSignature,
		ContractStatusSentToDocuSign,
		ContractStatusDelivered,
		ContractStatusClientSigned,
		ContractStatusFullyExecuted,
	}
	for _, from := range active {
		assert.True(t, CanTransition(from, ContractStatusCancelled), "%s -> cancelled should be allowed", from)
	}
	assert.False(t, CanTransition(ContractStatusCancelled, ContractStatusCancelled))
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("bogus", ContractStatusDraft))
	assert.False(t, CanTransition(ContractStatusDraft, "bogus"))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, ContractStatusFullyExecuted.IsTerminal())
	assert.True(t, ContractStatusCancelled.IsTerminal())
	assert.False(t, ContractStatusDraft.IsTerminal())
	assert.False(t, ContractStatusClientSigned.IsTerminal())
}

func TestHasMockEnvelope(t *testing.T) {
	c := &HuntContract{EnvelopeID: "mock-5f2b"}
	assert.True(t, c.HasMockEnvelope())

	c.EnvelopeID = "4a9c1e22-77aa-4d0e-b5ff-2d1b8a71c111"
	assert.False(t, c.HasMockEnvelope())

	c.EnvelopeID = ""
	assert.False(t, c.HasMockEnvelope())
}
