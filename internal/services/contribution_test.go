package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/notify"
)

func TestContributeVerifiedAndMirrored(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	env.gateway.succeedCharge("ref-1", 100)

	c, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "ref-1", "mobile_money")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionCompleted, c.Status)
	assert.NotNil(t, c.VerifiedAt)

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.TotalSavings())

	txns, err := env.store.ListTransactionsByGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "ref-1", txns[0].Reference)
	assert.Equal(t, models.TransactionContribution, txns[0].Kind)

	assert.True(t, env.notifier.has(notify.EventContributionConfirmed))
}

func TestContributeValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)

	_, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 0, "ref-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestContributeNonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	stranger := env.createUser(t, "Esi", "esi@example.com")
	group := env.createGroup(t, alice)
	env.gateway.succeedCharge("ref-1", 100)

	_, err := env.contributions.Contribute(context.Background(), stranger, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestContributeProviderRejectionLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	env.gateway.failCharge("ref-1", "abandoned")

	_, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.ExternalService, apperr.KindOf(err))

	// The pending record stays behind for later reconciliation.
	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	require.Len(t, got.Contributions, 1)
	assert.Equal(t, models.ContributionPending, got.Contributions[0].Status)
	assert.Equal(t, 0.0, got.TotalSavings())
}

func TestContributeAmountMismatchFails(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	env.gateway.succeedCharge("ref-1", 90)

	_, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.ExternalService, apperr.KindOf(err))

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.TotalSavings())
}

func TestContributeDuplicateReferenceConflicts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	env.contribute(t, group.ID.Hex(), alice, "ref-1", 100)

	_, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestConfirmByReferenceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	env.contribute(t, group.ID.Hex(), alice, "ref-1", 100)

	// Duplicate webhook delivery: same reference confirmed again.
	require.NoError(t, env.contributions.ConfirmByReference(context.Background(), "ref-1"))
	require.NoError(t, env.contributions.ConfirmByReference(context.Background(), "ref-1"))

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.TotalSavings())

	txns, err := env.store.ListTransactionsByGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestConfirmByReferenceUnknown(t *testing.T) {
	env := newTestEnv(t)

	err := env.contributions.ConfirmByReference(context.Background(), "no-such-ref")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestConfirmPromotesPendingWithProviderAmount(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)

	// Verification fails at contribute time, then the provider later
	// reports success with a corrected amount.
	env.gateway.failCharge("ref-1", "pending")
	_, err := env.contributions.Contribute(context.Background(), alice, group.ID.Hex(), 100, "ref-1", "")
	require.Error(t, err)

	env.gateway.succeedCharge("ref-1", 120)
	require.NoError(t, env.contributions.ConfirmByReference(context.Background(), "ref-1"))

	got, err := env.store.GetGroup(context.Background(), group.ID.Hex())
	require.NoError(t, err)
	require.Len(t, got.Contributions, 1)
	assert.Equal(t, models.ContributionCompleted, got.Contributions[0].Status)
	assert.Equal(t, 120.0, got.Contributions[0].Amount)
}

func TestSyncPartialSuccess(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	group := env.createGroup(t, alice)
	groupID := group.ID.Hex()

	// Two pending contributions, one the provider confirms, one it rejects.
	env.gateway.failCharge("ref-ok", "pending")
	env.gateway.failCharge("ref-bad", "pending")
	_, _ = env.contributions.Contribute(context.Background(), alice, groupID, 100, "ref-ok", "")
	_, _ = env.contributions.Contribute(context.Background(), alice, groupID, 50, "ref-bad", "")

	env.gateway.succeedCharge("ref-ok", 100)
	env.gateway.failCharge("ref-bad", "abandoned")

	result, err := env.contributions.Sync(context.Background(), alice, groupID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ref-ok"}, result.Confirmed)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ref-bad", result.Failed[0].Reference)
	assert.Contains(t, result.Failed[0].Error, "abandoned")

	got, err := env.store.GetGroup(context.Background(), groupID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.TotalSavings())
}

func TestSyncRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Ama", "ama@example.com")
	stranger := env.createUser(t, "Esi", "esi@example.com")
	group := env.createGroup(t, alice)

	_, err := env.contributions.Sync(context.Background(), stranger, group.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}
