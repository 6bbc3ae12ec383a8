package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/types"
)

func TestReserveBlocksSecondReservation(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.ActionStaking))

	err := r.Reserve(types.ActionStaking)
	require.ErrorIs(t, err, ErrActionInFlight)

	// A different action is unaffected.
	require.NoError(t, r.Reserve(types.ActionUnstaking))
}

func TestCommitConsumesReservation(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.ActionStaking))
	entry, err := r.Commit(types.ActionStaking, "0xabc", "Staking SNOW")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", entry.ID)
	assert.Equal(t, types.ActionStaking, entry.Action)
	assert.False(t, entry.SubmittedAt.IsZero())

	// The pending entry keeps the action occupied.
	assert.True(t, r.HasAction(types.ActionStaking))
	require.ErrorIs(t, r.Reserve(types.ActionStaking), ErrActionInFlight)

	// Committing again without a new reservation fails.
	_, err = r.Commit(types.ActionStaking, "0xdef", "Staking SNOW")
	require.ErrorIs(t, err, ErrNotReserved)
}

func TestReleaseFreesSlot(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.ActionWrapping))
	r.Release(types.ActionWrapping)

	assert.False(t, r.HasAction(types.ActionWrapping))
	require.NoError(t, r.Reserve(types.ActionWrapping))

	// Releasing an unreserved action is a no-op.
	r.Release(types.ActionRedeem)
	assert.False(t, r.HasAction(types.ActionRedeem))
}

func TestDuplicateIDRejected(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.ActionStaking))
	_, err := r.Commit(types.ActionStaking, "0xabc", "Staking SNOW")
	require.NoError(t, err)

	require.NoError(t, r.Reserve(types.ActionUnstaking))
	_, err = r.Commit(types.ActionUnstaking, "0xabc", "Unstaking sSNOW")
	require.ErrorIs(t, err, ErrDuplicateID)

	// The failed commit consumed the reservation; the list holds one entry.
	assert.Equal(t, 1, r.Len())
	assert.False(t, r.HasAction(types.ActionUnstaking))
}

func TestRemoveByIDPreservesOrder(t *testing.T) {
	r := New()

	for _, tc := range []struct {
		action types.ActionType
		id     string
	}{
		{types.ActionStaking, "0x1"},
		{types.ActionUnstaking, "0x2"},
		{types.ActionWrapping, "0x3"},
	} {
		require.NoError(t, r.Reserve(tc.action))
		_, err := r.Commit(tc.action, tc.id, string(tc.action))
		require.NoError(t, err)
	}

	r.RemoveByID("0x2")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "0x1", list[0].ID)
	assert.Equal(t, "0x3", list[1].ID)

	// Index map stays consistent after the shift.
	entry, ok := r.Get("0x3")
	require.True(t, ok)
	assert.Equal(t, types.ActionWrapping, entry.Action)

	// Removing an unknown id is a no-op.
	r.RemoveByID("0x2")
	assert.Equal(t, 2, r.Len())

	// The removed action is free again.
	assert.False(t, r.HasAction(types.ActionUnstaking))
}

func TestAddAdoptsExternalTransaction(t *testing.T) {
	r := New()

	err := r.Add(types.PendingTransaction{ID: "0x9", Action: types.ActionRedeem, Label: "Redeeming SNOW"})
	require.NoError(t, err)
	assert.True(t, r.HasAction(types.ActionRedeem))

	err = r.Add(types.PendingTransaction{ID: "0x9", Action: types.ActionStaking})
	require.ErrorIs(t, err, ErrDuplicateID)

	err = r.Add(types.PendingTransaction{ID: "0xa", Action: types.ActionRedeem})
	require.ErrorIs(t, err, ErrActionInFlight)
}

func TestListReturnsCopy(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.ActionStaking))
	_, err := r.Commit(types.ActionStaking, "0x1", "Staking SNOW")
	require.NoError(t, err)

	list := r.List()
	list[0].ID = "mutated"

	entry, ok := r.Get("0x1")
	require.True(t, ok)
	assert.Equal(t, "0x1", entry.ID)
}

func TestBondActionsAreIndependent(t *testing.T) {
	r := New()

	require.NoError(t, r.Reserve(types.BondActionType("mim_snow_lp")))
	require.NoError(t, r.Reserve(types.BondActionType("avax_snow_lp")))
	require.ErrorIs(t, r.Reserve(types.BondActionType("mim_snow_lp")), ErrActionInFlight)
}
