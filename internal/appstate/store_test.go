package appstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/types"
)

func TestStoreEmptyBeforeFirstRefresh(t *testing.T) {
	s := NewStore()

	assert.Nil(t, s.Snapshot())
	assert.Nil(t, s.Metrics())
	assert.Nil(t, s.Account())
	assert.True(t, s.RefreshedAt().IsZero())
}

func TestApplyProtocolInstallsState(t *testing.T) {
	s := NewStore()

	seq := s.BeginRefresh()
	ok := s.ApplyProtocol(seq, types.ChainSnapshot{BlockNumber: 100}, types.AppMetrics{BlockNumber: 100})
	require.True(t, ok)

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(100), snap.BlockNumber)
	assert.False(t, s.RefreshedAt().IsZero())
}

func TestStaleRefreshDiscarded(t *testing.T) {
	s := NewStore()

	oldSeq := s.BeginRefresh()
	newSeq := s.BeginRefresh()

	require.True(t, s.ApplyProtocol(newSeq, types.ChainSnapshot{BlockNumber: 200}, types.AppMetrics{BlockNumber: 200}))

	// The older cycle finishes late; its result must not clobber state.
	assert.False(t, s.ApplyProtocol(oldSeq, types.ChainSnapshot{BlockNumber: 100}, types.AppMetrics{BlockNumber: 100}))
	assert.False(t, s.ApplyAccount(oldSeq, types.AccountState{Address: "0xstale"}))

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(200), snap.BlockNumber)
	assert.Nil(t, s.Account())
}

func TestStaleAccountRefreshRejected(t *testing.T) {
	s := NewStore()

	oldSeq := s.BeginRefresh()
	newSeq := s.BeginRefresh()

	// The newer account-only refresh resolves first; the older one resolving
	// late must be discarded even though no protocol state was applied.
	require.True(t, s.ApplyAccount(newSeq, types.AccountState{Address: "0xfresh"}))
	assert.False(t, s.ApplyAccount(oldSeq, types.AccountState{Address: "0xstale"}))

	acct := s.Account()
	require.NotNil(t, acct)
	assert.Equal(t, "0xfresh", acct.Address)
}

func TestApplyAccountAndClear(t *testing.T) {
	s := NewStore()

	seq := s.BeginRefresh()
	require.True(t, s.ApplyAccount(seq, types.AccountState{Address: "0xabc"}))

	acct := s.Account()
	require.NotNil(t, acct)
	assert.Equal(t, "0xabc", acct.Address)

	s.ClearAccount()
	assert.Nil(t, s.Account())
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := NewStore()

	seq := s.BeginRefresh()
	require.True(t, s.ApplyProtocol(seq, types.ChainSnapshot{BlockNumber: 7}, types.AppMetrics{BlockNumber: 7}))

	snap := s.Snapshot()
	snap.BlockNumber = 99

	again := s.Snapshot()
	assert.Equal(t, uint64(7), again.BlockNumber)
}

func TestPendingRegistryShared(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Pending().Reserve(types.ActionStaking))
	assert.True(t, s.Pending().HasAction(types.ActionStaking))
}
