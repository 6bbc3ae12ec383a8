package refresh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/types"
)

type scriptedReader struct {
	snapshots []types.ChainSnapshot
	errs      []error
	calls     int
}

func (r *scriptedReader) Snapshot(ctx context.Context) (types.ChainSnapshot, error) {
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return types.ChainSnapshot{}, r.errs[i]
	}
	if i < len(r.snapshots) {
		return r.snapshots[i], nil
	}
	return types.ChainSnapshot{}, errors.New("out of script")
}

func TestCyclePublishesSnapshotAndMetrics(t *testing.T) {
	store := appstate.NewStore()
	reader := &scriptedReader{snapshots: []types.ChainSnapshot{{BlockNumber: 10, CirculatingSupply: 800, TotalSupply: 1000}}}

	var persisted []types.AppMetrics
	svc, err := NewService(reader, store, func(m types.AppMetrics, blockTime int64) error {
		persisted = append(persisted, m)
		return nil
	})
	require.NoError(t, err)

	svc.runCycle(context.Background())

	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(10), snap.BlockNumber)
	require.NotNil(t, store.Metrics())
	require.Len(t, persisted, 1)
	assert.Equal(t, uint64(10), persisted[0].BlockNumber)
}

func TestFailedReadKeepsPreviousState(t *testing.T) {
	store := appstate.NewStore()
	reader := &scriptedReader{
		snapshots: []types.ChainSnapshot{{BlockNumber: 10}, {}},
		errs:      []error{nil, errors.New("node down")},
	}

	svc, err := NewService(reader, store, nil)
	require.NoError(t, err)

	svc.runCycle(context.Background())
	svc.runCycle(context.Background())

	// The failed second cycle must not clear or replace the first result.
	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(10), snap.BlockNumber)
}

func TestHistoryFailureDoesNotUnpublish(t *testing.T) {
	store := appstate.NewStore()
	reader := &scriptedReader{snapshots: []types.ChainSnapshot{{BlockNumber: 5}}}

	svc, err := NewService(reader, store, func(types.AppMetrics, int64) error {
		return errors.New("db down")
	})
	require.NoError(t, err)

	svc.runCycle(context.Background())

	require.NotNil(t, store.Snapshot())
}
