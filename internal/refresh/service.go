/*

This file contains the refresh service: the loop that re-reads protocol
state, derives metrics, and publishes both to the state store and the
history table. A failed read leaves the previous state in place; the
dashboard stays on stale-but-consistent data rather than partial data.

*/

package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/metrics"
	"github.com/snowbound-dao/sdm/internal/types"
)

// SnapshotReader reads one consistent protocol snapshot. Satisfied by
// *chain.Reader.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (types.ChainSnapshot, error)
}

// HistoryWriter persists derived metrics. Optional.
type HistoryWriter func(m types.AppMetrics, blockTime int64) error

// Service drives periodic protocol refreshes.
type Service struct {
	reader  SnapshotReader
	store   *appstate.Store
	history HistoryWriter

	cycleCount int
}

var refreshLogger = logger.GetForComponent("refresh")

// NewService wires a refresh service. history may be nil to disable
// persistence.
func NewService(reader SnapshotReader, store *appstate.Store, history HistoryWriter) (*Service, error) {
	if reader == nil {
		return nil, errors.New("snapshot reader cannot be nil")
	}
	if store == nil {
		return nil, errors.New("state store cannot be nil")
	}
	return &Service{reader: reader, store: store, history: history}, nil
}

// RunLoop refreshes immediately, then on every tick until the context ends.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration) {
	refreshLogger.Info().Dur("interval", interval).Msg("Starting refresh loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			refreshLogger.Info().Msg("Refresh loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one refresh: read, derive, publish, persist.
func (s *Service) runCycle(ctx context.Context) {
	s.cycleCount++
	cycleLogger := refreshLogger.With().
		Int("cycle", s.cycleCount).
		Str("cycle_id", uuid.New().String()).
		Logger()

	start := time.Now()
	seq := s.store.BeginRefresh()

	snapshot, err := s.reader.Snapshot(ctx)
	if err != nil {
		// Previous state stays in place.
		cycleLogger.Error().Err(err).Msg("Protocol read failed; keeping previous state")
		return
	}

	derived := metrics.Compute(snapshot)

	if !s.store.ApplyProtocol(seq, snapshot, derived) {
		cycleLogger.Debug().Uint64("seq", seq).Msg("Discarded stale refresh result")
		return
	}

	if s.history != nil {
		if err := s.history(derived, snapshot.BlockTime); err != nil {
			cycleLogger.Error().Err(err).Msg("Failed to persist metric snapshot")
		}
	}

	cycleLogger.Info().
		Uint64("block", snapshot.BlockNumber).
		Dur("duration", time.Since(start)).
		Msg("Refresh cycle completed")
}
