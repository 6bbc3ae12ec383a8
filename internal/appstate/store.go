/*

This file contains the in-memory application state store: the latest chain
snapshot, derived metrics, and connected account state, plus the pending
transaction registry. Refreshes are sequenced so a slow read that finishes
after a newer one cannot clobber fresher state.

*/

package appstate

import (
	"sync"
	"time"

	"github.com/snowbound-dao/sdm/internal/registry"
	"github.com/snowbound-dao/sdm/internal/types"
)

// Store holds the current application state. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// seq increments on every BeginRefresh; applies carrying a stale seq
	// are discarded. Protocol and account applies are guarded separately so
	// an account-only refresh cannot be clobbered by an older one either.
	seq        uint64
	appliedSeq uint64
	accountSeq uint64

	snapshot *types.ChainSnapshot
	metrics  *types.AppMetrics
	account  *types.AccountState

	refreshedAt time.Time

	pending *registry.Registry
}

func NewStore() *Store {
	return &Store{pending: registry.New()}
}

// Pending returns the pending transaction registry owned by this store.
func (s *Store) Pending() *registry.Registry {
	return s.pending
}

// BeginRefresh marks the start of a refresh cycle and returns its sequence
// number. Pass the number to the Apply methods; applies from an older cycle
// than the newest applied one are dropped.
func (s *Store) BeginRefresh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// ApplyProtocol installs a snapshot and its derived metrics. Returns false
// when a newer refresh has already been applied.
func (s *Store) ApplyProtocol(seq uint64, snap types.ChainSnapshot, metrics types.AppMetrics) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.appliedSeq {
		return false
	}
	s.appliedSeq = seq
	s.snapshot = &snap
	s.metrics = &metrics
	s.refreshedAt = time.Now().UTC()
	return true
}

// ApplyAccount installs a fresh account state. Sequenced independently of
// ApplyProtocol: the newest applied account refresh wins regardless of
// arrival order.
func (s *Store) ApplyAccount(seq uint64, account types.AccountState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.accountSeq {
		return false
	}
	s.accountSeq = seq
	s.account = &account
	return true
}

// ClearAccount drops the connected account state (wallet disconnected).
func (s *Store) ClearAccount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
}

// Snapshot returns the latest chain snapshot, nil before the first refresh.
func (s *Store) Snapshot() *types.ChainSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	snap := *s.snapshot
	return &snap
}

// Metrics returns the latest derived metrics, nil before the first refresh.
func (s *Store) Metrics() *types.AppMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metrics == nil {
		return nil
	}
	m := *s.metrics
	return &m
}

// Account returns the connected account state, nil when no wallet is
// connected or the first account read has not completed.
func (s *Store) Account() *types.AccountState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	acct := *s.account
	return &acct
}

// RefreshedAt returns when protocol state was last applied.
func (s *Store) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
