/*

This file contains the pending transaction registry. It is the single owner
of the in-flight transaction list: workflows reserve an action slot before
submitting, commit the real entry once the chain assigns a hash, and release
the slot when the transaction settles. Reservation makes the duplicate guard
atomic - between "check" and "submit" no second transaction for the same
action can slip in.

*/

package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/snowbound-dao/sdm/internal/types"
)

var (
	// ErrActionInFlight is returned when an action already has a reserved
	// slot or a pending transaction.
	ErrActionInFlight = errors.New("action already has a transaction in flight")
	// ErrDuplicateID is returned when a transaction hash is already tracked.
	ErrDuplicateID = errors.New("transaction id already tracked")
	// ErrNotReserved is returned when committing an action with no
	// reservation.
	ErrNotReserved = errors.New("action was not reserved")
)

// Registry tracks in-flight transactions and reserved action slots. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  []types.PendingTransaction
	byID     map[string]int
	reserved map[types.ActionType]struct{}
}

func New() *Registry {
	return &Registry{
		byID:     make(map[string]int),
		reserved: make(map[types.ActionType]struct{}),
	}
}

// Reserve claims the action slot for a transaction about to be submitted.
// Fails when the action already has a reservation or a pending entry.
func (r *Registry) Reserve(action types.ActionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reserved[action]; ok {
		return fmt.Errorf("%w: %s", ErrActionInFlight, action)
	}
	if r.hasActionLocked(action) {
		return fmt.Errorf("%w: %s", ErrActionInFlight, action)
	}
	r.reserved[action] = struct{}{}
	return nil
}

// Commit converts a reservation into a tracked pending entry once the chain
// has assigned a transaction hash. The reservation is consumed either way.
func (r *Registry) Commit(action types.ActionType, id, label string) (types.PendingTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reserved[action]; !ok {
		return types.PendingTransaction{}, fmt.Errorf("%w: %s", ErrNotReserved, action)
	}
	delete(r.reserved, action)

	if _, ok := r.byID[id]; ok {
		return types.PendingTransaction{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	entry := types.PendingTransaction{
		ID:          id,
		Label:       label,
		Action:      action,
		SubmittedAt: time.Now().UTC(),
	}
	r.byID[id] = len(r.entries)
	r.entries = append(r.entries, entry)
	return entry, nil
}

// Release drops a reservation that never produced a transaction (signing
// rejected, submission failed). No-op when the action is not reserved.
func (r *Registry) Release(action types.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, action)
}

// Add tracks an already-submitted transaction directly, bypassing the
// reservation flow. Used when adopting transactions observed on chain.
func (r *Registry) Add(entry types.PendingTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[entry.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
	}
	if r.hasActionLocked(entry.Action) {
		return fmt.Errorf("%w: %s", ErrActionInFlight, entry.Action)
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}
	r.byID[entry.ID] = len(r.entries)
	r.entries = append(r.entries, entry)
	return nil
}

// RemoveByID stops tracking a transaction. No-op when the id is unknown, so
// settlement cleanup can run unconditionally.
func (r *Registry) RemoveByID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	for i := idx; i < len(r.entries); i++ {
		r.byID[r.entries[i].ID] = i
	}
}

// HasAction reports whether the action has a pending transaction or a
// reserved slot.
func (r *Registry) HasAction(action types.ActionType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.reserved[action]; ok {
		return true
	}
	return r.hasActionLocked(action)
}

// Get returns the pending entry for an id.
func (r *Registry) Get(id string) (types.PendingTransaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return types.PendingTransaction{}, false
	}
	return r.entries[idx], true
}

// List returns a copy of all pending entries in submission order.
func (r *Registry) List() []types.PendingTransaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.PendingTransaction, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of tracked pending transactions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) hasActionLocked(action types.ActionType) bool {
	for _, e := range r.entries {
		if e.Action == action {
			return true
		}
	}
	return false
}
