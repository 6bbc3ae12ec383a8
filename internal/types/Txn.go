/*

This file contains the transaction lifecycle types: the logical action tags
used for duplicate-submission guarding, pending-transaction entries, and the
receipt written after a transaction settles.

*/

package types

import "time"

// ActionType is the logical category of a user-initiated transaction. It
// keys the duplicate-submission guard and the dashboard's button state:
// at most one transaction per action type may be in flight.
type ActionType string

const (
	ActionApproveStaking   ActionType = "approve_staking"
	ActionApproveUnstaking ActionType = "approve_unstaking"
	ActionApproveWrapping  ActionType = "approve_wrapping"
	ActionApproveRedeem    ActionType = "approve_redeem"
	ActionStaking          ActionType = "staking"
	ActionUnstaking        ActionType = "unstaking"
	ActionWrapping         ActionType = "wrapping"
	ActionUnwrapping       ActionType = "unwrapping"
	ActionRedeem           ActionType = "redeem"
)

// BondActionType returns the action tag for bonding a specific instrument.
func BondActionType(bondName string) ActionType {
	return ActionType("bond_" + bondName)
}

// ApproveBondActionType returns the action tag for approving a bond's
// reserve asset.
func ApproveBondActionType(bondName string) ActionType {
	return ActionType("approve_bond_" + bondName)
}

// PendingTransaction is one in-flight transaction awaiting confirmation.
// Entries are owned exclusively by the pending registry; callers only ever
// see copies.
type PendingTransaction struct {
	// ID is the chain-assigned transaction hash, unique and immutable.
	ID string `json:"id"`
	// Label is the human-readable description of the action.
	Label string `json:"label"`
	// Action is the logical category tag used for duplicate guarding.
	Action ActionType `json:"action"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// TxOutcome is the terminal state of a settled transaction.
type TxOutcome string

const (
	TxOutcomeSuccess  TxOutcome = "success"
	TxOutcomeReverted TxOutcome = "reverted"
	TxOutcomeRejected TxOutcome = "rejected" // signer declined to sign
	TxOutcomeFailed   TxOutcome = "failed"   // submission or confirmation failure
)

// TxReceipt records how a transaction settled, for diagnostics and the
// dashboard history view.
type TxReceipt struct {
	ID          string     `json:"id,omitempty"` // empty when submission never produced a hash
	Action      ActionType `json:"action"`
	Label       string     `json:"label"`
	Outcome     TxOutcome  `json:"outcome"`
	Error       string     `json:"error,omitempty"` // raw cause preserved for diagnostics
	GasUsed     uint64     `json:"gas_used,omitempty"`
	BlockNumber uint64     `json:"block_number,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	SettledAt   time.Time  `json:"settled_at"`
}
