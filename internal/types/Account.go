/*

This file contains the per-account state types. An AccountState is replaced
wholesale on each successful refresh; it is never partially mutated, so a
reader always sees one consistent set of balances and allowances.

*/

package types

import sdkmath "cosmossdk.io/math"

// ApprovalTarget names a (token, spender) approval context. Allowances are
// keyed by target rather than raw spender address so workflow code never
// handles addresses directly.
type ApprovalTarget string

const (
	ApproveStaking   ApprovalTarget = "staking"   // SNOW -> staking helper
	ApproveUnstaking ApprovalTarget = "unstaking" // sSNOW -> staking contract
	ApproveWrapping  ApprovalTarget = "wrapping"  // sSNOW -> wrapper contract
	ApproveRedeem    ApprovalTarget = "redeem"    // SNOW -> redemption contract
)

// BondApprovalTarget returns the approval context for a bond's reserve asset.
func BondApprovalTarget(bondName string) ApprovalTarget {
	return ApprovalTarget("bond_" + bondName)
}

// AccountState is one consistent view of the connected account's balances
// and allowances, in base units.
type AccountState struct {
	Address string `json:"address"`

	// Balances maps token symbol to balance in the token's base units.
	Balances map[string]sdkmath.Int `json:"balances"`

	// Allowances maps an approval target to the current allowance in the
	// spending token's base units. A missing key reads as zero.
	Allowances map[ApprovalTarget]sdkmath.Int `json:"allowances"`
}

// Balance returns the balance for a symbol, zero when unknown.
func (a *AccountState) Balance(symbol string) sdkmath.Int {
	if a == nil {
		return sdkmath.ZeroInt()
	}
	if v, ok := a.Balances[symbol]; ok && !v.IsNil() {
		return v
	}
	return sdkmath.ZeroInt()
}

// Allowance returns the allowance for a target, zero when unknown.
func (a *AccountState) Allowance(target ApprovalTarget) sdkmath.Int {
	if a == nil {
		return sdkmath.ZeroInt()
	}
	if v, ok := a.Allowances[target]; ok && !v.IsNil() {
		return v
	}
	return sdkmath.ZeroInt()
}

// HasAllowanceFor reports whether the target is approved for the intended
// amount. The policy is "approved iff allowance >= intended amount"; a bare
// nonzero allowance is not treated as approval.
func (a *AccountState) HasAllowanceFor(target ApprovalTarget, amount sdkmath.Int) bool {
	if amount.IsNil() || !amount.IsPositive() {
		return false
	}
	return a.Allowance(target).GTE(amount)
}
