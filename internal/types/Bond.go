/*

This file contains the bond instrument types. A BondDescriptor is static
configuration defined at process start; the dynamic per-bond values quoted
from chain are attached to a read-only BondQuote view and never mutate the
descriptor.

*/

package types

import "github.com/ethereum/go-ethereum/common"

// BondKind selects the treasury-valuation formula for a bond's reserve.
// There is no other behavioral variation between bond instruments.
type BondKind string

const (
	BondKindStable   BondKind = "stable"    // single stablecoin reserve, valued 1:1
	BondKindCustom   BondKind = "custom"    // single non-stable reserve, valued at oracle price
	BondKindLP       BondKind = "lp"        // stable/protocol-token LP position
	BondKindCustomLP BondKind = "custom_lp" // non-stable/protocol-token LP position
)

// IsLP reports whether the bond reserve is a liquidity-pool position.
// LP reserves count at half weight toward treasury backing because the other
// half of the pool is the protocol's own token.
func (k BondKind) IsLP() bool {
	return k == BondKindLP || k == BondKindCustomLP
}

// BondAddresses holds the deployed contract pair for one network.
type BondAddresses struct {
	Bond    common.Address `json:"bond"`
	Reserve common.Address `json:"reserve"`
}

// BondDescriptor is the static configuration of one bond instrument.
// Instances are defined in the config package and immutable thereafter.
type BondDescriptor struct {
	Name            string                  `json:"name"`         // e.g., "mim_snow_lp"
	DisplayName     string                  `json:"display_name"` // e.g., "SNOW-MIM LP"
	BondToken       string                  `json:"bond_token"`   // reserve asset symbol, e.g. "MIM"
	Kind            BondKind                `json:"kind"`
	IsActive        bool                    `json:"is_active"`
	LPURL           string                  `json:"lp_url,omitempty"`
	NetworkAddrs    map[int64]BondAddresses `json:"-"`
	ReserveDecimals int                     `json:"reserve_decimals"` // decimals of the deposit asset
}

// AddressesFor returns the contract pair for a network.
func (b BondDescriptor) AddressesFor(chainID int64) (BondAddresses, bool) {
	addrs, ok := b.NetworkAddrs[chainID]
	return addrs, ok
}

// BondQuote is the read-only dynamic view of a bond, recomputed on demand
// from chain reads. It references but never mutates the descriptor.
type BondQuote struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Kind         BondKind `json:"kind"`
	IsActive     bool     `json:"is_active"`
	BondPrice    float64  `json:"bond_price"`     // USD per token when bonding
	BondDiscount float64  `json:"bond_discount"`  // fraction vs market price, negative when bonding is a premium
	MaxBondPrice float64  `json:"max_bond_price"` // largest payout the bond contract will accept, in tokens
	Purchased    float64  `json:"purchased"`      // total reserve value bonded to date, USD
	Allowance    string   `json:"allowance"`      // current reserve-token allowance in base units
}
