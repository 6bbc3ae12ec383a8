/*

This file contains the raw chain snapshot types. A ChainSnapshot is the
all-or-nothing result of one read cycle: either every field was read
successfully or the whole snapshot is discarded. The metrics engine consumes
snapshots and nothing else, which keeps the derived metrics deterministic.

*/

package types

import "time"

// BondSnapshot carries the valuation inputs for one bond's treasury reserve.
// Amounts are already normalized to whole-token units by the chain reader.
type BondSnapshot struct {
	Name string   `json:"name"`
	Kind BondKind `json:"kind"`

	// BalanceUSD is the full market value of the reserve held by the treasury.
	BalanceUSD float64 `json:"balance_usd"`
	// RiskFreeUSD is the reserve valued at its risk-free floor (for LP
	// positions, the stable side of the pool owned by the treasury).
	RiskFreeUSD float64 `json:"risk_free_usd"`
	// ProtocolTokenAmount is the amount of the protocol's own token embedded
	// in an LP reserve. Zero for single-asset reserves.
	ProtocolTokenAmount float64 `json:"protocol_token_amount"`
}

// RedeemSnapshot holds the raw reads for the fixed-value redemption contract.
// Nil on a ChainSnapshot when the redemption workflow is not deployed.
type RedeemSnapshot struct {
	// TotalRedeemed is the amount of protocol tokens sent to the redemption
	// contract so far, in whole tokens.
	TotalRedeemed float64 `json:"total_redeemed"`
	// ReserveAvailable is the stablecoin balance left in the redemption
	// contract, in whole tokens.
	ReserveAvailable float64 `json:"reserve_available"`
}

// ChainSnapshot is one consistent view of protocol state. Every field is a
// plain value; the snapshot owns no handles and can be compared structurally.
type ChainSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	BlockNumber uint64    `json:"block_number"`
	BlockTime   int64     `json:"block_time"` // unix seconds of the snapshot block

	// RawMarketPrice is the reserve-pair price of the protocol token scaled
	// by 1e9, exactly as derived from pair reserves on chain.
	RawMarketPrice float64 `json:"raw_market_price"`
	// ReservePriceUSD is the oracle price of the reserve stablecoin.
	ReservePriceUSD float64 `json:"reserve_price_usd"`

	TotalSupply       float64 `json:"total_supply"`       // protocol token, whole tokens
	CirculatingSupply float64 `json:"circulating_supply"` // staked token circulating supply, whole tokens
	DAOTokenAmount    float64 `json:"dao_token_amount"`   // protocol tokens held by the DAO treasury

	EpochDistribute float64 `json:"epoch_distribute"` // staking reward for the current epoch, whole tokens
	EpochEndTime    int64   `json:"epoch_end_time"`   // unix seconds
	CurrentIndex    float64 `json:"current_index"`    // staking index, whole tokens

	Bonds  []BondSnapshot  `json:"bonds"`
	Redeem *RedeemSnapshot `json:"redeem,omitempty"`
}
