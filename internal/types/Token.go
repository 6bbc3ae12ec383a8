/*

This is a custom type for tokens which contains the static metadata needed to
convert between human amounts and on-chain base units, plus the latest
reference price.

*/

package types

// Token describes one of the protocol's tokens or a reserve asset.
type Token struct {
	Symbol        string  `json:"symbol"`         // e.g., "SNOW"
	Decimals      int     `json:"decimals"`       // e.g., 9 -> 1 SNOW = 1e9 base units
	PriceUSD      float64 `json:"price_usd"`      // e.g., 1.0 for the reserve stablecoin
	OracleSourced bool    `json:"oracle_sourced"` // true when PriceUSD comes from the external price oracle
}

// Well-known token symbols used throughout the service.
const (
	SymbolToken        = "SNOW"   // the protocol's reserve-backed token
	SymbolStakedToken  = "sSNOW"  // rebasing staked derivative
	SymbolWrappedToken = "wsSNOW" // index-accruing wrapped derivative
	SymbolReserve      = "MIM"    // treasury reserve stablecoin
	SymbolGasToken     = "AVAX"   // network gas token, also a bond reserve asset
)
