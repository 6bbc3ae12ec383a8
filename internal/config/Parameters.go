/*

This file contains the protocol parameters used by the metrics engine.
These mirror the on-chain staking configuration; they are compile-time
constants because the protocol's epoch schedule is fixed at deployment.

*/

package config

// Epoch schedule. The staking contract rebases three times per day.
const (
	// EpochsPerDay is the number of rebases in 24 hours.
	EpochsPerDay = 3
	// EpochsPerYear is the compounding periods used for APY (365 * 3).
	EpochsPerYear = 365 * EpochsPerDay
	// EpochsPerFiveDays is the compounding periods for the five-day rate.
	EpochsPerFiveDays = 5 * EpochsPerDay
)

// Token precision.
const (
	// TokenDecimals is the base-unit precision of SNOW and sSNOW.
	TokenDecimals = 9
	// WrappedTokenDecimals is the base-unit precision of wsSNOW.
	WrappedTokenDecimals = 18
	// ReserveDecimals is the base-unit precision of the MIM reserve.
	ReserveDecimals = 18
)

// MarketPriceScale is the fixed-point scale of the raw pair-derived market
// price: reserve-per-token scaled so one whole token's price carries nine
// decimal places.
const MarketPriceScale = 1e9

// RedemptionTreasuryOffset is the treasury value already distributed through
// the redemption contract, in reserve tokens. Snapshotted 2021-12-20 when
// redemption opened; on-chain treasury reads no longer include it, so the
// redemption RFV adds it back.
const RedemptionTreasuryOffset = 18_391_046.0
