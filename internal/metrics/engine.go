/*

This file contains the metrics engine. Every function here is a pure
computation over a chain snapshot: no I/O, no clocks, no mutable state.
Division by zero and other degenerate inputs surface as unavailable metrics
rather than NaN or Infinity, so a half-initialized protocol read never
renders garbage on the dashboard.

*/

package metrics

import (
	"math"

	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/types"
)

// TreasuryTotals aggregates the bond snapshots into the three treasury
// inputs the headline metrics need.
type TreasuryTotals struct {
	// BalanceUSD is the display treasury value. LP reserves count at half
	// weight because half of an LP position is the protocol's own token.
	BalanceUSD float64
	// RiskFreeUSD is the risk-free treasury value backing the runway.
	RiskFreeUSD float64
	// ProtocolTokenAmount is the protocol tokens locked inside LP reserves.
	ProtocolTokenAmount float64
}

// SumTreasury folds the per-bond valuations into treasury totals.
func SumTreasury(bonds []types.BondSnapshot) TreasuryTotals {
	var t TreasuryTotals
	for _, b := range bonds {
		if b.Kind.IsLP() {
			t.BalanceUSD += b.BalanceUSD / 2
		} else {
			t.BalanceUSD += b.BalanceUSD
		}
		t.RiskFreeUSD += b.RiskFreeUSD
		t.ProtocolTokenAmount += b.ProtocolTokenAmount
	}
	return t
}

// MarketPriceUSD converts the raw pair-derived price into dollars using the
// reserve token's oracle price.
func MarketPriceUSD(rawMarketPrice, reservePriceUSD float64) float64 {
	return rawMarketPrice / config.MarketPriceScale * reservePriceUSD
}

// StakingRebase is the fractional reward of the current epoch: the epoch's
// distribution divided by the staked token's circulating supply.
func StakingRebase(epochDistribute, circulatingSupply float64) float64 {
	return epochDistribute / circulatingSupply
}

// StakingAPY compounds the per-epoch rebase over a year of epochs.
func StakingAPY(stakingRebase float64) float64 {
	return math.Pow(1+stakingRebase, config.EpochsPerYear) - 1
}

// FiveDayRate compounds the per-epoch rebase over five days of epochs.
func FiveDayRate(stakingRebase float64) float64 {
	return math.Pow(1+stakingRebase, config.EpochsPerFiveDays) - 1
}

// Runway is the number of days the risk-free treasury can sustain the
// current rebase rate.
func Runway(riskFreeUSD, circulatingSupply, stakingRebase float64) float64 {
	coverage := riskFreeUSD / circulatingSupply
	return math.Log(coverage) / math.Log(1+stakingRebase) / config.EpochsPerDay
}

// AdjustedSupply is the protocol token supply backing the risk-free value:
// total supply minus tokens the protocol effectively owns (LP-locked and
// DAO-held).
func AdjustedSupply(totalSupply, lpTokenAmount, daoTokenAmount float64) float64 {
	return totalSupply - lpTokenAmount - daoTokenAmount
}

// RiskFreeValue is the treasury value per backing token.
func RiskFreeValue(treasuryBalanceUSD, adjustedSupply float64) float64 {
	return treasuryBalanceUSD / adjustedSupply
}

// DeltaMarketPriceRFV is the percent gap between the risk-free value and
// the market price, positive when the token trades below backing.
func DeltaMarketPriceRFV(rfv, marketPrice float64) float64 {
	return (rfv - marketPrice) / rfv * 100
}

// RedemptionRFV is the per-token payout of the fixed-value redemption: the
// risk-free treasury plus the value already distributed through redemption,
// spread over the adjusted supply.
func RedemptionRFV(riskFreeUSD, adjustedSupply float64) float64 {
	return (riskFreeUSD + config.RedemptionTreasuryOffset) / adjustedSupply
}

// RedeemableValue is the payout an account holding tokenBalance protocol
// tokens would receive through redemption.
func RedeemableValue(tokenBalance, redemptionRFV float64) float64 {
	return tokenBalance * redemptionRFV
}

// Compute derives the full dashboard metrics from one chain snapshot.
// Deterministic: the same snapshot always yields the same metrics.
func Compute(snap types.ChainSnapshot) types.AppMetrics {
	treasury := SumTreasury(snap.Bonds)

	marketPrice := MarketPriceUSD(snap.RawMarketPrice, snap.ReservePriceUSD)
	adjSupply := AdjustedSupply(snap.TotalSupply, treasury.ProtocolTokenAmount, snap.DAOTokenAmount)
	rfv := RiskFreeValue(treasury.BalanceUSD, adjSupply)
	rebase := StakingRebase(snap.EpochDistribute, snap.CirculatingSupply)

	m := types.AppMetrics{
		Timestamp:   snap.Timestamp.Unix(),
		BlockNumber: snap.BlockNumber,

		MarketPrice:       types.NewMetric(marketPrice),
		MarketCap:         types.NewMetric(snap.TotalSupply * marketPrice),
		TotalSupply:       types.NewMetric(snap.TotalSupply),
		CirculatingSupply: types.NewMetric(snap.CirculatingSupply),
		StakingTVL:        types.NewMetric(snap.CirculatingSupply * marketPrice),

		TreasuryBalance:     types.NewMetric(treasury.BalanceUSD),
		RiskFreeValue:       types.NewMetric(rfv),
		DeltaMarketPriceRFV: types.NewMetric(DeltaMarketPriceRFV(rfv, marketPrice)),

		StakingRebase: types.NewMetric(rebase),
		StakingAPY:    types.NewMetric(StakingAPY(rebase)),
		FiveDayRate:   types.NewMetric(FiveDayRate(rebase)),
		Runway:        types.NewMetric(Runway(treasury.RiskFreeUSD, snap.CirculatingSupply, rebase)),

		CurrentIndex:   types.NewMetric(snap.CurrentIndex),
		NextRebaseTime: snap.EpochEndTime,
	}

	if snap.Redeem != nil {
		redeemRfv := RedemptionRFV(treasury.RiskFreeUSD, adjSupply)
		m.Redeem = &types.RedeemMetrics{
			RiskFreeValue:    types.NewMetric(redeemRfv),
			AmountSent:       types.NewMetric(snap.Redeem.TotalRedeemed * redeemRfv),
			ReserveAvailable: types.NewMetric(snap.Redeem.ReserveAvailable),
		}
	}

	return m
}
