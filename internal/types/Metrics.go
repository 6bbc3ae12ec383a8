/*

This file contains the derived metrics types. AppMetrics is a pure function
of a ChainSnapshot plus static constants; it holds no independent mutable
state and is fully recomputable from its inputs.

*/

package types

import (
	"encoding/json"
	"math"
)

// Metric is a float metric that may be unavailable. A metric becomes
// unavailable instead of carrying NaN or Infinity, so the API never renders
// garbage numbers; the dashboard shows a loading/unknown state instead.
type Metric struct {
	Available bool
	Value     float64
}

// NewMetric wraps v, marking the metric unavailable when v is not finite.
func NewMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Available: true, Value: v}
}

// Float returns the value and whether it is usable.
func (m Metric) Float() (float64, bool) {
	return m.Value, m.Available
}

// MarshalJSON renders an unavailable metric as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Available {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts null or a finite number.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = NewMetric(v)
	return nil
}

// RedeemMetrics are the redemption-specific derived values, present only
// while the redemption workflow is active.
type RedeemMetrics struct {
	// RiskFreeValue is the stablecoin payout per protocol token.
	RiskFreeValue Metric `json:"risk_free_value"`
	// AmountSent is the total treasury value redeemed to date, USD.
	AmountSent Metric `json:"amount_sent"`
	// ReserveAvailable is the stablecoin still available for redemption.
	ReserveAvailable Metric `json:"reserve_available"`
}

// AppMetrics is the read-only derived snapshot served to the dashboard.
type AppMetrics struct {
	Timestamp   int64  `json:"timestamp"`
	BlockNumber uint64 `json:"block_number"`

	MarketPrice       Metric `json:"market_price"`
	MarketCap         Metric `json:"market_cap"`
	TotalSupply       Metric `json:"total_supply"`
	CirculatingSupply Metric `json:"circulating_supply"`
	StakingTVL        Metric `json:"staking_tvl"`

	TreasuryBalance     Metric `json:"treasury_balance"`
	RiskFreeValue       Metric `json:"risk_free_value"`
	DeltaMarketPriceRFV Metric `json:"delta_market_price_rfv"` // percent gap between RFV and market price

	StakingRebase Metric `json:"staking_rebase"`
	StakingAPY    Metric `json:"staking_apy"`
	FiveDayRate   Metric `json:"five_day_rate"`
	Runway        Metric `json:"runway"` // days of staking rewards backed by the treasury

	CurrentIndex   Metric `json:"current_index"`
	NextRebaseTime int64  `json:"next_rebase_time"` // unix seconds

	Redeem *RedeemMetrics `json:"redeem,omitempty"`
}
