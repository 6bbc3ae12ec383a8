package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/types"
)

// baseSnapshot returns a snapshot with the supply and price figures used by
// the headline-metric scenarios: 1000 total supply, 800 circulating, $2.00
// market price (raw 2e9 at a $1.00 reserve).
func baseSnapshot() types.ChainSnapshot {
	return types.ChainSnapshot{
		Timestamp:         time.Unix(1700000000, 0).UTC(),
		BlockNumber:       12345,
		RawMarketPrice:    2e9,
		ReservePriceUSD:   1.0,
		TotalSupply:       1000,
		CirculatingSupply: 800,
		DAOTokenAmount:    50,
		EpochDistribute:   8,
		EpochEndTime:      1700010000,
		CurrentIndex:      4.2,
		Bonds: []types.BondSnapshot{
			{Name: "mim", Kind: types.BondKindStable, BalanceUSD: 500, RiskFreeUSD: 500},
			{Name: "wavax", Kind: types.BondKindCustom, BalanceUSD: 300, RiskFreeUSD: 300},
			{Name: "mim_snow_lp", Kind: types.BondKindLP, BalanceUSD: 400, RiskFreeUSD: 200, ProtocolTokenAmount: 100},
			{Name: "avax_snow_lp", Kind: types.BondKindCustomLP, BalanceUSD: 200, RiskFreeUSD: 100, ProtocolTokenAmount: 50},
		},
	}
}

func TestHeadlineMetricsScenario(t *testing.T) {
	m := Compute(baseSnapshot())

	price, ok := m.MarketPrice.Float()
	require.True(t, ok)
	assert.InDelta(t, 2.00, price, 1e-9)

	cap, ok := m.MarketCap.Float()
	require.True(t, ok)
	assert.InDelta(t, 2000.00, cap, 1e-9)

	tvl, ok := m.StakingTVL.Float()
	require.True(t, ok)
	assert.InDelta(t, 1600.00, tvl, 1e-9)
}

func TestStakingAPYScenario(t *testing.T) {
	rebase := StakingRebase(8, 800)
	assert.InDelta(t, 0.01, rebase, 1e-12)

	// 1095 compounding epochs: 3 per day over 365 days.
	assert.InDelta(t, math.Pow(1.01, 1095)-1, StakingAPY(rebase), 1e-1)

	// (1.01)^15 - 1
	assert.InDelta(t, 0.16097, FiveDayRate(rebase), 1e-4)
}

func TestComputeIsDeterministic(t *testing.T) {
	s1 := baseSnapshot()
	s2 := baseSnapshot()
	require.Equal(t, s1, s2)

	assert.Equal(t, Compute(s1), Compute(s2))
	// Recomputing the same snapshot must not drift.
	assert.Equal(t, Compute(s1), Compute(s1))
}

func TestTreasuryAggregation(t *testing.T) {
	totals := SumTreasury(baseSnapshot().Bonds)

	// Single-asset reserves at full weight, LP reserves at half.
	assert.InDelta(t, 500+300+400.0/2+200.0/2, totals.BalanceUSD, 1e-9)
	assert.InDelta(t, 1100, totals.RiskFreeUSD, 1e-9)
	assert.InDelta(t, 150, totals.ProtocolTokenAmount, 1e-9)
}

func TestRiskFreeValueAndDelta(t *testing.T) {
	m := Compute(baseSnapshot())

	// adjusted supply = 1000 - 150 LP-locked - 50 DAO = 800
	// rfv = 1100 / 800 = 1.375
	rfv, ok := m.RiskFreeValue.Float()
	require.True(t, ok)
	assert.InDelta(t, 1.375, rfv, 1e-9)

	// delta = ((1.375 - 2.00) / 1.375) * 100
	delta, ok := m.DeltaMarketPriceRFV.Float()
	require.True(t, ok)
	assert.InDelta(t, (1.375-2.00)/1.375*100, delta, 1e-9)
}

func TestZeroAdjustedSupplyMakesRFVUnavailable(t *testing.T) {
	snap := baseSnapshot()
	// total supply fully owned by LP positions and the DAO
	snap.TotalSupply = 200
	snap.DAOTokenAmount = 50

	m := Compute(snap)

	_, ok := m.RiskFreeValue.Float()
	assert.False(t, ok)
	_, ok = m.DeltaMarketPriceRFV.Float()
	assert.False(t, ok)

	// Unaffected metrics stay available.
	_, ok = m.MarketPrice.Float()
	assert.True(t, ok)
}

func TestZeroCirculatingSupplySafety(t *testing.T) {
	snap := baseSnapshot()
	snap.CirculatingSupply = 0

	m := Compute(snap)

	_, ok := m.StakingRebase.Float()
	assert.False(t, ok)
	_, ok = m.StakingAPY.Float()
	assert.False(t, ok)
	_, ok = m.Runway.Float()
	assert.False(t, ok)
}

func TestRunwayScenario(t *testing.T) {
	// At a 1% rebase, a treasury covering 2x the circulating supply runs
	// for ln(2)/ln(1.01)/3 days.
	got := Runway(1600, 800, 0.01)
	assert.InDelta(t, 23.22, got, 1e-2)
}

func TestRedeemMetrics(t *testing.T) {
	snap := baseSnapshot()
	snap.Redeem = &types.RedeemSnapshot{TotalRedeemed: 10, ReserveAvailable: 250000}

	m := Compute(snap)
	require.NotNil(t, m.Redeem)

	// (1100 + offset) / 800
	rfv, ok := m.Redeem.RiskFreeValue.Float()
	require.True(t, ok)
	assert.InDelta(t, (1100+18391046.0)/800, rfv, 1e-6)

	sent, ok := m.Redeem.AmountSent.Float()
	require.True(t, ok)
	assert.InDelta(t, 10*rfv, sent, 1e-6)

	avail, ok := m.Redeem.ReserveAvailable.Float()
	require.True(t, ok)
	assert.InDelta(t, 250000, avail, 1e-9)
}

func TestRedeemableValue(t *testing.T) {
	rfv := RedemptionRFV(1100, 800)
	assert.InDelta(t, 10*rfv, RedeemableValue(10, rfv), 1e-6)
}

func TestRedeemAbsentWhenNotDeployed(t *testing.T) {
	m := Compute(baseSnapshot())
	assert.Nil(t, m.Redeem)
}

func TestUnavailableMetricRendersNull(t *testing.T) {
	snap := baseSnapshot()
	snap.CirculatingSupply = 0

	m := Compute(snap)

	data, err := m.StakingAPY.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
