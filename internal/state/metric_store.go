/*

This file contains the metric history store. Every successful refresh cycle
writes one row; the web API serves recent rows as the dashboard's history
charts. Unavailable metrics are stored as NULL, mirroring how the API
renders them.

*/

package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/types"
)

var metricStoreLogger = logger.GetForComponent("metric_store")

// MetricRow is one persisted metrics snapshot.
type MetricRow struct {
	SnapshotID  int64            `json:"snapshot_id"`
	CreatedAt   time.Time        `json:"created_at"`
	BlockNumber uint64           `json:"block_number"`
	Metrics     types.AppMetrics `json:"metrics"`
}

func nullable(m types.Metric) sql.NullFloat64 {
	if !m.Available {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: m.Value, Valid: true}
}

func fromNullable(v sql.NullFloat64) types.Metric {
	if !v.Valid {
		return types.Metric{}
	}
	return types.NewMetric(v.Float64)
}

// SaveMetrics appends one metrics snapshot to the history.
func SaveMetrics(m types.AppMetrics, blockTime int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	var redeemRfv, redeemSent, redeemAvailable sql.NullFloat64
	if m.Redeem != nil {
		redeemRfv = nullable(m.Redeem.RiskFreeValue)
		redeemSent = nullable(m.Redeem.AmountSent)
		redeemAvailable = nullable(m.Redeem.ReserveAvailable)
	}

	_, err := DB.Exec(`
		INSERT INTO metric_snapshots (
			block_number, block_time,
			market_price, market_cap, total_supply, circulating_supply, staking_tvl,
			treasury_balance, risk_free_value, delta_market_price_rfv,
			staking_rebase, staking_apy, five_day_rate, runway,
			current_index, next_rebase_time,
			redeem_rfv, redeem_amount_sent, redeem_reserve_available
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		m.BlockNumber, blockTime,
		nullable(m.MarketPrice), nullable(m.MarketCap), nullable(m.TotalSupply),
		nullable(m.CirculatingSupply), nullable(m.StakingTVL),
		nullable(m.TreasuryBalance), nullable(m.RiskFreeValue), nullable(m.DeltaMarketPriceRFV),
		nullable(m.StakingRebase), nullable(m.StakingAPY), nullable(m.FiveDayRate), nullable(m.Runway),
		nullable(m.CurrentIndex), m.NextRebaseTime,
		redeemRfv, redeemSent, redeemAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric snapshot: %w", err)
	}

	metricStoreLogger.Debug().Uint64("block", m.BlockNumber).Msg("Metric snapshot persisted")
	return nil
}

// RecentMetrics returns up to limit snapshots, newest first.
func RecentMetrics(limit int) ([]MetricRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := DB.Query(`
		SELECT snapshot_id, created_at, block_number, block_time,
			market_price, market_cap, total_supply, circulating_supply, staking_tvl,
			treasury_balance, risk_free_value, delta_market_price_rfv,
			staking_rebase, staking_apy, five_day_rate, runway,
			current_index, next_rebase_time,
			redeem_rfv, redeem_amount_sent, redeem_reserve_available
		FROM metric_snapshots
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric snapshots: %w", err)
	}
	defer rows.Close()

	var result []MetricRow
	for rows.Next() {
		var row MetricRow
		var blockTime int64
		var marketPrice, marketCap, totalSupply, circSupply, stakingTVL sql.NullFloat64
		var treasury, rfv, delta sql.NullFloat64
		var rebase, apy, fiveDay, runway sql.NullFloat64
		var index sql.NullFloat64
		var redeemRfv, redeemSent, redeemAvailable sql.NullFloat64

		if err := rows.Scan(
			&row.SnapshotID, &row.CreatedAt, &row.BlockNumber, &blockTime,
			&marketPrice, &marketCap, &totalSupply, &circSupply, &stakingTVL,
			&treasury, &rfv, &delta,
			&rebase, &apy, &fiveDay, &runway,
			&index, &row.Metrics.NextRebaseTime,
			&redeemRfv, &redeemSent, &redeemAvailable,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric snapshot: %w", err)
		}

		row.Metrics.Timestamp = row.CreatedAt.Unix()
		row.Metrics.BlockNumber = row.BlockNumber
		row.Metrics.MarketPrice = fromNullable(marketPrice)
		row.Metrics.MarketCap = fromNullable(marketCap)
		row.Metrics.TotalSupply = fromNullable(totalSupply)
		row.Metrics.CirculatingSupply = fromNullable(circSupply)
		row.Metrics.StakingTVL = fromNullable(stakingTVL)
		row.Metrics.TreasuryBalance = fromNullable(treasury)
		row.Metrics.RiskFreeValue = fromNullable(rfv)
		row.Metrics.DeltaMarketPriceRFV = fromNullable(delta)
		row.Metrics.StakingRebase = fromNullable(rebase)
		row.Metrics.StakingAPY = fromNullable(apy)
		row.Metrics.FiveDayRate = fromNullable(fiveDay)
		row.Metrics.Runway = fromNullable(runway)
		row.Metrics.CurrentIndex = fromNullable(index)

		if redeemRfv.Valid || redeemSent.Valid || redeemAvailable.Valid {
			row.Metrics.Redeem = &types.RedeemMetrics{
				RiskFreeValue:    fromNullable(redeemRfv),
				AmountSent:       fromNullable(redeemSent),
				ReserveAvailable: fromNullable(redeemAvailable),
			}
		}

		result = append(result, row)
	}
	return result, rows.Err()
}
