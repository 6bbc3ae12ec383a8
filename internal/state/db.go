// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS metric_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			block_number BIGINT NOT NULL,
			block_time BIGINT NOT NULL,
			market_price DOUBLE PRECISION,
			market_cap DOUBLE PRECISION,
			total_supply DOUBLE PRECISION,
			circulating_supply DOUBLE PRECISION,
			staking_tvl DOUBLE PRECISION,
			treasury_balance DOUBLE PRECISION,
			risk_free_value DOUBLE PRECISION,
			delta_market_price_rfv DOUBLE PRECISION,
			staking_rebase DOUBLE PRECISION,
			staking_apy DOUBLE PRECISION,
			five_day_rate DOUBLE PRECISION,
			runway DOUBLE PRECISION,
			current_index DOUBLE PRECISION,
			next_rebase_time BIGINT NOT NULL,
			redeem_rfv DOUBLE PRECISION,
			redeem_amount_sent DOUBLE PRECISION,
			redeem_reserve_available DOUBLE PRECISION
		);
		CREATE INDEX IF NOT EXISTS idx_metric_snapshots_created_at ON metric_snapshots (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_metric_snapshots_block ON metric_snapshots (block_number DESC);

		CREATE TABLE IF NOT EXISTS transaction_receipts (
			receipt_id SERIAL PRIMARY KEY,
			tx_hash VARCHAR(66),
			action VARCHAR(128) NOT NULL,
			label VARCHAR(255) NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			error_text TEXT,
			gas_used BIGINT,
			block_number BIGINT,
			submitted_at TIMESTAMPTZ NOT NULL,
			settled_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_transaction_receipts_action ON transaction_receipts (action);
		CREATE INDEX IF NOT EXISTS idx_transaction_receipts_settled_at ON transaction_receipts (settled_at DESC);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Info().Msg("Database schema ensured successfully.")
	return nil
}

// TestDBConnection verifies the database is reachable.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Ping()
}
