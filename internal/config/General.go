package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeRPC is the JSON-RPC endpoint of the EVM node.
	NodeRPC string

	// ChainID is the chain ID the node is expected to serve. Every workflow
	// re-verifies this before submitting; a mismatch aborts the run.
	ChainID int64

	// SignerKeyHex is the hex-encoded private key used to sign transactions.
	// Optional: when empty the service runs read-only and every transaction
	// workflow fails fast with a signer-unavailable error.
	SignerKeyHex string

	// WebPort is the port for the HTTP API server.
	WebPort string

	// RefreshInterval is how often protocol state is re-read from chain.
	RefreshInterval time.Duration

	// ReceiptPollInterval is how often a submitted transaction is polled for
	// its receipt.
	ReceiptPollInterval time.Duration
	// MaxConfirmWait bounds how long a submitted transaction is polled before
	// the workflow gives up waiting. The transaction stays in the pending
	// registry until it settles or the entry is removed.
	MaxConfirmWait time.Duration

	// GasTokenPriceUSD is the operator-supplied price of the chain's gas token.
	GasTokenPriceUSD float64
	// ReservePriceUSD is the operator-supplied price of the reserve stablecoin.
	ReservePriceUSD float64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required unless noted otherwise.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	ChainID, err = getEnvAsInt64("CHAIN_ID")
	if err != nil {
		return err
	}

	// Optional: absent key means read-only mode.
	SignerKeyHex = os.Getenv("SIGNER_KEY_HEX")

	WebPort, err = getEnv("WEB_PORT")
	if err != nil {
		return err
	}

	RefreshInterval, err = getEnvAsDuration("REFRESH_INTERVAL")
	if err != nil {
		return err
	}

	ReceiptPollInterval, err = getEnvAsDuration("RECEIPT_POLL_INTERVAL")
	if err != nil {
		return err
	}

	MaxConfirmWait, err = getEnvAsDuration("MAX_CONFIRM_WAIT")
	if err != nil {
		return err
	}

	GasTokenPriceUSD, err = getEnvAsFloat64("GAS_TOKEN_PRICE_USD")
	if err != nil {
		return err
	}

	ReservePriceUSD, err = getEnvAsFloat64("RESERVE_PRICE_USD")
	if err != nil {
		return err
	}

	log.Debug().
		Str("NodeRPC", NodeRPC).
		Int64("ChainID", ChainID).
		Str("WebPort", WebPort).
		Bool("SignerConfigured", SignerKeyHex != "").
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64 retrieves an environment variable as a float64. Returns error if not set or invalid.
func getEnvAsFloat64(key string) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// (e.g. "30s", "5m"). Returns error if not set or invalid.
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
