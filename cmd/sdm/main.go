package main

import (
	"context"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/chain"
	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/notify"
	"github.com/snowbound-dao/sdm/internal/orchestrator"
	"github.com/snowbound-dao/sdm/internal/refresh"
	"github.com/snowbound-dao/sdm/internal/state"
	"github.com/snowbound-dao/sdm/internal/types"
	"github.com/snowbound-dao/sdm/internal/web"
)

// main is the entry point for the dashboard manager.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Snowbound Dashboard Manager starting...")

	// Initialize database connection for metric and receipt history.
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Chain Connection ---
	client, err := ethclient.Dial(config.NodeRPC)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", config.NodeRPC).Msg("Node connection error")
	}
	defer client.Close()
	log.Info().Str("endpoint", config.NodeRPC).Msg("Node connected")

	oracle := chain.NewStaticOracle(map[string]float64{
		types.SymbolReserve:  config.ReservePriceUSD,
		types.SymbolGasToken: config.GasTokenPriceUSD,
	})

	reader, err := chain.NewReader(client, oracle, config.ChainID, config.AllBonds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chain reader")
	}

	// Fail fast on a misconfigured endpoint before anything starts.
	if err := reader.VerifyNetwork(context.Background()); err != nil {
		log.Fatal().Err(err).Int64("expected", config.ChainID).Msg("Connected node serves the wrong network")
	}

	// --- 3. Signer (optional: absent key means read-only mode) ---
	var signer chain.Signer
	if config.SignerKeyHex != "" {
		signingClient, err := chain.NewSigningClient(client, config.SignerKeyHex, config.ChainID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize signing client")
		}
		signer = signingClient
		log.Info().Str("address", signingClient.From().Hex()).Msg("Signer configured")
	} else {
		log.Warn().Msg("No signer key configured. Running read-only; transaction actions will be refused.")
	}

	// --- 4. Wiring ---
	store := appstate.NewStore()
	sink := notify.NewMultiSink(notify.NewLogSink())

	orch, err := orchestrator.New(reader, signer, client, store, sink, state.NewReceiptStore(),
		config.ReceiptPollInterval, config.MaxConfirmWait)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create orchestrator")
	}

	refreshSvc, err := refresh.NewService(reader, store, state.SaveMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create refresh service")
	}

	// --- 5. Web Server ---
	webServer := web.NewWebServer(config.WebPort, store, orch, reader)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting dashboard API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Refresh Loop ---
	refreshSvc.RunLoop(context.Background(), config.RefreshInterval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
