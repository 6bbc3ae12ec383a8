/*

This file contains the HTTP API. Reads are served synchronously from the
in-memory state store and the history tables; transaction actions are
accepted, handed to the orchestrator in the background, and acknowledged
with 202 - their outcome arrives through notifications and the receipt
history, never through the request that started them.

*/

package web

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/orchestrator"
	"github.com/snowbound-dao/sdm/internal/state"
	"github.com/snowbound-dao/sdm/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// QuoteReader serves live bond quotes.
type QuoteReader interface {
	BondQuotes(ctx context.Context, owner *common.Address) ([]types.BondQuote, error)
}

// WebServer handles HTTP requests for dashboard data and actions.
type WebServer struct {
	router *mux.Router
	port   string

	store  *appstate.Store
	orch   *orchestrator.Orchestrator
	quotes QuoteReader

	startedAt time.Time
}

// NewWebServer creates a new web server instance.
func NewWebServer(port string, store *appstate.Store, orch *orchestrator.Orchestrator, quotes QuoteReader) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		store:     store,
		orch:      orch,
		quotes:    quotes,
		startedAt: time.Now().UTC(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes.
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/metrics", ws.handleGetMetrics).Methods("GET")
	api.HandleFunc("/snapshot", ws.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/account", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/pending", ws.handleGetPending).Methods("GET")
	api.HandleFunc("/bonds", ws.handleGetBonds).Methods("GET")
	api.HandleFunc("/history/metrics", ws.handleGetMetricHistory).Methods("GET")
	api.HandleFunc("/history/transactions", ws.handleGetTransactionHistory).Methods("GET")

	actions := api.PathPrefix("/actions").Subrouter()
	actions.HandleFunc("/approve", ws.handleApprove).Methods("POST")
	actions.HandleFunc("/stake", ws.actionWithValue(ws.orch.Stake)).Methods("POST")
	actions.HandleFunc("/unstake", ws.actionWithValue(ws.orch.Unstake)).Methods("POST")
	actions.HandleFunc("/wrap", ws.actionWithValue(ws.orch.Wrap)).Methods("POST")
	actions.HandleFunc("/unwrap", ws.actionWithValue(ws.orch.Unwrap)).Methods("POST")
	actions.HandleFunc("/redeem", ws.actionWithValue(ws.orch.Redeem)).Methods("POST")
	actions.HandleFunc("/bonds/{name}/approve", ws.handleBondApprove).Methods("POST")
	actions.HandleFunc("/bonds/{name}/deposit", ws.handleBondDeposit).Methods("POST")
	actions.HandleFunc("/bonds/{name}/redeem", ws.handleBondRedeem).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := state.TestDBConnection() == nil

	refreshedAt := ws.store.RefreshedAt()
	refreshHealthy := !refreshedAt.IsZero()

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy || !refreshHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "sdm-dashboard-manager",
			"version": "1.0.0",
		},
		"dashboard_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"last_refresh":     refreshedAt,
			"pending_count":    ws.store.Pending().Len(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetMetrics returns the latest derived metrics.
func (ws *WebServer) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := ws.store.Metrics()
	if metrics == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "No metrics available yet")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

// handleGetSnapshot returns the latest raw chain snapshot.
func (ws *WebServer) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := ws.store.Snapshot()
	if snapshot == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetAccount returns the connected account's balances and allowances.
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account := ws.store.Account()
	if account == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No account connected")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, account)
}

// handleGetPending returns the in-flight transaction list.
func (ws *WebServer) handleGetPending(w http.ResponseWriter, r *http.Request) {
	pending := ws.store.Pending().List()
	response := map[string]interface{}{
		"pending": pending,
		"count":   len(pending),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetBonds returns live quotes for all bond instruments.
func (ws *WebServer) handleGetBonds(w http.ResponseWriter, r *http.Request) {
	var owner *common.Address
	if ownerStr := r.URL.Query().Get("owner"); ownerStr != "" {
		if !common.IsHexAddress(ownerStr) {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid owner address")
			return
		}
		addr := common.HexToAddress(ownerStr)
		owner = &addr
	}

	quotes, err := ws.quotes.BondQuotes(r.Context(), owner)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read bond quotes")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read bond quotes")
		return
	}

	response := map[string]interface{}{
		"bonds": quotes,
		"count": len(quotes),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetMetricHistory returns persisted metric snapshots.
func (ws *WebServer) handleGetMetricHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := state.RecentMetrics(ws.limitParam(r, 100))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get metric history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve metric history")
		return
	}

	response := map[string]interface{}{
		"snapshots": rows,
		"count":     len(rows),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetTransactionHistory returns persisted settled receipts.
func (ws *WebServer) handleGetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	receipts, err := state.RecentReceipts(ws.limitParam(r, 100))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get transaction history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve transaction history")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleApprove starts an approval workflow for a named target.
func (ws *WebServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Body must carry a target")
		return
	}

	target := types.ApprovalTarget(body.Target)
	switch target {
	case types.ApproveStaking, types.ApproveUnstaking, types.ApproveWrapping, types.ApproveRedeem:
	default:
		ws.writeErrorResponse(w, http.StatusBadRequest, "Unknown approval target")
		return
	}

	ws.acceptAction(w, string(target), func(ctx context.Context) error {
		_, err := ws.orch.Approve(ctx, target)
		return err
	})
}

// actionWithValue adapts the amount-taking workflows to a shared handler.
func (ws *WebServer) actionWithValue(run func(ctx context.Context, value string) (*types.TxReceipt, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == "" {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Body must carry a value")
			return
		}

		ws.acceptAction(w, r.URL.Path, func(ctx context.Context) error {
			_, err := run(ctx, body.Value)
			return err
		})
	}
}

// handleBondApprove starts a reserve-token approval for one bond.
func (ws *WebServer) handleBondApprove(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := config.GetBond(name); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown bond")
		return
	}

	ws.acceptAction(w, "approve_bond_"+name, func(ctx context.Context) error {
		_, err := ws.orch.ApproveBond(ctx, name)
		return err
	})
}

// handleBondDeposit starts a bond deposit.
func (ws *WebServer) handleBondDeposit(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := config.GetBond(name); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown bond")
		return
	}

	var body struct {
		Value    string `json:"value"`
		MaxPrice string `json:"max_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == "" || body.MaxPrice == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Body must carry value and max_price")
		return
	}

	maxPrice, ok := new(big.Int).SetString(body.MaxPrice, 10)
	if !ok || maxPrice.Sign() <= 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "max_price must be a positive integer")
		return
	}

	ws.acceptAction(w, "bond_"+name, func(ctx context.Context) error {
		_, err := ws.orch.BondDeposit(ctx, name, body.Value, maxPrice)
		return err
	})
}

// handleBondRedeem claims a bond's vested payout.
func (ws *WebServer) handleBondRedeem(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := config.GetBond(name); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown bond")
		return
	}

	var body struct {
		Autostake bool `json:"autostake"`
	}
	// An empty body means no autostake.
	_ = json.NewDecoder(r.Body).Decode(&body)

	ws.acceptAction(w, "bond_"+name+"_redeem", func(ctx context.Context) error {
		_, err := ws.orch.BondRedeem(ctx, name, body.Autostake)
		return err
	})
}

// acceptAction hands a workflow to the orchestrator in the background and
// acknowledges the request. The workflow's outcome is reported through
// notifications and the receipt history.
func (ws *WebServer) acceptAction(w http.ResponseWriter, tag string, run func(ctx context.Context) error) {
	go func() {
		if err := run(context.Background()); err != nil {
			webLogger.Warn().Err(err).Str("action", tag).Msg("Action workflow failed")
		}
	}()

	ws.writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"accepted":  true,
		"action":    tag,
		"timestamp": time.Now().UTC(),
	})
}

func (ws *WebServer) limitParam(r *http.Request, fallback int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response.
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response.
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers.
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
