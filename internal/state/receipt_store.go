package state

import (
	"database/sql"
	"fmt"

	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/types"
)

var receiptStoreLogger = logger.GetForComponent("receipt_store")

// ReceiptStore persists settled transaction receipts through the global
// connection pool. It satisfies the orchestrator's recorder interface.
type ReceiptStore struct{}

func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{}
}

// SaveReceipt appends one settled receipt to the history.
func (s *ReceiptStore) SaveReceipt(receipt types.TxReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	txHash := sql.NullString{String: receipt.ID, Valid: receipt.ID != ""}
	errText := sql.NullString{String: receipt.Error, Valid: receipt.Error != ""}

	_, err := DB.Exec(`
		INSERT INTO transaction_receipts (
			tx_hash, action, label, outcome, error_text, gas_used, block_number, submitted_at, settled_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		txHash, string(receipt.Action), receipt.Label, string(receipt.Outcome),
		errText, receipt.GasUsed, receipt.BlockNumber, receipt.SubmittedAt, receipt.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction receipt: %w", err)
	}

	receiptStoreLogger.Debug().
		Str("action", string(receipt.Action)).
		Str("outcome", string(receipt.Outcome)).
		Msg("Receipt persisted")
	return nil
}

// RecentReceipts returns up to limit settled receipts, newest first.
func RecentReceipts(limit int) ([]types.TxReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := DB.Query(`
		SELECT tx_hash, action, label, outcome, error_text, gas_used, block_number, submitted_at, settled_at
		FROM transaction_receipts
		ORDER BY settled_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction receipts: %w", err)
	}
	defer rows.Close()

	var result []types.TxReceipt
	for rows.Next() {
		var receipt types.TxReceipt
		var txHash, errText sql.NullString
		var action, outcome string

		if err := rows.Scan(&txHash, &action, &receipt.Label, &outcome, &errText,
			&receipt.GasUsed, &receipt.BlockNumber, &receipt.SubmittedAt, &receipt.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction receipt: %w", err)
		}

		receipt.ID = txHash.String
		receipt.Error = errText.String
		receipt.Action = types.ActionType(action)
		receipt.Outcome = types.TxOutcome(outcome)
		result = append(result, receipt)
	}
	return result, rows.Err()
}
