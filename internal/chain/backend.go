/*

This file contains the node backend abstraction. Backend is the exact
subset of the go-ethereum client the service touches; production wiring
passes an *ethclient.Client, tests pass a scripted fake. Everything above
this interface treats the chain as an opaque, trusted dependency.

*/

package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
)

// Backend is the node connection used for reads and submissions.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*coretypes.Header, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *coretypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// PriceOracle supplies USD prices for assets that are not stablecoins.
type PriceOracle interface {
	// PriceUSD returns the price for a token symbol.
	PriceUSD(symbol string) (float64, error)
}
