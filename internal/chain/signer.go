/*

This file contains the signing client: nonce and gas handling plus
transaction signing for one key. Estimation failures surface before
submission, so a transaction that would revert is usually caught without
spending gas.

*/

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/snowbound-dao/sdm/internal/logger"
)

var signerLogger = logger.GetForComponent("chain_signer")

// Signer submits signed transactions. Implemented by SigningClient; tests
// substitute a scripted fake.
type Signer interface {
	// From returns the sending address.
	From() common.Address
	// Submit signs and broadcasts a transaction, returning its hash.
	Submit(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
}

// SigningClient signs with a locally held private key.
type SigningClient struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// NewSigningClient builds a signer from a hex-encoded private key.
func NewSigningClient(backend Backend, keyHex string, chainID int64) (*SigningClient, error) {
	if backend == nil {
		return nil, ErrProviderUnavailable
	}
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	if keyHex == "" {
		return nil, ErrSignerUnavailable
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, errors.Join(ErrSignerUnavailable, fmt.Errorf("invalid private key: %w", err))
	}

	return &SigningClient{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

func (s *SigningClient) From() common.Address {
	return s.from
}

// Submit signs and broadcasts a transaction. Gas is estimated against the
// pending state; an estimation revert aborts before anything is sent.
func (s *SigningClient) Submit(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, errors.Join(ErrSubmitFailed, fmt.Errorf("nonce query failed: %w", err))
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.Join(ErrSubmitFailed, fmt.Errorf("gas price query failed: %w", err))
	}

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		// Carries the node's revert reason when the call would fail.
		return common.Hash{}, errors.Join(ErrSubmitFailed, fmt.Errorf("gas estimation failed: %w", err))
	}

	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, errors.Join(ErrSubmitFailed, fmt.Errorf("signing failed: %w", err))
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Join(ErrSubmitFailed, fmt.Errorf("broadcast failed: %w", err))
	}

	signerLogger.Info().
		Str("hash", signed.Hash().Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Uint64("gasLimit", gasLimit).
		Msg("Transaction broadcast")

	return signed.Hash(), nil
}
