/*

This file contains the calldata builders for every transaction the service
submits. Amounts arrive as validated base-unit integers; nothing here
re-interprets user input.

*/

package chain

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrPackFailed = errors.New("calldata packing failed")

func pack(contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Join(ErrPackFailed, fmt.Errorf("method %s: %w", method, err))
	}
	return data, nil
}

// PackApprove builds an unlimited ERC20 approval for a spender.
func PackApprove(spender common.Address) ([]byte, error) {
	return pack(erc20ABI, "approve", spender, MaxUint256)
}

// PackStake builds a staking-helper stake call crediting the recipient.
func PackStake(amount sdkmath.Int, recipient common.Address) ([]byte, error) {
	return pack(stakingHelperABI, "stake", amount.BigInt(), recipient)
}

// PackUnstake builds an unstake call. trigger rebases before unstaking.
func PackUnstake(amount sdkmath.Int, trigger bool) ([]byte, error) {
	return pack(stakingABI, "unstake", amount.BigInt(), trigger)
}

// PackWrap builds a wrap call on the wrapper token.
func PackWrap(amount sdkmath.Int) ([]byte, error) {
	return pack(wrappedTokenABI, "wrap", amount.BigInt())
}

// PackUnwrap builds an unwrap call on the wrapper token.
func PackUnwrap(amount sdkmath.Int) ([]byte, error) {
	return pack(wrappedTokenABI, "unwrap", amount.BigInt())
}

// PackRedeemSwap builds a fixed-value redemption swap.
func PackRedeemSwap(amount sdkmath.Int) ([]byte, error) {
	return pack(redeemABI, "swap", amount.BigInt())
}

// PackBondDeposit builds a bond deposit. maxPrice caps the accepted bond
// price against front-running between quote and execution.
func PackBondDeposit(amount sdkmath.Int, maxPrice *big.Int, depositor common.Address) ([]byte, error) {
	if maxPrice == nil {
		return nil, errors.Join(ErrPackFailed, errors.New("maxPrice cannot be nil"))
	}
	return pack(bondABI, "deposit", amount.BigInt(), maxPrice, depositor)
}

// PackBondRedeem builds a bond redemption, optionally auto-staking the payout.
func PackBondRedeem(recipient common.Address, autostake bool) ([]byte, error) {
	return pack(bondABI, "redeem", recipient, autostake)
}
