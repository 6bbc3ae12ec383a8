/*
This file contains common utility functions for converting between human
decimal amounts, fixed-point base units, and floats, with strict precision
handling. User-supplied amounts always enter through ParseAmount so invalid
input is rejected before any network call is attempted.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrInvalidAmount    = errors.New("amount is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// ParseAmount converts a user-supplied decimal string into the token's
// fixed-point base-unit representation. Non-numeric, negative, and zero
// amounts fail with ErrInvalidAmount; excess fractional digits beyond the
// token's precision also fail rather than silently truncating value.
func ParseAmount(value string, decimals int) (sdkmath.Int, error) {
	if decimals < 0 || decimals > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}

	dec, err := sdkmath.LegacyNewDecFromStr(value)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, value)
	}
	if dec.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q is negative", ErrInvalidAmount, value)
	}
	if dec.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	scaled := dec.MulInt(tenPow(decimals))
	if !scaled.IsInteger() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, value, decimals)
	}

	result := scaled.TruncateInt()
	if !result.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is below one base unit", ErrInvalidAmount)
	}
	return result, nil
}

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDecFromInt(tenPow(precision))

	result := decAmount.Quo(factor)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// BigIntToFloat64 converts a raw on-chain integer to a whole-token float64.
// Raw reads from the EVM arrive as *big.Int; everything downstream of the
// chain reader works in whole tokens.
func BigIntToFloat64(raw *big.Int, precision int) (float64, error) {
	if raw == nil {
		return 0, ErrAmountNil
	}
	if raw.Sign() < 0 {
		return 0, ErrAmountNegative
	}
	return SDKIntToFloat64(sdkmath.NewIntFromBigInt(raw), precision)
}

// BigIntToSDKInt converts a raw on-chain integer, rejecting nil and negatives.
func BigIntToSDKInt(raw *big.Int) (sdkmath.Int, error) {
	if raw == nil {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if raw.Sign() < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return sdkmath.NewIntFromBigInt(raw), nil
}

// tenPow returns 10^n as an SDK Int.
func tenPow(n int) sdkmath.Int {
	return sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
