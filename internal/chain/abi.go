/*

This file contains the contract ABI fragments the service calls. Only the
methods actually used are declared; the ABIs are parsed once at package
init and a parse failure is a programming error, not a runtime condition.

*/

package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"type":"bool"}]}
]`

const stakedTokenABIJSON = `[
	{"name":"circulatingSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
]`

const stakingABIJSON = `[
	{"name":"epoch","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"number","type":"uint256"},
		{"name":"distribute","type":"uint256"},
		{"name":"length","type":"uint32"},
		{"name":"endTime","type":"uint32"}
	]},
	{"name":"index","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"unstake","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"trigger","type":"bool"}],"outputs":[]}
]`

const stakingHelperABIJSON = `[
	{"name":"stake","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],"outputs":[]}
]`

const wrappedTokenABIJSON = `[
	{"name":"wrap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[{"type":"uint256"}]},
	{"name":"unwrap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[{"type":"uint256"}]}
]`

const pairABIJSON = `[
	{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"reserve0","type":"uint112"},
		{"name":"reserve1","type":"uint112"},
		{"name":"blockTimestampLast","type":"uint32"}
	]},
	{"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]},
	{"name":"token1","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]}
]`

const bondABIJSON = `[
	{"name":"bondPriceInUSD","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"maxPayout","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"maxPrice","type":"uint256"},{"name":"depositor","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"redeem","type":"function","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"stake","type":"bool"}],"outputs":[{"type":"uint256"}]}
]`

const redeemABIJSON = `[
	{"name":"swap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"totalSwapped","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
]`

var (
	erc20ABI         abi.ABI
	stakedTokenABI   abi.ABI
	stakingABI       abi.ABI
	stakingHelperABI abi.ABI
	wrappedTokenABI  abi.ABI
	pairABI          abi.ABI
	bondABI          abi.ABI
	redeemABI        abi.ABI
)

// MaxUint256 is the unlimited-approval amount: 2^256 - 1.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func init() {
	erc20ABI = mustParseABI(erc20ABIJSON)
	stakedTokenABI = mustParseABI(stakedTokenABIJSON)
	stakingABI = mustParseABI(stakingABIJSON)
	stakingHelperABI = mustParseABI(stakingHelperABIJSON)
	wrappedTokenABI = mustParseABI(wrappedTokenABIJSON)
	pairABI = mustParseABI(pairABIJSON)
	bondABI = mustParseABI(bondABIJSON)
	redeemABI = mustParseABI(redeemABIJSON)
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}
