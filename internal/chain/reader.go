/*

This file contains the chain reader. Every public read is all-or-nothing:
one failed contract call discards the entire snapshot under construction and
returns an error, so downstream consumers never see a mix of old and new
protocol state.

*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/types"
	"github.com/snowbound-dao/sdm/internal/utils"
)

var readerLogger = logger.GetForComponent("chain_reader")

// Reader performs consistent protocol and account reads against one network.
type Reader struct {
	backend Backend
	oracle  PriceOracle
	chainID int64
	addrs   config.ProtocolAddresses
	bonds   []types.BondDescriptor
}

// NewReader builds a reader for the expected network. The address table must
// exist for the chain id; the network itself is verified on every read.
func NewReader(backend Backend, oracle PriceOracle, chainID int64, bonds []types.BondDescriptor) (*Reader, error) {
	if backend == nil {
		return nil, ErrProviderUnavailable
	}
	if oracle == nil {
		return nil, errors.New("price oracle cannot be nil")
	}
	addrs, err := config.GetAddresses(chainID)
	if err != nil {
		return nil, err
	}
	return &Reader{
		backend: backend,
		oracle:  oracle,
		chainID: chainID,
		addrs:   addrs,
		bonds:   bonds,
	}, nil
}

// ChainID returns the network this reader expects.
func (r *Reader) ChainID() int64 {
	return r.chainID
}

// Addresses returns the protocol address table in use.
func (r *Reader) Addresses() config.ProtocolAddresses {
	return r.addrs
}

// VerifyNetwork checks that the connected node serves the expected chain.
func (r *Reader) VerifyNetwork(ctx context.Context) error {
	id, err := r.backend.ChainID(ctx)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, fmt.Errorf("chain id query failed: %w", err))
	}
	if id == nil || id.Int64() != r.chainID {
		return fmt.Errorf("%w: expected %d, got %v", ErrWrongNetwork, r.chainID, id)
	}
	return nil
}

// Snapshot reads one consistent view of protocol state. Any failed call
// aborts the whole read.
func (r *Reader) Snapshot(ctx context.Context) (types.ChainSnapshot, error) {
	if err := r.VerifyNetwork(ctx); err != nil {
		return types.ChainSnapshot{}, err
	}

	header, err := r.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, fmt.Errorf("head header query failed: %w", err))
	}

	reservePrice, err := r.oracle.PriceUSD(types.SymbolReserve)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, fmt.Errorf("reserve price unavailable: %w", err))
	}

	totalSupplyRaw, err := r.callUint(ctx, r.addrs.Token, erc20ABI, "totalSupply")
	if err != nil {
		return types.ChainSnapshot{}, err
	}
	totalSupply, err := utils.BigIntToFloat64(totalSupplyRaw, config.TokenDecimals)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, err)
	}

	circSupplyRaw, err := r.callUint(ctx, r.addrs.StakedToken, stakedTokenABI, "circulatingSupply")
	if err != nil {
		return types.ChainSnapshot{}, err
	}
	circSupply, err := utils.BigIntToFloat64(circSupplyRaw, config.TokenDecimals)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, err)
	}

	daoBalanceRaw, err := r.callUint(ctx, r.addrs.Token, erc20ABI, "balanceOf", r.addrs.DAO)
	if err != nil {
		return types.ChainSnapshot{}, err
	}
	daoBalance, err := utils.BigIntToFloat64(daoBalanceRaw, config.TokenDecimals)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, err)
	}

	rawMarketPrice, err := r.readRawMarketPrice(ctx)
	if err != nil {
		return types.ChainSnapshot{}, err
	}

	epochDistribute, epochEndTime, err := r.readEpoch(ctx)
	if err != nil {
		return types.ChainSnapshot{}, err
	}

	indexRaw, err := r.callUint(ctx, r.addrs.Staking, stakingABI, "index")
	if err != nil {
		return types.ChainSnapshot{}, err
	}
	currentIndex, err := utils.BigIntToFloat64(indexRaw, config.TokenDecimals)
	if err != nil {
		return types.ChainSnapshot{}, errors.Join(ErrChainRead, err)
	}

	bonds := make([]types.BondSnapshot, 0, len(r.bonds))
	for _, descriptor := range r.bonds {
		snap, err := r.readBond(ctx, descriptor, rawMarketPrice, reservePrice)
		if err != nil {
			return types.ChainSnapshot{}, err
		}
		bonds = append(bonds, snap)
	}

	redeem, err := r.readRedeem(ctx)
	if err != nil {
		return types.ChainSnapshot{}, err
	}

	snapshot := types.ChainSnapshot{
		Timestamp:         time.Now().UTC(),
		BlockNumber:       header.Number.Uint64(),
		BlockTime:         int64(header.Time),
		RawMarketPrice:    rawMarketPrice,
		ReservePriceUSD:   reservePrice,
		TotalSupply:       totalSupply,
		CirculatingSupply: circSupply,
		DAOTokenAmount:    daoBalance,
		EpochDistribute:   epochDistribute,
		EpochEndTime:      epochEndTime,
		CurrentIndex:      currentIndex,
		Bonds:             bonds,
		Redeem:            redeem,
	}

	readerLogger.Debug().
		Uint64("block", snapshot.BlockNumber).
		Float64("totalSupply", totalSupply).
		Float64("circSupply", circSupply).
		Int("bonds", len(bonds)).
		Msg("Protocol snapshot read complete")

	return snapshot, nil
}

// AccountState reads the balances and allowances of one account. Same
// all-or-nothing rule as Snapshot.
func (r *Reader) AccountState(ctx context.Context, account common.Address) (types.AccountState, error) {
	if err := r.VerifyNetwork(ctx); err != nil {
		return types.AccountState{}, err
	}

	type balanceRead struct {
		symbol string
		token  common.Address
	}
	reads := []balanceRead{
		{types.SymbolToken, r.addrs.Token},
		{types.SymbolStakedToken, r.addrs.StakedToken},
		{types.SymbolWrappedToken, r.addrs.WrappedToken},
	}

	state := types.AccountState{
		Address:    account.Hex(),
		Balances:   make(map[string]sdkmath.Int, len(reads)),
		Allowances: make(map[types.ApprovalTarget]sdkmath.Int),
	}

	for _, read := range reads {
		raw, err := r.callUint(ctx, read.token, erc20ABI, "balanceOf", account)
		if err != nil {
			return types.AccountState{}, err
		}
		amount, err := utils.BigIntToSDKInt(raw)
		if err != nil {
			return types.AccountState{}, errors.Join(ErrChainRead, err)
		}
		state.Balances[read.symbol] = amount
	}

	type allowanceRead struct {
		target  types.ApprovalTarget
		token   common.Address
		spender common.Address
	}
	allowanceReads := []allowanceRead{
		{types.ApproveStaking, r.addrs.Token, r.addrs.StakingHelper},
		{types.ApproveUnstaking, r.addrs.StakedToken, r.addrs.Staking},
		{types.ApproveWrapping, r.addrs.StakedToken, r.addrs.WrappedToken},
		{types.ApproveRedeem, r.addrs.Token, r.addrs.Redeem},
	}
	for _, bond := range r.bonds {
		addrs, ok := bond.AddressesFor(r.chainID)
		if !ok {
			continue
		}
		allowanceReads = append(allowanceReads, allowanceRead{
			target:  types.BondApprovalTarget(bond.Name),
			token:   addrs.Reserve,
			spender: addrs.Bond,
		})
	}

	for _, read := range allowanceReads {
		raw, err := r.callUint(ctx, read.token, erc20ABI, "allowance", account, read.spender)
		if err != nil {
			return types.AccountState{}, err
		}
		amount, err := utils.BigIntToSDKInt(raw)
		if err != nil {
			return types.AccountState{}, errors.Join(ErrChainRead, err)
		}
		state.Allowances[read.target] = amount
	}

	return state, nil
}

// BondQuotes reads the live quote for every bond instrument. When owner is
// non-nil the quote includes the owner's reserve-token allowance.
func (r *Reader) BondQuotes(ctx context.Context, owner *common.Address) ([]types.BondQuote, error) {
	if err := r.VerifyNetwork(ctx); err != nil {
		return nil, err
	}

	reservePrice, err := r.oracle.PriceUSD(types.SymbolReserve)
	if err != nil {
		return nil, errors.Join(ErrChainRead, fmt.Errorf("reserve price unavailable: %w", err))
	}

	rawMarketPrice, err := r.readRawMarketPrice(ctx)
	if err != nil {
		return nil, err
	}
	marketPrice := rawMarketPrice / config.MarketPriceScale * reservePrice

	quotes := make([]types.BondQuote, 0, len(r.bonds))
	for _, descriptor := range r.bonds {
		addrs, ok := descriptor.AddressesFor(r.chainID)
		if !ok {
			return nil, fmt.Errorf("%w: bond %s has no deployment on chain %d", ErrChainRead, descriptor.Name, r.chainID)
		}

		bondPriceRaw, err := r.callUint(ctx, addrs.Bond, bondABI, "bondPriceInUSD")
		if err != nil {
			return nil, err
		}
		bondPrice, err := utils.BigIntToFloat64(bondPriceRaw, config.ReserveDecimals)
		if err != nil {
			return nil, errors.Join(ErrChainRead, err)
		}

		maxPayoutRaw, err := r.callUint(ctx, addrs.Bond, bondABI, "maxPayout")
		if err != nil {
			return nil, err
		}
		maxPayout, err := utils.BigIntToFloat64(maxPayoutRaw, config.TokenDecimals)
		if err != nil {
			return nil, errors.Join(ErrChainRead, err)
		}

		snap, err := r.readBond(ctx, descriptor, rawMarketPrice, reservePrice)
		if err != nil {
			return nil, err
		}

		quote := types.BondQuote{
			Name:         descriptor.Name,
			DisplayName:  descriptor.DisplayName,
			Kind:         descriptor.Kind,
			IsActive:     descriptor.IsActive,
			BondPrice:    bondPrice,
			MaxBondPrice: maxPayout,
			Purchased:    snap.BalanceUSD,
		}
		if bondPrice > 0 {
			quote.BondDiscount = (marketPrice - bondPrice) / bondPrice
		}

		if owner != nil {
			allowanceRaw, err := r.callUint(ctx, addrs.Reserve, erc20ABI, "allowance", *owner, addrs.Bond)
			if err != nil {
				return nil, err
			}
			quote.Allowance = allowanceRaw.String()
		}

		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// readRawMarketPrice derives the protocol token's reserve-pair price, scaled
// by the fixed-point market price scale. Pair token ordering is read from
// the contract rather than assumed.
func (r *Reader) readRawMarketPrice(ctx context.Context) (float64, error) {
	token0, err := r.callAddress(ctx, r.addrs.ReservePair, pairABI, "token0")
	if err != nil {
		return 0, err
	}

	reserve0, reserve1, err := r.readReserves(ctx, r.addrs.ReservePair)
	if err != nil {
		return 0, err
	}

	protocolSide, reserveSide := reserve0, reserve1
	if token0 != r.addrs.Token {
		protocolSide, reserveSide = reserve1, reserve0
	}

	protocolTokens, err := utils.BigIntToFloat64(protocolSide, config.TokenDecimals)
	if err != nil {
		return 0, errors.Join(ErrChainRead, err)
	}
	reserveTokens, err := utils.BigIntToFloat64(reserveSide, config.ReserveDecimals)
	if err != nil {
		return 0, errors.Join(ErrChainRead, err)
	}
	if protocolTokens == 0 {
		return 0, fmt.Errorf("%w: reserve pair has no protocol-token liquidity", ErrChainRead)
	}

	return reserveTokens / protocolTokens * config.MarketPriceScale, nil
}

// readEpoch reads the staking epoch: the reward to distribute and when the
// current epoch ends.
func (r *Reader) readEpoch(ctx context.Context) (float64, int64, error) {
	out, err := r.call(ctx, r.addrs.Staking, stakingABI, "epoch")
	if err != nil {
		return 0, 0, err
	}
	if len(out) != 4 {
		return 0, 0, fmt.Errorf("%w: epoch returned %d values", ErrChainRead, len(out))
	}

	distributeRaw, ok := out[1].(*big.Int)
	if !ok {
		return 0, 0, fmt.Errorf("%w: epoch distribute has unexpected type", ErrChainRead)
	}
	endTime, ok := out[3].(uint32)
	if !ok {
		return 0, 0, fmt.Errorf("%w: epoch end time has unexpected type", ErrChainRead)
	}

	distribute, err := utils.BigIntToFloat64(distributeRaw, config.TokenDecimals)
	if err != nil {
		return 0, 0, errors.Join(ErrChainRead, err)
	}
	return distribute, int64(endTime), nil
}

// readBond values one bond's treasury reserve according to its kind.
func (r *Reader) readBond(ctx context.Context, descriptor types.BondDescriptor, rawMarketPrice, reservePrice float64) (types.BondSnapshot, error) {
	addrs, ok := descriptor.AddressesFor(r.chainID)
	if !ok {
		return types.BondSnapshot{}, fmt.Errorf("%w: bond %s has no deployment on chain %d", ErrChainRead, descriptor.Name, r.chainID)
	}

	snap := types.BondSnapshot{Name: descriptor.Name, Kind: descriptor.Kind}

	switch descriptor.Kind {
	case types.BondKindStable, types.BondKindCustom:
		balanceRaw, err := r.callUint(ctx, addrs.Reserve, erc20ABI, "balanceOf", r.addrs.Treasury)
		if err != nil {
			return types.BondSnapshot{}, err
		}
		balance, err := utils.BigIntToFloat64(balanceRaw, descriptor.ReserveDecimals)
		if err != nil {
			return types.BondSnapshot{}, errors.Join(ErrChainRead, err)
		}

		price := reservePrice
		if descriptor.Kind == types.BondKindCustom {
			price, err = r.oracle.PriceUSD(descriptor.BondToken)
			if err != nil {
				return types.BondSnapshot{}, errors.Join(ErrChainRead, fmt.Errorf("price for %s unavailable: %w", descriptor.BondToken, err))
			}
		}
		snap.BalanceUSD = balance * price
		snap.RiskFreeUSD = snap.BalanceUSD

	case types.BondKindLP, types.BondKindCustomLP:
		lpSnap, err := r.readLPBond(ctx, descriptor, addrs, reservePrice)
		if err != nil {
			return types.BondSnapshot{}, err
		}
		snap = lpSnap

	default:
		return types.BondSnapshot{}, fmt.Errorf("%w: bond %s has unknown kind %q", ErrChainRead, descriptor.Name, descriptor.Kind)
	}

	return snap, nil
}

// readLPBond values a liquidity-pool reserve from the treasury's pool share.
// Both pool sides are valued at market; the risk-free figure counts only the
// non-protocol side.
func (r *Reader) readLPBond(ctx context.Context, descriptor types.BondDescriptor, addrs types.BondAddresses, reservePrice float64) (types.BondSnapshot, error) {
	snap := types.BondSnapshot{Name: descriptor.Name, Kind: descriptor.Kind}

	token0, err := r.callAddress(ctx, addrs.Reserve, pairABI, "token0")
	if err != nil {
		return types.BondSnapshot{}, err
	}
	reserve0, reserve1, err := r.readReserves(ctx, addrs.Reserve)
	if err != nil {
		return types.BondSnapshot{}, err
	}

	protocolSide, otherSide := reserve0, reserve1
	if token0 != r.addrs.Token {
		protocolSide, otherSide = reserve1, reserve0
	}

	protocolTokens, err := utils.BigIntToFloat64(protocolSide, config.TokenDecimals)
	if err != nil {
		return types.BondSnapshot{}, errors.Join(ErrChainRead, err)
	}
	otherTokens, err := utils.BigIntToFloat64(otherSide, descriptor.ReserveDecimals)
	if err != nil {
		return types.BondSnapshot{}, errors.Join(ErrChainRead, err)
	}

	lpBalanceRaw, err := r.callUint(ctx, addrs.Reserve, erc20ABI, "balanceOf", r.addrs.Treasury)
	if err != nil {
		return types.BondSnapshot{}, err
	}
	lpSupplyRaw, err := r.callUint(ctx, addrs.Reserve, erc20ABI, "totalSupply")
	if err != nil {
		return types.BondSnapshot{}, err
	}
	if lpSupplyRaw.Sign() == 0 {
		return types.BondSnapshot{}, fmt.Errorf("%w: pair %s has zero LP supply", ErrChainRead, descriptor.Name)
	}

	share := new(big.Float).Quo(new(big.Float).SetInt(lpBalanceRaw), new(big.Float).SetInt(lpSupplyRaw))
	shareF, _ := share.Float64()

	otherPrice := reservePrice
	if descriptor.Kind == types.BondKindCustomLP {
		otherPrice, err = r.oracle.PriceUSD(descriptor.BondToken)
		if err != nil {
			return types.BondSnapshot{}, errors.Join(ErrChainRead, fmt.Errorf("price for %s unavailable: %w", descriptor.BondToken, err))
		}
	}

	otherSideUSD := otherTokens * otherPrice
	// A balanced pool is worth twice its non-protocol side.
	snap.BalanceUSD = shareF * 2 * otherSideUSD
	snap.RiskFreeUSD = shareF * otherSideUSD
	snap.ProtocolTokenAmount = shareF * protocolTokens

	return snap, nil
}

// readRedeem reads the fixed-value redemption contract state. Returns nil
// when the contract is not deployed on this network.
func (r *Reader) readRedeem(ctx context.Context) (*types.RedeemSnapshot, error) {
	if r.addrs.Redeem == (common.Address{}) {
		return nil, nil
	}

	totalSwappedRaw, err := r.callUint(ctx, r.addrs.Redeem, redeemABI, "totalSwapped")
	if err != nil {
		return nil, err
	}
	totalRedeemed, err := utils.BigIntToFloat64(totalSwappedRaw, config.TokenDecimals)
	if err != nil {
		return nil, errors.Join(ErrChainRead, err)
	}

	// The MIM bond reserve token doubles as the redemption payout asset.
	availableRaw, err := r.callUint(ctx, config.MIMBond.NetworkAddrs[r.chainID].Reserve, erc20ABI, "balanceOf", r.addrs.Redeem)
	if err != nil {
		return nil, err
	}
	available, err := utils.BigIntToFloat64(availableRaw, config.ReserveDecimals)
	if err != nil {
		return nil, errors.Join(ErrChainRead, err)
	}

	return &types.RedeemSnapshot{TotalRedeemed: totalRedeemed, ReserveAvailable: available}, nil
}

func (r *Reader) readReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	out, err := r.call(ctx, pair, pairABI, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(out) != 3 {
		return nil, nil, fmt.Errorf("%w: getReserves returned %d values", ErrChainRead, len(out))
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("%w: getReserves returned unexpected types", ErrChainRead)
	}
	return reserve0, reserve1, nil
}

// call packs a view-method call, executes it, and unpacks the outputs.
func (r *Reader) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Join(ErrChainRead, fmt.Errorf("packing %s failed: %w", method, err))
	}

	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, errors.Join(ErrChainRead, fmt.Errorf("call %s on %s failed: %w", method, to.Hex(), err))
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: call %s on %s returned no data", ErrChainRead, method, to.Hex())
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, errors.Join(ErrChainRead, fmt.Errorf("unpacking %s failed: %w", method, err))
	}
	return out, nil
}

func (r *Reader) callUint(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.call(ctx, to, contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no values", ErrChainRead, method)
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned unexpected type", ErrChainRead, method)
	}
	return value, nil
}

func (r *Reader) callAddress(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Address, error) {
	out, err := r.call(ctx, to, contractABI, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("%w: %s returned no values", ErrChainRead, method)
	}
	value, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned unexpected type", ErrChainRead, method)
	}
	return value, nil
}
