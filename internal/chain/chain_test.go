package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/config"
)

// fakeBackend serves only the calls the test under it needs; everything else
// fails loudly.
type fakeBackend struct {
	chainID    *big.Int
	chainIDErr error
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, f.chainIDErr
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*coretypes.Header, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, errors.New("not scripted")
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("not scripted")
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	return errors.New("not scripted")
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error) {
	return nil, errors.New("not scripted")
}

func newTestReader(t *testing.T, backend Backend) *Reader {
	t.Helper()
	oracle := NewStaticOracle(map[string]float64{"MIM": 1.0, "AVAX": 80.0})
	r, err := NewReader(backend, oracle, config.AvalancheMainnetChainID, config.AllBonds)
	require.NoError(t, err)
	return r
}

func TestNewReaderValidation(t *testing.T) {
	oracle := NewStaticOracle(nil)

	_, err := NewReader(nil, oracle, config.AvalancheMainnetChainID, nil)
	require.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = NewReader(&fakeBackend{}, nil, config.AvalancheMainnetChainID, nil)
	require.Error(t, err)

	// Unknown networks are rejected at construction, not at read time.
	_, err = NewReader(&fakeBackend{}, oracle, 1, nil)
	require.ErrorIs(t, err, config.ErrUnsupportedNetwork)
}

func TestVerifyNetwork(t *testing.T) {
	r := newTestReader(t, &fakeBackend{chainID: big.NewInt(config.AvalancheMainnetChainID)})
	require.NoError(t, r.VerifyNetwork(context.Background()))

	wrong := newTestReader(t, &fakeBackend{chainID: big.NewInt(1)})
	err := wrong.VerifyNetwork(context.Background())
	require.ErrorIs(t, err, ErrWrongNetwork)

	down := newTestReader(t, &fakeBackend{chainIDErr: errors.New("connection refused")})
	err = down.VerifyNetwork(context.Background())
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSnapshotAbortsOnWrongNetwork(t *testing.T) {
	r := newTestReader(t, &fakeBackend{chainID: big.NewInt(1)})

	_, err := r.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrWrongNetwork)
}

func TestPackApproveGrantsUnlimitedAllowance(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000BB")

	data, err := PackApprove(spender)
	require.NoError(t, err)

	method, err := erc20ABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "approve", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, spender, args[0])
	assert.Equal(t, 0, MaxUint256.Cmp(args[1].(*big.Int)))
}

func TestPackStakeEncodesAmountAndRecipient(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	amount := sdkmath.NewInt(1_500_000_000)

	data, err := PackStake(amount, recipient)
	require.NoError(t, err)

	method, err := stakingHelperABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "stake", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, 0, amount.BigInt().Cmp(args[0].(*big.Int)))
	assert.Equal(t, recipient, args[1])
}

func TestPackBondDepositRequiresMaxPrice(t *testing.T) {
	_, err := PackBondDeposit(sdkmath.NewInt(1), nil, common.Address{})
	require.ErrorIs(t, err, ErrPackFailed)
}

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle(map[string]float64{"MIM": 1.0})

	price, err := o.PriceUSD("MIM")
	require.NoError(t, err)
	assert.Equal(t, 1.0, price)

	_, err = o.PriceUSD("AVAX")
	require.ErrorIs(t, err, ErrPriceUnavailable)

	require.NoError(t, o.SetPrice("AVAX", 80.0))
	price, err = o.PriceUSD("AVAX")
	require.NoError(t, err)
	assert.Equal(t, 80.0, price)

	require.Error(t, o.SetPrice("AVAX", -1))
	require.Error(t, o.SetPrice("AVAX", 0))
}

func TestNewSigningClientRejectsBadKeys(t *testing.T) {
	backend := &fakeBackend{}

	_, err := NewSigningClient(backend, "", config.AvalancheMainnetChainID)
	require.ErrorIs(t, err, ErrSignerUnavailable)

	_, err = NewSigningClient(backend, "not-hex", config.AvalancheMainnetChainID)
	require.ErrorIs(t, err, ErrSignerUnavailable)

	// A valid key derives a stable sending address, with or without the
	// 0x prefix.
	const key = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	c1, err := NewSigningClient(backend, key, config.AvalancheMainnetChainID)
	require.NoError(t, err)
	c2, err := NewSigningClient(backend, "0x"+key, config.AvalancheMainnetChainID)
	require.NoError(t, err)
	assert.Equal(t, c1.From(), c2.From())
	assert.NotEqual(t, common.Address{}, c1.From())
}
