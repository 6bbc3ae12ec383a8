package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/chain"
	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/notify"
	"github.com/snowbound-dao/sdm/internal/types"
)

// --- Fakes ---

type fakeReader struct {
	mu           sync.Mutex
	networkErr   error
	networkCalls int
	accountCalls int
}

func (f *fakeReader) VerifyNetwork(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.networkCalls++
	return f.networkErr
}

func (f *fakeReader) AccountState(ctx context.Context, account common.Address) (types.AccountState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	return types.AccountState{
		Address:    account.Hex(),
		Balances:   map[string]sdkmath.Int{types.SymbolToken: sdkmath.NewInt(1)},
		Allowances: map[types.ApprovalTarget]sdkmath.Int{},
	}, nil
}

func (f *fakeReader) Addresses() config.ProtocolAddresses {
	addrs, _ := config.GetAddresses(config.AvalancheMainnetChainID)
	return addrs
}

func (f *fakeReader) ChainID() int64 {
	return config.AvalancheMainnetChainID
}

func (f *fakeReader) calls() (network, account int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.networkCalls, f.accountCalls
}

type fakeSigner struct {
	mu        sync.Mutex
	submitErr error
	submits   int
	lastData  []byte
}

func (f *fakeSigner) From() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000AA")
}

func (f *fakeSigner) Submit(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	f.submits++
	f.lastData = append([]byte(nil), data...)
	return common.BigToHash(big.NewInt(int64(f.submits))), nil
}

func (f *fakeSigner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

type fakeWaiter struct {
	mu      sync.Mutex
	status  uint64
	release chan struct{} // when non-nil, receipts are withheld until closed
	fail    bool          // never produce a receipt
}

func (f *fakeWaiter) TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error) {
	f.mu.Lock()
	release := f.release
	f.mu.Unlock()

	if f.fail {
		return nil, errors.New("not found")
	}
	if release != nil {
		select {
		case <-release:
		default:
			return nil, errors.New("not found")
		}
	}
	return &coretypes.Receipt{
		Status:      f.status,
		GasUsed:     21000,
		BlockNumber: big.NewInt(77),
	}, nil
}

type recordingSink struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (s *recordingSink) Notify(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

func (s *recordingSink) bySeverity(sev notify.Severity) []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Notification
	for _, n := range s.notifications {
		if n.Severity == sev {
			out = append(out, n)
		}
	}
	return out
}

type recordingRecorder struct {
	mu       sync.Mutex
	receipts []types.TxReceipt
}

func (r *recordingRecorder) SaveReceipt(receipt types.TxReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *recordingRecorder) all() []types.TxReceipt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.TxReceipt, len(r.receipts))
	copy(out, r.receipts)
	return out
}

type fixture struct {
	orch     *Orchestrator
	reader   *fakeReader
	signer   *fakeSigner
	waiter   *fakeWaiter
	store    *appstate.Store
	sink     *recordingSink
	recorder *recordingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reader:   &fakeReader{},
		signer:   &fakeSigner{},
		waiter:   &fakeWaiter{status: coretypes.ReceiptStatusSuccessful},
		store:    appstate.NewStore(),
		sink:     &recordingSink{},
		recorder: &recordingRecorder{},
	}
	orch, err := New(f.reader, f.signer, f.waiter, f.store, f.sink, f.recorder, time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)
	f.orch = orch
	return f
}

// --- Tests ---

func TestStakeSuccessLifecycle(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.orch.Stake(context.Background(), "1.5")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, types.TxOutcomeSuccess, receipt.Outcome)
	assert.Equal(t, types.ActionStaking, receipt.Action)
	assert.Equal(t, uint64(77), receipt.BlockNumber)

	// Exactly one success notification and the two balance infos.
	assert.Len(t, f.sink.bySeverity(notify.SeveritySuccess), 1)
	assert.Len(t, f.sink.bySeverity(notify.SeverityInfo), 2)
	assert.Empty(t, f.sink.bySeverity(notify.SeverityError))

	// Registry cleaned up, receipt persisted, account refreshed.
	assert.Equal(t, 0, f.store.Pending().Len())
	require.Len(t, f.recorder.all(), 1)
	_, accountCalls := f.reader.calls()
	assert.Equal(t, 1, accountCalls)
	require.NotNil(t, f.store.Account())
}

func TestStakeSubmitsExactBaseUnits(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Stake(context.Background(), "1.5")
	require.NoError(t, err)

	expected, err := chain.PackStake(sdkmath.NewInt(1_500_000_000), f.signer.From())
	require.NoError(t, err)
	assert.Equal(t, expected, f.signer.lastData)
}

func TestInvalidAmountsFailBeforeAnyCall(t *testing.T) {
	f := newFixture(t)

	for _, value := range []string{"-1", "0", "", "abc", "1.0000000001"} {
		_, err := f.orch.Stake(context.Background(), value)
		var classified *ClassifiedError
		require.ErrorAs(t, err, &classified, "value %q", value)
		assert.Equal(t, ClassInvalidAmount, classified.Class, "value %q", value)
	}

	networkCalls, _ := f.reader.calls()
	assert.Equal(t, 0, networkCalls)
	assert.Equal(t, 0, f.signer.count())
	assert.Equal(t, 0, f.store.Pending().Len())
}

func TestWrongNetworkIssuesNoFurtherCalls(t *testing.T) {
	f := newFixture(t)
	f.reader.networkErr = fmt.Errorf("%w: expected 43114, got 1", chain.ErrWrongNetwork)

	_, err := f.orch.Stake(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassWrongNetwork, classified.Class)

	networkCalls, accountCalls := f.reader.calls()
	assert.Equal(t, 1, networkCalls)
	assert.Equal(t, 0, accountCalls)
	assert.Equal(t, 0, f.signer.count())
	assert.Equal(t, 0, f.store.Pending().Len())

	warnings := f.sink.bySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.MsgSwitchNetwork, warnings[0].Text)
}

func TestDuplicateSubmissionGuard(t *testing.T) {
	f := newFixture(t)
	f.waiter.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Stake(context.Background(), "1")
		done <- err
	}()

	// Wait until the first transaction is in flight.
	require.Eventually(t, func() bool {
		return f.store.Pending().HasAction(types.ActionStaking)
	}, time.Second, time.Millisecond)

	_, err := f.orch.Stake(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassDuplicateAction, classified.Class)

	close(f.waiter.release)
	require.NoError(t, <-done)

	// Exactly one submission and nothing left pending.
	assert.Equal(t, 1, f.signer.count())
	assert.Equal(t, 0, f.store.Pending().Len())
}

func TestUserRejectionReleasesSlot(t *testing.T) {
	f := newFixture(t)
	f.signer.submitErr = fmt.Errorf("signing failed: %w", ErrUserRejected)

	_, err := f.orch.Stake(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassUserRejected, classified.Class)

	// Slot released: the same action can be retried immediately.
	assert.False(t, f.store.Pending().HasAction(types.ActionStaking))

	receipts := f.recorder.all()
	require.Len(t, receipts, 1)
	assert.Equal(t, types.TxOutcomeRejected, receipts[0].Outcome)
	assert.Empty(t, receipts[0].ID)

	f.signer.submitErr = nil
	_, err = f.orch.Stake(context.Background(), "1")
	require.NoError(t, err)
}

func TestRevertedTransactionCleansUp(t *testing.T) {
	f := newFixture(t)
	f.waiter.status = coretypes.ReceiptStatusFailed

	receipt, err := f.orch.Unstake(context.Background(), "2")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassContractReverted, classified.Class)

	require.NotNil(t, receipt)
	assert.Equal(t, types.TxOutcomeReverted, receipt.Outcome)
	assert.Equal(t, 0, f.store.Pending().Len())

	// Exactly one error notification, no success.
	assert.Len(t, f.sink.bySeverity(notify.SeverityError), 1)
	assert.Empty(t, f.sink.bySeverity(notify.SeveritySuccess))

	// The failed settlement never triggers a balance refresh.
	_, accountCalls := f.reader.calls()
	assert.Equal(t, 0, accountCalls)
}

func TestConfirmationTimeout(t *testing.T) {
	f := newFixture(t)
	f.waiter.fail = true

	receipt, err := f.orch.Wrap(context.Background(), "1")
	require.ErrorIs(t, err, ErrConfirmTimeout)
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassConfirmTimeout, classified.Class)
	assert.Nil(t, receipt)

	// The entry stays pending: the transaction may still settle, so the
	// background tracker keeps watching it.
	assert.Equal(t, 1, f.store.Pending().Len())

	warnings := f.sink.bySeverity(notify.SeverityWarning)
	require.NotEmpty(t, warnings)
	assert.Equal(t, notify.MsgStillPending, warnings[0].Text)

	// Halfway through the wait the user was told it is taking long.
	infos := f.sink.bySeverity(notify.SeverityInfo)
	require.NotEmpty(t, infos)
	assert.Equal(t, notify.MsgStillPending, infos[0].Text)

	// The tracker eventually gives up, frees the slot, and records the
	// unknown outcome as failed.
	require.Eventually(t, func() bool {
		return f.store.Pending().Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	warnings = f.sink.bySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 2)
	assert.Equal(t, notify.MsgConfirmGaveUp, warnings[1].Text)

	receipts := f.recorder.all()
	require.Len(t, receipts, 1)
	assert.Equal(t, types.TxOutcomeFailed, receipts[0].Outcome)
}

func TestLateSettlementAfterTimeout(t *testing.T) {
	f := newFixture(t)
	f.waiter.release = make(chan struct{})

	receipt, err := f.orch.Wrap(context.Background(), "1")
	require.ErrorIs(t, err, ErrConfirmTimeout)
	assert.Nil(t, receipt)
	assert.Equal(t, 1, f.store.Pending().Len())

	// The transaction mines after the synchronous wait gave up; the tracker
	// must pick it up, settle it, and free the slot.
	close(f.waiter.release)

	require.Eventually(t, func() bool {
		return f.store.Pending().Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, f.sink.bySeverity(notify.SeveritySuccess), 1)

	receipts := f.recorder.all()
	require.Len(t, receipts, 1)
	assert.Equal(t, types.TxOutcomeSuccess, receipts[0].Outcome)
	assert.Equal(t, uint64(77), receipts[0].BlockNumber)
}

func TestStakeRequiresApproval(t *testing.T) {
	f := newFixture(t)

	seq := f.store.BeginRefresh()
	require.True(t, f.store.ApplyAccount(seq, types.AccountState{
		Address:    f.signer.From().Hex(),
		Balances:   map[string]sdkmath.Int{types.SymbolToken: sdkmath.NewInt(10_000_000_000)},
		Allowances: map[types.ApprovalTarget]sdkmath.Int{},
	}))

	_, err := f.orch.Stake(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassNotApproved, classified.Class)

	warnings := f.sink.bySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.MsgApproveBeforeStake, warnings[0].Text)

	// Rejected before any network call or submission.
	networkCalls, _ := f.reader.calls()
	assert.Equal(t, 0, networkCalls)
	assert.Equal(t, 0, f.signer.count())
	assert.Equal(t, 0, f.store.Pending().Len())

	// With the allowance granted the same stake goes through.
	seq = f.store.BeginRefresh()
	require.True(t, f.store.ApplyAccount(seq, types.AccountState{
		Address:  f.signer.From().Hex(),
		Balances: map[string]sdkmath.Int{types.SymbolToken: sdkmath.NewInt(10_000_000_000)},
		Allowances: map[types.ApprovalTarget]sdkmath.Int{
			types.ApproveStaking: sdkmath.NewInt(1_000_000_000),
		},
	}))
	_, err = f.orch.Stake(context.Background(), "1")
	require.NoError(t, err)
}

func TestStakeRejectsOverBalance(t *testing.T) {
	f := newFixture(t)

	seq := f.store.BeginRefresh()
	require.True(t, f.store.ApplyAccount(seq, types.AccountState{
		Address:  f.signer.From().Hex(),
		Balances: map[string]sdkmath.Int{types.SymbolToken: sdkmath.NewInt(1)},
		Allowances: map[types.ApprovalTarget]sdkmath.Int{
			types.ApproveStaking: sdkmath.NewInt(10_000_000_000),
		},
	}))

	_, err := f.orch.Stake(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassInsufficientBalance, classified.Class)

	warnings := f.sink.bySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.MsgInsufficientFunds, warnings[0].Text)
	assert.Equal(t, 0, f.signer.count())
}

func TestNoSignerFailsFast(t *testing.T) {
	f := newFixture(t)
	orch, err := New(f.reader, nil, f.waiter, f.store, f.sink, f.recorder, time.Millisecond, time.Second)
	require.NoError(t, err)

	_, err = orch.Redeem(context.Background(), "1")
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ClassProviderUnavailable, classified.Class)

	warnings := f.sink.bySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, notify.MsgConnectWallet, warnings[0].Text)
}

func TestApproveTargetsResolveContracts(t *testing.T) {
	f := newFixture(t)

	for _, target := range []types.ApprovalTarget{
		types.ApproveStaking,
		types.ApproveUnstaking,
		types.ApproveWrapping,
		types.ApproveRedeem,
	} {
		receipt, err := f.orch.Approve(context.Background(), target)
		require.NoError(t, err, "target %s", target)
		assert.Equal(t, types.TxOutcomeSuccess, receipt.Outcome)
	}
	assert.Equal(t, 4, f.signer.count())
	assert.Equal(t, 0, f.store.Pending().Len())
}

func TestBondDepositValidation(t *testing.T) {
	f := newFixture(t)

	// Unknown bond name.
	_, err := f.orch.BondDeposit(context.Background(), "nope", "1", big.NewInt(1))
	require.Error(t, err)

	// Inactive bond refuses deposits.
	_, err = f.orch.BondDeposit(context.Background(), "mim", "1", big.NewInt(1))
	require.Error(t, err)
	assert.Equal(t, 0, f.signer.count())

	// Active bond goes through.
	receipt, err := f.orch.BondDeposit(context.Background(), "mim_snow_lp", "1", big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, types.BondActionType("mim_snow_lp"), receipt.Action)
}
