/*

This file contains the transaction orchestrator. Every user action funnels
through the same lifecycle: validate input, verify the network, reserve the
action slot, submit, track the pending entry, wait for the receipt, notify,
and refresh account state. The pending-registry entry is removed on every
terminal path; a transaction that outlives the confirmation wait is handed
to a background tracker that keeps the entry alive until the transaction
settles or an extended wait elapses.

*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/snowbound-dao/sdm/internal/appstate"
	"github.com/snowbound-dao/sdm/internal/chain"
	"github.com/snowbound-dao/sdm/internal/config"
	"github.com/snowbound-dao/sdm/internal/logger"
	"github.com/snowbound-dao/sdm/internal/notify"
	"github.com/snowbound-dao/sdm/internal/types"
	"github.com/snowbound-dao/sdm/internal/utils"
)

var orchestratorLogger = logger.GetForComponent("orchestrator")

// ErrConfirmTimeout is returned when a submitted transaction did not settle
// within the configured wait; it may still settle on chain afterwards.
var ErrConfirmTimeout = errors.New("timed out waiting for confirmation")

// ProtocolReader is the read surface the orchestrator needs. Satisfied by
// *chain.Reader.
type ProtocolReader interface {
	VerifyNetwork(ctx context.Context) error
	AccountState(ctx context.Context, account common.Address) (types.AccountState, error)
	Addresses() config.ProtocolAddresses
	ChainID() int64
}

// ReceiptWaiter polls for a transaction receipt. Satisfied by the node
// backend.
type ReceiptWaiter interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// ReceiptRecorder persists settled receipts. Optional; a nil recorder
// disables persistence.
type ReceiptRecorder interface {
	SaveReceipt(receipt types.TxReceipt) error
}

// Orchestrator runs the transaction workflows.
type Orchestrator struct {
	reader   ProtocolReader
	signer   chain.Signer
	waiter   ReceiptWaiter
	store    *appstate.Store
	sink     notify.Sink
	recorder ReceiptRecorder

	pollInterval time.Duration
	maxWait      time.Duration
}

// New wires an orchestrator. signer may be nil for a read-only deployment;
// every workflow then fails fast asking for a wallet. recorder may be nil.
func New(reader ProtocolReader, signer chain.Signer, waiter ReceiptWaiter, store *appstate.Store, sink notify.Sink, recorder ReceiptRecorder, pollInterval, maxWait time.Duration) (*Orchestrator, error) {
	if reader == nil {
		return nil, errors.New("protocol reader cannot be nil")
	}
	if waiter == nil {
		return nil, errors.New("receipt waiter cannot be nil")
	}
	if store == nil {
		return nil, errors.New("state store cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("notification sink cannot be nil")
	}
	if pollInterval <= 0 || maxWait <= 0 {
		return nil, errors.New("poll interval and max wait must be positive")
	}
	return &Orchestrator{
		reader:       reader,
		signer:       signer,
		waiter:       waiter,
		store:        store,
		sink:         sink,
		recorder:     recorder,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}, nil
}

// workflow describes one submittable transaction.
type workflow struct {
	action types.ActionType
	label  string
	to     common.Address
	data   []byte
}

// Approve grants an unlimited allowance for one approval target.
func (o *Orchestrator) Approve(ctx context.Context, target types.ApprovalTarget) (*types.TxReceipt, error) {
	addrs := o.reader.Addresses()

	var token, spender common.Address
	var action types.ActionType
	var label string

	switch target {
	case types.ApproveStaking:
		token, spender = addrs.Token, addrs.StakingHelper
		action, label = types.ActionApproveStaking, "Approve Staking"
	case types.ApproveUnstaking:
		token, spender = addrs.StakedToken, addrs.Staking
		action, label = types.ActionApproveUnstaking, "Approve Unstaking"
	case types.ApproveWrapping:
		token, spender = addrs.StakedToken, addrs.WrappedToken
		action, label = types.ActionApproveWrapping, "Approve Wrapping"
	case types.ApproveRedeem:
		token, spender = addrs.Token, addrs.Redeem
		action, label = types.ActionApproveRedeem, "Approve Redeem"
	default:
		return o.fail(fmt.Errorf("unknown approval target %q", target))
	}

	data, err := chain.PackApprove(spender)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{action: action, label: label, to: token, data: data})
}

// ApproveBond grants an unlimited reserve-token allowance to a bond contract.
func (o *Orchestrator) ApproveBond(ctx context.Context, bondName string) (*types.TxReceipt, error) {
	bond, err := config.GetBond(bondName)
	if err != nil {
		return o.fail(err)
	}
	bondAddrs, ok := bond.AddressesFor(o.reader.ChainID())
	if !ok {
		return o.fail(fmt.Errorf("bond %s is not deployed on chain %d", bondName, o.reader.ChainID()))
	}

	data, err := chain.PackApprove(bondAddrs.Bond)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ApproveBondActionType(bondName),
		label:  "Approve " + bond.DisplayName + " Bond",
		to:     bondAddrs.Reserve,
		data:   data,
	})
}

// Stake stakes SNOW through the staking helper. When the account state is
// known the balance and allowance are checked before anything is submitted;
// an unknown account defers both checks to the contract.
func (o *Orchestrator) Stake(ctx context.Context, value string) (*types.TxReceipt, error) {
	amount, err := utils.ParseAmount(value, config.TokenDecimals)
	if err != nil {
		return o.fail(err)
	}
	if o.signer == nil {
		return o.fail(chain.ErrSignerUnavailable)
	}

	if account := o.store.Account(); account != nil {
		if account.Balance(types.SymbolToken).LT(amount) {
			return o.fail(fmt.Errorf("%w: staking %s", ErrInsufficientBalance, value))
		}
		if !account.HasAllowanceFor(types.ApproveStaking, amount) {
			return o.fail(fmt.Errorf("%w: staking", ErrNotApproved))
		}
	}

	data, err := chain.PackStake(amount, o.signer.From())
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ActionStaking,
		label:  "Staking SNOW",
		to:     o.reader.Addresses().StakingHelper,
		data:   data,
	})
}

// Unstake unstakes sSNOW, triggering a rebase first.
func (o *Orchestrator) Unstake(ctx context.Context, value string) (*types.TxReceipt, error) {
	amount, err := utils.ParseAmount(value, config.TokenDecimals)
	if err != nil {
		return o.fail(err)
	}

	data, err := chain.PackUnstake(amount, true)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ActionUnstaking,
		label:  "Unstaking SNOW",
		to:     o.reader.Addresses().Staking,
		data:   data,
	})
}

// Wrap wraps sSNOW into wsSNOW.
func (o *Orchestrator) Wrap(ctx context.Context, value string) (*types.TxReceipt, error) {
	amount, err := utils.ParseAmount(value, config.TokenDecimals)
	if err != nil {
		return o.fail(err)
	}

	data, err := chain.PackWrap(amount)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ActionWrapping,
		label:  "Wrapping sSNOW",
		to:     o.reader.Addresses().WrappedToken,
		data:   data,
	})
}

// Unwrap unwraps wsSNOW back into sSNOW. The wrapper token carries 18
// decimals, unlike the staked token's 9.
func (o *Orchestrator) Unwrap(ctx context.Context, value string) (*types.TxReceipt, error) {
	amount, err := utils.ParseAmount(value, config.WrappedTokenDecimals)
	if err != nil {
		return o.fail(err)
	}

	data, err := chain.PackUnwrap(amount)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ActionUnwrapping,
		label:  "Unwrapping wsSNOW",
		to:     o.reader.Addresses().WrappedToken,
		data:   data,
	})
}

// Redeem swaps SNOW through the fixed-value redemption contract.
func (o *Orchestrator) Redeem(ctx context.Context, value string) (*types.TxReceipt, error) {
	amount, err := utils.ParseAmount(value, config.TokenDecimals)
	if err != nil {
		return o.fail(err)
	}

	data, err := chain.PackRedeemSwap(amount)
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.ActionRedeem,
		label:  "Redeeming SNOW",
		to:     o.reader.Addresses().Redeem,
		data:   data,
	})
}

// BondDeposit deposits a bond's reserve asset. maxPrice caps the accepted
// bond price, guarding against a price move between quote and execution.
func (o *Orchestrator) BondDeposit(ctx context.Context, bondName, value string, maxPrice *big.Int) (*types.TxReceipt, error) {
	bond, err := config.GetBond(bondName)
	if err != nil {
		return o.fail(err)
	}
	if !bond.IsActive {
		return o.fail(fmt.Errorf("bond %s is closed for new deposits", bondName))
	}
	bondAddrs, ok := bond.AddressesFor(o.reader.ChainID())
	if !ok {
		return o.fail(fmt.Errorf("bond %s is not deployed on chain %d", bondName, o.reader.ChainID()))
	}

	amount, err := utils.ParseAmount(value, bond.ReserveDecimals)
	if err != nil {
		return o.fail(err)
	}
	if o.signer == nil {
		return o.fail(chain.ErrSignerUnavailable)
	}

	data, err := chain.PackBondDeposit(amount, maxPrice, o.signer.From())
	if err != nil {
		return o.fail(err)
	}
	return o.execute(ctx, workflow{
		action: types.BondActionType(bondName),
		label:  "Bonding " + bond.DisplayName,
		to:     bondAddrs.Bond,
		data:   data,
	})
}

// BondRedeem claims a bond's vested payout, optionally auto-staking it.
func (o *Orchestrator) BondRedeem(ctx context.Context, bondName string, autostake bool) (*types.TxReceipt, error) {
	bond, err := config.GetBond(bondName)
	if err != nil {
		return o.fail(err)
	}
	bondAddrs, ok := bond.AddressesFor(o.reader.ChainID())
	if !ok {
		return o.fail(fmt.Errorf("bond %s is not deployed on chain %d", bondName, o.reader.ChainID()))
	}
	if o.signer == nil {
		return o.fail(chain.ErrSignerUnavailable)
	}

	data, err := chain.PackBondRedeem(o.signer.From(), autostake)
	if err != nil {
		return o.fail(err)
	}
	label := "Claiming " + bond.DisplayName
	if autostake {
		label = "Claiming and Staking " + bond.DisplayName
	}
	return o.execute(ctx, workflow{
		action: types.BondActionType(bondName) + "_redeem",
		label:  label,
		to:     bondAddrs.Bond,
		data:   data,
	})
}

// fail classifies a pre-submission failure, notifies, and returns it.
// Nothing was submitted, so there is no registry entry to clean up.
func (o *Orchestrator) fail(err error) (*types.TxReceipt, error) {
	classified := Classify(err)
	o.sink.Notify(classified.Notification())
	return nil, classified
}

// execute runs the shared transaction lifecycle for one workflow.
func (o *Orchestrator) execute(ctx context.Context, wf workflow) (*types.TxReceipt, error) {
	if o.signer == nil {
		return o.fail(chain.ErrSignerUnavailable)
	}

	// The chain-id check is the only network call allowed before the
	// duplicate guard and submission.
	if err := o.reader.VerifyNetwork(ctx); err != nil {
		return o.fail(err)
	}

	pending := o.store.Pending()
	if err := pending.Reserve(wf.action); err != nil {
		return o.fail(err)
	}

	submittedAt := time.Now().UTC()
	hash, err := o.signer.Submit(ctx, wf.to, wf.data, nil)
	if err != nil {
		pending.Release(wf.action)
		classified := Classify(err)
		o.sink.Notify(classified.Notification())
		o.record(types.TxReceipt{
			Action:      wf.action,
			Label:       wf.label,
			Outcome:     outcomeForClass(classified.Class),
			Error:       err.Error(),
			SubmittedAt: submittedAt,
			SettledAt:   time.Now().UTC(),
		})
		return nil, classified
	}

	entry, err := pending.Commit(wf.action, hash.Hex(), wf.label)
	if err != nil {
		// A duplicate hash here means the node replayed a known transaction;
		// track nothing, but keep waiting on the receipt.
		orchestratorLogger.Warn().Err(err).Str("hash", hash.Hex()).Msg("Pending entry not tracked")
		entry = types.PendingTransaction{ID: hash.Hex(), Label: wf.label, Action: wf.action, SubmittedAt: submittedAt}
	}
	tracked := false
	defer func() {
		if !tracked {
			pending.RemoveByID(entry.ID)
		}
	}()

	orchestratorLogger.Info().
		Str("action", string(wf.action)).
		Str("hash", entry.ID).
		Msg("Transaction pending")

	receipt, waitErr := o.waitForReceipt(ctx, hash)

	if waitErr != nil {
		classified := Classify(waitErr)
		o.sink.Notify(classified.Notification())

		if errors.Is(waitErr, ErrConfirmTimeout) {
			// The transaction may still settle. Keep the pending entry so
			// the action slot stays occupied and adopt the watch in the
			// background; the tracker records the final outcome.
			tracked = true
			go o.trackSettlement(hash, entry, wf, submittedAt)
			return nil, classified
		}

		result := types.TxReceipt{
			ID:          entry.ID,
			Action:      wf.action,
			Label:       wf.label,
			Outcome:     types.TxOutcomeFailed,
			Error:       waitErr.Error(),
			SubmittedAt: submittedAt,
			SettledAt:   time.Now().UTC(),
		}
		o.record(result)
		return &result, classified
	}

	result, classified := o.settle(ctx, entry, wf, submittedAt, receipt)
	if classified != nil {
		return result, classified
	}
	return result, nil
}

// settle notifies, records, and (on success) refreshes account state for a
// mined transaction.
func (o *Orchestrator) settle(ctx context.Context, entry types.PendingTransaction, wf workflow, submittedAt time.Time, receipt *coretypes.Receipt) (*types.TxReceipt, *ClassifiedError) {
	settledAt := time.Now().UTC()

	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		revertErr := fmt.Errorf("transaction %s reverted in block %d", entry.ID, receipt.BlockNumber.Uint64())
		classified := &ClassifiedError{Class: ClassContractReverted, Text: notify.MsgSomethingWrong, Cause: revertErr}
		o.sink.Notify(classified.Notification())
		result := types.TxReceipt{
			ID:          entry.ID,
			Action:      wf.action,
			Label:       wf.label,
			Outcome:     types.TxOutcomeReverted,
			Error:       revertErr.Error(),
			GasUsed:     receipt.GasUsed,
			BlockNumber: receipt.BlockNumber.Uint64(),
			SubmittedAt: submittedAt,
			SettledAt:   settledAt,
		}
		o.record(result)
		return &result, classified
	}

	o.sink.Notify(notify.Success(notify.MsgTxSubmitted))

	result := types.TxReceipt{
		ID:          entry.ID,
		Action:      wf.action,
		Label:       wf.label,
		Outcome:     types.TxOutcomeSuccess,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
		SubmittedAt: submittedAt,
		SettledAt:   settledAt,
	}
	o.record(result)

	o.refreshAccount(ctx)

	return &result, nil
}

// settlementTrackerFactor extends the confirmation wait for the background
// tracker adopting transactions that outlived the configured wait.
const settlementTrackerFactor = 10

// trackSettlement keeps watching a transaction after the configured
// confirmation wait elapsed. The pending entry stays tracked so the action
// slot is not freed while the transaction can still settle; the tracker
// removes it once the transaction mines or the extended wait runs out.
func (o *Orchestrator) trackSettlement(hash common.Hash, entry types.PendingTransaction, wf workflow, submittedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), settlementTrackerFactor*o.maxWait)
	defer cancel()
	defer o.store.Pending().RemoveByID(entry.ID)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := o.waiter.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			o.settle(ctx, entry, wf, submittedAt, receipt)
			return
		}

		select {
		case <-ctx.Done():
			o.sink.Notify(notify.Warning(notify.MsgConfirmGaveUp))
			o.record(types.TxReceipt{
				ID:          entry.ID,
				Action:      wf.action,
				Label:       wf.label,
				Outcome:     types.TxOutcomeFailed,
				Error:       fmt.Errorf("%w: %s after extended wait", ErrConfirmTimeout, entry.ID).Error(),
				SubmittedAt: submittedAt,
				SettledAt:   time.Now().UTC(),
			})
			return
		case <-ticker.C:
		}
	}
}

// waitForReceipt polls until the transaction settles, the context ends, or
// the configured wait elapses. Halfway through the wait the user is told the
// transaction is taking longer than expected.
func (o *Orchestrator) waitForReceipt(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	deadline := time.NewTimer(o.maxWait)
	defer deadline.Stop()
	escalate := time.NewTimer(o.maxWait / 2)
	defer escalate.Stop()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := o.waiter.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, hash.Hex(), o.maxWait)
		case <-escalate.C:
			o.sink.Notify(notify.Info(notify.MsgStillPending))
		case <-ticker.C:
		}
	}
}

// refreshAccount re-reads the connected account after a settled transaction.
// A failed refresh keeps the previous state in place; it never surfaces
// partial data.
func (o *Orchestrator) refreshAccount(ctx context.Context) {
	o.sink.Notify(notify.Info(notify.MsgBalanceUpdateSoon))

	seq := o.store.BeginRefresh()
	account, err := o.reader.AccountState(ctx, o.signer.From())
	if err != nil {
		orchestratorLogger.Error().Err(err).Msg("Account refresh after settlement failed")
		return
	}
	if !o.store.ApplyAccount(seq, account) {
		orchestratorLogger.Debug().Uint64("seq", seq).Msg("Discarded stale account refresh")
		return
	}

	o.sink.Notify(notify.Info(notify.MsgBalanceUpdated))
}

func (o *Orchestrator) record(receipt types.TxReceipt) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.SaveReceipt(receipt); err != nil {
		orchestratorLogger.Error().Err(err).Str("id", receipt.ID).Msg("Failed to persist receipt")
	}
}

func outcomeForClass(class ErrorClass) types.TxOutcome {
	switch class {
	case ClassUserRejected:
		return types.TxOutcomeRejected
	case ClassContractReverted:
		return types.TxOutcomeReverted
	default:
		return types.TxOutcomeFailed
	}
}
