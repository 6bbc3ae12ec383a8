package orchestrator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowbound-dao/sdm/internal/chain"
	"github.com/snowbound-dao/sdm/internal/notify"
	"github.com/snowbound-dao/sdm/internal/registry"
	"github.com/snowbound-dao/sdm/internal/utils"
)

func TestClassifySentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
		text string
	}{
		{"invalid amount", fmt.Errorf("%w: empty input", utils.ErrInvalidAmount), ClassInvalidAmount, "Please enter a valid amount"},
		{"not approved", fmt.Errorf("%w: staking", ErrNotApproved), ClassNotApproved, notify.MsgApproveBeforeStake},
		{"insufficient balance", fmt.Errorf("%w: staking 5", ErrInsufficientBalance), ClassInsufficientBalance, notify.MsgInsufficientFunds},
		{"confirm timeout", fmt.Errorf("%w: 0xabc after 1m0s", ErrConfirmTimeout), ClassConfirmTimeout, notify.MsgStillPending},
		{"wrong network", fmt.Errorf("%w: expected 43114, got 1", chain.ErrWrongNetwork), ClassWrongNetwork, notify.MsgSwitchNetwork},
		{"provider down", chain.ErrProviderUnavailable, ClassProviderUnavailable, notify.MsgConnectWallet},
		{"no signer", chain.ErrSignerUnavailable, ClassProviderUnavailable, notify.MsgConnectWallet},
		{"duplicate", fmt.Errorf("%w: staking", registry.ErrActionInFlight), ClassDuplicateAction, notify.MsgExistingAction},
		{"user rejected", fmt.Errorf("signing failed: %w", ErrUserRejected), ClassUserRejected, notify.MsgUserDenied},
		{"chain read", errors.Join(chain.ErrChainRead, errors.New("boom")), ClassChainRead, notify.MsgSomethingWrong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Class)
			assert.Equal(t, tc.text, got.Text)
			// The raw cause is always preserved.
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyRevertReasons(t *testing.T) {
	cases := []struct {
		name string
		err  error
		text string
	}{
		{"bond over balance", errors.New("execution reverted: ds-math-sub-underflow"), notify.MsgBondOverBalance},
		{"bond too small", errors.New("execution reverted: Bond too small"), notify.MsgBondTooSmall},
		{"gas allowance", errors.New("gas required exceeds allowance (21000)"), notify.MsgInsufficientFunds},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), notify.MsgInsufficientFunds},
		{"named reason", errors.New("execution reverted: SafeERC20: low-level call failed"), "SafeERC20: low-level call failed"},
		{"bare revert", errors.New("execution reverted"), notify.MsgSomethingWrong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, ClassContractReverted, got.Class)
			assert.Equal(t, tc.text, got.Text)
		})
	}
}

func TestClassifyMetamaskStyleRejection(t *testing.T) {
	got := Classify(errors.New("code 4001: User denied transaction signature"))
	require.NotNil(t, got)
	assert.Equal(t, ClassUserRejected, got.Class)
	assert.Equal(t, notify.MsgUserDenied, got.Text)
}

func TestClassifyUnknownFallsBack(t *testing.T) {
	cause := errors.New("weird node hiccup")
	got := Classify(cause)
	require.NotNil(t, got)
	assert.Equal(t, ClassUnknown, got.Class)
	assert.Equal(t, notify.MsgSomethingWrong, got.Text)
	assert.Equal(t, cause.Error(), got.Cause.Error())
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestNotificationSeverities(t *testing.T) {
	warning := Classify(fmt.Errorf("%w: staking", registry.ErrActionInFlight)).Notification()
	assert.Equal(t, notify.SeverityWarning, warning.Severity)

	// Pre-submission gate failures and the timeout handoff are actionable,
	// not fatal.
	for _, err := range []error{ErrNotApproved, ErrInsufficientBalance, ErrConfirmTimeout} {
		assert.Equal(t, notify.SeverityWarning, Classify(err).Notification().Severity)
	}

	failure := Classify(errors.New("execution reverted: Bond too small")).Notification()
	assert.Equal(t, notify.SeverityError, failure.Severity)
	assert.NotEmpty(t, failure.Cause)
}
