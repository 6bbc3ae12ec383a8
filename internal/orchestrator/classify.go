/*

This file contains the error classifier for transaction workflows. Every
failure that reaches the orchestrator boundary is mapped to one class and a
human-readable display text; the raw cause travels alongside and is never
discarded. Unmapped failures fall back to a generic message rather than
leaking node internals at the user.

*/

package orchestrator

import (
	"errors"
	"strings"

	"github.com/snowbound-dao/sdm/internal/chain"
	"github.com/snowbound-dao/sdm/internal/notify"
	"github.com/snowbound-dao/sdm/internal/registry"
	"github.com/snowbound-dao/sdm/internal/utils"
)

// ErrUserRejected is reported by signers when the user declines to sign.
var ErrUserRejected = errors.New("user denied transaction signature")

// ErrNotApproved is returned when a workflow needs a spending allowance the
// account has not granted yet.
var ErrNotApproved = errors.New("spending allowance not granted")

// ErrInsufficientBalance is returned when the requested amount exceeds the
// account's known balance.
var ErrInsufficientBalance = errors.New("balance too low for requested amount")

// ErrorClass is the terminal classification of a workflow failure.
type ErrorClass string

const (
	ClassInvalidAmount       ErrorClass = "invalid_amount"
	ClassNotApproved         ErrorClass = "not_approved"
	ClassInsufficientBalance ErrorClass = "insufficient_balance"
	ClassWrongNetwork        ErrorClass = "wrong_network"
	ClassProviderUnavailable ErrorClass = "provider_unavailable"
	ClassDuplicateAction     ErrorClass = "duplicate_action"
	ClassUserRejected        ErrorClass = "user_rejected"
	ClassContractReverted    ErrorClass = "contract_reverted"
	ClassConfirmTimeout      ErrorClass = "confirm_timeout"
	ClassChainRead           ErrorClass = "chain_read"
	ClassUnknown             ErrorClass = "unknown"
)

// ClassifiedError pairs a workflow failure with its class and display text.
type ClassifiedError struct {
	Class ErrorClass
	// Text is what the user sees.
	Text string
	// Cause is the raw underlying error, preserved for diagnostics.
	Cause error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return string(e.Class) + ": " + e.Cause.Error()
	}
	return string(e.Class) + ": " + e.Text
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// Notification renders the classified error for the notification sink.
// Duplicate submissions and network problems are warnings the user can act
// on; everything else is an error.
func (e *ClassifiedError) Notification() notify.Notification {
	switch e.Class {
	case ClassDuplicateAction, ClassWrongNetwork, ClassProviderUnavailable, ClassInvalidAmount,
		ClassNotApproved, ClassInsufficientBalance, ClassConfirmTimeout:
		n := notify.Warning(e.Text)
		if e.Cause != nil {
			n.Cause = e.Cause.Error()
		}
		return n
	default:
		return notify.Error(e.Text, e.Cause)
	}
}

// Classify maps a raw workflow failure to its class and display text.
func Classify(err error) *ClassifiedError {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, utils.ErrInvalidAmount), errors.Is(err, utils.ErrInvalidPrecision):
		return &ClassifiedError{Class: ClassInvalidAmount, Text: "Please enter a valid amount", Cause: err}

	case errors.Is(err, ErrNotApproved):
		return &ClassifiedError{Class: ClassNotApproved, Text: notify.MsgApproveBeforeStake, Cause: err}

	case errors.Is(err, ErrInsufficientBalance):
		return &ClassifiedError{Class: ClassInsufficientBalance, Text: notify.MsgInsufficientFunds, Cause: err}

	case errors.Is(err, ErrConfirmTimeout):
		return &ClassifiedError{Class: ClassConfirmTimeout, Text: notify.MsgStillPending, Cause: err}

	case errors.Is(err, chain.ErrWrongNetwork):
		return &ClassifiedError{Class: ClassWrongNetwork, Text: notify.MsgSwitchNetwork, Cause: err}

	case errors.Is(err, chain.ErrProviderUnavailable), errors.Is(err, chain.ErrSignerUnavailable):
		return &ClassifiedError{Class: ClassProviderUnavailable, Text: notify.MsgConnectWallet, Cause: err}

	case errors.Is(err, registry.ErrActionInFlight):
		return &ClassifiedError{Class: ClassDuplicateAction, Text: notify.MsgExistingAction, Cause: err}

	case errors.Is(err, ErrUserRejected),
		strings.Contains(err.Error(), "User denied transaction signature"):
		return &ClassifiedError{Class: ClassUserRejected, Text: notify.MsgUserDenied, Cause: err}

	case errors.Is(err, chain.ErrChainRead):
		return &ClassifiedError{Class: ClassChainRead, Text: notify.MsgSomethingWrong, Cause: err}
	}

	if text, ok := revertReason(err); ok {
		return &ClassifiedError{Class: ClassContractReverted, Text: text, Cause: err}
	}

	return &ClassifiedError{Class: ClassUnknown, Text: notify.MsgSomethingWrong, Cause: err}
}

// revertReason maps known revert messages to dashboard copy. Unknown revert
// texts are surfaced trimmed of the node's "execution reverted:" prefix.
func revertReason(err error) (string, bool) {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "ds-math-sub-underflow"):
		return notify.MsgBondOverBalance, true
	case strings.Contains(msg, "Bond too small"):
		return notify.MsgBondTooSmall, true
	case strings.Contains(msg, "gas required exceeds allowance"):
		return notify.MsgInsufficientFunds, true
	case strings.Contains(msg, "insufficient funds"):
		return notify.MsgInsufficientFunds, true
	}

	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len("execution reverted"):], ":"))
		if reason != "" {
			return reason, true
		}
		return notify.MsgSomethingWrong, true
	}

	return "", false
}
