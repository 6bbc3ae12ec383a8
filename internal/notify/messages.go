package notify

// Display texts for the notifications the workflows emit. Kept in one place
// so the dashboard copy stays consistent across workflows.
const (
	MsgTxSubmitted        = "Your transaction was successfully sent"
	MsgBalanceUpdated     = "Your balance was successfully updated"
	MsgBalanceUpdateSoon  = "Your balance will be updated soon"
	MsgSomethingWrong     = "Something went wrong"
	MsgSwitchNetwork      = "Please switch to the Avalanche network"
	MsgConnectWallet      = "Please connect your wallet"
	MsgExistingAction     = "A transaction for this action is already pending"
	MsgUserDenied         = "You denied the transaction signature"
	MsgInsufficientFunds  = "Insufficient balance to cover this transaction"
	MsgBondTooSmall       = "Bond too small"
	MsgBondOverBalance    = "You are trying to bond more than your balance"
	MsgStillPending       = "Your transaction is taking longer than expected"
	MsgConfirmGaveUp      = "Stopped waiting for confirmation; the transaction may still settle"
	MsgApproveBeforeStake = "Please approve staking before you stake"
)
