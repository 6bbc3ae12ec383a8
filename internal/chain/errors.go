package chain

import "errors"

// Error definitions for zero-tolerance error handling. A read error always
// discards the whole snapshot under construction; callers never see partial
// protocol state.
var (
	ErrProviderUnavailable = errors.New("chain provider is unavailable")
	ErrWrongNetwork        = errors.New("connected to the wrong network")
	ErrChainRead           = errors.New("chain read failed")
	ErrSignerUnavailable   = errors.New("no signing key configured")
	ErrSubmitFailed        = errors.New("transaction submission failed")
)
