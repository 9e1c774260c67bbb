package transaction

import "errors"

var (
	ErrEstimationUnavailable = errors.New("priority fee estimate unavailable")
	ErrRelayRejected         = errors.New("relay rejected transaction")
	ErrRelayAuth             = errors.New("relay authorization failed")
	ErrConfirmationTimeout   = errors.New("confirmation timed out")
	ErrBlockhashExpired      = errors.New("blockhash expired before confirmation")
	ErrTransactionFailed     = errors.New("transaction failed on chain")
	ErrBundleNotLanded       = errors.New("bundle did not land")
	ErrUnknownChannel        = errors.New("unknown submission channel")
	ErrNoSigner              = errors.New("no signer for required key")
)
