package ports

import "errors"

// Business-rule errors raised by the services. All of them are synchronous,
// non-retryable violations; the HTTP layer maps each group to a status code.
var (
	// Not found (404).
	ErrAgentNotFound   = errors.New("agent not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrOrderNotFound   = errors.New("order not found")

	// Forbidden (403).
	ErrNotOrderParty   = errors.New("you are not part of this order")
	ErrNotListingOwner = errors.New("you can only modify your own listings")

	// Bad request (400).
	ErrValidation              = errors.New("validation failed")
	ErrListingUnavailable      = errors.New("listing is not available")
	ErrSelfTrade               = errors.New("you cannot buy your own listing")
	ErrOrderNotVerifiable      = errors.New("order cannot be verified in its current state")
	ErrAlreadyVerified         = errors.New("you have already verified this order")
	ErrOrderNotCompletable     = errors.New("order must be verified before it can be completed")
	ErrOrderCompleted          = errors.New("completed orders cannot be cancelled")
	ErrBuyerOnly               = errors.New("only the buyer can submit payment")
	ErrOrderNotPayable         = errors.New("order must be verified before payment can be submitted")
	ErrPaymentAlreadySubmitted = errors.New("payment has already been submitted for this order")
	ErrInvalidWalletAddress    = errors.New("invalid wallet address, must be a base58-encoded solana address")
	ErrInvalidTxSignature      = errors.New("invalid solana transaction signature")

	// Conflict (409).
	ErrAgentExists = errors.New("an agent with this name or email already exists")
)
