package gig

import "errors"

var (
	ErrAlreadyInitialized = errors.New("gig: already initialized")
	ErrNotInitialized     = errors.New("gig: not initialized")
	ErrInvalidAmount      = errors.New("gig: amount must be positive")
	ErrEscrowClosed       = errors.New("gig: escrow closed for deposits")
	ErrEscrowOpen         = errors.New("gig: escrow still open")
	ErrNotAuthorized      = errors.New("gig: only the provider may claim")
	ErrAlreadyClaimed     = errors.New("gig: provider already claimed")
	ErrGigOver            = errors.New("gig: gig over")
	ErrInvalidRating      = errors.New("gig: rating must be between 0 and 5")
	ErrDivisionByZero     = errors.New("gig: refund divisor is zero")
	ErrInvalidToken       = errors.New("gig: token symbol required")
	ErrVaultAccount       = errors.New("gig: vault account cannot hold a ledger entry")

	errNilStore  = errors.New("gig: storage not configured")
	errNilTokens = errors.New("gig: token registry not configured")
)
