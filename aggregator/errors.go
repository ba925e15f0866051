package aggregator

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace scopes the error codes surfaced as a failed call's reason.
const Codespace = "ocr2aggregator"

// Every failed entry point returns one of these (possibly wrapped with
// context); state is left untouched.
var (
	// Access control
	ErrUnauthorized = errorsmod.Register(Codespace, 2, "unauthorized")

	// Configuration
	ErrInvalidConfig = errorsmod.Register(Codespace, 3, "invalid config")

	// Replay and ordering
	ErrStaleConfig = errorsmod.Register(Codespace, 4, "stale config digest")
	ErrStaleReport = errorsmod.Register(Codespace, 5, "stale report")

	// Quorum verification
	ErrInsufficientSignatures = errorsmod.Register(Codespace, 6, "insufficient signatures")
	ErrUnknownSigner          = errorsmod.Register(Codespace, 7, "unknown signer")
	ErrDuplicateSigner        = errorsmod.Register(Codespace, 8, "duplicate signer")
	ErrInvalidSignature       = errorsmod.Register(Codespace, 9, "invalid signature")
	ErrInvalidReport          = errorsmod.Register(Codespace, 10, "invalid report")

	// Payee bookkeeping
	ErrPayeeAlreadySet = errorsmod.Register(Codespace, 11, "payee already set")
	ErrInvalidTransfer = errorsmod.Register(Codespace, 12, "invalid transfer")
	ErrLengthMismatch  = errorsmod.Register(Codespace, 13, "length mismatch")

	// Queries
	ErrNoData = errorsmod.Register(Codespace, 14, "no data present")
)
