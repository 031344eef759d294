package domain

import "errors"

// Sentinel errors shared across packages. Callers match with errors.Is; the
// HTTP layer maps them to response statuses.
var (
	// ErrZeroAmount is returned when an operation receives a nil, zero or
	// negative token amount.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrInvalidOption is returned when an option fails structural
	// validation (zero period, zero bonus, unknown deposit type).
	ErrInvalidOption = errors.New("invalid stake option")

	// ErrInactiveOption is returned when staking against an option whose
	// reward token is unset or does not match the configured reward token.
	ErrInactiveOption = errors.New("option is not active")

	// ErrWrongToken is returned when an option's reward token does not
	// match the ledger's configured reward token.
	ErrWrongToken = errors.New("reward token mismatch")

	// ErrIndexOutOfRange is returned for an option or position index that
	// does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotMatured is returned when withdrawing a position before its end
	// time.
	ErrNotMatured = errors.New("position has not matured")

	// ErrNotClaimable is returned when claiming rewards outside the
	// position's claim window.
	ErrNotClaimable = errors.New("rewards are not claimable yet")

	// ErrRewardsClaimed is returned on a second claim attempt for the same
	// position.
	ErrRewardsClaimed = errors.New("rewards already claimed")

	// ErrInsufficientBalance is returned when custody's unreserved balance
	// cannot cover a new stake's principal or rewards obligation.
	ErrInsufficientBalance = errors.New("insufficient unreserved balance")

	// ErrPaused is returned when staking into a paused token.
	ErrPaused = errors.New("staking is paused for token")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrZeroAddress is returned when an operation receives the zero
	// address where a real one is required.
	ErrZeroAddress = errors.New("zero address")

	// ErrReservationUnderflow indicates ledger corruption: a release larger
	// than the outstanding reservation. Never recoverable by the caller.
	ErrReservationUnderflow = errors.New("reservation release exceeds reserved balance")

	// ErrTransferFailed is returned when the token collaborator rejects or
	// fails a transfer.
	ErrTransferFailed = errors.New("token transfer failed")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLockHeld is returned when the distributed lock is already held.
	ErrLockHeld = errors.New("lock already held")
)
