package domain

import "errors"

// Validation failures, rejected before any state is touched.
var (
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrSymbolTooLong       = errors.New("symbol too long")
	ErrInvalidDeadlines    = errors.New("invalid deadline configuration")
	ErrZeroStake           = errors.New("stake amount must be greater than zero")
	ErrStakeBelowMinimum   = errors.New("stake amount below topic minimum")
	ErrDuplicateCommitment = errors.New("participant already committed to this topic")
)

// Phase failures: the instruction is valid but the topic is not in the
// right state or window for it.
var (
	ErrCommitPhaseEnded    = errors.New("commit phase has ended")
	ErrCommitPhaseNotEnded = errors.New("commit phase has not ended yet")
	ErrRevealPhaseEnded    = errors.New("reveal phase has ended")
	ErrRevealPhaseNotEnded = errors.New("reveal phase has not ended yet")
	ErrAlreadyRevealed     = errors.New("commitment already revealed")
	ErrAlreadyFinalized    = errors.New("topic already finalized")
	ErrAlreadySettled      = errors.New("topic already settled")
	ErrInvalidTopicState   = errors.New("topic is not in the correct state for this operation")
)

// Integrity failures.
var (
	ErrHashMismatch       = errors.New("commitment hash does not match revealed values")
	ErrUnknownParticipant = errors.New("no commitment exists for participant")
	ErrPartialSettlement  = errors.New("settlement must cover every commitment")
	ErrArithmeticOverflow = errors.New("arithmetic overflow in value computation")
)

// Authorization failures.
var (
	ErrUnauthorizedOracle    = errors.New("only the truth authority can finalize")
	ErrUnauthorizedAuthority = errors.New("only the topic creator or truth authority can settle")
	ErrInvalidSignature      = errors.New("instruction signature verification failed")
)

// Infrastructure sentinels shared by stores, caches, and locks.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
)
