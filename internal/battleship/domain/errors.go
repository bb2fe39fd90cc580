package domain

import apperrors "github.com/louisbranch/broadside/internal/platform/errors"

// Sentinel errors for every way an operation can be rejected. All are
// terminal for the triggering call: the engine never retries and persists
// nothing when one of these is returned.
var (
	// ErrInvalidShips indicates a non-positive ship count at instantiation.
	ErrInvalidShips = apperrors.New(apperrors.CodeInvalidShips, "invalid number of ships")
	// ErrInvalidStake indicates unequal or below-minimum stakes.
	ErrInvalidStake = apperrors.New(apperrors.CodeInvalidStake, "invalid stake amount")
	// ErrGameStarted indicates begin was called on a running game.
	ErrGameStarted = apperrors.New(apperrors.CodeGameStarted, "game has already started")
	// ErrGameNotStarted indicates play before begin.
	ErrGameNotStarted = apperrors.New(apperrors.CodeGameNotStarted, "game not started")
	// ErrGameFinished indicates any operation after the game ended.
	ErrGameFinished = apperrors.New(apperrors.CodeGameFinished, "game is over")
	// ErrUnauthorized indicates the caller is not allowed to perform the
	// operation.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "unauthorized access")
	// ErrWrongTurn indicates a reveal by the player not on turn.
	ErrWrongTurn = apperrors.New(apperrors.CodeWrongTurn, "wrong player to play")
	// ErrTurnExpired indicates the reveal clock ran out; the move is blocked
	// but the game is not finished by this check alone.
	ErrTurnExpired = apperrors.New(apperrors.CodeTurnExpired, "turn expired")
	// ErrTurnNotExpired indicates a forfeit claim before the clock ran out.
	ErrTurnNotExpired = apperrors.New(apperrors.CodeTurnNotExpired, "turn not expired")
	// ErrPlayerNotFound indicates fewer than two registered players. This is
	// an invariant violation, not an expected user error.
	ErrPlayerNotFound = apperrors.New(apperrors.CodePlayerNotFound, "player not found")
	// ErrInvalidProof indicates the authentication path does not recompute
	// the opponent's commitment.
	ErrInvalidProof = apperrors.New(apperrors.CodeInvalidProof, "invalid proof")
	// ErrAlreadySunk indicates a reveal on a cell already proven as a hit.
	ErrAlreadySunk = apperrors.New(apperrors.CodeAlreadySunk, "already sunk")
	// ErrOverflow indicates settlement arithmetic exceeded the amount range.
	ErrOverflow = apperrors.New(apperrors.CodeOverflow, "overflow during settlement arithmetic")
)
