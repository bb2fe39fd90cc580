// Package errors provides structured error handling for the engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Transport errors
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Instantiation errors
	CodeInvalidShips Code = "INVALID_SHIPS"
	CodeInvalidStake Code = "INVALID_STAKE"

	// Phase errors
	CodeGameStarted    Code = "GAME_STARTED"
	CodeGameNotStarted Code = "GAME_NOT_STARTED"
	CodeGameFinished   Code = "GAME_FINISHED"

	// Turn errors
	CodeWrongTurn      Code = "WRONG_TURN"
	CodeTurnExpired    Code = "TURN_EXPIRED"
	CodeTurnNotExpired Code = "TURN_NOT_EXPIRED"

	// Access errors
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodePlayerNotFound Code = "PLAYER_NOT_FOUND"

	// Reveal errors
	CodeInvalidProof Code = "INVALID_PROOF"
	CodeAlreadySunk  Code = "ALREADY_SUNK"

	// Settlement errors
	CodeOverflow Code = "OVERFLOW"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeStorage  Code = "STORAGE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidRequest,
		CodeInvalidShips,
		CodeInvalidStake,
		CodeInvalidProof:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeGameStarted,
		CodeGameNotStarted,
		CodeGameFinished,
		CodeWrongTurn,
		CodeTurnExpired,
		CodeTurnNotExpired,
		CodeAlreadySunk:
		return codes.FailedPrecondition

	// PermissionDenied - caller is not allowed to perform the operation
	case CodeUnauthorized:
		return codes.PermissionDenied

	// NotFound - missing records
	case CodeNotFound:
		return codes.NotFound

	// Internal - invariant violations and substrate failures
	case CodePlayerNotFound,
		CodeOverflow,
		CodeStorage:
		return codes.Internal

	default:
		return codes.Unknown
	}
}
