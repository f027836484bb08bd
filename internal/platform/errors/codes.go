package errors

import (
	stderrors "errors"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified error.
	CodeUnknown Code = "UNKNOWN"

	// Replay errors
	CodeGameNotFound        Code = "GAME_NOT_FOUND"
	CodePlayNotFound        Code = "PLAY_NOT_FOUND"
	CodeLineupNotFound      Code = "LINEUP_NOT_FOUND"
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeStaleSession        Code = "SESSION_STALE_PLAY_INDEX"
	CodeLineupIncomplete    Code = "LINEUP_DATA_INCOMPLETE"
	CodePlayIndexInvalid    Code = "PLAY_INDEX_INVALID"
	CodeGameIDEmpty         Code = "GAME_ID_EMPTY"
	CodeSessionIDEmpty      Code = "SESSION_ID_EMPTY"
	CodeSnapshotConflict    Code = "SNAPSHOT_ALREADY_APPENDED"
	CodeBattingOrderInvalid Code = "BATTING_ORDER_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodePlayIndexInvalid,
		CodeGameIDEmpty,
		CodeSessionIDEmpty,
		CodeBattingOrderInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the operation
	case CodeStaleSession,
		CodeSnapshotConflict,
		CodeLineupIncomplete:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist, including end-of-game
	case CodeGameNotFound,
		CodePlayNotFound,
		CodeLineupNotFound,
		CodeSessionNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}

// GetCode extracts the error code from any error, returning CodeUnknown for
// errors outside the domain type.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks whether the error carries the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}
