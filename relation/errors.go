package relation

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes relation errors.
type ErrorCode string

const (
	// CodeInvalidJoinSpec indicates a join was given conflicting or missing keys.
	CodeInvalidJoinSpec ErrorCode = "INVALID_JOIN_SPEC"

	// CodeUnsupportedJoinKind indicates a join kind outside inner/left/right/outer.
	CodeUnsupportedJoinKind ErrorCode = "UNSUPPORTED_JOIN_KIND"

	// CodeUnsupportedAggregation indicates a reducer other than sum or mean.
	CodeUnsupportedAggregation ErrorCode = "UNSUPPORTED_AGGREGATION"

	// CodeInvalidPartitionKey indicates a calendar part other than year/month/day.
	CodeInvalidPartitionKey ErrorCode = "INVALID_PARTITION_KEY"

	// CodeTypeMismatch indicates a cell could not be read or converted as the requested type.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodeUnknownColumn indicates a referenced column does not exist.
	CodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"

	// CodeInvalidRelation indicates malformed construction input.
	CodeInvalidRelation ErrorCode = "INVALID_RELATION"

	// CodeFunctionFailed indicates a caller-supplied function returned an error.
	CodeFunctionFailed ErrorCode = "FUNCTION_FAILED"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrInvalidJoinSpec        = &Error{Code: CodeInvalidJoinSpec}
	ErrUnsupportedJoinKind    = &Error{Code: CodeUnsupportedJoinKind}
	ErrUnsupportedAggregation = &Error{Code: CodeUnsupportedAggregation}
	ErrInvalidPartitionKey    = &Error{Code: CodeInvalidPartitionKey}
	ErrTypeMismatch           = &Error{Code: CodeTypeMismatch}
	ErrUnknownColumn          = &Error{Code: CodeUnknownColumn}
	ErrInvalidRelation        = &Error{Code: CodeInvalidRelation}
	ErrFunctionFailed         = &Error{Code: CodeFunctionFailed}
)

// Error is returned by every relation operator.
//
// Callers branch on Code (or errors.Is against the Err* sentinels) rather
// than on message text.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operator that failed, e.g. "join" or "cast".
	Op string

	// Column is the offending column, when there is one.
	Column string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s (column %q)", msg, e.Column)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of err if it is (or wraps) an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func unknownColumn(op, column string) error {
	return &Error{Code: CodeUnknownColumn, Op: op, Column: column, Message: "column not found"}
}

func typeMismatch(op, column string, format string, args ...interface{}) error {
	return &Error{Code: CodeTypeMismatch, Op: op, Column: column, Message: fmt.Sprintf(format, args...)}
}
