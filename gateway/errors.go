package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryParameter matches every *ParameterError.
	ErrQueryParameter = errors.New("query parameter error")

	// ErrQueryExecution matches every *ExecutionError.
	ErrQueryExecution = errors.New("query execution failed")
)

// ParameterError reports a placeholder that could not be substituted.
type ParameterError struct {
	// Name is the placeholder name, empty for malformed syntax.
	Name string
	// Offset is the byte offset of the placeholder in the query.
	Offset  int
	Message string
}

func (e *ParameterError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("query parameter at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("query parameter {%s}: %s", e.Name, e.Message)
}

// Is reports whether target is ErrQueryParameter.
func (e *ParameterError) Is(target error) bool {
	return target == ErrQueryParameter
}

// ExecutionError wraps a failure reported by the engine.
type ExecutionError struct {
	Database string
	Query    string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Database == "" {
		return fmt.Sprintf("execute query: %v", e.Err)
	}
	return fmt.Sprintf("execute query in %s: %v", e.Database, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrQueryExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrQueryExecution
}
