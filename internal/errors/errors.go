package errors

import "fmt"

// ErrorCode represents a kanasub error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrFormat         ErrorCode = "FORMAT_ERROR"    // 422: malformed SRT input
	ErrRuleFile       ErrorCode = "RULE_FILE_ERROR" // 422: malformed rule file
	ErrPipeline       ErrorCode = "PIPELINE_ERROR"  // 502: batch rewrite failed
	ErrOracle         ErrorCode = "ORACLE_ERROR"    // 502: rewrite backend failure
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewFormat creates a 422 error for a malformed SRT document. block is the
// zero-based position of the offending block in the input.
func NewFormat(block int, msg string) *Error {
	return &Error{
		Code:    ErrFormat,
		Status:  422,
		Message: fmt.Sprintf("malformed SRT block %d: %s", block, msg),
		Details: map[string]any{"block": block},
	}
}

// NewRuleFile creates a 422 error for a malformed rule file.
func NewRuleFile(path string, err error) *Error {
	return &Error{
		Code:    ErrRuleFile,
		Status:  422,
		Message: fmt.Sprintf("malformed rule file %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}

// NewPipeline creates a 502 error for a failed rewrite batch. The cue range
// identifies which cues were left unmodified so the batch can be re-run.
func NewPipeline(batch, cueStart, cueEnd int, err error) *Error {
	return &Error{
		Code:    ErrPipeline,
		Status:  502,
		Message: fmt.Sprintf("batch %d (cues %d-%d) failed: %v", batch, cueStart, cueEnd, err),
		Details: map[string]any{
			"batch":     batch,
			"cue_start": cueStart,
			"cue_end":   cueEnd,
		},
	}
}

// NewOracle creates a 502 error for a rewrite backend failure.
func NewOracle(err error) *Error {
	return &Error{
		Code:    ErrOracle,
		Status:  502,
		Message: err.Error(),
	}
}

// NewNotFound creates a 404 error for a missing file or record.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an Error with the given code.
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
