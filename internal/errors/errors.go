package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a brevis error code.
type ErrorCode string

const (
	ErrMissingFile         ErrorCode = "MISSING_FILE"         // corpus/vocabulary/checkpoint path absent
	ErrMalformedCorpus     ErrorCode = "MALFORMED_CORPUS"     // JSON or tab-format violation
	ErrCorpusEmpty         ErrorCode = "CORPUS_EMPTY"         // zero tokens or lines
	ErrShapeMismatch       ErrorCode = "SHAPE_MISMATCH"       // checkpoint shape triple mismatch
	ErrMalformedCheckpoint ErrorCode = "MALFORMED_CHECKPOINT" // unreadable parameter blob
	ErrTrainingStep        ErrorCode = "TRAINING_STEP"        // forward/backward failure, fatal
	ErrFetchFailed         ErrorCode = "FETCH_FAILED"         // transport or extraction failure
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrNotInitialized      ErrorCode = "NOT_INITIALIZED"
	ErrInternal            ErrorCode = "INTERNAL"
)

// Error is a structured error carrying a code, a message and optional details.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewMissingFile creates an error for an absent corpus, vocabulary or checkpoint path.
func NewMissingFile(path string, err error) *Error {
	return &Error{
		Code:    ErrMissingFile,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewMalformedCorpus creates an error for a format violation in path.
// line is 1-based; zero means the position is unknown.
func NewMalformedCorpus(path string, line int, reason string) *Error {
	details := map[string]any{"path": path}
	msg := fmt.Sprintf("%s: %s", path, reason)
	if line > 0 {
		details["line"] = line
		msg = fmt.Sprintf("%s:%d: %s", path, line, reason)
	}
	return &Error{
		Code:    ErrMalformedCorpus,
		Message: msg,
		Details: details,
	}
}

// NewCorpusEmpty creates an error for input that produced nothing to process.
func NewCorpusEmpty(what string) *Error {
	return &Error{
		Code:    ErrCorpusEmpty,
		Message: fmt.Sprintf("%s is empty", what),
		Details: map[string]any{"what": what},
	}
}

// NewShapeMismatch creates an error for a checkpoint whose parameter shapes differ
// from the requested ones.
func NewShapeMismatch(param string, wantRows, wantCols, gotRows, gotCols int) *Error {
	return &Error{
		Code: ErrShapeMismatch,
		Message: fmt.Sprintf("parameter %s: want %dx%d, got %dx%d",
			param, wantRows, wantCols, gotRows, gotCols),
		Details: map[string]any{
			"param": param,
			"want":  [2]int{wantRows, wantCols},
			"got":   [2]int{gotRows, gotCols},
		},
	}
}

// NewMalformedCheckpoint creates an error for a checkpoint blob that cannot be decoded.
func NewMalformedCheckpoint(path string, err error) *Error {
	return &Error{
		Code:    ErrMalformedCheckpoint,
		Message: fmt.Sprintf("cannot decode checkpoint %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewTrainingStep creates the fatal error raised when a training or validation
// step fails.
func NewTrainingStep(epoch, step int, phase string, err error) *Error {
	return &Error{
		Code:    ErrTrainingStep,
		Message: fmt.Sprintf("%s step %d of epoch %d failed", phase, step, epoch),
		Details: map[string]any{"epoch": epoch, "step": step, "phase": phase},
		Err:     err,
	}
}

// NewFetchFailed creates an error for a URL that could not be fetched or parsed.
func NewFetchFailed(url string, err error) *Error {
	return &Error{
		Code:    ErrFetchFailed,
		Message: fmt.Sprintf("error fetching the URL %s", url),
		Details: map[string]any{"url": url},
		Err:     err,
	}
}

// NewInvalidInput creates an error for unusable caller input.
func NewInvalidInput(msg string) *Error {
	return &Error{
		Code:    ErrInvalidInput,
		Message: msg,
	}
}

// NewNotInitialized creates an error for a service used outside its lifecycle.
func NewNotInitialized(msg string) *Error {
	return &Error{
		Code:    ErrNotInitialized,
		Message: msg,
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is reports whether err, or any error it wraps, is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
