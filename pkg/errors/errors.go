// Package errors provides the coded errors shared by every exprtrail package.
//
// An [Error] pairs a machine-readable [Code] with a message and an optional
// cause. Codes fall into a small number of classes that callers branch on
// instead of listing codes:
//
//   - [ClassInput]: the caller sent something unusable (a bad flag, format,
//     path or document) and can fix it
//   - [ClassContract]: the node collection broke its structural contract
//     (MALFORMED_GRAPH, DUPLICATE_ID)
//   - [ClassInvariant]: reconciliation violated one of its own guarantees
//     (ID_COLLISION, MISSING_LOOKUP)
//   - [ClassLookup]: a document or step does not exist
//   - [ClassInternal]: everything else
//
// Contract and invariant errors are fatal: the node collection is trusted
// machine-generated input, so such a failure is a defect in the producer or
// in the engine, and is never retried or degraded.
//
//	err := errors.New(errors.ErrCodeMalformedGraph, "node %q references missing child %q", parent, child)
//	if errors.IsFatal(err) {
//	    // abort rendering this document
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeUnsupported     Code = "UNSUPPORTED"

	ErrCodeMalformedGraph Code = "MALFORMED_GRAPH"
	ErrCodeDuplicateID    Code = "DUPLICATE_ID"

	ErrCodeIDCollision   Code = "ID_COLLISION"
	ErrCodeMissingLookup Code = "MISSING_LOOKUP"

	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeStepOutOfRange Code = "STEP_OUT_OF_RANGE"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Class groups codes by who is at fault and what a caller can do about it.
type Class int

const (
	ClassInternal Class = iota
	ClassInput
	ClassContract
	ClassInvariant
	ClassLookup
)

var classes = map[Code]Class{
	ErrCodeInvalidInput:    ClassInput,
	ErrCodeInvalidFormat:   ClassInput,
	ErrCodeInvalidDocument: ClassInput,
	ErrCodeInvalidPath:     ClassInput,
	ErrCodeUnsupported:     ClassInput,
	ErrCodeMalformedGraph:  ClassContract,
	ErrCodeDuplicateID:     ClassContract,
	ErrCodeIDCollision:     ClassInvariant,
	ErrCodeMissingLookup:   ClassInvariant,
	ErrCodeNotFound:        ClassLookup,
	ErrCodeStepOutOfRange:  ClassLookup,
}

// Class returns the class of c. Unknown codes are internal.
func (c Code) Class() Class {
	return classes[c]
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of err's code. Uncoded errors are internal.
func ClassOf(err error) Class {
	return GetCode(err).Class()
}

// IsFatal reports whether err is a contract or invariant violation. Callers
// must not retry such errors.
func IsFatal(err error) bool {
	switch ClassOf(err) {
	case ClassContract, ClassInvariant:
		return true
	}
	return false
}

// UserMessage returns the message of a coded error without its code prefix,
// or err.Error() for anything else.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
