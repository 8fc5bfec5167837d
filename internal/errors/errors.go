package errors

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeNotWritable  ErrorType = "NOT_WRITABLE"
	ErrorTypeEncoding     ErrorType = "ENCODING"
	ErrorTypeSizeExceeded ErrorType = "SIZE_EXCEEDED"
	ErrorTypeTimeout      ErrorType = "TIMEOUT"
	ErrorTypeIO           ErrorType = "IO"
)

// Error carries the failure kind plus the path or identifier that
// triggered it, so every surfaced failure names its subject.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidInput(message string) *Error {
	return &Error{Type: ErrorTypeInvalidInput, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message}
}

func NotWritable(target, message string) *Error {
	return &Error{Type: ErrorTypeNotWritable, Message: message, Path: target}
}

func Encoding(path string) *Error {
	return &Error{Type: ErrorTypeEncoding, Message: "binary content cannot be diffed as text", Path: path}
}

func SizeExceeded(path string, size, limit int64) *Error {
	return &Error{
		Type:    ErrorTypeSizeExceeded,
		Message: fmt.Sprintf("file is %d bytes, diff limit is %d", size, limit),
		Path:    path,
	}
}

func Timeout(message string) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: message}
}

func IO(path string, err error) *Error {
	return &Error{Type: ErrorTypeIO, Message: err.Error(), Path: path, Err: err}
}

// TypeOf reports the ErrorType of err, or empty if err is not one of ours.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}
