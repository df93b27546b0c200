package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyFileData         = errors.New("file data cannot be empty")
	ErrEmptyFileID           = errors.New("file id cannot be empty")
	ErrEmptyProcessID        = errors.New("process id cannot be empty")
	ErrEmptyFilePath         = errors.New("file path cannot be empty")
	ErrEmptyDestination      = errors.New("destination format cannot be empty")
	ErrNoSources             = errors.New("at least one source document is required")
	ErrInvalidSourceDocument = errors.New("source document must have exactly one of LocalFilePath or RemoteWorkFile")
	ErrFileNotFound          = errors.New("file not found")
	ErrNotSuccessful         = errors.New("conversion result is not successful")
	ErrPagesNotHonored       = errors.New("remote server did not honor the requested pages")
	ErrUnexpectedResultCount = errors.New("unexpected number of conversion results")
	ErrNilReader             = errors.New("reader cannot be nil")
	ErrNilWriter             = errors.New("writer cannot be nil")
)

// ErrorKind classifies a server-reported failure.
type ErrorKind int

const (
	// KindUnrecognized is a server error with no dedicated message.
	KindUnrecognized ErrorKind = iota
	// KindRejected means the server refused the request before starting a process.
	KindRejected
	// KindJobFailed means the process was accepted but ended in the error state.
	KindJobFailed
	// KindProtocol means the response did not have the expected shape.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindJobFailed:
		return "job failed"
	case KindProtocol:
		return "protocol"
	default:
		return "unrecognized"
	}
}

// InnerError is a per-result failure nested inside a failed process.
type InnerError struct {
	ErrorCode       string
	RawErrorDetails json.RawMessage
}

// Error is returned for every failure reported by the server. Recognized
// failures carry a specific Message; the structured fields are always set so
// callers can branch on ErrorCode or At without parsing text.
type Error struct {
	Op              Operation
	Kind            ErrorKind
	StatusCode      int
	Status          string
	ErrorCode       string
	At              string
	RawErrorDetails json.RawMessage
	InnerErrors     []InnerError
	Body            string
	Message         string

	err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ErrorCode != "" {
		if e.At != "" {
			return fmt.Sprintf("%s failed with status %d: %s (errorCode: %s, at: %s)", e.Op, e.StatusCode, e.Status, e.ErrorCode, e.At)
		}
		return fmt.Sprintf("%s failed with status %d: %s (errorCode: %s)", e.Op, e.StatusCode, e.Status, e.ErrorCode)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Status)
}

func (e *Error) Unwrap() error {
	return e.err
}

// AsError extracts a server error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// errStatus formats an error for a response which could not be read as an error envelope.
func errStatus(operation Operation, statusCode int, status string) error {
	return &Error{
		Op:         operation,
		Kind:       KindProtocol,
		StatusCode: statusCode,
		Status:     status,
	}
}

// errProtocol formats an error for a successful response with an unexpected body.
func errProtocol(operation Operation, statusCode int, body []byte, format string, args ...any) error {
	return &Error{
		Op:         operation,
		Kind:       KindProtocol,
		StatusCode: statusCode,
		Body:       string(body),
		Message:    fmt.Sprintf("%s: %s", operation, fmt.Sprintf(format, args...)),
	}
}
