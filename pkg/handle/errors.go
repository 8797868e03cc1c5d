package handle

import (
	"errors"
	"fmt"
	"strings"
)

// HandleError represents a domain error from handle record operations.
//
// Business errors (handle not found, illegal admin modification, corrupted
// record) and transport failures share this type so callers can branch on
// Code regardless of the backend that produced them.
type HandleError struct {
	// Code is the error category
	Code ErrorCode

	// Op is the operation that failed (e.g. "modifying handle values")
	Op string

	// Handle is the handle the operation was applied to (if any)
	Handle string

	// Message is a human-readable error description
	Message string

	// Response is the raw response body returned by a remote backend.
	// Only set for errors that originate from a handle server.
	Response string

	// Payload is the request body that was sent, when one was sent
	Payload string

	// Keys lists the record types involved. For ErrBrokenRecord it holds
	// the types already processed before the duplicate was found.
	Keys []string

	// Err is the underlying infrastructure error, if any
	Err error
}

// Error implements the error interface.
func (e *HandleError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	if e.Op != "" {
		b.WriteString(" (")
		b.WriteString(e.Op)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Handle != "" {
		b.WriteString(": ")
		b.WriteString(e.Handle)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *HandleError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a HandleError with the same code.
//
// This lets callers write errors.Is(err, &handle.HandleError{Code: handle.ErrNotFound}).
func (e *HandleError) Is(target error) bool {
	t, ok := target.(*HandleError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a handle error.
type ErrorCode int

const (
	// ErrNotFound indicates the handle (or the requested value) does not exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a handle or index exists and overwrite was not requested
	ErrAlreadyExists

	// ErrIllegalOperation indicates an operation that is never allowed,
	// such as creating or deleting HS_ADMIN through generic value operations
	ErrIllegalOperation

	// ErrBrokenRecord indicates a record with more than one entry of a type
	// that is being modified
	ErrBrokenRecord

	// ErrInvalidHandle indicates a malformed handle or owner name
	ErrInvalidHandle

	// ErrAuthentication indicates the backend refused the credentials
	ErrAuthentication

	// ErrReverseLookup indicates a failed or disallowed search
	ErrReverseLookup

	// ErrTransport indicates any other backend failure
	ErrTransport
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "handle not found"
	case ErrAlreadyExists:
		return "handle already exists"
	case ErrIllegalOperation:
		return "illegal operation"
	case ErrBrokenRecord:
		return "broken handle record"
	case ErrInvalidHandle:
		return "invalid handle syntax"
	case ErrAuthentication:
		return "authentication failed"
	case ErrReverseLookup:
		return "reverse lookup failed"
	case ErrTransport:
		return "handle backend error"
	default:
		return "unknown handle error"
	}
}

// IsCode reports whether err, or any error it wraps, is a HandleError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var herr *HandleError
	if errors.As(err, &herr) {
		return herr.Code == code
	}
	return false
}

// IsNotFound reports whether err is an ErrNotFound HandleError.
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}

// NewNotFoundError creates an ErrNotFound error for a handle.
func NewNotFoundError(handle, msg string) *HandleError {
	return &HandleError{Code: ErrNotFound, Handle: handle, Message: msg}
}

// NewAlreadyExistsError creates an ErrAlreadyExists error for a handle.
func NewAlreadyExistsError(handle, msg string) *HandleError {
	return &HandleError{Code: ErrAlreadyExists, Handle: handle, Message: msg}
}

// NewIllegalOperationError creates an ErrIllegalOperation error.
func NewIllegalOperationError(op, handle, msg string) *HandleError {
	return &HandleError{Code: ErrIllegalOperation, Op: op, Handle: handle, Message: msg}
}

// NewSyntaxError creates an ErrInvalidHandle error.
func NewSyntaxError(name, format string, args ...any) *HandleError {
	return &HandleError{Code: ErrInvalidHandle, Handle: name, Message: fmt.Sprintf(format, args...)}
}

// NewTransportError wraps a backend failure.
func NewTransportError(op, handle string, err error) *HandleError {
	return &HandleError{Code: ErrTransport, Op: op, Handle: handle, Err: err}
}
