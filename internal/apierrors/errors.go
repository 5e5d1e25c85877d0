// Package apierrors defines the unified error taxonomy shared across the
// ingestion, leaderboard, and session subsystems, and its mapping to gRPC
// status codes. A *Error keeps its code on the wire even when wrapped:
// grpc's status.FromError finds GRPCStatus anywhere in the error chain.
package apierrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an Error independent of any RPC transport.
type Kind int

const (
	Internal Kind = iota
	UserNotFound
	UserAlreadyExists
	InvalidUsername
	RateLimitExceeded
	SessionNotFound
	SessionExpired
	Database
	Staging
	EventLog
	Rpc
	Validation
	ExternalChatAPI
)

var kindCodes = map[Kind]codes.Code{
	Internal:          codes.Internal,
	UserNotFound:      codes.NotFound,
	UserAlreadyExists: codes.AlreadyExists,
	InvalidUsername:   codes.InvalidArgument,
	RateLimitExceeded: codes.ResourceExhausted,
	SessionNotFound:   codes.NotFound,
	SessionExpired:    codes.DeadlineExceeded,
	Database:          codes.Internal,
	Staging:           codes.Internal,
	EventLog:          codes.Internal,
	Rpc:               codes.Internal,
	Validation:        codes.InvalidArgument,
	ExternalChatAPI:   codes.Internal,
}

var kindNames = map[Kind]string{
	Internal:          "internal",
	UserNotFound:      "user_not_found",
	UserAlreadyExists: "user_already_exists",
	InvalidUsername:   "invalid_username",
	RateLimitExceeded: "rate_limit_exceeded",
	SessionNotFound:   "session_not_found",
	SessionExpired:    "session_expired",
	Database:          "database",
	Staging:           "staging",
	EventLog:          "event_log",
	Rpc:               "rpc",
	Validation:        "validation",
	ExternalChatAPI:   "external_chat_api",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the unified error type returned by every service method.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// GRPCStatus lets google.golang.org/grpc/status.FromError recover the right
// code directly from a returned *Error without an explicit conversion at
// every call site.
func (e *Error) GRPCStatus() *status.Status {
	code, ok := kindCodes[e.Kind]
	if !ok {
		code = codes.Internal
	}
	return status.New(code, e.Message)
}

// New builds a bare *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error that carries cause as context, the idiom used for
// any failure originating in a downstream dependency (store, staging,
// event log, RPC).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, otherwise
// Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
