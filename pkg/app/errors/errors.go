// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
)

// Category defines error category
type Category int

const (
	// CategoryNoError means no error occurred.
	CategoryNoError Category = iota
	// CategoryConnectivity covers unreachable endpoints, request timeouts and
	// dropped connections. Recovered locally; surfaced as "unavailable".
	CategoryConnectivity
	// CategoryNotConnected means an operation required a live connection and
	// none was established. Failed fast, never queued.
	CategoryNotConnected
	// CategoryConfigAbsent is a permanent, non-retryable mode switch caused
	// by missing configuration (issuer, currency, agent credential).
	CategoryConfigAbsent
	// CategoryDecode means a collaborator returned a response shape outside
	// the known set of variants.
	CategoryDecode
	// CategoryNotFound means a lookup had a normal negative result.
	CategoryNotFound
	// CategoryAgent means the external signing agent reported a failure.
	CategoryAgent
	// CategoryGeneral is an unexpected internal failure.
	CategoryGeneral
)

func (c Category) String() string {
	switch c {
	case CategoryConnectivity:
		return "CategoryConnectivity"
	case CategoryNotConnected:
		return "CategoryNotConnected"
	case CategoryConfigAbsent:
		return "CategoryConfigAbsent"
	case CategoryDecode:
		return "CategoryDecode"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryAgent:
		return "CategoryAgent"
	default:
		return "CategoryGeneral"
	}
}

// ServiceError is the error type shared across the middleware's components.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err *ServiceError) Error() string {
	if err.Err != nil {
		return err.Message + ": " + err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err *ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

// ConnectivityError wraps a transport-level failure.
func ConnectivityError(err error, message string) error {
	return &ServiceError{Category: CategoryConnectivity, Message: message, Err: err}
}

// NotConnectedError reports an operation attempted without a live connection.
func NotConnectedError(message string) error {
	return &ServiceError{Category: CategoryNotConnected, Message: message}
}

// ConfigAbsentError reports a permanently disabled capability.
func ConfigAbsentError(message string) error {
	return &ServiceError{Category: CategoryConfigAbsent, Message: message}
}

// DecodeError reports an unrecognized response shape from a collaborator.
func DecodeError(err error, message string) error {
	return &ServiceError{Category: CategoryDecode, Message: message, Err: err}
}

// NotFoundError reports a normal negative lookup result.
func NotFoundError(message string) error {
	return &ServiceError{Category: CategoryNotFound, Message: message}
}

// AgentError reports a failure from the external signing agent.
func AgentError(err error, message string) error {
	return &ServiceError{Category: CategoryAgent, Message: message, Err: err}
}
