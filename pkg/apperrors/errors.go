// Package apperrors defines the error taxonomy shared by the HTTP and MCP
// surfaces. A Kind is attached to every error that crosses a component
// boundary so the edges (pkg/httpapi, pkg/mcp) can map it to a status
// code or MCP payload without re-deriving it from string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status-code / MCP-payload mapping. See
// spec §7 for the authoritative table.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindFrozenConfig
	KindProjectNotFound
	KindPackageNotFound
	KindModelNotFound
	KindConnectionNotFound
	KindModelCompilation
	KindMalloy
	KindConnection
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindFrozenConfig:
		return "frozen_config"
	case KindProjectNotFound:
		return "project_not_found"
	case KindPackageNotFound:
		return "package_not_found"
	case KindModelNotFound:
		return "model_not_found"
	case KindConnectionNotFound:
		return "connection_not_found"
	case KindModelCompilation:
		return "model_compilation_error"
	case KindMalloy:
		return "malloy_error"
	case KindConnection:
		return "connection_error"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "internal"
	}
}

// Error is a taxonomy-tagged application error. Suggestions is populated only
// for KindModelCompilation and KindMalloy per spec §7.
type Error struct {
	Kind        Kind
	Message     string
	Suggestions []string
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind, wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithSuggestions attaches curated suggestions and returns the same error for
// chaining at the call site.
func (e *Error) WithSuggestions(s ...string) *Error {
	e.Suggestions = append(e.Suggestions, s...)
	return e
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// SuggestionsOf extracts the curated suggestions from err, if any.
func SuggestionsOf(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Suggestions
	}
	return nil
}

// Convenience constructors for the taxonomy's most common members.

func NotFoundProject(name string) *Error {
	return New(KindProjectNotFound, fmt.Sprintf("Resource not found: project '%s'", name))
}

func NotFoundPackage(name string) *Error {
	return New(KindPackageNotFound, fmt.Sprintf("Resource not found: Package '%s'", name))
}

func NotFoundModel(path string) *Error {
	return New(KindModelNotFound, fmt.Sprintf("Resource not found: model '%s'", path))
}

func NotFoundConnection(name string) *Error {
	return New(KindConnectionNotFound, fmt.Sprintf("Resource not found: connection '%s'", name))
}

func Frozen(op string) *Error {
	return New(KindFrozenConfig, fmt.Sprintf("cannot %s: server configuration is frozen", op))
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func NotImplemented(feature string) *Error {
	return New(KindNotImplemented, fmt.Sprintf("%s is not implemented", feature))
}
