package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised by providers, the orchestrator and stores.
type ErrorKind string

const (
	KindNotConfigured         ErrorKind = "not_configured"
	KindInvalidCredential     ErrorKind = "invalid_credential"
	KindRateLimited           ErrorKind = "rate_limited"
	KindUnavailable           ErrorKind = "unavailable"
	KindMalformedResponse     ErrorKind = "malformed_response"
	KindModelNotFound         ErrorKind = "model_not_found"
	KindProviderNotAvailable  ErrorKind = "provider_not_available"
	KindProviderNotConfigured ErrorKind = "provider_not_configured"
	KindGenerationFailed      ErrorKind = "generation_failed"
	KindStoreError            ErrorKind = "store_error"
	KindUnauthenticated       ErrorKind = "unauthenticated"
	KindCannotDeleteLast      ErrorKind = "cannot_delete_last"
)

// Error is the structured error returned across package boundaries.
// Callers branch on Kind, never on the message text.
type Error struct {
	Kind     ErrorKind
	Provider string // provider id, when the error came from an adapter
	Model    string // model display name, when relevant
	Detail   string
	Err      error
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrNotConfigured         = &Error{Kind: KindNotConfigured}
	ErrInvalidCredential     = &Error{Kind: KindInvalidCredential}
	ErrRateLimited           = &Error{Kind: KindRateLimited}
	ErrUnavailable           = &Error{Kind: KindUnavailable}
	ErrMalformedResponse     = &Error{Kind: KindMalformedResponse}
	ErrModelNotFound         = &Error{Kind: KindModelNotFound}
	ErrProviderNotAvailable  = &Error{Kind: KindProviderNotAvailable}
	ErrProviderNotConfigured = &Error{Kind: KindProviderNotConfigured}
	ErrGenerationFailed      = &Error{Kind: KindGenerationFailed}
	ErrStore                 = &Error{Kind: KindStoreError}
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated}
	ErrCannotDeleteLast      = &Error{Kind: KindCannotDeleteLast}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Model != "" {
		msg += " (" + e.Model + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Message returns a short human-readable description for an error banner.
func (e *Error) Message() string {
	switch e.Kind {
	case KindNotConfigured:
		return "This provider has no API key configured."
	case KindInvalidCredential:
		return "The API key was rejected. Check your credentials."
	case KindRateLimited:
		return "Rate limit reached. Please wait a moment and try again."
	case KindUnavailable:
		return "The model is temporarily unavailable. Try again shortly."
	case KindMalformedResponse:
		return "The provider returned an empty or unreadable response."
	case KindModelNotFound:
		return "The selected model could not be found."
	case KindProviderNotAvailable:
		return "No provider is registered for the selected model."
	case KindProviderNotConfigured:
		if e.Model != "" {
			return fmt.Sprintf("%s is not configured. Add its API key to use it.", e.Model)
		}
		return "The selected model is not configured."
	case KindGenerationFailed:
		if e.Detail != "" {
			return "Generation failed: " + e.Detail
		}
		return "Generation failed."
	case KindStoreError:
		return "Could not save or load your conversation."
	case KindUnauthenticated:
		return "You are not signed in."
	case KindCannotDeleteLast:
		return "You can't delete your only conversation."
	}
	return e.Error()
}

// NewError builds an *Error with a formatted detail.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the ErrorKind of err, or "" when err is nil or unclassified.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

// UserMessage renders any error for display, preferring the structured message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Message()
	}
	return err.Error()
}
