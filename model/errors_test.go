package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindRateLimited, Provider: "openai", Detail: "slow down"}
	wrapped := fmt.Errorf("send failed: %w", err)

	if !errors.Is(wrapped, ErrRateLimited) {
		t.Error("wrapped rate limit does not match ErrRateLimited")
	}
	if errors.Is(wrapped, ErrUnavailable) {
		t.Error("rate limit matched ErrUnavailable")
	}
	if KindOf(wrapped) != KindRateLimited {
		t.Errorf("KindOf = %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error has a kind")
	}
	if KindOf(nil) != "" {
		t.Error("nil error has a kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Kind: KindUnavailable, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !strings.HasSuffix(err.Error(), "connection reset") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindModelNotFound, Provider: "groq", Model: "Llama", Detail: "gone"}
	if got := err.Error(); got != "groq: model_not_found (Llama): gone" {
		t.Errorf("Error() = %q", got)
	}
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Error("nil *Error did not render")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"rate limited", &Error{Kind: KindRateLimited}, "Rate limit reached. Please wait a moment and try again."},
		{"names model", &Error{Kind: KindProviderNotConfigured, Model: "Claude"}, "Claude is not configured. Add its API key to use it."},
		{"generation detail", &Error{Kind: KindGenerationFailed, Detail: "eof"}, "Generation failed: eof"},
		{"wrapped", fmt.Errorf("x: %w", ErrCannotDeleteLast), "You can't delete your only conversation."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewError(t *testing.T) {
	err := NewError(KindStoreError, "table %s missing", "messages")
	if err.Kind != KindStoreError || err.Detail != "table messages missing" {
		t.Errorf("NewError() = %+v", err)
	}
	if _, ok := AsError(fmt.Errorf("wrap: %w", err)); !ok {
		t.Error("AsError did not find wrapped error")
	}
}
