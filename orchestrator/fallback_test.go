package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"relaychat/model"
)

func TestShouldFallback(t *testing.T) {
	policy := DefaultFallbackPolicy("demo")

	tests := []struct {
		name    string
		err     error
		current string
		want    bool
	}{
		{"nil error", nil, "gpt", false},
		{"model not found", &model.Error{Kind: model.KindModelNotFound}, "gpt", true},
		{"unavailable", &model.Error{Kind: model.KindUnavailable}, "gpt", true},
		{"not configured", &model.Error{Kind: model.KindNotConfigured}, "gpt", true},
		{"provider not configured", &model.Error{Kind: model.KindProviderNotConfigured}, "gpt", true},
		{"provider not available", &model.Error{Kind: model.KindProviderNotAvailable}, "gpt", true},
		{"wrapped", fmt.Errorf("send: %w", &model.Error{Kind: model.KindUnavailable}), "gpt", true},
		{"rate limited", &model.Error{Kind: model.KindRateLimited}, "gpt", false},
		{"invalid credential", &model.Error{Kind: model.KindInvalidCredential}, "gpt", false},
		{"generation failed", &model.Error{Kind: model.KindGenerationFailed}, "gpt", false},
		{"unclassified", fmt.Errorf("boom"), "gpt", false},
		{"already on fallback", &model.Error{Kind: model.KindModelNotFound}, "demo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldFallback(tt.err, tt.current); got != tt.want {
				t.Errorf("ShouldFallback() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldFallbackCustomTriggers(t *testing.T) {
	policy := FallbackPolicy{FallbackModelID: "demo", Triggers: []model.ErrorKind{model.KindRateLimited}}
	if !policy.ShouldFallback(&model.Error{Kind: model.KindRateLimited}, "gpt") {
		t.Error("custom trigger ignored")
	}
	if policy.ShouldFallback(&model.Error{Kind: model.KindModelNotFound}, "gpt") {
		t.Error("non-trigger kind caused fallback")
	}
	if (FallbackPolicy{}).ShouldFallback(&model.Error{Kind: model.KindModelNotFound}, "gpt") {
		t.Error("empty policy should never fall back")
	}
}

// A 429 from the selected model surfaces to the user; a 404 is retried once
// on the fallback model.
func TestFallbackScenarios(t *testing.T) {
	tests := []struct {
		name         string
		kind         model.ErrorKind
		wantFallback bool
	}{
		{"rate limited", model.KindRateLimited, false},
		{"model not found", model.KindModelNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
				return "", &model.Error{Kind: tt.kind}
			}
			policy := DefaultFallbackPolicy("demo")

			_, err := f.orch.Generate(context.Background(), "Hello", nil)
			if err == nil {
				t.Fatal("expected failure")
			}
			if got := policy.ShouldFallback(err, f.orch.SelectedModel().ID); got != tt.wantFallback {
				t.Fatalf("ShouldFallback() = %v, want %v", got, tt.wantFallback)
			}
			if !tt.wantFallback {
				if model.KindOf(f.orch.LastError()) != tt.kind {
					t.Errorf("LastError() = %v", f.orch.LastError())
				}
				return
			}

			if err := f.orch.SwitchModel(policy.FallbackModelID); err != nil {
				t.Fatal(err)
			}
			reply, err := f.orch.Generate(context.Background(), "Hello", nil)
			if err != nil {
				t.Fatalf("fallback Generate: %v", err)
			}
			if reply == "" || f.mock.Calls() != 1 {
				t.Errorf("fallback reply %q, mock calls %d", reply, f.mock.Calls())
			}
			if f.orch.State() != StateIdle {
				t.Errorf("state = %s after fallback success", f.orch.State())
			}
		})
	}
}
