package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"relaychat/catalog"
	"relaychat/model"
	"relaychat/provider"
	"relaychat/provider/testutil"
)

type fixture struct {
	orch      *Orchestrator
	registry  *provider.Registry
	openai    *testutil.MockProvider
	anthropic *testutil.MockProvider
	mock      *testutil.MockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New([]model.ModelDescriptor{
		{ID: "gpt", DisplayName: "GPT Test", ProviderID: "openai"},
		{ID: "claude", DisplayName: "Claude Test", ProviderID: "anthropic"},
		{ID: "demo", DisplayName: "Demo Assistant", ProviderID: "mock", IsFree: true},
		{ID: "orphan", DisplayName: "Orphan Model", ProviderID: "nowhere"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	f := &fixture{
		registry:  provider.NewRegistry(),
		openai:    testutil.NewMockProvider("openai/gpt"),
		anthropic: testutil.NewMockProvider("anthropic/claude"),
		mock:      testutil.NewMockProvider("mock/demo"),
	}
	f.anthropic.AvailableFunc = func() bool { return false }
	f.registry.Register("openai", f.openai)
	f.registry.Register("anthropic", f.anthropic)
	f.registry.Register("mock", f.mock)
	f.orch = New(cat, f.registry, "gpt")
	return f
}

func TestNewUnknownSelectionUsesDefault(t *testing.T) {
	f := newFixture(t)
	o := New(f.orch.Catalog(), f.registry, "does-not-exist")
	if got := o.SelectedModel().ID; got != "gpt" {
		t.Errorf("SelectedModel() = %q, want gpt", got)
	}
}

func TestSwitchModel(t *testing.T) {
	f := newFixture(t)

	// Switching to an unavailable model is allowed.
	if err := f.orch.SwitchModel("claude"); err != nil {
		t.Fatalf("SwitchModel(claude): %v", err)
	}
	if got := f.orch.SelectedModel().ID; got != "claude" {
		t.Errorf("SelectedModel() = %q, want claude", got)
	}

	err := f.orch.SwitchModel("nope")
	if !errors.Is(err, model.ErrModelNotFound) {
		t.Errorf("SwitchModel(nope) error = %v, want ModelNotFound", err)
	}
	if got := f.orch.SelectedModel().ID; got != "claude" {
		t.Errorf("selection changed after rejected switch: %q", got)
	}
}

func TestAvailableModelsIsLive(t *testing.T) {
	f := newFixture(t)

	ids := func() string {
		var out []string
		for _, d := range f.orch.AvailableModels() {
			out = append(out, d.ID)
		}
		return strings.Join(out, ",")
	}

	if got := ids(); got != "gpt,demo" {
		t.Errorf("AvailableModels() = %s, want gpt,demo", got)
	}

	f.anthropic.AvailableFunc = func() bool { return true }
	if got := ids(); got != "gpt,claude,demo" {
		t.Errorf("after enabling anthropic AvailableModels() = %s", got)
	}

	f.openai.AvailableFunc = func() bool { return false }
	if got := ids(); got != "claude,demo" {
		t.Errorf("after disabling openai AvailableModels() = %s", got)
	}
}

func TestGenerateSuccess(t *testing.T) {
	f := newFixture(t)
	history := testutil.TestHistory()

	reply, err := f.orch.Generate(context.Background(), "Hi", history)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Mock response to: Hi" {
		t.Errorf("reply = %q", reply)
	}
	if f.orch.State() != StateIdle || f.orch.LastError() != nil {
		t.Errorf("state = %s, lastErr = %v", f.orch.State(), f.orch.LastError())
	}
	msg, got := f.openai.LastRequest()
	if msg != "Hi" || len(got) != len(history) {
		t.Errorf("adapter got message %q with %d history entries", msg, len(got))
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantKind model.ErrorKind
		// calls is the expected number of adapter calls on the selected provider.
		calls int
	}{
		{
			name: "rate limited passes through",
			setup: func(f *fixture) {
				f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
					return "", &model.Error{Kind: model.KindRateLimited, Provider: "openai/gpt"}
				}
			},
			wantKind: model.KindRateLimited,
			calls:    1,
		},
		{
			name: "model not found passes through",
			setup: func(f *fixture) {
				f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
					return "", &model.Error{Kind: model.KindModelNotFound}
				}
			},
			wantKind: model.KindModelNotFound,
			calls:    1,
		},
		{
			name: "unclassified error becomes generation failed",
			setup: func(f *fixture) {
				f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
					return "", fmt.Errorf("boom")
				}
			},
			wantKind: model.KindGenerationFailed,
			calls:    1,
		},
		{
			name: "unavailable provider is not called",
			setup: func(f *fixture) {
				f.openai.AvailableFunc = func() bool { return false }
			},
			wantKind: model.KindProviderNotConfigured,
			calls:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.orch.Generate(context.Background(), "Hello", nil)
			if got := model.KindOf(err); got != tt.wantKind {
				t.Fatalf("KindOf(err) = %q, want %q (err=%v)", got, tt.wantKind, err)
			}
			if f.orch.State() != StateError {
				t.Errorf("state = %s, want error", f.orch.State())
			}
			if !errors.Is(f.orch.LastError(), err) {
				t.Errorf("LastError() = %v, want %v", f.orch.LastError(), err)
			}
			if n := f.openai.Calls(); n != tt.calls {
				t.Errorf("adapter called %d times, want %d", n, tt.calls)
			}
		})
	}
}

func TestGenerationFailedKeepsDetail(t *testing.T) {
	f := newFixture(t)
	f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
		return "", fmt.Errorf("openai: http 500: internal")
	}

	_, err := f.orch.Generate(context.Background(), "Hello", nil)
	e, ok := model.AsError(err)
	if !ok {
		t.Fatalf("expected *model.Error, got %T", err)
	}
	if !strings.Contains(e.Detail, "http 500") {
		t.Errorf("detail lost: %q", e.Detail)
	}
}

func TestProviderNotConfiguredNamesModel(t *testing.T) {
	f := newFixture(t)
	if err := f.orch.SwitchModel("claude"); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Generate(context.Background(), "Hello", nil)
	if !errors.Is(err, model.ErrProviderNotConfigured) {
		t.Fatalf("err = %v, want ProviderNotConfigured", err)
	}
	if msg := model.UserMessage(err); !strings.Contains(msg, "Claude Test") {
		t.Errorf("banner %q does not name the model", msg)
	}
	if f.anthropic.Calls() != 0 {
		t.Error("unavailable provider was called")
	}
}

func TestProviderNotAvailable(t *testing.T) {
	f := newFixture(t)
	if err := f.orch.SwitchModel("orphan"); err != nil {
		t.Fatal(err)
	}
	_, err := f.orch.Generate(context.Background(), "Hello", nil)
	if !errors.Is(err, model.ErrProviderNotAvailable) {
		t.Errorf("err = %v, want ProviderNotAvailable", err)
	}
}

func TestErrorClearedBeforeNextGenerate(t *testing.T) {
	f := newFixture(t)
	fail := true
	f.openai.GenerateFunc = func(_ context.Context, msg string, _ []model.Message) (string, error) {
		if fail {
			return "", &model.Error{Kind: model.KindUnavailable}
		}
		return "ok", nil
	}

	if _, err := f.orch.Generate(context.Background(), "a", nil); err == nil {
		t.Fatal("expected failure")
	}
	fail = false
	if _, err := f.orch.Generate(context.Background(), "b", nil); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if f.orch.LastError() != nil {
		t.Errorf("LastError() = %v after success", f.orch.LastError())
	}
}

func TestClearError(t *testing.T) {
	f := newFixture(t)
	f.openai.AvailableFunc = func() bool { return false }
	_, _ = f.orch.Generate(context.Background(), "a", nil)

	f.orch.ClearError()
	if f.orch.State() != StateIdle || f.orch.LastError() != nil {
		t.Errorf("state = %s, lastErr = %v", f.orch.State(), f.orch.LastError())
	}
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.orch.Subscribe()

	if _, err := f.orch.Generate(context.Background(), "Hi", nil); err != nil {
		t.Fatal(err)
	}

	first, second := <-events, <-events
	if first.State != StateGenerating || second.State != StateIdle {
		t.Errorf("events = %s, %s; want generating, idle", first.State, second.State)
	}
	if first.Model != "gpt" {
		t.Errorf("event model = %q", first.Model)
	}

	f.openai.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
		return "", &model.Error{Kind: model.KindRateLimited}
	}
	_, _ = f.orch.Generate(context.Background(), "Hi", nil)
	<-events // generating
	if ev := <-events; ev.State != StateError || ev.Kind != model.KindRateLimited {
		t.Errorf("failure event = %+v", ev)
	}

	cancel()
	if _, ok := <-events; ok {
		t.Error("channel still open after cancel")
	}
	cancel() // idempotent
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	_, cancel := f.orch.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		if _, err := f.orch.Generate(context.Background(), "Hi", nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestProviderStates(t *testing.T) {
	f := newFixture(t)
	states := f.orch.ProviderStates()
	got := map[string]bool{}
	for _, s := range states {
		got[s.ProviderID] = s.IsAvailable
	}
	if len(got) != 3 || !got["openai"] || got["anthropic"] || !got["mock"] {
		t.Errorf("ProviderStates() = %+v", states)
	}
}
