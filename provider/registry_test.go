package provider

import (
	"testing"

	"relaychat/provider/testutil"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := testutil.NewMockProvider("a/model")
	b := testutil.NewMockProvider("b/model")
	b.AvailableFunc = func() bool { return false }

	r.Register("b", b)
	r.Register("a", a)

	if ids := r.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v", ids)
	}

	states := r.States()
	if len(states) != 2 {
		t.Fatalf("States() returned %d entries", len(states))
	}
	if !states[0].IsAvailable || states[1].IsAvailable {
		t.Errorf("States() = %+v", states)
	}

	replacement := testutil.NewMockProvider("a/other")
	r.Register("a", replacement)
	if got, _ := r.Get("a"); got.ID() != "a/other" {
		t.Errorf("Register did not replace: %s", got.ID())
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) reported ok")
	}
}
