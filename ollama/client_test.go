package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != DefaultBaseURL || c.GetModel() != DefaultModel {
		t.Errorf("defaults = %s %s", c.BaseURL(), c.GetModel())
	}

	for _, bad := range []string{"localhost", "://nohost", "http://"} {
		if _, err := NewClient(bad, "m", nil); err == nil {
			t.Errorf("NewClient(%q) accepted", bad)
		}
	}
}

func TestChat(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":"hi there"},"done":true}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "llama3", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	reply, err := c.Chat(context.Background(), []api.Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "llama3" || got.Stream == nil || *got.Stream {
		t.Errorf("request = %+v", got)
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(api.StatusError{StatusCode: 404}); got != 404 {
		t.Errorf("value form = %d", got)
	}
	if got := StatusCode(fmt.Errorf("wrap: %w", &api.StatusError{StatusCode: 429})); got != 429 {
		t.Errorf("pointer form = %d", got)
	}
	if got := StatusCode(errors.New("dial tcp: refused")); got != 0 {
		t.Errorf("plain error = %d", got)
	}
}
