package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

func fakeAPI(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "x", "object": "chat.completion", "model": "m",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
}

func TestChatReturnsTrimmedContent(t *testing.T) {
	srv := fakeAPI(t, http.StatusOK, "  Hello there.  ", nil)
	defer srv.Close()

	c := NewOpenAIClient(Options{BaseURL: srv.URL + "/v1", APIKey: "k"}, nil)
	got, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "Hello there." {
		t.Fatalf("Chat() = %q", got)
	}
}

func TestJSONRequestsObjectFormat(t *testing.T) {
	var seen map[string]any
	srv := fakeAPI(t, http.StatusOK, `{"a":1}`, &seen)
	defer srv.Close()

	c := NewOpenAIClient(Options{BaseURL: srv.URL + "/v1", APIKey: "k", ExtractionModel: "extract-model"}, nil)
	if _, err := c.JSON(context.Background(), []Message{{Role: "tool", Content: "x"}}); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	rf, _ := seen["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", seen["response_format"])
	}
	if seen["model"] != "extract-model" {
		t.Errorf("model = %v", seen["model"])
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["role"] != "user" {
		t.Errorf("messages = %v", seen["messages"])
	}
}

func TestServerErrorIsUpstream(t *testing.T) {
	srv := fakeAPI(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	c := NewOpenAIClient(Options{BaseURL: srv.URL + "/v1", APIKey: "k", Timeout: 5 * time.Second}, nil)
	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("Chat() error = %v, want ErrUpstream", err)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewOpenAIClient(Options{}, nil)
	if c.Configured() {
		t.Fatal("Configured() = true without credentials")
	}
	if _, err := c.Chat(context.Background(), nil); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("Chat() error = %v, want ErrNotConfigured", err)
	}
}
