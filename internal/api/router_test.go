package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/config"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/events"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/repository"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/service"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/session"
)

const (
	testAPIKey = "clinic-key"
	testReply  = "Thanks for sharing that. How long has it been going on?"
)

type stubLLM struct {
	mu  sync.Mutex
	err error
}

func (s *stubLLM) Chat(context.Context, []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return testReply, nil
}

func (s *stubLLM) JSON(context.Context, []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "{}", nil
}

func (s *stubLLM) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newTestServer(t *testing.T) (*httptest.Server, *stubLLM) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(repository.DriverSQLite, filepath.Join(t.TempDir(), "intake.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repos := service.NewRepositories(db)
	if _, err := repos.Psychiatrists.Seed(context.Background(), repository.DefaultPsychiatrists); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	cfg := &config.Config{
		LLM:    config.LLMConfig{HistoryWindow: 12},
		Intake: config.IntakeConfig{CompletionThreshold: 75, ExtractionWindow: 6, TopN: 3},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	stub := &stubLLM{}
	intake := service.NewIntakeService(cfg, session.NewMemoryStore(0), repos, stub, events.Nop{}, m, zap.NewNop())
	admin := service.NewAdminService(repos, nil)

	router := SetupRouter(intake, admin, RouterConfig{
		APIKey:       testAPIKey,
		AllowOrigins: []string{"*"},
		Gatherer:     reg,
	}, zap.NewNop())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, stub
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/api/sessions", nil, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d body=%s", resp.StatusCode, body)
	}
	var tr domain.TurnResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.SessionID == "" || tr.Stage != domain.StageIntake || tr.Reply == "" {
		t.Fatalf("start = %+v", tr)
	}
	return tr.SessionID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := do(t, srv, http.MethodGet, "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSessionTurnFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)

	resp, body := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages",
		domain.TurnRequest{Message: "I have been feeling down and not sleeping"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d body=%s", resp.StatusCode, body)
	}
	var tr domain.TurnResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Reply != testReply || tr.Stage != domain.StageIntake {
		t.Fatalf("turn = %+v", tr)
	}

	resp, body = do(t, srv, http.MethodGet, "/api/sessions/"+id, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var view domain.SessionView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Turns) != 3 {
		t.Fatalf("turns = %d, want greeting + user + reply", len(view.Turns))
	}
}

func TestSessionErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound},
		{"missing message", http.MethodPost, "/api/sessions/" + id + "/messages", map[string]string{}, http.StatusBadRequest},
		{"blank message", http.MethodPost, "/api/sessions/" + id + "/messages", domain.TurnRequest{Message: "   "}, http.StatusBadRequest},
		{"recommendations too early", http.MethodGet, "/api/sessions/" + id + "/recommendations", nil, http.StatusConflict},
		{"summary too early", http.MethodGet, "/api/sessions/" + id + "/summary", nil, http.StatusConflict},
		{"approve outside booking", http.MethodPost, "/api/sessions/" + id + "/booking/approve", nil, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d body=%s", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestUpstreamFailureAsksToRetry(t *testing.T) {
	srv, stub := newTestServer(t)
	id := startSession(t, srv)
	stub.fail(fmt.Errorf("chat: %w", domain.ErrUpstream))

	resp, body := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages",
		domain.TurnRequest{Message: "I feel low"}, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Reply string `json:"reply"`
		Retry bool   `json:"retry"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Reply != prompt.Apology || !out.Retry {
		t.Fatalf("body = %s", body)
	}

	_, body = do(t, srv, http.MethodGet, "/api/sessions/"+id, nil, nil)
	var view domain.SessionView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Turns) != 1 {
		t.Fatalf("failed turn changed state: %d turns", len(view.Turns))
	}
}

func TestMessageStream(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)

	resp, body := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/messages/stream",
		domain.TurnRequest{Message: "I can't sleep"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	s := string(body)
	stageAt := strings.Index(s, "event: stage")
	contentAt := strings.Index(s, "event: content")
	doneAt := strings.Index(s, "event: done")
	if stageAt < 0 || contentAt < stageAt || doneAt < contentAt {
		t.Fatalf("unexpected stream:\n%s", s)
	}
}

func TestSocketTurns(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	for _, msg := range []string{"I feel tired all the time", "about two months"} {
		if err := conn.WriteJSON(domain.TurnRequest{Message: msg}); err != nil {
			t.Fatal(err)
		}
		var tr domain.TurnResponse
		if err := conn.ReadJSON(&tr); err != nil {
			t.Fatal(err)
		}
		if tr.SessionID != id || tr.Reply != testReply {
			t.Fatalf("reply = %+v", tr)
		}
	}

	if err := conn.WriteJSON(domain.TurnRequest{Message: " "}); err != nil {
		t.Fatal(err)
	}
	var failed map[string]any
	if err := conn.ReadJSON(&failed); err != nil {
		t.Fatal(err)
	}
	if _, ok := failed["error"]; !ok {
		t.Fatalf("expected error frame, got %v", failed)
	}
}

func TestSocketUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() succeeded for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v", resp)
	}
}

func TestEndSession(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)

	resp, _ := do(t, srv, http.MethodDelete, "/api/sessions/"+id, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodGet, "/api/sessions/"+id, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d", resp.StatusCode)
	}
}

func TestClinicianAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	id := startSession(t, srv)
	key := map[string]string{"X-API-Key": testAPIKey}

	resp, _ := do(t, srv, http.MethodGet, "/api/clinician/stats", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key status = %d", resp.StatusCode)
	}

	resp, body := do(t, srv, http.MethodGet, "/api/clinician/stats", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	var stats domain.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 1 || stats.TotalPsychiatrists != len(repository.DefaultPsychiatrists) {
		t.Fatalf("stats = %+v", stats)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/clinician/psychiatrists", domain.CreatePsychiatristRequest{
		Name: "Dr. Ada Lowe", Email: "ada@example.com", Specialties: []string{"anxiety"}, Rating: 4.5,
	}, key)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}
	var created domain.Psychiatrist
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}

	resp, _ = do(t, srv, http.MethodGet, "/api/clinician/psychiatrists/"+created.ID, nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get psychiatrist status = %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodGet, "/api/clinician/psychiatrists/missing", nil, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing psychiatrist status = %d", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodGet, "/api/clinician/sessions/"+id+"/transcript", nil, key)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcript status = %d", resp.StatusCode)
	}
	var transcript struct {
		Messages []*domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(body, &transcript); err != nil {
		t.Fatal(err)
	}
	if len(transcript.Messages) != 1 || transcript.Messages[0].Content != prompt.Greeting {
		t.Fatalf("transcript = %s", body)
	}

	resp, _ = do(t, srv, http.MethodGet, "/api/clinician/sessions/"+id+"/summary/pdf", nil, key)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("pdf without summary status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "intake_conversation_active_turns") {
		t.Fatalf("metrics missing intake collectors:\n%s", body)
	}
}
