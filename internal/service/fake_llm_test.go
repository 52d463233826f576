package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/config"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/events"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/repository"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/session"
)

const defaultReply = "Thank you for telling me. How long has this been going on?"

// fakeLLM answers by the system prompt it is given.
type fakeLLM struct {
	mu sync.Mutex

	intake  string
	prefs   string
	summary string
	email   string
	reply   string
	err     error

	chatCalls  int
	jsonCalls  int
	lastSystem string
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	if f.err != nil {
		return "", f.err
	}
	f.lastSystem = messages[0].Content
	if f.reply == "" {
		return defaultReply, nil
	}
	return f.reply, nil
}

func (f *fakeLLM) JSON(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls++
	if f.err != nil {
		return "", f.err
	}
	out := ""
	switch sys := messages[0].Content; {
	case strings.HasPrefix(sys, prompt.IntakeExtraction):
		out = f.intake
	case strings.HasPrefix(sys, prompt.PreferenceExtraction):
		out = f.prefs
	case sys == prompt.SummaryGeneration:
		out = f.summary
	case sys == prompt.OutreachDraft || sys == prompt.OutreachRevision:
		out = f.email
	}
	if out == "" {
		out = "{}"
	}
	return out, nil
}

func (f *fakeLLM) set(fn func(*fakeLLM)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeLLM) calls() (chat, json int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls, f.jsonCalls
}

type testEnv struct {
	svc      *IntakeService
	admin    *AdminService
	repos    Repositories
	store    *session.MemoryStore
	recorder *events.Recorder
	llm      *fakeLLM
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(repository.DriverSQLite, filepath.Join(t.TempDir(), "intake.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repos := NewRepositories(db)
	if _, err := repos.Psychiatrists.Seed(context.Background(), repository.DefaultPsychiatrists); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	cfg := &config.Config{
		LLM:    config.LLMConfig{HistoryWindow: 12},
		Intake: config.IntakeConfig{CompletionThreshold: 75, ExtractionWindow: 6, TopN: 3},
	}
	fake := &fakeLLM{}
	store := session.NewMemoryStore(0)
	rec := &events.Recorder{}
	svc := NewIntakeService(cfg, store, repos, fake, rec, metrics.New(nil), zap.NewNop())
	return &testEnv{
		svc:      svc,
		admin:    NewAdminService(repos, nil),
		repos:    repos,
		store:    store,
		recorder: rec,
		llm:      fake,
	}
}
