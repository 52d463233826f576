package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/topics"
)

func screenedState(score int) *domain.ConversationState {
	s := domain.NewConversationState("s1", time.Unix(0, 0))
	s.Intake.ChiefComplaint = "panic attacks"
	s.Intake.Medications = "sertraline"
	s.Intake.MedicationDuration = "6 months"
	s.PHQ9Result = &phq9.Result{Score: score, Severity: phq9.SeverityFor(score)}
	return s
}

func TestDeriveConcerns(t *testing.T) {
	s := screenedState(12)
	s.Topics.Add(topics.Anxiety, topics.Trauma)
	s.Intake.Safety.Hallucinations = true

	got := strings.Join(DeriveConcerns(s), ",")
	if got != "depression,anxiety,trauma,psychosis" {
		t.Fatalf("DeriveConcerns() = %s", got)
	}

	low := screenedState(4)
	if c := DeriveConcerns(low); len(c) != 0 {
		t.Fatalf("DeriveConcerns(minimal) = %v", c)
	}
}

func TestSummarizeMergesGeneratedContent(t *testing.T) {
	fake := &fakeLLM{summary: `{"narrative": "Adult with panic attacks.", "symptoms": ["Panic", "racing heart"], "concerns": ["Anxiety", "depression"]}`}
	sum := NewSummarizer(fake, metrics.New(nil), zap.NewNop())
	s := screenedState(11)
	s.Topics.Add(topics.Anxiety)

	got, err := sum.Summarize(context.Background(), s, time.Unix(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got.Narrative != "Adult with panic attacks." || got.PHQ9Score != 11 || got.PHQ9Severity != "Moderate" {
		t.Fatalf("summary = %+v", got)
	}
	if got.Medications != "sertraline (6 months)" {
		t.Errorf("medications = %q", got.Medications)
	}
	if c := strings.Join(got.Concerns, ","); c != "depression,anxiety" {
		t.Errorf("concerns = %s", c)
	}
	if s := strings.Join(got.Symptoms, ","); s != "anxiety,panic,racing heart" {
		t.Errorf("symptoms = %s", s)
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	s := screenedState(3)
	sum := NewSummarizer(&fakeLLM{summary: "oops"}, metrics.New(nil), zap.NewNop())
	got, err := sum.Summarize(context.Background(), s, time.Unix(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.Narrative, "panic attacks") || !strings.Contains(got.Narrative, "score 3 (Minimal)") {
		t.Fatalf("fallback narrative = %q", got.Narrative)
	}

	failing := NewSummarizer(&fakeLLM{err: fmt.Errorf("%w: timeout", domain.ErrUpstream)}, metrics.New(nil), zap.NewNop())
	if _, err := failing.Summarize(context.Background(), s, time.Now()); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("Summarize() error = %v", err)
	}

	s.PHQ9Result = nil
	if _, err := sum.Summarize(context.Background(), s, time.Now()); !errors.Is(err, domain.ErrAssessmentIncomplete) {
		t.Fatalf("Summarize() without screening error = %v", err)
	}
}
