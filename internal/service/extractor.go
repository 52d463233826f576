package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
)

// DefaultExtractionWindow is the number of recent turns shown to the extractor.
const DefaultExtractionWindow = 6

// Extractor pulls structured intake fields and matching preferences out of
// the recent conversation. It only ever reports what is new.
type Extractor struct {
	client  llm.Client
	window  int
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewExtractor creates an extractor over the last window turns.
func NewExtractor(client llm.Client, window int, m *metrics.Metrics, logger *zap.Logger) *Extractor {
	if window <= 0 {
		window = DefaultExtractionWindow
	}
	return &Extractor{client: client, window: window, metrics: m, logger: logger}
}

// Intake returns the fields in the recent window that are not already in
// state.Intake. Upstream errors and malformed output yield an empty delta;
// only a missing completion-service configuration is returned as an error.
func (e *Extractor) Intake(ctx context.Context, state *domain.ConversationState) (domain.IntakeData, error) {
	known, _ := json.Marshal(state.Intake)
	raw, err := e.client.JSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.IntakeExtraction + string(known)},
		{Role: llm.RoleUser, Content: transcript(state.Window(e.window))},
	})
	if err != nil {
		return domain.IntakeData{}, e.failed("intake", state.SessionID, err)
	}
	var extracted domain.IntakeData
	if err := decodeJSON(raw, &extracted); err != nil {
		return domain.IntakeData{}, e.failed("intake", state.SessionID, err)
	}
	return state.Intake.Diff(extracted), nil
}

// Preferences returns the preferences stated in the recent window that differ
// from the known ones. Failures are handled as in Intake.
func (e *Extractor) Preferences(ctx context.Context, state *domain.ConversationState) (domain.RecommendationPreferences, error) {
	known, _ := json.Marshal(state.Preferences)
	raw, err := e.client.JSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.PreferenceExtraction + string(known)},
		{Role: llm.RoleUser, Content: transcript(state.Window(e.window))},
	})
	if err != nil {
		return domain.RecommendationPreferences{}, e.failed("preferences", state.SessionID, err)
	}
	var extracted domain.RecommendationPreferences
	if err := decodeJSON(raw, &extracted); err != nil {
		return domain.RecommendationPreferences{}, e.failed("preferences", state.SessionID, err)
	}
	return state.Preferences.Diff(extracted), nil
}

func (e *Extractor) failed(kind, sessionID string, err error) error {
	if errors.Is(err, domain.ErrNotConfigured) {
		return err
	}
	e.metrics.ExtractionFailed(kind)
	e.logger.Warn("extraction failed, continuing with known data",
		zap.String("kind", kind),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	return nil
}

// transcript renders turns as "Patient:"/"Assistant:" lines.
func transcript(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		who := "Assistant"
		if t.Role == domain.RoleUser {
			who = "Patient"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, t.Content)
	}
	return b.String()
}

// decodeJSON unmarshals the first JSON object in raw, tolerating code fences
// and surrounding prose.
func decodeJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in completion output")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("malformed completion output: %w", err)
	}
	return nil
}
