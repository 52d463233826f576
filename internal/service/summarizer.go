package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/topics"
)

// depressionCutoff is the screening score from which depression is a concern.
const depressionCutoff = 10

// topicConcerns maps covered topics to clinical concern areas.
var topicConcerns = []struct{ topic, concern string }{
	{topics.Anxiety, "anxiety"},
	{topics.SubstanceUse, "substance use"},
	{topics.Trauma, "trauma"},
	{topics.Psychosis, "psychosis"},
	{topics.Sleep, "sleep"},
}

// topicSymptoms maps covered topics to symptom names.
var topicSymptoms = []struct{ topic, symptom string }{
	{topics.Mood, "low mood"},
	{topics.Sleep, "insomnia"},
	{topics.Appetite, "appetite change"},
	{topics.Energy, "fatigue"},
	{topics.Concentration, "poor concentration"},
	{topics.Anxiety, "anxiety"},
}

type summaryOutput struct {
	Narrative string   `json:"narrative"`
	Symptoms  []string `json:"symptoms"`
	Concerns  []string `json:"concerns"`
}

// Summarizer builds the clinical summary once screening is done.
type Summarizer struct {
	client  llm.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(client llm.Client, m *metrics.Metrics, logger *zap.Logger) *Summarizer {
	return &Summarizer{client: client, metrics: m, logger: logger}
}

// Summarize builds the summary for state. Structured fields come from the
// intake record and the screening result; the narrative comes from the
// completion service. Malformed output falls back to a narrative assembled
// from the record; an upstream failure is returned.
func (s *Summarizer) Summarize(ctx context.Context, state *domain.ConversationState, now time.Time) (*domain.ClinicalSummary, error) {
	if state.PHQ9Result == nil {
		return nil, domain.ErrAssessmentIncomplete
	}
	summary := BaseSummary(state, now)

	record, _ := json.Marshal(struct {
		Intake domain.IntakeData `json:"intake"`
		PHQ9   *phq9.Result      `json:"screening"`
		Topics []string          `json:"topics"`
	}{state.Intake, state.PHQ9Result, state.Topics.Sorted()})

	raw, err := s.client.JSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.SummaryGeneration},
		{Role: llm.RoleUser, Content: "Record:\n" + string(record) + "\n\nTranscript:\n" + transcript(state.Turns)},
	})
	if err != nil {
		return nil, err
	}
	var out summaryOutput
	if err := decodeJSON(raw, &out); err != nil || strings.TrimSpace(out.Narrative) == "" {
		if err == nil {
			err = errors.New("empty narrative")
		}
		s.metrics.ExtractionFailed("summary")
		s.logger.Warn("summary generation returned malformed output, using record narrative",
			zap.String("session_id", state.SessionID), zap.Error(err))
		return summary, nil
	}
	summary.Narrative = strings.TrimSpace(out.Narrative)
	summary.Symptoms = union(summary.Symptoms, out.Symptoms)
	summary.Concerns = union(summary.Concerns, out.Concerns)
	return summary, nil
}

// BaseSummary is the summary derived from the record alone.
func BaseSummary(state *domain.ConversationState, now time.Time) *domain.ClinicalSummary {
	d := state.Intake
	summary := &domain.ClinicalSummary{
		SessionID:               state.SessionID,
		ChiefComplaint:          d.ChiefComplaint,
		HistoryOfPresentIllness: d.HistoryOfPresentIllness,
		PastPsychiatricHistory:  d.PastPsychiatricHistory,
		Medications:             medicationText(d),
		SafetyConcerns:          d.SafetyConcerns,
		SubstanceUse:            d.SubstanceUse,
		FunctionalImpact:        d.FunctionalImpact,
		Safety:                  d.Safety,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if state.PHQ9Result != nil {
		summary.PHQ9Score = state.PHQ9Result.Score
		summary.PHQ9Severity = string(state.PHQ9Result.Severity)
	}

	symptoms := d.Symptoms()
	for _, ts := range topicSymptoms {
		if state.Topics.Has(ts.topic) {
			symptoms = append(symptoms, ts.symptom)
		}
	}
	summary.Symptoms = union(nil, symptoms)
	summary.Concerns = DeriveConcerns(state)
	summary.Narrative = recordNarrative(summary)
	return summary
}

// DeriveConcerns lists concern areas implied by the score, the safety flags
// and the covered topics.
func DeriveConcerns(state *domain.ConversationState) []string {
	var concerns []string
	if (state.PHQ9Result != nil && state.PHQ9Result.Score >= depressionCutoff) || state.Topics.Has(topics.Mood) {
		concerns = append(concerns, "depression")
	}
	for _, tc := range topicConcerns {
		if state.Topics.Has(tc.topic) {
			concerns = append(concerns, tc.concern)
		}
	}
	if state.Intake.Safety.Hallucinations {
		concerns = append(concerns, "psychosis")
	}
	if state.Intake.Safety.SuicidalIdeation || state.Intake.Safety.SelfHarm || state.Topics.Has(topics.SuicidalThoughts) || state.Topics.Has(topics.SelfHarm) {
		concerns = append(concerns, "suicide risk")
	}
	if strings.TrimSpace(state.Intake.SubstanceUse) != "" && state.Topics.Has(topics.SubstanceUse) {
		concerns = append(concerns, "substance use")
	}
	return union(nil, concerns)
}

func medicationText(d domain.IntakeData) string {
	if d.Medications == "" || d.MedicationDuration == "" {
		return d.Medications
	}
	return fmt.Sprintf("%s (%s)", d.Medications, d.MedicationDuration)
}

func recordNarrative(s *domain.ClinicalSummary) string {
	var parts []string
	if s.ChiefComplaint != "" {
		parts = append(parts, "Presenting concern: "+strings.TrimSuffix(s.ChiefComplaint, ".")+".")
	}
	if s.HistoryOfPresentIllness != "" {
		parts = append(parts, "History: "+strings.TrimSuffix(s.HistoryOfPresentIllness, ".")+".")
	}
	if s.PHQ9Severity != "" {
		parts = append(parts, fmt.Sprintf("Depression screening score %d (%s).", s.PHQ9Score, s.PHQ9Severity))
	}
	if s.Safety.Any() {
		parts = append(parts, "Safety concerns were disclosed and need clinician follow-up.")
	}
	if len(s.Concerns) > 0 {
		parts = append(parts, "Areas of concern: "+strings.Join(s.Concerns, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// union appends the lowercased, trimmed values of b to a, skipping
// duplicates. Order is preserved.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			n := norm(v)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
