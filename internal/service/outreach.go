package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
)

// OutreachDrafter writes the appointment request email.
type OutreachDrafter struct {
	client  llm.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewOutreachDrafter creates a drafter.
func NewOutreachDrafter(client llm.Client, m *metrics.Metrics, logger *zap.Logger) *OutreachDrafter {
	return &OutreachDrafter{client: client, metrics: m, logger: logger}
}

// Draft writes a first draft to p. Malformed output falls back to a template.
func (d *OutreachDrafter) Draft(ctx context.Context, state *domain.ConversationState, p *domain.Psychiatrist) (*domain.OutreachEmail, error) {
	raw, err := d.client.JSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.OutreachDraft},
		{Role: llm.RoleUser, Content: draftContext(state, p)},
	})
	if err != nil {
		return nil, err
	}
	email, err := parseEmail(raw)
	if err != nil {
		d.metrics.ExtractionFailed("outreach")
		d.logger.Warn("outreach draft malformed, using template",
			zap.String("session_id", state.SessionID), zap.Error(err))
		return TemplateEmail(state, p), nil
	}
	return email, nil
}

// Revise applies the patient's notes to the current draft. Malformed output
// keeps the current draft.
func (d *OutreachDrafter) Revise(ctx context.Context, state *domain.ConversationState, p *domain.Psychiatrist, notes string) (*domain.OutreachEmail, error) {
	current := state.Draft
	if current == nil {
		return d.Draft(ctx, state, p)
	}
	raw, err := d.client.JSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.OutreachRevision},
		{Role: llm.RoleUser, Content: fmt.Sprintf("%s\nCurrent subject: %s\nCurrent body:\n%s\n\nPatient's notes: %s",
			draftContext(state, p), current.Subject, current.Body, notes)},
	})
	if err != nil {
		return nil, err
	}
	email, err := parseEmail(raw)
	if err != nil {
		d.metrics.ExtractionFailed("outreach")
		d.logger.Warn("outreach revision malformed, keeping draft",
			zap.String("session_id", state.SessionID), zap.Error(err))
		return &domain.OutreachEmail{Subject: current.Subject, Body: current.Body}, nil
	}
	return email, nil
}

// TemplateEmail is the draft used when generation fails.
func TemplateEmail(state *domain.ConversationState, p *domain.Psychiatrist) *domain.OutreachEmail {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", p.Name)
	b.WriteString("I am writing to ask whether you are accepting new patients and, if so, to request an initial appointment.")
	if c := strings.TrimSpace(state.Intake.ChiefComplaint); c != "" {
		fmt.Fprintf(&b, " I am seeking help with %s.", strings.TrimSuffix(c, "."))
	}
	if ins := strings.TrimSpace(state.Preferences.Insurance); ins != "" {
		fmt.Fprintf(&b, " My insurance is %s.", ins)
	}
	b.WriteString("\n\nThank you for your time. I look forward to hearing from you.\n")
	return &domain.OutreachEmail{Subject: "New patient appointment request", Body: b.String()}
}

func draftContext(state *domain.ConversationState, p *domain.Psychiatrist) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Psychiatrist: %s (%s)\n", p.Name, p.Location)
	if c := state.Intake.ChiefComplaint; c != "" {
		fmt.Fprintf(&b, "Main concern: %s\n", c)
	}
	if ins := state.Preferences.Insurance; ins != "" {
		fmt.Fprintf(&b, "Insurance: %s\n", ins)
	}
	if loc := state.Preferences.Location; loc != "" {
		fmt.Fprintf(&b, "Patient location: %s\n", loc)
	}
	return b.String()
}

func parseEmail(raw string) (*domain.OutreachEmail, error) {
	var email domain.OutreachEmail
	if err := decodeJSON(raw, &email); err != nil {
		return nil, err
	}
	email.Subject = strings.TrimSpace(email.Subject)
	email.Body = strings.TrimSpace(email.Body)
	if email.Subject == "" || email.Body == "" {
		return nil, fmt.Errorf("draft missing subject or body")
	}
	return &email, nil
}
