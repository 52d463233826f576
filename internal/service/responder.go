package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/stage"
)

// DefaultHistoryWindow is how many recent turns accompany the instruction.
const DefaultHistoryWindow = 12

const answerOptions = "not at all, several days, more than half the days, or nearly every day"

// Responder produces the assistant's reply for a directive.
type Responder struct {
	client llm.Client
	window int
}

// NewResponder creates a responder sending the last window turns.
func NewResponder(client llm.Client, window int) *Responder {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Responder{client: client, window: window}
}

// Respond makes one completion call and guards the result.
func (r *Responder) Respond(ctx context.Context, state *domain.ConversationState, d stage.Directive) (string, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: BuildInstruction(state, d)}}
	for _, t := range state.Window(r.window) {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	reply, err := r.client.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	guarded := GuardReply(reply, state.LastUserMessage())
	if strings.TrimSpace(guarded) == "" {
		return "", fmt.Errorf("%w: empty reply", domain.ErrUpstream)
	}
	return guarded, nil
}

// BuildInstruction assembles the system instruction for d. It depends only on
// its inputs.
func BuildInstruction(state *domain.ConversationState, d stage.Directive) string {
	var b strings.Builder
	b.WriteString(prompt.Style)
	b.WriteString("\n\n")
	b.WriteString(stageRole(state.Stage, d))
	b.WriteString("\n\n")

	if covered := state.Topics.Sorted(); len(covered) > 0 {
		b.WriteString("Topics the patient has already covered (do not ask about these again): ")
		b.WriteString(strings.Join(covered, ", "))
		b.WriteString("\n")
	}
	if known := knownFacts(state.Intake); known != "" {
		b.WriteString("Already known:\n")
		b.WriteString(known)
	}
	if state.Intake.Safety.Any() {
		b.WriteString("The patient has disclosed a safety concern. Make sure they know they can call or text 988, or emergency services, if they are in danger.\n")
	}

	b.WriteString("\nTask for this reply: ")
	b.WriteString(task(state, d))
	return b.String()
}

func stageRole(s domain.Stage, d stage.Directive) string {
	switch d.Kind {
	case stage.KindAskPHQ9Item, stage.KindRepeatPHQ9Item:
		return prompt.ScreeningRole
	case stage.KindClosing, stage.KindBookingConfirmed:
		return prompt.ClosingRole
	}
	switch s {
	case domain.StageIntake:
		return prompt.IntakeRole
	case domain.StagePHQ9:
		return prompt.ScreeningRole
	case domain.StageSummary:
		return prompt.SummaryRole
	case domain.StageRecommendation:
		return prompt.RecommendationRole
	case domain.StageBooking:
		return prompt.BookingRole
	default:
		return prompt.ClosingRole
	}
}

func task(state *domain.ConversationState, d stage.Directive) string {
	switch d.Kind {
	case stage.KindContinueIntake:
		if len(d.Missing) == 0 {
			return "Briefly acknowledge what they shared, then ask one gentle follow-up question about something not yet covered."
		}
		return "Briefly acknowledge what they shared, then ask ONE question about the first of these areas that is not yet covered: " +
			strings.Join(d.Missing, "; ") + "."

	case stage.KindAskAnythingElse:
		return "Thank them for sharing. Ask whether there is anything else they would like to add before you move on to a few standard questions."

	case stage.KindAskPHQ9Item:
		item := itemText(d.Item)
		if d.Item == 0 {
			return fmt.Sprintf("Explain that you have a few standard questions about the last two weeks. Then ask: over the last two weeks, how often have you been bothered by %s? Mention the options: %s.", item, answerOptions)
		}
		return fmt.Sprintf("Ask: over the last two weeks, how often have you been bothered by %s? Mention the options: %s.", item, answerOptions)

	case stage.KindRepeatPHQ9Item:
		return fmt.Sprintf("The last answer did not match one of the options. Kindly ask the same question again: over the last two weeks, how often have you been bothered by %s? The options are: %s.", itemText(d.Item), answerOptions)

	case stage.KindOfferSummaryReview:
		return "Thank them for answering. Tell them a summary has been prepared for their care team and ask whether they would like to review it."

	case stage.KindPresentSummary:
		return "The summary below is shown to the patient alongside your reply. In two sentences, describe what it covers without listing clinical scores, then ask whether they would like recommendations for psychiatrists who fit their needs.\n" +
			summaryText(state.Summary)

	case stage.KindAskWantRecommendations:
		return "Ask whether they would like recommendations for psychiatrists who fit their needs."

	case stage.KindPresentRecommendations:
		if len(state.Candidates) == 0 {
			return "No psychiatrists currently match. Apologize and ask whether they would like to share a different location, insurance or preference so you can search again."
		}
		var b strings.Builder
		b.WriteString("Present these psychiatrists as a numbered list, keeping the order, then ask which one they would like to contact (by number or name). They may also share location, insurance, gender or therapy style preferences to refine the list.\n")
		for i, m := range state.Candidates {
			p := m.Psychiatrist
			fmt.Fprintf(&b, "%d. %s: %s; %s; insurance %s; %s\n", i+1, p.Name,
				strings.Join(p.Specialties, ", "), p.Location, strings.Join(p.Insurance, ", "), p.Availability)
		}
		return b.String()

	case stage.KindPresentDraft:
		name := selectedName(state)
		return fmt.Sprintf("An appointment request email to %s has been drafted and is shown to the patient alongside your reply. Do not repeat the email. Ask whether it looks good to send or what they would like changed.", name)

	case stage.KindAskDraftChanges:
		return "Ask what they would like changed in the email."

	case stage.KindBookingConfirmed:
		return fmt.Sprintf("Confirm that their request to %s has been approved and will be sent. Thank them. Do not ask a question.", selectedName(state))

	default:
		return "Thank the patient warmly and let them know their care team will follow up. Do not ask a question."
	}
}

func itemText(i int) string {
	if i < 0 || i >= phq9.ItemCount {
		return "how you have been feeling"
	}
	return strings.ToLower(phq9.Items[i][:1]) + phq9.Items[i][1:]
}

func knownFacts(d domain.IntakeData) string {
	var b strings.Builder
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, v)
		}
	}
	add("main concern", d.ChiefComplaint)
	add("history", d.HistoryOfPresentIllness)
	add("past psychiatric history", d.PastPsychiatricHistory)
	add("medications", d.Medications)
	add("safety", d.SafetyConcerns)
	add("substance use", d.SubstanceUse)
	add("daily functioning", d.FunctionalImpact)
	if symptoms := d.Symptoms(); len(symptoms) > 0 {
		add("symptoms", strings.Join(symptoms, ", "))
	}
	return b.String()
}

func summaryText(s *domain.ClinicalSummary) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Summary:\n")
	b.WriteString(s.Narrative)
	if len(s.Concerns) > 0 {
		b.WriteString("\nAreas of concern: " + strings.Join(s.Concerns, ", "))
	}
	return b.String()
}

func selectedName(state *domain.ConversationState) string {
	for _, m := range state.Candidates {
		if m.Psychiatrist.ID == state.SelectedPsychiatristID {
			return m.Psychiatrist.Name
		}
	}
	return "the psychiatrist"
}
