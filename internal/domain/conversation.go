package domain

import (
	"time"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/topics"
)

// Roles used in Turn.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one exchanged message.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ConversationState is everything the interview knows about one session.
// It is owned by exactly one session and mutated only between turns.
type ConversationState struct {
	SessionID string     `json:"session_id"`
	Stage     Stage      `json:"stage"`
	Turns     []Turn     `json:"turns"`
	Topics    topics.Set `json:"topics"`

	IntakeComplete         bool `json:"intake_complete"`
	PatientReadyForSummary bool `json:"patient_ready_for_summary"`
	PHQ9Completed          bool `json:"phq9_completed"`
	CompletionPercent      int  `json:"completion_percent"`

	Intake     IntakeData       `json:"intake"`
	PHQ9       phq9.Assessment  `json:"phq9"`
	PHQ9Result *phq9.Result     `json:"phq9_result,omitempty"`
	Summary    *ClinicalSummary `json:"summary,omitempty"`

	Preferences            RecommendationPreferences `json:"preferences"`
	Candidates             []Match                   `json:"candidates,omitempty"`
	SelectedPsychiatristID string                    `json:"selected_psychiatrist_id,omitempty"`
	Draft                  *OutreachEmail            `json:"draft,omitempty"`

	// Pending is the prompt the last assistant reply asked; it scopes how the
	// next user message is interpreted.
	Pending Expectation `json:"pending,omitempty"`

	// Logged counts transcript rows already persisted; it survives Reset so
	// the log stays in order.
	Logged int `json:"logged"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState returns a fresh state in the Intake stage.
func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Stage:     StageIntake,
		Topics:    topics.Set{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RefreshCompletion recomputes CompletionPercent from the intake record and
// the screening flag.
func (s *ConversationState) RefreshCompletion() {
	s.CompletionPercent = CompletionPercent(s.Intake, s.PHQ9Completed)
}

// AppendTurn records a message.
func (s *ConversationState) AppendTurn(role, content string, at time.Time) {
	s.Turns = append(s.Turns, Turn{Role: role, Content: content, At: at})
}

// LastUserMessage returns the most recent user turn's text.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleUser {
			return s.Turns[i].Content
		}
	}
	return ""
}

// Window returns the last n turns (all of them when n <= 0).
func (s *ConversationState) Window(n int) []Turn {
	if n <= 0 || n >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// Clone deep-copies the state so a turn can be computed on the copy and
// discarded on failure.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.Topics = s.Topics.Clone()
	c.Intake = s.Intake.Clone()
	c.PHQ9 = s.PHQ9.Clone()
	if s.PHQ9Result != nil {
		r := *s.PHQ9Result
		c.PHQ9Result = &r
	}
	if s.Summary != nil {
		c.Summary = s.Summary.Clone()
	}
	if s.Candidates != nil {
		c.Candidates = make([]Match, len(s.Candidates))
		for i, m := range s.Candidates {
			c.Candidates[i] = Match{Psychiatrist: m.Psychiatrist.Clone(), Score: m.Score}
		}
	}
	if s.Draft != nil {
		d := *s.Draft
		c.Draft = &d
	}
	return &c
}

// Reset returns the state to a fresh intake, keeping the session identity.
func (s *ConversationState) Reset(now time.Time) {
	logged := s.Logged
	*s = *NewConversationState(s.SessionID, s.CreatedAt)
	s.Logged = logged
	s.UpdatedAt = now
}
