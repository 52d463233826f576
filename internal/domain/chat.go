package domain

import (
	"time"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
)

// Session represents a persisted session record
type Session struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents one transcript row
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnRequest is the request to submit one patient message
type TurnRequest struct {
	Message string `json:"message" binding:"required"`
}

// TurnResponse is the result of one turn
type TurnResponse struct {
	SessionID         string   `json:"session_id"`
	Reply             string   `json:"reply"`
	Stage             Stage    `json:"stage"`
	CompletionPercent int      `json:"completion_percent"`
	Retry             bool     `json:"retry,omitempty"`
	NewTopics         []string `json:"new_topics,omitempty"`

	// Set when the reply presents them.
	Summary    *ClinicalSummary `json:"summary,omitempty"`
	Candidates []Match          `json:"candidates,omitempty"`
	Draft      *OutreachEmail   `json:"draft,omitempty"`
}

// StreamChunk represents a chunk in SSE stream
type StreamChunk struct {
	Type    string `json:"type"` // stage, content, done, error
	Content string `json:"content,omitempty"`
}

// SessionView is the patient-facing view of a session
type SessionView struct {
	SessionID              string                    `json:"session_id"`
	Stage                  Stage                     `json:"stage"`
	CompletionPercent      int                       `json:"completion_percent"`
	IntakeComplete         bool                      `json:"intake_complete"`
	PHQ9Completed          bool                      `json:"phq9_completed"`
	PHQ9Answered           int                       `json:"phq9_answered"`
	PHQ9Result             *phq9.Result              `json:"phq9_result,omitempty"`
	CoveredTopics          []string                  `json:"covered_topics"`
	Preferences            RecommendationPreferences `json:"preferences"`
	Candidates             []Match                   `json:"candidates,omitempty"`
	SelectedPsychiatristID string                    `json:"selected_psychiatrist_id,omitempty"`
	Draft                  *OutreachEmail            `json:"draft,omitempty"`
	Turns                  []Turn                    `json:"turns"`
}

// View builds the patient-facing view of s.
func (s *ConversationState) View() SessionView {
	return SessionView{
		SessionID:              s.SessionID,
		Stage:                  s.Stage,
		CompletionPercent:      s.CompletionPercent,
		IntakeComplete:         s.IntakeComplete,
		PHQ9Completed:          s.PHQ9Completed,
		PHQ9Answered:           len(s.PHQ9.Answers),
		PHQ9Result:             s.PHQ9Result,
		CoveredTopics:          s.Topics.Sorted(),
		Preferences:            s.Preferences,
		Candidates:             s.Candidates,
		SelectedPsychiatristID: s.SelectedPsychiatristID,
		Draft:                  s.Draft,
		Turns:                  s.Turns,
	}
}

// SelectionRequest selects a candidate by id
type SelectionRequest struct {
	PsychiatristID string `json:"psychiatrist_id" binding:"required"`
}

// Stats represents system statistics
type Stats struct {
	TotalSessions      int `json:"total_sessions"`
	CompletedSessions  int `json:"completed_sessions"`
	TotalBookings      int `json:"total_bookings"`
	TotalPsychiatrists int `json:"total_psychiatrists"`
}

// SessionListResponse is a page of session records
type SessionListResponse struct {
	Sessions []*Session `json:"sessions"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// BookingListResponse is a page of booking records
type BookingListResponse struct {
	Bookings []*Booking `json:"bookings"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}
