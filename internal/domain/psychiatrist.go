package domain

import "time"

// Psychiatrist is read-only reference data used for matching
type Psychiatrist struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Gender          string    `json:"gender"`
	Email           string    `json:"email"`
	Specialties     []string  `json:"specialties"`
	Tags            []string  `json:"tags"`
	Location        string    `json:"location"`
	Insurance       []string  `json:"insurance"`
	InNetwork       bool      `json:"in_network"`
	Rating          float64   `json:"rating"`
	YearsExperience int       `json:"years_experience"`
	Availability    string    `json:"availability"`
	TherapyStyles   []string  `json:"therapy_styles,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Clone deep-copies the record.
func (p Psychiatrist) Clone() Psychiatrist {
	p.Specialties = append([]string(nil), p.Specialties...)
	p.Tags = append([]string(nil), p.Tags...)
	p.Insurance = append([]string(nil), p.Insurance...)
	p.TherapyStyles = append([]string(nil), p.TherapyStyles...)
	return p
}

// Match is a ranked candidate
type Match struct {
	Psychiatrist Psychiatrist `json:"psychiatrist"`
	Score        float64      `json:"score"`
}

// CreatePsychiatristRequest is the request to add a psychiatrist
type CreatePsychiatristRequest struct {
	Name            string   `json:"name" binding:"required"`
	Gender          string   `json:"gender"`
	Email           string   `json:"email" binding:"required"`
	Specialties     []string `json:"specialties"`
	Tags            []string `json:"tags"`
	Location        string   `json:"location"`
	Insurance       []string `json:"insurance"`
	InNetwork       bool     `json:"in_network"`
	Rating          float64  `json:"rating"`
	YearsExperience int      `json:"years_experience"`
	Availability    string   `json:"availability"`
	TherapyStyles   []string `json:"therapy_styles,omitempty"`
}

// UpdatePsychiatristRequest is the request to update a psychiatrist
type UpdatePsychiatristRequest struct {
	Name            string   `json:"name,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	Email           string   `json:"email,omitempty"`
	Specialties     []string `json:"specialties,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Location        string   `json:"location,omitempty"`
	Insurance       []string `json:"insurance,omitempty"`
	InNetwork       *bool    `json:"in_network,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	YearsExperience *int     `json:"years_experience,omitempty"`
	Availability    string   `json:"availability,omitempty"`
	TherapyStyles   []string `json:"therapy_styles,omitempty"`
}

// OutreachEmail is the message the patient approves before it is sent to the
// selected psychiatrist
type OutreachEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Booking is the record written when a draft is approved
type Booking struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	PsychiatristID string    `json:"psychiatrist_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
