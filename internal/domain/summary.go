package domain

import "time"

// ClinicalSummary is the clinician-facing artifact produced once intake and
// screening are done. After creation it changes only through explicit edits.
type ClinicalSummary struct {
	SessionID               string      `json:"session_id"`
	ChiefComplaint          string      `json:"chief_complaint"`
	HistoryOfPresentIllness string      `json:"history_of_present_illness"`
	PastPsychiatricHistory  string      `json:"past_psychiatric_history"`
	Medications             string      `json:"medications"`
	SafetyConcerns          string      `json:"safety_concerns"`
	SubstanceUse            string      `json:"substance_use"`
	FunctionalImpact        string      `json:"functional_impact"`
	Safety                  SafetyFlags `json:"safety"`
	Symptoms                []string    `json:"symptoms"`
	Concerns                []string    `json:"concerns"`
	PHQ9Score               int         `json:"phq9_score"`
	PHQ9Severity            string      `json:"phq9_severity"`
	Narrative               string      `json:"narrative"`
	Edited                  bool        `json:"edited"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// Clone deep-copies the summary.
func (c *ClinicalSummary) Clone() *ClinicalSummary {
	out := *c
	out.Symptoms = append([]string(nil), c.Symptoms...)
	out.Concerns = append([]string(nil), c.Concerns...)
	return &out
}

// SummaryEdit is the review-form payload. Nil fields are left as they are.
type SummaryEdit struct {
	ChiefComplaint          *string  `json:"chief_complaint,omitempty"`
	HistoryOfPresentIllness *string  `json:"history_of_present_illness,omitempty"`
	PastPsychiatricHistory  *string  `json:"past_psychiatric_history,omitempty"`
	Medications             *string  `json:"medications,omitempty"`
	SafetyConcerns          *string  `json:"safety_concerns,omitempty"`
	SubstanceUse            *string  `json:"substance_use,omitempty"`
	FunctionalImpact        *string  `json:"functional_impact,omitempty"`
	Narrative               *string  `json:"narrative,omitempty"`
	Concerns                []string `json:"concerns,omitempty"`
}

// Apply writes the edit into c and marks it edited. The screening score is
// not editable.
func (e SummaryEdit) Apply(c *ClinicalSummary, now time.Time) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.ChiefComplaint, e.ChiefComplaint)
	set(&c.HistoryOfPresentIllness, e.HistoryOfPresentIllness)
	set(&c.PastPsychiatricHistory, e.PastPsychiatricHistory)
	set(&c.Medications, e.Medications)
	set(&c.SafetyConcerns, e.SafetyConcerns)
	set(&c.SubstanceUse, e.SubstanceUse)
	set(&c.FunctionalImpact, e.FunctionalImpact)
	set(&c.Narrative, e.Narrative)
	if e.Concerns != nil {
		c.Concerns = append([]string(nil), e.Concerns...)
	}
	c.Edited = true
	c.UpdatedAt = now
}
