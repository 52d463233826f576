package domain

import (
	"math"
	"sort"
	"strings"
)

// SafetyFlags are the risk indicators raised during intake. Flags are only
// ever set, never cleared, except by a session reset.
type SafetyFlags struct {
	SuicidalIdeation  bool `json:"suicidal_ideation,omitempty"`
	SelfHarm          bool `json:"self_harm,omitempty"`
	HomicidalIdeation bool `json:"homicidal_ideation,omitempty"`
	Hallucinations    bool `json:"hallucinations,omitempty"`
}

// Any reports whether any flag is set.
func (f SafetyFlags) Any() bool {
	return f.SuicidalIdeation || f.SelfHarm || f.HomicidalIdeation || f.Hallucinations
}

func (f *SafetyFlags) bits() []*bool {
	return []*bool{&f.SuicidalIdeation, &f.SelfHarm, &f.HomicidalIdeation, &f.Hallucinations}
}

// IntakeData is the partial clinical record accumulated over the interview.
// Every field is optional; an empty string means "not yet known".
type IntakeData struct {
	ChiefComplaint          string            `json:"chief_complaint,omitempty"`
	HistoryOfPresentIllness string            `json:"history_of_present_illness,omitempty"`
	PastPsychiatricHistory  string            `json:"past_psychiatric_history,omitempty"`
	Medications             string            `json:"medications,omitempty"`
	MedicationDuration      string            `json:"medication_duration,omitempty"`
	SafetyConcerns          string            `json:"safety_concerns,omitempty"`
	SubstanceUse            string            `json:"substance_use,omitempty"`
	FunctionalImpact        string            `json:"functional_impact,omitempty"`
	Age                     string            `json:"age,omitempty"`
	Gender                  string            `json:"gender,omitempty"`
	Occupation              string            `json:"occupation,omitempty"`
	SymptomDuration         map[string]string `json:"symptom_duration,omitempty"`
	SymptomSeverity         map[string]string `json:"symptom_severity,omitempty"`
	Safety                  SafetyFlags       `json:"safety"`
}

// Field describes one required intake field.
type Field struct {
	Key   string
	Label string
	get   func(IntakeData) string
}

// RequiredFields gate the Intake → PHQ-9 transition via CompletionPercent.
var RequiredFields = []Field{
	{"chief_complaint", "main reason for seeking help", func(d IntakeData) string { return d.ChiefComplaint }},
	{"history_of_present_illness", "how the current problem started and developed", func(d IntakeData) string { return d.HistoryOfPresentIllness }},
	{"past_psychiatric_history", "past mental health history or treatment", func(d IntakeData) string { return d.PastPsychiatricHistory }},
	{"medications", "current medications", func(d IntakeData) string { return d.Medications }},
	{"safety_concerns", "thoughts of self-harm or harming others", func(d IntakeData) string { return d.SafetyConcerns }},
	{"substance_use", "alcohol, tobacco or drug use", func(d IntakeData) string { return d.SubstanceUse }},
	{"functional_impact", "impact on work, school, relationships or daily life", func(d IntakeData) string { return d.FunctionalImpact }},
}

// CompletionPercent is filled required fields plus the screening flag over
// the required field count plus one, rounded to the nearest integer.
func CompletionPercent(d IntakeData, phq9Complete bool) int {
	filled := 0
	for _, f := range RequiredFields {
		if strings.TrimSpace(f.get(d)) != "" {
			filled++
		}
	}
	if phq9Complete {
		filled++
	}
	return int(math.Round(float64(filled) / float64(len(RequiredFields)+1) * 100))
}

// MissingRequired returns the labels of required fields that are still empty.
func (d IntakeData) MissingRequired() []string {
	var out []string
	for _, f := range RequiredFields {
		if strings.TrimSpace(f.get(d)) == "" {
			out = append(out, f.Label)
		}
	}
	return out
}

func (d *IntakeData) scalars() []*string {
	return []*string{
		&d.ChiefComplaint, &d.HistoryOfPresentIllness, &d.PastPsychiatricHistory,
		&d.Medications, &d.MedicationDuration, &d.SafetyConcerns, &d.SubstanceUse,
		&d.FunctionalImpact, &d.Age, &d.Gender, &d.Occupation,
	}
}

// Diff returns the part of next that is new relative to d: scalars that d
// does not know yet, map entries that are missing or different, and flags
// that d has not raised. Diffing an already-merged extraction yields an empty
// delta.
func (d IntakeData) Diff(next IntakeData) IntakeData {
	var delta IntakeData
	cur, nxt, out := d.scalars(), next.scalars(), delta.scalars()
	for i := range cur {
		if strings.TrimSpace(*cur[i]) == "" {
			*out[i] = strings.TrimSpace(*nxt[i])
		}
	}
	delta.SymptomDuration = diffMap(d.SymptomDuration, next.SymptomDuration)
	delta.SymptomSeverity = diffMap(d.SymptomSeverity, next.SymptomSeverity)
	cb, nb, ob := d.Safety.bits(), next.Safety.bits(), delta.Safety.bits()
	for i := range cb {
		*ob[i] = *nb[i] && !*cb[i]
	}
	return delta
}

// Merge applies delta: empty scalars are filled, map entries are merged key by
// key with delta winning, and safety flags are OR-ed. Nothing is cleared.
func (d *IntakeData) Merge(delta IntakeData) {
	cur, in := d.scalars(), delta.scalars()
	for i := range cur {
		v := strings.TrimSpace(*in[i])
		if v != "" && strings.TrimSpace(*cur[i]) == "" {
			*cur[i] = v
		}
	}
	d.SymptomDuration = mergeMap(d.SymptomDuration, delta.SymptomDuration)
	d.SymptomSeverity = mergeMap(d.SymptomSeverity, delta.SymptomSeverity)
	cb, db := d.Safety.bits(), delta.Safety.bits()
	for i := range cb {
		*cb[i] = *cb[i] || *db[i]
	}
}

// IsEmpty reports whether d carries no information.
func (d IntakeData) IsEmpty() bool {
	for _, p := range d.scalars() {
		if strings.TrimSpace(*p) != "" {
			return false
		}
	}
	return len(d.SymptomDuration) == 0 && len(d.SymptomSeverity) == 0 && !d.Safety.Any()
}

// Symptoms lists the symptom keys recorded in either per-symptom map.
func (d IntakeData) Symptoms() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range []map[string]string{d.SymptomDuration, d.SymptomSeverity} {
		for k := range m {
			key := strings.ToLower(strings.TrimSpace(k))
			if key != "" && !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Clone deep-copies d.
func (d IntakeData) Clone() IntakeData {
	d.SymptomDuration = copyMap(d.SymptomDuration)
	d.SymptomSeverity = copyMap(d.SymptomSeverity)
	return d
}

// RecommendationPreferences are the patient's filter criteria for matching.
// They accumulate the same way IntakeData does.
type RecommendationPreferences struct {
	Location         string `json:"location,omitempty"`
	Insurance        string `json:"insurance,omitempty"`
	GenderPreference string `json:"gender_preference,omitempty"`
	TherapyStyle     string `json:"therapy_style,omitempty"`
}

func (p *RecommendationPreferences) scalars() []*string {
	return []*string{&p.Location, &p.Insurance, &p.GenderPreference, &p.TherapyStyle}
}

// Diff returns the preferences in next that differ from p. Unlike the intake
// record, a later preference replaces an earlier one.
func (p RecommendationPreferences) Diff(next RecommendationPreferences) RecommendationPreferences {
	var delta RecommendationPreferences
	cur, nxt, out := p.scalars(), next.scalars(), delta.scalars()
	for i := range cur {
		v := strings.TrimSpace(*nxt[i])
		if v != "" && !strings.EqualFold(v, strings.TrimSpace(*cur[i])) {
			*out[i] = v
		}
	}
	return delta
}

// Merge overwrites preferences with the non-empty values of delta.
func (p *RecommendationPreferences) Merge(delta RecommendationPreferences) {
	cur, in := p.scalars(), delta.scalars()
	for i := range cur {
		if v := strings.TrimSpace(*in[i]); v != "" {
			*cur[i] = v
		}
	}
}

// IsEmpty reports whether no preference is set.
func (p RecommendationPreferences) IsEmpty() bool {
	for _, s := range p.scalars() {
		if strings.TrimSpace(*s) != "" {
			return false
		}
	}
	return true
}

func diffMap(cur, next map[string]string) map[string]string {
	var out map[string]string
	for k, v := range next {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if old, ok := cur[k]; ok && old == v {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[k] = v
	}
	return out
}

func mergeMap(cur, delta map[string]string) map[string]string {
	if len(delta) == 0 {
		return cur
	}
	if cur == nil {
		cur = make(map[string]string, len(delta))
	}
	for k, v := range delta {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		cur[k] = v
	}
	return cur
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
