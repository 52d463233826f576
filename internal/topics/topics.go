// Package topics tracks which subjects a patient has already raised so the
// interviewer does not ask about them again.
package topics

import (
	"sort"
	"strings"
)

// Labels used by the default catalog.
const (
	Mood             = "mood"
	Sleep            = "sleep"
	Appetite         = "appetite"
	Energy           = "energy"
	Concentration    = "concentration"
	Anxiety          = "anxiety"
	SubstanceUse     = "substanceUse"
	Medications      = "medications"
	SuicidalThoughts = "suicidalThoughts"
	SelfHarm         = "selfHarm"
	Psychosis        = "psychosis"
	Trauma           = "trauma"
	FamilyHistory    = "familyHistory"
	Work             = "work"
	Relationships    = "relationships"
	PriorTreatment   = "priorTreatment"
)

// Catalog maps a topic label to the keywords that indicate it.
type Catalog map[string][]string

// DefaultCatalog is the keyword table used by the intake interview.
var DefaultCatalog = Catalog{
	Mood:             {"depress", "sad", "down", "hopeless", "empty", "mood", "crying", "tearful"},
	Sleep:            {"sleep", "insomnia", "nightmare", "awake at night", "oversleep", "tired in the morning"},
	Appetite:         {"appetite", "eating", "weight", "hungry", "overeat"},
	Energy:           {"energy", "exhausted", "fatigue", "tired", "drained"},
	Concentration:    {"concentrat", "focus", "distracted", "can't think", "memory"},
	Anxiety:          {"anxi", "panic", "worry", "worried", "nervous", "on edge"},
	SubstanceUse:     {"drink", "alcohol", "beer", "wine", "smok", "weed", "cannabis", "marijuana", "cocaine", "drug", "vaping", "vape"},
	Medications:      {"medication", "meds", "prescri", "antidepressant", "ssri", "sertraline", "fluoxetine", "lexapro", "zoloft", "prozac"},
	SuicidalThoughts: {"suicid", "kill myself", "end my life", "better off dead", "don't want to live", "want to die"},
	SelfHarm:         {"self-harm", "self harm", "cutting", "hurt myself"},
	Psychosis:        {"hallucinat", "hearing voices", "hear voices", "seeing things", "paranoi"},
	Trauma:           {"trauma", "abuse", "assault", "flashback", "ptsd"},
	FamilyHistory:    {"my mother", "my father", "my mom", "my dad", "runs in my family", "family history"},
	Work:             {"work", "job", "boss", "school", "class", "grades"},
	Relationships:    {"partner", "boyfriend", "girlfriend", "husband", "wife", "friends", "lonely", "divorce", "breakup"},
	PriorTreatment:   {"therapist", "therapy", "counsel", "psychiatrist", "hospital"},
}

// Detect returns the labels whose keywords occur in text, sorted. Matching is
// a case-insensitive substring test; no match yields an empty result.
func (c Catalog) Detect(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for label, keywords := range c {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				found = append(found, label)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

// Set is the grow-only collection of covered labels for one session.
type Set map[string]bool

// Add records labels and returns the ones that were not present before.
func (s Set) Add(labels ...string) []string {
	var added []string
	for _, l := range labels {
		if !s[l] {
			s[l] = true
			added = append(added, l)
		}
	}
	return added
}

// Has reports whether label has been covered.
func (s Set) Has(label string) bool { return s[label] }

// Sorted lists the covered labels in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone copies the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for l := range s {
		out[l] = true
	}
	return out
}

// Memory couples a catalog with a session's covered set.
type Memory struct {
	Catalog Catalog
	Covered Set
}

// NewMemory returns a Memory over covered using the default catalog. A nil
// covered set is allocated.
func NewMemory(covered Set) *Memory {
	if covered == nil {
		covered = Set{}
	}
	return &Memory{Catalog: DefaultCatalog, Covered: covered}
}

// Observe detects topics in text, adds them to the covered set and returns
// the labels that were not covered before.
func (m *Memory) Observe(text string) []string {
	return m.Covered.Add(m.Catalog.Detect(text)...)
}
