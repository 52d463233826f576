// Package phq9 implements the nine-item depression screening instrument:
// the fixed item list, free-text answer parsing, scoring and severity bands.
package phq9

import (
	"errors"
	"fmt"
)

// ItemCount is the number of items in the instrument.
const ItemCount = 9

// MaxItemScore is the highest value a single item can take.
const MaxItemScore = 3

var (
	// ErrIncomplete is returned when fewer than ItemCount answers are present.
	ErrIncomplete = errors.New("phq9: assessment incomplete")
	// ErrTooManyItems is returned when more than ItemCount answers are supplied.
	ErrTooManyItems = errors.New("phq9: more than 9 responses")
	// ErrOutOfRange is returned for an item value outside [0,3].
	ErrOutOfRange = errors.New("phq9: item value out of range")
)

// Items are asked in this order. The wording is what the patient is asked
// about ("over the last two weeks, how often have you been bothered by ...").
var Items = [ItemCount]string{
	"Little interest or pleasure in doing things",
	"Feeling down, depressed, or hopeless",
	"Trouble falling or staying asleep, or sleeping too much",
	"Feeling tired or having little energy",
	"Poor appetite or overeating",
	"Feeling bad about yourself, or that you are a failure or have let yourself or your family down",
	"Trouble concentrating on things, such as reading the newspaper or watching television",
	"Moving or speaking so slowly that other people could have noticed, or the opposite, being so fidgety or restless that you have been moving around a lot more than usual",
	"Thoughts that you would be better off dead, or of hurting yourself in some way",
}

// Severity is the band a total score falls into.
type Severity string

const (
	SeverityMinimal          Severity = "Minimal"
	SeverityMild             Severity = "Mild"
	SeverityModerate         Severity = "Moderate"
	SeverityModeratelySevere Severity = "Moderately Severe"
	SeveritySevere           Severity = "Severe"
)

// Rank orders severities from Minimal (0) to Severe (4).
func (s Severity) Rank() int {
	switch s {
	case SeverityMinimal:
		return 0
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeverityModeratelySevere:
		return 3
	case SeveritySevere:
		return 4
	default:
		return -1
	}
}

// SeverityFor maps a total score to its band. Bands start at 5, 10, 15 and 20.
func SeverityFor(score int) Severity {
	switch {
	case score >= 20:
		return SeveritySevere
	case score >= 15:
		return SeverityModeratelySevere
	case score >= 10:
		return SeverityModerate
	case score >= 5:
		return SeverityMild
	default:
		return SeverityMinimal
	}
}

// Score sums a complete set of answers. It refuses partial sets and never
// truncates or averages oversized ones.
func Score(answers []int) (int, error) {
	switch {
	case len(answers) < ItemCount:
		return 0, fmt.Errorf("%w: %d of %d answered", ErrIncomplete, len(answers), ItemCount)
	case len(answers) > ItemCount:
		return 0, fmt.Errorf("%w: got %d", ErrTooManyItems, len(answers))
	}
	total := 0
	for i, v := range answers {
		if v < 0 || v > MaxItemScore {
			return 0, fmt.Errorf("%w: item %d = %d", ErrOutOfRange, i+1, v)
		}
		total += v
	}
	return total, nil
}

// Result is a scored assessment.
type Result struct {
	Score    int      `json:"score"`
	Severity Severity `json:"severity"`
}

// Assessment accumulates answers one item at a time.
type Assessment struct {
	Answers []int `json:"answers"`
}

// Record appends the answer for the next unanswered item.
func (a *Assessment) Record(value int) error {
	if value < 0 || value > MaxItemScore {
		return fmt.Errorf("%w: %d", ErrOutOfRange, value)
	}
	if len(a.Answers) >= ItemCount {
		return ErrTooManyItems
	}
	a.Answers = append(a.Answers, value)
	return nil
}

// Complete reports whether all items have an answer.
func (a Assessment) Complete() bool {
	return len(a.Answers) == ItemCount
}

// NextItem is the zero-based index of the item to ask next, or ItemCount
// once the assessment is complete.
func (a Assessment) NextItem() int {
	if len(a.Answers) > ItemCount {
		return ItemCount
	}
	return len(a.Answers)
}

// Result scores the assessment. Partial assessments return ErrIncomplete.
func (a Assessment) Result() (Result, error) {
	score, err := Score(a.Answers)
	if err != nil {
		return Result{}, err
	}
	return Result{Score: score, Severity: SeverityFor(score)}, nil
}

// Clone returns a copy that shares no memory with a.
func (a Assessment) Clone() Assessment {
	if a.Answers == nil {
		return Assessment{}
	}
	return Assessment{Answers: append([]int(nil), a.Answers...)}
}
