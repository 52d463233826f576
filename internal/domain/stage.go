package domain

// Stage is the active phase of the guided conversation.
type Stage string

const (
	StageIntake         Stage = "intake"
	StagePHQ9           Stage = "phq9"
	StageSummary        Stage = "summary"
	StageRecommendation Stage = "recommendation"
	StageBooking        Stage = "booking"
	StageComplete       Stage = "complete"
)

// Order is the position of s in the forward sequence, or -1 if s is unknown.
func (s Stage) Order() int {
	switch s {
	case StageIntake:
		return 0
	case StagePHQ9:
		return 1
	case StageSummary:
		return 2
	case StageRecommendation:
		return 3
	case StageBooking:
		return 4
	case StageComplete:
		return 5
	default:
		return -1
	}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool { return s.Order() >= 0 }

// Expectation names the yes/no-style prompt the assistant asked in its last
// reply. The next user message is parsed against it and it is then cleared.
type Expectation string

const (
	ExpectNone                Expectation = ""
	ExpectAnythingElse        Expectation = "anything_else"
	ExpectReviewSummary       Expectation = "review_summary"
	ExpectWantRecommendations Expectation = "want_recommendations"
	ExpectChooseCandidate     Expectation = "choose_candidate"
	ExpectApproveDraft        Expectation = "approve_draft"
)
