// Package stage is the conversation state machine. It decides, turn by turn,
// which stage is active and what the next reply must do. It performs no I/O;
// entry actions that need the completion service or the store are reported in
// the Outcome and run by the caller.
package stage

import (
	"fmt"
	"strings"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/phq9"
)

// DefaultThreshold is the completion percentage that allows leaving intake.
const DefaultThreshold = 75

// Kind tells the response generator what the next reply has to accomplish.
type Kind string

const (
	KindContinueIntake         Kind = "continue_intake"
	KindAskAnythingElse        Kind = "ask_anything_else"
	KindAskPHQ9Item            Kind = "ask_phq9_item"
	KindRepeatPHQ9Item         Kind = "repeat_phq9_item"
	KindOfferSummaryReview     Kind = "offer_summary_review"
	KindPresentSummary         Kind = "present_summary"
	KindAskWantRecommendations Kind = "ask_want_recommendations"
	KindPresentRecommendations Kind = "present_recommendations"
	KindPresentDraft           Kind = "present_draft"
	KindAskDraftChanges        Kind = "ask_draft_changes"
	KindBookingConfirmed       Kind = "booking_confirmed"
	KindClosing                Kind = "closing"
)

// Directive is what the next assistant reply must do.
type Directive struct {
	Kind Kind
	// Item is the zero-based screening item for the PHQ-9 kinds.
	Item int
	// Missing lists required intake fields that are still empty.
	Missing []string
	// Expect is the prompt this reply poses; it scopes the next user message.
	Expect domain.Expectation
}

// Outcome is the result of applying one user message.
type Outcome struct {
	Directive Directive
	// Entered lists stages entered during this turn, in order.
	Entered []domain.Stage
	// Redraft asks the caller to revise the outreach draft using the message.
	Redraft bool
	// BookingApproved is set when the draft was approved this turn.
	BookingApproved bool
}

var edges = map[domain.Stage][]domain.Stage{
	domain.StageIntake:         {domain.StagePHQ9},
	domain.StagePHQ9:           {domain.StageSummary},
	domain.StageSummary:        {domain.StageRecommendation, domain.StageComplete},
	domain.StageRecommendation: {domain.StageBooking, domain.StageComplete},
	domain.StageBooking:        {domain.StageComplete},
}

// CanAdvance reports whether from → to is a legal transition.
func CanAdvance(from, to domain.Stage) bool {
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Advance moves s to the next stage. It is the only place Stage changes apart
// from an explicit reset.
func Advance(s *domain.ConversationState, to domain.Stage) error {
	if !CanAdvance(s.Stage, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, s.Stage, to)
	}
	s.Stage = to
	return nil
}

// Machine applies user messages to a ConversationState.
type Machine struct {
	Threshold int
}

// New creates a Machine. A non-positive threshold uses DefaultThreshold.
func New(threshold int) *Machine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Machine{Threshold: threshold}
}

// HandleInput applies text to s. The caller has already appended the user
// turn and merged whatever was extracted from it. The pending expectation is
// consumed: it only ever applies to the message right after the prompt.
func (m *Machine) HandleInput(s *domain.ConversationState, text string) (Outcome, error) {
	pending := s.Pending
	s.Pending = domain.ExpectNone
	s.RefreshCompletion()

	switch s.Stage {
	case domain.StageIntake:
		return m.intake(s, text, pending)
	case domain.StagePHQ9:
		return m.phq9(s, text)
	case domain.StageSummary:
		return m.summary(s, text, pending)
	case domain.StageRecommendation:
		return m.recommendation(s, text, pending)
	case domain.StageBooking:
		return m.booking(s, text, pending)
	case domain.StageComplete:
		if WantsSummaryReview(text) && s.Summary != nil {
			return Outcome{Directive: Directive{Kind: KindPresentSummary}}, nil
		}
		return Outcome{Directive: Directive{Kind: KindClosing}}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: unknown stage %q", domain.ErrIllegalTransition, s.Stage)
	}
}

func (m *Machine) intake(s *domain.ConversationState, text string, pending domain.Expectation) (Outcome, error) {
	ready := pending == domain.ExpectAnythingElse && IsClosure(text)
	s.PatientReadyForSummary = ready

	if s.CompletionPercent < m.Threshold {
		return Outcome{Directive: Directive{Kind: KindContinueIntake, Missing: s.Intake.MissingRequired()}}, nil
	}
	if !ready {
		if pending == domain.ExpectAnythingElse {
			// they answered the prompt with more to say
			return Outcome{Directive: Directive{Kind: KindContinueIntake, Missing: s.Intake.MissingRequired()}}, nil
		}
		return Outcome{Directive: Directive{Kind: KindAskAnythingElse, Expect: domain.ExpectAnythingElse}}, nil
	}

	if err := Advance(s, domain.StagePHQ9); err != nil {
		return Outcome{}, err
	}
	s.IntakeComplete = true
	return Outcome{
		Directive: Directive{Kind: KindAskPHQ9Item, Item: s.PHQ9.NextItem()},
		Entered:   []domain.Stage{domain.StagePHQ9},
	}, nil
}

func (m *Machine) phq9(s *domain.ConversationState, text string) (Outcome, error) {
	value, ok := phq9.ParseAnswer(text)
	if !ok {
		return Outcome{Directive: Directive{Kind: KindRepeatPHQ9Item, Item: s.PHQ9.NextItem()}}, nil
	}
	if err := s.PHQ9.Record(value); err != nil {
		return Outcome{}, err
	}
	if !s.PHQ9.Complete() {
		return Outcome{Directive: Directive{Kind: KindAskPHQ9Item, Item: s.PHQ9.NextItem()}}, nil
	}

	res, err := s.PHQ9.Result()
	if err != nil {
		return Outcome{}, err
	}
	if err := Advance(s, domain.StageSummary); err != nil {
		return Outcome{}, err
	}
	s.PHQ9Result = &res
	s.PHQ9Completed = true
	s.RefreshCompletion()
	return Outcome{
		Directive: Directive{Kind: KindOfferSummaryReview, Expect: domain.ExpectReviewSummary},
		Entered:   []domain.Stage{domain.StageSummary},
	}, nil
}

func (m *Machine) summary(s *domain.ConversationState, text string, pending domain.Expectation) (Outcome, error) {
	answer := ParseYesNo(text)
	switch pending {
	case domain.ExpectReviewSummary:
		switch answer {
		case Yes:
			return Outcome{Directive: Directive{Kind: KindPresentSummary, Expect: domain.ExpectWantRecommendations}}, nil
		case No:
			return m.enterRecommendation(s)
		}
		return Outcome{Directive: Directive{Kind: KindOfferSummaryReview, Expect: domain.ExpectReviewSummary}}, nil

	case domain.ExpectWantRecommendations:
		switch answer {
		case Yes:
			return m.enterRecommendation(s)
		case No:
			if err := Advance(s, domain.StageComplete); err != nil {
				return Outcome{}, err
			}
			return Outcome{Directive: Directive{Kind: KindClosing}, Entered: []domain.Stage{domain.StageComplete}}, nil
		}
		return Outcome{Directive: Directive{Kind: KindAskWantRecommendations, Expect: domain.ExpectWantRecommendations}}, nil
	}

	if WantsSummaryReview(text) {
		return Outcome{Directive: Directive{Kind: KindPresentSummary, Expect: domain.ExpectWantRecommendations}}, nil
	}
	return Outcome{Directive: Directive{Kind: KindAskWantRecommendations, Expect: domain.ExpectWantRecommendations}}, nil
}

func (m *Machine) enterRecommendation(s *domain.ConversationState) (Outcome, error) {
	if err := Advance(s, domain.StageRecommendation); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Directive: Directive{Kind: KindPresentRecommendations, Expect: domain.ExpectChooseCandidate},
		Entered:   []domain.Stage{domain.StageRecommendation},
	}, nil
}

func (m *Machine) recommendation(s *domain.ConversationState, text string, pending domain.Expectation) (Outcome, error) {
	if id := ParseSelection(text, s.Candidates); id != "" {
		if err := m.Select(s, id); err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Directive: Directive{Kind: KindPresentDraft, Expect: domain.ExpectApproveDraft},
			Entered:   []domain.Stage{domain.StageBooking},
		}, nil
	}
	if WantsSummaryReview(text) && s.Summary != nil {
		return Outcome{Directive: Directive{Kind: KindPresentSummary, Expect: pending}}, nil
	}
	if pending == domain.ExpectChooseCandidate && ParseYesNo(text) == No {
		if err := Advance(s, domain.StageComplete); err != nil {
			return Outcome{}, err
		}
		return Outcome{Directive: Directive{Kind: KindClosing}, Entered: []domain.Stage{domain.StageComplete}}, nil
	}
	return Outcome{Directive: Directive{Kind: KindPresentRecommendations, Expect: domain.ExpectChooseCandidate}}, nil
}

func (m *Machine) booking(s *domain.ConversationState, text string, pending domain.Expectation) (Outcome, error) {
	if WantsSummaryReview(text) && s.Summary != nil {
		return Outcome{Directive: Directive{Kind: KindPresentSummary, Expect: pending}}, nil
	}
	switch ParseYesNo(text) {
	case Yes:
		if err := m.Approve(s); err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Directive:       Directive{Kind: KindBookingConfirmed},
			Entered:         []domain.Stage{domain.StageComplete},
			BookingApproved: true,
		}, nil
	case No:
		return Outcome{Directive: Directive{Kind: KindAskDraftChanges}}, nil
	}
	return Outcome{
		Directive: Directive{Kind: KindPresentDraft, Expect: domain.ExpectApproveDraft},
		Redraft:   true,
	}, nil
}

// Select records the chosen candidate and moves to Booking.
func (m *Machine) Select(s *domain.ConversationState, psychiatristID string) error {
	if s.Stage != domain.StageRecommendation {
		return fmt.Errorf("%w: selection outside recommendation stage", domain.ErrIllegalTransition)
	}
	found := false
	for _, c := range s.Candidates {
		if c.Psychiatrist.ID == psychiatristID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: psychiatrist %s is not a candidate", domain.ErrNotFound, psychiatristID)
	}
	if err := Advance(s, domain.StageBooking); err != nil {
		return err
	}
	s.SelectedPsychiatristID = psychiatristID
	s.Draft = nil
	return nil
}

// Approve accepts the outreach draft and completes the session. There is no
// path to Complete from Booking that skips this.
func (m *Machine) Approve(s *domain.ConversationState) error {
	if s.Stage != domain.StageBooking {
		return fmt.Errorf("%w: approval outside booking stage", domain.ErrIllegalTransition)
	}
	if s.Draft == nil || strings.TrimSpace(s.Draft.Body) == "" {
		return fmt.Errorf("%w: no draft to approve", domain.ErrIllegalTransition)
	}
	return Advance(s, domain.StageComplete)
}

// ObserveReply records what the delivered reply asked, so the next user
// message is read against it.
func (m *Machine) ObserveReply(s *domain.ConversationState, reply string, d Directive) {
	s.Pending = d.Expect
	if s.Stage == domain.StageIntake && s.Pending == domain.ExpectNone &&
		strings.Contains(strings.ToLower(reply), "anything else") {
		s.Pending = domain.ExpectAnythingElse
	}
}
