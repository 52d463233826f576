package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/config"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/events"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/prompt"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/repository"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/session"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/stage"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/topics"
)

var tracer = otel.Tracer("intake/internal/service")

// Repositories groups the SQL repositories the services write to.
type Repositories struct {
	Sessions      *repository.SessionRepository
	Summaries     *repository.SummaryRepository
	Bookings      *repository.BookingRepository
	Psychiatrists *repository.PsychiatristRepository
}

// NewRepositories builds every repository over db.
func NewRepositories(db *repository.DB) Repositories {
	return Repositories{
		Sessions:      repository.NewSessionRepository(db),
		Summaries:     repository.NewSummaryRepository(db),
		Bookings:      repository.NewBookingRepository(db),
		Psychiatrists: repository.NewPsychiatristRepository(db),
	}
}

// IntakeService runs the patient conversation. Each turn is computed on a
// copy of the stored state and saved only when it completes, so a failed turn
// leaves the session exactly as it was.
type IntakeService struct {
	cfg        *config.Config
	store      session.Store
	repos      Repositories
	machine    *stage.Machine
	extractor  *Extractor
	responder  *Responder
	summarizer *Summarizer
	drafter    *OutreachDrafter
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *zap.Logger

	locks sync.Map // session id -> *sync.Mutex
	now   func() time.Time
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	cfg *config.Config,
	store session.Store,
	repos Repositories,
	client llm.Client,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IntakeService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &IntakeService{
		cfg:        cfg,
		store:      store,
		repos:      repos,
		machine:    stage.New(cfg.Intake.CompletionThreshold),
		extractor:  NewExtractor(client, cfg.Intake.ExtractionWindow, m, logger),
		responder:  NewResponder(client, cfg.LLM.HistoryWindow),
		summarizer: NewSummarizer(client, m, logger),
		drafter:    NewOutreachDrafter(client, m, logger),
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new session and returns the greeting.
func (s *IntakeService) Start(ctx context.Context) (*domain.TurnResponse, error) {
	now := s.now()
	state := domain.NewConversationState(uuid.New().String(), now)
	state.AppendTurn(domain.RoleAssistant, prompt.Greeting, now)

	if err := s.repos.Sessions.Create(ctx, &domain.Session{ID: state.SessionID, Stage: state.Stage}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	rows := s.transcriptRows(state, state.Turns)
	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	s.logTranscript(ctx, state.SessionID, rows)
	s.publish(ctx, events.TypeSessionStarted, state.SessionID, nil)

	s.logger.Info("session started", zap.String("session_id", state.SessionID))
	return &domain.TurnResponse{
		SessionID:         state.SessionID,
		Reply:             prompt.Greeting,
		Stage:             state.Stage,
		CompletionPercent: state.CompletionPercent,
	}, nil
}

// Get returns the patient-facing view of a session.
func (s *IntakeService) Get(ctx context.Context, id string) (*domain.SessionView, error) {
	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := state.View()
	return &view, nil
}

// Turn applies one patient message and returns the reply. If the completion
// service fails, the stored state is untouched and the error wraps
// domain.ErrUpstream; resubmitting the message retries the turn.
func (s *IntakeService) Turn(ctx context.Context, id, text string) (*domain.TurnResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidRequest)
	}
	unlock, ok := s.lock(id)
	if !ok {
		return nil, domain.ErrTurnInProgress
	}
	defer unlock()
	defer s.metrics.TurnStarted()()

	ctx, span := tracer.Start(ctx, "intake.turn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := stored.Stage
	next := stored.Clone()
	now := s.now()

	next.AppendTurn(domain.RoleUser, text, now)
	mem := topics.NewMemory(next.Topics)
	next.Topics = mem.Covered
	added := mem.Observe(text)

	if err := s.extract(ctx, next, text); err != nil {
		return nil, s.failTurn(span, from, err)
	}

	out, err := s.machine.HandleInput(next, text)
	if err != nil {
		return nil, s.failTurn(span, from, err)
	}
	if err := s.runEntryActions(ctx, next, out, text, now); err != nil {
		return nil, s.failTurn(span, from, err)
	}

	reply, err := s.responder.Respond(ctx, next, out.Directive)
	if err != nil {
		return nil, s.failTurn(span, from, err)
	}
	s.machine.ObserveReply(next, reply, out.Directive)
	next.AppendTurn(domain.RoleAssistant, reply, s.now())
	next.UpdatedAt = now

	if err := s.persistArtifacts(ctx, next, out); err != nil {
		return nil, s.failTurn(span, from, err)
	}

	rows := s.transcriptRows(next, next.Turns[len(next.Turns)-2:])
	if err := s.store.Save(ctx, next); err != nil {
		return nil, s.failTurn(span, from, fmt.Errorf("failed to save session state: %w", err))
	}
	s.logTranscript(ctx, id, rows)
	s.afterTurn(ctx, next, from, out)

	s.metrics.TurnProcessed(string(from), "ok")
	resp := &domain.TurnResponse{
		SessionID:         id,
		Reply:             reply,
		Stage:             next.Stage,
		CompletionPercent: next.CompletionPercent,
		NewTopics:         added,
	}
	switch out.Directive.Kind {
	case stage.KindPresentSummary:
		resp.Summary = next.Summary
	case stage.KindPresentRecommendations:
		resp.Candidates = next.Candidates
	case stage.KindPresentDraft:
		resp.Draft = next.Draft
	}
	return resp, nil
}

// extract merges newly extracted data for the stages that collect it. A
// message that picks a candidate is read against the list the patient saw, so
// it does not re-rank.
func (s *IntakeService) extract(ctx context.Context, state *domain.ConversationState, text string) error {
	switch state.Stage {
	case domain.StageIntake:
		delta, err := s.extractor.Intake(ctx, state)
		if err != nil {
			return err
		}
		state.Intake.Merge(delta)
	case domain.StageRecommendation:
		if stage.ParseSelection(text, state.Candidates) != "" {
			return nil
		}
		delta, err := s.extractor.Preferences(ctx, state)
		if err != nil {
			return err
		}
		if delta.IsEmpty() {
			return nil
		}
		state.Preferences.Merge(delta)
		return s.rank(ctx, state)
	}
	return nil
}

func (s *IntakeService) runEntryActions(ctx context.Context, state *domain.ConversationState, out stage.Outcome, text string, now time.Time) error {
	for _, entered := range out.Entered {
		switch entered {
		case domain.StageSummary:
			summary, err := s.summarizer.Summarize(ctx, state, now)
			if err != nil {
				return err
			}
			state.Summary = summary
		case domain.StageRecommendation:
			if err := s.rank(ctx, state); err != nil {
				return err
			}
		case domain.StageBooking:
			if err := s.draft(ctx, state, ""); err != nil {
				return err
			}
		}
	}
	if out.Redraft {
		return s.draft(ctx, state, text)
	}
	return nil
}

func (s *IntakeService) rank(ctx context.Context, state *domain.ConversationState) error {
	pool, err := s.repos.Psychiatrists.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load psychiatrists: %w", err)
	}
	state.Candidates = Rank(state.Summary, state.Preferences, pool, s.cfg.Intake.TopN)
	return nil
}

// draft writes, or with notes revises, the outreach email for the selected
// psychiatrist.
func (s *IntakeService) draft(ctx context.Context, state *domain.ConversationState, notes string) error {
	p := selected(state)
	if p == nil {
		return fmt.Errorf("%w: no psychiatrist selected", domain.ErrIllegalTransition)
	}
	var (
		email *domain.OutreachEmail
		err   error
	)
	if notes == "" {
		email, err = s.drafter.Draft(ctx, state, p)
	} else {
		email, err = s.drafter.Revise(ctx, state, p, notes)
	}
	if err != nil {
		return err
	}
	state.Draft = email
	return nil
}

// persistArtifacts writes the summary and booking produced this turn. It runs
// before the state is saved so a failure leaves nothing half-done.
func (s *IntakeService) persistArtifacts(ctx context.Context, state *domain.ConversationState, out stage.Outcome) error {
	for _, entered := range out.Entered {
		if entered == domain.StageSummary && state.Summary != nil {
			if err := s.repos.Summaries.Upsert(ctx, state.Summary); err != nil {
				return fmt.Errorf("failed to save summary: %w", err)
			}
		}
	}
	if out.BookingApproved {
		return s.recordBooking(ctx, state)
	}
	return nil
}

func (s *IntakeService) recordBooking(ctx context.Context, state *domain.ConversationState) error {
	booking := &domain.Booking{
		SessionID:      state.SessionID,
		PsychiatristID: state.SelectedPsychiatristID,
		Subject:        state.Draft.Subject,
		Body:           state.Draft.Body,
	}
	inserted, err := s.repos.Bookings.Create(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	if !inserted {
		s.logger.Warn("booking already recorded", zap.String("session_id", state.SessionID))
	}
	return nil
}

// afterTurn does the best-effort bookkeeping once the new state is saved.
func (s *IntakeService) afterTurn(ctx context.Context, state *domain.ConversationState, from domain.Stage, out stage.Outcome) {
	if state.Stage != from {
		if err := s.repos.Sessions.UpdateStage(ctx, state.SessionID, state.Stage); err != nil {
			s.logger.Warn("failed to update session stage", zap.String("session_id", state.SessionID), zap.Error(err))
		}
		s.publish(ctx, events.TypeStageChanged, state.SessionID, map[string]any{"from": string(from), "to": string(state.Stage)})
	}
	for _, entered := range out.Entered {
		s.metrics.StageEntered(string(entered))
		switch entered {
		case domain.StageSummary:
			s.publish(ctx, events.TypeSummaryCreated, state.SessionID, map[string]any{
				"phq9_score":    state.Summary.PHQ9Score,
				"phq9_severity": state.Summary.PHQ9Severity,
				"safety_flag":   state.Summary.Safety.Any(),
			})
		case domain.StageComplete:
			s.publish(ctx, events.TypeSessionCompleted, state.SessionID, nil)
		}
	}
	if out.BookingApproved {
		s.bookingApproved(ctx, state)
	}
}

func (s *IntakeService) bookingApproved(ctx context.Context, state *domain.ConversationState) {
	s.metrics.BookingApproved()
	data := map[string]any{"psychiatrist_id": state.SelectedPsychiatristID}
	if p := selected(state); p != nil {
		data["psychiatrist_email"] = p.Email
	}
	if state.Draft != nil {
		data["subject"] = state.Draft.Subject
		data["body"] = state.Draft.Body
	}
	s.publish(ctx, events.TypeBookingApproved, state.SessionID, data)
	s.logger.Info("booking approved",
		zap.String("session_id", state.SessionID),
		zap.String("psychiatrist_id", state.SelectedPsychiatristID),
	)
}

func (s *IntakeService) failTurn(span trace.Span, from domain.Stage, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrUpstream):
		outcome = "upstream_error"
	case errors.Is(err, domain.ErrNotConfigured):
		outcome = "not_configured"
	}
	s.metrics.TurnProcessed(string(from), outcome)
	span.RecordError(err)
	s.logger.Warn("turn failed, state unchanged", zap.String("stage", string(from)), zap.Error(err))
	return err
}

// Summary returns the clinical summary for review. The stage does not change.
func (s *IntakeService) Summary(ctx context.Context, id string) (*domain.ClinicalSummary, error) {
	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Summary == nil {
		return nil, fmt.Errorf("%w: summary not generated yet", domain.ErrAssessmentIncomplete)
	}
	return state.Summary, nil
}

// EditSummary applies the patient's edits from the review form.
func (s *IntakeService) EditSummary(ctx context.Context, id string, edit domain.SummaryEdit) (*domain.ClinicalSummary, error) {
	var out *domain.ClinicalSummary
	err := s.withState(ctx, id, func(state *domain.ConversationState) error {
		if state.Summary == nil {
			return fmt.Errorf("%w: summary not generated yet", domain.ErrAssessmentIncomplete)
		}
		edit.Apply(state.Summary, s.now())
		if err := s.repos.Summaries.Upsert(ctx, state.Summary); err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
		return nil
	}, func(state *domain.ConversationState) { out = state.Summary })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recommendations returns the ranked candidates.
func (s *IntakeService) Recommendations(ctx context.Context, id string) ([]domain.Match, error) {
	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Stage.Order() < domain.StageRecommendation.Order() {
		return nil, fmt.Errorf("%w: recommendations are not available in stage %s", domain.ErrIllegalTransition, state.Stage)
	}
	if state.Candidates == nil {
		return []domain.Match{}, nil
	}
	return state.Candidates, nil
}

// Select picks a candidate outside the chat and drafts the outreach email.
func (s *IntakeService) Select(ctx context.Context, id, psychiatristID string) (*domain.SessionView, error) {
	return s.mutateView(ctx, id, func(state *domain.ConversationState) error {
		if err := s.machine.Select(state, psychiatristID); err != nil {
			return err
		}
		return s.draft(ctx, state, "")
	}, domain.StageBooking)
}

// UpdateDraft replaces the outreach email with the patient's own edit.
func (s *IntakeService) UpdateDraft(ctx context.Context, id string, email domain.OutreachEmail) (*domain.SessionView, error) {
	if strings.TrimSpace(email.Subject) == "" || strings.TrimSpace(email.Body) == "" {
		return nil, fmt.Errorf("%w: subject and body are required", domain.ErrInvalidRequest)
	}
	return s.mutateView(ctx, id, func(state *domain.ConversationState) error {
		if state.Stage != domain.StageBooking {
			return fmt.Errorf("%w: no draft outside booking stage", domain.ErrIllegalTransition)
		}
		state.Draft = &domain.OutreachEmail{Subject: strings.TrimSpace(email.Subject), Body: strings.TrimSpace(email.Body)}
		return nil
	}, "")
}

// ApproveBooking approves the current draft and completes the session.
func (s *IntakeService) ApproveBooking(ctx context.Context, id string) (*domain.SessionView, error) {
	var approved *domain.ConversationState
	view, err := s.mutateView(ctx, id, func(state *domain.ConversationState) error {
		if err := s.machine.Approve(state); err != nil {
			return err
		}
		if err := s.recordBooking(ctx, state); err != nil {
			return err
		}
		approved = state
		return nil
	}, domain.StageComplete)
	if err != nil {
		return nil, err
	}
	s.bookingApproved(ctx, approved)
	s.publish(ctx, events.TypeSessionCompleted, id, nil)
	return view, nil
}

// Reset discards everything collected and returns the session to intake.
func (s *IntakeService) Reset(ctx context.Context, id string) (*domain.SessionView, error) {
	var rows []*domain.Message
	view, err := s.mutateView(ctx, id, func(state *domain.ConversationState) error {
		now := s.now()
		state.Reset(now)
		state.AppendTurn(domain.RoleAssistant, prompt.Greeting, now)
		rows = s.transcriptRows(state, state.Turns)
		return nil
	}, domain.StageIntake)
	if err != nil {
		return nil, err
	}
	s.logTranscript(ctx, id, rows)
	return view, nil
}

// End discards the session's live state. Persisted records are kept.
func (s *IntakeService) End(ctx context.Context, id string) error {
	unlock, ok := s.lock(id)
	if !ok {
		return domain.ErrTurnInProgress
	}
	defer unlock()
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	s.locks.Delete(id)
	return nil
}

func (s *IntakeService) mutateView(ctx context.Context, id string, fn func(*domain.ConversationState) error, entered domain.Stage) (*domain.SessionView, error) {
	var view domain.SessionView
	err := s.withState(ctx, id, fn, func(state *domain.ConversationState) {
		view = state.View()
	})
	if err != nil {
		return nil, err
	}
	if entered != "" {
		s.metrics.StageEntered(string(entered))
	}
	return &view, nil
}

// withState runs fn on a copy of the stored state under the session lock and
// saves the copy only when fn succeeds.
func (s *IntakeService) withState(ctx context.Context, id string, fn func(*domain.ConversationState) error, done func(*domain.ConversationState)) error {
	unlock, ok := s.lock(id)
	if !ok {
		return domain.ErrTurnInProgress
	}
	defer unlock()

	stored, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	from := stored.Stage
	next := stored.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = s.now()
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	if next.Stage != from {
		if err := s.repos.Sessions.UpdateStage(ctx, id, next.Stage); err != nil {
			s.logger.Warn("failed to update session stage", zap.String("session_id", id), zap.Error(err))
		}
		s.publish(ctx, events.TypeStageChanged, id, map[string]any{"from": string(from), "to": string(next.Stage)})
	}
	done(next)
	return nil
}

func (s *IntakeService) lock(id string) (func(), bool) {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// load reads the state of a locked session. An unknown id drops its lock
// entry so that lookups of missing sessions leave nothing behind.
func (s *IntakeService) load(ctx context.Context, id string) (*domain.ConversationState, error) {
	state, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.locks.Delete(id)
	}
	return state, err
}

// PruneLocks drops the lock entries of sessions that are no longer stored,
// for example after their TTL expired. Entries held by a running turn are
// skipped. It returns the number removed.
func (s *IntakeService) PruneLocks(ctx context.Context) int {
	removed := 0
	s.locks.Range(func(k, v any) bool {
		mu := v.(*sync.Mutex)
		if !mu.TryLock() {
			return true
		}
		defer mu.Unlock()
		if _, err := s.store.Get(ctx, k.(string)); errors.Is(err, domain.ErrNotFound) {
			s.locks.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// transcriptRows numbers turns for the transcript log and advances
// state.Logged, which is saved with the state.
func (s *IntakeService) transcriptRows(state *domain.ConversationState, turns []domain.Turn) []*domain.Message {
	rows := make([]*domain.Message, 0, len(turns))
	for _, t := range turns {
		rows = append(rows, &domain.Message{
			ID:        uuid.New().String(),
			SessionID: state.SessionID,
			Seq:       state.Logged,
			Role:      t.Role,
			Content:   t.Content,
			Stage:     state.Stage,
			CreatedAt: t.At,
		})
		state.Logged++
	}
	return rows
}

func (s *IntakeService) logTranscript(ctx context.Context, id string, rows []*domain.Message) {
	if len(rows) == 0 {
		return
	}
	if err := s.repos.Sessions.AppendMessages(ctx, rows...); err != nil {
		s.logger.Warn("failed to append transcript", zap.String("session_id", id), zap.Error(err))
	}
}

func (s *IntakeService) publish(ctx context.Context, typ, id string, data map[string]any) {
	e := events.Event{Type: typ, SessionID: id, At: s.now(), Data: data}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", typ), zap.String("session_id", id), zap.Error(err))
	}
}

func selected(state *domain.ConversationState) *domain.Psychiatrist {
	for i := range state.Candidates {
		if state.Candidates[i].Psychiatrist.ID == state.SelectedPsychiatristID {
			return &state.Candidates[i].Psychiatrist
		}
	}
	return nil
}

// StreamTurn runs a turn and delivers the reply as a stream: the resulting
// stage, the reply sentence by sentence, then done. The turn completes before
// anything is streamed, so errors are returned directly.
func (s *IntakeService) StreamTurn(ctx context.Context, id, text string) (<-chan domain.StreamChunk, error) {
	resp, err := s.Turn(ctx, id, text)
	if err != nil {
		return nil, err
	}
	sentences := SplitSentences(resp.Reply)
	ch := make(chan domain.StreamChunk, len(sentences)+2)
	go func() {
		defer close(ch)
		ch <- domain.StreamChunk{Type: "stage", Content: string(resp.Stage)}
		for i, sentence := range sentences {
			if i > 0 {
				sentence = " " + sentence
			}
			select {
			case ch <- domain.StreamChunk{Type: "content", Content: sentence}:
			case <-ctx.Done():
				return
			}
		}
		ch <- domain.StreamChunk{Type: "done"}
	}()
	return ch, nil
}
