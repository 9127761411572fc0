package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"quiz-session-service/internal/domain"
)

// Outbound event names.
const (
	EventStartQuiz         = "startQuiz"
	EventQuestionDelivered = "questionDelivered"
	EventAnswerAccepted    = "answerAccepted"
	EventQuizResults       = "quizResults"
	EventError             = "error"
)

const inboxSize = 32

// Emitter delivers outbound events to the owning connection only.
type Emitter interface {
	Emit(eventType string, payload any)
}

// JoinCommand asks to start an attempt of the quiz published under SessionCode.
type JoinCommand struct {
	SessionCode     string
	ParticipantName string
}

// AnswerCommand submits an answer. A nil SelectedIndex means no option was chosen.
type AnswerCommand struct {
	SessionCode     string
	QuestionIndex   int
	SelectedIndex   *int
	ParticipantName string
}

// QuestionCommand requests delivery of a single question.
type QuestionCommand struct {
	SessionCode   string
	QuestionIndex int
}

// FinishCommand ends the attempt and requests the report.
type FinishCommand struct {
	SessionCode string
}

// Command is one of JoinCommand, AnswerCommand, QuestionCommand or FinishCommand.
type Command interface {
	command()
}

func (JoinCommand) command()     {}
func (AnswerCommand) command()   {}
func (QuestionCommand) command() {}
func (FinishCommand) command()   {}

type StartQuizPayload struct {
	SessionCode            string                `json:"sessionCode"`
	Title                  string                `json:"title"`
	ParticipantName        string                `json:"participantName"`
	TimePerQuestionSeconds int                   `json:"timePerQuestion"`
	Questions              []domain.QuestionView `json:"questions"`
}

type AnswerAcceptedPayload struct {
	QuestionIndex  int `json:"questionIndex"`
	Answered       int `json:"answered"`
	TotalQuestions int `json:"totalQuestions"`
}

type ResultsPayload struct {
	Report domain.Report `json:"report"`
}

type ErrorPayload struct {
	Reason  domain.ErrorReason `json:"reason"`
	Message string             `json:"message"`
}

// Session is the state machine of a single connection. All of its state is
// touched only from the goroutine executing Run, so commands and the
// automatic finish are applied strictly one at a time in arrival order.
type Session struct {
	id     string
	svc    *QuizService
	out    Emitter
	logger *slog.Logger
	inbox  chan Command

	participant *Participant
	finishTimer *time.Timer
	finishC     <-chan time.Time
}

func newSession(svc *QuizService, connID string, out Emitter) *Session {
	return &Session{
		id:     connID,
		svc:    svc,
		out:    out,
		logger: svc.logger.With("conn", connID),
		inbox:  make(chan Command, inboxSize),
	}
}

// ID is the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Send queues a command behind any the session is still processing. It blocks
// while the inbox is full and returns false once ctx is done.
func (s *Session) Send(ctx context.Context, cmd Command) bool {
	select {
	case s.inbox <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run processes queued commands until ctx is canceled, which is how a
// disconnect is signalled. Any in-progress attempt is discarded on return.
func (s *Session) Run(ctx context.Context) {
	defer s.teardown(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.inbox:
			if ctx.Err() != nil {
				return
			}
			s.Handle(ctx, cmd)
		case <-s.finishC:
			s.finishC = nil
			s.finishTimer = nil
			if ctx.Err() != nil {
				return
			}
			s.safely(func() { s.finish(ctx, TriggerAutomatic) })
		}
	}
}

// Handle applies one command synchronously. It must only be called from the
// goroutine that owns the session.
func (s *Session) Handle(ctx context.Context, cmd Command) {
	s.safely(func() {
		switch c := cmd.(type) {
		case JoinCommand:
			s.join(ctx, c)
		case AnswerCommand:
			s.submitAnswer(c)
		case QuestionCommand:
			s.requestQuestion(c)
		case FinishCommand:
			if s.participant != nil && !s.sameCode(c.SessionCode) {
				return
			}
			s.finish(ctx, TriggerExplicit)
		default:
			s.logger.Warn("unknown command", "type", fmt.Sprintf("%T", cmd))
		}
	})
}

// Participant exposes the in-progress attempt, nil when not joined.
func (s *Session) Participant() *Participant {
	return s.participant
}

func (s *Session) join(ctx context.Context, cmd JoinCommand) {
	if s.participant != nil {
		s.logger.Debug("join ignored, already joined", "session", s.participant.SessionCode)
		return
	}
	code := domain.NormalizeCode(cmd.SessionCode)
	name := strings.TrimSpace(cmd.ParticipantName)

	quiz, err := s.svc.catalog.GetQuiz(ctx, code)
	if err == nil && name == "" {
		err = domain.ErrMissingName
	}
	if err != nil {
		reason := domain.ReasonFor(err)
		s.logger.Info("join rejected", "session", code, "reason", reason, "err", err)
		s.svc.observe(Transition{Kind: TransitionJoinRejected, ConnID: s.id, SessionCode: code, Reason: reason, Err: err})
		s.emitError(reason)
		return
	}

	quiz.SessionCode = code
	s.participant = newParticipant(name, quiz)
	if s.svc.roster != nil {
		if err := s.svc.roster.Attach(ctx, quiz.SessionCode, s.id); err != nil {
			s.logger.Warn("roster attach failed", "session", quiz.SessionCode, "err", err)
		}
	}
	s.svc.observe(Transition{Kind: TransitionJoined, ConnID: s.id, SessionCode: quiz.SessionCode, Participant: name})

	s.out.Emit(EventStartQuiz, StartQuizPayload{
		SessionCode:            quiz.SessionCode,
		Title:                  quiz.Title,
		ParticipantName:        name,
		TimePerQuestionSeconds: quiz.TimePerQuestionSeconds,
		Questions:              quiz.Views(),
	})
}

func (s *Session) submitAnswer(cmd AnswerCommand) {
	p := s.participant
	if p == nil || !s.sameCode(cmd.SessionCode) || !p.HasQuestion(cmd.QuestionIndex) {
		return
	}
	if p.Processed(cmd.QuestionIndex) {
		s.logger.Debug("duplicate answer ignored", "session", p.SessionCode, "question", cmd.QuestionIndex)
		s.svc.observe(Transition{
			Kind:          TransitionDuplicateAnswer,
			ConnID:        s.id,
			SessionCode:   p.SessionCode,
			Participant:   p.Name,
			QuestionIndex: cmd.QuestionIndex,
		})
		return
	}

	record, _ := p.Record(cmd.QuestionIndex, cmd.SelectedIndex)
	s.svc.observe(Transition{
		Kind:          TransitionAnswerScored,
		ConnID:        s.id,
		SessionCode:   p.SessionCode,
		Participant:   p.Name,
		QuestionIndex: cmd.QuestionIndex,
		Result:        record.Result,
		Points:        record.Points,
		Score:         p.Score,
	})
	s.out.Emit(EventAnswerAccepted, AnswerAcceptedPayload{
		QuestionIndex:  cmd.QuestionIndex,
		Answered:       p.ProcessedCount(),
		TotalQuestions: p.TotalQuestions,
	})

	if p.Complete() && s.finishTimer == nil {
		s.finishTimer = time.NewTimer(s.svc.graceDelay)
		s.finishC = s.finishTimer.C
		s.svc.observe(Transition{Kind: TransitionFinishScheduled, ConnID: s.id, SessionCode: p.SessionCode, Participant: p.Name})
	}
}

func (s *Session) requestQuestion(cmd QuestionCommand) {
	p := s.participant
	if p == nil || !s.sameCode(cmd.SessionCode) || !p.HasQuestion(cmd.QuestionIndex) {
		return
	}
	s.out.Emit(EventQuestionDelivered, p.Quiz().View(cmd.QuestionIndex))
}

// finish runs at most once per attempt: a successful finish drops the
// participant, so later finishes find nothing to report.
func (s *Session) finish(ctx context.Context, trigger Trigger) {
	p := s.participant
	if p == nil {
		s.logger.Debug("finish ignored, no attempt in progress", "trigger", trigger)
		return
	}
	s.stopFinishTimer()

	report, err := s.svc.finalizer.Finalize(ctx, p)
	if err != nil {
		s.logger.Error("finish failed", "session", p.SessionCode, "participant", p.Name, "trigger", trigger, "err", err)
		s.svc.observe(Transition{
			Kind:        TransitionFinishFailed,
			ConnID:      s.id,
			SessionCode: p.SessionCode,
			Participant: p.Name,
			Trigger:     trigger,
			Reason:      domain.ReasonFor(err),
			Err:         err,
		})
		s.emitError(domain.ReasonFor(err))
		return
	}

	s.participant = nil
	s.detach(ctx, p.SessionCode)
	s.svc.observe(Transition{
		Kind:        TransitionFinished,
		ConnID:      s.id,
		SessionCode: p.SessionCode,
		Participant: p.Name,
		Score:       report.TotalScore,
		Trigger:     trigger,
	})
	s.out.Emit(EventQuizResults, ResultsPayload{Report: report})
}

func (s *Session) teardown(ctx context.Context) {
	s.stopFinishTimer()
	abandoned := s.participant != nil
	code := ""
	if abandoned {
		code = s.participant.SessionCode
		s.detach(context.WithoutCancel(ctx), code)
		s.participant = nil
	}
	s.svc.observe(Transition{Kind: TransitionDisconnected, ConnID: s.id, SessionCode: code, Abandoned: abandoned})
}

func (s *Session) detach(ctx context.Context, code string) {
	if s.svc.roster == nil {
		return
	}
	if err := s.svc.roster.Detach(ctx, code, s.id); err != nil {
		s.logger.Warn("roster detach failed", "session", code, "err", err)
	}
}

func (s *Session) stopFinishTimer() {
	if s.finishTimer != nil {
		s.finishTimer.Stop()
	}
	s.finishTimer = nil
	s.finishC = nil
}

// sameCode accepts an empty code as referring to the joined quiz.
func (s *Session) sameCode(code string) bool {
	if s.participant == nil {
		return false
	}
	code = domain.NormalizeCode(code)
	return code == "" || code == s.participant.SessionCode
}

func (s *Session) emitError(reason domain.ErrorReason) {
	s.out.Emit(EventError, ErrorPayload{Reason: reason, Message: reason.Message()})
}

// safely keeps a panicking handler from taking down the connection.
func (s *Session) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(fmt.Sprint(r))
			s.logger.Error("panic recovered in session handler", "panic", r, "stack", string(debug.Stack()))
			s.svc.observe(Transition{Kind: TransitionInternalFault, ConnID: s.id, Reason: domain.ReasonInternalFault, Err: err})
			s.emitError(domain.ReasonInternalFault)
		}
	}()
	fn()
}
