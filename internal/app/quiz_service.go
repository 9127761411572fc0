package app

import (
	"context"
	"log/slog"
	"time"

	"quiz-session-service/internal/domain"
)

// DefaultGraceDelay is the pause between scoring the last question and the automatic finish.
const DefaultGraceDelay = 500 * time.Millisecond

// QuizCatalog resolves session codes to quiz definitions.
type QuizCatalog interface {
	GetQuiz(ctx context.Context, code string) (domain.Quiz, error)
}

// Roster tracks which connections are currently attached to a session code.
type Roster interface {
	Attach(ctx context.Context, code, connID string) error
	Detach(ctx context.Context, code, connID string) error
	Count(ctx context.Context, code string) (int, error)
}

// QuizService holds the collaborators shared by every connection.
type QuizService struct {
	catalog    QuizCatalog
	finalizer  *Finalizer
	roster     Roster
	observer   Observer
	logger     *slog.Logger
	graceDelay time.Duration
	now        func() time.Time
}

// Option customizes a QuizService.
type Option func(*QuizService)

func WithRoster(r Roster) Option {
	return func(s *QuizService) { s.roster = r }
}

func WithObserver(o Observer) Option {
	return func(s *QuizService) { s.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *QuizService) { s.logger = l }
}

// WithGraceDelay overrides DefaultGraceDelay. Non-positive values are ignored.
func WithGraceDelay(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.graceDelay = d
		}
	}
}

// WithClock is used by tests for deterministic report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(catalog QuizCatalog, results ResultStore, opts ...Option) *QuizService {
	s := &QuizService{
		catalog:    catalog,
		observer:   nopObserver{},
		logger:     slog.Default(),
		graceDelay: DefaultGraceDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.finalizer = NewFinalizer(results, s.now)
	return s
}

// Connect creates the session actor for a new connection. The caller must
// run it with Run and feed it with Send.
func (s *QuizService) Connect(connID string, out Emitter) *Session {
	session := newSession(s, connID, out)
	s.observe(Transition{Kind: TransitionConnected, ConnID: connID})
	return session
}

// Meta returns the public summary of the quiz published under code.
func (s *QuizService) Meta(ctx context.Context, code string) (domain.QuizMeta, error) {
	quiz, err := s.catalog.GetQuiz(ctx, domain.NormalizeCode(code))
	if err != nil {
		return domain.QuizMeta{}, err
	}
	return quiz.Meta(), nil
}

// ParticipantCount returns how many live connections have joined code.
// It is zero when no roster is configured.
func (s *QuizService) ParticipantCount(ctx context.Context, code string) (int, error) {
	if s.roster == nil {
		return 0, nil
	}
	return s.roster.Count(ctx, domain.NormalizeCode(code))
}

func (s *QuizService) observe(t Transition) {
	if t.At.IsZero() {
		t.At = s.now()
	}
	s.observer.Observe(t)
}
