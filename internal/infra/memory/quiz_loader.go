package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-session-service/internal/domain"
)

// QuizLoader fetches quiz definitions from a backing store (Postgres, a YAML file, ...).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, code string) (domain.Quiz, error)
}

// StaticQuizLoader is a loader backed by an in-memory map keyed by normalized session code.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes []domain.Quiz) *StaticQuizLoader {
	byCode := make(map[string]domain.Quiz, len(quizzes))
	for _, quiz := range quizzes {
		quiz.SessionCode = domain.NormalizeCode(quiz.SessionCode)
		byCode[quiz.SessionCode] = quiz
	}
	return &StaticQuizLoader{quizzes: byCode}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, code string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[domain.NormalizeCode(code)]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// Quizzes returns every definition held by the loader.
func (l *StaticQuizLoader) Quizzes() []domain.Quiz {
	out := make([]domain.Quiz, 0, len(l.quizzes))
	for _, quiz := range l.quizzes {
		out = append(out, quiz)
	}
	return out
}

type quizFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// LoadQuizFile reads and validates a YAML catalog of the form:
//
//	quizzes:
//	  - sessionCode: ABC123
//	    title: Arithmetic
//	    timePerQuestionSeconds: 20
//	    questions:
//	      - text: What is 2 + 2?
//	        options: ["3", "4"]
//	        correctIndex: 1
func LoadQuizFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file quizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}
	for i, quiz := range file.Quizzes {
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("quiz %d (%q): %w", i, quiz.SessionCode, err)
		}
	}
	return file.Quizzes, nil
}
