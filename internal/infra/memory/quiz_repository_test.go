package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader([]domain.Quiz{sampleQuiz()}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "abc123"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), " ABC123 "); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryUnknownCode(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "NOPE"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "  "); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound for blank code, got %v", err)
	}
}

func TestLoadQuizFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizzes.yaml")
	content := `quizzes:
  - sessionCode: abc123
    title: Arithmetic
    timePerQuestionSeconds: 15
    questions:
      - text: What is 2 + 2?
        options: ["3", "4", "5"]
        correctIndex: 1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	quizzes, err := LoadQuizFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].TimePerQuestionSeconds != 15 || quizzes[0].Questions[0].CorrectIndex != 1 {
		t.Fatalf("unexpected quizzes: %+v", quizzes)
	}

	quiz, err := NewStaticQuizLoader(quizzes).LoadQuiz(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("lookup by normalized code: %v", err)
	}
	if quiz.SessionCode != "ABC123" {
		t.Fatalf("expected normalized code, got %q", quiz.SessionCode)
	}
}

func TestLoadQuizFileRejectsBadAnswerKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizzes.yaml")
	content := `quizzes:
  - sessionCode: BAD1
    timePerQuestionSeconds: 10
    questions:
      - text: Broken
        options: ["a", "b"]
        correctIndex: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadQuizFile(path); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, code)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		SessionCode:            "ABC123",
		Title:                  "Arithmetic",
		TimePerQuestionSeconds: 20,
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4"},
				CorrectIndex: 1,
			},
		},
	}
}
