package domain

import (
	"strings"
	"time"
)

// Outcome labels recorded for each scored question.
const (
	ResultCorrect      = "Correct"
	ResultIncorrect    = "Incorrect"
	ResultNotAttempted = "Not Attempted"
)

// Question is a single multiple-choice question. CorrectIndex always points into Options.
type Question struct {
	Text         string   `json:"text" yaml:"text"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
}

// Quiz is the immutable definition participants play through under a session code.
type Quiz struct {
	SessionCode            string     `json:"sessionCode" yaml:"sessionCode"`
	Title                  string     `json:"title" yaml:"title"`
	TimePerQuestionSeconds int        `json:"timePerQuestionSeconds" yaml:"timePerQuestionSeconds"`
	Questions              []Question `json:"questions" yaml:"questions"`
}

// Validate checks the structural invariants of a quiz definition.
func (q Quiz) Validate() error {
	if NormalizeCode(q.SessionCode) == "" {
		return ErrInvalidQuiz
	}
	if q.TimePerQuestionSeconds <= 0 {
		return ErrInvalidQuiz
	}
	for _, question := range q.Questions {
		if len(question.Options) < 2 {
			return ErrInvalidQuiz
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return ErrInvalidQuiz
		}
	}
	return nil
}

// NormalizeCode trims and upper-cases a session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// QuestionView is what a participant is shown; it never carries the correct index.
type QuestionView struct {
	QuestionIndex int      `json:"questionIndex"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
}

// View strips the answer key from the question at index i.
func (q Quiz) View(i int) QuestionView {
	question := q.Questions[i]
	options := make([]string, len(question.Options))
	copy(options, question.Options)
	return QuestionView{QuestionIndex: i, Text: question.Text, Options: options}
}

// Views returns every question without answer keys, in order.
func (q Quiz) Views() []QuestionView {
	views := make([]QuestionView, len(q.Questions))
	for i := range q.Questions {
		views[i] = q.View(i)
	}
	return views
}

// QuizMeta is the public summary of a quiz.
type QuizMeta struct {
	SessionCode            string `json:"sessionCode"`
	Title                  string `json:"title"`
	TimePerQuestionSeconds int    `json:"timePerQuestionSeconds"`
	QuestionCount          int    `json:"questionCount"`
}

// Meta summarizes the quiz without its questions.
func (q Quiz) Meta() QuizMeta {
	return QuizMeta{
		SessionCode:            q.SessionCode,
		Title:                  q.Title,
		TimePerQuestionSeconds: q.TimePerQuestionSeconds,
		QuestionCount:          len(q.Questions),
	}
}

// AnswerRecord is the outcome of one scored question.
type AnswerRecord struct {
	QuestionNumber int    `json:"questionNumber"`
	QuestionText   string `json:"question"`
	YourAnswer     string `json:"yourAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	Result         string `json:"result"`
	Points         int    `json:"points"`
	RunningScore   int    `json:"totalScore"`
}

// Report is the finalized summary of one participant's attempt.
type Report struct {
	ParticipantName    string         `json:"participantName"`
	SessionCode        string         `json:"sessionCode"`
	QuizTitle          string         `json:"quizTitle,omitempty"`
	TotalScore         int            `json:"totalScore"`
	MaxPossibleScore   int            `json:"maxPossibleScore"`
	CorrectCount       int            `json:"correctCount"`
	IncorrectCount     int            `json:"incorrectCount"`
	NotAttemptedCount  int            `json:"notAttemptedCount"`
	TotalQuestions     int            `json:"totalQuestions"`
	AccuracyPercentage int            `json:"accuracyPercentage"`
	Grade              string         `json:"grade"`
	DetailedAnswers    []AnswerRecord `json:"detailedAnswers"`
	CompletedAt        time.Time      `json:"completedAt"`
}
