package app

import (
	"math"
	"time"

	"quiz-session-service/internal/domain"
)

// Accuracy is the rounded percentage of correct answers over all questions.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Grade maps an accuracy percentage to a letter grade. Lower bounds are inclusive.
func Grade(accuracy int) string {
	switch {
	case accuracy >= 90:
		return "A+"
	case accuracy >= 80:
		return "A"
	case accuracy >= 70:
		return "B"
	case accuracy >= 60:
		return "C"
	case accuracy >= 50:
		return "D"
	default:
		return "F"
	}
}

// BuildReport summarizes a participant's attempt. Outcome counts are derived
// from the answer records themselves.
func BuildReport(p *Participant, completedAt time.Time) domain.Report {
	var correct, incorrect, notAttempted int
	for _, answer := range p.Answers {
		switch answer.Result {
		case domain.ResultCorrect:
			correct++
		case domain.ResultIncorrect:
			incorrect++
		case domain.ResultNotAttempted:
			notAttempted++
		}
	}

	accuracy := Accuracy(correct, p.TotalQuestions)
	answers := make([]domain.AnswerRecord, len(p.Answers))
	copy(answers, p.Answers)

	return domain.Report{
		ParticipantName:    p.Name,
		SessionCode:        p.SessionCode,
		QuizTitle:          p.quiz.Title,
		TotalScore:         p.Score,
		MaxPossibleScore:   p.TotalQuestions,
		CorrectCount:       correct,
		IncorrectCount:     incorrect,
		NotAttemptedCount:  notAttempted,
		TotalQuestions:     p.TotalQuestions,
		AccuracyPercentage: accuracy,
		Grade:              Grade(accuracy),
		DetailedAnswers:    answers,
		CompletedAt:        completedAt,
	}
}
