package app

import "quiz-session-service/internal/domain"

// Participant is the progress of one connection through one quiz attempt.
// It is owned by a single Session and never shared.
type Participant struct {
	Name           string
	SessionCode    string
	Score          int
	TotalQuestions int
	Answers        []domain.AnswerRecord

	quiz      domain.Quiz
	processed map[int]struct{}
}

func newParticipant(name string, quiz domain.Quiz) *Participant {
	return &Participant{
		Name:           name,
		SessionCode:    quiz.SessionCode,
		TotalQuestions: len(quiz.Questions),
		Answers:        make([]domain.AnswerRecord, 0, len(quiz.Questions)),
		quiz:           quiz,
		processed:      make(map[int]struct{}, len(quiz.Questions)),
	}
}

// Quiz returns the definition snapshot taken at join time.
func (p *Participant) Quiz() domain.Quiz {
	return p.quiz
}

// HasQuestion reports whether index denotes a question of the quiz.
func (p *Participant) HasQuestion(index int) bool {
	return index >= 0 && index < len(p.quiz.Questions)
}

// Processed reports whether the question at index was already scored.
func (p *Participant) Processed(index int) bool {
	_, ok := p.processed[index]
	return ok
}

// ProcessedCount is the number of distinct questions scored so far.
func (p *Participant) ProcessedCount() int {
	return len(p.processed)
}

// Complete reports whether every question has been scored.
func (p *Participant) Complete() bool {
	return p.TotalQuestions > 0 && len(p.processed) == p.TotalQuestions
}

// Record scores the answer for the question at index. It returns false without
// touching any state when the index is unknown or was already scored.
func (p *Participant) Record(index int, selected *int) (domain.AnswerRecord, bool) {
	if !p.HasQuestion(index) || p.Processed(index) {
		return domain.AnswerRecord{}, false
	}
	question := p.quiz.Questions[index]
	points, result := Score(selected, question.CorrectIndex)

	p.processed[index] = struct{}{}
	p.Score += points

	record := domain.AnswerRecord{
		QuestionNumber: index + 1,
		QuestionText:   question.Text,
		YourAnswer:     answerText(question, selected),
		CorrectAnswer:  question.Options[question.CorrectIndex],
		Result:         result,
		Points:         points,
		RunningScore:   p.Score,
	}
	p.Answers = append(p.Answers, record)
	return record, true
}

func answerText(question domain.Question, selected *int) string {
	if selected == nil {
		return domain.ResultNotAttempted
	}
	if *selected < 0 || *selected >= len(question.Options) {
		return "Invalid option"
	}
	return question.Options[*selected]
}
