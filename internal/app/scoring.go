package app

import "quiz-session-service/internal/domain"

// Score maps a selected option against the answer key. A nil selection is a
// skipped question; any other non-matching index, in range or not, is wrong.
func Score(selected *int, correct int) (int, string) {
	switch {
	case selected == nil:
		return 0, domain.ResultNotAttempted
	case *selected == correct:
		return 1, domain.ResultCorrect
	default:
		return -1, domain.ResultIncorrect
	}
}
