package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-session-service/internal/domain"
)

// SeedQuizzes upserts quiz definitions keyed by their normalized session code.
func SeedQuizzes(ctx context.Context, db *bun.DB, quizzes []domain.Quiz) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, quiz := range quizzes {
			if err := quiz.Validate(); err != nil {
				return fmt.Errorf("quiz %q: %w", quiz.SessionCode, err)
			}
			quiz.SessionCode = domain.NormalizeCode(quiz.SessionCode)
			data, err := json.Marshal(quiz)
			if err != nil {
				return fmt.Errorf("marshal quiz %q: %w", quiz.SessionCode, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quizzes (session_code, data) VALUES (?, ?::jsonb) ON CONFLICT (session_code) DO UPDATE SET data=EXCLUDED.data`,
				quiz.SessionCode, string(data)); err != nil {
				return fmt.Errorf("upsert quiz %q: %w", quiz.SessionCode, err)
			}
		}
		return nil
	})
}
