package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-session-service/internal/domain"
)

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID                 int64                 `bun:"id,pk,autoincrement"`
	SessionCode        string                `bun:"session_code,notnull"`
	ParticipantName    string                `bun:"participant_name,notnull"`
	QuizTitle          string                `bun:"quiz_title,notnull"`
	TotalScore         int                   `bun:"total_score,notnull"`
	MaxPossibleScore   int                   `bun:"max_possible_score,notnull"`
	CorrectCount       int                   `bun:"correct_count,notnull"`
	IncorrectCount     int                   `bun:"incorrect_count,notnull"`
	NotAttemptedCount  int                   `bun:"not_attempted_count,notnull"`
	TotalQuestions     int                   `bun:"total_questions,notnull"`
	AccuracyPercentage int                   `bun:"accuracy_percentage,notnull"`
	Grade              string                `bun:"grade,notnull"`
	DetailedAnswers    []domain.AnswerRecord `bun:"detailed_answers,type:jsonb"`
	CompletedAt        time.Time             `bun:"completed_at,notnull"`
}

// ResultStore appends finalized reports to the results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveReport(ctx context.Context, report domain.Report) error {
	row := toRow(report)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListReports returns the reports saved for a session code, oldest first.
func (s *ResultStore) ListReports(ctx context.Context, code string) ([]domain.Report, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_code = ?", domain.NormalizeCode(code)).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	reports := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.report())
	}
	return reports, nil
}

func toRow(r domain.Report) resultRow {
	return resultRow{
		SessionCode:        r.SessionCode,
		ParticipantName:    r.ParticipantName,
		QuizTitle:          r.QuizTitle,
		TotalScore:         r.TotalScore,
		MaxPossibleScore:   r.MaxPossibleScore,
		CorrectCount:       r.CorrectCount,
		IncorrectCount:     r.IncorrectCount,
		NotAttemptedCount:  r.NotAttemptedCount,
		TotalQuestions:     r.TotalQuestions,
		AccuracyPercentage: r.AccuracyPercentage,
		Grade:              r.Grade,
		DetailedAnswers:    r.DetailedAnswers,
		CompletedAt:        r.CompletedAt,
	}
}

func (row resultRow) report() domain.Report {
	return domain.Report{
		ParticipantName:    row.ParticipantName,
		SessionCode:        row.SessionCode,
		QuizTitle:          row.QuizTitle,
		TotalScore:         row.TotalScore,
		MaxPossibleScore:   row.MaxPossibleScore,
		CorrectCount:       row.CorrectCount,
		IncorrectCount:     row.IncorrectCount,
		NotAttemptedCount:  row.NotAttemptedCount,
		TotalQuestions:     row.TotalQuestions,
		AccuracyPercentage: row.AccuracyPercentage,
		Grade:              row.Grade,
		DetailedAnswers:    row.DetailedAnswers,
		CompletedAt:        row.CompletedAt,
	}
}
