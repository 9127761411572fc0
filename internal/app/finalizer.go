package app

import (
	"context"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"
)

// ResultStore persists finalized reports.
type ResultStore interface {
	SaveReport(ctx context.Context, report domain.Report) error
}

// Finalizer turns a participant's state into a persisted report.
type Finalizer struct {
	store ResultStore
	now   func() time.Time
}

func NewFinalizer(store ResultStore, now func() time.Time) *Finalizer {
	if now == nil {
		now = time.Now
	}
	return &Finalizer{store: store, now: now}
}

// Finalize builds the report and saves it once. Failures are not retried.
func (f *Finalizer) Finalize(ctx context.Context, p *Participant) (domain.Report, error) {
	report := BuildReport(p, f.now().UTC())
	if err := f.store.SaveReport(ctx, report); err != nil {
		return report, fmt.Errorf("%w: %w", domain.ErrReportSaveFailed, err)
	}
	return report, nil
}
