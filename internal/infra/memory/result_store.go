package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ResultStore keeps finalized reports in process. Used when Postgres is not configured.
type ResultStore struct {
	mu      sync.RWMutex
	reports []domain.Report
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveReport(_ context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the saved reports for a session code in save order.
func (s *ResultStore) Reports(code string) []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Report
	for _, report := range s.reports {
		if report.SessionCode == code {
			out = append(out, report)
		}
	}
	return out
}

// Len is the total number of saved reports.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
