package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestRecorderCountsTransitions(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))

	rec.Observe(app.Transition{Kind: app.TransitionConnected, ConnID: "c1"})
	rec.Observe(app.Transition{Kind: app.TransitionJoined, ConnID: "c1", SessionCode: "ABC123", Participant: "Ada"})
	rec.Observe(app.Transition{Kind: app.TransitionAnswerScored, ConnID: "c1", SessionCode: "ABC123", Result: domain.ResultCorrect, Points: 1, Score: 1})
	rec.Observe(app.Transition{Kind: app.TransitionAnswerScored, ConnID: "c1", SessionCode: "ABC123", Result: domain.ResultNotAttempted})
	rec.Observe(app.Transition{Kind: app.TransitionFinished, ConnID: "c1", SessionCode: "ABC123", Trigger: app.TriggerAutomatic})
	rec.Observe(app.Transition{Kind: app.TransitionDisconnected, ConnID: "c1"})

	if rec.Count(app.TransitionAnswerScored) != 2 {
		t.Fatalf("expected 2 scored answers, got %d", rec.Count(app.TransitionAnswerScored))
	}

	snap := rec.Snapshot()
	if snap["active_connections"].(int64) != 0 {
		t.Fatalf("expected no active connections, got %v", snap["active_connections"])
	}
	results := snap["answer_results"].(map[string]int64)
	if results[domain.ResultCorrect] != 1 || results[domain.ResultNotAttempted] != 1 {
		t.Fatalf("unexpected result counts: %v", results)
	}
	if snap["finishes"].(map[string]int64)["automatic"] != 1 {
		t.Fatalf("expected one automatic finish, got %v", snap["finishes"])
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("snapshot must be JSON encodable: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected one log line per transition, got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["event"] != "answer_scored" || entry["session"] != "ABC123" || entry["result"] != domain.ResultCorrect {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}
