package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"quiz-session-service/internal/app"
)

// Recorder logs every connection transition and keeps process-wide counters.
type Recorder struct {
	logger *slog.Logger

	mu        sync.RWMutex
	startTime time.Time
	active    int64
	counts    map[app.TransitionKind]int64
	results   map[string]int64
	triggers  map[app.Trigger]int64
}

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		logger:    logger,
		startTime: time.Now(),
		counts:    make(map[app.TransitionKind]int64),
		results:   make(map[string]int64),
		triggers:  make(map[app.Trigger]int64),
	}
}

// Observe implements app.Observer.
func (r *Recorder) Observe(t app.Transition) {
	r.mu.Lock()
	r.counts[t.Kind]++
	switch t.Kind {
	case app.TransitionConnected:
		r.active++
	case app.TransitionDisconnected:
		if r.active > 0 {
			r.active--
		}
	case app.TransitionAnswerScored:
		r.results[t.Result]++
	case app.TransitionFinished:
		r.triggers[t.Trigger]++
	}
	r.mu.Unlock()

	r.log(t)
}

func (r *Recorder) log(t app.Transition) {
	attrs := []any{"event", string(t.Kind), "conn", t.ConnID}
	if t.SessionCode != "" {
		attrs = append(attrs, "session", t.SessionCode)
	}
	if t.Participant != "" {
		attrs = append(attrs, "participant", t.Participant)
	}

	switch t.Kind {
	case app.TransitionAnswerScored:
		r.logger.Info("answer scored", append(attrs,
			"question", t.QuestionIndex+1, "result", t.Result, "points", t.Points, "score", t.Score)...)
	case app.TransitionDuplicateAnswer:
		r.logger.Debug("duplicate answer", append(attrs, "question", t.QuestionIndex+1)...)
	case app.TransitionFinished:
		r.logger.Info("quiz finished", append(attrs, "trigger", t.Trigger, "score", t.Score)...)
	case app.TransitionFinishFailed, app.TransitionInternalFault:
		r.logger.Error(string(t.Kind), append(attrs, "trigger", t.Trigger, "reason", t.Reason, "err", t.Err)...)
	case app.TransitionJoinRejected:
		r.logger.Info("join rejected", append(attrs, "reason", t.Reason)...)
	case app.TransitionDisconnected:
		r.logger.Info("disconnected", append(attrs, "abandoned", t.Abandoned)...)
	default:
		r.logger.Info(string(t.Kind), attrs...)
	}
}

// Count returns how many transitions of kind were observed.
func (r *Recorder) Count(kind app.TransitionKind) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[kind]
}

// Snapshot returns the counters in a JSON-friendly shape.
func (r *Recorder) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transitions := make(map[string]int64, len(r.counts))
	for kind, n := range r.counts {
		transitions[string(kind)] = n
	}
	results := make(map[string]int64, len(r.results))
	for label, n := range r.results {
		results[label] = n
	}
	finishes := make(map[string]int64, len(r.triggers))
	for trigger, n := range r.triggers {
		finishes[string(trigger)] = n
	}

	return map[string]interface{}{
		"uptime_seconds":     int64(time.Since(r.startTime).Seconds()),
		"active_connections": r.active,
		"transitions":        transitions,
		"answer_results":     results,
		"finishes":           finishes,
	}
}
