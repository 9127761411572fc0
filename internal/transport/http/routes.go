package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// MetricsProvider exposes process counters for /metrics.
type MetricsProvider interface {
	Snapshot() map[string]interface{}
}

// NewRouter wires the websocket endpoint and the read-only HTTP endpoints.
func NewRouter(service *app.QuizService, ws *WSHandler, metrics MetricsProvider, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", ws.ServeWS)
	mux.HandleFunc("GET /quizzes/{code}", handleQuizMeta(service, logger))
	mux.HandleFunc("GET /quizzes/{code}/participants", handleParticipants(service, logger))
	if metrics != nil {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, metrics.Snapshot())
		})
	}
	return mux
}

type participantsResponse struct {
	SessionCode  string `json:"sessionCode"`
	Participants int    `json:"participants"`
}

func handleQuizMeta(service *app.QuizService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta, err := service.Meta(r.Context(), r.PathValue("code"))
		if errors.Is(err, domain.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		if err != nil {
			logger.Error("quiz meta lookup failed", "code", r.PathValue("code"), "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, meta)
	}
}

func handleParticipants(service *app.QuizService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := domain.NormalizeCode(r.PathValue("code"))
		n, err := service.ParticipantCount(r.Context(), code)
		if err != nil {
			logger.Error("participant count failed", "code", code, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, participantsResponse{SessionCode: code, Participants: n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
