package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

type testEnv struct {
	server  *httptest.Server
	results *memory.ResultStore
	roster  *memory.Roster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	results := memory.NewResultStore()
	roster := memory.NewRoster()
	catalog := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewQuizService(catalog, results,
		app.WithRoster(roster),
		app.WithLogger(logger),
		app.WithGraceDelay(20*time.Millisecond),
	)
	server := httptest.NewServer(NewRouter(service, NewWSHandler(service, logger, 8), nil, logger))
	t.Cleanup(server.Close)
	return &testEnv{server: server, results: results, roster: roster}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + e.server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketFullAttemptAutoFinishes(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, "join", map[string]any{"sessionCode": "abc123", "participantName": "  Ada "})
	_, payload := readNext(t, conn, "startQuiz")

	var start app.StartQuizPayload
	decode(t, payload, &start)
	if start.TimePerQuestionSeconds != 15 || len(start.Questions) != 3 || start.ParticipantName != "Ada" {
		t.Fatalf("unexpected startQuiz payload: %+v", start)
	}
	if containsKey(t, payload, "correctIndex") {
		t.Fatalf("startQuiz must not leak the answer key: %s", payload)
	}

	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "ABC123", "questionIndex": 0, "selectedOptionIndex": 1})
	readNext(t, conn, "answerAccepted")
	// duplicate of the same question must not be scored or acknowledged
	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "ABC123", "questionIndex": 0, "selectedOptionIndex": 0})
	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "ABC123", "questionIndex": 1, "selectedOptionIndex": nil})
	readNext(t, conn, "answerAccepted")
	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "ABC123", "questionIndex": 2, "selectedOptionIndex": 0})
	_, ack := readNext(t, conn, "answerAccepted")

	var accepted app.AnswerAcceptedPayload
	decode(t, ack, &accepted)
	if accepted.Answered != 3 || accepted.TotalQuestions != 3 {
		t.Fatalf("expected all questions answered, got %+v", accepted)
	}

	_, raw := readNext(t, conn, "quizResults")
	var results app.ResultsPayload
	decode(t, raw, &results)
	report := results.Report
	if report.TotalScore != 2 || report.CorrectCount != 2 || report.NotAttemptedCount != 1 || report.IncorrectCount != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.AccuracyPercentage != 67 || report.Grade != "D" {
		t.Fatalf("expected 67%% / D, got %d%% / %s", report.AccuracyPercentage, report.Grade)
	}
	if got := env.results.Reports("ABC123"); len(got) != 1 {
		t.Fatalf("expected exactly one persisted report, got %d", len(got))
	}
}

func TestWebSocketInvalidCode(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, "join", map[string]any{"sessionCode": "NOPE", "participantName": "Ada"})
	_, payload := readNext(t, conn, "error")

	var errPayload app.ErrorPayload
	decode(t, payload, &errPayload)
	if errPayload.Reason != domain.ReasonInvalidCode {
		t.Fatalf("expected InvalidCode, got %s", errPayload.Reason)
	}

	// Not joined: answers are absorbed and finish yields nothing. The next
	// reply must therefore be the one for the valid join below.
	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "NOPE", "questionIndex": 0, "selectedOptionIndex": 1})
	send(t, conn, "finish", map[string]any{"sessionCode": "NOPE"})
	send(t, conn, "join", map[string]any{"sessionCode": "ABC123", "participantName": ""})
	_, payload = readNext(t, conn, "error")
	decode(t, payload, &errPayload)
	if errPayload.Reason != domain.ReasonMissingName {
		t.Fatalf("expected MissingName, got %s", errPayload.Reason)
	}
	if env.results.Len() != 0 {
		t.Fatalf("expected no reports, got %d", env.results.Len())
	}
}

func TestWebSocketRequestQuestion(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, "join", map[string]any{"sessionCode": "ABC123", "participantName": "Ada"})
	readNext(t, conn, "startQuiz")

	send(t, conn, "requestQuestion", map[string]any{"sessionCode": "ABC123", "questionIndex": 7})
	send(t, conn, "requestQuestion", map[string]any{"sessionCode": "ABC123", "questionIndex": 1})
	_, payload := readNext(t, conn, "questionDelivered")

	var view domain.QuestionView
	decode(t, payload, &view)
	if view.QuestionIndex != 1 || view.Text != "Second" || len(view.Options) != 2 {
		t.Fatalf("unexpected question: %+v", view)
	}
	if containsKey(t, payload, "correctIndex") {
		t.Fatalf("questionDelivered must not leak the answer key: %s", payload)
	}
}

func TestWebSocketDisconnectDiscardsAttempt(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, "join", map[string]any{"sessionCode": "ABC123", "participantName": "Ada"})
	readNext(t, conn, "startQuiz")
	if n, _ := env.roster.Count(context.Background(), "ABC123"); n != 1 {
		t.Fatalf("expected one live participant, got %d", n)
	}
	send(t, conn, "submitAnswer", map[string]any{"sessionCode": "ABC123", "questionIndex": 0, "selectedOptionIndex": 1})
	readNext(t, conn, "answerAccepted")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := env.roster.Count(context.Background(), "ABC123")
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("participant still attached after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if env.results.Len() != 0 {
		t.Fatalf("disconnect must not persist a report, got %d", env.results.Len())
	}
}

func TestQuizEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/quizzes/abc123")
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var meta domain.QuizMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.SessionCode != "ABC123" || meta.QuestionCount != 3 || meta.Title != "Sampler" {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	missing, err := http.Get(env.server.URL + "/quizzes/NOPE")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}

	count, err := http.Get(env.server.URL + "/quizzes/ABC123/participants")
	if err != nil {
		t.Fatalf("get participants: %v", err)
	}
	defer count.Body.Close()
	var body participantsResponse
	if err := json.NewDecoder(count.Body).Decode(&body); err != nil {
		t.Fatalf("decode participants: %v", err)
	}
	if body.Participants != 0 {
		t.Fatalf("expected no participants, got %d", body.Participants)
	}
}

func TestDecodeCommandRejectsMalformed(t *testing.T) {
	cases := []inboundMessage{
		{Type: "submitAnswer", Payload: json.RawMessage(`{"sessionCode":"ABC123"}`)},
		{Type: "requestQuestion", Payload: json.RawMessage(`{"questionIndex":"one"}`)},
		{Type: "dance", Payload: json.RawMessage(`{}`)},
		{Type: "join", Payload: nil},
	}
	for _, c := range cases {
		if _, ok := decodeCommand(c); ok {
			t.Fatalf("expected %s %s to be rejected", c.Type, c.Payload)
		}
	}

	cmd, ok := decodeCommand(inboundMessage{Type: "finish"})
	if !ok {
		t.Fatalf("finish without payload should decode")
	}
	if _, isFinish := cmd.(app.FinishCommand); !isFinish {
		t.Fatalf("expected FinishCommand, got %T", cmd)
	}

	cmd, ok = decodeCommand(inboundMessage{Type: "submitAnswer", Payload: json.RawMessage(`{"questionIndex":2,"selectedOptionIndex":null}`)})
	if !ok {
		t.Fatalf("expected answer to decode")
	}
	answer := cmd.(app.AnswerCommand)
	if answer.QuestionIndex != 2 || answer.SelectedIndex != nil {
		t.Fatalf("unexpected answer command: %+v", answer)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func containsKey(t *testing.T, raw json.RawMessage, key string) bool {
	t.Helper()
	var generic any
	decode(t, raw, &generic)
	var walk func(v any) bool
	walk = func(v any) bool {
		switch node := v.(type) {
		case map[string]any:
			if _, ok := node[key]; ok {
				return true
			}
			for _, child := range node {
				if walk(child) {
					return true
				}
			}
		case []any:
			for _, child := range node {
				if walk(child) {
					return true
				}
			}
		}
		return false
	}
	return walk(generic)
}

func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			SessionCode:            "ABC123",
			Title:                  "Sampler",
			TimePerQuestionSeconds: 15,
			Questions: []domain.Question{
				{Text: "First", Options: []string{"a", "b", "c"}, CorrectIndex: 1},
				{Text: "Second", Options: []string{"yes", "no"}, CorrectIndex: 0},
				{Text: "Third", Options: []string{"x", "y"}, CorrectIndex: 0},
			},
		},
	}
}
