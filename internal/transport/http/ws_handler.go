package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultSendBuffer = 16
)

// Inbound event names.
const (
	eventJoin            = "join"
	eventSubmitAnswer    = "submitAnswer"
	eventRequestQuestion = "requestQuestion"
	eventFinish          = "finish"
)

type WSHandler struct {
	service    *app.QuizService
	logger     *slog.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger, sendBuffer int) *WSHandler {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &WSHandler{
		service:    service,
		logger:     logger,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	SessionCode     string `json:"sessionCode"`
	ParticipantName string `json:"participantName"`
}

type answerPayload struct {
	SessionCode         string `json:"sessionCode"`
	QuestionIndex       *int   `json:"questionIndex"`
	SelectedOptionIndex *int   `json:"selectedOptionIndex"`
	ParticipantName     string `json:"participantName"`
}

type questionPayload struct {
	SessionCode   string `json:"sessionCode"`
	QuestionIndex *int   `json:"questionIndex"`
}

type finishPayload struct {
	SessionCode string `json:"sessionCode"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// connEmitter hands events to the connection's writer. Events emitted after
// the connection started closing are dropped.
type connEmitter struct {
	send    chan<- outboundMessage
	closing <-chan struct{}
}

func (e connEmitter) Emit(eventType string, payload any) {
	select {
	case e.send <- outboundMessage{Type: eventType, Payload: payload}:
	case <-e.closing:
	}
}

// ServeWS upgrades the request and routes the connection's events to its own session.
// Events of one connection are applied in arrival order; closing the socket discards
// any attempt still in progress.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := h.logger.With("conn", connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage, h.sendBuffer)
	writerDone := make(chan struct{})
	sessionDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		h.writeLoop(conn, send, logger)
	}()

	session := h.service.Connect(connID, connEmitter{send: send, closing: ctx.Done()})
	go func() {
		defer close(sessionDone)
		session.Run(ctx)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("ws read error", "err", err)
			}
			break
		}
		cmd, ok := decodeCommand(inbound)
		if !ok {
			logger.Debug("dropping malformed event", "type", inbound.Type)
			continue
		}
		if !session.Send(ctx, cmd) {
			break
		}
	}

	cancel()
	<-sessionDone
	close(send)
	<-writerDone
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, send <-chan outboundMessage, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Info("ws write error", "err", err)
				// unblock the reader so the connection is torn down
				conn.Close()
				drain(send)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				drain(send)
				return
			}
		}
	}
}

func drain(send <-chan outboundMessage) {
	for range send {
	}
}

// decodeCommand maps an inbound event to a session command. Unknown event
// types and payloads without a question index are rejected.
func decodeCommand(msg inboundMessage) (app.Command, bool) {
	switch msg.Type {
	case eventJoin:
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, false
		}
		return app.JoinCommand{SessionCode: p.SessionCode, ParticipantName: p.ParticipantName}, true
	case eventSubmitAnswer:
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.QuestionIndex == nil {
			return nil, false
		}
		return app.AnswerCommand{
			SessionCode:     p.SessionCode,
			QuestionIndex:   *p.QuestionIndex,
			SelectedIndex:   p.SelectedOptionIndex,
			ParticipantName: p.ParticipantName,
		}, true
	case eventRequestQuestion:
		var p questionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.QuestionIndex == nil {
			return nil, false
		}
		return app.QuestionCommand{SessionCode: p.SessionCode, QuestionIndex: *p.QuestionIndex}, true
	case eventFinish:
		var p finishPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return nil, false
			}
		}
		return app.FinishCommand{SessionCode: p.SessionCode}, true
	default:
		return nil, false
	}
}
