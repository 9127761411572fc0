package app

import (
	"time"

	"quiz-session-service/internal/domain"
)

// Trigger tells what caused a finish.
type Trigger string

const (
	TriggerExplicit  Trigger = "explicit"
	TriggerAutomatic Trigger = "automatic"
)

// TransitionKind names a state change of a connection.
type TransitionKind string

const (
	TransitionConnected       TransitionKind = "connected"
	TransitionJoined          TransitionKind = "joined"
	TransitionJoinRejected    TransitionKind = "join_rejected"
	TransitionAnswerScored    TransitionKind = "answer_scored"
	TransitionDuplicateAnswer TransitionKind = "duplicate_answer"
	TransitionFinishScheduled TransitionKind = "finish_scheduled"
	TransitionFinished        TransitionKind = "finished"
	TransitionFinishFailed    TransitionKind = "finish_failed"
	TransitionDisconnected    TransitionKind = "disconnected"
	TransitionInternalFault   TransitionKind = "internal_fault"
)

// Transition is emitted to the Observer on every state change of a connection.
// Fields that do not apply to a kind are left zero.
type Transition struct {
	Kind          TransitionKind
	ConnID        string
	SessionCode   string
	Participant   string
	QuestionIndex int
	Result        string
	Points        int
	Score         int
	Trigger       Trigger
	Reason        domain.ErrorReason
	Err           error

	// Abandoned is set on disconnect when an attempt was still in progress.
	Abandoned bool
	At        time.Time
}

// Observer receives connection transitions.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(t Transition) { f(t) }

type nopObserver struct{}

func (nopObserver) Observe(Transition) {}
