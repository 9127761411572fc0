package domain

import "errors"

var (
	// ErrQuizNotFound indicates no quiz is published under the requested session code.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrMissingName is returned when a participant joins without a name.
	ErrMissingName = errors.New("participant name is required")
	// ErrReportSaveFailed wraps any failure of the result store.
	ErrReportSaveFailed = errors.New("failed to save results")
	// ErrInvalidQuiz indicates a quiz definition breaks its structural invariants.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
)

// ErrorReason is the machine-readable cause sent to a connection in an error event.
type ErrorReason string

const (
	ReasonInvalidCode      ErrorReason = "InvalidCode"
	ReasonMissingName      ErrorReason = "MissingName"
	ReasonReportSaveFailed ErrorReason = "ReportSaveFailed"
	ReasonInternalFault    ErrorReason = "InternalFault"
)

// ReasonFor maps an error to the reason reported to the client.
func ReasonFor(err error) ErrorReason {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		return ReasonInvalidCode
	case errors.Is(err, ErrMissingName):
		return ReasonMissingName
	case errors.Is(err, ErrReportSaveFailed):
		return ReasonReportSaveFailed
	default:
		return ReasonInternalFault
	}
}

// Message is the human-readable text for a reason.
func (r ErrorReason) Message() string {
	switch r {
	case ReasonInvalidCode:
		return "Invalid session code"
	case ReasonMissingName:
		return "Name is required"
	case ReasonReportSaveFailed:
		return "Failed to save results"
	default:
		return "Server error"
	}
}
