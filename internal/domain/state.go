package domain

import "time"

// Phase is the top-level state of a quiz run.
type Phase string

const (
	PhaseSetup        Phase = "SETUP"
	PhaseCountdown    Phase = "COUNTDOWN"
	PhasePlaying      Phase = "PLAYING"
	PhaseRoundSummary Phase = "ROUND_SUMMARY"
	PhaseFinished     Phase = "FINISHED"
)

// AttemptStatus tracks one question's answer lifecycle.
type AttemptStatus string

const (
	AttemptUnanswered AttemptStatus = "unanswered"
	AttemptPending    AttemptStatus = "pending_confirmation"
	AttemptAnswered   AttemptStatus = "answered"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

// Settled reports whether the attempt has a recorded result.
func (s AttemptStatus) Settled() bool {
	return s == AttemptAnswered || s == AttemptTimedOut
}

// Operation names an asynchronous call made on behalf of a session.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpSkip     Operation = "skip"
	OpReplace  Operation = "replace"
	OpGrade    Operation = "grade"
	OpAsk      Operation = "ask"
)

// OpState is the lifecycle of one Operation.
type OpState string

const (
	OpIdle      OpState = "idle"
	OpInFlight  OpState = "in_flight"
	OpSucceeded OpState = "succeeded"
	OpFailed    OpState = "failed"
)

// Attempt is the recorded answer for one question index.
type Attempt struct {
	Status   AttemptStatus `json:"status"`
	Selected *int          `json:"selected,omitempty"`
	Text     string        `json:"text,omitempty"`
	Score    float64       `json:"score"`
	Correct  bool          `json:"correct"`
	Feedback string        `json:"feedback,omitempty"`
	Team     int           `json:"team"`
}

// Answered reports whether the attempt carries a recorded result.
func (a Attempt) Answered() bool {
	return a.Status.Settled()
}

// ArchivedQuiz is a generated quiz kept for later reference.
type ArchivedQuiz struct {
	SessionID string
	TopicKey  string
	Title     string
	Config    QuizConfig
	Questions []Question
	CreatedAt time.Time
}
