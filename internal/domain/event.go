package domain

const (
	EventStateChanged     = "session.state_changed"
	EventQuestionStarted  = "question.started"
	EventAnswerRecorded   = "answer.recorded"
	EventCooldownStarted  = "cooldown.started"
	EventNarrationReady   = "narration.ready"
	EventNarrationStopped = "narration.stopped"
)

// StateChanged is published after every accepted session mutation.
type StateChanged struct {
	SessionID string
	Version   int64
	Phase     Phase
}

func (StateChanged) Name() string { return EventStateChanged }

// QuestionStarted is published when a question becomes playable. Version is
// the session version the change is published under.
type QuestionStarted struct {
	SessionID string
	Version   int64
	Index     int
	Question  Question
	Format    QuizFormat
	TeamName  string // empty in solo play
	Voice     VoiceConfig
}

func (QuestionStarted) Name() string { return EventQuestionStarted }

// AnswerRecorded is published once an attempt is settled.
type AnswerRecorded struct {
	SessionID string
	Version   int64
	Index     int
	Format    QuizFormat
	Score     float64
	Correct   bool
	TimedOut  bool
	Voice     VoiceConfig
}

func (AnswerRecorded) Name() string { return EventAnswerRecorded }

// CooldownStarted is published when the question source reports a quota error.
type CooldownStarted struct {
	SessionID string
	Version   int64
	Seconds   int
}

func (CooldownStarted) Name() string { return EventCooldownStarted }

// NarrationReady carries text to read aloud and, for server-side engines, audio.
// Index and Version come from the event that triggered it.
type NarrationReady struct {
	SessionID string
	Version   int64
	Index     int
	Text      string
	Audio     []byte
	MimeType  string
}

func (NarrationReady) Name() string { return EventNarrationReady }

// NarrationStopped asks clients to cut any speech in progress. Narration
// triggered at an earlier version is stale from then on.
type NarrationStopped struct {
	SessionID string
	Version   int64
}

func (NarrationStopped) Name() string { return EventNarrationStopped }
