package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bible-quiz-service/internal/clock"
	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
	"bible-quiz-service/internal/preferences"
)

const (
	DefaultCooldownSeconds  = 60
	DefaultCountdownSeconds = 3

	soloTeamID   = "solo"
	soloTeamName = "Você"

	msgGenericFailure = "Ocorreu um erro ao conectar com a IA. Verifique sua internet ou tente novamente."
	msgMissingKey     = "Erro de autenticação: API Key não encontrada."
)

// QuestionSource produces and grades quiz content.
type QuestionSource interface {
	Generate(ctx context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error)
	Replace(ctx context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error)
	Grade(ctx context.Context, question, modelAnswer, userAnswer string) (domain.Evaluation, error)
	Ask(ctx context.Context, question domain.Question, query string) (string, error)
}

// Publisher receives session events.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, event.Event) {}

// Dependencies wires a Session to its collaborators. Zero values fall back to
// production defaults, except Source which is required.
type Dependencies struct {
	Source           QuestionSource
	Events           Publisher
	Clock            clock.Clock
	CooldownSeconds  int
	CountdownSeconds int
	NewID            func() string
}

// Session owns one quiz run. Every exported method is safe for concurrent use;
// calls to the question source are made without holding the lock and their
// results are dropped if the run or target question changed meanwhile.
type Session struct {
	id        string
	clientID  string
	createdAt time.Time
	deps      Dependencies

	mu     sync.Mutex
	outbox []event.Event
	dirty  bool

	version int64
	runGen  uint64

	config    *domain.QuizConfig
	title     string
	questions []domain.Question
	attempts  []domain.Attempt
	voided    map[int]struct{}
	teams     []domain.Team

	phase        domain.Phase
	reviewing    bool
	reviewIndex  int
	currentIndex int
	currentTeam  int
	round        int

	hintsRemaining int
	hintCharged    string
	askAnswer      string

	countdown int
	timeLeft  int
	cooldown  int

	ops       map[domain.Operation]domain.OpState
	lastError string

	prefs preferences.Settings

	timers sessionTimers

	subscribers map[chan Snapshot]struct{}
}

func NewSession(id string, deps Dependencies) *Session {
	if deps.Events == nil {
		deps.Events = noopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.CooldownSeconds <= 0 {
		deps.CooldownSeconds = DefaultCooldownSeconds
	}
	if deps.CountdownSeconds < 0 {
		deps.CountdownSeconds = 0
	} else if deps.CountdownSeconds == 0 {
		deps.CountdownSeconds = DefaultCountdownSeconds
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Session{
		id:          id,
		createdAt:   deps.Clock.Now(),
		deps:        deps,
		phase:       domain.PhaseSetup,
		voided:      make(map[int]struct{}),
		ops:         idleOps(),
		prefs:       preferences.Defaults(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// ClientID is the preference owner the session was created for.
func (s *Session) ClientID() string { return s.clientID }

func idleOps() map[domain.Operation]domain.OpState {
	return map[domain.Operation]domain.OpState{
		domain.OpGenerate: domain.OpIdle,
		domain.OpSkip:     domain.OpIdle,
		domain.OpReplace:  domain.OpIdle,
		domain.OpGrade:    domain.OpIdle,
		domain.OpAsk:      domain.OpIdle,
	}
}

// lock acquires the session; release must follow.
func (s *Session) lock() {
	s.mu.Lock()
}

// release commits pending changes, unlocks, then publishes queued events.
func (s *Session) release(ctx context.Context) {
	if s.dirty {
		s.dirty = false
		s.version++
		s.syncTimersLocked()
		s.broadcastLocked()
		s.emit(domain.StateChanged{SessionID: s.id, Version: s.version, Phase: s.phase})
	}
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, e := range events {
		s.deps.Events.Publish(ctx, e)
	}
}

func (s *Session) touch() {
	s.dirty = true
}

// eventVersionLocked marks the section dirty and returns the version its
// events are published under.
func (s *Session) eventVersionLocked() int64 {
	s.touch()
	return s.version + 1
}

func (s *Session) stopNarrationLocked() {
	s.emit(domain.NarrationStopped{SessionID: s.id, Version: s.eventVersionLocked()})
}

func (s *Session) emit(e event.Event) {
	s.outbox = append(s.outbox, e)
}

// guardLocked rejects commands during the rate-limit cooldown.
func (s *Session) guardLocked() error {
	if s.cooldown > 0 {
		return domain.ErrCooldownActive
	}
	return nil
}

// dropReplyLocked decides whether a reply for op, started in run gen, must be
// discarded. A discarded reply leaves op idle unless a newer run owns it.
func (s *Session) dropReplyLocked(op domain.Operation, gen uint64, stale bool) error {
	if s.runGen != gen {
		return domain.ErrStaleResponse
	}
	var err error
	switch {
	case stale:
		err = domain.ErrStaleResponse
	case s.cooldown > 0:
		err = domain.ErrCooldownActive
	default:
		return nil
	}
	s.ops[op] = domain.OpIdle
	s.touch()
	return err
}

func (s *Session) effectiveVoiceLocked() domain.VoiceConfig {
	if s.config == nil {
		return domain.VoiceConfig{}
	}
	v := s.config.Voice
	v.Enabled = v.Enabled && s.prefs.NarrationEnabled
	return v
}

func (s *Session) teamNameLocked(idx int) string {
	if s.config == nil || !s.config.IsTeamMode || idx < 0 || idx >= len(s.teams) {
		return ""
	}
	return s.teams[idx].Name
}

func (s *Session) timeLimitLocked() int {
	if s.config == nil {
		return 0
	}
	return s.config.TimeLimit
}

// failLocked records a failed call. Quota errors enter the cooldown, any
// other failure leaves a message for the client.
func (s *Session) failLocked(op domain.Operation, err error) {
	s.ops[op] = domain.OpFailed
	s.touch()
	if domain.IsRateLimited(err) {
		s.enterCooldownLocked()
		return
	}
	if errors.Is(err, domain.ErrMissingCredential) {
		s.lastError = msgMissingKey
		return
	}
	s.lastError = msgGenericFailure
}

func (s *Session) enterCooldownLocked() {
	s.cooldown = s.deps.CooldownSeconds
	s.emit(domain.CooldownStarted{SessionID: s.id, Version: s.eventVersionLocked(), Seconds: s.cooldown})
	s.stopNarrationLocked()
	s.touch()
}

// CancelCooldown ends the rate-limit pause early.
func (s *Session) CancelCooldown(ctx context.Context) {
	s.lock()
	defer s.release(ctx)
	if s.cooldown == 0 {
		return
	}
	s.cooldown = 0
	s.touch()
}

// Reset returns the session to setup, discarding the quiz and any pending
// replies. The last configuration is kept for Restart.
func (s *Session) Reset(ctx context.Context) {
	s.lock()
	defer s.release(ctx)

	s.runGen++
	s.title = ""
	s.questions = nil
	s.attempts = nil
	s.voided = make(map[int]struct{})
	s.teams = nil
	s.phase = domain.PhaseSetup
	s.reviewing = false
	s.reviewIndex = 0
	s.currentIndex = 0
	s.currentTeam = 0
	s.round = 0
	s.hintsRemaining = 0
	s.hintCharged = ""
	s.askAnswer = ""
	s.countdown = 0
	s.timeLeft = 0
	s.cooldown = 0
	s.ops = idleOps()
	s.lastError = ""
	s.stopNarrationLocked()
	s.touch()
}

// ApplySettings updates the preference flags the session reacts to.
// Turning narration off cuts any speech in progress.
func (s *Session) ApplySettings(ctx context.Context, settings preferences.Settings) {
	s.lock()
	defer s.release(ctx)
	if s.prefs.NarrationEnabled && !settings.NarrationEnabled {
		s.stopNarrationLocked()
	}
	s.prefs = settings
	s.touch()
}

// DismissError clears the last failure message.
func (s *Session) DismissError(ctx context.Context) {
	s.lock()
	defer s.release(ctx)
	if s.lastError != "" {
		s.lastError = ""
		s.touch()
	}
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow readers only ever see the latest snapshot. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest queued snapshot for slow readers
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
