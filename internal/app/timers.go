package app

import (
	"context"
	"time"

	"bible-quiz-service/internal/clock"
	"bible-quiz-service/internal/domain"
)

type timerClass int

const (
	timerQuestion timerClass = iota
	timerCountdown
	timerCooldown
	timerClassCount
)

func (c timerClass) String() string {
	switch c {
	case timerQuestion:
		return "question"
	case timerCountdown:
		return "countdown"
	case timerCooldown:
		return "cooldown"
	}
	return "unknown"
}

// interval is a one-second ticker owned by the session. gen identifies the
// scheduled tick; a tick whose gen no longer matches was cancelled.
type interval struct {
	timer clock.Timer
	gen   uint64
}

type sessionTimers [timerClassCount]interval

// syncTimersLocked starts or stops each interval according to its
// eligibility predicate. It runs once after every accepted change.
func (s *Session) syncTimersLocked() {
	s.syncIntervalLocked(timerCountdown, s.countdownEligibleLocked())
	s.syncIntervalLocked(timerQuestion, s.questionTimerEligibleLocked())
	s.syncIntervalLocked(timerCooldown, s.cooldown > 0)
}

func (s *Session) syncIntervalLocked(class timerClass, eligible bool) {
	iv := &s.timers[class]
	switch {
	case eligible && iv.timer == nil:
		iv.gen++
		gen := iv.gen
		iv.timer = s.deps.Clock.AfterFunc(time.Second, func() { s.onTick(class, gen) })
	case !eligible && iv.timer != nil:
		s.stopIntervalLocked(class)
	}
}

func (s *Session) stopIntervalLocked(class timerClass) {
	iv := &s.timers[class]
	if iv.timer != nil {
		iv.timer.Stop()
		iv.timer = nil
	}
	iv.gen++
}

// restartQuestionTimerLocked resets the question clock for a new target.
func (s *Session) restartQuestionTimerLocked() {
	s.timeLeft = s.timeLimitLocked()
	s.stopIntervalLocked(timerQuestion)
}

// TimerRunning reports whether the named interval is active. Exposed for
// diagnostics and tests.
func (s *Session) TimerRunning(class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := timerClass(0); c < timerClassCount; c++ {
		if c.String() == class {
			return s.timers[c].timer != nil
		}
	}
	return false
}

func (s *Session) countdownEligibleLocked() bool {
	return s.phase == domain.PhaseCountdown && s.countdown > 0 && s.cooldown == 0
}

func (s *Session) questionTimerEligibleLocked() bool {
	if s.config == nil || !s.config.EnableTimer || s.timeLeft <= 0 || s.cooldown > 0 {
		return false
	}
	for _, op := range []domain.Operation{domain.OpSkip, domain.OpReplace, domain.OpGrade} {
		if s.ops[op] == domain.OpInFlight {
			return false
		}
	}
	idx, _, ok := s.targetLocked()
	return ok && !s.attempts[idx].Answered()
}

func (s *Session) onTick(class timerClass, gen uint64) {
	ctx := context.Background()
	s.lock()
	defer s.release(ctx)

	iv := &s.timers[class]
	if iv.gen != gen {
		return
	}
	iv.timer = nil
	s.touch()

	switch class {
	case timerCountdown:
		s.countdown--
		if s.countdown <= 0 {
			s.countdown = 0
			s.startPlayingLocked()
		}
	case timerQuestion:
		s.timeLeft--
		if s.timeLeft <= 0 {
			s.timeLeft = 0
			s.timeUpLocked()
		}
	case timerCooldown:
		s.cooldown--
		if s.cooldown < 0 {
			s.cooldown = 0
		}
	}
}

// timeUpLocked settles the target question with a zero score.
func (s *Session) timeUpLocked() {
	idx, team, ok := s.targetLocked()
	if !ok || s.attempts[idx].Answered() {
		return
	}
	prev := s.attempts[idx]
	s.recordAnswerLocked(idx, domain.Attempt{
		Status:   domain.AttemptTimedOut,
		Selected: prev.Selected,
		Score:    0,
		Correct:  false,
		Team:     team,
	})
}
