package app

import (
	"context"
	"fmt"

	"bible-quiz-service/internal/domain"
)

const replacementIDPrefix = "sub-"

// Skip swaps the unanswered current question for one a tier harder than the
// configured difficulty. Nothing is scored.
func (s *Session) Skip(ctx context.Context) error {
	s.lock()
	if err := s.guardLocked(); err != nil {
		s.release(ctx)
		return err
	}
	if s.phase != domain.PhasePlaying || s.reviewing {
		s.release(ctx)
		return domain.ErrInvalidPhase
	}
	idx := s.currentIndex
	if s.attempts[idx].Answered() {
		s.release(ctx)
		return domain.ErrQuestionAnswered
	}
	if s.ops[domain.OpSkip] == domain.OpInFlight {
		s.release(ctx)
		return domain.ErrOperationInFlight
	}
	s.ops[domain.OpSkip] = domain.OpInFlight
	s.stopNarrationLocked()
	s.touch()
	gen := s.runGen
	old := s.questions[idx]
	cfg := *s.config
	cfg.Difficulty = domain.NextDifficulty(cfg.Difficulty)
	s.release(ctx)

	q, err := s.deps.Source.Replace(ctx, cfg, old.Question)
	if err == nil {
		err = q.CheckFormat(cfg.Format)
	}

	s.lock()
	defer s.release(ctx)
	stale := s.runGen != gen || idx >= len(s.questions) || s.questions[idx].ID != old.ID
	if dropErr := s.dropReplyLocked(domain.OpSkip, gen, stale); dropErr != nil {
		return dropErr
	}
	if err != nil {
		s.failLocked(domain.OpSkip, err)
		return fmt.Errorf("skip question: %w", err)
	}
	s.ops[domain.OpSkip] = domain.OpSucceeded
	s.swapQuestionLocked(idx, q)
	if s.phase == domain.PhasePlaying && s.currentIndex == idx {
		s.askAnswer = ""
		s.announceQuestionLocked()
	}
	return nil
}

// Replace voids the question at index: its recorded result is reverted, the
// record is regenerated and the question can be answered again. While playing
// only the current question qualifies; a finished run accepts any index.
func (s *Session) Replace(ctx context.Context, index int) error {
	s.lock()
	if err := s.guardLocked(); err != nil {
		s.release(ctx)
		return err
	}
	if s.phase != domain.PhasePlaying && s.phase != domain.PhaseFinished {
		s.release(ctx)
		return domain.ErrInvalidPhase
	}
	if index < 0 || index >= len(s.questions) {
		s.release(ctx)
		return domain.ErrIndexOutOfRange
	}
	// During play only the question on screen can be voided.
	if s.phase == domain.PhasePlaying && index != s.currentIndex {
		s.release(ctx)
		return fmt.Errorf("%w: question %d is not on screen", domain.ErrInvalidPhase, index)
	}
	if s.ops[domain.OpReplace] == domain.OpInFlight {
		s.release(ctx)
		return domain.ErrOperationInFlight
	}
	s.ops[domain.OpReplace] = domain.OpInFlight
	s.touch()
	gen := s.runGen
	old := s.questions[index]
	cfg := *s.config
	s.release(ctx)

	q, err := s.deps.Source.Replace(ctx, cfg, old.Question)
	if err == nil {
		err = q.CheckFormat(cfg.Format)
	}

	s.lock()
	defer s.release(ctx)
	stale := s.runGen != gen || index >= len(s.questions) || s.questions[index].ID != old.ID
	if dropErr := s.dropReplyLocked(domain.OpReplace, gen, stale); dropErr != nil {
		return dropErr
	}
	if err != nil {
		s.failLocked(domain.OpReplace, err)
		return fmt.Errorf("replace question %d: %w", index, err)
	}
	s.ops[domain.OpReplace] = domain.OpSucceeded
	s.revertAnswerLocked(index)
	s.voided[index] = struct{}{}
	s.swapQuestionLocked(index, q)
	return nil
}

// swapQuestionLocked installs q at idx under a fresh identifier and clears
// the attempt there.
func (s *Session) swapQuestionLocked(idx int, q domain.Question) {
	q.ID = replacementIDPrefix + s.deps.NewID()
	s.questions[idx] = q
	s.attempts[idx] = domain.Attempt{Status: domain.AttemptUnanswered}
	s.restartQuestionTimerLocked()
	s.touch()
}
