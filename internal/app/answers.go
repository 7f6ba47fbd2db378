package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bible-quiz-service/internal/domain"
)

// SelectOption records a provisional choice for the target question.
func (s *Session) SelectOption(ctx context.Context, option int) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	idx, _, err := s.pendingTargetLocked()
	if err != nil {
		return err
	}
	if s.config.Format == domain.FormatOpenEnded {
		return fmt.Errorf("%w: open questions take a text answer", domain.ErrInvalidPhase)
	}
	if option < 0 || option >= len(s.questions[idx].Options) {
		return domain.ErrIndexOutOfRange
	}

	s.attempts[idx] = domain.Attempt{Status: domain.AttemptPending, Selected: &option}
	s.touch()
	return nil
}

// Confirm finalises the provisional choice with a binary score.
func (s *Session) Confirm(ctx context.Context) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	idx, team, err := s.pendingTargetLocked()
	if err != nil {
		return err
	}
	a := s.attempts[idx]
	if a.Status != domain.AttemptPending || a.Selected == nil {
		return domain.ErrNothingSelected
	}

	selected := *a.Selected
	correct := selected == s.questions[idx].CorrectAnswerIndex
	score := 0.0
	if correct {
		score = 1
	}
	s.recordAnswerLocked(idx, domain.Attempt{
		Status:   domain.AttemptAnswered,
		Selected: &selected,
		Score:    score,
		Correct:  correct,
		Team:     team,
	})
	return nil
}

// SubmitText sends a free-text answer for grading. A score above the
// threshold counts as correct.
func (s *Session) SubmitText(ctx context.Context, text string) (domain.Evaluation, error) {
	text = strings.TrimSpace(text)

	s.lock()
	if err := s.guardLocked(); err != nil {
		s.release(ctx)
		return domain.Evaluation{}, err
	}
	idx, team, err := s.pendingTargetLocked()
	if err != nil {
		s.release(ctx)
		return domain.Evaluation{}, err
	}
	if s.config.Format != domain.FormatOpenEnded {
		s.release(ctx)
		return domain.Evaluation{}, fmt.Errorf("%w: choice questions take an option", domain.ErrInvalidPhase)
	}
	if text == "" {
		s.release(ctx)
		return domain.Evaluation{}, fmt.Errorf("%w: empty answer", domain.ErrNothingSelected)
	}
	if s.ops[domain.OpGrade] == domain.OpInFlight {
		s.release(ctx)
		return domain.Evaluation{}, domain.ErrOperationInFlight
	}
	s.ops[domain.OpGrade] = domain.OpInFlight
	s.touch()
	gen := s.runGen
	q := s.questions[idx]
	s.release(ctx)

	eval, err := s.deps.Source.Grade(ctx, q.Question, q.CanonicalAnswer(), text)

	s.lock()
	defer s.release(ctx)
	stale := s.runGen != gen || idx >= len(s.questions) || s.questions[idx].ID != q.ID
	if dropErr := s.dropReplyLocked(domain.OpGrade, gen, stale); dropErr != nil {
		return domain.Evaluation{}, dropErr
	}
	if err != nil {
		s.failLocked(domain.OpGrade, err)
		return domain.Evaluation{}, fmt.Errorf("grade answer: %w", err)
	}
	s.ops[domain.OpGrade] = domain.OpSucceeded
	s.touch()
	if s.attempts[idx].Answered() {
		return domain.Evaluation{}, domain.ErrStaleResponse
	}

	eval = normalizeEvaluation(eval)
	s.recordAnswerLocked(idx, domain.Attempt{
		Status:   domain.AttemptAnswered,
		Text:     text,
		Score:    eval.Score,
		Correct:  eval.IsCorrect,
		Feedback: eval.Feedback,
		Team:     team,
	})
	return eval, nil
}

func normalizeEvaluation(e domain.Evaluation) domain.Evaluation {
	if e.Score < 0 {
		e.Score = 0
	}
	if e.Score > 1 {
		e.Score = 1
	}
	e.IsCorrect = e.Score > domain.CorrectThreshold
	return e
}

// pendingTargetLocked returns the target question if it can still be answered.
func (s *Session) pendingTargetLocked() (idx, team int, err error) {
	idx, team, ok := s.targetLocked()
	if !ok {
		return 0, 0, domain.ErrInvalidPhase
	}
	if s.attempts[idx].Answered() {
		return 0, 0, domain.ErrQuestionAnswered
	}
	return idx, team, nil
}

// recordAnswerLocked settles the attempt at idx and credits its team. The
// team score is rounded to one decimal after every update.
func (s *Session) recordAnswerLocked(idx int, a domain.Attempt) {
	t := &s.teams[a.Team]
	t.Score = t.Score.Add(decimal.NewFromFloat(a.Score)).Round(1)
	if a.Correct {
		t.CorrectCount++
	} else {
		t.WrongCount++
	}
	s.attempts[idx] = a
	s.touch()

	if !s.reviewing {
		s.emit(domain.AnswerRecorded{
			SessionID: s.id,
			Version:   s.eventVersionLocked(),
			Index:     idx,
			Format:    s.config.Format,
			Score:     a.Score,
			Correct:   a.Correct,
			TimedOut:  a.Status == domain.AttemptTimedOut,
			Voice:     s.effectiveVoiceLocked(),
		})
	}
}

// revertAnswerLocked undoes the contribution of the attempt at idx. The
// recorded score is subtracted exactly and the matching counter decremented,
// never below zero.
func (s *Session) revertAnswerLocked(idx int) {
	a := s.attempts[idx]
	if !a.Answered() || a.Team < 0 || a.Team >= len(s.teams) {
		return
	}
	t := &s.teams[a.Team]
	t.Score = t.Score.Sub(decimal.NewFromFloat(a.Score)).Round(1)
	if a.Correct {
		t.CorrectCount = max(0, t.CorrectCount-1)
	} else {
		t.WrongCount = max(0, t.WrongCount-1)
	}
}

// RevealHint returns the standard hint of the current question. The hint
// budget is charged once per question, whichever hint kind is used first.
func (s *Session) RevealHint(ctx context.Context) (string, error) {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return "", err
	}
	q, err := s.hintTargetLocked(domain.HintStandard)
	if err != nil {
		return "", err
	}
	if err := s.chargeHintLocked(q.ID); err != nil {
		return "", err
	}
	return q.Hint, nil
}

// AskAI sends a free-form question about the current question to the source.
// The hint budget is charged only when an answer arrives.
func (s *Session) AskAI(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)

	s.lock()
	if err := s.guardLocked(); err != nil {
		s.release(ctx)
		return "", err
	}
	q, err := s.hintTargetLocked(domain.HintAskAI)
	if err != nil {
		s.release(ctx)
		return "", err
	}
	if query == "" {
		s.release(ctx)
		return "", fmt.Errorf("%w: empty question", domain.ErrNothingSelected)
	}
	if s.hintCharged != q.ID && s.hintsRemaining == 0 {
		s.release(ctx)
		return "", domain.ErrHintUnavailable
	}
	if s.ops[domain.OpAsk] == domain.OpInFlight {
		s.release(ctx)
		return "", domain.ErrOperationInFlight
	}
	s.ops[domain.OpAsk] = domain.OpInFlight
	s.touch()
	gen := s.runGen
	s.release(ctx)

	answer, err := s.deps.Source.Ask(ctx, q, query)

	s.lock()
	defer s.release(ctx)
	cur, ok := s.currentQuestionLocked()
	if dropErr := s.dropReplyLocked(domain.OpAsk, gen, !ok || cur.ID != q.ID); dropErr != nil {
		return "", dropErr
	}
	if err != nil {
		s.failLocked(domain.OpAsk, err)
		return "", fmt.Errorf("ask: %w", err)
	}
	s.ops[domain.OpAsk] = domain.OpSucceeded
	s.touch()
	if err := s.chargeHintLocked(q.ID); err != nil {
		return "", err
	}
	s.askAnswer = answer
	return answer, nil
}

func (s *Session) hintTargetLocked(kind domain.HintType) (domain.Question, error) {
	if s.phase != domain.PhasePlaying || s.reviewing {
		return domain.Question{}, domain.ErrInvalidPhase
	}
	if !s.config.AllowsHint(kind) {
		return domain.Question{}, fmt.Errorf("%w: %s hints disabled", domain.ErrHintUnavailable, kind)
	}
	if s.attempts[s.currentIndex].Answered() {
		return domain.Question{}, domain.ErrQuestionAnswered
	}
	q, _ := s.currentQuestionLocked()
	return q, nil
}

// chargeHintLocked is a one-shot latch per question id; a new question id
// releases it.
func (s *Session) chargeHintLocked(questionID string) error {
	if s.hintCharged == questionID {
		return nil
	}
	if s.hintsRemaining == 0 {
		return domain.ErrHintUnavailable
	}
	if s.hintsRemaining > 0 {
		s.hintsRemaining--
	}
	s.teams[s.currentTeam].HintsUsed++
	s.hintCharged = questionID
	s.touch()
	return nil
}
