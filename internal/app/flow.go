package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bible-quiz-service/internal/domain"
)

// Generate requests a new quiz for cfg and, on success, starts the countdown.
func (s *Session) Generate(ctx context.Context, cfg domain.QuizConfig) error {
	_, err := s.generate(ctx, cfg, nil)
	return err
}

// Restart generates a new quiz with the last configuration.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.config
	s.mu.Unlock()
	if cfg == nil {
		return fmt.Errorf("%w: nothing to restart", domain.ErrInvalidPhase)
	}
	return s.Generate(ctx, *cfg)
}

func (s *Session) generate(ctx context.Context, cfg domain.QuizConfig, avoid []string) (domain.GeneratedQuiz, error) {
	cfg.AvoidQuestions = nil
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return domain.GeneratedQuiz{}, err
	}

	s.lock()
	if err := s.guardLocked(); err != nil {
		s.release(ctx)
		return domain.GeneratedQuiz{}, err
	}
	if s.ops[domain.OpGenerate] == domain.OpInFlight {
		s.release(ctx)
		return domain.GeneratedQuiz{}, domain.ErrOperationInFlight
	}
	s.beginRunLocked(cfg)
	s.ops[domain.OpGenerate] = domain.OpInFlight
	gen := s.runGen
	s.release(ctx)

	request := cfg
	request.AvoidQuestions = avoid
	quiz, err := s.deps.Source.Generate(ctx, request)
	if err == nil {
		err = checkQuiz(quiz, cfg.Format)
	}

	s.lock()
	defer s.release(ctx)
	if s.runGen != gen {
		return domain.GeneratedQuiz{}, domain.ErrStaleResponse
	}
	if err != nil {
		s.failLocked(domain.OpGenerate, err)
		return domain.GeneratedQuiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = s.deps.NewID()
		}
	}
	s.ops[domain.OpGenerate] = domain.OpSucceeded
	s.title = quiz.Title
	s.questions = quiz.Questions
	s.attempts = newAttempts(len(quiz.Questions))
	s.currentIndex = 0
	s.currentTeam = 0
	s.round = 1
	s.enterCountdownLocked()
	return quiz, nil
}

func checkQuiz(quiz domain.GeneratedQuiz, format domain.QuizFormat) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: no questions", domain.ErrMalformedResponse)
	}
	for i, q := range quiz.Questions {
		if err := q.CheckFormat(format); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// beginRunLocked discards the previous run and prepares counters for cfg.
func (s *Session) beginRunLocked(cfg domain.QuizConfig) {
	s.runGen++
	stored := cfg
	s.config = &stored
	s.title = ""
	s.questions = nil
	s.attempts = nil
	s.voided = make(map[int]struct{})
	s.teams = newTeams(cfg)
	s.phase = domain.PhaseSetup
	s.reviewing = false
	s.reviewIndex = 0
	s.currentIndex = 0
	s.currentTeam = 0
	s.round = 0
	s.hintsRemaining = cfg.MaxHints
	s.hintCharged = ""
	s.askAnswer = ""
	s.countdown = 0
	s.timeLeft = cfg.TimeLimit
	s.cooldown = 0
	s.ops = idleOps()
	s.lastError = ""
	s.stopNarrationLocked()
	s.touch()
}

func newTeams(cfg domain.QuizConfig) []domain.Team {
	if !cfg.IsTeamMode {
		return []domain.Team{{ID: soloTeamID, Name: soloTeamName, Score: decimal.Zero}}
	}
	teams := make([]domain.Team, len(cfg.Teams))
	for i, name := range cfg.Teams {
		teams[i] = domain.Team{ID: fmt.Sprintf("team-%d", i), Name: name, Score: decimal.Zero}
	}
	return teams
}

func newAttempts(n int) []domain.Attempt {
	attempts := make([]domain.Attempt, n)
	for i := range attempts {
		attempts[i] = domain.Attempt{Status: domain.AttemptUnanswered}
	}
	return attempts
}

func (s *Session) enterCountdownLocked() {
	s.restartQuestionTimerLocked()
	s.countdown = s.deps.CountdownSeconds
	s.phase = domain.PhaseCountdown
	s.touch()
	if s.countdown == 0 {
		s.startPlayingLocked()
	}
}

func (s *Session) startPlayingLocked() {
	s.phase = domain.PhasePlaying
	s.askAnswer = ""
	s.touch()
	s.announceQuestionLocked()
}

func (s *Session) announceQuestionLocked() {
	q, ok := s.currentQuestionLocked()
	if !ok {
		return
	}
	s.emit(domain.QuestionStarted{
		SessionID: s.id,
		Version:   s.eventVersionLocked(),
		Index:     s.currentIndex,
		Question:  q,
		Format:    s.config.Format,
		TeamName:  s.teamNameLocked(s.currentTeam),
		Voice:     s.effectiveVoiceLocked(),
	})
}

func (s *Session) currentQuestionLocked() (domain.Question, bool) {
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.currentIndex], true
}

// targetLocked resolves the question an answer applies to and the team that
// scores it: the current question in play, the reviewed one in review.
func (s *Session) targetLocked() (idx, team int, ok bool) {
	if len(s.questions) == 0 || len(s.teams) == 0 {
		return 0, 0, false
	}
	switch {
	case s.phase == domain.PhasePlaying && !s.reviewing:
		return s.currentIndex, s.currentTeam, true
	case s.phase == domain.PhaseFinished && s.reviewing:
		return s.reviewIndex, s.reviewIndex % len(s.teams), true
	}
	return 0, 0, false
}

func (s *Session) rotateTeamLocked() {
	if s.config.IsTeamMode && len(s.teams) > 0 {
		s.currentTeam = (s.currentTeam + 1) % len(s.teams)
	}
}

// Next advances past the answered current question, stopping at round
// boundaries and finishing after the last question.
func (s *Session) Next(ctx context.Context) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhasePlaying {
		return domain.ErrInvalidPhase
	}
	if !s.attempts[s.currentIndex].Answered() {
		return fmt.Errorf("%w: current question not answered", domain.ErrInvalidPhase)
	}

	s.stopNarrationLocked()
	s.touch()
	s.askAnswer = ""
	next := s.currentIndex + 1
	n := len(s.questions)
	switch {
	case next < n && next%s.config.QuestionsPerRound == 0:
		s.phase = domain.PhaseRoundSummary
	case next < n:
		s.currentIndex = next
		s.rotateTeamLocked()
		s.restartQuestionTimerLocked()
		s.announceQuestionLocked()
	default:
		s.phase = domain.PhaseFinished
		s.reviewing = false
		s.reviewIndex = 0
	}
	return nil
}

// NextRound leaves the round summary and counts down into the next round.
func (s *Session) NextRound(ctx context.Context) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseRoundSummary {
		return domain.ErrInvalidPhase
	}
	s.rotateTeamLocked()
	s.round++
	s.currentIndex++
	s.enterCountdownLocked()
	return nil
}

// EnterReview opens the review cursor at the first question.
func (s *Session) EnterReview(ctx context.Context) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseFinished {
		return domain.ErrInvalidPhase
	}
	s.reviewing = true
	s.moveReviewLocked(0)
	s.touch()
	return nil
}

// ReviewNext steps the review cursor forward, stopping at the last question.
func (s *Session) ReviewNext(ctx context.Context) error {
	return s.stepReview(ctx, 1)
}

// ReviewPrev steps the review cursor back, stopping at the first question.
func (s *Session) ReviewPrev(ctx context.Context) error {
	return s.stepReview(ctx, -1)
}

func (s *Session) stepReview(ctx context.Context, delta int) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseFinished || !s.reviewing {
		return domain.ErrInvalidPhase
	}
	target := s.reviewIndex + delta
	if target < 0 {
		target = 0
	}
	if target > len(s.questions)-1 {
		target = len(s.questions) - 1
	}
	if target != s.reviewIndex {
		s.moveReviewLocked(target)
		s.touch()
	}
	return nil
}

func (s *Session) moveReviewLocked(idx int) {
	s.reviewIndex = idx
	s.askAnswer = ""
	s.restartQuestionTimerLocked()
}

// CloseReview returns to the final summary.
func (s *Session) CloseReview(ctx context.Context) error {
	s.lock()
	defer s.release(ctx)
	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.phase != domain.PhaseFinished || !s.reviewing {
		return domain.ErrInvalidPhase
	}
	s.reviewing = false
	s.touch()
	return nil
}
