package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/app"
	"bible-quiz-service/internal/clock"
	"bible-quiz-service/internal/domain"
)

// fakeSource is a scriptable QuestionSource. When gate is set, Replace
// signals entered and waits for gate before answering; gradeGate does the
// same for Grade.
type fakeSource struct {
	mu sync.Mutex

	quiz       domain.GeneratedQuiz
	genErr     error
	genCalls   []domain.QuizConfig
	replaceErr error
	replaced   []domain.QuizConfig
	avoided    []string
	eval       domain.Evaluation
	gradeErr   error
	answer     string
	askErr     error

	gate    chan struct{}
	entered chan struct{}
	seq     int

	gradeGate    chan struct{}
	gradeEntered chan struct{}
}

func (f *fakeSource) Generate(_ context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls = append(f.genCalls, cfg)
	if f.genErr != nil {
		return domain.GeneratedQuiz{}, f.genErr
	}
	quiz := f.quiz
	quiz.Questions = append([]domain.Question(nil), f.quiz.Questions...)
	return quiz, nil
}

func (f *fakeSource) Replace(_ context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.replaced = append(f.replaced, cfg)
	f.avoided = append(f.avoided, avoid)
	f.seq++
	seq := f.seq
	err := f.replaceErr
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	if err != nil {
		return domain.Question{}, err
	}
	return questionFor(cfg.Format, fmt.Sprintf("replacement %d", seq)), nil
}

func (f *fakeSource) Grade(context.Context, string, string, string) (domain.Evaluation, error) {
	f.mu.Lock()
	gate, entered := f.gradeGate, f.gradeEntered
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eval, f.gradeErr
}

func (f *fakeSource) Ask(context.Context, domain.Question, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answer, f.askErr
}

func (f *fakeSource) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
}

func (f *fakeSource) unblock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gate)
	f.gate = nil
}

func (f *fakeSource) blockGrade() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gradeGate = make(chan struct{})
	f.gradeEntered = make(chan struct{}, 1)
}

func (f *fakeSource) unblockGrade() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gradeGate)
	f.gradeGate = nil
}

func (f *fakeSource) setReplaceErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceErr = err
}

func questionFor(format domain.QuizFormat, text string) domain.Question {
	q := domain.Question{
		Question:    text,
		Reference:   "João 3:16",
		Hint:        "pense no amor",
		Explanation: "explicação",
	}
	switch format {
	case domain.FormatTrueFalse:
		q.Options = append([]string(nil), domain.TrueFalseOptions...)
		q.CorrectAnswerIndex = 0
	case domain.FormatOpenEnded:
		q.CorrectAnswerIndex = -1
		q.CorrectAnswerText = "Jesus"
	default:
		q.Options = []string{"A", "B", "C", "D"}
		q.CorrectAnswerIndex = 1
	}
	return q
}

func quizOf(format domain.QuizFormat, n int) domain.GeneratedQuiz {
	quiz := domain.GeneratedQuiz{Title: "Quiz de teste"}
	for i := 0; i < n; i++ {
		q := questionFor(format, fmt.Sprintf("pergunta %d", i))
		q.ID = fmt.Sprintf("q%d", i)
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func baseConfig(n, perRound int) domain.QuizConfig {
	return domain.QuizConfig{
		Mode:              domain.TopicGeneral,
		Difficulty:        domain.DifficultyMedium,
		Format:            domain.FormatMultipleChoice,
		Count:             n,
		TimeLimit:         30,
		MaxHints:          domain.UnlimitedHints,
		QuestionsPerRound: perRound,
	}
}

type harness struct {
	session *app.Session
	source  *fakeSource
	clock   *clock.Fake
}

func newHarness(t *testing.T, source *fakeSource) *harness {
	t.Helper()
	c := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ids := 0
	s := app.NewSession("s-1", app.Dependencies{
		Source: source,
		Clock:  c,
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})
	return &harness{session: s, source: source, clock: c}
}

// start generates cfg and runs the countdown into play.
func (h *harness) start(t *testing.T, cfg domain.QuizConfig) {
	t.Helper()
	require.NoError(t, h.session.Generate(context.Background(), cfg))
	require.Equal(t, domain.PhaseCountdown, h.session.Snapshot().Phase)
	h.clock.Advance(time.Duration(app.DefaultCountdownSeconds) * time.Second)
	require.Equal(t, domain.PhasePlaying, h.session.Snapshot().Phase)
}

// answer selects option and confirms it on the current question.
func (h *harness) answer(t *testing.T, option int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.session.SelectOption(ctx, option))
	require.NoError(t, h.session.Confirm(ctx))
}
