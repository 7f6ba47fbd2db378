package metrics

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

type stubSource struct{ err error }

func (s stubSource) Generate(context.Context, domain.QuizConfig) (domain.GeneratedQuiz, error) {
	return domain.GeneratedQuiz{Title: "t"}, s.err
}

func (s stubSource) Replace(context.Context, domain.QuizConfig, string) (domain.Question, error) {
	return domain.Question{}, s.err
}

func (s stubSource) Grade(context.Context, string, string, string) (domain.Evaluation, error) {
	return domain.Evaluation{}, s.err
}

func (s stubSource) Ask(context.Context, domain.Question, string) (string, error) {
	return "", s.err
}

func TestInstrumentedSourceOutcomes(t *testing.T) {
	tests := map[string]struct {
		err     error
		outcome string
	}{
		"ok":           {outcome: "ok"},
		"rate limited": {err: fmt.Errorf("status 429: %w", domain.ErrRateLimited), outcome: "rate_limited"},
		"no key":       {err: domain.ErrMissingCredential, outcome: "missing_credential"},
		"malformed":    {err: domain.ErrMalformedResponse, outcome: "malformed"},
		"other":        {err: domain.ErrUpstream, outcome: "error"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			m := New(prometheus.NewRegistry())
			src := m.Instrument(stubSource{err: tc.err})

			quiz, err := src.Generate(context.Background(), domain.QuizConfig{})
			assert.Equal(t, "t", quiz.Title)
			assert.ErrorIs(t, err, tc.err)

			got := testutil.ToFloat64(m.calls.WithLabelValues(string(domain.OpGenerate), tc.outcome))
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestCountEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	bus := event.NewBus()
	m.CountEvents(bus, domain.EventAnswerRecorded, domain.EventCooldownStarted)

	ctx := context.Background()
	bus.Publish(ctx, domain.AnswerRecorded{SessionID: "s"})
	bus.Publish(ctx, domain.AnswerRecorded{SessionID: "s"})
	bus.Publish(ctx, domain.CooldownStarted{SessionID: "s", Seconds: 60})
	bus.Publish(ctx, domain.NarrationStopped{SessionID: "s"})
	bus.Stop()

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(domain.EventAnswerRecorded)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(domain.EventCooldownStarted)))
	require.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues(domain.EventNarrationStopped)))
}
