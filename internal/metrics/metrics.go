// Package metrics exposes Prometheus instrumentation for the question
// source and the session event stream.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

// Source mirrors the question source contract of the session.
type Source interface {
	Generate(ctx context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error)
	Replace(ctx context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error)
	Grade(ctx context.Context, question, modelAnswer, userAnswer string) (domain.Evaluation, error)
	Ask(ctx context.Context, question domain.Question, query string) (string, error)
}

type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Subsystem: "source",
			Name:      "calls_total",
			Help:      "Question source calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quiz",
			Subsystem: "source",
			Name:      "call_duration_seconds",
			Help:      "Question source call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "events_total",
			Help:      "Session events published by name.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.calls, m.duration, m.events)
	return m
}

// Observe records one finished call.
func (m *Metrics) Observe(op domain.Operation, start time.Time, err error) {
	m.calls.WithLabelValues(string(op), outcome(err)).Inc()
	m.duration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
}

// CountEvents subscribes to the given event names on bus.
func (m *Metrics) CountEvents(bus *event.Bus, names ...string) {
	for _, name := range names {
		bus.Subscribe(name, func(_ context.Context, e event.Event) error {
			m.events.WithLabelValues(e.Name()).Inc()
			return nil
		})
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}

// Instrument wraps src so every call is counted and timed.
func (m *Metrics) Instrument(src Source) *InstrumentedSource {
	return &InstrumentedSource{next: src, m: m}
}

type InstrumentedSource struct {
	next Source
	m    *Metrics
}

func (s *InstrumentedSource) Generate(ctx context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error) {
	start := time.Now()
	quiz, err := s.next.Generate(ctx, cfg)
	s.m.Observe(domain.OpGenerate, start, err)
	return quiz, err
}

func (s *InstrumentedSource) Replace(ctx context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error) {
	start := time.Now()
	q, err := s.next.Replace(ctx, cfg, avoid)
	s.m.Observe(domain.OpReplace, start, err)
	return q, err
}

func (s *InstrumentedSource) Grade(ctx context.Context, question, modelAnswer, userAnswer string) (domain.Evaluation, error) {
	start := time.Now()
	eval, err := s.next.Grade(ctx, question, modelAnswer, userAnswer)
	s.m.Observe(domain.OpGrade, start, err)
	return eval, err
}

func (s *InstrumentedSource) Ask(ctx context.Context, question domain.Question, query string) (string, error) {
	start := time.Now()
	answer, err := s.next.Ask(ctx, question, query)
	s.m.Observe(domain.OpAsk, start, err)
	return answer, err
}
