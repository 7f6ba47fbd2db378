package speech

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.NarrationReady
}

func (r *recorder) Publish(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nr, ok := e.(domain.NarrationReady); ok {
		r.events = append(r.events, nr)
	}
}

type stubSynth struct {
	calls int
	err   error
}

func (s *stubSynth) Synthesize(context.Context, string, domain.VoiceConfig) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("pcm"), nil
}

var question = domain.Question{
	Question: "Quem construiu a arca",
	Options:  []string{"Noé", "Abraão", "Moisés", "Jó"},
}

func TestQuestionText(t *testing.T) {
	tests := map[string]struct {
		team string
		q    domain.Question
		want string
	}{
		"solo choice": {
			q:    question,
			want: "Quem construiu a arca. Alternativa A: Noé. Alternativa B: Abraão. Alternativa C: Moisés. Alternativa D: Jó.",
		},
		"team open": {
			team: "Equipe Azul",
			q:    domain.Question{Question: "Quem foi Enoque?"},
			want: "Pergunta para Equipe Azul. Quem foi Enoque?. Responda à pergunta.",
		},
		"true false": {
			q:    domain.Question{Question: "Noé tinha três filhos.", Options: domain.TrueFalseOptions},
			want: "Noé tinha três filhos. Alternativa A: Verdadeiro. Alternativa B: Falso.",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, QuestionText(tc.team, tc.q))
		})
	}
}

func TestFeedbackText(t *testing.T) {
	assert.Equal(t, "Resposta incorreta.", FeedbackText(0))
	assert.Equal(t, "Resposta correta!", FeedbackText(1))
	assert.Equal(t, "Parcialmente correto. 0.5 pontos.", FeedbackText(0.5))
}

func TestNarratorEngines(t *testing.T) {
	tests := map[string]struct {
		voice     domain.VoiceConfig
		synthErr  error
		wantCalls int
		wantAudio bool
		wantEvent bool
	}{
		"browser sends text": {
			voice:     domain.VoiceConfig{Enabled: true, AutoRead: true, Engine: domain.EngineBrowser},
			wantEvent: true,
		},
		"gemini sends audio": {
			voice:     domain.VoiceConfig{Enabled: true, AutoRead: true, Engine: domain.EngineGemini},
			wantCalls: 1,
			wantAudio: true,
			wantEvent: true,
		},
		"synthesis failure still sends text": {
			voice:     domain.VoiceConfig{Enabled: true, AutoRead: true, Engine: domain.EngineGemini},
			synthErr:  errors.New("quota"),
			wantCalls: 1,
			wantEvent: true,
		},
		"auto read off": {
			voice: domain.VoiceConfig{Enabled: true, Engine: domain.EngineGemini},
		},
		"disabled": {
			voice: domain.VoiceConfig{AutoRead: true, Engine: domain.EngineGemini},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			synth := &stubSynth{err: tc.synthErr}
			n := NewNarrator(synth, rec)

			err := n.handleQuestion(context.Background(), domain.QuestionStarted{SessionID: "s1", Version: 3, Index: 1, Question: question, Voice: tc.voice})
			require.NoError(t, err)

			assert.Equal(t, tc.wantCalls, synth.calls)
			if !tc.wantEvent {
				assert.Empty(t, rec.events)
				return
			}
			require.Len(t, rec.events, 1)
			assert.Equal(t, "s1", rec.events[0].SessionID)
			assert.Equal(t, int64(3), rec.events[0].Version)
			assert.Equal(t, 1, rec.events[0].Index)
			assert.Equal(t, tc.wantAudio, len(rec.events[0].Audio) > 0)
		})
	}
}

func TestNarratorThroughBus(t *testing.T) {
	bus := event.NewBus()
	rec := &recorder{}
	NewNarrator(nil, rec).Register(bus)

	bus.Publish(context.Background(), domain.AnswerRecorded{
		SessionID: "s1", Version: 7, Index: 2, Score: 1, Correct: true,
		Voice: domain.VoiceConfig{Enabled: true, Engine: domain.EngineBrowser},
	})
	bus.Stop()

	require.Len(t, rec.events, 1)
	assert.Equal(t, "Resposta correta!", rec.events[0].Text)
	assert.Equal(t, int64(7), rec.events[0].Version)
	assert.Equal(t, 2, rec.events[0].Index)
}
