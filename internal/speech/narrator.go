// Package speech turns session events into read-aloud narration.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

// PCMMimeType describes the audio produced by the Gemini speech model.
const PCMMimeType = "audio/L16;codec=pcm;rate=24000"

var optionLetters = []string{"A", "B", "C", "D"}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

// Narrator listens for played questions and recorded answers and publishes
// the text to read, with audio when the session uses the server engine.
type Narrator struct {
	synth  Synthesizer
	events Publisher
}

// NewNarrator builds a narrator. synth may be nil, in which case only text
// is published.
func NewNarrator(synth Synthesizer, events Publisher) *Narrator {
	return &Narrator{synth: synth, events: events}
}

// Register subscribes the narrator to bus.
func (n *Narrator) Register(bus *event.Bus) {
	bus.Subscribe(domain.EventQuestionStarted, n.handleQuestion)
	bus.Subscribe(domain.EventAnswerRecorded, n.handleAnswer)
}

func (n *Narrator) handleQuestion(ctx context.Context, e event.Event) error {
	qs, ok := e.(domain.QuestionStarted)
	if !ok {
		return fmt.Errorf("speech: unexpected event %T", e)
	}
	if !qs.Voice.Enabled || !qs.Voice.AutoRead {
		return nil
	}
	n.narrate(ctx, domain.NarrationReady{
		SessionID: qs.SessionID,
		Version:   qs.Version,
		Index:     qs.Index,
		Text:      QuestionText(qs.TeamName, qs.Question),
	}, qs.Voice)
	return nil
}

func (n *Narrator) handleAnswer(ctx context.Context, e event.Event) error {
	ar, ok := e.(domain.AnswerRecorded)
	if !ok {
		return fmt.Errorf("speech: unexpected event %T", e)
	}
	if !ar.Voice.Enabled {
		return nil
	}
	n.narrate(ctx, domain.NarrationReady{
		SessionID: ar.SessionID,
		Version:   ar.Version,
		Index:     ar.Index,
		Text:      FeedbackText(ar.Score),
	}, ar.Voice)
	return nil
}

func (n *Narrator) narrate(ctx context.Context, ready domain.NarrationReady, voice domain.VoiceConfig) {
	if voice.Engine == domain.EngineGemini && n.synth != nil {
		audio, err := n.synth.Synthesize(ctx, ready.Text, voice)
		if err != nil {
			// The client falls back to its own engine when no audio arrives.
			slog.WarnContext(ctx, "speech: synthesis failed", "session", ready.SessionID, "error", err)
		} else {
			ready.Audio = audio
			ready.MimeType = PCMMimeType
		}
	}
	n.events.Publish(ctx, ready)
}

// QuestionText is what gets read when a question starts.
func QuestionText(teamName string, q domain.Question) string {
	var b strings.Builder
	if teamName != "" {
		fmt.Fprintf(&b, "Pergunta para %s. ", teamName)
	}
	b.WriteString(strings.TrimRight(q.Question, "."))
	b.WriteString(".")
	if len(q.Options) == 0 {
		b.WriteString(" Responda à pergunta.")
		return b.String()
	}
	for i, opt := range q.Options {
		if i >= len(optionLetters) {
			break
		}
		fmt.Fprintf(&b, " Alternativa %s: %s.", optionLetters[i], opt)
	}
	return b.String()
}

// FeedbackText is read after an answer is recorded.
func FeedbackText(score float64) string {
	switch score {
	case 0:
		return "Resposta incorreta."
	case 1:
		return "Resposta correta!"
	}
	return fmt.Sprintf("Parcialmente correto. %s pontos.", strconv.FormatFloat(score, 'f', -1, 64))
}
