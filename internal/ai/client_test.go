package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/domain"
)

// reply wraps text as a generateContent response body.
func reply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

// capturedRequest is the part of a generateContent body the tests inspect.
type capturedRequest struct {
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig *struct {
		Temperature        *float64        `json:"temperature"`
		ResponseMimeType   string          `json:"responseMimeType"`
		ResponseSchema     json.RawMessage `json:"responseSchema"`
		ResponseModalities []string        `json:"responseModalities"`
		SpeechConfig       *struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

type recorded struct {
	path   string
	key    string
	prompt string
	req    capturedRequest
}

func newTestClient(t *testing.T, status int, body string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.key = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &rec.req)
		if len(rec.req.Contents) > 0 && len(rec.req.Contents[0].Parts) > 0 {
			rec.prompt = rec.req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, c.initErr)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	c.theme = func() string { return hiddenThemes[0] }
	return c, rec
}

const mcQuiz = "```json\n" + `{"title":"Reis","questions":[{"id":"q1","question":"Quem?","options":["a","b","c","d"],"correctAnswerIndex":2,"reference":"1 Reis 3:9","explanation":"e","hint":"h"}]}` + "\n```"

func TestClientGenerate(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, reply(mcQuiz))
	cfg := domain.QuizConfig{
		Mode: domain.TopicGeneral, Difficulty: domain.DifficultyHard, Format: domain.FormatMultipleChoice,
		Count: 1, Temperature: 0.3, AvoidQuestions: []string{"Quem matou Golias?"},
	}

	quiz, err := c.Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "Reis", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 2, quiz.Questions[0].CorrectAnswerIndex)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", rec.path)
	assert.Equal(t, "test-key", rec.key)
	assert.Contains(t, rec.prompt, "Crie um quiz com 1 perguntas.")
	assert.Contains(t, rec.prompt, "Dificuldade: Difícil.")
	assert.Contains(t, rec.prompt, hiddenThemes[0])
	assert.Contains(t, rec.prompt, "Seed de Aleatoriedade: 1700000000000")
	assert.Contains(t, rec.prompt, "- Quem matou Golias?")
	require.NotNil(t, rec.req.GenerationConfig)
	assert.Equal(t, "application/json", rec.req.GenerationConfig.ResponseMimeType)
	assert.InDelta(t, 0.3, *rec.req.GenerationConfig.Temperature, 1e-6)
	assert.Contains(t, string(rec.req.GenerationConfig.ResponseSchema), `"questions"`)
	require.NotNil(t, rec.req.SystemInstruction)
	require.NotEmpty(t, rec.req.SystemInstruction.Parts)
	assert.Equal(t, systemInstruction, rec.req.SystemInstruction.Parts[0].Text)
}

func TestClientGenerateTopicPrompts(t *testing.T) {
	tests := map[string]struct {
		cfg     domain.QuizConfig
		want    string
		noTheme bool
	}{
		"book": {
			cfg:     domain.QuizConfig{Mode: domain.TopicBook, Book: "Rute"},
			want:    "Livro bíblico de Rute",
			noTheme: true,
		},
		"specific": {
			cfg:     domain.QuizConfig{Mode: domain.TopicSpecific, SpecificTopic: "Ester"},
			want:    `Assunto Específico: "Ester"`,
			noTheme: true,
		},
		"history": {
			cfg:     domain.QuizConfig{Mode: domain.TopicHistory},
			want:    "História Moderna das Testemunhas de Jeová",
			noTheme: true,
		},
		"general": {
			cfg:  domain.QuizConfig{Mode: domain.TopicGeneral},
			want: "Temas variados sobre a Bíblia",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			prompt := quizPrompt(tc.cfg, "TEMA-OCULTO", 1)
			assert.Contains(t, prompt, tc.want)
			assert.Equal(t, !tc.noTheme, strings.Contains(prompt, "TEMA-OCULTO"))
		})
	}
}

func TestClientGenerateTrueFalseNormalisesOptions(t *testing.T) {
	body := `{"title":"T","questions":[{"id":"q1","question":"Davi era rei.","options":["True","False"],"correctAnswerIndex":0,"reference":"r","explanation":"e","hint":"h"}]}`
	c, _ := newTestClient(t, http.StatusOK, reply(body))

	quiz, err := c.Generate(context.Background(), domain.QuizConfig{Mode: domain.TopicGeneral, Format: domain.FormatTrueFalse, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.TrueFalseOptions, quiz.Questions[0].Options)
}

func TestClientGenerateMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":      "isto não é json",
		"empty":         "",
		"no questions":  `{"title":"T","questions":[]}`,
		"three options": `{"title":"T","questions":[{"question":"Q","options":["a","b","c"],"correctAnswerIndex":0}]}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.StatusOK, reply(text))
			_, err := c.Generate(context.Background(), domain.QuizConfig{Mode: domain.TopicGeneral, Format: domain.FormatMultipleChoice, Count: 1})
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
		want   error
	}{
		"429": {
			status: http.StatusTooManyRequests,
			body:   `{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`,
			want:   domain.ErrRateLimited,
		},
		"quota message": {
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"Quota exceeded for metric","status":"PERMISSION_DENIED"}}`,
			want:   domain.ErrRateLimited,
		},
		"server error": {
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`,
			want:   domain.ErrUpstream,
		},
		"bad request": {
			status: http.StatusBadRequest,
			body:   "plain text",
			want:   domain.ErrUpstream,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, tc.status, tc.body)
			_, err := c.Ask(context.Background(), domain.Question{Question: "Q"}, "?")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, errors.Is(tc.want, domain.ErrRateLimited), domain.IsRateLimited(err))
		})
	}
}

func TestClientMissingKeyMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "  ", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), domain.QuizConfig{Mode: domain.TopicGeneral, Count: 1})

	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.False(t, c.IsAvailable())
	assert.Zero(t, calls.Load())
}

func TestClientTimeoutIsNotRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := c.Validate(context.Background())

	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.False(t, domain.IsRateLimited(err))
}

func TestClientReplace(t *testing.T) {
	body := `{"id":"q9","question":"Quem foi Boaz?","options":["a","b","c","d"],"correctAnswerIndex":1,"reference":"Rute 2:1","explanation":"e","hint":"h"}`
	c, rec := newTestClient(t, http.StatusOK, reply(body))

	q, err := c.Replace(context.Background(), domain.QuizConfig{Mode: domain.TopicBook, Book: "Rute", Format: domain.FormatMultipleChoice, Difficulty: domain.DifficultyEasy}, "Quem foi Noemi?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(q.ID, "sub-"))
	assert.Equal(t, "Quem foi Boaz?", q.Question)
	assert.Contains(t, rec.prompt, `"Quem foi Noemi?"`)
	assert.Contains(t, rec.prompt, "Dificuldade: Fácil.")
}

func TestClientGrade(t *testing.T) {
	tests := map[string]struct {
		text string
		want domain.Evaluation
	}{
		"partial": {
			text: `{"score":0.5,"feedback":"quase","isCorrect":true}`,
			want: domain.Evaluation{Score: 0.5, Feedback: "quase", IsCorrect: false},
		},
		"clamped": {
			text: `{"score":1.4,"feedback":"ótimo","isCorrect":true}`,
			want: domain.Evaluation{Score: 1, Feedback: "ótimo", IsCorrect: true},
		},
		"threshold is exclusive": {
			text: `{"score":0.6,"feedback":"ok","isCorrect":true}`,
			want: domain.Evaluation{Score: 0.6, Feedback: "ok", IsCorrect: false},
		},
		"unreadable": {
			text: "???",
			want: domain.Evaluation{Feedback: badGradeFeedback},
		},
		"empty": {
			text: "",
			want: domain.Evaluation{Feedback: emptyGradeFeedback},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.StatusOK, reply(tc.text))
			got, err := c.Grade(context.Background(), "Q", "A", "resposta")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClientAskFallback(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, reply("  "))
	answer, err := c.Ask(context.Background(), domain.Question{Question: "Quem?", Options: []string{"a", "b"}, CorrectAnswerIndex: 1, Reference: "Gên 1:1"}, "por quê?")

	require.NoError(t, err)
	assert.Equal(t, askFallback, answer)
	assert.Contains(t, rec.prompt, `O usuário perguntou: "por quê?"`)
	assert.Contains(t, rec.prompt, `Alternativas: ["a","b"]`)
}

func TestClientSynthesize(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{
				"inlineData": map[string]any{"mimeType": "audio/L16;rate=24000", "data": base64.StdEncoding.EncodeToString(pcm)},
			}}},
		}},
	})
	c, rec := newTestClient(t, http.StatusOK, string(body))

	audio, err := c.Synthesize(context.Background(), "Olá", domain.VoiceConfig{Gender: "male"})
	require.NoError(t, err)

	assert.Equal(t, pcm, audio)
	assert.Equal(t, "/v1beta/models/"+DefaultTTSModel+":generateContent", rec.path)
	require.NotNil(t, rec.req.GenerationConfig)
	assert.Equal(t, []string{"AUDIO"}, rec.req.GenerationConfig.ResponseModalities)
	require.NotNil(t, rec.req.GenerationConfig.SpeechConfig)
	assert.Equal(t, "Puck", rec.req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanJSON(in))
	}
}
