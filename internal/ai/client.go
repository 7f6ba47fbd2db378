package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"bible-quiz-service/internal/domain"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultTTSModel = "gemini-2.5-flash-preview-tts"
	DefaultTimeout  = 120 * time.Second
)

// Options configures a Client. Zero values fall back to the defaults above;
// an empty BaseURL uses the public Gemini endpoint.
type Options struct {
	APIKey   string
	BaseURL  string
	Model    string
	TTSModel string
	Timeout  time.Duration
}

// Client talks to Gemini through the genai SDK. It serves both as the quiz
// question source and as the speech source.
type Client struct {
	models   *genai.Models
	initErr  error
	apiKey   string
	model    string
	ttsModel string
	now      func() time.Time
	theme    func() string
}

func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		model:    opts.Model,
		ttsModel: opts.TTSModel,
		now:      time.Now,
		theme:    randomTheme,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.ttsModel == "" {
		c.ttsModel = DefaultTTSModel
	}
	if c.apiKey == "" {
		return c
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: opts.BaseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		c.initErr = err
		return c
	}
	c.models = client.Models
	return c
}

// IsAvailable reports whether an API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// Generate requests a whole quiz for cfg.
func (c *Client) Generate(ctx context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error) {
	text, err := c.generateText(ctx, quizPrompt(cfg, c.theme(), c.now().UnixMilli()), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(cfg.Temperature)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    quizSchema,
	})
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}
	if text == "" {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: empty quiz", domain.ErrMalformedResponse)
	}

	var quiz domain.GeneratedQuiz
	if err := json.Unmarshal([]byte(cleanJSON(text)), &quiz); err != nil {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: decode quiz: %v", domain.ErrMalformedResponse, err)
	}
	if len(quiz.Questions) == 0 {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: no questions", domain.ErrMalformedResponse)
	}
	for i := range quiz.Questions {
		normalizeQuestion(&quiz.Questions[i], cfg.Format)
		if err := quiz.Questions[i].CheckFormat(cfg.Format); err != nil {
			return domain.GeneratedQuiz{}, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return quiz, nil
}

// Replace requests one record that differs from avoid.
func (c *Client) Replace(ctx context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error) {
	text, err := c.generateText(ctx, replacementPrompt(cfg, avoid), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(cfg.Temperature)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    questionSchema,
	})
	if err != nil {
		return domain.Question{}, err
	}
	if text == "" {
		return domain.Question{}, fmt.Errorf("%w: empty replacement", domain.ErrMalformedResponse)
	}

	var q domain.Question
	if err := json.Unmarshal([]byte(cleanJSON(text)), &q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: decode replacement: %v", domain.ErrMalformedResponse, err)
	}
	normalizeQuestion(&q, cfg.Format)
	if err := q.CheckFormat(cfg.Format); err != nil {
		return domain.Question{}, err
	}
	q.ID = "sub-" + uuid.NewString()
	return q, nil
}

// Grade scores a free-text answer against the model answer. A reply that
// cannot be read yields a zero score rather than an error.
func (c *Client) Grade(ctx context.Context, question, modelAnswer, userAnswer string) (domain.Evaluation, error) {
	text, err := c.generateText(ctx, gradePrompt(question, modelAnswer, userAnswer), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   evaluationSchema,
	})
	if err != nil {
		return domain.Evaluation{}, err
	}
	return parseEvaluation(text), nil
}

// Ask answers a player's question about q without giving the answer away.
func (c *Client) Ask(ctx context.Context, q domain.Question, query string) (string, error) {
	text, err := c.generateText(ctx, askPrompt(q, query), nil)
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return askFallback, nil
	}
	return text, nil
}

// Validate sends a minimal request to check the key and model access.
func (c *Client) Validate(ctx context.Context) error {
	text, err := c.generateText(ctx, "Reply 'OK' if you can read this.", nil)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty validation reply", domain.ErrUpstream)
	}
	return nil
}

// generateText sends prompt to the text model and joins the text parts of
// the first candidate.
func (c *Client) generateText(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.call(ctx, c.model, prompt, cfg)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range firstParts(resp) {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *Client) call(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if !c.IsAvailable() {
		return nil, domain.ErrMissingCredential
	}
	if c.initErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, c.initErr)
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

// classify maps an SDK failure onto the domain error vocabulary.
func classify(err error) error {
	// Timeouts read "deadline exceeded" and must not pass for a quota error.
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return fmt.Errorf("%w: request timed out: %w", domain.ErrUpstream, context.DeadlineExceeded)
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	wrapped := fmt.Errorf("API returned status %d: %s: %s", apiErr.Code, apiErr.Status, apiErr.Message)
	if apiErr.Code == http.StatusTooManyRequests || domain.IsRateLimited(wrapped) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, wrapped)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, wrapped)
}

func firstParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
