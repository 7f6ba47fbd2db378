// Package deck serves quizzes from YAML files so the service can run without
// a model behind it.
package deck

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"bible-quiz-service/internal/domain"
)

// Source is a question source backed by a fixed list of records.
type Source struct {
	title     string
	questions []domain.Question

	mu   sync.Mutex
	rnd  *rand.Rand
	used map[string]struct{}
}

// Load reads a deck file.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeckNotFound, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a deck from r. An empty deck is rejected.
func Parse(r io.Reader) (*Source, error) {
	var quiz domain.GeneratedQuiz
	if err := yaml.NewDecoder(r).Decode(&quiz); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrDeckNotFound
	}
	return New(quiz), nil
}

func New(quiz domain.GeneratedQuiz) *Source {
	return &Source{
		title:     quiz.Title,
		questions: quiz.Questions,
		rnd:       rand.New(rand.NewSource(1)),
		used:      make(map[string]struct{}),
	}
}

// Write encodes quiz as a deck file.
func Write(w io.Writer, quiz domain.GeneratedQuiz) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(quiz); err != nil {
		return err
	}
	return enc.Close()
}

// Generate picks up to cfg.Count records in the requested format, skipping
// texts listed in cfg.AvoidQuestions while enough others remain.
func (s *Source) Generate(ctx context.Context, cfg domain.QuizConfig) (domain.GeneratedQuiz, error) {
	if err := ctx.Err(); err != nil {
		return domain.GeneratedQuiz{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	avoid := make(map[string]struct{}, len(cfg.AvoidQuestions))
	for _, q := range cfg.AvoidQuestions {
		avoid[normalize(q)] = struct{}{}
	}

	var fresh, repeated []domain.Question
	for _, q := range s.questions {
		if q.CheckFormat(cfg.Format) != nil {
			continue
		}
		if _, ok := avoid[normalize(q.Question)]; ok {
			repeated = append(repeated, q)
			continue
		}
		fresh = append(fresh, q)
	}
	s.rnd.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	pool := append(fresh, repeated...)
	if len(pool) == 0 {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: no %s questions", domain.ErrDeckNotFound, cfg.Format)
	}

	n := min(cfg.Count, len(pool))
	out := make([]domain.Question, n)
	s.used = make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		out[i] = pool[i]
		out[i].ID = fmt.Sprintf("q%d", i+1)
		s.used[normalize(pool[i].Question)] = struct{}{}
	}
	return domain.GeneratedQuiz{Title: s.title, Questions: out}, nil
}

// Replace returns the first record of the format not handed out by the last
// generation and different from avoid.
func (s *Source) Replace(ctx context.Context, cfg domain.QuizConfig, avoid string) (domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	skip := normalize(avoid)
	for _, q := range s.questions {
		key := normalize(q.Question)
		if _, ok := s.used[key]; ok || key == skip || q.CheckFormat(cfg.Format) != nil {
			continue
		}
		s.used[key] = struct{}{}
		return q, nil
	}
	return domain.Question{}, fmt.Errorf("%w: deck exhausted", domain.ErrUpstream)
}

// Grade compares the answer with the model answer after folding case,
// punctuation and accents. Containing the model answer also counts.
func (s *Source) Grade(_ context.Context, _ string, modelAnswer, userAnswer string) (domain.Evaluation, error) {
	want, got := normalize(modelAnswer), normalize(userAnswer)
	if got != "" && want != "" && strings.Contains(got, want) {
		return domain.Evaluation{Score: 1, Feedback: "Resposta correta!", IsCorrect: true}, nil
	}
	return domain.Evaluation{Score: 0, Feedback: "A resposta esperada era: " + modelAnswer}, nil
}

// Ask points at the record's hint and reference.
func (s *Source) Ask(_ context.Context, q domain.Question, _ string) (string, error) {
	if q.Hint == "" && q.Reference == "" {
		return "Desculpe, não consegui formular uma resposta agora.", nil
	}
	return fmt.Sprintf("%s Consulte %s.", q.Hint, q.Reference), nil
}

var accents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func normalize(s string) string {
	s = accents.Replace(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
