package memory

import (
	"context"
	"sync"

	"bible-quiz-service/internal/domain"
)

// Archive keeps generated quizzes in process, newest last.
type Archive struct {
	mu      sync.RWMutex
	quizzes []domain.ArchivedQuiz
	limit   int
}

// NewArchive keeps at most limit quizzes; zero means unbounded.
func NewArchive(limit int) *Archive {
	return &Archive{limit: limit}
}

func (a *Archive) SaveQuiz(_ context.Context, quiz domain.ArchivedQuiz) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quizzes = append(a.quizzes, quiz)
	if a.limit > 0 && len(a.quizzes) > a.limit {
		a.quizzes = a.quizzes[len(a.quizzes)-a.limit:]
	}
	return nil
}

// RecentQuestions returns question texts of topicKey, newest quiz first.
func (a *Archive) RecentQuestions(_ context.Context, topicKey string, limit int) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []string
	for i := len(a.quizzes) - 1; i >= 0 && len(out) < limit; i-- {
		if a.quizzes[i].TopicKey != topicKey {
			continue
		}
		for _, q := range a.quizzes[i].Questions {
			if len(out) == limit {
				break
			}
			out = append(out, q.Question)
		}
	}
	return out, nil
}

// Load returns the archived quizzes of a session.
func (a *Archive) Load(_ context.Context, sessionID string) ([]domain.ArchivedQuiz, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []domain.ArchivedQuiz
	for _, q := range a.quizzes {
		if q.SessionID == sessionID {
			out = append(out, q)
		}
	}
	return out, nil
}
