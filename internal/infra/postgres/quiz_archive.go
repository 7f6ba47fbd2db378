package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"bible-quiz-service/internal/domain"
)

// QuizArchive stores generated quizzes as JSONB rows.
type QuizArchive struct {
	pool *pgxpool.Pool
}

func NewQuizArchive(pool *pgxpool.Pool) *QuizArchive {
	return &QuizArchive{pool: pool}
}

func (a *QuizArchive) SaveQuiz(ctx context.Context, quiz domain.ArchivedQuiz) error {
	cfg, err := json.Marshal(quiz.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quizzes (id, session_id, topic_key, title, config, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), quiz.SessionID, quiz.TopicKey, quiz.Title, cfg, questions, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// RecentQuestions returns question texts of topicKey, newest quiz first.
func (a *QuizArchive) RecentQuestions(ctx context.Context, topicKey string, limit int) ([]string, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT q.value->>'question'
		   FROM quizzes, jsonb_array_elements(questions) WITH ORDINALITY AS q(value, pos)
		  WHERE topic_key = $1
		  ORDER BY created_at DESC, q.pos
		  LIMIT $2`,
		topicKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent questions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

// Load returns the archived quizzes of a session, oldest first.
func (a *QuizArchive) Load(ctx context.Context, sessionID string) ([]domain.ArchivedQuiz, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT topic_key, title, config, questions, created_at
		   FROM quizzes WHERE session_id = $1 ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchivedQuiz
	for rows.Next() {
		q := domain.ArchivedQuiz{SessionID: sessionID}
		var cfg, questions []byte
		if err := rows.Scan(&q.TopicKey, &q.Title, &cfg, &questions, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if err := json.Unmarshal(cfg, &q.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
