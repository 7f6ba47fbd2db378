package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"bible-quiz-service/internal/domain"
)

// QuizArchive is the archive that stays authoritative for generated quizzes.
type QuizArchive interface {
	SaveQuiz(ctx context.Context, quiz domain.ArchivedQuiz) error
	RecentQuestions(ctx context.Context, topicKey string, limit int) ([]string, error)
}

// RecentQuestionCache keeps the latest question texts of every topic in a
// Redis list and falls back to the backing archive on a cache miss.
// Texts are stored as: LPUSH quiz:recent:{topicKey} {question}
type RecentQuestionCache struct {
	client  redis.UniversalClient
	archive QuizArchive
	ttl     time.Duration
	size    int64
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRecentQuestionCache caches up to size texts per topic for about ttl.
func NewRecentQuestionCache(client redis.UniversalClient, archive QuizArchive, size int, ttl time.Duration) *RecentQuestionCache {
	return &RecentQuestionCache{
		client:  client,
		archive: archive,
		ttl:     ttl,
		size:    int64(size),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SaveQuiz writes through to the archive and prepends the question texts to
// the cached list of the topic.
func (c *RecentQuestionCache) SaveQuiz(ctx context.Context, quiz domain.ArchivedQuiz) error {
	if err := c.archive.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	key := c.key(quiz.TopicKey)
	// Only extend a list that is already cached; a partial list would hide
	// older archived texts on the next read.
	if n, err := c.client.Exists(ctx, key).Result(); err != nil || n == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, q := range quiz.Questions {
		pipe.LPush(ctx, key, q.Question)
	}
	pipe.LTrim(ctx, key, 0, c.size-1)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
	return nil
}

func (c *RecentQuestionCache) RecentQuestions(ctx context.Context, topicKey string, limit int) ([]string, error) {
	key := c.key(topicKey)
	if texts, err := c.client.LRange(ctx, key, 0, int64(limit)-1).Result(); err == nil && len(texts) > 0 {
		return texts, nil
	}

	result, err, _ := c.sf.Do(topicKey, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if texts, err := c.client.LRange(ctx, key, 0, int64(limit)-1).Result(); err == nil && len(texts) > 0 {
			return texts, nil
		}

		texts, err := c.archive.RecentQuestions(ctx, topicKey, int(c.size))
		if err != nil {
			return nil, err
		}
		if len(texts) == 0 {
			return texts, nil
		}

		values := make([]interface{}, len(texts))
		for i, t := range texts {
			values[i] = t
		}
		pipe := c.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return texts, nil
	})
	if err != nil {
		return nil, err
	}
	texts := result.([]string)
	if len(texts) > limit {
		texts = texts[:limit]
	}
	return texts, nil
}

func (c *RecentQuestionCache) key(topicKey string) string {
	return "quiz:recent:" + topicKey
}

func (c *RecentQuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
