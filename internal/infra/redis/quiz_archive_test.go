package redis

import (
	"context"
	"testing"
	"time"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/infra/memory"
)

type countingArchive struct {
	*memory.Archive
	calls int
}

func (a *countingArchive) RecentQuestions(ctx context.Context, topicKey string, limit int) ([]string, error) {
	a.calls++
	return a.Archive.RecentQuestions(ctx, topicKey, limit)
}

func archived(topic string, texts ...string) domain.ArchivedQuiz {
	qs := make([]domain.Question, len(texts))
	for i, t := range texts {
		qs[i] = domain.Question{Question: t}
	}
	return domain.ArchivedQuiz{SessionID: "s-1", TopicKey: topic, Questions: qs}
}

func TestRecentQuestionCacheFillsFromArchive(t *testing.T) {
	mr, client := newClient(t)
	backing := &countingArchive{Archive: memory.NewArchive(0)}
	ctx := context.Background()
	_ = backing.SaveQuiz(ctx, archived("book:Rute", "a", "b"))

	cache := NewRecentQuestionCache(client, backing, 10, time.Minute)

	got, err := cache.RecentQuestions(ctx, "book:Rute", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || backing.calls != 1 {
		t.Fatalf("expected 2 texts from one archive read, got %v after %d reads", got, backing.calls)
	}
	if !mr.Exists("quiz:recent:book:Rute") {
		t.Fatalf("expected cached list")
	}

	// Second read is served from Redis.
	if _, err := cache.RecentQuestions(ctx, "book:Rute", 10); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if backing.calls != 1 {
		t.Fatalf("expected cache hit, archive reads=%d", backing.calls)
	}
}

func TestRecentQuestionCacheSaveWritesThrough(t *testing.T) {
	_, client := newClient(t)
	backing := &countingArchive{Archive: memory.NewArchive(0)}
	ctx := context.Background()
	cache := NewRecentQuestionCache(client, backing, 3, time.Minute)

	if err := cache.SaveQuiz(ctx, archived("general", "a", "b")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := cache.RecentQuestions(ctx, "general", 3); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if err := cache.SaveQuiz(ctx, archived("general", "c", "d")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := cache.RecentQuestions(ctx, "general", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"d", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if backing.calls != 1 {
		t.Fatalf("expected one archive read, got %d", backing.calls)
	}

	stored, _ := backing.Load(ctx, "s-1")
	if len(stored) != 2 {
		t.Fatalf("expected both quizzes archived, got %d", len(stored))
	}
}
