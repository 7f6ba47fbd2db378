package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// PreferenceStore keeps client preferences in one hash per client:
// HSET quiz:prefs:{clientID} {key} {value}
type PreferenceStore struct {
	client redis.UniversalClient
}

func NewPreferenceStore(client redis.UniversalClient) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func (s *PreferenceStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(clientID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *PreferenceStore) Set(ctx context.Context, clientID, key, value string) error {
	return s.client.HSet(ctx, s.key(clientID), key, value).Err()
}

func (s *PreferenceStore) key(clientID string) string {
	return "quiz:prefs:" + clientID
}
