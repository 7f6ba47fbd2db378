package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bible-quiz-service/internal/domain"
)

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error)
}

// AudioCache caches synthesized audio with TTL so repeated narration of the
// same text does not hit the speech source again. Concurrent misses for the
// same key share one call.
type AudioCache struct {
	loader Synthesizer
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedAudio
}

type cachedAudio struct {
	audio     []byte
	expiresAt time.Time
}

func NewAudioCache(loader Synthesizer, ttl time.Duration) *AudioCache {
	return &AudioCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedAudio),
	}
}

func (r *AudioCache) Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	key := audioKey(text, voice)
	if audio, ok := r.lookup(key); ok {
		return audio, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another call filled it.
		if audio, ok := r.lookup(key); ok {
			return audio, nil
		}

		audio, err := r.loader.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedAudio{
			audio:     audio,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (r *AudioCache) lookup(key string) ([]byte, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.audio, true
	}
	return nil, false
}

func audioKey(text string, voice domain.VoiceConfig) string {
	return fmt.Sprintf("%s|%.2f|%s", voice.Gender, voice.Rate, text)
}

func (r *AudioCache) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
