package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

func TestHubDropsStaleNarration(t *testing.T) {
	tests := map[string]struct {
		events []event.Event
		want   []string
	}{
		"narration after its stop is dropped": {
			events: []event.Event{
				domain.NarrationStopped{SessionID: "s", Version: 5},
				domain.NarrationReady{SessionID: "s", Version: 3, Text: "pergunta 1"},
			},
			want: []string{msgNarrationStopped},
		},
		"narration from the stopping change is kept": {
			events: []event.Event{
				domain.NarrationStopped{SessionID: "s", Version: 5},
				domain.NarrationReady{SessionID: "s", Version: 5, Text: "pergunta 2"},
			},
			want: []string{msgNarrationStopped, msgNarration},
		},
		"cooldown stops older narration": {
			events: []event.Event{
				domain.CooldownStarted{SessionID: "s", Version: 8, Seconds: 60},
				domain.NarrationReady{SessionID: "s", Version: 7, Text: "Resposta correta!"},
				domain.NarrationReady{SessionID: "s", Version: 9, Text: "pergunta 3"},
			},
			want: []string{msgCooldown, msgNarration},
		},
		"older narration after a newer one is dropped": {
			events: []event.Event{
				domain.NarrationReady{SessionID: "s", Version: 9, Text: "pergunta 3"},
				domain.NarrationReady{SessionID: "s", Version: 4, Text: "pergunta 2"},
			},
			want: []string{msgNarration},
		},
		"other sessions do not move the floor": {
			events: []event.Event{
				domain.NarrationStopped{SessionID: "other", Version: 50},
				domain.NarrationReady{SessionID: "s", Version: 2, Text: "pergunta 1"},
			},
			want: []string{msgNarration},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			hub := NewHub()
			ch, leave := hub.join("s")
			defer leave()

			for _, e := range tc.events {
				require.NoError(t, hub.onEvent(context.Background(), e))
			}

			var got []string
			for len(ch) > 0 {
				got = append(got, (<-ch).Type)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHubFloorResetsWhenLastSocketLeaves(t *testing.T) {
	hub := NewHub()
	_, leave := hub.join("s")
	require.NoError(t, hub.onEvent(context.Background(), domain.NarrationStopped{SessionID: "s", Version: 10}))
	leave()

	ch, leave := hub.join("s")
	defer leave()
	require.NoError(t, hub.onEvent(context.Background(), domain.NarrationReady{SessionID: "s", Version: 1, Text: "olá"}))
	require.Len(t, ch, 1)
	msg := <-ch
	assert.Equal(t, msgNarration, msg.Type)
	assert.Equal(t, int64(1), msg.Payload.(narrationPayload).Version)
}
