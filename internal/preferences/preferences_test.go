package preferences_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bible-quiz-service/internal/preferences"
)

type mapStore map[string]string

func (m mapStore) Get(_ context.Context, clientID, key string) (string, bool, error) {
	v, ok := m[clientID+"/"+key]
	return v, ok, nil
}

func (m mapStore) Set(_ context.Context, clientID, key, value string) error {
	m[clientID+"/"+key] = value
	return nil
}

func TestManager(t *testing.T) {
	tests := map[string]struct {
		arrange func() mapStore
		assert  func(t *testing.T, got preferences.Settings)
	}{
		"empty store yields defaults": {
			arrange: func() mapStore { return mapStore{} },
			assert: func(t *testing.T, got preferences.Settings) {
				assert.Equal(t, preferences.Defaults(), got)
			},
		},
		"stored values override defaults": {
			arrange: func() mapStore {
				return mapStore{
					"c1/" + preferences.KeyTheme:     "light",
					"c1/" + preferences.KeySound:     "false",
					"c1/" + preferences.KeyNarration: "true",
				}
			},
			assert: func(t *testing.T, got preferences.Settings) {
				assert.Equal(t, preferences.Settings{Theme: "light", SoundEnabled: false, NarrationEnabled: true}, got)
			},
		},
		"garbage values are ignored": {
			arrange: func() mapStore {
				return mapStore{
					"c1/" + preferences.KeyTheme: "neon",
					"c1/" + preferences.KeySound: "maybe",
				}
			},
			assert: func(t *testing.T, got preferences.Settings) {
				assert.Equal(t, preferences.Defaults(), got)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := preferences.NewManager(tt.arrange())
			got, err := m.Load(context.Background(), "c1")
			require.NoError(t, err)
			tt.assert(t, got)
		})
	}
}

func TestManagerUpdateWritesThrough(t *testing.T) {
	store := mapStore{}
	m := preferences.NewManager(store)
	ctx := context.Background()

	want := preferences.Settings{Theme: preferences.ThemeLight, SoundEnabled: false, NarrationEnabled: true}
	require.NoError(t, m.Update(ctx, "c1", want))
	assert.Equal(t, "true", store["c1/"+preferences.KeyNarration])

	got, err := m.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Error(t, m.Update(ctx, "c1", preferences.Settings{Theme: "neon"}))
}
