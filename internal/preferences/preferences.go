// Package preferences holds the per-client display and audio flags.
package preferences

import (
	"context"
	"fmt"
	"strconv"
)

const (
	KeyTheme     = "quiz-theme"
	KeySound     = "quiz-sound"
	KeyNarration = "quiz-tts"

	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings are the user preference flags.
type Settings struct {
	Theme            string `json:"theme"`
	SoundEnabled     bool   `json:"soundEnabled"`
	NarrationEnabled bool   `json:"narrationEnabled"`
}

func Defaults() Settings {
	return Settings{Theme: ThemeDark, SoundEnabled: true, NarrationEnabled: false}
}

func (s Settings) Validate() error {
	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		return fmt.Errorf("unknown theme %q", s.Theme)
	}
	return nil
}

// Store persists preference values by client and key.
type Store interface {
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, clientID, key, value string) error
}

// Manager reads settings with defaults and writes every change through to
// the store.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load returns the stored settings of clientID, falling back to defaults for
// missing or unreadable values.
func (m *Manager) Load(ctx context.Context, clientID string) (Settings, error) {
	s := Defaults()

	theme, ok, err := m.store.Get(ctx, clientID, KeyTheme)
	if err != nil {
		return s, fmt.Errorf("load %s: %w", KeyTheme, err)
	}
	if ok && (theme == ThemeDark || theme == ThemeLight) {
		s.Theme = theme
	}

	if s.SoundEnabled, err = m.loadBool(ctx, clientID, KeySound, s.SoundEnabled); err != nil {
		return s, err
	}
	if s.NarrationEnabled, err = m.loadBool(ctx, clientID, KeyNarration, s.NarrationEnabled); err != nil {
		return s, err
	}
	return s, nil
}

func (m *Manager) loadBool(ctx context.Context, clientID, key string, fallback bool) (bool, error) {
	raw, ok, err := m.store.Get(ctx, clientID, key)
	if err != nil {
		return fallback, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return v, nil
}

// Update validates and persists s.
func (m *Manager) Update(ctx context.Context, clientID string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	values := []struct{ key, value string }{
		{KeyTheme, s.Theme},
		{KeySound, strconv.FormatBool(s.SoundEnabled)},
		{KeyNarration, strconv.FormatBool(s.NarrationEnabled)},
	}
	for _, v := range values {
		if err := m.store.Set(ctx, clientID, v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}
