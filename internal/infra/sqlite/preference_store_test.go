package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"bible-quiz-service/internal/preferences"
)

func TestPreferenceStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := preferences.Settings{Theme: preferences.ThemeLight, SoundEnabled: false, NarrationEnabled: true}
	if err := preferences.NewManager(store).Update(ctx, "c-1", want); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Overwrite one key to exercise the upsert.
	want.SoundEnabled = true
	if err := preferences.NewManager(store).Update(ctx, "c-1", want); err != nil {
		t.Fatalf("update: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	got, err := preferences.NewManager(store).Load(ctx, "c-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if _, ok, err := store.Get(ctx, "c-2", preferences.KeyTheme); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
}
