package xui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSettingsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel", "settings.json")
	store := NewFileSettingsStore(path)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("Load() для отсутствующего файла: ok=%v err=%v", ok, err)
	}

	want := Settings{URL: "https://panel.example.com:2053", Username: "root", Password: "p@ss"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Файл настроек не создан: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Ожидались права 0600, получено %o", perm)
	}

	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load() после Save: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, ожидалось %+v", got, want)
	}
}

func TestFileSettingsStore_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileSettingsStore(path).Load(); err == nil {
		t.Error("Load() должен вернуть ошибку для поврежденного файла")
	}
}
