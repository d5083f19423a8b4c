package xui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// FileSettingsStore хранит переопределенные из админки настройки панели в JSON-файле
type FileSettingsStore struct {
	path string
}

func NewFileSettingsStore(path string) *FileSettingsStore {
	return &FileSettingsStore{path: path}
}

// Load читает сохраненные настройки. ok=false, если файла нет.
func (s *FileSettingsStore) Load() (Settings, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("ошибка чтения %s: %w", s.path, err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, false, fmt.Errorf("ошибка разбора %s: %w", s.path, err)
	}
	return settings, true, nil
}

// Save записывает настройки, файл доступен только владельцу
func (s *FileSettingsStore) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}
