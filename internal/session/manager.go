package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manager persists sessions. The engine calls Update after appending events;
// implementations decide how (and whether) to store them.
type Manager interface {
	Update(s *Session) error
}

// FileManager writes each session as a JSON file under a base directory.
type FileManager struct {
	Dir string
}

// NewFileManager creates a manager writing to dir, creating it if needed.
func NewFileManager(dir string) (*FileManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileManager{Dir: dir}, nil
}

// Update writes the session to <dir>/<id>.json.
func (m *FileManager) Update(s *Session) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	path := filepath.Join(m.Dir, s.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads a session file by id.
func (m *FileManager) Load(id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(m.Dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.seq = uint64(len(s.Events))
	return &s, nil
}

// NullManager discards updates. Used when persistence is disabled.
type NullManager struct{}

// Update implements Manager.
func (NullManager) Update(*Session) error { return nil }
