package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const DefaultFilePath = "configs/gide_state.json"

// FileKV persists all keys as one flat JSON object on disk, the same shape a
// browser keeps in localStorage.
type FileKV struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileKV loads path if it exists. A missing or empty file is an empty store.
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		path = DefaultFilePath
	}
	values, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileKV{path: path, values: values}, nil
}

func loadFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("read state file failed: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse state file failed: %w", err)
	}
	return values, nil
}

func (f *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *FileKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	previous, existed := f.values[key]
	f.values[key] = value
	if err := f.flush(); err != nil {
		if existed {
			f.values[key] = previous
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// flush writes through a temp file so a crash never leaves a half-written state.
func (f *FileKV) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state failed: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state failed: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state failed: %w", err)
	}
	return nil
}

func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Close() error {
	return nil
}
