package adapters

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// FileStorageAdapter stores pending events as a JSON array in a single file.
type FileStorageAdapter struct {
	path string
}

var _ StorageAdapter = (*FileStorageAdapter)(nil)

// NewFileStorageAdapter creates a FileStorageAdapter writing to path.
func NewFileStorageAdapter(path string) StorageAdapter {
	return &FileStorageAdapter{path: path}
}

// Save replaces the file contents with events. The file is written next to
// its final location and renamed, so a crash never leaves half an array behind.
func (f *FileStorageAdapter) Save(events []Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Load returns the stored events, or an empty slice if nothing was saved.
func (f *FileStorageAdapter) Load() ([]Event, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Clear removes the storage file. A missing file is not an error.
func (f *FileStorageAdapter) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
