package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanwahyu/trustlayer/internal/domain/session"
)

// File keeps every device record in one JSON document, keyed by device id
// and then by session.StorageKey.
type File struct {
	mu   sync.Mutex
	path string
}

type fileDoc map[string]map[string]json.RawMessage

func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("session file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &File{path: path}, nil
}

func (f *File) Load(_ context.Context, deviceID string) (*session.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[deviceID][session.StorageKey]
	if !ok {
		return nil, nil
	}
	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return &rec, nil
}

func (f *File) Save(_ context.Context, deviceID string, rec session.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil && !errors.Is(err, session.ErrCorrupt) {
		return err
	}
	if doc == nil {
		doc = fileDoc{}
	}
	if doc[deviceID] == nil {
		doc[deviceID] = map[string]json.RawMessage{}
	}
	doc[deviceID][session.StorageKey] = raw
	return f.write(doc)
}

func (f *File) Clear(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil && !errors.Is(err, session.ErrCorrupt) {
		return err
	}
	if doc == nil {
		doc = fileDoc{}
	}
	if _, ok := doc[deviceID]; !ok && err == nil {
		return nil
	}
	delete(doc, deviceID)
	return f.write(doc)
}

func (f *File) read() (fileDoc, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileDoc{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(b) == 0 {
		return fileDoc{}, nil
	}
	var doc fileDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return doc, nil
}

func (f *File) write(doc fileDoc) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
