package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/users"
)

const (
	graphFile     = "bot_database.json"
	usersFile     = "users_database.json"
	analyticsFile = "analytics_database.json"
)

// JSONStore keeps one JSON document per store under a data directory.
// Writes go through a temp file and rename, so a crash mid-write never
// leaves a truncated document behind.
type JSONStore struct {
	dir string
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// LoadGraph reads the graph document, creating defaults on first load.
func (s *JSONStore) LoadGraph() (graph.Snapshot, error) {
	var snap graph.Snapshot
	ok, err := s.read(graphFile, &snap)
	if err != nil {
		return graph.Snapshot{}, err
	}
	if !ok {
		snap = graph.DefaultSnapshot(time.Now())
		if err := s.SaveGraph(snap); err != nil {
			return graph.Snapshot{}, err
		}
	}
	return snap, nil
}

// SaveGraph writes the graph document.
func (s *JSONStore) SaveGraph(snap graph.Snapshot) error {
	return s.write(graphFile, snap)
}

// LoadUsers reads the users document, creating defaults on first load.
func (s *JSONStore) LoadUsers() (users.Document, error) {
	var doc users.Document
	ok, err := s.read(usersFile, &doc)
	if err != nil {
		return users.Document{}, err
	}
	if !ok {
		doc = users.DefaultDocument(time.Now())
		if err := s.SaveUsers(doc); err != nil {
			return users.Document{}, err
		}
	}
	return doc, nil
}

// SaveUsers writes the users document.
func (s *JSONStore) SaveUsers(doc users.Document) error {
	return s.write(usersFile, doc)
}

// LoadAnalytics reads the analytics document, creating defaults on first load.
func (s *JSONStore) LoadAnalytics() (analytics.Document, error) {
	var doc analytics.Document
	ok, err := s.read(analyticsFile, &doc)
	if err != nil {
		return analytics.Document{}, err
	}
	if !ok {
		doc = analytics.DefaultDocument(time.Now())
		if err := s.SaveAnalytics(doc); err != nil {
			return analytics.Document{}, err
		}
	}
	return doc, nil
}

// SaveAnalytics writes the analytics document.
func (s *JSONStore) SaveAnalytics(doc analytics.Document) error {
	return s.write(analyticsFile, doc)
}

// Close is a no-op for the file backend.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) read(name string, out any) (bool, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (s *JSONStore) write(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
