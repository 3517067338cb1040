package notifylog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Store is the persistence capability the decision engine and the API need.
type Store interface {
	// Append durably adds entry after all previously stored entries.
	Append(entry Entry) error
	// All returns every retained entry in storage order.
	All() []Entry
	// Prune removes entries older than now − retentionDays.
	Prune(retentionDays int) error
	// History returns entries, optionally filtered by scenario, newest
	// first, truncated to limit. Pure read.
	History(scenario string, limit int) []Entry
}

// FileStore implements Store on a single JSON document that is read and
// written wholesale on each access. It assumes a single writer per process;
// concurrent runs of the same scenario must be serialized by the caller.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewFileStore creates a FileStore persisting to path. The parent directory
// is created on the first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger, now: time.Now}
}

// load reads the whole document from disk. A missing or unreadable file
// degrades to an empty log: the policies are idempotent under missing log
// data, so the worst case is a duplicate notification, never a lost one.
func (s *FileStore) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("notification log unreadable, treating as empty",
				"path", s.path, "error", err)
		}
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("notification log corrupt, treating as empty",
			"path", s.path, "error", err)
		return nil
	}
	return doc.Entries
}

// save writes the whole document to a temp file in the same directory and
// renames it into place, so a crash mid-write never corrupts the stored log.
func (s *FileStore) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	data, err := json.MarshalIndent(document{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding notification log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".notifylog-*.json")
	if err != nil {
		return fmt.Errorf("creating temp log file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing notification log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp log file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing notification log: %w", err)
	}
	return nil
}

// Append persists entry in addition to all prior entries.
func (s *FileStore) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.load(), entry)
	return s.save(entries)
}

// All returns every retained entry in storage order. Storage failures yield
// an empty slice, never an error.
func (s *FileStore) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Prune permanently discards entries whose timestamp is older than
// now − retentionDays. Entries inside the window are kept verbatim.
func (s *FileStore) Prune(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	horizon := s.now().AddDate(0, 0, -retentionDays)

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(horizon) {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == len(entries) {
		return nil
	}

	s.logger.Info("pruned notification log",
		"removed", len(entries)-len(kept), "kept", len(kept))
	return s.save(kept)
}

// History returns retained entries, filtered by scenario when scenario is
// non-empty, sorted by timestamp descending and truncated to limit.
func (s *FileStore) History(scenario string, limit int) []Entry {
	entries := s.All()

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if scenario != "" && e.Scenario != scenario {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
