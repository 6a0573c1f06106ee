package loop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	historyFileName = "history.json"
	historyLockName = "history.json.lock"

	// MaxHistoryEntries caps the history file; the oldest entries are
	// dropped once the cap is exceeded.
	MaxHistoryEntries = 50
)

// HistoryEntry records one finished run.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Snapshot    string    `json:"snapshot"`
	WorkDataset string    `json:"work_dataset"`
	Concurrency int       `json:"concurrency"`
	StopAfter   int       `json:"stop_after,omitempty"`
	KeepSuccess bool      `json:"keep_success,omitempty"`
	Tries       int       `json:"tries"`
	Failures    int       `json:"failures"`
	Result      string    `json:"result"`
}

// HistoryStore persists run records as a JSON array under dir. Writes are
// serialized with a file lock so concurrent crashloop invocations don't
// clobber each other's entries.
type HistoryStore struct {
	dir  string
	lock *flock.Flock
}

// NewHistoryStore returns a store rooted at dir. The directory is created
// lazily on first write.
func NewHistoryStore(dir string) *HistoryStore {
	return &HistoryStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, historyLockName)),
	}
}

func (s *HistoryStore) path() string {
	return filepath.Join(s.dir, historyFileName)
}

// Append adds an entry, trimming the file to MaxHistoryEntries.
func (s *HistoryStore) Append(entry HistoryEntry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock history file: %w", err)
	}
	defer s.lock.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > MaxHistoryEntries {
		entries = entries[len(entries)-MaxHistoryEntries:]
	}

	return s.write(entries)
}

// List returns all recorded entries, oldest first. A missing history file
// is an empty history, not an error.
func (s *HistoryStore) List() ([]HistoryEntry, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, nil
	}

	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock history file: %w", err)
	}
	defer s.lock.Unlock()

	return s.read()
}

func (s *HistoryStore) read() ([]HistoryEntry, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return entries, nil
}

func (s *HistoryStore) write(entries []HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
