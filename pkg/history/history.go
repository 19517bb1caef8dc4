// Package history provides the command history store with duplicate
// suppression, cursor-based recall and optional append-only persistence.
package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Direction selects where Recall moves the history cursor.
type Direction int

const (
	// Prev moves toward older entries.
	Prev Direction = iota
	// Next moves toward newer entries.
	Next
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	switch d {
	case Prev:
		return "prev"
	case Next:
		return "next"
	default:
		return "unknown"
	}
}

// Entry is a single submitted command line.
type Entry struct {
	Text      string
	Timestamp time.Time
}

// PersistenceError reports a failure of the durable history file. It is
// never fatal: the store keeps working session-only.
type PersistenceError struct {
	Op    string
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error { return e.Cause }

// Store is an append-only, ordered log of submitted command lines.
//
// Invariant: no two consecutive entries share the same text; non-consecutive
// duplicates are allowed. The recall cursor sits in [0, len] where len means
// "past the end" (nothing recalled).
type Store struct {
	mu      sync.Mutex
	entries []Entry
	pos     int

	path string
	file *os.File
}

// NewStore creates an empty, session-only store.
func NewStore() *Store {
	return &Store{}
}

// DefaultPath returns the project-scoped history file path,
// ~/.config/pycom/<project>_history.
func DefaultPath(project string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if project == "" {
		project = "DEFAULT"
	}
	return filepath.Join(home, ".config", "pycom", project+"_history")
}

// Load reads prior entries from path and keeps the file open for appends.
// It must be called before interactive use. On failure the store stays
// session-only and a PersistenceError is returned for reporting.
func (s *Store) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &PersistenceError{Op: "create dir for", Path: path, Cause: err}
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return &PersistenceError{Op: "open", Path: path, Cause: err}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.entries = append(s.entries, Entry{Text: line, Timestamp: time.Now()})
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return &PersistenceError{Op: "read", Path: path, Cause: err}
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return &PersistenceError{Op: "seek", Path: path, Cause: err}
	}

	s.path = path
	s.file = file
	s.pos = len(s.entries)
	return nil
}

// Append records a submitted line. Empty lines and lines equal to the most
// recent entry are ignored. When persistence is enabled the line is written
// through immediately, so a crash loses at most the in-flight write.
func (s *Store) Append(text string) error {
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.entries); n > 0 && s.entries[n-1].Text == text {
		s.pos = len(s.entries)
		return nil
	}
	s.entries = append(s.entries, Entry{Text: text, Timestamp: time.Now()})
	s.pos = len(s.entries)

	if s.file == nil {
		return nil
	}
	if _, err := fmt.Fprintln(s.file, text); err != nil {
		return &PersistenceError{Op: "append to", Path: s.path, Cause: err}
	}
	if err := s.file.Sync(); err != nil {
		return &PersistenceError{Op: "flush", Path: s.path, Cause: err}
	}
	return nil
}

// Recall moves the cursor in the given direction and returns the entry text
// there. At either boundary it returns ok=false without wrapping; moving
// past the newest entry parks the cursor back past the end.
func (s *Store) Recall(dir Direction) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch dir {
	case Prev:
		if s.pos == 0 {
			return "", false
		}
		s.pos--
		return s.entries[s.pos].Text, true
	case Next:
		if s.pos >= len(s.entries)-1 {
			s.pos = len(s.entries)
			return "", false
		}
		s.pos++
		return s.entries[s.pos].Text, true
	default:
		return "", false
	}
}

// Current returns the entry text under the cursor, or ok=false when the
// cursor is past the end.
func (s *Store) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < 0 || s.pos >= len(s.entries) {
		return "", false
	}
	return s.entries[s.pos].Text, true
}

// Reset parks the recall cursor past the end. Called after each submission.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = len(s.entries)
}

// Pos returns the current cursor position.
func (s *Store) Pos() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Texts returns the entry texts in chronological order.
func (s *Store) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Text
	}
	return out
}

// Close releases the persistence file, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return &PersistenceError{Op: "close", Path: s.path, Cause: err}
	}
	return nil
}
