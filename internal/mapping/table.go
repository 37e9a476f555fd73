package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/gesture"
)

// Entry is one gesture and the action bound to it.
type Entry struct {
	Gesture gesture.Label `json:"gesture"`
	Action  Action        `json:"action"`
}

// snapshot is an immutable view of the table. It is never modified after
// being published.
type snapshot struct {
	entries map[gesture.Label]Action
	lines   []line
}

// Table maps gestures to actions and persists the mapping to a text file.
// Reads go through an atomically swapped snapshot and never block; writes
// are serialized.
type Table struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewTable returns an empty table backed by the file at path. Call Load to
// read the file.
func NewTable(path string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{path: path, logger: logger}
	t.current.Store(&snapshot{entries: map[gesture.Label]Action{}})
	return t
}

// Path returns the backing file path.
func (t *Table) Path() string {
	return t.path
}

// Load replaces the table with the contents of the backing file. A missing
// file yields an empty table. On error the current table is kept.
func (t *Table) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		t.current.Store(&snapshot{entries: map[gesture.Label]Action{}})
		t.logger.Info("mappings file not found, starting empty", "path", t.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mappings: %w", err)
	}

	lines, entries, err := parseFile(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("load %s: %w", t.path, err)
	}

	t.current.Store(&snapshot{entries: entries, lines: lines})
	t.logger.Info("mappings loaded", "path", t.path, "entries", len(entries))
	return nil
}

// ValidateAndReplace merges candidate onto the current table. Mapping a
// gesture to ActionNone unassigns it; gestures absent from candidate keep
// their action. If the result binds any action to two gestures the table is
// left unchanged and a *ConflictError is returned. Otherwise the file is
// rewritten before the new table becomes visible.
func (t *Table) ValidateAndReplace(candidate map[gesture.Label]Action) error {
	for g, a := range candidate {
		if _, err := parseGesture(string(g)); err != nil {
			return err
		}
		if _, err := ParseAction(string(a)); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.current.Load()
	merged := maps.Clone(cur.entries)
	for g, a := range candidate {
		if a == ActionNone {
			delete(merged, g)
			continue
		}
		merged[g] = a
	}

	if err := checkUnique(merged); err != nil {
		return err
	}

	lines := rewrite(cur.lines, merged)
	if err := writeFileAtomic(t.path, format(lines)); err != nil {
		return err
	}

	t.current.Store(&snapshot{entries: merged, lines: lines})
	t.logger.Info("mappings updated", "path", t.path, "entries", len(merged))
	return nil
}

// Resolve returns the action bound to g, or ActionNone.
func (t *Table) Resolve(g gesture.Label) Action {
	if a, ok := t.current.Load().entries[g]; ok {
		return a
	}
	return ActionNone
}

// Snapshot returns a copy of every assigned entry.
func (t *Table) Snapshot() map[gesture.Label]Action {
	return maps.Clone(t.current.Load().entries)
}

// Entries lists every gesture of the vocabulary with its action, unassigned
// gestures included.
func (t *Table) Entries() []Entry {
	entries := t.current.Load().entries
	out := make([]Entry, 0, len(entries))
	for _, g := range gesture.Labels() {
		a, ok := entries[g]
		if !ok {
			a = ActionNone
		}
		out = append(out, Entry{Gesture: g, Action: a})
	}
	return out
}
