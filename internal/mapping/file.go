package mapping

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
)

// line is one line of the mappings file. Lines that are not entries (blank
// lines and # comments) are kept verbatim so a rewrite leaves them in place.
type line struct {
	text    string
	entry   bool
	gesture gesture.Label
	action  Action
}

// parseFile reads `gesture:action` lines. Entries mapped to none are kept in
// the layout but left out of the returned map.
func parseFile(r io.Reader) ([]line, map[gesture.Label]Action, error) {
	scanner := bufio.NewScanner(r)
	var lines []line
	entries := make(map[gesture.Label]Action)
	seen := make(map[gesture.Label]bool)

	lineNo := 0
	for scanner.Scan() {
		raw := scanner.Text()
		lineNo++

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, line{text: raw})
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, nil, fmt.Errorf("line %d: %w: expected gesture:action, got %q", lineNo, ErrMalformed, trimmed)
		}

		g, err := parseGesture(strings.TrimSpace(key))
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		a, err := ParseAction(strings.TrimSpace(value))
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if seen[g] {
			return nil, nil, fmt.Errorf("line %d: %w: gesture %q listed twice", lineNo, ErrMalformed, g)
		}
		seen[g] = true

		lines = append(lines, line{entry: true, gesture: g, action: a})
		if a != ActionNone {
			entries[g] = a
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read mappings: %w", err)
	}

	if err := checkUnique(entries); err != nil {
		return nil, nil, err
	}
	return lines, entries, nil
}

func parseGesture(s string) (gesture.Label, error) {
	g, err := gesture.ParseLabel(s)
	if err != nil || g == gesture.None {
		return gesture.None, fmt.Errorf("%w: %q", ErrUnknownGesture, s)
	}
	return g, nil
}

// checkUnique returns a *ConflictError for the first action, in vocabulary
// order, bound to more than one gesture.
func checkUnique(entries map[gesture.Label]Action) error {
	bound := make(map[Action][]gesture.Label)
	for _, g := range gesture.Labels() {
		if a, ok := entries[g]; ok && a != ActionNone {
			bound[a] = append(bound[a], g)
		}
	}
	for _, a := range actions {
		if gs := bound[a]; len(gs) > 1 {
			return &ConflictError{Action: a, Gestures: gs}
		}
	}
	return nil
}

// rewrite lays entries out over the previous file layout. Existing entry
// lines are updated in place, cleared gestures become `gesture:none`, and
// gestures new to the file are appended in vocabulary order.
func rewrite(prev []line, entries map[gesture.Label]Action) []line {
	out := make([]line, 0, len(prev)+len(entries))
	present := make(map[gesture.Label]bool)

	for _, l := range prev {
		if l.entry {
			a, ok := entries[l.gesture]
			if !ok {
				a = ActionNone
			}
			l.action = a
			present[l.gesture] = true
		}
		out = append(out, l)
	}

	for _, g := range gesture.Labels() {
		if a, ok := entries[g]; ok && !present[g] {
			out = append(out, line{entry: true, gesture: g, action: a})
		}
	}
	return out
}

func format(lines []line) []byte {
	var b bytes.Buffer
	for _, l := range lines {
		if l.entry {
			fmt.Fprintf(&b, "%s:%s\n", l.gesture, l.action)
			continue
		}
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// writeFileAtomic replaces path with data through a synced temp file in the
// same directory, so readers see either the old or the new file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mappings dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".mappings-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write mappings: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync mappings: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close mappings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace mappings: %w", err)
	}
	return nil
}
