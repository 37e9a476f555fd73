package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/mapping"
	"github.com/ayusman/mudra/internal/store"
)

// execute runs the root command with args against dataDir and returns its output.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[gesture.Label]mapping.Action
		wantErr bool
	}{
		{
			name: "valid",
			args: []string{"fist=left_click", " point = move_cursor "},
			want: map[gesture.Label]mapping.Action{gesture.Fist: mapping.LeftClick, gesture.Point: mapping.MoveCursor},
		},
		{
			name: "unbind",
			args: []string{"pinch=none"},
			want: map[gesture.Label]mapping.Action{gesture.Pinch: mapping.ActionNone},
		},
		{name: "missing separator", args: []string{"fist"}, wantErr: true},
		{name: "unknown gesture", args: []string{"wave=left_click"}, wantErr: true},
		{name: "none gesture", args: []string{"none=left_click"}, wantErr: true},
		{name: "unknown action", args: []string{"fist=explode"}, wantErr: true},
		{name: "gesture twice", args: []string{"fist=left_click", "fist=right_click"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAssignments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for g, a := range tt.want {
				if got[g] != a {
					t.Errorf("%s = %q, want %q", g, got[g], a)
				}
			}
		})
	}
}

func TestMappingsCommands(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := execute(t, dataDir, "mappings", "set", "fist=left_click", "point=move_cursor"); err != nil {
		t.Fatalf("mappings set failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "mappings.txt"))
	if err != nil {
		t.Fatalf("mappings file not written: %v", err)
	}
	if want := "fist:left_click\npoint:move_cursor\n"; string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}

	if _, err := execute(t, dataDir, "mappings", "set", "pinch=left_click"); err == nil {
		t.Error("expected a conflict error")
	}

	out, err := execute(t, dataDir, "mappings", "list")
	if err != nil {
		t.Fatalf("mappings list failed: %v", err)
	}
	for _, want := range []string{"fist", "left_click", "point", "move_cursor", "pinch"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestSettingsCommands(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := execute(t, dataDir, "settings", "set", "camera.fps=24"); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	if _, err := execute(t, dataDir, "settings", "set", "camera.fps=fast"); err == nil {
		t.Error("expected invalid value to be rejected")
	}
	if _, err := execute(t, dataDir, "settings", "set", "camera.zoom=2"); err == nil {
		t.Error("expected unknown key to be rejected")
	}

	out, err := execute(t, dataDir, "settings", "list")
	if err != nil {
		t.Fatalf("settings list failed: %v", err)
	}
	var fpsLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "camera.fps") {
			fpsLine = line
		}
	}
	if !strings.Contains(fpsLine, "24") || !strings.Contains(fpsLine, "stored") {
		t.Errorf("camera.fps line = %q", fpsLine)
	}
}

func TestVocabularyCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "vocabulary")
	if err != nil {
		t.Fatalf("vocabulary failed: %v", err)
	}
	for _, want := range []string{"swipe_left", "thumbs_up", "volume_mute", "double_click"} {
		if !strings.Contains(out, want) {
			t.Errorf("vocabulary output missing %q", want)
		}
	}
}

func TestEventLog(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	resolver := mapping.NewTable(filepath.Join(t.TempDir(), "mappings.txt"), logging.Discard())
	if err := resolver.ValidateAndReplace(map[gesture.Label]mapping.Action{gesture.Fist: mapping.LeftClick}); err != nil {
		t.Fatal(err)
	}

	log := newEventLog(st.Events(), "run-1", resolver, logging.Discard())
	log.Record(gesture.Classified{Label: gesture.Fist, Role: detector.Primary, Frame: 3, Confidence: 0.8})
	log.Record(gesture.Classified{Label: gesture.None, Role: detector.Primary, Frame: 9})
	log.Record(gesture.Classified{Label: gesture.ThumbsUp, Role: detector.Secondary, Frame: 12})

	// Cancelled before Run: queued events are still flushed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		log.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	events, err := st.Events().Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	fist := events[1]
	if fist.Gesture != "fist" || fist.Action != "left_click" || fist.Role != "primary" || fist.RunID != "run-1" {
		t.Errorf("unexpected fist event: %+v", fist)
	}
	if events[0].Action != "none" || events[0].Role != "secondary" {
		t.Errorf("unexpected thumbs-up event: %+v", events[0])
	}
}
