package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/mapping"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		ev   actuator.Event
		want [][]string
	}{
		{"move", actuator.Event{Type: actuator.EventMove, DX: 12, DY: -3}, [][]string{{"cliclick", "m:+12,-3"}}},
		{"left click", actuator.Event{Type: actuator.EventClick, Button: mapping.ButtonLeft}, [][]string{{"cliclick", "c:."}}},
		{"double click", actuator.Event{Type: actuator.EventClick, Button: mapping.ButtonLeft, Double: true}, [][]string{{"cliclick", "dc:."}}},
		{"right click", actuator.Event{Type: actuator.EventClick, Button: mapping.ButtonRight}, [][]string{{"cliclick", "rc:."}}},
		{"press", actuator.Event{Type: actuator.EventToggle, Button: mapping.ButtonLeft, Down: true}, [][]string{{"cliclick", "dd:."}}},
		{"release", actuator.Event{Type: actuator.EventToggle, Button: mapping.ButtonLeft}, [][]string{{"cliclick", "du:."}}},
		{"no scroll", actuator.Event{Type: actuator.EventScroll}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plan(tt.ev)
			if err != nil {
				t.Fatalf("plan() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_Errors(t *testing.T) {
	for _, ev := range []actuator.Event{
		{Type: "teleport"},
		{Type: actuator.EventToggle, Button: mapping.ButtonRight, Down: true},
		{Type: actuator.EventKey},
		{Type: actuator.EventKey, Key: "hyper+x"},
	} {
		if _, err := plan(ev); err == nil {
			t.Errorf("plan(%+v) should fail", ev)
		}
	}
}

func TestScrollScript(t *testing.T) {
	up := scrollScript(3)
	if !strings.Contains(up, "repeat 3 times") || !strings.Contains(up, "key code 126") {
		t.Errorf("scroll up script = %q", up)
	}
	down := scrollScript(-2)
	if !strings.Contains(down, "repeat 2 times") || !strings.Contains(down, "key code 125") {
		t.Errorf("scroll down script = %q", down)
	}
}

func TestKeyScript(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{actuator.KeyVolumeUp, "+ 10"},
		{actuator.KeyVolumeDown, "- 10"},
		{actuator.KeyVolumeMute, "output muted"},
		{"a", `keystroke "a"`},
		{"cmd+shift+z", `keystroke "z" using {command down, shift down}`},
	}
	for _, tt := range tests {
		got, err := keyScript(tt.key)
		if err != nil {
			t.Fatalf("keyScript(%q) error = %v", tt.key, err)
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("keyScript(%q) = %q, want it to contain %q", tt.key, got, tt.want)
		}
	}
}

func TestParseBounds(t *testing.T) {
	w, h, err := parseBounds("0, 0, 1440, 900\n")
	if err != nil {
		t.Fatalf("parseBounds() error = %v", err)
	}
	if w != 1440 || h != 900 {
		t.Errorf("parseBounds() = %d x %d, want 1440 x 900", w, h)
	}

	for _, s := range []string{"", "0, 0, 1440", "a, b, c, d"} {
		if _, _, err := parseBounds(s); err == nil {
			t.Errorf("parseBounds(%q) should fail", s)
		}
	}
}

func TestHandle(t *testing.T) {
	var calls [][]string
	ok := func(name string, args ...string) (string, error) {
		calls = append(calls, append([]string{name}, args...))
		return "0, 0, 800, 600", nil
	}

	if resp := handle(actuator.Event{Type: actuator.EventClick}, ok); !resp.Success {
		t.Errorf("click failed: %+v", resp)
	}
	if len(calls) != 1 || calls[0][0] != "cliclick" {
		t.Errorf("unexpected calls: %v", calls)
	}

	resp := handle(actuator.Event{Type: actuator.EventScreen}, ok)
	if !resp.Success || resp.Width != 800 || resp.Height != 600 {
		t.Errorf("screen response = %+v", resp)
	}

	failing := func(string, ...string) (string, error) { return "", errors.New("not installed") }
	resp = handle(actuator.Event{Type: actuator.EventMove, DX: 1}, failing)
	if resp.Success || !strings.Contains(resp.Error, "not installed") {
		t.Errorf("expected failure response, got %+v", resp)
	}
}
