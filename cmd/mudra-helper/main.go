// Command mudra-helper injects pointer, scroll and key input on macOS for
// the command injector. It reads one JSON event from stdin and writes one
// JSON response to stdout. Pointer events go through cliclick; volume, keys
// and scrolling through AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/mapping"
)

// runner executes a command and returns its combined output.
type runner func(name string, args ...string) (string, error)

func main() {
	var ev actuator.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(actuator.Response{Error: fmt.Sprintf("failed to decode event: %v", err)})
		return
	}
	writeResponse(handle(ev, run))
}

func handle(ev actuator.Event, run runner) actuator.Response {
	if ev.Type == actuator.EventScreen {
		w, h, err := screenSize(run)
		if err != nil {
			return actuator.Response{Error: err.Error()}
		}
		return actuator.Response{Success: true, Width: w, Height: h}
	}

	cmds, err := plan(ev)
	if err != nil {
		return actuator.Response{Error: err.Error()}
	}
	for _, c := range cmds {
		if _, err := run(c[0], c[1:]...); err != nil {
			return actuator.Response{Error: fmt.Sprintf("%s failed: %v", ev.Type, err)}
		}
	}
	return actuator.Response{Success: true}
}

// plan returns the commands that carry out ev, each as an argv.
func plan(ev actuator.Event) ([][]string, error) {
	switch ev.Type {
	case actuator.EventMove:
		return [][]string{{"cliclick", fmt.Sprintf("m:%+d,%+d", ev.DX, ev.DY)}}, nil

	case actuator.EventClick:
		switch {
		case ev.Button == mapping.ButtonRight:
			return [][]string{{"cliclick", "rc:."}}, nil
		case ev.Double:
			return [][]string{{"cliclick", "dc:."}}, nil
		default:
			return [][]string{{"cliclick", "c:."}}, nil
		}

	case actuator.EventToggle:
		if ev.Button != mapping.ButtonLeft && ev.Button != "" {
			return nil, fmt.Errorf("toggle supports the left button only, got %q", ev.Button)
		}
		if ev.Down {
			return [][]string{{"cliclick", "dd:."}}, nil
		}
		return [][]string{{"cliclick", "du:."}}, nil

	case actuator.EventScroll:
		if ev.DY == 0 {
			return nil, nil
		}
		return [][]string{appleScript(scrollScript(ev.DY))}, nil

	case actuator.EventKey:
		script, err := keyScript(ev.Key)
		if err != nil {
			return nil, err
		}
		return [][]string{appleScript(script)}, nil
	}
	return nil, fmt.Errorf("unknown event type: %q", ev.Type)
}

func appleScript(script string) []string {
	return []string{"osascript", "-e", script}
}

// scrollScript presses the arrow key once per line; positive dy scrolls up.
func scrollScript(dy int) string {
	code, n := 126, dy // up arrow
	if dy < 0 {
		code, n = 125, -dy // down arrow
	}
	return fmt.Sprintf(`tell application "System Events"
	repeat %d times
		key code %d
	end repeat
end tell`, n, code)
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// keyScript builds the AppleScript for a key name. Volume keys use the
// volume settings; other keys are keystrokes with optional "mod+" prefixes.
func keyScript(key string) (string, error) {
	switch key {
	case actuator.KeyVolumeUp:
		return `set volume output volume ((output volume of (get volume settings)) + 10)`, nil
	case actuator.KeyVolumeDown:
		return `set volume output volume ((output volume of (get volume settings)) - 10)`, nil
	case actuator.KeyVolumeMute:
		return `set volume output muted (not (output muted of (get volume settings)))`, nil
	case "":
		return "", fmt.Errorf("key is required")
	}

	parts := strings.Split(key, "+")
	k := parts[len(parts)-1]
	if k == "" {
		return "", fmt.Errorf("invalid key %q", key)
	}

	var mods []string
	for _, m := range parts[:len(parts)-1] {
		am, ok := modifierMap[strings.ToLower(m)]
		if !ok {
			return "", fmt.Errorf("unknown modifier %q", m)
		}
		mods = append(mods, am)
	}

	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke %q`, k), nil
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`, k, strings.Join(mods, ", ")), nil
}

// screenSize reads the desktop bounds, reported as "0, 0, width, height".
func screenSize(run runner) (int, int, error) {
	out, err := run("osascript", "-e", `tell application "Finder" to get bounds of window of desktop`)
	if err != nil {
		return 0, 0, fmt.Errorf("screen failed: %w", err)
	}
	return parseBounds(out)
}

func parseBounds(s string) (int, int, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != 4 {
		return 0, 0, fmt.Errorf("unexpected bounds %q", s)
	}
	var v [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, 0, fmt.Errorf("unexpected bounds %q", s)
		}
		v[i] = n
	}
	return v[2] - v[0], v[3] - v[1], nil
}

func run(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, string(output))
	}
	return string(output), nil
}

func writeResponse(resp actuator.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
