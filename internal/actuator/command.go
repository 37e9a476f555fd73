package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ayusman/mudra/internal/mapping"
)

// DefaultCommandTimeout bounds one helper invocation.
const DefaultCommandTimeout = 500 * time.Millisecond

// CommandInjector sends every event as JSON on the stdin of an external
// helper executable and reads a Response from its stdout. It serves hosts
// where robotgo cannot inject.
type CommandInjector struct {
	executable string
	timeout    time.Duration
}

// NewCommandInjector returns an injector running executable for every event.
func NewCommandInjector(executable string, timeout time.Duration) *CommandInjector {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandInjector{executable: executable, timeout: timeout}
}

// ScreenSize asks the helper for the display size. It returns 0, 0 if the
// helper cannot answer.
func (c *CommandInjector) ScreenSize() (int, int) {
	resp, err := c.send(Event{Type: EventScreen})
	if err != nil {
		return 0, 0
	}
	return resp.Width, resp.Height
}

func (c *CommandInjector) MoveRelative(dx, dy int) error {
	_, err := c.send(Event{Type: EventMove, DX: dx, DY: dy})
	return err
}

func (c *CommandInjector) Click(button mapping.Button, double bool) error {
	_, err := c.send(Event{Type: EventClick, Button: button, Double: double})
	return err
}

func (c *CommandInjector) Toggle(button mapping.Button, down bool) error {
	_, err := c.send(Event{Type: EventToggle, Button: button, Down: down})
	return err
}

func (c *CommandInjector) Scroll(dx, dy int) error {
	_, err := c.send(Event{Type: EventScroll, DX: dx, DY: dy})
	return err
}

func (c *CommandInjector) KeyTap(key string) error {
	_, err := c.send(Event{Type: EventKey, Key: key})
	return err
}

func (c *CommandInjector) send(ev Event) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.executable)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("helper %s timed out after %s", ev.Type, c.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("helper %s failed: %w, stderr: %s", ev.Type, err, s)
		}
		return nil, fmt.Errorf("helper %s failed: %w", ev.Type, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse helper response: %w, stdout: %s", err, stdout.String())
	}
	if !resp.Success {
		return &resp, fmt.Errorf("helper %s: %s", ev.Type, resp.Error)
	}
	return &resp, nil
}
