// Package tray provides the system tray menu: an enable toggle bound to the
// actuation gate and a display of the last recognized gesture.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
)

// Tray represents the system tray application.
type Tray struct {
	gate       *control.Gate
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	lastGesture     string
}

// New creates a Tray bound to gate. Toggling the menu opens or closes the
// gate, and gate changes made elsewhere are reflected in the menu.
func New(gate *control.Gate) *Tray {
	t := &Tray{gate: gate, lastGesture: gestureTitle(gesture.Classified{})}
	gate.OnChange(t.setEnabled)
	return t
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, ending Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.gate.IsEnabled()), "Toggle gesture control")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(t.lastGesture, "Last recognized gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.Toggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// Toggle flips the gate.
func (t *Tray) Toggle() {
	t.gate.Set(!t.gate.IsEnabled())
}

// setEnabled updates the toggle title. It runs from the gate's listeners.
func (t *Tray) setEnabled(enabled bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last gesture display. It is shaped to be
// passed to app.App.OnGesture.
func (t *Tray) SetLastGesture(c gesture.Classified) {
	if c.Label == gesture.None {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastGesture = gestureTitle(c)
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(t.lastGesture)
	}
}

// LastGesture returns the text shown for the last gesture.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastGesture
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	return t.gate.IsEnabled()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func gestureTitle(c gesture.Classified) string {
	if c.Label == "" || c.Label == gesture.None {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (%s)", c.Label, c.Role)
}
