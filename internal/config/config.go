// Package config holds the runtime configuration of mudra.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

const (
	DataDirName      = ".mudra"
	DBFileName       = "mudra.db"
	MappingsFileName = "mappings.txt"
)

// Injector backends.
const (
	InjectorRobot   = "robotgo"
	InjectorCommand = "command"
	InjectorDryRun  = "dry-run"
)

// ErrUnknownSetting is returned by ApplySettings for keys it does not know.
var ErrUnknownSetting = errors.New("unknown setting")

// Config is the full runtime configuration.
type Config struct {
	DataDir string

	Camera   CameraConfig
	Detector detector.Config
	Gesture  gesture.Config
	Actuator actuator.Config
	Injector InjectorConfig
	Server   ServerConfig
	Logging  LoggingConfig

	// PrimaryHand is the handedness ("Left" or "Right") of the primary hand.
	PrimaryHand string
	// Enabled is the initial state of the control gate.
	Enabled bool
	Tray    bool
}

// CameraConfig selects and paces the frame source.
type CameraConfig struct {
	Device int
	// VideoFile replaces the camera with a recording when set.
	VideoFile   string
	FPS         int
	ReadTimeout time.Duration
	// Mirror flips landmarks horizontally so motion matches the user's view.
	Mirror bool
	// MotionThreshold is the percentage of changed pixels below which a
	// frame counts as idle and detection is skipped while no hand is
	// present. Zero detects on every frame.
	MotionThreshold float64
}

// InjectorConfig selects the OS input backend.
type InjectorConfig struct {
	Kind    string
	Helper  string
	Timeout time.Duration
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr      string
	StaticDir string
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string
	Format string
}

// Default returns the baseline configuration.
func Default() Config {
	dataDir := DataDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, DataDirName)
	}

	return Config{
		DataDir: dataDir,
		Camera: CameraConfig{
			Device:      0,
			FPS:         15,
			ReadTimeout: 2 * time.Second,
			Mirror:      true,
		},
		Detector: detector.DefaultConfig(),
		Gesture:  gesture.DefaultConfig(),
		Actuator: actuator.DefaultConfig(),
		Injector: InjectorConfig{
			Kind:    InjectorRobot,
			Timeout: actuator.DefaultCommandTimeout,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		PrimaryHand: "Right",
		Enabled:     true,
		Tray:        false,
	}
}

// MappingsPath returns the location of the mappings file.
func (c Config) MappingsPath() string {
	return filepath.Join(c.DataDir, MappingsFileName)
}

// DBPath returns the location of the settings database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

// Validate checks that the configuration can drive the pipeline.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data dir must be set")
	}
	if c.Camera.FPS <= 0 {
		return errors.New("camera.fps must be positive")
	}
	if c.Camera.MotionThreshold < 0 || c.Camera.MotionThreshold > 100 {
		return errors.New("camera.motion_threshold must be within [0, 100]")
	}
	if c.Camera.ReadTimeout <= 0 {
		return errors.New("camera.read_timeout must be positive")
	}
	if c.Detector.MaxHands < 1 || c.Detector.MaxHands > detector.NumRoles {
		return fmt.Errorf("detector.max_hands must be between 1 and %d", detector.NumRoles)
	}
	if c.Gesture.Window < 1 {
		return errors.New("gesture.window must be at least 1")
	}
	if c.Gesture.Votes < 1 || c.Gesture.Votes > c.Gesture.Window {
		return errors.New("gesture.votes must be between 1 and gesture.window")
	}
	if c.Gesture.MinConfidence < 0 || c.Gesture.MinConfidence > 1 {
		return errors.New("gesture.min_confidence must be within [0, 1]")
	}
	if c.Gesture.PathSize < 2 {
		return errors.New("gesture.path_size must be at least 2")
	}
	if c.Actuator.Alpha <= 0 || c.Actuator.Alpha > 1 {
		return errors.New("actuator.alpha must be within (0, 1]")
	}
	if c.Actuator.Gain <= 0 {
		return errors.New("actuator.gain must be positive")
	}
	if c.Actuator.MaxStep < 0 || c.Actuator.Deadzone < 0 {
		return errors.New("actuator.max_step and actuator.deadzone must not be negative")
	}
	if c.Actuator.ClickInterval < 0 || c.Actuator.RepeatInterval < 0 {
		return errors.New("actuator intervals must not be negative")
	}
	if _, err := NormalizeHand(c.PrimaryHand); err != nil {
		return err
	}
	switch c.Injector.Kind {
	case InjectorRobot, InjectorDryRun:
	case InjectorCommand:
		if c.Injector.Helper == "" {
			return errors.New("injector.helper must be set for the command injector")
		}
	default:
		return fmt.Errorf("unsupported injector %q", c.Injector.Kind)
	}
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

// setting reads and writes one persisted key.
type setting struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var settings = map[string]setting{
	"camera.fps":              intSetting(func(c *Config) *int { return &c.Camera.FPS }),
	"camera.mirror":           boolSetting(func(c *Config) *bool { return &c.Camera.Mirror }),
	"camera.motion_threshold": floatSetting(func(c *Config) *float64 { return &c.Camera.MotionThreshold }),
	"hand.primary": {
		get: func(c *Config) string { return c.PrimaryHand },
		set: func(c *Config, v string) error {
			hand, err := NormalizeHand(v)
			if err != nil {
				return err
			}
			c.PrimaryHand = hand
			return nil
		},
	},
	"gesture.window":           intSetting(func(c *Config) *int { return &c.Gesture.Window }),
	"gesture.votes":            intSetting(func(c *Config) *int { return &c.Gesture.Votes }),
	"gesture.min_confidence":   floatSetting(func(c *Config) *float64 { return &c.Gesture.MinConfidence }),
	"gesture.swipe_min_travel": floatSetting(func(c *Config) *float64 { return &c.Gesture.SwipeMinTravel }),
	"gesture.swipe_tolerance":  floatSetting(func(c *Config) *float64 { return &c.Gesture.SwipeTolerance }),
	"actuator.alpha":           floatSetting(func(c *Config) *float64 { return &c.Actuator.Alpha }),
	"actuator.deadzone":        floatSetting(func(c *Config) *float64 { return &c.Actuator.Deadzone }),
	"actuator.gain":            floatSetting(func(c *Config) *float64 { return &c.Actuator.Gain }),
	"actuator.max_step":        intSetting(func(c *Config) *int { return &c.Actuator.MaxStep }),
	"actuator.scroll_step":     intSetting(func(c *Config) *int { return &c.Actuator.ScrollStep }),
	"actuator.invert_x":        boolSetting(func(c *Config) *bool { return &c.Actuator.InvertX }),
	"actuator.click_interval":  durationSetting(func(c *Config) *time.Duration { return &c.Actuator.ClickInterval }),
	"actuator.repeat_interval": durationSetting(func(c *Config) *time.Duration { return &c.Actuator.RepeatInterval }),
	"log.level": {
		get: func(c *Config) string { return c.Logging.Level },
		set: func(c *Config, v string) error {
			level, err := NormalizeLogLevel(v)
			if err != nil {
				return err
			}
			c.Logging.Level = level
			return nil
		},
	},
}

// SettingKeys lists the keys accepted by ApplySettings, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSetting reports whether key is a known setting.
func IsSetting(key string) bool {
	_, ok := settings[key]
	return ok
}

// Settings returns the current value of every persisted key.
func (c *Config) Settings() map[string]string {
	out := make(map[string]string, len(settings))
	for k, s := range settings {
		out[k] = s.get(c)
	}
	return out
}

// ApplySettings overrides fields from persisted key/value pairs. It applies
// nothing if any key is unknown or any value fails to parse or validate.
func (c *Config) ApplySettings(values map[string]string) error {
	next := *c
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := settings[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSetting, k)
		}
		if err := s.set(&next, strings.TrimSpace(values[k])); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func intSetting(field func(*Config) *int) setting {
	return setting{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer %q", v)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatSetting(field func(*Config) *float64) setting {
	return setting{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q", v)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolSetting(field func(*Config) *bool) setting {
	return setting{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean %q", v)
			}
			*field(c) = b
			return nil
		},
	}
}

func durationSetting(field func(*Config) *time.Duration) setting {
	return setting{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration %q", v)
			}
			*field(c) = d
			return nil
		},
	}
}

// NormalizeHand canonicalizes a handedness label.
func NormalizeHand(hand string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(hand)) {
	case "right":
		return "Right", nil
	case "left":
		return "Left", nil
	default:
		return "", fmt.Errorf("unsupported hand %q", hand)
	}
}

// NormalizeLogLevel validates and canonicalizes log level identifiers.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "text", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
