package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/mapping"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gesture pipeline and the web interface",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	defaults := config.Default()
	flags := runCmd.Flags()
	flags.Bool("enabled", defaults.Enabled, "Start with gesture control enabled")
	flags.IntP("camera", "c", defaults.Camera.Device, "Camera device index")
	flags.StringP("video", "f", "", "Read frames from a video file instead of the camera")
	flags.Int("fps", defaults.Camera.FPS, "Frames processed per second")
	flags.Bool("mirror", defaults.Camera.Mirror, "Mirror the camera horizontally")
	flags.String("addr", defaults.Server.Addr, "HTTP listen address, empty to disable the web interface")
	flags.String("web", "", "Directory of static web files (searched for when empty)")
	flags.String("injector", defaults.Injector.Kind, "Input backend: robotgo, command or dry-run")
	flags.String("helper", "", "Helper executable for the command injector")
	flags.String("detector", "mediapipe", "Landmark detector: mediapipe or mock")
	flags.Bool("tray", defaults.Tray, "Show a system tray menu")
	flags.String("primary-hand", defaults.PrimaryHand, "Dominant hand: Left or Right")

	rootCmd.AddCommand(runCmd)
}

// runConfig layers defaults, stored settings and explicitly set flags, in
// that order of precedence.
func runConfig(cmd *cobra.Command, st *store.Store, cfg config.Config, logger *slog.Logger) (config.Config, error) {
	stored, err := st.Settings().All()
	if err != nil {
		return cfg, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := cfg.ApplySettings(stored); err != nil {
		logger.Warn("ignoring stored settings", "err", err)
	}

	flags := cmd.Flags()
	if flags.Changed("enabled") {
		cfg.Enabled, _ = flags.GetBool("enabled")
	}
	if flags.Changed("camera") {
		cfg.Camera.Device, _ = flags.GetInt("camera")
	}
	if flags.Changed("video") {
		cfg.Camera.VideoFile, _ = flags.GetString("video")
	}
	if flags.Changed("fps") {
		cfg.Camera.FPS, _ = flags.GetInt("fps")
	}
	if flags.Changed("mirror") {
		cfg.Camera.Mirror, _ = flags.GetBool("mirror")
	}
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("injector") {
		cfg.Injector.Kind, _ = flags.GetString("injector")
	}
	if flags.Changed("helper") {
		cfg.Injector.Helper, _ = flags.GetString("helper")
	}
	if flags.Changed("tray") {
		cfg.Tray, _ = flags.GetBool("tray")
	}
	if flags.Changed("primary-hand") {
		hand, _ := flags.GetString("primary-hand")
		if cfg.PrimaryHand, err = config.NormalizeHand(hand); err != nil {
			return cfg, err
		}
	}
	cfg.Server.StaticDir, _ = flags.GetString("web")
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir(cfg.DataDir)
	}

	return cfg, cfg.Validate()
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	fmt.Println("Mudra - Hand Gesture Control")

	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg, err = runConfig(cmd, st, cfg, logger); err != nil {
		return err
	}
	// Stored settings may change the log level.
	if logger, err = newLogger(cfg); err != nil {
		return err
	}

	table := mapping.NewTable(cfg.MappingsPath(), logger.With("component", "mapping"))
	if err := table.Load(); err != nil {
		return err
	}

	detectorKind, _ := cmd.Flags().GetString("detector")
	det, err := newDetector(detectorKind, cfg, logger)
	if err != nil {
		return err
	}

	inj, err := newInjector(cfg)
	if err != nil {
		return err
	}

	gate := control.NewGate(cfg.Enabled)
	a, err := app.New(app.Options{
		Config:   cfg,
		Camera:   newCamera(cfg),
		Detector: det,
		Table:    table,
		Injector: inj,
		Gate:     gate,
		Logger:   logger,
	})
	if err != nil {
		det.Close()
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := newEventLog(st.Events(), a.RunID(), table, logger)
	a.OnGesture(events.Record)
	logged := make(chan struct{})
	go func() {
		defer close(logged)
		events.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			App:       a,
			Store:     st,
			Logger:    logger,
		})
		go func() { serveErr <- srv.ListenAndServe(ctx, cfg.Server.Addr) }()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	if cfg.Tray {
		tr := tray.New(gate)
		a.OnGesture(tr.SetLastGesture)
		tr.OnQuit(stop)
		go func() {
			<-a.Slot().Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	select {
	case err = <-runErr:
	case err = <-serveErr:
		stop()
		if err != nil {
			logger.Error("server failed", "err", err)
		}
		<-runErr
	}
	stop()
	<-logged

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info("shut down")
		return nil
	case errors.Is(err, capture.ErrSourceExhausted):
		logger.Info("video finished")
		return nil
	}
	return err
}

func newCamera(cfg config.Config) capture.Camera {
	if cfg.Camera.VideoFile != "" {
		return capture.NewVideoFile(cfg.Camera.VideoFile)
	}
	return capture.NewCamera(cfg.Camera.Device)
}

// newDetector builds the requested detector. When MediaPipe cannot be set
// up the mock detector is used so the preview still works.
func newDetector(kind string, cfg config.Config, logger *slog.Logger) (detector.Detector, error) {
	switch kind {
	case "mock":
		return detector.NewMockDetector(), nil
	case "mediapipe":
		det, err := detector.NewMediaPipeDetector(cfg.Detector, logger.With("component", "detector"))
		if err != nil {
			logger.Warn("MediaPipe unavailable, no hands will be detected", "err", err)
			return detector.NewMockDetector(), nil
		}
		return det, nil
	}
	return nil, fmt.Errorf("unknown detector %q", kind)
}

func newInjector(cfg config.Config) (actuator.Injector, error) {
	switch cfg.Injector.Kind {
	case config.InjectorRobot:
		return actuator.NewRobotInjector(), nil
	case config.InjectorCommand:
		return actuator.NewCommandInjector(cfg.Injector.Helper, cfg.Injector.Timeout), nil
	case config.InjectorDryRun:
		return actuator.NewRecorder(1920, 1080), nil
	}
	return nil, fmt.Errorf("unsupported injector %q", cfg.Injector.Kind)
}

// findWebDir searches for the web directory in common locations.
// It checks "web", "../web", "../../web" and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
