package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/backend"
	"github.com/valerio/go-tempo/tempo/backend/headless"
	"github.com/valerio/go-tempo/tempo/backend/terminal"
	"github.com/valerio/go-tempo/tempo/config"
	"github.com/valerio/go-tempo/tempo/debug"
	"github.com/valerio/go-tempo/tempo/session"
	"github.com/valerio/go-tempo/tempo/timing"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Error running tempo", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tempo"
	app.Description = "Cycle-accurate timer, display and audio timing core"
	app.Usage = "tempo [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the TOML config file (default: user config directory)",
		},
		cli.StringFlag{
			Name:  "revision, m",
			Usage: "Hardware revision to model: dmg or cgb",
		},
		cli.BoolFlag{
			Name:  "double-speed",
			Usage: "Run the cgb in double speed mode",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run (required without --terminal)",
		},
		cli.StringFlag{
			Name:  "limiter",
			Usage: "Frame pacing: adaptive, ticker or none (default: none without --terminal)",
		},
		cli.StringFlag{
			Name:  "wav",
			Usage: "Record the mixed audio to this WAV file",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "terminal",
			Usage: "Show the display and peripheral state in the terminal",
		},
		cli.StringFlag{
			Name:  "dump-state",
			Usage: "Write the final peripheral state as JSON to this file (- for stdout)",
		},
		cli.StringFlag{
			Name:  "dump-tiles",
			Usage: "Write the final VRAM tile patterns as a PNG to this file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  "save-config",
			Usage: "Write the effective configuration to this file and exit",
		},
	}
	app.Action = run
	return app
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("revision") {
		cfg.Hardware.Revision = c.String("revision")
	}
	if c.IsSet("double-speed") {
		cfg.Hardware.DoubleSpeed = c.Bool("double-speed")
	}
	if c.IsSet("frames") {
		cfg.Run.Frames = c.Int("frames")
	}
	if c.IsSet("limiter") {
		cfg.Run.Limiter = c.String("limiter")
	} else if !c.Bool("terminal") {
		cfg.Run.Limiter = timing.KindNone
	}
	if c.IsSet("snapshot-interval") {
		cfg.Video.SnapshotInterval = c.Int("snapshot-interval")
	}
	if c.IsSet("snapshot-dir") {
		cfg.Video.SnapshotDir = c.String("snapshot-dir")
	}
	if c.IsSet("log-level") {
		cfg.Run.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))

	if path := c.String("save-config"); path != "" {
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		slog.Info("Configuration saved", "path", path)
		return nil
	}

	useTerminal := c.Bool("terminal")
	if !useTerminal && cfg.Run.Frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	sys, err := tempo.New(cfg)
	if err != nil {
		return err
	}

	backends, err := buildBackends(cfg, c.String("wav"), useTerminal)
	if err != nil {
		return err
	}

	constants := timing.ForSpeed(cfg.Hardware.DoubleSpeed)
	limiter, err := timing.New(cfg.Run.Limiter, constants.FrameDuration())
	if err != nil {
		return err
	}
	if stopper, ok := limiter.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(sys, session.HaltedCore{}, session.Options{
		Title:     fmt.Sprintf("tempo %s", sys.Revision()),
		MaxFrames: cfg.Run.Frames,
		Limiter:   limiter,
	}, backends...)

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("Interrupted", "frames", s.Frames())
		err = nil
	}
	if err != nil {
		return err
	}

	if path := c.String("dump-tiles"); path != "" {
		if err := debug.SaveTileSheet(path, sys.Bus(), sys.Status().Video.BGP); err != nil {
			return err
		}
		slog.Info("Tile sheet written", "path", path)
	}
	return dumpState(c.String("dump-state"), sys.Status())
}

func buildBackends(cfg config.Config, wavPath string, useTerminal bool) ([]backend.Backend, error) {
	var backends []backend.Backend

	if useTerminal {
		backends = append(backends, terminal.New())
	} else {
		snapshots, err := headless.CreateSnapshotConfig(cfg.Video.SnapshotInterval, cfg.Video.SnapshotDir, cfg.Hardware.Revision)
		if err != nil {
			return nil, err
		}
		backends = append(backends, headless.New(cfg.Run.Frames, snapshots))
	}

	if wavPath != "" {
		backends = append(backends, headless.NewRecorder(wavPath))
	}
	return backends, nil
}

func dumpState(path string, status tempo.Status) error {
	switch path {
	case "":
		return nil
	case "-":
		return debug.WriteStatus(os.Stdout, status)
	default:
		if err := debug.SaveStatus(path, status); err != nil {
			return err
		}
		slog.Info("State written", "path", path)
		return nil
	}
}
