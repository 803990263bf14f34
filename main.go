// bar-pulse is a status-line generator for i3bar/swaybar.
//
// It runs one concurrent task per configured block (clock, battery, volume,
// network, workspaces, ...), merges their output into ordered frames on
// stdout using the i3bar JSON protocol, and routes click events from stdin
// back to the block that owns the clicked slot. When stdout is a terminal it
// prints plain colored lines instead, so it can be run by hand.
//
// Usage:
//
//	bar-pulse [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: XDG search path)
//	-once           Print a single frame and exit
//	-list-blocks    List registered block kinds and exit
//	-verbose        Enable debug logging (stderr)
//	-version        Print version and exit
//
// SIGUSR1 forces a refresh of every block; SIGINT/SIGTERM shut down
// gracefully after a final flush.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/engine"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/termline"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"

	// Block implementations register themselves with the factory registry.
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/backlight"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/battery"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/clock"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/kube"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/network"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/script"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/sysmetrics"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/volume"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/vpn"
	_ "gitlab.com/tinyland/lab/bar-pulse/pkg/blocks/workspaces"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// onceTimeout bounds how long -once waits for slow blocks.
const onceTimeout = 3 * time.Second

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		runOnce     = flag.Bool("once", false, "Print a single frame and exit")
		listBlocks  = flag.Bool("list-blocks", false, "List registered block kinds and exit")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bar-pulse %s (%s)\n", version, commit)
		return
	}
	if *listBlocks {
		for _, kind := range blocks.Kinds() {
			fmt.Println(kind)
		}
		return
	}

	if err := run(*configPath, *runOnce, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "bar-pulse: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once, verbose bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.General.LogLevel, verbose)
	slog.SetDefault(logger)

	th, err := loadTheme(cfg.Theme)
	if err != nil {
		return err
	}

	blockList, err := buildBlocks(cfg.Blocks)
	if err != nil {
		return err
	}

	// stdout owned by a terminal means a human is running us; print text
	// instead of the JSON protocol.
	var out protocol.Output
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		out = termline.NewWriter(os.Stdout)
	} else {
		out = protocol.NewWriter(os.Stdout)
	}

	eng, err := engine.New(blockList, out, os.Stdin, engine.Options{
		Debounce:     cfg.General.Debounce.Duration,
		UpdateBuffer: cfg.General.UpdateBuffer,
		Theme:        th,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	go func() {
		for sig := range sigs {
			switch sig {
			case syscall.SIGUSR1:
				logger.Debug("forced refresh requested")
				eng.ForceRefresh()
			default:
				logger.Info("received shutdown signal", "signal", sig)
				cancel()
				return
			}
		}
	}()

	if once {
		return eng.RunOnce(ctx, onceTimeout)
	}
	return eng.Run(ctx)
}

// loadConfig reads the explicit path when given, otherwise the XDG search
// path.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loadTheme resolves the configured theme, registering any user theme files
// first so names can refer to them.
func loadTheme(tc config.ThemeConfig) (theme.Theme, error) {
	if tc.File != "" {
		return theme.LoadFile(tc.File)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "bar-pulse", "themes")
		if err := theme.LoadDir(dir); err != nil {
			return theme.Theme{}, fmt.Errorf("load themes from %s: %w", dir, err)
		}
	}
	return theme.Get(tc.Name), nil
}

// buildBlocks constructs every configured block in display order. Any
// construction failure aborts startup before a frame is emitted.
func buildBlocks(cfgs []config.Block) ([]blocks.Block, error) {
	out := make([]blocks.Block, 0, len(cfgs))
	for i, bc := range cfgs {
		b, err := blocks.New(bc)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// newLogger builds the stderr slog logger. stdout is never logged to; it
// belongs to the wire protocol.
func newLogger(level string, verbose bool) *slog.Logger {
	l := slog.LevelInfo
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	if verbose {
		l = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
