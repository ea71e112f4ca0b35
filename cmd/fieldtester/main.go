package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/skobkin/fieldtester/internal/app"
	"github.com/skobkin/fieldtester/internal/config"
	"github.com/skobkin/fieldtester/internal/platform"
)

type options struct {
	dataDir    string
	console    string
	serialPort string
	baud       int
	host       string
	port       int
	logLevel   string
	saveConfig bool
	version    bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("run fieldtester", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet(app.Name, pflag.ExitOnError)
	opts := registerFlags(flags)
	_ = flags.Parse(os.Args[1:])
	if opts.version {
		_, _ = fmt.Fprintf(os.Stdout, "%s %s, firmware %s\n", app.Name, app.BuildVersionWithDate(), app.FirmwareVersion())

		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := resolvePaths(opts.dataDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, flags, opts)
	if opts.saveConfig {
		if err := config.Save(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	lock, err := platform.LockRecord(paths.WithStorage(cfg.Storage).SettingsFile)
	if err != nil {
		if errors.Is(err, platform.ErrRecordLocked) {
			return fmt.Errorf("another %s already owns this settings record: %w", app.Name, err)
		}
		if !errors.Is(err, platform.ErrRecordLockUnsupported) {
			return fmt.Errorf("lock settings record: %w", err)
		}
		slog.Warn("settings record lock unsupported on this platform", "error", err)
	}
	var releaseOnce sync.Once
	releaseLock := func() {
		releaseOnce.Do(func() {
			if lock != nil {
				_ = lock.Release()
			}
		})
	}
	defer releaseLock()

	rt, err := app.Initialize(ctx, paths, cfg)
	if err != nil {
		return fmt.Errorf("initialize app runtime: %w", err)
	}
	var closeOnce sync.Once
	closeRuntime := func() {
		closeOnce.Do(func() {
			_ = rt.Close()
		})
	}
	defer closeRuntime()

	tr, err := app.NewConsoleTransport(rt.Config.Connection, rt.Paths, app.CommandCompletions(rt.CommandNames()), os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	rt.LogManager.Logger("main").Info(
		"starting fieldtester",
		"version", app.BuildVersionWithDate(),
		"console", rt.Config.Connection.Console,
		"target", app.ConsoleTarget(rt.Config.Connection),
	)

	err = rt.Serve(ctx, tr)
	switch {
	case errors.Is(err, app.ErrRestartRequested):
		closeRuntime()
		releaseLock()
		stop()

		return platform.Restart()
	case errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}

func registerFlags(flags *pflag.FlagSet) *options {
	opts := &options{}
	flags.StringVarP(&opts.dataDir, "data-dir", "d", "", "directory holding config, settings record and results (default: user config dir)")
	flags.StringVarP(&opts.console, "console", "c", "", "console transport: console, stdio, serial or tcp")
	flags.StringVarP(&opts.serialPort, "serial-port", "p", "", "serial port for the serial console")
	flags.IntVarP(&opts.baud, "baud", "b", config.DefaultSerialBaud, "serial console baud rate")
	flags.StringVar(&opts.host, "host", "", "host of the tcp console bridge")
	flags.IntVar(&opts.port, "port", 0, "port of the tcp console bridge")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.saveConfig, "save-config", false, "persist the flag overrides to the config file")
	flags.BoolVarP(&opts.version, "version", "V", false, "print version and exit")

	return opts
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cfg *config.AppConfig, flags *pflag.FlagSet, opts *options) {
	if flags.Changed("console") {
		cfg.Connection.Console = config.ConsoleType(strings.ToLower(strings.TrimSpace(opts.console)))
	}
	if flags.Changed("serial-port") {
		cfg.Connection.SerialPort = strings.TrimSpace(opts.serialPort)
	}
	if flags.Changed("baud") {
		cfg.Connection.SerialBaud = opts.baud
	}
	if flags.Changed("host") {
		cfg.Connection.Host = strings.TrimSpace(opts.host)
	}
	if flags.Changed("port") {
		cfg.Connection.Port = opts.port
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.TrimSpace(opts.logLevel)
	}
}

func resolvePaths(dataDir string) (app.Paths, error) {
	if dir := strings.TrimSpace(dataDir); dir != "" {
		paths, err := app.PathsIn(dir)
		if err != nil {
			return app.Paths{}, fmt.Errorf("prepare data dir: %w", err)
		}

		return paths, nil
	}
	paths, err := app.ResolvePaths()
	if err != nil {
		return app.Paths{}, fmt.Errorf("resolve paths: %w", err)
	}

	return paths, nil
}
