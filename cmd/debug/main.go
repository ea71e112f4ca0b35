package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/skobkin/fieldtester/internal/app"
	"github.com/skobkin/fieldtester/internal/config"
	"github.com/skobkin/fieldtester/internal/logging"
	"github.com/skobkin/fieldtester/internal/persistence"
	"github.com/skobkin/fieldtester/internal/settings"
	"github.com/skobkin/fieldtester/internal/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run debug tool", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := pflag.StringP("data-dir", "d", "", "directory holding config, settings record and results (default: user config dir)")
	settingsFile := pflag.String("settings", "", "settings record to inspect (default: from config)")
	eraseSettings := pflag.Bool("erase-settings", false, "erase the settings record; the next start writes defaults")
	showResults := pflag.IntP("results", "r", 0, "print up to N stored results, -1 for all")
	clearResults := pflag.Bool("clear-results", false, "delete every stored result")
	listPorts := pflag.Bool("list-ports", false, "list serial ports and exit")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listPorts {
		ports, err := transport.ListSerialPorts()
		if err != nil {
			return err
		}
		printPorts(os.Stdout, ports)

		return nil
	}

	paths, err := resolvePaths(*dataDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	paths = paths.WithStorage(cfg.Storage)
	if v := strings.TrimSpace(*settingsFile); v != "" {
		paths.SettingsFile = v
	}

	logMgr := logging.NewManager()
	cfg.Logging.LogToFile = false
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")
	logger.Info("starting fieldtester debug", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	backend := settings.NewFileBackend(paths.SettingsFile)
	if *eraseSettings {
		if err := settings.NewStore(logger, backend, nil).Erase(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "erased %s\n", backend.Path())
	} else {
		data, err := backend.Read()
		switch {
		case errors.Is(err, os.ErrNotExist):
			_, _ = fmt.Fprintf(os.Stdout, "no settings record at %s\n", backend.Path())
		case err != nil:
			return err
		default:
			printSettings(os.Stdout, backend.Path(), data)
		}
	}

	if *showResults == 0 && !*clearResults {
		return nil
	}

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		return fmt.Errorf("open results db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if *clearResults {
		if err := persistence.ClearDatabase(ctx, db); err != nil {
			return err
		}
		logger.Info("results cleared", "path", paths.DBFile)

		return nil
	}

	return printResults(ctx, os.Stdout, persistence.NewResultRepo(db), *showResults)
}

func resolvePaths(dataDir string) (app.Paths, error) {
	if dir := strings.TrimSpace(dataDir); dir != "" {
		return app.PathsIn(dir)
	}
	paths, err := app.ResolvePaths()
	if err != nil {
		return app.Paths{}, fmt.Errorf("resolve paths: %w", err)
	}

	return paths, nil
}

// printSettings decodes data without repairing it, so a corrupted record is shown as stored.
func printSettings(w io.Writer, path string, data []byte) {
	header, rec, err := settings.Inspect(data)
	_, _ = fmt.Fprintf(w, "settings record: %s (%d bytes)\n", path, len(data))
	if errors.Is(err, settings.ErrShortRecord) {
		_, _ = fmt.Fprintf(w, "  integrity: %v\n", err)

		return
	}

	_, _ = fmt.Fprintf(w, "  crc:           stored %08X, computed %08X\n", header.StoredCRC, header.ComputedCRC)
	_, _ = fmt.Fprintf(w, "  valid flag:    0x%02X\n", header.ValidFlag)
	_, _ = fmt.Fprintf(w, "  layout:        %d\n", header.Layout)
	if err != nil {
		_, _ = fmt.Fprintf(w, "  integrity:     %v\n", err)
	} else {
		_, _ = fmt.Fprintln(w, "  integrity:     ok")
	}
	_, _ = fmt.Fprintf(w, "  send interval: %d ms\n", rec.SendIntervalMs)
	_, _ = fmt.Fprintf(w, "  test mode:     %d (%s)\n", uint8(rec.TestMode), rec.TestMode)
	_, _ = fmt.Fprintf(w, "  display saver: %t\n", rec.DisplaySaver)
	_, _ = fmt.Fprintf(w, "  location:      %t\n", rec.LocationEnabled)
	_, _ = fmt.Fprintf(w, "  dr sweep:      %t\n", rec.DRSweepEnabled)
	_, _ = fmt.Fprintf(w, "  custom packet: %X (%d bytes)\n", rec.CustomPacket, len(rec.CustomPacket))
	_, _ = fmt.Fprintf(w, "  timezone:      %+d\n", rec.TimezoneOffset)
	_, _ = fmt.Fprintf(w, "  mesh node:     %08X\n", rec.MeshCheckNode)
}

func printResults(ctx context.Context, w io.Writer, repo *persistence.ResultRepo, limit int) error {
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	results, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "results: %d of %d\n", len(results), total)
	for _, res := range results {
		_, _ = fmt.Fprintln(w, persistence.FormatResult(res))
	}

	return nil
}

func printPorts(w io.Writer, ports []string) {
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "no serial ports found")

		return
	}
	for _, port := range ports {
		_, _ = fmt.Fprintln(w, port)
	}
}
