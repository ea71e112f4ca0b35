package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skobkin/fieldtester/internal/atcmd"
	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/config"
	"github.com/skobkin/fieldtester/internal/device"
	"github.com/skobkin/fieldtester/internal/events"
	"github.com/skobkin/fieldtester/internal/logging"
	"github.com/skobkin/fieldtester/internal/mode"
	"github.com/skobkin/fieldtester/internal/persistence"
	"github.com/skobkin/fieldtester/internal/settings"
	"github.com/skobkin/fieldtester/internal/uplink"
)

// Runtime owns every long-lived component of one instrument session.
type Runtime struct {
	mu        sync.RWMutex
	closeOnce sync.Once

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	Events     *EventLog
	DB         *sql.DB

	WriterQueue *persistence.WriterQueue
	Results     *persistence.ResultLog

	Store      *settings.Store
	LoadReport settings.LoadReport
	Device     *device.Sim
	Timer      *device.IntervalTimer
	Machine    *mode.Machine
	Gate       *uplink.Gate
	Session    *atcmd.Session
	Dispatcher *atcmd.Dispatcher
	Sender     *Sender

	// Sleep drives restart delays and readiness waits; nil means real time.
	Sleep atcmd.Sleeper

	consoleStatusMu    sync.RWMutex
	consoleStatus      events.ConsoleStatus
	consoleStatusKnown bool
}

// Initialize loads the settings record and wires the control core around a simulated device.
// Storage overrides in cfg are applied to paths.
func Initialize(parent context.Context, paths Paths, cfg config.AppConfig) (*Runtime, error) {
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	paths = paths.WithStorage(cfg.Storage)

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()

		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting fieldtester runtime",
		"version", BuildVersion(),
		"build_date", BuildDateYMD(),
		"firmware_version", FirmwareVersion(),
	)

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b
	bus.Listen(ctx, b, rt.captureConsoleStatus, events.TopicConsoleStatus)
	rt.Events = NewEventLog(logMgr.Logger("events"))
	rt.Events.Listen(ctx, b)

	store := settings.NewStore(logMgr.Logger("settings"), settings.NewFileBackend(paths.SettingsFile), b)
	rec, report, err := store.Load()
	if err != nil {
		slog.Warn("settings record unreadable, running on defaults", "path", paths.SettingsFile, "error", err)
	}
	if report.SaveErr != nil {
		slog.Warn("repaired settings record not saved", "error", report.SaveErr)
	}
	rt.Store = store
	rt.LoadReport = report

	simCfg, err := cfg.Device.SimConfig()
	if err != nil {
		_ = rt.Close()

		return nil, err
	}
	sim := device.NewSim(logMgr.Logger("device"), simCfg)
	rt.Device = sim

	var results ResultRecorder
	var logs atcmd.LogStore
	if simCfg.HasSD {
		db, err := persistence.Open(ctx, paths.DBFile)
		if err != nil {
			_ = rt.Close()

			return nil, err
		}
		rt.DB = db

		writerQueue := persistence.NewWriterQueue(logMgr.Logger("persistence"), writerQueueCapacity)
		writerQueue.Start(ctx)
		rt.WriterQueue = writerQueue
		rt.Results = persistence.NewResultLog(logMgr.Logger("results"), db, writerQueue)
		results = rt.Results
		logs = rt.Results
	}

	rt.Timer = device.NewIntervalTimer()
	rt.Timer.Start(time.Duration(rec.SendIntervalMs) * time.Millisecond)
	rt.Machine = mode.New(logMgr.Logger("mode"), store, sim, b)
	if err := rt.Machine.Boot(); err != nil {
		slog.Warn("radio boot reconfiguration failed", "error", err)
	}
	rt.Gate = uplink.NewGate(logMgr.Logger("uplink"), sim, b)
	rt.Session = &atcmd.Session{}

	env := &atcmd.Env{
		Logger:    logMgr.Logger("atcmd"),
		Bus:       b,
		Store:     store,
		Machine:   rt.Machine,
		Radio:     sim,
		Timer:     rt.Timer,
		RTC:       sim,
		Modules:   sim,
		Readiness: sim,
		Logs:      logs,
		Session:   rt.Session,
		Sleep:     rt.sleep,
		Version:   FirmwareVersion(),
	}
	registry, err := atcmd.NewDefaultRegistry(env)
	if err != nil {
		_ = rt.Close()

		return nil, fmt.Errorf("build command registry: %w", err)
	}
	rt.Dispatcher = atcmd.NewDispatcher(logMgr.Logger("atcmd"), registry, b)
	rt.Sender = NewSender(logMgr.Logger("sender"), store, sim, sim, sim, rt.Gate, rt.Session, results, b)

	slog.Info("runtime ready",
		"test_mode", rec.TestMode.String(),
		"send_interval_ms", rec.SendIntervalMs,
		"network_mode", sim.Status().NetworkMode.String(),
		"region", simCfg.Region.String(),
	)

	return rt, nil
}

// CommandNames lists the registered command names.
func (r *Runtime) CommandNames() []string {
	cmds := r.Dispatcher.Registry().Commands()
	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name)
	}

	return names
}

// SaveConfig writes the effective host configuration to the config file.
func (r *Runtime) SaveConfig() error {
	r.mu.RLock()
	cfg := r.Config
	r.mu.RUnlock()

	return config.Save(r.Paths.ConfigFile, cfg)
}

func (r *Runtime) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}

	return atcmd.SleepContext(ctx, d)
}

func (r *Runtime) captureConsoleStatus(msg any) {
	status, ok := msg.(events.ConsoleStatus)
	if !ok {
		return
	}
	r.consoleStatusMu.Lock()
	r.consoleStatus = status
	r.consoleStatusKnown = true
	r.consoleStatusMu.Unlock()
}

// CurrentConsoleStatus returns the last console status seen on the bus.
func (r *Runtime) CurrentConsoleStatus() (events.ConsoleStatus, bool) {
	r.consoleStatusMu.RLock()
	defer r.consoleStatusMu.RUnlock()

	return r.consoleStatus, r.consoleStatusKnown
}

// flushResults waits for queued result writes so a restart or shutdown does not lose them.
func (r *Runtime) flushResults() {
	if r.WriterQueue == nil || r.Ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Ctx, shutdownFlushTimeout)
	defer cancel()
	if err := r.WriterQueue.Flush(ctx); err != nil {
		slog.Warn("flush result log", "error", err)
	}
}

// Close stops the runtime. Calls after the first are no-ops.
func (r *Runtime) Close() error {
	r.closeOnce.Do(r.close)

	return nil
}

func (r *Runtime) close() {
	if r.Timer != nil {
		r.Timer.Stop()
	}
	r.flushResults()
	if r.cancel != nil {
		r.cancel()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}
}
