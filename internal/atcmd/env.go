package atcmd

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/device"
	"github.com/skobkin/fieldtester/internal/mode"
	"github.com/skobkin/fieldtester/internal/settings"
)

// LogStore holds the field-test result log.
type LogStore interface {
	Dump(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Session holds the console flags that are not persisted.
type Session struct {
	setupActive atomic.Bool
	productInfo atomic.Bool
	settingsUI  atomic.Bool
}

// SetupActive reports whether setup mode suspended periodic testing.
func (s *Session) SetupActive() bool { return s.setupActive.Load() }

func (s *Session) SetSetupActive(active bool) { s.setupActive.Store(active) }

// ProductInfoRequested is set once PRD_INFO was received.
func (s *Session) ProductInfoRequested() bool { return s.productInfo.Load() }

// SettingsUI is set while a log dump or erase owns the device.
func (s *Session) SettingsUI() bool { return s.settingsUI.Load() }

func (s *Session) SetSettingsUI(active bool) { s.settingsUI.Store(active) }

// Env is everything the handlers operate on.
type Env struct {
	Logger    *slog.Logger
	Bus       bus.MessageBus
	Store     *settings.Store
	Machine   *mode.Machine
	Radio     device.Radio
	Timer     device.SendTimer
	RTC       device.RTC
	Modules   device.Modules
	Readiness device.Readiness
	Logs      LogStore
	Session   *Session
	// Sleep drives the readiness wait; SleepContext when nil.
	Sleep Sleeper
	// Version is the firmware version reported by APPVER and STATUS, as x.y.z.
	Version string
}

func (e *Env) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep == nil {
		return SleepContext(ctx, d)
	}

	return e.Sleep(ctx, d)
}

func (e *Env) publish(topic string, msg any) {
	if e.Bus != nil {
		e.Bus.Publish(topic, msg)
	}
}
