// Package mode implements the test mode state machine. Every accepted transition
// ends in a device restart; the machine only returns the request for it.
package mode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/events"
	"github.com/skobkin/fieldtester/internal/settings"
)

const (
	// RestartDelay is the settling time between the restart notice and the restart.
	RestartDelay = 5 * time.Second
	// RestartNotice is printed on the console before a mode change restart.
	RestartNotice = "+EVT:RESTART_FOR_MODE_CHANGE"
)

var (
	ErrInvalidMode    = errors.New("invalid test mode")
	ErrRestartPending = errors.New("restart pending")
)

// RestartRequest asks the outer driver to restart the device after Delay.
type RestartRequest struct {
	Reason string
	Delay  time.Duration
}

// Transition is the outcome of a mode change request.
type Transition struct {
	From    settings.Mode
	To      settings.Mode
	Changed bool
	Restart *RestartRequest
}

// Reconfigurer is the part of the radio a mode switch needs.
type Reconfigurer interface {
	EnableLinkCheck() error
	EnterP2P() error
	EnterFieldTester() error
}

type Machine struct {
	logger *slog.Logger
	store  *settings.Store
	radio  Reconfigurer
	bus    bus.MessageBus

	mu      sync.Mutex
	pending bool
}

func New(logger *slog.Logger, store *settings.Store, radio Reconfigurer, b bus.MessageBus) *Machine {
	if b == nil {
		b = bus.Nop{}
	}

	return &Machine{
		logger: logger,
		store:  store,
		radio:  radio,
		bus:    b,
	}
}

func (m *Machine) Current() settings.Mode {
	return m.store.Current().TestMode
}

// Pending reports whether a transition was accepted and the restart has not happened yet.
func (m *Machine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pending
}

// Request switches to the given mode. Requesting the current mode is a no-op.
// A failed write keeps the old mode in memory and returns an error wrapping settings.ErrStore.
func (m *Machine) Request(ctx context.Context, to settings.Mode) (Transition, error) {
	if err := ctx.Err(); err != nil {
		return Transition{}, err
	}
	if !to.Valid() {
		return Transition{}, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(to))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending {
		return Transition{}, ErrRestartPending
	}

	prev := m.store.Current()
	from := prev.TestMode
	if to == from {
		m.logger.Debug("mode unchanged", "mode", to.String())
		return Transition{From: from, To: to}, nil
	}

	if err := m.store.Update("mode_change", func(r *settings.Record) {
		r.TestMode = to
	}); err != nil {
		m.store.Restore(prev)
		m.logger.Error("persist test mode failed", "from", from.String(), "to", to.String(), "error", err)

		return Transition{}, fmt.Errorf("persist test mode: %w", err)
	}

	if err := m.reconfigure(to); err != nil {
		// The restart below brings the radio up in the new mode anyway.
		m.logger.Warn("radio reconfiguration failed", "mode", to.String(), "error", err)
	}

	m.pending = true
	restart := &RestartRequest{Reason: "mode_change", Delay: RestartDelay}
	m.logger.Info("test mode changed, restart scheduled", "from", from.String(), "to", to.String(), "delay", restart.Delay)
	m.bus.Publish(events.TopicModeChange, events.ModeChange{From: from.String(), To: to.String()})
	m.bus.Publish(events.TopicRestart, events.RestartNotice{Reason: restart.Reason, Delay: restart.Delay})

	return Transition{From: from, To: to, Changed: true, Restart: restart}, nil
}

// Boot brings the radio up in the network mode the stored test mode runs on.
func (m *Machine) Boot() error {
	to := m.Current()
	if err := m.reconfigure(to); err != nil {
		return fmt.Errorf("boot radio for %s: %w", to.String(), err)
	}

	return nil
}

func (m *Machine) reconfigure(to settings.Mode) error {
	switch to {
	case settings.ModeLinkCheck:
		return m.radio.EnableLinkCheck()
	case settings.ModeP2P, settings.ModeMeshtastic:
		return m.radio.EnterP2P()
	case settings.ModeFieldTester, settings.ModeFieldTesterV2:
		return m.radio.EnterFieldTester()
	default:
		return fmt.Errorf("%w: %d", ErrInvalidMode, uint8(to))
	}
}
