package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/device"
	"github.com/skobkin/fieldtester/internal/events"
	"github.com/skobkin/fieldtester/internal/persistence"
	"github.com/skobkin/fieldtester/internal/settings"
)

// ResultRecorder stores completed test cycles.
type ResultRecorder interface {
	Record(res persistence.Result)
}

// UplinkGate approves packet sizes against the current datarate.
type UplinkGate interface {
	Check(size int) error
}

// SuspendState tells the sender when periodic testing is suspended.
type SuspendState interface {
	SetupActive() bool
	SettingsUI() bool
}

// Sender performs one periodic test transmission per send timer tick.
type Sender struct {
	logger  *slog.Logger
	store   *settings.Store
	radio   device.Radio
	clock   device.RTC
	locator device.Locator
	gate    UplinkGate
	session SuspendState
	results ResultRecorder
	bus     bus.MessageBus
}

func NewSender(
	logger *slog.Logger,
	store *settings.Store,
	radio device.Radio,
	clock device.RTC,
	locator device.Locator,
	gate UplinkGate,
	session SuspendState,
	results ResultRecorder,
	b bus.MessageBus,
) *Sender {
	if b == nil {
		b = bus.Nop{}
	}

	return &Sender{
		logger:  logger,
		store:   store,
		radio:   radio,
		clock:   clock,
		locator: locator,
		gate:    gate,
		session: session,
		results: results,
		bus:     b,
	}
}

// Tick sends the custom packet unless testing is suspended. Only LoRaWAN uplinks are
// subject to the datarate gate; a rejected packet is dropped and the error returned.
func (s *Sender) Tick(ctx context.Context) (bool, error) {
	if s.session.SetupActive() || s.session.SettingsUI() {
		s.logger.Debug("send skipped: testing suspended")

		return false, nil
	}

	rec := s.store.Current()
	payload := rec.CustomPacket
	if len(payload) == 0 {
		payload = settings.DefaultCustomPacket()
	}

	status := s.radio.Status()
	if status.NetworkMode == device.NetworkLoRaWAN {
		if err := s.gate.Check(len(payload)); err != nil {
			return false, err
		}
	}
	if err := s.radio.Send(ctx, payload); err != nil {
		s.logger.Warn("send failed", "mode", rec.TestMode.String(), "error", err)

		return false, fmt.Errorf("send test packet: %w", err)
	}

	dr := s.radio.Datarate()
	s.logger.Debug("test packet sent", "mode", rec.TestMode.String(), "size", len(payload), "dr", dr)
	s.bus.Publish(events.TopicUplinkSent, events.UplinkSent{Size: len(payload), Datarate: dr})
	if s.results != nil {
		s.results.Record(s.result(rec, dr))
	}

	return true, nil
}

// result combines the last link answer with the position, when location is enabled.
func (s *Sender) result(rec settings.Record, dr uint8) persistence.Result {
	res := persistence.Result{
		At:         s.clock.Now(),
		Mode:       uint8(rec.TestMode),
		TxDatarate: int(dr),
	}
	if link, ok := s.radio.LastLink(); ok {
		res.Gateways = link.Gateways
		res.MinRSSI = link.MinRSSI
		res.MaxRSSI = link.MaxRSSI
		res.MaxSNR = link.MaxSNR
		res.RxRSSI = link.RxRSSI
		res.RxSNR = link.RxSNR
		res.MinDistance = link.MinDistance
		res.MaxDistance = link.MaxDistance
		res.DemodMargin = link.DemodMargin
		res.Lost = link.Lost
	}
	if rec.LocationEnabled && s.locator != nil {
		if pos, ok := s.locator.Position(); ok {
			res.Lat = pos.Lat
			res.Lng = pos.Lng
		}
	}

	return res
}
