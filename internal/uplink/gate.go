// Package uplink decides whether an outgoing packet fits the active datarate.
package uplink

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/datarate"
	"github.com/skobkin/fieldtester/internal/events"
)

var ErrOversize = errors.New("packet too large for datarate")

// OversizeError carries the numbers behind a rejected packet.
type OversizeError struct {
	Size     int
	Required uint8
	Current  uint8
}

func (e *OversizeError) Error() string {
	if e.Required == datarate.NoDatarate {
		return fmt.Sprintf("%d-byte packet fits no datarate in this region", e.Size)
	}

	return fmt.Sprintf("%d-byte packet requires DR%d, current is DR%d", e.Size, e.Required, e.Current)
}

func (e *OversizeError) Unwrap() error {
	return ErrOversize
}

// Lines is the user-visible notice for the rejection.
func (e *OversizeError) Lines() []string {
	return []string{"Packet too large!", fmt.Sprintf("Requires DR%d", e.Required)}
}

// DatarateSource reports the radio's regional plan and configured datarate.
type DatarateSource interface {
	Region() datarate.Region
	Datarate() uint8
}

type Gate struct {
	logger *slog.Logger
	radio  DatarateSource
	bus    bus.MessageBus
}

func NewGate(logger *slog.Logger, radio DatarateSource, b bus.MessageBus) *Gate {
	if b == nil {
		b = bus.Nop{}
	}

	return &Gate{logger: logger, radio: radio, bus: b}
}

// Check approves a packet of the given size or returns an *OversizeError.
// A rejected packet is meant to be dropped, never queued or split.
func (g *Gate) Check(size int) error {
	region := g.radio.Region()
	current := g.radio.Datarate()
	required := datarate.MinimumDatarate(region, payloadSize(size))
	g.logger.Debug("datarate check", "size", size, "region", region.String(), "required_dr", required, "current_dr", current)

	if datarate.IsTransmittable(current, payloadSize(size), region) {
		return nil
	}

	err := &OversizeError{Size: size, Required: required, Current: current}
	g.logger.Warn("packet dropped", "error", err)
	g.bus.Publish(events.TopicUplinkOversize, events.OversizeNotice{
		Size:     size,
		Required: required,
		Current:  current,
		Lines:    err.Lines(),
	})

	return err
}

func payloadSize(size int) uint16 {
	if size < 0 {
		return 0
	}
	if size > 0xFFFF {
		return 0xFFFF
	}

	return uint16(size)
}
