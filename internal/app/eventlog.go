package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/events"
)

// eventLogTopics are the bus topics written to the event log. Console status has its own listener.
var eventLogTopics = []string{
	events.TopicCommand,
	events.TopicSettingsSaved,
	events.TopicStoreFailure,
	events.TopicIntegrityReset,
	events.TopicModeChange,
	events.TopicRestart,
	events.TopicUplinkSent,
	events.TopicUplinkOversize,
	events.TopicSetupMode,
}

// EventLog writes instrument events from the bus to the log. Integrity resets and
// store failures are warnings; routine traffic is logged at debug level.
type EventLog struct {
	logger *slog.Logger
}

func NewEventLog(logger *slog.Logger) *EventLog {
	return &EventLog{logger: logger}
}

// Listen subscribes before returning, so events published right after the call are logged.
func (l *EventLog) Listen(ctx context.Context, b bus.MessageBus) {
	bus.Listen(ctx, b, l.handle, eventLogTopics...)
}

func (l *EventLog) handle(msg any) {
	switch ev := msg.(type) {
	case events.IntegrityReset:
		l.logger.Warn("settings integrity reset", "cause", ev.Cause, "at", ev.At)
	case events.StoreFailure:
		l.logger.Error("settings store failure", "reason", ev.Reason, "error", ev.Err)
	case events.ModeChange:
		l.logger.Info("test mode change", "from", ev.From, "to", ev.To)
	case events.RestartNotice:
		l.logger.Info("device restart scheduled", "reason", ev.Reason, "delay", ev.Delay)
	case events.SettingsSaved:
		l.logger.Debug("settings saved", "reason", ev.Reason, "checksum", ev.Checksum)
	case events.SetupMode:
		l.logger.Info("setup mode", "active", ev.Active)
	case events.OversizeNotice:
		l.logger.Warn("uplink oversize", "size", ev.Size, "required_dr", ev.Required, "current_dr", ev.Current)
	case events.UplinkSent:
		l.logger.Debug("uplink sent", "size", ev.Size, "dr", ev.Datarate)
	case events.CommandHandled:
		l.logger.Debug("command", "name", ev.Name, "code", ev.Code, "duration", ev.Duration)
	default:
		l.logger.Debug("unhandled event", "type", fmt.Sprintf("%T", msg))
	}
}
