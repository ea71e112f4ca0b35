package atcmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/events"
)

// Dispatcher routes lines to handlers. It never validates arguments itself and
// refuses to re-enter while a handler is running.
type Dispatcher struct {
	logger   *slog.Logger
	registry *Registry
	bus      bus.MessageBus

	running sync.Mutex
}

func NewDispatcher(logger *slog.Logger, registry *Registry, b bus.MessageBus) *Dispatcher {
	if b == nil {
		b = bus.Nop{}
	}

	return &Dispatcher{logger: logger, registry: registry, bus: b}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch handles one console line and returns the handler's result verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) Result {
	if !d.running.TryLock() {
		d.logger.Warn("command rejected, another command is running", "line", line)
		return Status(Busy)
	}
	defer d.running.Unlock()

	inv := ParseLine(line)
	if inv.Prefix == "" && inv.Args == nil && strings.EqualFold(inv.Name, "AT") {
		// "AT" is a liveness check, "AT?" lists the commands.
		if inv.Help {
			return d.help()
		}
		return Status(OK)
	}

	cmd, ok := d.registry.Lookup(inv.Name)
	if !ok {
		d.logger.Debug("unknown command", "name", inv.Name)
		d.publish(inv, NotFound, 0)
		return Status(NotFound)
	}
	if inv.Help {
		return Reply(fmt.Sprintf("%s: %s", inv.Command(), cmd.Description))
	}

	started := time.Now()
	res := cmd.Handler(ctx, inv)
	if res.Code == "" {
		res.Code = OK
	}
	elapsed := time.Since(started)
	d.logger.Debug("command handled", "name", inv.Name, "args", inv.Args, "code", string(res.Code), "duration", elapsed)
	d.publish(inv, res.Code, elapsed)

	return res
}

func (d *Dispatcher) help() Result {
	cmds := d.registry.Commands()
	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		lines = append(lines, fmt.Sprintf("ATC+%s: %s", cmd.Name, cmd.Description))
	}

	return Reply(lines...)
}

func (d *Dispatcher) publish(inv Invocation, code Code, elapsed time.Duration) {
	d.bus.Publish(events.TopicCommand, events.CommandHandled{
		Name:     inv.Name,
		Args:     append([]string(nil), inv.Args...),
		Code:     string(code),
		Duration: elapsed,
	})
}

// Render formats a result the way it is written to the console: output lines first, then the code.
func Render(res Result) []string {
	out := make([]string, 0, len(res.Lines)+1)
	out = append(out, res.Lines...)
	out = append(out, string(res.Code))

	return out
}

// IsBlank reports lines the console should ignore.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
