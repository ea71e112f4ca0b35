package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skobkin/fieldtester/internal/atcmd"
	"github.com/skobkin/fieldtester/internal/events"
	"github.com/skobkin/fieldtester/internal/mode"
	"github.com/skobkin/fieldtester/internal/transport"
	"github.com/skobkin/fieldtester/internal/uplink"
)

// ErrRestartRequested ends Serve when a command asked for a device restart.
var ErrRestartRequested = errors.New("restart requested")

type lineRead struct {
	line string
	err  error
}

// Serve runs the console on tr until it closes, ctx ends or a restart is requested.
// Command lines and send timer ticks are handled on this goroutine only.
func (r *Runtime) Serve(ctx context.Context, tr transport.Transport) error {
	logger := r.LogManager.Logger("console").With("transport", tr.Name())

	r.publishConsoleStatus(tr, events.ConsoleStateConnecting, nil)
	if err := tr.Connect(ctx); err != nil {
		r.publishConsoleStatus(tr, events.ConsoleStateDisconnected, err)

		return fmt.Errorf("connect console: %w", err)
	}
	r.publishConsoleStatus(tr, events.ConsoleStateConnected, nil)
	logger.Info("console connected")
	defer func() {
		_ = tr.Close()
		r.publishConsoleStatus(tr, events.ConsoleStateClosed, nil)
	}()

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines := readLines(readCtx, tr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.Timer.C():
			if err := r.tick(ctx, tr); err != nil {
				return err
			}
		case msg, ok := <-lines:
			if !ok {
				return nil
			}
			if msg.err != nil {
				if errors.Is(msg.err, io.EOF) {
					logger.Info("console closed by peer")

					return nil
				}
				if errors.Is(msg.err, transport.ErrLineTooLong) {
					logger.Warn("command line rejected", "error", msg.err)
					if err := r.write(ctx, tr, atcmd.Render(atcmd.Status(atcmd.ParamError))); err != nil {
						return err
					}

					continue
				}

				return fmt.Errorf("read console: %w", msg.err)
			}
			if atcmd.IsBlank(msg.line) {
				continue
			}

			res := r.Dispatcher.Dispatch(ctx, msg.line)
			if err := r.write(ctx, tr, atcmd.Render(res)); err != nil {
				return err
			}
			if res.Restart != nil {
				return r.restart(ctx, *res.Restart)
			}
		}
	}
}

func readLines(ctx context.Context, tr transport.Transport) <-chan lineRead {
	out := make(chan lineRead)
	go func() {
		defer close(out)
		for {
			line, err := tr.ReadLine(ctx)
			select {
			case out <- lineRead{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, transport.ErrLineTooLong) {
				return
			}
		}
	}()

	return out
}

// tick runs one periodic transmission. A dropped oversize packet shows its notice on the console.
func (r *Runtime) tick(ctx context.Context, tr transport.Transport) error {
	_, err := r.Sender.Tick(ctx)
	var oversize *uplink.OversizeError
	switch {
	case errors.As(err, &oversize):
		return r.write(ctx, tr, oversize.Lines())
	case err != nil:
		r.LogManager.Logger("console").Warn("periodic send failed", "error", err)
	}

	return nil
}

func (r *Runtime) restart(ctx context.Context, req mode.RestartRequest) error {
	r.LogManager.Logger("console").Info("restart requested", "reason", req.Reason, "delay", req.Delay)
	r.Timer.Stop()
	if req.Delay > 0 {
		if err := r.sleep(ctx, req.Delay); err != nil {
			return err
		}
	}
	r.flushResults()

	return fmt.Errorf("%w: %s", ErrRestartRequested, req.Reason)
}

func (r *Runtime) write(ctx context.Context, tr transport.Transport, lines []string) error {
	for _, line := range lines {
		if err := tr.WriteLine(ctx, line); err != nil {
			return fmt.Errorf("write console: %w", err)
		}
	}

	return nil
}

func (r *Runtime) publishConsoleStatus(tr transport.Transport, state events.ConsoleState, err error) {
	status := events.ConsoleStatus{
		State:         state,
		TransportName: tr.Name(),
		Timestamp:     time.Now(),
	}
	if resolver, ok := tr.(transport.StatusTargetResolver); ok {
		status.Target = resolver.StatusTarget()
	}
	if err != nil {
		status.Err = err.Error()
	}
	r.Bus.Publish(events.TopicConsoleStatus, status)
}
