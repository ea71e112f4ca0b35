package atcmd

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/device"
	"github.com/skobkin/fieldtester/internal/events"
)

func TestDispatcher_NotFound(t *testing.T) {
	h := newHarness(t, device.DefaultSimConfig())

	h.expect(t, "ATC+NOPE=?", NotFound)
	h.expect(t, "ATC+sendint=?", NotFound)
	h.expect(t, "ATC+", NotFound)
}

func TestDispatcher_PrefixForms(t *testing.T) {
	h := newHarness(t, device.DefaultSimConfig())

	h.expect(t, "AT+SENDINT=?", OK, "AT+SENDINT=30")
	h.expect(t, "atc+SENDINT=?", OK, "ATC+SENDINT=30")
	h.expect(t, "SENDINT=?", OK, "SENDINT=30")
	h.expect(t, "AT", OK)
}

func TestDispatcher_Help(t *testing.T) {
	h := newHarness(t, device.DefaultSimConfig())

	res := h.expect(t, "ATC+SENDINT?", OK)
	if len(res.Lines) != 1 || !strings.HasPrefix(res.Lines[0], "ATC+SENDINT: Set/Get the interval") {
		t.Fatalf("unexpected help %v", res.Lines)
	}

	res = h.expect(t, "AT?", OK)
	if len(res.Lines) != len(h.disp.Registry().Commands()) {
		t.Fatalf("expected one help line per command, got %d", len(res.Lines))
	}
}

func TestDispatcher_RejectsReentry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var disp *Dispatcher
	var inner Result

	registry, err := NewRegistry(
		Command{Name: "OUTER", Handler: func(ctx context.Context, _ Invocation) Result {
			inner = disp.Dispatch(ctx, "ATC+INNER")
			return Status(OK)
		}},
		Command{Name: "INNER", Handler: func(context.Context, Invocation) Result {
			t.Fatalf("inner handler must not run")
			return Status(OK)
		}},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	disp = NewDispatcher(logger, registry, nil)

	if res := disp.Dispatch(context.Background(), "ATC+OUTER"); res.Code != OK {
		t.Fatalf("expected OK, got %s", res.Code)
	}
	if inner.Code != Busy {
		t.Fatalf("expected nested dispatch to be rejected with Busy, got %s", inner.Code)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	handler := func(context.Context, Invocation) Result { return Status(OK) }
	if _, err := NewRegistry(Command{Name: "A", Handler: handler}, Command{Name: "A", Handler: handler}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := NewRegistry(Command{Name: "B"}); err == nil {
		t.Fatalf("expected error for missing handler")
	}
}

func TestDispatcher_PublishesHandledCommands(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)
	defer b.Close()
	sub := b.Subscribe(events.TopicCommand)

	registry, err := NewRegistry(Command{Name: "PING", Handler: func(context.Context, Invocation) Result {
		return Reply("PONG")
	}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	disp := NewDispatcher(logger, registry, b)
	disp.Dispatch(context.Background(), "ATC+PING=a:b")

	msg := <-sub
	handled, ok := msg.(events.CommandHandled)
	if !ok || handled.Name != "PING" || handled.Code != "OK" || len(handled.Args) != 2 {
		t.Fatalf("unexpected event %#v", msg)
	}
}

func TestRender(t *testing.T) {
	got := Render(Reply("A=1"))
	if len(got) != 2 || got[0] != "A=1" || got[1] != "OK" {
		t.Fatalf("unexpected render %v", got)
	}
}
