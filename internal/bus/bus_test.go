package bus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestListen_DeliversUntilCanceled(t *testing.T) {
	b := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan any, 4)
	Listen(ctx, b, func(msg any) { got <- msg }, "a", "b")

	b.Publish("a", 1)
	b.Publish("b", 2)
	b.Publish("c", 3)
	for _, want := range []int{1, 2} {
		select {
		case msg := <-got:
			if msg != want {
				t.Fatalf("expected %d, got %v", want, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %d", want)
		}
	}

	cancel()
	for i := 0; i < 100; i++ {
		b.Publish("a", i)
	}
	select {
	case msg := <-got:
		t.Fatalf("unexpected delivery after cancel: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNop(t *testing.T) {
	var b MessageBus = Nop{}
	b.Publish("a", 1)
	sub := b.Subscribe("a")
	select {
	case msg := <-sub:
		t.Fatalf("nop bus delivered %v", msg)
	default:
	}
	b.Unsubscribe(sub)
	b.Close()
}
