package bus

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/cskr/pubsub"
)

type Subscription chan any

// MessageBus is the in-process event bus shared by the core components.
type MessageBus interface {
	Publish(topic string, msg any)
	Subscribe(topics ...string) Subscription
	Unsubscribe(ch Subscription, topics ...string)
	Close()
}

type PubSubBus struct {
	ps     *pubsub.PubSub
	logger *slog.Logger
}

func New(logger *slog.Logger) *PubSubBus {
	return &PubSubBus{
		ps:     pubsub.New(64),
		logger: logger,
	}
}

func (b *PubSubBus) Publish(topic string, msg any) {
	b.logger.Debug("publish", "topic", topic, "payload_type", payloadType(msg))
	b.ps.Pub(msg, topic)
}

func (b *PubSubBus) Subscribe(topics ...string) Subscription {
	ch := b.ps.Sub(topics...)
	b.logger.Debug("subscribe", "topics", topics)

	return ch
}

func (b *PubSubBus) Unsubscribe(ch Subscription, topics ...string) {
	if len(topics) == 0 {
		b.ps.Unsub(ch)
		b.logger.Debug("unsubscribe", "mode", "all")

		return
	}
	b.ps.Unsub(ch, topics...)
	b.logger.Debug("unsubscribe", "topics", topics)
}

func (b *PubSubBus) Close() {
	b.ps.Shutdown()
}

// Listen hands every message on topics to handle until ctx ends. The subscription keeps
// draining after that, until the bus closes, so a slow or finished listener never stalls
// publishers.
func Listen(ctx context.Context, b MessageBus, handle func(msg any), topics ...string) {
	sub := b.Subscribe(topics...)
	go func() {
		for msg := range sub {
			if ctx.Err() == nil {
				handle(msg)
			}
		}
	}()
}

// Nop discards every event. Components use it when constructed without a bus.
type Nop struct{}

func (Nop) Publish(string, any) {}
func (Nop) Subscribe(...string) Subscription { return make(Subscription) }
func (Nop) Unsubscribe(Subscription, ...string) {}
func (Nop) Close() {}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}

	return reflect.TypeOf(v).String()
}
