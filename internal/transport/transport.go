package transport

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by line operations on a closed transport.
var ErrNotConnected = errors.New("transport is not connected")

// Transport carries the AT console: one command per line in, response lines out.
type Transport interface {
	Name() string
	Connect(ctx context.Context) error
	Close() error
	ReadLine(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error
}

type StatusTargetResolver interface {
	StatusTarget() string
}
