package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultTCPPort        = 2000
	defaultTCPDialTimeout = 6 * time.Second
	tcpReadPollInterval   = 300 * time.Millisecond
)

// TCPTransport reaches the console through a serial-over-TCP bridge such as ser2net.
type TCPTransport struct {
	host string
	port int

	mu      sync.Mutex
	conn    net.Conn
	readMu  sync.Mutex
	lines   lineBuffer
	writeMu sync.Mutex
}

func NewTCPTransport(host string, port int) *TCPTransport {
	if port == 0 {
		port = defaultTCPPort
	}

	return &TCPTransport{host: host, port: port}
}

func (t *TCPTransport) Name() string {
	return "tcp"
}

func (t *TCPTransport) StatusTarget() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.host == "" {
		return ""
	}

	return t.target()
}

func (t *TCPTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

func (t *TCPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	logger := logFor("tcp", "target", t.target())
	if t.conn != nil {
		logger.Debug("connect skipped: already connected")

		return nil
	}
	if t.host == "" {
		logger.Warn("connect failed: host is empty")

		return errors.New("tcp host is empty")
	}

	dialer := net.Dialer{Timeout: defaultTCPDialTimeout}
	logger.Info("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", t.target())
	if err != nil {
		logger.Warn("connect failed", "error", err)

		return fmt.Errorf("dial tcp: %w", err)
	}
	t.conn = conn
	t.lines = lineBuffer{}
	logger.Info("connected", "remote", conn.RemoteAddr().String())

	return nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	logger := logFor("tcp", "target", t.target())
	if t.conn == nil {
		logger.Debug("close skipped: not connected")

		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		logger.Warn("close failed", "error", err)

		return err
	}
	logger.Info("closed")

	return nil
}

func (t *TCPTransport) ReadLine(ctx context.Context) (string, error) {
	conn, err := t.currentConn()
	if err != nil {
		return "", err
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()
	line, err := readLine(ctx, &t.lines, func(buf []byte) (int, error) {
		_ = conn.SetReadDeadline(time.Now().Add(tcpReadPollInterval))
		n, err := conn.Read(buf)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, nil
		}

		return n, err
	})
	if err != nil {
		logFor("tcp").Debug("read line failed", "error", err)

		return "", err
	}

	return line, nil
}

func (t *TCPTransport) WriteLine(ctx context.Context, line string) error {
	conn, err := t.currentConn()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := writeLine(ctx, conn, line); err != nil {
		logFor("tcp").Warn("write line failed", "error", err)

		return fmt.Errorf("write line: %w", err)
	}

	return nil
}

func (t *TCPTransport) target() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *TCPTransport) currentConn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotConnected
	}

	return t.conn, nil
}
