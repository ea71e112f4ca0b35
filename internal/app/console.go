package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/skobkin/fieldtester/internal/config"
	"github.com/skobkin/fieldtester/internal/transport"
)

// NewConsoleTransport builds the transport selected by the connection config. stdin and
// stdout back the stdio console; completions feed the interactive one.
func NewConsoleTransport(cfg config.ConnectionConfig, paths Paths, completions []string, stdin io.Reader, stdout io.Writer) (transport.Transport, error) {
	switch cfg.Console {
	case config.ConsoleInteractive:
		return transport.NewConsoleTransport(paths.HistoryFile, completions), nil
	case config.ConsoleStdio:
		return transport.NewStreamTransport("stdio", stdin, stdout), nil
	case config.ConsoleSerial:
		return transport.NewSerialTransport(cfg.SerialPort, cfg.SerialBaud), nil
	case config.ConsoleTCP:
		return transport.NewTCPTransport(cfg.Host, cfg.Port), nil
	default:
		return nil, fmt.Errorf("unknown console: %q", cfg.Console)
	}
}

// ConsoleTarget describes where the console is attached, for logs and status events.
func ConsoleTarget(cfg config.ConnectionConfig) string {
	switch cfg.Console {
	case config.ConsoleSerial:
		return strings.TrimSpace(cfg.SerialPort)
	case config.ConsoleTCP:
		return strings.TrimSpace(cfg.Host)
	case config.ConsoleInteractive, config.ConsoleStdio:
		return string(cfg.Console)
	default:
		return ""
	}
}

// CommandCompletions lists the command spellings offered by the interactive console.
func CommandCompletions(names []string) []string {
	out := make([]string, 0, len(names)+2)
	out = append(out, "AT", "AT?")
	for _, name := range names {
		out = append(out, "ATC+"+name)
	}

	return out
}
