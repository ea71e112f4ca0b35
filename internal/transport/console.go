package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
)

const consolePrompt = "> "

// ConsoleTransport is an interactive terminal with line editing, completion and history.
type ConsoleTransport struct {
	historyPath string
	completions []string
	out         io.Writer

	mu    sync.Mutex
	state *liner.State
}

// NewConsoleTransport creates a console. An empty historyPath disables history persistence.
func NewConsoleTransport(historyPath string, completions []string) *ConsoleTransport {
	return &ConsoleTransport{
		historyPath: historyPath,
		completions: append([]string(nil), completions...),
		out:         os.Stdout,
	}
}

func (t *ConsoleTransport) Name() string {
	return "console"
}

func (t *ConsoleTransport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != nil {
		return nil
	}

	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		return completeCommand(t.completions, line)
	})
	if t.historyPath != "" {
		// #nosec G304 -- history path comes from resolved app paths.
		if f, err := os.Open(t.historyPath); err == nil {
			if _, err := state.ReadHistory(f); err != nil {
				logFor("console").Debug("read history failed", "error", err)
			}
			_ = f.Close()
		}
	}
	t.state = state

	return nil
}

func (t *ConsoleTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil
	}
	if t.historyPath != "" {
		if err := t.saveHistory(); err != nil {
			logFor("console").Warn("save history failed", "error", err)
		}
	}
	err := t.state.Close()
	t.state = nil

	return err
}

// ReadLine prompts for the next command. Ctrl-C and Ctrl-D both end the session with io.EOF.
func (t *ConsoleTransport) ReadLine(ctx context.Context) (string, error) {
	state, err := t.currentState()
	if err != nil {
		return "", err
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := state.Prompt(consolePrompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("read console: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		state.AppendHistory(line)

		return line, nil
	}
}

func (t *ConsoleTransport) WriteLine(_ context.Context, line string) error {
	if _, err := t.currentState(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(t.out, line); err != nil {
		return fmt.Errorf("write console: %w", err)
	}

	return nil
}

func (t *ConsoleTransport) currentState() (*liner.State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil, ErrNotConnected
	}

	return t.state, nil
}

func (t *ConsoleTransport) saveHistory() error {
	if err := os.MkdirAll(filepath.Dir(t.historyPath), 0o750); err != nil {
		return err
	}
	f, err := os.Create(t.historyPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = t.state.WriteHistory(f)

	return err
}

// completeCommand returns the candidates starting with line, ignoring case.
func completeCommand(candidates []string, line string) []string {
	prefix := strings.ToUpper(line)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToUpper(c), prefix) {
			out = append(out, c)
		}
	}

	return out
}
