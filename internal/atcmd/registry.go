package atcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/skobkin/fieldtester/internal/mode"
)

// Invocation is a parsed command line.
type Invocation struct {
	// Prefix is the canonical prefix the line used ("AT+", "ATC+" or empty).
	Prefix string
	Name   string
	Args   []string
	// Help is set for the "NAME?" form.
	Help bool
	Raw  string
}

// Command returns the command as echoed in query responses, e.g. "ATC+SENDINT".
func (i Invocation) Command() string {
	return i.Prefix + i.Name
}

// Result is what a handler hands back to the console.
type Result struct {
	Code  Code
	Lines []string
	// Restart, when set, asks the driver to restart the device after the response is written.
	Restart *mode.RestartRequest
}

func Status(code Code) Result {
	return Result{Code: code}
}

// Reply returns OK with the given output lines.
func Reply(lines ...string) Result {
	return Result{Code: OK, Lines: lines}
}

func Fail(err error) Result {
	return Result{Code: Of(err)}
}

type HandlerFunc func(ctx context.Context, inv Invocation) Result

type Command struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// Registry is an ordered, explicitly built set of commands.
type Registry struct {
	commands []Command
	byName   map[string]int
}

func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(commands))}
	for _, cmd := range commands {
		if err := r.add(cmd); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) add(cmd Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("invalid command definition %q", cmd.Name)
	}
	if _, exists := r.byName[cmd.Name]; exists {
		return fmt.Errorf("duplicate command %q", cmd.Name)
	}
	r.byName[cmd.Name] = len(r.commands)
	r.commands = append(r.commands, cmd)

	return nil
}

// Lookup matches the name exactly.
func (r *Registry) Lookup(name string) (Command, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Command{}, false
	}

	return r.commands[idx], true
}

func (r *Registry) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

var prefixes = [...]string{"ATC+", "AT+"}

// ParseLine splits a console line into prefix, name and ":"-separated arguments.
// Only the prefix is case-insensitive.
func ParseLine(line string) Invocation {
	raw := strings.TrimSpace(line)
	inv := Invocation{Raw: raw}
	rest := raw
	for _, prefix := range prefixes {
		if len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix) {
			inv.Prefix = prefix
			rest = rest[len(prefix):]
			break
		}
	}

	name, args, hasArgs := strings.Cut(rest, "=")
	if !hasArgs && strings.HasSuffix(name, "?") {
		inv.Help = true
		name = strings.TrimSuffix(name, "?")
	}
	inv.Name = name
	if hasArgs {
		inv.Args = strings.Split(args, ":")
	}

	return inv
}
