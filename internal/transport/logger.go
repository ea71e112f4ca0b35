package transport

import "log/slog"

// logFor returns the logger of one console transport kind. It reads slog.Default on every
// call so it follows reconfiguration by the logging manager.
func logFor(kind string, attrs ...any) *slog.Logger {
	base := make([]any, 0, 4+len(attrs))
	base = append(base, "component", "console_transport", "kind", kind)

	return slog.Default().With(append(base, attrs...)...)
}
