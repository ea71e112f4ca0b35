package platform

import (
	"errors"
	"fmt"
	"os"
)

// ErrRestartUnsupported indicates the platform cannot replace the running process.
var ErrRestartUnsupported = errors.New("process restart unsupported")

// Restart replaces the current process with a fresh copy of the same executable and arguments.
// On unix it does not return on success. On windows the replacement is started as a new process
// and the caller must exit right after a nil return.
func Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return restartProcess(exe, os.Args[1:], os.Environ())
}

func restartArgv(exe string, args []string) []string {
	argv := make([]string, 0, 1+len(args))
	argv = append(argv, exe)

	return append(argv, args...)
}
