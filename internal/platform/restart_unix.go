//go:build unix

package platform

import (
	"fmt"
	"syscall"
)

func restartProcess(exe string, args, env []string) error {
	// #nosec G204 -- re-executes the current binary with its own arguments.
	if err := syscall.Exec(exe, restartArgv(exe, args), env); err != nil {
		return fmt.Errorf("exec %s: %w", exe, err)
	}

	return nil
}
