//go:build windows

package platform

import (
	"fmt"
	"os"
	"os/exec"
)

// restartProcess starts the replacement and returns; the caller exits right after.
func restartProcess(exe string, args, env []string) error {
	// #nosec G204 -- starts the current binary with its own arguments.
	cmd := exec.Command(exe, args...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", exe, err)
	}

	return nil
}
