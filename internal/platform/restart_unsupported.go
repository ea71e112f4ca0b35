//go:build !unix && !windows

package platform

import (
	"fmt"
	"runtime"
)

func restartProcess(_ string, _, _ []string) error {
	return fmt.Errorf("%w on %s", ErrRestartUnsupported, runtime.GOOS)
}
