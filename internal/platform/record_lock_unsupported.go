//go:build !unix && !windows

package platform

import (
	"fmt"
	"runtime"
)

func lockFile(_ string) (RecordLock, error) {
	return nil, fmt.Errorf("%w on %s", ErrRecordLockUnsupported, runtime.GOOS)
}
