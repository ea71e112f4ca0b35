//go:build unix

package platform

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

func lockFile(path string) (RecordLock, error) {
	// #nosec G304 -- path is derived from the resolved settings record path.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("%w: %s", ErrRecordLocked, path)
		}

		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &fileLock{path: path, file: file, unlock: unlockFlock}, nil
}

func unlockFlock(file *os.File) error {
	err := syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	if errors.Is(err, syscall.EBADF) {
		return nil
	}

	return err
}
