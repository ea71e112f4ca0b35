package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRecordLocked means another process already owns the settings record.
var ErrRecordLocked = errors.New("settings record locked by another process")

// ErrRecordLockUnsupported means the platform has no advisory file locking.
var ErrRecordLockUnsupported = errors.New("record lock unsupported")

const lockSuffix = ".lock"

// RecordLock is an exclusive claim on a settings record. The OS drops it when the
// process dies, so a crash never leaves the record locked.
type RecordLock interface {
	Path() string
	Release() error
}

// LockRecord claims the record at recordPath through a sibling lock file.
// Two processes writing one record would overwrite each other's checksum.
func LockRecord(recordPath string) (RecordLock, error) {
	path, err := lockPath(recordPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	return lockFile(path)
}

func lockPath(recordPath string) (string, error) {
	recordPath = strings.TrimSpace(recordPath)
	if recordPath == "" {
		return "", errors.New("record path is empty")
	}
	abs, err := filepath.Abs(recordPath)
	if err != nil {
		return "", fmt.Errorf("resolve record path: %w", err)
	}

	return abs + lockSuffix, nil
}

type fileLock struct {
	path string
	file *os.File
	// unlock releases the OS lock; the file is closed afterwards.
	unlock func(*os.File) error
}

func (l *fileLock) Path() string {
	return l.path
}

func (l *fileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	unlockErr := l.unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", l.path, closeErr)
	}

	return nil
}
