package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backend is the non-volatile storage holding the encoded record at a fixed location.
// Read returns os.ErrNotExist (possibly wrapped) for storage that was never written.
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Erase() error
}

// FileBackend keeps the record in a single file, replaced atomically on every write.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: filepath.Clean(path)}
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Read() ([]byte, error) {
	// #nosec G304 -- path comes from resolved app paths or an explicit operator flag.
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	return raw, nil
}

func (b *FileBackend) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmpPath := b.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp settings: %w", err)
	}

	return nil
}

func (b *FileBackend) Erase() error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("erase settings file: %w", err)
	}

	return nil
}

// MemBackend is an in-memory flash page. FailWrites makes the next n writes fail.
type MemBackend struct {
	mu         sync.Mutex
	data       []byte
	written    bool
	writes     int
	failWrites int
}

func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

func (b *MemBackend) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.written {
		return nil, os.ErrNotExist
	}

	return append([]byte(nil), b.data...), nil
}

func (b *MemBackend) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if b.failWrites > 0 {
		b.failWrites--
		return errors.New("flash write failed")
	}
	b.data = append(b.data[:0], data...)
	b.written = true

	return nil
}

func (b *MemBackend) Erase() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.written = false

	return nil
}

// FailWrites makes the next n writes fail without touching the stored bytes.
func (b *MemBackend) FailWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites = n
}

// Writes returns the number of write attempts, failed ones included.
func (b *MemBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.writes
}

// Bytes returns a copy of the stored page.
func (b *MemBackend) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]byte(nil), b.data...)
}

// Poke overwrites the stored page, used to inject corruption.
func (b *MemBackend) Poke(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data[:0], data...)
	b.written = true
}
