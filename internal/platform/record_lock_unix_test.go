//go:build unix

package platform

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLockRecord_ContentionAndRelease(t *testing.T) {
	record := filepath.Join(t.TempDir(), "settings.bin")

	lock1, err := LockRecord(record)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	if lock1.Path() != record+".lock" {
		t.Fatalf("unexpected lock path %q", lock1.Path())
	}

	lock2, err := LockRecord(record)
	if !errors.Is(err, ErrRecordLocked) {
		t.Fatalf("expected %v, got %v", ErrRecordLocked, err)
	}
	if lock2 != nil {
		t.Fatalf("expected second lock to be nil, got %#v", lock2)
	}

	if err := lock1.Release(); err != nil {
		t.Fatalf("release first lock: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}

	lock3, err := LockRecord(record)
	if err != nil {
		t.Fatalf("acquire lock after release: %v", err)
	}
	if err := lock3.Release(); err != nil {
		t.Fatalf("release third lock: %v", err)
	}
}

func TestLockRecord_DistinctRecordsDoNotContend(t *testing.T) {
	dir := t.TempDir()

	first, err := LockRecord(filepath.Join(dir, "a", "settings.bin"))
	if err != nil {
		t.Fatalf("acquire first record: %v", err)
	}
	defer func() { _ = first.Release() }()

	second, err := LockRecord(filepath.Join(dir, "b", "settings.bin"))
	if err != nil {
		t.Fatalf("acquire second record: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("release second record: %v", err)
	}
}

func TestLockRecord_ReleasedOnProcessExit(t *testing.T) {
	if os.Getenv("GO_WANT_RECORD_LOCK_HELPER") == "1" {
		runRecordLockHelperProcess()

		return
	}

	record := filepath.Join(t.TempDir(), "settings.bin")

	// #nosec G204 -- test launches the current test binary with fixed arguments.
	cmd := exec.Command(os.Args[0], "-test.run", "^TestLockRecord_ReleasedOnProcessExit$")
	cmd.Env = append(os.Environ(), "GO_WANT_RECORD_LOCK_HELPER=1", "RECORD_LOCK_HELPER_PATH="+record)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("create helper stdout pipe: %v", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start helper process: %v", err)
	}

	ready := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			ready <- scanner.Text()
		}
		close(ready)
	}()

	select {
	case line, ok := <-ready:
		if !ok || strings.TrimSpace(line) != "ready" {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			t.Fatalf("helper did not report readiness, line=%q, stderr=%q", line, stderr.String())
		}
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		t.Fatalf("timeout waiting for helper readiness, stderr=%q", stderr.String())
	}

	if _, err := LockRecord(record); !errors.Is(err, ErrRecordLocked) {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		t.Fatalf("expected contention while helper runs, err=%v", err)
	}

	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("kill helper process: %v", err)
	}
	_ = cmd.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		lock, err := LockRecord(record)
		if err == nil {
			if relErr := lock.Release(); relErr != nil {
				t.Fatalf("release lock after helper exit: %v", relErr)
			}

			return
		}
		if !errors.Is(err, ErrRecordLocked) {
			t.Fatalf("unexpected lock error after helper exit: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("lock remained held after helper process exit")
}

func runRecordLockHelperProcess() {
	lock, err := LockRecord(os.Getenv("RECORD_LOCK_HELPER_PATH"))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "acquire helper lock: %v\n", err)
		os.Exit(2)
	}
	defer func() {
		_ = lock.Release()
	}()

	_, _ = fmt.Fprintln(os.Stdout, "ready")
	select {}
}
