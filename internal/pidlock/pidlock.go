// Package pidlock provides a pid-file based single-instance guard. The Task
// Scheduler's restart supervision can race a still-exiting process; the lock
// keeps a second listener from stacking on top of a live one, while stale
// files left by crashes are detected and reclaimed.
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrAlreadyRunning means another live instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Acquire takes the lock at path, writing the current pid. It returns a
// release function that removes the file. A lock file whose pid no longer
// maps to a live process is treated as stale and overwritten.
func Acquire(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	if pid, ok := readPid(path); ok {
		alive, err := process.PidExists(int32(pid))
		if err == nil && alive && pid != os.Getpid() {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		// Stale lock from a crashed instance; reclaim it.
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0640); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	release := func() {
		// Only remove the file if it is still ours.
		if pid, ok := readPid(path); ok && pid == os.Getpid() {
			os.Remove(path)
		}
	}
	return release, nil
}

// readPid parses the pid stored at path. Unreadable or garbage files count
// as absent.
func readPid(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
