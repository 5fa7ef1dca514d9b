// Package autostart registers the listener as a persistent OS-level autostart
// entry that launches at user logon and is restarted by the OS supervisor after
// failures. Each supported OS implements the Manager interface: the Windows Task
// Scheduler (the primary target), systemd on Linux, and launchd on macOS.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TaskName is the fixed identifier under which the listener is registered
// in the OS task store. Registering again under this name replaces the
// previous entry, never duplicates it.
const TaskName = "MonitorMQTTListener"

// taskDescription is the human-readable description attached to the registration.
const taskDescription = "Starts the MonitorMQTT listener at logon and restarts it after failures"

// Registration failure taxonomy. Errors returned by Install/Uninstall wrap
// exactly one of these sentinels; callers classify with errors.Is.
var (
	// ErrPermission means the caller lacks the OS privilege to register tasks.
	ErrPermission = errors.New("insufficient privileges to register task")

	// ErrInvalidArgument means a descriptor field is malformed (e.g. an
	// unresolvable executable path). Nothing was submitted to the OS.
	ErrInvalidArgument = errors.New("invalid task descriptor")

	// ErrRegistration means the OS task subsystem rejected the request.
	ErrRegistration = errors.New("task registration rejected")
)

// Mode determines whether the task is installed system-wide or per-user.
type Mode int

const (
	SystemMode Mode = iota // System-wide (requires root/admin)
	UserMode               // Per-user, fires at that user's logon
)

// RestartPolicy bounds how the OS relaunches the task's process after failure.
type RestartPolicy struct {
	MaxRestarts int           // attempts before the OS gives up
	Interval    time.Duration // delay between attempts
}

// PowerSettings control task behavior on battery power.
type PowerSettings struct {
	AllowOnBattery bool // start even when on battery
	StopOnBattery  bool // stop when switching to battery
}

// Descriptor is the transient registration request submitted to the OS task
// store. It is constructed in memory, registered once, and discarded; the OS
// owns the persisted entry afterwards.
type Descriptor struct {
	Name             string
	Executable       string   // absolute path of the program to run
	Arguments        []string // argv passed to the executable
	WorkingDirectory string
	Description      string
	Restart          RestartPolicy
	Power            PowerSettings
}

// DefaultDescriptor builds the standard listener registration for the given
// binary and config file: logon trigger, up to 3 restarts one minute apart,
// allowed to run on battery.
func DefaultDescriptor(execPath, configPath string) Descriptor {
	return Descriptor{
		Name:             TaskName,
		Executable:       execPath,
		Arguments:        []string{"-config", configPath},
		WorkingDirectory: filepath.Dir(execPath),
		Description:      taskDescription,
		Restart: RestartPolicy{
			MaxRestarts: 3,
			Interval:    time.Minute,
		},
		Power: PowerSettings{
			AllowOnBattery: true,
			StopOnBattery:  false,
		},
	}
}

// Resolve builds the default descriptor from the currently running binary.
// The executable path is resolved to an absolute path with symlinks followed,
// so the registered action survives being launched through a link.
func Resolve(configPath string) (Descriptor, error) {
	exe, err := ExecutablePath()
	if err != nil {
		return Descriptor{}, err
	}
	return DefaultDescriptor(exe, configPath), nil
}

// ExecutablePath returns the absolute, symlink-resolved path of the running
// binary. Failures wrap ErrInvalidArgument: without a usable own location
// there is nothing valid to register.
func ExecutablePath() (string, error) {
	return resolveExecutable(os.Executable())
}

func resolveExecutable(exe string, err error) (string, error) {
	if err != nil {
		return "", fmt.Errorf("%w: cannot determine own location: %v", ErrInvalidArgument, err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("%w: resolving executable path: %v", ErrInvalidArgument, err)
	}
	exe, err = filepath.Abs(exe)
	if err != nil {
		return "", fmt.Errorf("%w: resolving executable path: %v", ErrInvalidArgument, err)
	}
	return exe, nil
}

// joinArgs renders an argv slice as a single command-line string, quoting
// elements that contain spaces. Used where the OS wants the arguments as one
// field (Task Scheduler XML, systemd ExecStart).
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// Validate checks the descriptor before anything is submitted to the OS.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty task name", ErrInvalidArgument)
	}
	if d.Executable == "" {
		return fmt.Errorf("%w: empty executable path", ErrInvalidArgument)
	}
	if !filepath.IsAbs(d.Executable) {
		return fmt.Errorf("%w: executable path %q is not absolute", ErrInvalidArgument, d.Executable)
	}
	if d.Restart.MaxRestarts < 0 {
		return fmt.Errorf("%w: negative restart count", ErrInvalidArgument)
	}
	if d.Restart.MaxRestarts > 0 && d.Restart.Interval <= 0 {
		return fmt.Errorf("%w: restart interval must be positive", ErrInvalidArgument)
	}
	return nil
}

// Manager provides platform-specific task registration. Install is an atomic
// forced replace: an existing registration under the same name is overwritten
// in a single OS call, never left half-written.
type Manager interface {
	IsInstalled() (bool, error)
	Install(d Descriptor) error
	Uninstall() error
	ServiceName() string
}
