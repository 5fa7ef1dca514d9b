//go:build linux

package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const serviceName = "monitor-mqtt-listener"

// unitTemplate is the systemd unit written during installation. Placeholders
// are replaced with descriptor fields. Restart supervision mirrors the
// scheduled-task policy: bounded attempts with a fixed delay between them.
const unitTemplate = `[Unit]
Description={description}
After=network-online.target
Wants=network-online.target
StartLimitIntervalSec=600
StartLimitBurst={maxRestarts}

[Service]
Type=simple
ExecStart={execPath} {args}
WorkingDirectory={workDir}
Restart=on-failure
RestartSec={restartSec}
StandardOutput=journal
StandardError=journal
SyslogIdentifier=monitor-mqtt-listener

[Install]
WantedBy={wantedBy}
`

// linuxManager implements Manager using systemd. UserMode writes a user unit
// under ~/.config/systemd/user and drives `systemctl --user`; SystemMode
// writes under /etc/systemd/system.
type linuxManager struct {
	mode     Mode
	unitPath string
}

// New returns a Manager that installs a per-user systemd unit.
func New() Manager { return NewWithMode(UserMode) }

// NewWithMode returns a Manager for the given install mode.
func NewWithMode(mode Mode) Manager {
	m := &linuxManager{mode: mode}
	if mode == UserMode {
		home, _ := os.UserHomeDir()
		m.unitPath = filepath.Join(home, ".config", "systemd", "user", serviceName+".service")
	} else {
		m.unitPath = filepath.Join("/etc/systemd/system", serviceName+".service")
	}
	return m
}

// ServiceName returns the systemd unit name.
func (l *linuxManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the unit file, reloads systemd, enables and starts the unit.
// Overwriting an existing unit is the forced-replace path; systemd keys units
// by name, so no duplicate can result.
func (l *linuxManager) Install(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	unit := strings.NewReplacer(
		"{description}", d.Description,
		"{execPath}", d.Executable,
		"{args}", joinArgs(d.Arguments),
		"{workDir}", d.WorkingDirectory,
		"{restartSec}", strconv.Itoa(int(d.Restart.Interval.Seconds())),
		"{maxRestarts}", strconv.Itoa(d.Restart.MaxRestarts),
		"{wantedBy}", l.wantedBy(),
	).Replace(unitTemplate)

	if err := os.MkdirAll(filepath.Dir(l.unitPath), 0755); err != nil {
		return l.classifyFSError("creating unit directory", err)
	}
	if err := os.WriteFile(l.unitPath, []byte(unit), 0644); err != nil {
		return l.classifyFSError("writing unit file", err)
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"start", serviceName},
	} {
		if err := l.runSystemctl(args...); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall stops, disables, and removes the unit. Stop/disable are
// best-effort; an already-absent unit is not an error.
func (l *linuxManager) Uninstall() error {
	_ = l.runSystemctl("stop", serviceName)
	_ = l.runSystemctl("disable", serviceName)

	if err := os.Remove(l.unitPath); err != nil && !os.IsNotExist(err) {
		return l.classifyFSError("removing unit file", err)
	}

	_ = l.runSystemctl("daemon-reload")
	return nil
}

// runSystemctl invokes systemctl, adding --user in per-user mode.
func (l *linuxManager) runSystemctl(args ...string) error {
	argv := args
	if l.mode == UserMode {
		argv = append([]string{"--user"}, args...)
	}
	if out, err := exec.Command("systemctl", argv...).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: running systemctl %s: %s", ErrRegistration,
			strings.Join(argv, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

func (l *linuxManager) wantedBy() string {
	if l.mode == UserMode {
		return "default.target"
	}
	return "multi-user.target"
}

func (l *linuxManager) classifyFSError(action string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrPermission, action, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRegistration, action, err)
}
