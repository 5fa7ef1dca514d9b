//go:build darwin

package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const serviceLabel = "com.monitormqtt.listener"

// darwinManager implements Manager using launchd. UserMode installs a
// LaunchAgent (fires at that user's login); SystemMode installs a LaunchDaemon.
type darwinManager struct {
	mode      Mode
	plistPath string
}

// New returns a Manager that installs a per-user LaunchAgent.
func New() Manager { return NewWithMode(UserMode) }

// NewWithMode returns a Manager for the given install mode.
func NewWithMode(mode Mode) Manager {
	m := &darwinManager{mode: mode}
	if mode == UserMode {
		home, _ := os.UserHomeDir()
		m.plistPath = filepath.Join(home, "Library", "LaunchAgents", serviceLabel+".plist")
	} else {
		m.plistPath = filepath.Join("/Library/LaunchDaemons", serviceLabel+".plist")
	}
	return m
}

// ServiceName returns the launchd job label.
func (d *darwinManager) ServiceName() string { return serviceLabel }

// IsInstalled checks whether the plist file exists.
func (d *darwinManager) IsInstalled() (bool, error) {
	_, err := os.Stat(d.plistPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking plist file: %w", err)
	}
	return true, nil
}

// Install writes the plist and loads it. launchd keys jobs by label, so an
// overwrite replaces the prior registration.
func (d *darwinManager) Install(desc Descriptor) error {
	plist, err := buildPlist(serviceLabel, desc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(d.plistPath), 0755); err != nil {
		return d.classifyFSError("creating launchd directory", err)
	}

	// Unload any previous copy so launchctl re-reads the definition.
	_ = exec.Command("launchctl", "unload", d.plistPath).Run()

	if err := os.WriteFile(d.plistPath, plist, 0644); err != nil {
		return d.classifyFSError("writing plist", err)
	}
	if out, err := exec.Command("launchctl", "load", "-w", d.plistPath).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: loading plist: %s", ErrRegistration, strings.TrimSpace(string(out)))
	}
	return nil
}

// Uninstall unloads the job and removes the plist. Absence is not an error.
func (d *darwinManager) Uninstall() error {
	_ = exec.Command("launchctl", "unload", d.plistPath).Run()
	if err := os.Remove(d.plistPath); err != nil && !os.IsNotExist(err) {
		return d.classifyFSError("removing plist", err)
	}
	return nil
}

func (d *darwinManager) classifyFSError(action string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrPermission, action, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRegistration, action, err)
}
