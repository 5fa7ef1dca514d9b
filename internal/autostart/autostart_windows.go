//go:build windows

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// windowsManager implements Manager on top of the Windows Task Scheduler.
// The task definition goes through the XML form because the schtasks flag
// surface cannot express a restart-on-failure policy.
type windowsManager struct {
	mode Mode
}

// New returns a Manager that registers a per-user logon task.
func New() Manager { return NewWithMode(UserMode) }

// NewWithMode returns a Manager for the given install mode. Mode only affects
// where the definition file is staged; the trigger is the interactive user's
// logon either way.
func NewWithMode(mode Mode) Manager {
	return &windowsManager{mode: mode}
}

// ServiceName returns the scheduled task name.
func (w *windowsManager) ServiceName() string { return TaskName }

// IsInstalled checks whether a task is registered under the listener's name.
func (w *windowsManager) IsInstalled() (bool, error) {
	err := exec.Command("schtasks", "/Query", "/TN", TaskName).Run()
	if err != nil {
		// schtasks exits non-zero when the task does not exist.
		return false, nil
	}
	return true, nil
}

// Install registers the task, replacing any existing registration under the
// same name in a single forced-create call. The XML definition is staged in a
// temp file that exists only for the duration of the call.
func (w *windowsManager) Install(d Descriptor) error {
	xmlBody, err := buildTaskXML(d)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "task-*.xml")
	if err != nil {
		return fmt.Errorf("%w: staging task definition: %v", ErrRegistration, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(xmlBody); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing task definition: %v", ErrRegistration, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing task definition: %v", ErrRegistration, err)
	}

	out, err := exec.Command("schtasks", "/Create",
		"/TN", d.Name,
		"/XML", filepath.Clean(tmpPath),
		"/F",
	).CombinedOutput()
	if err != nil {
		return classifySchtasksError(string(out), err)
	}
	return nil
}

// Uninstall removes the task. A missing task is not an error.
func (w *windowsManager) Uninstall() error {
	out, err := exec.Command("schtasks", "/Delete", "/TN", TaskName, "/F").CombinedOutput()
	if err != nil {
		if isNotFoundOutput(string(out)) {
			return nil
		}
		return classifySchtasksError(string(out), err)
	}
	return nil
}
