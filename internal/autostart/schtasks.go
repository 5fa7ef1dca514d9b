package autostart

import (
	"fmt"
	"strings"
)

// classifySchtasksError maps schtasks output onto the registration taxonomy.
// Kept free of build tags so the mapping can be verified on any platform.
func classifySchtasksError(out string, err error) error {
	msg := strings.TrimSpace(out)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "access is denied") || strings.Contains(lower, "denied"):
		return fmt.Errorf("%w: schtasks: %s", ErrPermission, msg)
	case strings.Contains(lower, "the task xml") || strings.Contains(lower, "invalid"):
		return fmt.Errorf("%w: schtasks: %s", ErrInvalidArgument, msg)
	default:
		return fmt.Errorf("%w: schtasks: %s: %v", ErrRegistration, msg, err)
	}
}

// isNotFoundOutput reports whether schtasks failed because the task does not
// exist, which Uninstall treats as success.
func isNotFoundOutput(out string) bool {
	return strings.Contains(strings.ToLower(out), "cannot find the file")
}
