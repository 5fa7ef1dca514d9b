package setup

import "fmt"

// InstallMode selects between a machine-wide and a per-user installation.
// It steers the install paths, the elevation check, and whether the logon
// task lands in the system or the user task store.
type InstallMode int

const (
	ModeSystem InstallMode = iota
	ModeUser
)

func (m InstallMode) String() string {
	switch m {
	case ModeSystem:
		return "system"
	case ModeUser:
		return "user"
	default:
		return "unknown"
	}
}

// ParseMode maps the -mode flag value onto an InstallMode.
func ParseMode(s string) (InstallMode, error) {
	switch s {
	case "system":
		return ModeSystem, nil
	case "user":
		return ModeUser, nil
	default:
		return 0, fmt.Errorf("unknown install mode %q, use \"system\" or \"user\"", s)
	}
}

// Paths are the resolved install locations for the chosen mode.
type Paths struct {
	BinDir     string
	BinPath    string
	ConfigDir  string
	ConfigPath string
	DataDir    string
}
