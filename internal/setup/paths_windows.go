//go:build windows

package setup

import (
	"os"
	"path/filepath"
)

func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		local := os.Getenv("LOCALAPPDATA")
		base := filepath.Join(local, "MonitorMQTT")
		return Paths{
			BinDir:     base,
			BinPath:    filepath.Join(base, "monitor-listener.exe"),
			ConfigDir:  base,
			ConfigPath: filepath.Join(base, "config.yaml"),
			DataDir:    base,
		}
	}
	programData := os.Getenv("ProgramData")
	programFiles := os.Getenv("ProgramFiles")
	return Paths{
		BinDir:     filepath.Join(programFiles, "MonitorMQTT"),
		BinPath:    filepath.Join(programFiles, "MonitorMQTT", "monitor-listener.exe"),
		ConfigDir:  filepath.Join(programData, "MonitorMQTT"),
		ConfigPath: filepath.Join(programData, "MonitorMQTT", "config.yaml"),
		DataDir:    filepath.Join(programData, "MonitorMQTT"),
	}
}
