//go:build linux || darwin

package setup

import (
	"os"
	"path/filepath"
)

func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		home, _ := os.UserHomeDir()
		return Paths{
			BinDir:     filepath.Join(home, ".local", "bin"),
			BinPath:    filepath.Join(home, ".local", "bin", "monitor-listener"),
			ConfigDir:  filepath.Join(home, ".config", "monitormqtt"),
			ConfigPath: filepath.Join(home, ".config", "monitormqtt", "config.yaml"),
			DataDir:    filepath.Join(home, ".local", "share", "monitormqtt"),
		}
	}
	return Paths{
		BinDir:     "/usr/local/bin",
		BinPath:    "/usr/local/bin/monitor-listener",
		ConfigDir:  "/etc/monitormqtt",
		ConfigPath: "/etc/monitormqtt/config.yaml",
		DataDir:    "/var/lib/monitormqtt",
	}
}
