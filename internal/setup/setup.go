// Package setup implements the install wizard: it lays down the binary and
// config in their per-OS locations and registers the logon task that keeps
// the listener running.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/monitormqtt/agent/internal/autostart"
	"github.com/monitormqtt/agent/internal/config"
)

// Options holds the CLI flags passed to -install.
type Options struct {
	Mode     string // "system", "user", or "" (interactive)
	Broker   string // broker URL or "" (interactive)
	Username string // MQTT username or "" (interactive)
	Password string // MQTT password or "" (interactive)
}

// Run executes the setup wizard. If all Options are provided, runs
// non-interactively.
func Run(version string, opts Options) error {
	fmt.Printf("\nMonitorMQTT Listener Setup %s\n", version)
	fmt.Println(strings.Repeat("─", 34))
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	// 1. Determine install mode
	mode, err := resolveMode(opts.Mode, reader)
	if err != nil {
		return err
	}

	// 2. Check elevation for system mode
	if err := CheckElevation(mode); err != nil {
		return err
	}

	// 3. Resolve paths
	paths := ResolvePaths(mode)

	// 4. Get broker address and credentials
	broker, err := resolveValue(opts.Broker, "MQTT broker (host or tcp://host:port)", "", reader)
	if err != nil {
		return err
	}
	username, err := resolveValue(opts.Username, "MQTT username", "", reader)
	if err != nil {
		return err
	}
	password, err := resolveValue(opts.Password, "MQTT password", "", reader)
	if err != nil {
		return err
	}

	fmt.Println("\nInstalling...")

	// 5. Create directories
	for _, dir := range []string{paths.BinDir, paths.ConfigDir, paths.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		fmt.Printf("  ✓ Created %s\n", dir)
	}

	// 6. Copy binary
	if err := copyBinary(paths.BinPath); err != nil {
		return fmt.Errorf("copying binary: %w", err)
	}
	fmt.Printf("  ✓ Copied binary → %s\n", paths.BinPath)

	// 7. Write config
	cfg := config.DefaultConfig()
	cfg.Broker.URL = broker
	cfg.Broker.Username = username
	cfg.Broker.Password = password
	cfg.State.Path = filepath.Join(paths.DataDir, "state.json")
	cfg.Logging.File = filepath.Join(paths.DataDir, "monitor-listener.log")

	if err := config.WriteConfig(cfg, paths.ConfigPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("  ✓ Written config → %s\n", paths.ConfigPath)

	// 8. Register the logon task
	mgr := autostart.NewWithMode(autostartMode(mode))
	desc := autostart.DefaultDescriptor(paths.BinPath, paths.ConfigPath)
	if err := mgr.Install(desc); err != nil {
		return fmt.Errorf("registering task: %w", err)
	}
	fmt.Printf("  ✓ Registered logon task (%s)\n", mgr.ServiceName())

	fmt.Println("\nDone! The listener starts at the next logon (or is already running).")
	return nil
}

// Uninstall removes the task registration. Installed files are left in place.
func Uninstall(modeFlag string) error {
	mode := ModeUser
	if modeFlag != "" {
		parsed, err := ParseMode(modeFlag)
		if err != nil {
			return err
		}
		mode = parsed
	}
	if err := CheckElevation(mode); err != nil {
		return err
	}

	mgr := autostart.NewWithMode(autostartMode(mode))
	if err := mgr.Uninstall(); err != nil {
		return fmt.Errorf("removing task: %w", err)
	}
	fmt.Printf("Removed task registration (%s)\n", mgr.ServiceName())
	return nil
}

func autostartMode(mode InstallMode) autostart.Mode {
	if mode == ModeSystem {
		return autostart.SystemMode
	}
	return autostart.UserMode
}

// copyBinary copies the current executable to the target path. An own
// location that cannot be resolved is an ErrInvalidArgument; the wizard stops
// before any registration is attempted.
func copyBinary(dst string) error {
	src, err := autostart.ExecutablePath()
	if err != nil {
		return err
	}
	dst, err = filepath.Abs(filepath.Clean(dst))
	if err != nil {
		return err
	}
	// If source and destination are the same, skip
	if src == dst {
		fmt.Printf("  (binary already in place)\n")
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// resolveMode determines the install mode from flag or interactive prompt.
func resolveMode(flagValue string, reader *bufio.Reader) (InstallMode, error) {
	if flagValue != "" {
		return ParseMode(flagValue)
	}
	fmt.Println("Installation mode:")
	fmt.Println("  [1] System (per-machine) - requires root/admin")
	fmt.Println("  [2] User (per-user) - current user only")
	fmt.Print("> ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	switch choice {
	case "1":
		return ModeSystem, nil
	case "2", "":
		return ModeUser, nil
	default:
		return 0, fmt.Errorf("invalid choice %q", choice)
	}
}

// resolveValue gets a value from flag or interactive prompt.
func resolveValue(flagValue, prompt, defaultVal string, reader *bufio.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	val, _ := reader.ReadString('\n')
	val = strings.TrimSpace(val)
	if val == "" {
		return defaultVal, nil
	}
	return val, nil
}
