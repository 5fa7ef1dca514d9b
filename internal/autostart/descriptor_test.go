package autostart

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultDescriptor(t *testing.T) {
	exe := absPath("monitor-listener")
	cfg := absPath("config.yaml")
	d := DefaultDescriptor(exe, cfg)

	if d.Name != TaskName {
		t.Errorf("name = %q, want %q", d.Name, TaskName)
	}
	if d.Executable != exe {
		t.Errorf("executable = %q, want %q", d.Executable, exe)
	}
	if len(d.Arguments) != 2 || d.Arguments[0] != "-config" || d.Arguments[1] != cfg {
		t.Errorf("arguments = %q, want [-config %s]", d.Arguments, cfg)
	}
	if d.WorkingDirectory != filepath.Dir(exe) {
		t.Errorf("working directory = %q, want %q", d.WorkingDirectory, filepath.Dir(exe))
	}
	if d.Restart.MaxRestarts != 3 || d.Restart.Interval != time.Minute {
		t.Errorf("restart policy = %+v, want 3x/1m", d.Restart)
	}
	if !d.Power.AllowOnBattery || d.Power.StopOnBattery {
		t.Errorf("power settings = %+v", d.Power)
	}
}

func TestResolve_UsesOwnBinary(t *testing.T) {
	d, err := Resolve(absPath("config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(d.Executable) {
		t.Errorf("executable %q is not absolute", d.Executable)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("resolved descriptor does not validate: %v", err)
	}
}

func TestResolveExecutable_Failures(t *testing.T) {
	tests := []struct {
		name string
		exe  string
		err  error
	}{
		{"own location unknown", "", errors.New("no such process entry")},
		{"dangling path", filepath.Join("no", "such", "binary"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveExecutable(tt.exe, tt.err)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"-config", "/etc/m/config.yaml"}, "-config /etc/m/config.yaml"},
		{"spaced path quoted", []string{"-config", "/Users/a b/config.yaml"}, `-config "/Users/a b/config.yaml"`},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinArgs(tt.args); got != tt.want {
				t.Errorf("joinArgs(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
