//go:build linux

// Linux DDC/CI implementation. Writes go through the ddcutil command line
// tool, which handles the i2c plumbing and permissions model.
package monitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	vcpLuminance = "10"
	vcpContrast  = "12"
)

// linuxDisplay addresses one display by its ddcutil display number.
type linuxDisplay struct {
	ctx context.Context
	num int
}

func (d *linuxDisplay) ID() string { return fmt.Sprintf("display-%d", d.num) }

func (d *linuxDisplay) SetBrightness(raw int) error {
	return d.setVCP(vcpLuminance, raw)
}

func (d *linuxDisplay) SetContrast(raw int) error {
	return d.setVCP(vcpContrast, raw)
}

func (d *linuxDisplay) setVCP(code string, value int) error {
	out, err := exec.CommandContext(d.ctx, "ddcutil",
		"--display", strconv.Itoa(d.num),
		"setvcp", code, strconv.Itoa(value),
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ddcutil setvcp %s: %s", code, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *linuxDisplay) Close() error { return nil }

// displays enumerates DDC/CI capable displays via `ddcutil detect`.
func displays(ctx context.Context) ([]Display, error) {
	out, err := exec.CommandContext(ctx, "ddcutil", "detect", "--terse").Output()
	if err != nil {
		return nil, fmt.Errorf("ddcutil detect: %w (is ddcutil installed and i2c accessible?)", err)
	}

	var found []Display
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "Display ") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(line, "Display "))
		if err != nil {
			continue
		}
		found = append(found, &linuxDisplay{ctx: ctx, num: num})
	}
	return found, nil
}
