// Package hostinfo gathers a one-line host summary for the startup log.
// Uses gopsutil for cross-platform OS and uptime information.
package hostinfo

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// Summary describes the host the listener runs on.
type Summary struct {
	OS       string
	Platform string
	Version  string
	Uptime   time.Duration
}

// Collect gathers the host summary. Partial failures degrade to empty fields
// rather than erroring; this is log decoration, not a data path.
func Collect(ctx context.Context) Summary {
	var s Summary
	if info, err := host.InfoWithContext(ctx); err == nil {
		s.OS = info.OS
		s.Platform = info.Platform
		s.Version = info.PlatformVersion
		s.Uptime = time.Duration(info.Uptime) * time.Second
	}
	return s
}
