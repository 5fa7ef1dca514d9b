//go:build !windows && !linux

// Stub display enumeration for platforms without a DDC/CI backend.
// The listener still runs and logs what it would apply.
package monitor

import "context"

func displays(ctx context.Context) ([]Display, error) {
	return nil, nil
}
