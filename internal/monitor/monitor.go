// Package monitor applies brightness and contrast levels to attached displays
// over DDC/CI. A 0-100 percentage from the broker is mapped onto each control's
// monitor-specific value range before being written.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// ValueRange maps a 0-100 percentage onto a monitor-specific value range.
// Offset shifts the mapped value before clamping.
type ValueRange struct {
	Min    int
	Max    int
	Offset int
}

// FromPercent converts a percentage to the raw monitor value, clamped to
// [Min, Max]. Rounds half to even so the mapping matches the deployed
// calibration exactly.
func (r ValueRange) FromPercent(pct int) int {
	v := r.Min + int(math.RoundToEven(float64(r.Max-r.Min)*float64(pct)/100)) + r.Offset
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Profile holds the value ranges for both controls.
type Profile struct {
	Brightness ValueRange
	Contrast   ValueRange
}

// DefaultProfile returns the calibration the listener ships with.
func DefaultProfile() Profile {
	return Profile{
		Brightness: ValueRange{Min: 3, Max: 100},
		Contrast:   ValueRange{Min: 60, Max: 92},
	}
}

// Display is a single attached monitor reachable over DDC/CI.
type Display interface {
	ID() string
	SetBrightness(raw int) error
	SetContrast(raw int) error
	Close() error
}

// enumerator lists the attached displays. The platform implementation is the
// default; tests substitute their own.
type enumerator func(ctx context.Context) ([]Display, error)

// Controller fans a level change out to every attached display. A failing
// display is logged and skipped; the others still get the new value.
type Controller struct {
	logger    *zap.Logger
	enumerate enumerator
}

// NewController creates a Controller backed by the platform's display
// enumeration.
func NewController(logger *zap.Logger) *Controller {
	return &Controller{
		logger:    logger,
		enumerate: displays,
	}
}

// Apply sets brightness and contrast on all displays from a single percentage,
// mapped through the profile's ranges.
func (c *Controller) Apply(ctx context.Context, profile Profile, pct int) error {
	rawB := profile.Brightness.FromPercent(pct)
	rawC := profile.Contrast.FromPercent(pct)

	err := c.forEachDisplay(ctx, func(d Display) error {
		if err := d.SetBrightness(rawB); err != nil {
			return fmt.Errorf("brightness: %w", err)
		}
		if err := d.SetContrast(rawC); err != nil {
			return fmt.Errorf("contrast: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("Applied level",
		zap.Int("percent", pct),
		zap.Int("brightness_raw", rawB),
		zap.Int("contrast_raw", rawC))
	return nil
}

// forEachDisplay enumerates displays and runs fn on each concurrently.
// Per-display failures are logged, not propagated; only enumeration failure
// or an empty display set is an error.
func (c *Controller) forEachDisplay(ctx context.Context, fn func(Display) error) error {
	displays, err := c.enumerate(ctx)
	if err != nil {
		return fmt.Errorf("enumerating displays: %w", err)
	}
	if len(displays) == 0 {
		return fmt.Errorf("no DDC/CI capable displays found")
	}

	var wg sync.WaitGroup
	for _, d := range displays {
		wg.Add(1)
		go func(d Display) {
			defer wg.Done()
			defer d.Close()
			if err := fn(d); err != nil {
				c.logger.Warn("Display update failed",
					zap.String("display", d.ID()),
					zap.Error(err))
			}
		}(d)
	}
	wg.Wait()
	return nil
}
