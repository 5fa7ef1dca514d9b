package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestValueRange_FromPercent(t *testing.T) {
	brightness := ValueRange{Min: 3, Max: 100}
	contrast := ValueRange{Min: 60, Max: 92}

	tests := []struct {
		name string
		r    ValueRange
		pct  int
		want int
	}{
		{"brightness 0%", brightness, 0, 3},
		{"brightness 100%", brightness, 100, 100},
		{"brightness 50%", brightness, 50, 51}, // 3 + roundToEven(48.5)
		{"brightness 51%", brightness, 51, 52}, // 3 + roundToEven(49.47)
		{"contrast 0%", contrast, 0, 60},
		{"contrast 100%", contrast, 100, 92},
		{"contrast 50%", contrast, 50, 76},
		{"clamp below", brightness, -10, 3},
		{"clamp above", brightness, 150, 100},
		{"offset shifts", ValueRange{Min: 10, Max: 90, Offset: 5}, 0, 15},
		{"offset clamped", ValueRange{Min: 10, Max: 90, Offset: 50}, 100, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.FromPercent(tt.pct); got != tt.want {
				t.Errorf("FromPercent(%d) = %d, want %d", tt.pct, got, tt.want)
			}
		})
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.Brightness.Min != 3 || p.Brightness.Max != 100 {
		t.Errorf("brightness range = %+v, want 3..100", p.Brightness)
	}
	if p.Contrast.Min != 60 || p.Contrast.Max != 92 {
		t.Errorf("contrast range = %+v, want 60..92", p.Contrast)
	}
}

// fakeDisplay records the raw values applied to it.
type fakeDisplay struct {
	id         string
	mu         sync.Mutex
	brightness []int
	contrast   []int
	failWith   error
	closed     bool
}

func (f *fakeDisplay) ID() string { return f.id }

func (f *fakeDisplay) SetBrightness(raw int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.brightness = append(f.brightness, raw)
	return nil
}

func (f *fakeDisplay) SetContrast(raw int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.contrast = append(f.contrast, raw)
	return nil
}

func (f *fakeDisplay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func fakeController(displays ...Display) *Controller {
	return &Controller{
		logger: zap.NewNop(),
		enumerate: func(ctx context.Context) ([]Display, error) {
			return displays, nil
		},
	}
}

func TestController_AppliesToAllDisplays(t *testing.T) {
	d1 := &fakeDisplay{id: "one"}
	d2 := &fakeDisplay{id: "two"}
	c := fakeController(d1, d2)

	if err := c.Apply(context.Background(), DefaultProfile(), 100); err != nil {
		t.Fatal(err)
	}

	for _, d := range []*fakeDisplay{d1, d2} {
		if len(d.brightness) != 1 || d.brightness[0] != 100 {
			t.Errorf("display %s brightness = %v, want [100]", d.id, d.brightness)
		}
		if len(d.contrast) != 1 || d.contrast[0] != 92 {
			t.Errorf("display %s contrast = %v, want [92]", d.id, d.contrast)
		}
		if !d.closed {
			t.Errorf("display %s not closed after apply", d.id)
		}
	}
}

func TestController_FailingDisplayDoesNotBlockOthers(t *testing.T) {
	broken := &fakeDisplay{id: "broken", failWith: errors.New("ddc timeout")}
	healthy := &fakeDisplay{id: "healthy"}
	c := fakeController(broken, healthy)

	if err := c.Apply(context.Background(), DefaultProfile(), 0); err != nil {
		t.Fatal(err)
	}
	if len(healthy.brightness) != 1 || healthy.brightness[0] != 3 {
		t.Errorf("healthy display brightness = %v, want [3]", healthy.brightness)
	}
}

func TestController_NoDisplaysIsAnError(t *testing.T) {
	c := fakeController()
	if err := c.Apply(context.Background(), DefaultProfile(), 50); err == nil {
		t.Error("expected error when no displays are attached")
	}
}

func TestController_EnumerationFailure(t *testing.T) {
	c := &Controller{
		logger: zap.NewNop(),
		enumerate: func(ctx context.Context) ([]Display, error) {
			return nil, errors.New("i2c unavailable")
		},
	}
	if err := c.Apply(context.Background(), DefaultProfile(), 50); err == nil {
		t.Error("expected enumeration error to propagate")
	}
}
