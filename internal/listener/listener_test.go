package listener

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/monitormqtt/agent/internal/config"
	"github.com/monitormqtt/agent/internal/monitor"
	"github.com/monitormqtt/agent/internal/state"
)

// fakeApplier records every Apply call.
type fakeApplier struct {
	mu      sync.Mutex
	applied []int
	profile monitor.Profile
}

func (f *fakeApplier) Apply(_ context.Context, profile monitor.Profile, pct int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, pct)
	f.profile = profile
	return nil
}

func (f *fakeApplier) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.applied...)
}

func newTestListener(t *testing.T) (*Listener, *fakeApplier) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Broker.URL = "tcp://broker.test:1883"

	store, err := state.New(filepath.Join(t.TempDir(), "state.json"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	applier := &fakeApplier{}
	return New(cfg, zap.NewNop(), applier, store), applier
}

func TestHandleMessage_AppliesBrightness(t *testing.T) {
	l, applier := newTestListener(t)

	l.handleMessage("homeassistant/light/brightness_pct", []byte("75"))

	if got := applier.calls(); len(got) != 1 || got[0] != 75 {
		t.Errorf("applied = %v, want [75]", got)
	}
}

func TestHandleMessage_PersistsLevel(t *testing.T) {
	l, _ := newTestListener(t)

	l.handleMessage("homeassistant/light/brightness_pct", []byte("30"))

	pct, ok := l.store.Last()
	if !ok || pct != 30 {
		t.Errorf("persisted level = %d, %v; want 30, true", pct, ok)
	}
}

func TestHandleMessage_TrimsWhitespace(t *testing.T) {
	l, applier := newTestListener(t)

	l.handleMessage("homeassistant/light/brightness_pct", []byte(" 50\n"))

	if got := applier.calls(); len(got) != 1 || got[0] != 50 {
		t.Errorf("applied = %v, want [50]", got)
	}
}

func TestHandleMessage_InvalidPayloadDropped(t *testing.T) {
	l, applier := newTestListener(t)

	for _, payload := range []string{"", "bright", "12.5", "\xff\xfe"} {
		l.handleMessage("homeassistant/light/brightness_pct", []byte(payload))
	}

	if got := applier.calls(); len(got) != 0 {
		t.Errorf("applied = %v, want no calls for invalid payloads", got)
	}
}

func TestHandleMessage_UnknownTopicIgnored(t *testing.T) {
	l, applier := newTestListener(t)

	l.handleMessage("homeassistant/light/color_temp_k", []byte("4000"))

	if got := applier.calls(); len(got) != 0 {
		t.Errorf("applied = %v, want no calls for unrelated topics", got)
	}
}

func TestRestoreLastLevel(t *testing.T) {
	l, applier := newTestListener(t)
	if err := l.store.Save(64); err != nil {
		t.Fatal(err)
	}

	l.restoreLastLevel()

	if got := applier.calls(); len(got) != 1 || got[0] != 64 {
		t.Errorf("applied = %v, want [64] restored from state", got)
	}
}

func TestRestoreLastLevel_NoState(t *testing.T) {
	l, applier := newTestListener(t)

	l.restoreLastLevel()

	if got := applier.calls(); len(got) != 0 {
		t.Errorf("applied = %v, want nothing without saved state", got)
	}
}

func TestUpdateConfig_SwapsProfile(t *testing.T) {
	l, applier := newTestListener(t)

	cfg := config.DefaultConfig()
	cfg.Broker.URL = "tcp://broker.test:1883"
	cfg.Monitor.Brightness = config.RangeConfig{Min: 20, Max: 80}
	cfg.Listener.ResyncInterval = config.Duration{Duration: time.Minute}
	l.UpdateConfig(cfg)

	l.handleMessage("homeassistant/light/brightness_pct", []byte("0"))

	if got := applier.profile.Brightness.Min; got != 20 {
		t.Errorf("profile min = %d after reload, want 20", got)
	}
	if got := l.currentResyncInterval(); got != time.Minute {
		t.Errorf("resync interval = %v after reload, want 1m", got)
	}
}

func TestProfileFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	p := profileFromConfig(cfg)
	if p.Brightness != (monitor.ValueRange{Min: 3, Max: 100}) {
		t.Errorf("brightness range = %+v", p.Brightness)
	}
	if p.Contrast != (monitor.ValueRange{Min: 60, Max: 92}) {
		t.Errorf("contrast range = %+v", p.Contrast)
	}
}
