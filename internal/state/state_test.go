package state

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "state.json"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_Roundtrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save(42); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Last()
	if !ok {
		t.Fatal("Last() found nothing after Save")
	}
	if got != 42 {
		t.Errorf("Last() = %d, want 42", got)
	}
}

func TestStore_OverwriteKeepsLatest(t *testing.T) {
	s := newTestStore(t)

	for _, pct := range []int{10, 70, 55} {
		if err := s.Save(pct); err != nil {
			t.Fatal(err)
		}
	}
	got, ok := s.Last()
	if !ok || got != 55 {
		t.Errorf("Last() = %d, %v; want 55, true", got, ok)
	}
}

func TestStore_MissingFile(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Last(); ok {
		t.Error("Last() reported state before any Save")
	}
}

func TestStore_CorruptedFileRemoved(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0640); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Last(); ok {
		t.Error("Last() returned a value from a corrupted file")
	}
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Error("corrupted state file was not removed")
	}
}

func TestStore_OutOfRangeIgnored(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte(`{"percent": 250}`), 0640); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Last(); ok {
		t.Error("Last() accepted an out-of-range level")
	}
}
