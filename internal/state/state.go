// Package state persists the last applied level as a small JSON file so the
// agent can restore monitors to the remembered setting after a reboot, before
// the broker connection comes up. Data survives crashes; a corrupted file is
// dropped and treated as "no previous level".
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is a file-backed record of the last applied percentage.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// snapshot is the on-disk format.
type snapshot struct {
	Percent   int       `json:"percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a Store at the given file path. The parent directory is created
// if it does not exist.
func New(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	return &Store{
		path:   path,
		logger: logger,
	}, nil
}

// Save records the percentage. Failures are returned but the caller treats
// them as non-fatal; the live value was already applied.
func (s *Store) Save(pct int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snapshot{
		Percent:   pct,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0640)
}

// Last returns the most recently saved percentage. The second return is false
// when no usable state exists; a corrupted file is removed and logged.
func (s *Store) Last() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("State file corrupted, removing",
			zap.String("file", s.path),
			zap.Error(err))
		os.Remove(s.path)
		return 0, false
	}
	if snap.Percent < 0 || snap.Percent > 100 {
		s.logger.Warn("State file holds out-of-range level, ignoring",
			zap.Int("percent", snap.Percent))
		return 0, false
	}
	return snap.Percent, true
}
