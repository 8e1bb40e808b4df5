// Package media manages the local recordings directory: saving captured
// audio, deleting files whose history record went away, and sweeping
// recordings nothing references anymore.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/models"
)

// HistoryLister exposes the current history collection, used to decide
// which recordings are still referenced.
type HistoryLister interface {
	History() []models.History
}

// Store owns a directory of recording files.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore ensures dir exists and returns a Store rooted there.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the recordings directory.
func (s *Store) Dir() string {
	return s.dir
}

// SaveRecording writes data to a new uniquely named recording file and
// returns its path.
func (s *Store) SaveRecording(data []byte) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString()+".m4a")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	return path, nil
}

// Remove deletes the file at path. A file that is already gone counts
// as removed.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove recording: %w", err)
	}
	return nil
}

// StartOrphanSweeper periodically deletes recordings in the store
// directory that no history record references and that are older than
// retention. A crash between saving a recording and appending its
// record leaks the file; the sweeper reclaims it.
func (s *Store) StartOrphanSweeper(
	ctx context.Context,
	history HistoryLister,
	interval time.Duration,
	retention time.Duration,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweep(history, retention); removed > 0 {
					s.log.Info("removed orphaned recordings", zap.Int("removed", removed))
				}
			}
		}
	}()
}

func (s *Store) sweep(history HistoryLister, retention time.Duration) int {
	referenced := make(map[string]bool)
	for _, rec := range history.History() {
		if rec.Type == models.VoiceHistory && rec.Voice != nil {
			referenced[rec.Voice.VoiceURI] = true
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Error("failed to read recordings dir", zap.Error(err))
		return 0
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if referenced[path] {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Error("failed to remove orphaned recording",
				zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}
