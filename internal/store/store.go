// Package store holds the application state: current user, locale and
// the bounded translation history, persisted through a key-value store,
// plus transient UI flags that reset on restart.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/kvstore"
	"github.com/lingopocket/lingopocket/internal/models"
)

// aggregateKey is the single durable key holding user, locale and history.
const aggregateKey = "store-state"

// HistoryLimit bounds the history collection per installation.
const HistoryLimit = 10

// FileRemover deletes a local media file by path. Used to clean up the
// audio file of an evicted voice record.
type FileRemover interface {
	Remove(path string) error
}

// persistedState is the durable subset of the store, JSON-encoded under
// aggregateKey. Loading flags and tab bar visibility stay memory-only.
type persistedState struct {
	User    models.User      `json:"user"`
	Locale  string           `json:"locale"`
	History []models.History `json:"history"`
}

// Store is the application state container. All mutations are
// serialized through an internal mutex; persisted-field mutations are
// written back before they return.
type Store struct {
	kv      kvstore.Store
	remover FileRemover
	log     *zap.Logger

	mu            sync.Mutex
	user          models.User
	locale        string
	history       []models.History
	loading       bool
	tabBarVisible bool

	subs []func()
}

// New creates a Store backed by kv. remover is invoked when an evicted
// voice record's audio file must be deleted.
func New(kv kvstore.Store, remover FileRemover, log *zap.Logger) *Store {
	return &Store{
		kv:            kv,
		remover:       remover,
		log:           log,
		tabBarVisible: true,
	}
}

// Subscribe registers fn to run after every state mutation.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Hydrate loads the persisted subset from the key-value store. An absent
// aggregate leaves the zero state; an undecodable one is dropped.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, aggregateKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var ps persistedState
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		s.log.Warn("persisted state corrupted, starting empty", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.user = ps.User
	s.locale = ps.Locale
	s.history = ps.History
	s.mu.Unlock()
	return nil
}

// persistLocked writes the aggregate back. Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(persistedState{
		User:    s.user,
		Locale:  s.locale,
		History: s.history,
	})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, aggregateKey, string(raw))
}

// SetUser replaces the current user wholesale and persists the aggregate.
func (s *Store) SetUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	s.user = u
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return err
}

// SetLocale replaces the preferred language code and persists the aggregate.
func (s *Store) SetLocale(ctx context.Context, locale string) error {
	s.mu.Lock()
	s.locale = locale
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return err
}

// SetHistory replaces the history collection wholesale and persists the
// aggregate. Appending a single record goes through AppendWithEviction.
func (s *Store) SetHistory(ctx context.Context, history []models.History) error {
	s.mu.Lock()
	s.history = history
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return err
}

// SetLoading sets the transient loading flag.
func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

// SetTabBarVisible sets the transient tab bar visibility flag.
func (s *Store) SetTabBarVisible(v bool) {
	s.mu.Lock()
	s.tabBarVisible = v
	s.mu.Unlock()
	s.notify()
}

// AppendWithEviction appends rec to the history, evicting the
// oldest-by-date record once the collection is at its bound. It is the
// single owner of the evict-then-append sequence.
//
// Records without an owner are dropped: if rec.UID is empty it is taken
// from the signed-in user, and when no user id exists the record is
// silently discarded and false is returned. An evicted voice record's
// audio file is deleted best-effort before the record goes away.
func (s *Store) AppendWithEviction(ctx context.Context, rec models.History) (bool, error) {
	s.mu.Lock()
	if rec.UID == "" {
		if !s.user.SignedIn() {
			s.mu.Unlock()
			return false, nil
		}
		rec.UID = s.user.ID
	}

	if len(s.history) >= HistoryLimit {
		oldest := 0
		for i := 1; i < len(s.history); i++ {
			if s.history[i].Date.Before(s.history[oldest].Date) {
				oldest = i
			}
		}
		evicted := s.history[oldest]
		if evicted.Type == models.VoiceHistory && evicted.Voice != nil && evicted.Voice.VoiceURI != "" {
			if err := s.remover.Remove(evicted.Voice.VoiceURI); err != nil {
				// Losing a stale recording must not block history management.
				s.log.Error("failed to delete evicted voice file",
					zap.String("uri", evicted.Voice.VoiceURI), zap.Error(err))
			}
		}
		s.history = append(s.history[:oldest], s.history[oldest+1:]...)
	}

	s.history = append(s.history, rec)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return true, err
}

// RemoveHistory deletes the record with the given id. A voice record's
// audio file is deleted along with it, per the record-owns-file rule.
// Returns false when no record matches.
func (s *Store) RemoveHistory(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	idx := -1
	for i, rec := range s.history {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}

	rec := s.history[idx]
	if rec.Type == models.VoiceHistory && rec.Voice != nil && rec.Voice.VoiceURI != "" {
		if err := s.remover.Remove(rec.Voice.VoiceURI); err != nil {
			s.log.Error("failed to delete voice file",
				zap.String("uri", rec.Voice.VoiceURI), zap.Error(err))
		}
	}
	s.history = append(s.history[:idx], s.history[idx+1:]...)
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
	return true, err
}

// User returns the current user.
func (s *Store) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Locale returns the preferred language code.
func (s *Store) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// History returns a copy of the history collection.
func (s *Store) History() []models.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.History, len(s.history))
	copy(out, s.history)
	return out
}

// Loading returns the transient loading flag.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// TabBarVisible returns the transient tab bar visibility flag.
func (s *Store) TabBarVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabBarVisible
}
