package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/models"
	"github.com/lingopocket/lingopocket/internal/store"
)

// fakeKV is an in-memory key-value store.
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// fakeRemover records every Remove call.
type fakeRemover struct {
	RemoveFunc func(path string) error
	calls      []string
}

func (f *fakeRemover) Remove(path string) error {
	f.calls = append(f.calls, path)
	if f.RemoveFunc != nil {
		return f.RemoveFunc(path)
	}
	return nil
}

func textRecord(id string, date time.Time) models.History {
	return models.History{
		ID:   id,
		Date: date,
		Type: models.TextHistory,
		Text: &models.HistoryText{
			SourceText:         "hi " + id,
			SourceLanguage:     "en",
			TranslatedText:     "salut " + id,
			TranslatedLanguage: "fr",
		},
	}
}

func voiceRecord(id, uri string, date time.Time) models.History {
	return models.History{
		ID:   id,
		Date: date,
		Type: models.VoiceHistory,
		Voice: &models.HistoryVoice{
			VoiceURI:           uri,
			TranslatedText:     "salut",
			TranslatedLanguage: "fr",
		},
	}
}

func signedInStore(t *testing.T) (*store.Store, *fakeKV, *fakeRemover) {
	t.Helper()
	kv := newFakeKV()
	remover := &fakeRemover{}
	s := store.New(kv, remover, zap.NewNop())
	if err := s.SetUser(context.Background(), models.User{ID: "uid-1", Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}
	return s, kv, remover
}

func TestAppendWithEviction_Bounded(t *testing.T) {
	ctx := context.Background()
	s, _, _ := signedInStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= store.HistoryLimit+1; i++ {
		rec := textRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))
		added, err := s.AppendWithEviction(ctx, rec)
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if !added {
			t.Fatalf("append %d dropped unexpectedly", i)
		}
	}

	history := s.History()
	if len(history) != store.HistoryLimit {
		t.Fatalf("history length = %d; want %d", len(history), store.HistoryLimit)
	}

	// r1 carried the earliest timestamp and must be gone; r2..r11 remain.
	ids := make(map[string]bool, len(history))
	for _, rec := range history {
		ids[rec.ID] = true
		if err := rec.Validate(); err != nil {
			t.Errorf("invalid record in history: %v", err)
		}
	}
	if ids["r1"] {
		t.Error("oldest record r1 still present after eviction")
	}
	for i := 2; i <= store.HistoryLimit+1; i++ {
		if !ids[fmt.Sprintf("r%d", i)] {
			t.Errorf("record r%d missing", i)
		}
	}
}

func TestAppendWithEviction_AnonymousDrop(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := store.New(kv, &fakeRemover{}, zap.NewNop())
	if err := s.SetUser(ctx, models.User{Username: models.AnonymousUsername, Password: models.AnonymousUsername}); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}

	added, err := s.AppendWithEviction(ctx, textRecord("r1", time.Now()))
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if added {
		t.Error("record accepted without a signed-in user id")
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("history length = %d; want 0", got)
	}
}

func TestAppendWithEviction_SetsOwner(t *testing.T) {
	ctx := context.Background()
	s, _, _ := signedInStore(t)

	if _, err := s.AppendWithEviction(ctx, textRecord("r1", time.Now())); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	history := s.History()
	if len(history) != 1 || history[0].UID != "uid-1" {
		t.Errorf("record UID = %q; want uid-1", history[0].UID)
	}
}

func TestAppendWithEviction_VoiceCleanup(t *testing.T) {
	ctx := context.Background()
	s, _, remover := signedInStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.AppendWithEviction(ctx, voiceRecord("v1", "/tmp/rec/v1.m4a", base)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	for i := 2; i <= store.HistoryLimit; i++ {
		if _, err := s.AppendWithEviction(ctx, textRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	// v1 is the oldest; the next append evicts it and its file.
	if _, err := s.AppendWithEviction(ctx, textRecord("r11", base.Add(11*time.Minute))); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if len(remover.calls) != 1 || remover.calls[0] != "/tmp/rec/v1.m4a" {
		t.Errorf("remover calls = %v; want exactly one for v1.m4a", remover.calls)
	}
	for _, rec := range s.History() {
		if rec.ID == "v1" {
			t.Error("evicted voice record still present")
		}
	}
}

func TestAppendWithEviction_RemoverErrorSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	remover := &fakeRemover{RemoveFunc: func(string) error { return errors.New("busy") }}
	s := store.New(kv, remover, zap.NewNop())
	if err := s.SetUser(ctx, models.User{ID: "uid-1"}); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.AppendWithEviction(ctx, voiceRecord("v1", "/tmp/v1.m4a", base)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	for i := 2; i <= store.HistoryLimit; i++ {
		if _, err := s.AppendWithEviction(ctx, textRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	added, err := s.AppendWithEviction(ctx, textRecord("r11", base.Add(11*time.Minute)))
	if err != nil || !added {
		t.Fatalf("append after failing remover = (%v, %v); want (true, nil)", added, err)
	}
	if got := len(s.History()); got != store.HistoryLimit {
		t.Errorf("history length = %d; want %d", got, store.HistoryLimit)
	}
}

func TestAppendWithEviction_TimestampTie(t *testing.T) {
	ctx := context.Background()
	s, _, _ := signedInStore(t)

	same := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= store.HistoryLimit; i++ {
		if _, err := s.AppendWithEviction(ctx, textRecord(fmt.Sprintf("r%d", i), same)); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	if _, err := s.AppendWithEviction(ctx, textRecord("r11", same.Add(time.Minute))); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Exactly one of the tied records went away.
	if got := len(s.History()); got != store.HistoryLimit {
		t.Errorf("history length = %d; want %d", got, store.HistoryLimit)
	}
}

func TestRoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	remover := &fakeRemover{}

	s := store.New(kv, remover, zap.NewNop())
	user := models.User{ID: "uid-9", Username: "alice", Password: "pw"}
	if err := s.SetUser(ctx, user); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}
	if err := s.SetLocale(ctx, "tr"); err != nil {
		t.Fatalf("SetLocale failed: %v", err)
	}
	rec := textRecord("r1", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if _, err := s.AppendWithEviction(ctx, rec); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Tear down and rebuild against the same backing.
	reborn := store.New(kv, remover, zap.NewNop())
	if err := reborn.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	if got := reborn.User(); got != user {
		t.Errorf("user = %+v; want %+v", got, user)
	}
	if got := reborn.Locale(); got != "tr" {
		t.Errorf("locale = %q; want tr", got)
	}
	history := reborn.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d; want 1", len(history))
	}
	got := history[0]
	if got.ID != rec.ID || got.UID != "uid-9" || !got.Date.Equal(rec.Date) {
		t.Errorf("record = %+v; want id/uid/date of %+v", got, rec)
	}
	if got.Text == nil || *got.Text != *rec.Text {
		t.Errorf("text payload = %+v; want %+v", got.Text, rec.Text)
	}
}

func TestTransientFieldsNotPersisted(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	s := store.New(kv, &fakeRemover{}, zap.NewNop())
	if err := s.SetUser(ctx, models.User{ID: "uid-1"}); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}
	s.SetLoading(true)
	s.SetTabBarVisible(false)

	reborn := store.New(kv, &fakeRemover{}, zap.NewNop())
	if err := reborn.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if reborn.Loading() {
		t.Error("loading flag survived restart")
	}
	if !reborn.TabBarVisible() {
		t.Error("tab bar visibility did not reset to default")
	}
}

func TestSetHistory_Replaces(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := signedInStore(t)

	if _, err := s.AppendWithEviction(ctx, textRecord("r1", time.Now())); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	before := kv.sets

	if err := s.SetHistory(ctx, nil); err != nil {
		t.Fatalf("SetHistory failed: %v", err)
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("history length = %d; want 0", got)
	}
	if kv.sets != before+1 {
		t.Errorf("SetHistory did not persist immediately (sets %d → %d)", before, kv.sets)
	}
}

func TestRemoveHistory(t *testing.T) {
	ctx := context.Background()
	s, _, remover := signedInStore(t)

	if _, err := s.AppendWithEviction(ctx, voiceRecord("v1", "/tmp/v1.m4a", time.Now())); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	removed, err := s.RemoveHistory(ctx, "v1")
	if err != nil {
		t.Fatalf("RemoveHistory failed: %v", err)
	}
	if !removed {
		t.Fatal("RemoveHistory returned false for existing id")
	}
	if len(remover.calls) != 1 || remover.calls[0] != "/tmp/v1.m4a" {
		t.Errorf("remover calls = %v; want the voice file", remover.calls)
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("history length = %d; want 0", got)
	}

	removed, err = s.RemoveHistory(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("RemoveHistory failed: %v", err)
	}
	if removed {
		t.Error("RemoveHistory returned true for unknown id")
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := store.New(newFakeKV(), &fakeRemover{}, zap.NewNop())

	notified := 0
	s.Subscribe(func() { notified++ })

	if err := s.SetLocale(ctx, "de"); err != nil {
		t.Fatalf("SetLocale failed: %v", err)
	}
	s.SetLoading(true)
	s.SetTabBarVisible(false)

	if notified != 3 {
		t.Errorf("subscriber notified %d times; want 3", notified)
	}
}
