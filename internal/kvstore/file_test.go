package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	_, ok, err := fs.Get(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected absent key in fresh store")
	}
}

func TestFileStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := fs.Set(ctx, "k", `{"v":1}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := fs.Get(ctx, "k")
	if err != nil || !ok || v != `{"v":1}` {
		t.Errorf("Get = (%q, %v, %v); want ({\"v\":1}, true, nil)", v, ok, err)
	}

	if err := fs.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := fs.Get(ctx, "k"); ok {
		t.Error("key present after Delete")
	}
	// deleting again is a no-op
	if err := fs.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestFileStore_ReloadSeesWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := fs.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reloaded, err := NewFileStore(path, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	for key, want := range map[string]string{"a": "1", "b": "2"} {
		v, ok, _ := reloaded.Get(ctx, key)
		if !ok || v != want {
			t.Errorf("after reload Get(%q) = (%q, %v); want (%q, true)", key, v, ok, want)
		}
	}
}

func TestFileStore_CorruptedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fs, err := NewFileStore(path, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, ok, _ := fs.Get(context.Background(), "k"); ok {
		t.Error("expected empty store after corrupted file")
	}
}

func TestFileStore_EncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	aead, err := NewAEADFromPassphrase("secret")
	if err != nil {
		t.Fatalf("NewAEADFromPassphrase failed: %v", err)
	}

	fs, err := NewFileStore(path, aead, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// the file on disk must not contain the plaintext
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(raw) == `{"k":"v"}` {
		t.Error("state file stored in plaintext despite AEAD")
	}

	reloaded, err := NewFileStore(path, aead, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	v, ok, _ := reloaded.Get(ctx, "k")
	if !ok || v != "v" {
		t.Errorf("after encrypted reload Get = (%q, %v); want (v, true)", v, ok)
	}
}

func TestFileStore_WrongPassphraseStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	aead, _ := NewAEADFromPassphrase("right")
	fs, err := NewFileStore(path, aead, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	wrong, _ := NewAEADFromPassphrase("wrong")
	reloaded, err := NewFileStore(path, wrong, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, ok, _ := reloaded.Get(ctx, "k"); ok {
		t.Error("expected empty store under wrong passphrase")
	}
}
