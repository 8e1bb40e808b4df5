package kvstore

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps all keys in one JSON file, rewritten as a whole on
// every mutation. With a non-nil AEAD the file body is encrypted at rest.
type FileStore struct {
	path string
	aead cipher.AEAD
	log  *zap.Logger

	mu   sync.Mutex
	data map[string]string
}

// NewFileStore loads (or initializes) the store file at path.
// A missing file yields an empty store. A file that cannot be decoded
// is dropped and replaced on the next write.
func NewFileStore(path string, aead cipher.AEAD, log *zap.Logger) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		aead: aead,
		log:  log,
		data: make(map[string]string),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}

	if fs.aead != nil {
		plain, err := open(fs.aead, raw)
		if err != nil {
			// Best-effort self-heal: start over rather than refuse to run.
			fs.log.Warn("store file undecryptable, starting empty", zap.Error(err))
			return nil
		}
		raw = plain
	}

	if err := json.Unmarshal(raw, &fs.data); err != nil {
		fs.log.Warn("store file corrupted, starting empty", zap.Error(err))
		fs.data = make(map[string]string)
	}
	return nil
}

// save writes the whole map via a temp file and rename, so readers never
// observe a partial write.
func (fs *FileStore) save() error {
	raw, err := json.Marshal(fs.data)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if fs.aead != nil {
		raw, err = seal(fs.aead, raw)
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// Get returns the value for key, or false if absent.
func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.data[key]
	return v, ok, nil
}

// Set replaces the value for key and writes the file back.
func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.data[key] = value
	return fs.save()
}

// Delete removes key and writes the file back. Absent keys are a no-op.
func (fs *FileStore) Delete(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.data[key]; !ok {
		return nil
	}
	delete(fs.data, key)
	return fs.save()
}
