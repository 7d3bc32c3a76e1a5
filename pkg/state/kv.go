package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// KV is the capability the rest of the app gets for local persisted state:
// plain get/set/delete over opaque JSON values. Namespacing per user happens
// a layer up, in Users.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// FileKV is a KV backed by a single JSON file. Writes go to disk immediately
// so a crash never loses an acknowledged state change.
type FileKV struct {
	path   string
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewFileKV opens (or lazily creates) the state file at path.
func NewFileKV(path string) (*FileKV, error) {
	kv := &FileKV{
		path:   path,
		values: make(map[string]json.RawMessage),
	}
	if _, err := os.Stat(path); err == nil {
		if err := kv.load(); err != nil {
			return nil, err
		}
	}
	return kv, nil
}

func (kv *FileKV) load() error {
	f, err := os.Open(kv.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&kv.values)
}

// save writes the full map; callers hold the write lock.
func (kv *FileKV) save() error {
	dir := filepath.Dir(kv.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(kv.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(kv.values)
}

func (kv *FileKV) Get(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.values[key]
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (kv *FileKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = json.RawMessage(value)
	return kv.save()
}

func (kv *FileKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.values[key]; !ok {
		return nil
	}
	delete(kv.values, key)
	return kv.save()
}

// MemKV is an in-memory KV for tests.
type MemKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{values: make(map[string][]byte)}
}

func (kv *MemKV) Get(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.values[key]
	return v, ok, nil
}

func (kv *MemKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = value
	return nil
}

func (kv *MemKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.values, key)
	return nil
}
