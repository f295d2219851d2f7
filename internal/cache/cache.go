// Package cache persists per-artifact analysis outcomes on disk so that
// unchanged artifacts are not re-analyzed by an unchanged rule set.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/skim/internal/engine"
)

// Schema version of the on-disk entry. Entries of any other version are
// treated as misses.
const schemaVersion uint16 = 1

// Disk is an engine.OutcomeCache backed by one file per key.
//
// Thread-safety: safe for concurrent use. Writes go to a temporary file
// that is renamed into place, so readers never see a partial entry.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// entry is the msgpack envelope. The outcome itself is stored as JSON
// because property bags hold interface values msgpack cannot decode.
type entry struct {
	Schema  uint16 `msgpack:"schema"`
	Key     string `msgpack:"key"`
	Outcome []byte `msgpack:"outcome"`
}

var _ engine.OutcomeCache = (*Disk)(nil)

// Open returns a cache rooted at dir, creating it if needed.
func Open(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// DefaultDir returns $XDG_CACHE_HOME/skim, or ~/.cache/skim.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "skim"), nil
}

// Dir returns the cache root.
func (c *Disk) Dir() string {
	return c.dir
}

func (c *Disk) pathFor(key string) string {
	// Keys are hex content hashes; shard on the first two characters.
	shard := "xx"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(c.dir, "outcomes", shard, key+".mp")
}

// Get implements engine.OutcomeCache.
func (c *Disk) Get(key string) (*engine.CachedOutcome, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Schema != schemaVersion || e.Key != key {
		slog.Debug("stale cache entry", "key", key, "schema", e.Schema)
		return nil, false, nil
	}
	var co engine.CachedOutcome
	if err := json.Unmarshal(e.Outcome, &co); err != nil {
		return nil, false, fmt.Errorf("decode cached outcome: %w", err)
	}
	return &co, true, nil
}

// Put implements engine.OutcomeCache.
func (c *Disk) Put(key string, co *engine.CachedOutcome) error {
	payload, err := json.Marshal(co)
	if err != nil {
		return fmt.Errorf("encode cached outcome: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(&entry{Schema: schemaVersion, Key: key, Outcome: payload}); err != nil {
		f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Clear removes every entry.
func (c *Disk) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "outcomes")); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
