// Package blockcache stores block-graph snapshots on disk, keyed by a digest
// of the listing and the construction settings, so unchanged listings are
// not rebuilt.
package blockcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"bbgraph/internal/blockgraph"
)

// Current schema version - increment when Payload changes shape.
const schemaVersion uint16 = 1

// Digest identifies a cache entry.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Key hashes a listing together with the settings that shape its graphs.
func Key(src []byte, graphKind, policy string) Digest {
	h := sha256.New()
	fmt.Fprintf(h, "bbg/%d\x00%s\x00%s\x00", schemaVersion, graphKind, policy)
	h.Write(src)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Entry is the cached outcome for one body.
type Entry struct {
	Name     string               `msgpack:"name"`
	Snapshot *blockgraph.Snapshot `msgpack:"snapshot,omitempty"`
	Err      string               `msgpack:"err,omitempty"`
}

// Payload is everything cached for one listing.
type Payload struct {
	Schema  uint16  `msgpack:"schema"`
	File    string  `msgpack:"file"`
	Graph   string  `msgpack:"graph"`
	Policy  string  `msgpack:"policy"`
	Bodies  []Entry `msgpack:"bodies"`
	Written int64   `msgpack:"written"` // unix seconds
}

// ErrSchema reports a payload written with another schema version.
var ErrSchema = errors.New("blockcache: schema version mismatch")

// Encode writes payload to w as msgpack, stamping the schema version and,
// when unset, the write time.
func Encode(w io.Writer, payload *Payload) error {
	payload.Schema = schemaVersion
	if payload.Written == 0 {
		payload.Written = time.Now().Unix()
	}
	return msgpack.NewEncoder(w).Encode(payload)
}

// Decode reads one payload written by Encode and rejects snapshots whose
// ranges or indices fall outside the payload.
func Decode(r io.Reader) (*Payload, error) {
	var out Payload
	if err := msgpack.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	if out.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, out.Schema, schemaVersion)
	}
	for _, e := range out.Bodies {
		if e.Snapshot == nil {
			continue
		}
		if err := e.Snapshot.Validate(); err != nil {
			return nil, fmt.Errorf("body %s: %w", e.Name, err)
		}
	}
	return &out, nil
}

// Cache is a directory of msgpack payloads. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns a cache rooted at dir, or at $XDG_CACHE_HOME/app when dir is
// empty.
func Open(dir, app string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "graphs", key.String()+".mp")
}

// Put writes payload under key, replacing any previous entry atomically.
func (c *Cache) Put(key Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
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
	defer func() {
		if err != nil {
			_ = f.Close()           //nolint:errcheck
			_ = os.Remove(f.Name()) //nolint:errcheck
		}
	}()

	if err = Encode(f, payload); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload stored under key. A missing entry or one written
// with another schema reports false without error.
func (c *Cache) Get(key Digest) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
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

	out, err := Decode(f)
	if errors.Is(err, ErrSchema) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, true, nil
}

// DropAll removes every cached payload.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "graphs"))
}
