// Package poolcache memoizes pool -> post-id-list lookups across runs.
// Pool membership rarely changes once a pool is closed, so caching it
// locally saves repeat API calls on the (potentially many) pages a large
// pool requires to enumerate. Adapted from the teacher's
// internal/database.DB bitcask wrapper: same embedded RWMutex, same
// gzip-compressed-value convention, re-homed from "model version cache"
// to "pool post-id-list cache".
package poolcache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"git.mills.io/prologic/bitcask"
	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
)

// ErrNotFound is returned when a pool has no cached entry.
var ErrNotFound = errors.New("pool not cached")

var gzipMagic = []byte{0x1f, 0x8b}

// Cache wraps a bitcask database storing gzip-compressed, JSON-encoded
// post-id slices, keyed by "<site>:<pool id>".
type Cache struct {
	db *bitcask.Bitcask
	mu sync.RWMutex
}

// Open opens (creating if absent) the bitcask database at path.
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating poolcache directory %s: %w", dir, err)
		}
	}
	db, err := bitcask.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening poolcache at %s: %w", path, err)
	}
	log.Infof("pool cache opened at %s", path)
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

func key(site model.Site, poolID uint64) []byte {
	return []byte(fmt.Sprintf("%s:%d", site, poolID))
}

// Get returns the cached post-id list for a pool, or ErrNotFound.
func (c *Cache) Get(site model.Site, poolID uint64) ([]uint64, error) {
	c.mu.RLock()
	raw, err := c.db.Get(key(site, poolID))
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, bitcask.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading pool cache entry: %w", err)
	}

	decompressed, err := decompressGzip(raw)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	if err := json.Unmarshal(decompressed, &ids); err != nil {
		return nil, fmt.Errorf("decoding cached pool entry: %w", err)
	}
	return ids, nil
}

// Put stores the post-id list for a pool, gzip-compressed, exactly as the
// teacher's database.DB.Put compresses every value it stores.
func (c *Cache) Put(site model.Site, poolID uint64, ids []uint64) error {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding pool entry: %w", err)
	}
	compressed, err := compressGzip(encoded)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.Put(key(site, poolID), compressed); err != nil {
		return fmt.Errorf("writing pool cache entry: %w", err)
	}
	return nil
}

func compressGzip(value []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("writing gzip data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(value []byte) ([]byte, error) {
	if !bytes.HasPrefix(value, gzipMagic) {
		return value, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(value))
	if err != nil {
		log.WithError(err).Warn("failed to open gzip reader for pool cache value, returning raw")
		return value, nil
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		log.WithError(err).Warn("failed to decompress pool cache value, returning raw")
		return value, nil
	}
	return out, nil
}
