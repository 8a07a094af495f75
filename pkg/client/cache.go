package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/CGeorges/tradingboard/pkg/watchlist"
)

// Cache is the durable local mirror of the remote watchlist store. It is
// a disposable warm-start hint keyed by watchlist id, never authoritative:
// a successful remote read always replaces it wholesale.
type Cache struct {
	mu   sync.Mutex
	path string
}

// NewCache creates a cache backed by the JSON file at path. The parent
// directory is created on first write.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load reads the cached set, ordered by createdAt then id to match the
// store's display order. A missing cache file is an empty set, not an
// error.
func (c *Cache) Load() ([]watchlist.Watchlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, err := c.read()
	if err != nil {
		return nil, err
	}

	lists := make([]watchlist.Watchlist, 0, len(byID))
	for _, w := range byID {
		lists = append(lists, w)
	}
	sort.Slice(lists, func(i, j int) bool {
		if !lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].CreatedAt.Before(lists[j].CreatedAt)
		}
		return lists[i].ID < lists[j].ID
	})
	return lists, nil
}

// Replace overwrites the whole cache with the supplied set.
func (c *Cache) Replace(lists []watchlist.Watchlist) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID := make(map[string]watchlist.Watchlist, len(lists))
	for _, w := range lists {
		byID[w.ID] = w
	}
	return c.write(byID)
}

// Put upserts a single record.
func (c *Cache) Put(w watchlist.Watchlist) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, err := c.read()
	if err != nil {
		return err
	}
	byID[w.ID] = w
	return c.write(byID)
}

// Remove deletes a single record. Removing an absent id is a no-op.
func (c *Cache) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, err := c.read()
	if err != nil {
		return err
	}
	delete(byID, id)
	return c.write(byID)
}

func (c *Cache) read() (map[string]watchlist.Watchlist, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[string]watchlist.Watchlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", c.path, err)
	}

	byID := map[string]watchlist.Watchlist{}
	if err := json.Unmarshal(data, &byID); err != nil {
		// A corrupt cache is disposable; start over rather than fail.
		return map[string]watchlist.Watchlist{}, nil
	}
	return byID, nil
}

// write persists atomically: temp file in the same directory, then rename.
func (c *Cache) write(byID map[string]watchlist.Watchlist) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".watchlists-*.json")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
