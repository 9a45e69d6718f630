// Package parsecache keeps converted blocks keyed by a content hash so a
// document that changes a little between parses is mostly reused.
package parsecache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/mdschema/internal/doctree"
)

// DefaultCapacity is the number of blocks kept before the oldest is evicted.
const DefaultCapacity = 100

// Stats counts cache traffic since creation or the last Clear.
type Stats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Cache is a bounded, insertion-ordered map from block hash to converted
// elements. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]doctree.Nodes
	order    []string
	stats    Stats
	log      *slog.Logger
}

// New returns a cache holding at most capacity blocks.
func New(capacity int, log *slog.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]doctree.Nodes),
		log:      log,
	}
}

// Get returns a copy of the elements stored under key.
func (c *Cache) Get(key string) (doctree.Nodes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nodes, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return nodes.Clone(), true
}

// Put stores a copy of nodes under key, evicting the oldest entries when
// the cache is full. Replacing a key keeps its original position.
func (c *Cache) Put(key string, nodes doctree.Nodes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = nodes.Clone()
		return
	}
	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.stats.Evictions++
		c.log.Debug("parse cache eviction", "key", oldest, "entries", len(c.entries))
	}
	c.entries[key] = nodes.Clone()
	c.order = append(c.order, key)
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]doctree.Nodes)
	c.order = nil
	c.stats = Stats{}
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Capacity = c.capacity
	return s
}

// Key hashes a block together with everything else that affects its
// conversion: the rule names in order and the converter config.
func Key(block string, rules []string, config any) string {
	h := sha256.New()
	h.Write([]byte(block))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(rules, "\x1f")))
	h.Write([]byte{0})
	if config != nil {
		cfg, err := json.Marshal(config)
		if err != nil {
			cfg = []byte(fmt.Sprintf("%#v", config))
		}
		h.Write(cfg)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Stamp gives each top-level element of a block the hash
// "<blockHash>-<index>".
func Stamp(nodes doctree.Nodes, blockHash string) {
	for i, n := range nodes {
		doctree.SetHash(n, fmt.Sprintf("%s-%d", blockHash, i))
	}
}
