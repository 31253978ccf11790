package coords

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	source string
	mode   Mode
}

// MappingCache memoizes mappings per (source ID, mode). Each view or session
// owns its own cache; the policy is fixed for the cache's lifetime.
// It is safe for concurrent use.
type MappingCache struct {
	policy Policy
	logger *zap.Logger

	mu      sync.Mutex
	entries map[cacheKey]*Mapping
	// epoch counts Resets and gens counts Invalidates per source. A build
	// is stored only if neither moved while it ran.
	epoch uint64
	gens  map[string]uint64
	group *singleflight.Group
}

type generation struct {
	epoch, source uint64
}

// generationLocked returns the current generation of source. c.mu must be held.
func (c *MappingCache) generationLocked(source string) generation {
	return generation{epoch: c.epoch, source: c.gens[source]}
}

func groupKey(source string, mode Mode) string {
	return source + "\x00" + mode.String()
}

// NewMappingCache creates an empty cache that builds with policy.
func NewMappingCache(policy Policy) *MappingCache {
	return &MappingCache{
		policy:  policy,
		logger:  zap.NewNop(),
		entries: make(map[cacheKey]*Mapping),
		gens:    make(map[string]uint64),
		group:   new(singleflight.Group),
	}
}

// SetLogger sets the logger for build messages.
func (c *MappingCache) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Policy returns the policy mappings are built with.
func (c *MappingCache) Policy() Policy {
	return c.policy
}

// Get returns the mapping for src in mode, building it on a miss.
// Concurrent misses for the same key share one build. Errors are not cached.
func (c *MappingCache) Get(src Source, mode Mode) (*Mapping, error) {
	key := cacheKey{source: src.ID(), mode: mode}

	c.mu.Lock()
	m, ok := c.entries[key]
	group := c.group
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	v, err, _ := group.Do(groupKey(key.source, mode), func() (any, error) {
		c.mu.Lock()
		m, ok := c.entries[key]
		gen := c.generationLocked(key.source)
		c.mu.Unlock()
		if ok {
			return m, nil
		}

		m, err := Build(src.Features(), mode, c.policy)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("built position mapping",
			zap.String("source", key.source),
			zap.Stringer("mode", mode),
			zap.Int("segments", m.Len()),
			zap.Int("merged", m.Merged()))

		c.mu.Lock()
		if c.generationLocked(key.source) == gen {
			c.entries[key] = m
		} else {
			c.logger.Debug("dropped stale position mapping", zap.String("source", key.source), zap.Stringer("mode", mode))
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mapping), nil
}

// Invalidate drops every mode cached for sourceID. Builds for sourceID that
// are still running are not stored, and later Gets start a fresh build.
func (c *MappingCache) Invalidate(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.source == sourceID {
			delete(c.entries, k)
		}
	}
	c.gens[sourceID]++
	for _, mode := range Modes {
		c.group.Forget(groupKey(sourceID, mode))
	}
}

// Reset drops all entries. Builds still running are not stored.
func (c *MappingCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*Mapping)
	c.epoch++
	c.group = new(singleflight.Group)
}

// Len returns the number of cached mappings.
func (c *MappingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
