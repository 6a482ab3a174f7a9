package struct_analyzer

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

// TokenSource supplies the change token governing each cache slot.
type TokenSource interface {
	ChangeToken(scope models.Scope) uint64
}

// RebuildFunc builds a fresh TypeIndex snapshot for one scope.
type RebuildFunc func(ctx context.Context, scope models.Scope) (*models.TypeIndex, error)

// snapshotEntry pairs a snapshot with the token value it was built for.
type snapshotEntry struct {
	Token uint64
	Index *models.TypeIndex
}

// SnapshotCache holds two independent cache slots, one per scope, each
// rebuilt whenever its governing change token advances. Invalidation is
// all-or-nothing per slot; snapshots are replaced wholesale, never
// mutated in place. Two callers racing on a stale slot may both rebuild —
// rebuilds are idempotent and the last write wins.
type SnapshotCache struct {
	tokens   TokenSource
	rebuild  RebuildFunc
	cacheDir string

	mutex sync.RWMutex
	slots map[models.Scope]*snapshotEntry
	stats *CacheStats
}

// NewSnapshotCache creates the cache. A non-empty cacheDir enables gob
// persistence of snapshots for warm starts.
func NewSnapshotCache(tokens TokenSource, rebuild RebuildFunc, cacheDir string) (*SnapshotCache, error) {
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return &SnapshotCache{
		tokens:   tokens,
		rebuild:  rebuild,
		cacheDir: cacheDir,
		slots:    make(map[models.Scope]*snapshotEntry),
		stats:    &CacheStats{LastResetTime: time.Now()},
	}, nil
}

// Get returns the scope's snapshot, rebuilding it when the change token
// no longer matches the stored one. A rebuild aborted by cancellation
// leaves the previous snapshot in place: stale-but-valid always beats
// half-built.
func (c *SnapshotCache) Get(ctx context.Context, scope models.Scope) (*models.TypeIndex, error) {
	token := c.tokens.ChangeToken(scope)

	c.mutex.RLock()
	entry := c.slots[scope]
	c.mutex.RUnlock()

	if entry != nil && entry.Token == token {
		c.stats.recordHit()
		return entry.Index, nil
	}

	// Cold slot: a persisted snapshot built for the same token counts as
	// a hit.
	if entry == nil && c.cacheDir != "" {
		if loaded := c.loadSnapshot(scope); loaded != nil && loaded.Token == token {
			c.mutex.Lock()
			c.slots[scope] = loaded
			c.mutex.Unlock()
			c.stats.recordHit()
			return loaded.Index, nil
		}
	}

	c.stats.recordMiss()
	index, err := c.rebuild(ctx, scope)
	if err != nil {
		if entry != nil {
			return entry.Index, nil
		}
		return nil, err
	}
	c.stats.recordRebuild()

	fresh := &snapshotEntry{Token: token, Index: index}
	c.mutex.Lock()
	c.slots[scope] = fresh
	c.mutex.Unlock()

	if c.cacheDir != "" {
		// Best effort; a failed write only costs the next warm start.
		_ = c.storeSnapshot(scope, fresh)
	}

	return index, nil
}

// GetMerged returns the combined view of both scopes: project entries
// override dependency entries on FQN collision, prefix lists concatenate
// project-first.
func (c *SnapshotCache) GetMerged(ctx context.Context) (*models.TypeIndex, error) {
	project, err := c.Get(ctx, models.ScopeProject)
	if err != nil {
		return nil, err
	}
	dependency, err := c.Get(ctx, models.ScopeDependency)
	if err != nil {
		return nil, err
	}
	return models.Merge(project, dependency), nil
}

// Augment swaps the scope's cached snapshot for an augmented copy built
// by fn from the current one, keeping the slot's token. Crate side-loading
// uses this to add declarations without touching the sources the change
// token tracks. Reports whether a snapshot was present to augment.
func (c *SnapshotCache) Augment(scope models.Scope, fn func(*models.TypeIndex) *models.TypeIndex) bool {
	c.mutex.Lock()
	entry := c.slots[scope]
	if entry == nil {
		c.mutex.Unlock()
		return false
	}
	fresh := &snapshotEntry{Token: entry.Token, Index: fn(entry.Index)}
	c.slots[scope] = fresh
	c.mutex.Unlock()

	if c.cacheDir != "" {
		_ = c.storeSnapshot(scope, fresh)
	}
	return true
}

// Peek returns the currently cached snapshot without any token check or
// rebuild. Nil when the slot is empty.
func (c *SnapshotCache) Peek(scope models.Scope) *models.TypeIndex {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if entry := c.slots[scope]; entry != nil {
		return entry.Index
	}
	return nil
}

// Clear drops both slots and removes any persisted snapshots.
func (c *SnapshotCache) Clear() error {
	c.mutex.Lock()
	c.slots = make(map[models.Scope]*snapshotEntry)
	c.mutex.Unlock()

	if c.cacheDir == "" {
		return nil
	}
	for _, scope := range []models.Scope{models.ScopeProject, models.ScopeDependency} {
		path := c.snapshotPath(scope)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete snapshot file: %w", err)
		}
	}
	return nil
}

// Stats returns the cache performance counters.
func (c *SnapshotCache) Stats() map[string]interface{} {
	report := c.stats.report()
	report["cache_dir"] = c.cacheDir
	c.mutex.RLock()
	report["populated_slots"] = len(c.slots)
	c.mutex.RUnlock()
	return report
}

func (c *SnapshotCache) snapshotPath(scope models.Scope) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("%s.snapshot", scope))
}

// storeSnapshot persists one slot with gob encoding.
func (c *SnapshotCache) storeSnapshot(scope models.Scope, entry *snapshotEntry) error {
	var buffer bytes.Buffer
	encoder := gob.NewEncoder(&buffer)
	if err := encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(c.snapshotPath(scope), buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// loadSnapshot reads a persisted slot; any failure yields nil and the
// slot is rebuilt from source.
func (c *SnapshotCache) loadSnapshot(scope models.Scope) *snapshotEntry {
	data, err := os.ReadFile(c.snapshotPath(scope))
	if err != nil {
		return nil
	}
	var entry snapshotEntry
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&entry); err != nil {
		return nil
	}
	if entry.Index == nil {
		return nil
	}
	return &entry
}
