// Package modelcache implements the Model Cache: reference-counted,
// in-memory ModelHoldings bounded by a byte budget with LRU eviction. The
// combination of reference counting, per-id request coalescing, and
// eviction is the single thorniest concurrency concern in the system; the
// decomposition here follows the recommended shape — a single mutex
// around the holdings map, plus a one-shot channel per in-flight load so
// concurrent acquire(id) calls on the same id wait on that channel instead
// of holding the top-level lock across I/O.
package modelcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"autoforge/internal/apperr"
	"autoforge/internal/catalog"
	"autoforge/internal/logging"
	"autoforge/internal/types"
)

// Loader produces the opaque runtime payload for a descriptor. Production
// callers wire this to whatever backend actually materializes the model;
// tests substitute a fake loader.
type Loader func(ctx context.Context, d types.ModelDescriptor) (interface{}, error)

// Handle is an opaque token returned by Acquire; it must be passed to
// Release exactly once.
type Handle struct {
	id string
}

type entry struct {
	holding  types.ModelHolding
	loading  chan struct{} // closed when the in-flight load for this id completes
	loadErr  error
}

// Cache is a byte-budgeted, reference-counted holding of ModelHoldings.
type Cache struct {
	mu       sync.Mutex
	budget   int64
	used     int64
	holdings map[string]*entry
	catalog  *catalog.Catalog
	loader   Loader
}

// New constructs a Cache bounded by budgetBytes, resolving descriptors via
// cat and materializing payloads via loader.
func New(cat *catalog.Catalog, budgetBytes int64, loader Loader) *Cache {
	return &Cache{
		budget:   budgetBytes,
		holdings: make(map[string]*entry),
		catalog:  cat,
		loader:   loader,
	}
}

// Acquire returns a ready Handle for id, loading it if absent. Concurrent
// acquires for the same id coalesce onto a single loader; concurrent
// acquires for distinct ids proceed independently.
func (c *Cache) Acquire(ctx context.Context, id string) (*Handle, error) {
	for {
		c.mu.Lock()
		e, exists := c.holdings[id]
		if exists {
			switch e.holding.State {
			case types.HoldingReady:
				e.holding.RefCount++
				e.holding.LastUsed = time.Now()
				c.mu.Unlock()
				logging.ModelCacheDebug("acquire %s: shared existing holding, ref_count=%d", id, e.holding.RefCount)
				return &Handle{id: id}, nil
			case types.HoldingLoading:
				waitCh := e.loading
				c.mu.Unlock()
				select {
				case <-waitCh:
					continue // re-check state under lock
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			default:
				// failed/unloading/unloaded: fall through to a fresh load.
				delete(c.holdings, id)
			}
		}

		// No usable holding: start a fresh load under the lock, so only one
		// goroutine ever becomes the loader for this id.
		descriptor, ok := c.catalog.Get(id)
		if !ok {
			c.mu.Unlock()
			return nil, &apperr.ModelNotFoundError{ID: id}
		}

		if err := c.ensureBudget(descriptor.MemoryBytesRequired); err != nil {
			c.mu.Unlock()
			return nil, err
		}

		loadDone := make(chan struct{})
		c.holdings[id] = &entry{
			holding: types.ModelHolding{
				Descriptor: descriptor,
				State:      types.HoldingLoading,
				LastUsed:   time.Now(),
			},
			loading: loadDone,
		}
		c.mu.Unlock()

		payload, loadErr := c.loader(ctx, descriptor)

		c.mu.Lock()
		e = c.holdings[id]
		if loadErr != nil {
			e.holding.State = types.HoldingFailed
			e.holding.FailReason = loadErr.Error()
			e.loadErr = loadErr
			close(loadDone)
			c.mu.Unlock()
			logging.ModelCacheWarn("acquire %s: load failed: %v", id, loadErr)
			return nil, loadErr
		}

		e.holding.State = types.HoldingReady
		e.holding.Payload = payload
		e.holding.RefCount = 1
		e.holding.LastUsed = time.Now()
		c.used += descriptor.MemoryBytesRequired
		close(loadDone)
		c.mu.Unlock()

		logging.ModelCacheDebug("acquire %s: loaded, ref_count=1", id)
		return &Handle{id: id}, nil
	}
}

// ensureBudget evicts ref_count=0 holdings in strictly ascending last_used
// order until required bytes fit within budget, or fails fast without
// evicting anything if the requested model alone cannot fit. Caller must
// hold c.mu.
func (c *Cache) ensureBudget(required int64) error {
	if required > c.budget {
		return &apperr.MemoryExhaustedError{Requested: required, Budget: c.budget}
	}
	if c.used+required <= c.budget {
		return nil
	}

	type candidate struct {
		id       string
		lastUsed time.Time
		bytes    int64
	}
	var evictable []candidate
	for id, e := range c.holdings {
		if e.holding.State == types.HoldingReady && e.holding.RefCount == 0 {
			evictable = append(evictable, candidate{id, e.holding.LastUsed, e.holding.Descriptor.MemoryBytesRequired})
		}
	}
	sort.Slice(evictable, func(i, j int) bool { return evictable[i].lastUsed.Before(evictable[j].lastUsed) })

	for _, cand := range evictable {
		if c.used+required <= c.budget {
			break
		}
		delete(c.holdings, cand.id)
		c.used -= cand.bytes
		logging.ModelCacheDebug("evicted %s to free %d bytes", cand.id, cand.bytes)
	}

	if c.used+required > c.budget {
		return &apperr.MemoryExhaustedError{Requested: required, Budget: c.budget}
	}
	return nil
}

// Release decrements the reference count for h's id, making it eligible
// for eviction once it reaches zero. Release on an id with no tracked
// holding is a no-op.
func (c *Cache) Release(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.holdings[h.id]
	if !ok {
		return
	}
	if e.holding.RefCount > 0 {
		e.holding.RefCount--
	}
}

// UsedBytes returns the sum of memory_bytes_required across ready
// holdings, for tests asserting the byte-budget invariant.
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// RefCount returns the current reference count for id, or 0 if untracked.
func (c *Cache) RefCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.holdings[id]; ok {
		return e.holding.RefCount
	}
	return 0
}

// State returns the current lifecycle state for id.
func (c *Cache) State(id string) (types.HoldingState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.holdings[id]
	if !ok {
		return "", false
	}
	return e.holding.State, true
}
