// Package store holds the client-side caches for each backend resource.
//
// Every store follows the same contract: refreshes replace the cached items
// wholesale and never return errors to the caller; mutations return errors
// and leave the cache untouched when they fail.
package store

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/sirupsen/logrus"
)

// API is the subset of the gateway client the stores need.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Identifiable resources can be removed or replaced by id.
type Identifiable interface {
	Identity() int64
}

// Collection is an ordered, mutex-guarded cache of one resource type.
//
// Refreshes are sequenced: each dispatch takes the next sequence number and
// only the most recently dispatched refresh may commit. A response belonging
// to an older dispatch is discarded even if it arrives last.
type Collection[T Identifiable] struct {
	mu         sync.RWMutex
	items      []T
	loading    bool
	dispatched uint64
	lastErr    error
}

// Items returns a copy of the cached items.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Loading reports whether the latest dispatched refresh is still in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastRefreshError is the error from the most recent refresh, or nil if it
// succeeded. Stale data remains available either way.
func (c *Collection[T]) LastRefreshError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Find returns the item with the given id.
func (c *Collection[T]) Find(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.Identity() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched++
	c.loading = true
	return c.dispatched
}

// commit installs items if seq is still the latest dispatch.
func (c *Collection[T]) commit(seq uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.dispatched {
		return false
	}
	c.items = slices.Clone(items)
	c.loading = false
	c.lastErr = nil
	return true
}

func (c *Collection[T]) abort(seq uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.dispatched {
		return
	}
	c.loading = false
	c.lastErr = err
}

// reset empties the cache and invalidates any refresh in flight.
func (c *Collection[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched++
	c.items = nil
	c.loading = false
	c.lastErr = nil
}

// remove drops exactly the item with the given identity.
func (c *Collection[T]) remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.items)
	c.items = slices.DeleteFunc(slices.Clone(c.items), func(item T) bool {
		return item.Identity() == id
	})
	return len(c.items) != before
}

// update applies fn to the item with the given identity.
func (c *Collection[T]) update(id int64, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item.Identity() == id {
			next := slices.Clone(c.items)
			next[i] = fn(item)
			c.items = next
			return true
		}
	}
	return false
}

// updateAll applies fn to every item.
func (c *Collection[T]) updateAll(fn func(T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]T, len(c.items))
	for i, item := range c.items {
		next[i] = fn(item)
	}
	c.items = next
}

// refresh runs fetch under a new sequence number and commits the result if it
// is still current. Failures are logged, never returned.
func (c *Collection[T]) refresh(ctx context.Context, log logrus.FieldLogger, fetch func(context.Context) ([]T, error)) {
	seq := c.begin()

	items, err := fetch(ctx)
	if err != nil {
		c.abort(seq, err)
		log.WithError(err).Warn("refresh failed, keeping cached items")
		return
	}

	if !c.commit(seq, items) {
		log.WithField("seq", seq).Debug("discarding stale refresh")
		return
	}
	log.WithField("count", len(items)).Debug("refreshed")
}

// fetchList GETs a JSON array and validates every element.
func fetchList[T api.Validatable](ctx context.Context, client API, path string) ([]T, error) {
	var items []T
	if err := client.Do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	if err := api.ValidateAll(path, items); err != nil {
		return nil, err
	}
	return items, nil
}

// fetchOne GETs or sends a request whose response is a single resource.
func fetchOne[T api.Validatable](ctx context.Context, client API, method, path string, body any) (T, error) {
	var item T
	if err := client.Do(ctx, method, path, body, &item); err != nil {
		return item, err
	}
	if err := api.ValidateOne(path, item); err != nil {
		return item, err
	}
	return item, nil
}
