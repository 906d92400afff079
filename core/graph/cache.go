package graph

import (
	"context"
	"sync/atomic"
	"time"
)

type snapshot struct {
	graph   *MultiGraph
	builtAt time.Time
}

// Cache holds the last built graph until it is refreshed or invalidated.
// A finished build replaces the previous snapshot in one atomic swap.
type Cache struct {
	current atomic.Pointer[snapshot]
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{}
}

// GetOrBuild returns the cached graph, or builds and caches a new one if the
// cache is empty or refresh is set.
func (c *Cache) GetOrBuild(ctx context.Context, refresh bool, build func(ctx context.Context) (*MultiGraph, error)) (*MultiGraph, error) {
	if s := c.current.Load(); s != nil && !refresh {
		return s.graph, nil
	}

	g, err := build(ctx)
	if err != nil {
		return nil, err
	}

	c.current.Store(&snapshot{graph: g, builtAt: time.Now().UTC()})
	return g, nil
}

// Invalidate drops the cached graph.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

// Timestamp returns the UTC build time of the cached graph, nil if there is none.
func (c *Cache) Timestamp() *time.Time {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	t := s.builtAt
	return &t
}
