package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QueryKind groups cached reads so they can be invalidated together
type QueryKind string

const (
	KindProjects QueryKind = "projects"
	KindProject  QueryKind = "project"
	KindTags     QueryKind = "tags"
)

// QueryKey identifies one cached read: a kind, an optional id, and the
// parameters that shaped the request
type QueryKey struct {
	Kind   QueryKind
	ID     string
	Params string
}

func (k QueryKey) String() string {
	s := string(k.Kind)
	if k.ID != "" {
		s += "/" + k.ID
	}
	if k.Params != "" {
		s += "?" + k.Params
	}
	return s
}

// ProjectsKey identifies one page of the project listing
func ProjectsKey(limit int, query string, cursor *string) QueryKey {
	params := url.Values{
		"limit": {strconv.Itoa(limit)},
		"query": {query},
	}
	if cursor != nil {
		params.Set("cursor", *cursor)
	}
	return QueryKey{Kind: KindProjects, Params: params.Encode()}
}

// ProjectKey identifies a project detail read
func ProjectKey(id string) QueryKey {
	return QueryKey{Kind: KindProject, ID: id}
}

// TagsKey identifies the full tag listing
func TagsKey() QueryKey {
	return QueryKey{Kind: KindTags}
}

// QueryCache memoizes server reads. Mutations never edit cached values;
// they invalidate keys so the next read goes back to the server.
//
// Every key and kind carries a generation. A load remembers the generation
// it started under and its result is only stored if no invalidation
// happened meanwhile, so a slow read can never resurrect stale data.
type QueryCache struct {
	mu       sync.Mutex
	entries  *expirable.LRU[QueryKey, any]
	keyGen   map[QueryKey]uint64
	kindGen  map[QueryKind]uint64
	inflight singleflight.Group
	logger   *zap.Logger
}

// NewQueryCache creates a cache holding at most size entries for ttl each
func NewQueryCache(size int, ttl time.Duration, logger *zap.Logger) *QueryCache {
	if size <= 0 {
		size = 128
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCache{
		entries: expirable.NewLRU[QueryKey, any](size, nil, ttl),
		keyGen:  make(map[QueryKey]uint64),
		kindGen: make(map[QueryKind]uint64),
		logger:  logger,
	}
}

// generation must be called with the lock held
func (c *QueryCache) generation(key QueryKey) string {
	return fmt.Sprintf("%d.%d", c.kindGen[key.Kind], c.keyGen[key])
}

// Get returns a cached value, if present
func (c *QueryCache) Get(key QueryKey) (any, bool) {
	return c.entries.Get(key)
}

// Invalidate drops the given keys and bumps their generations
func (c *QueryCache) Invalidate(keys ...QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.keyGen[key]++
		c.entries.Remove(key)
		c.logger.Debug("cache invalidated", zap.Stringer("key", key))
	}
}

// InvalidateKind drops every key of the given kinds, whatever their id or params
func (c *QueryCache) InvalidateKind(kinds ...QueryKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, kind := range kinds {
		c.kindGen[kind]++
		for _, key := range c.entries.Keys() {
			if key.Kind == kind {
				c.entries.Remove(key)
			}
		}
		c.logger.Debug("cache kind invalidated", zap.String("kind", string(kind)))
	}
}

// Purge drops everything
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.keyGen {
		c.keyGen[key]++
	}
	for _, kind := range []QueryKind{KindProjects, KindProject, KindTags} {
		c.kindGen[kind]++
	}
	c.entries.Purge()
}

// sharedLoadTimeout bounds a load once it no longer follows the context of
// the caller that started it
const sharedLoadTimeout = 30 * time.Second

// Fetch returns the cached value for key or calls load. Concurrent fetches
// of the same key under the same generation share a single load. The load
// does not end when the caller that started it gives up; each caller
// returns on its own ctx instead.
func Fetch[T any](ctx context.Context, c *QueryCache, key QueryKey, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.entries.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	c.mu.Lock()
	gen := c.generation(key)
	c.mu.Unlock()

	ch := c.inflight.DoChan(key.String()+"#"+gen, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		value, err := load(lctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation(key) == gen {
			c.entries.Add(key, value)
		} else {
			c.logger.Debug("discarding stale load", zap.Stringer("key", key))
		}
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
