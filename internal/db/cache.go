package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 256

// queryCache memoizes read query results keyed by SQL text and arguments.
// Cached values are shared between callers and must be treated as read-only.
type queryCache struct {
	lru *expirable.LRU[string, any]
}

func newQueryCache(size int, ttl time.Duration) *queryCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &queryCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

func cacheKey(query string, args []any) string {
	var b strings.Builder
	b.WriteString(query)
	for _, arg := range args {
		fmt.Fprintf(&b, "\x00%T=%v", arg, arg)
	}
	return b.String()
}

// cachedQuery returns the cached result for query/args or runs load and
// stores its result. Errors are never cached.
func cachedQuery[T any](db *DB, query string, args []any, load func() (T, error)) (T, error) {
	if db.cache == nil {
		return load()
	}

	key := cacheKey(query, args)
	if v, ok := db.cache.lru.Get(key); ok {
		if result, ok := v.(T); ok {
			db.observeCache(true)
			return result, nil
		}
	}
	db.observeCache(false)

	result, err := load()
	if err != nil {
		return result, err
	}
	db.cache.lru.Add(key, result)
	return result, nil
}

func (db *DB) observeCache(hit bool) {
	if db.cacheObserver != nil {
		db.cacheObserver(hit)
	}
}

// purgeCache drops every cached result. Called after each write.
func (db *DB) purgeCache() {
	if db.cache != nil {
		db.cache.lru.Purge()
	}
}

// CacheLen returns the number of cached query results
func (db *DB) CacheLen() int {
	if db.cache == nil {
		return 0
	}
	return db.cache.lru.Len()
}
