package tools

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wikichat/internal/agent"
	"wikichat/internal/db"
)

// CachedLookup wraps a lookup with SHA-256 keyed caching in SQLite. Only
// successful results are stored. Cache failures never fail a lookup.
type CachedLookup struct {
	inner      agent.LookupFunc
	db         *db.DB
	scope      string
	ttl        time.Duration
	maxEntries int64
	now        func() time.Time
}

// NewCachedLookup caches results of inner. scope namespaces the keys, e.g.
// by API URL, so different wikis never share entries. A zero ttl keeps
// entries until they are pruned.
func NewCachedLookup(inner agent.LookupFunc, database *db.DB, scope string, ttl time.Duration, maxEntries int) *CachedLookup {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &CachedLookup{
		inner:      inner,
		db:         database,
		scope:      scope,
		ttl:        ttl,
		maxEntries: int64(maxEntries),
		now:        time.Now,
	}
}

func (c *CachedLookup) Lookup(ctx context.Context, query string) (string, error) {
	key := lookupKey(c.scope, query)

	cached, err := c.db.GetLookup(ctx, key)
	switch {
	case err == nil && !c.expired(cached):
		slog.Debug("lookup cache hit", "query", query)
		return cached.Result, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		slog.Debug("lookup cache read error", "error", err)
	}

	result, err := c.inner(ctx, query)
	if err != nil {
		return "", err
	}

	if err := c.db.UpsertLookup(ctx, db.Lookup{
		Key:       key,
		Query:     query,
		Result:    result,
		CreatedAt: c.now(),
	}); err != nil {
		slog.Debug("lookup cache write error", "error", err)
		return result, nil
	}

	if err := c.db.PruneLookups(ctx, c.maxEntries); err != nil {
		slog.Debug("lookup cache prune error", "error", err)
	}

	return result, nil
}

func (c *CachedLookup) expired(l db.Lookup) bool {
	return c.ttl > 0 && c.now().Sub(l.CreatedAt) > c.ttl
}

func lookupKey(scope, query string) string {
	h := sha256.Sum256([]byte(scope + "\x00" + query))
	return fmt.Sprintf("%x", h)
}
