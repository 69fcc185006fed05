package curriculum

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 10 * time.Minute

// KV is the byte cache CachedCatalog stores responses in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedCatalog wraps a Catalog with a shared cache. Concurrent misses for the
// same key are collapsed into one upstream call. Cache failures are logged and
// fall through to the wrapped catalog.
type CachedCatalog struct {
	next  Catalog
	kv    KV
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedCatalog creates a caching Catalog. A zero ttl uses the default.
func NewCachedCatalog(next Catalog, kv KV, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedCatalog{next: next, kv: kv, ttl: ttl}
}

func (c *CachedCatalog) ListCurriculums(ctx context.Context) ([]Curriculum, error) {
	return cachedLoad(ctx, c, "curriculum:list", func() ([]Curriculum, error) {
		return c.next.ListCurriculums(ctx)
	})
}

func (c *CachedCatalog) TopicTree(ctx context.Context, curriculumID string) ([]TopicNode, error) {
	return cachedLoad(ctx, c, "curriculum:tree:"+curriculumID, func() ([]TopicNode, error) {
		return c.next.TopicTree(ctx, curriculumID)
	})
}

func (c *CachedCatalog) ListExams(ctx context.Context, topicID string) ([]Exam, error) {
	return cachedLoad(ctx, c, "curriculum:exams:"+topicID, func() ([]Exam, error) {
		return c.next.ListExams(ctx, topicID)
	})
}

func cachedLoad[T any](ctx context.Context, c *CachedCatalog, key string, fetch func() (T, error)) (T, error) {
	var zero T

	if data, ok, err := c.kv.Get(ctx, key); err != nil {
		slog.Warn("catalog cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Warn("discarding corrupt catalog cache entry", "key", key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err == nil {
			if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
				slog.Warn("catalog cache write failed", "key", key, "error", err)
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
