package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"legajo/internal/employee/models"
	id "legajo/pkg/domain"
)

const (
	cacheKeyPrefix = "legajo:employee:"
	genKeySuffix   = ":gen"
	minGenTTL      = time.Hour
)

// Backend is the store a CachedStore reads through to.
type Backend interface {
	Create(ctx context.Context, e *models.Employee) error
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error)
	Update(ctx context.Context, e *models.Employee, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, employeeID id.EmployeeID) error
	Search(ctx context.Context, q models.SearchQuery) ([]*models.Employee, error)
	ListAll(ctx context.Context) ([]*models.Employee, error)
}

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// CachedStore caches FindByID results in Redis. Writes go to the backend
// first and then drop the cached entry. Redis failures are logged and
// treated as misses; the backend stays authoritative.
//
// Every invalidation bumps a per-record generation counter. A reader only
// fills the cache if the generation it saw before reading the backend is
// still current, so a slow reader cannot put back a value an update has
// already replaced.
type CachedStore struct {
	Backend
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	observer CacheObserver
}

type CacheOption func(*CachedStore)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedStore) { c.logger = logger }
}

func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *CachedStore) { c.observer = o }
}

func NewCached(backend Backend, client *redis.Client, ttl time.Duration, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		Backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedStore) FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	key := cacheKey(employeeID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var e models.Employee
		jerr := json.Unmarshal(raw, &e)
		if jerr == nil {
			c.observe(true)
			return &e, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry",
			"employee_id", employeeID.String(),
			"error", jerr,
		)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "employee cache read failed",
			"employee_id", employeeID.String(),
			"error", err,
		)
	}
	c.observe(false)

	gen, genErr := c.generation(ctx, employeeID)
	e, err := c.Backend.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		c.store(ctx, e, gen)
	}
	return e, nil
}

func (c *CachedStore) Update(ctx context.Context, e *models.Employee, expectedUpdatedAt time.Time) error {
	if err := c.Backend.Update(ctx, e, expectedUpdatedAt); err != nil {
		return err
	}
	c.invalidate(ctx, e.ID)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, employeeID id.EmployeeID) error {
	if err := c.Backend.Delete(ctx, employeeID); err != nil {
		return err
	}
	c.invalidate(ctx, employeeID)
	return nil
}

func (c *CachedStore) generation(ctx context.Context, employeeID id.EmployeeID) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(employeeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.logger.WarnContext(ctx, "employee cache generation read failed",
			"employee_id", employeeID.String(),
			"error", err,
		)
	}
	return gen, err
}

// store writes e unless the record was invalidated after gen was read.
func (c *CachedStore) store(ctx context.Context, e *models.Employee, gen int64) {
	payload, err := json.Marshal(e)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode employee for cache", "error", err)
		return
	}
	gk := genKey(e.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(e.ID), payload, c.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// invalidated while we were writing; the next read refills
	case err != nil:
		c.logger.WarnContext(ctx, "employee cache write failed",
			"employee_id", e.ID.String(),
			"error", err,
		)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, employeeID id.EmployeeID) {
	gk := genKey(employeeID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, c.genTTL())
		pipe.Del(ctx, cacheKey(employeeID))
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "employee cache invalidation failed",
			"employee_id", employeeID.String(),
			"error", err,
		)
	}
}

func (c *CachedStore) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(hit)
	}
}

func (c *CachedStore) genTTL() time.Duration {
	if ttl := 2 * c.ttl; ttl > minGenTTL {
		return ttl
	}
	return minGenTTL
}

func cacheKey(employeeID id.EmployeeID) string {
	return fmt.Sprintf("%s%s", cacheKeyPrefix, employeeID.String())
}

func genKey(employeeID id.EmployeeID) string {
	return cacheKey(employeeID) + genKeySuffix
}
