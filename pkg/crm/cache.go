package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cohorthq/cohort/pkg/observability"
)

const defaultCacheTTL = 5 * time.Minute

// CachedStore wraps a Store with a Redis read-through cache for single
// company reads. Cache keys embed the organization ID, so the cache carries
// the same tenant boundary as the store. Redis failures fail open: the read
// falls through to PostgreSQL and the error is not surfaced.
//
// Session state is never cached here or anywhere else in the process; only
// business rows that the authoritative store already scoped.
type CachedStore struct {
	store   *Store
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedStore creates a read-through cached company store. A nil Redis
// client disables caching; every call passes through. Metrics may be nil.
func NewCachedStore(store *Store, redisClient *redis.Client, ttl time.Duration, metrics *observability.Metrics) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{store: store, redis: redisClient, ttl: ttl, metrics: metrics}
}

func cacheKey(orgID, companyID int64) string {
	return fmt.Sprintf("crm:company:%d:%d", orgID, companyID)
}

// Get retrieves a company, consulting Redis first
func (c *CachedStore) Get(ctx context.Context, orgID, companyID int64) (*Company, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, cacheKey(orgID, companyID)).Bytes()
		if err == nil {
			company := &Company{}
			if err := json.Unmarshal(data, company); err == nil {
				if c.metrics != nil {
					c.metrics.CacheHitsTotal.WithLabelValues("company").Inc()
				}
				return company, nil
			}
			// Unreadable entry, drop it and fall through
			c.redis.Del(ctx, cacheKey(orgID, companyID))
		}
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.WithLabelValues("company").Inc()
		}
	}

	company, err := c.store.Get(ctx, orgID, companyID)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(company); err == nil {
			c.redis.Set(ctx, cacheKey(orgID, companyID), data, c.ttl)
		}
	}

	return company, nil
}

// Create inserts a company and primes the cache
func (c *CachedStore) Create(ctx context.Context, orgID int64, name, domain string) (*Company, error) {
	company, err := c.store.Create(ctx, orgID, name, domain)
	if err != nil {
		return nil, err
	}
	c.prime(ctx, company)
	return company, nil
}

// List passes through to the store; list results are not cached
func (c *CachedStore) List(ctx context.Context, orgID int64) ([]*Company, error) {
	return c.store.List(ctx, orgID)
}

// Update modifies a company and refreshes the cache entry
func (c *CachedStore) Update(ctx context.Context, orgID, companyID int64, name, domain string) (*Company, error) {
	company, err := c.store.Update(ctx, orgID, companyID, name, domain)
	if err != nil {
		return nil, err
	}
	c.prime(ctx, company)
	return company, nil
}

// Delete removes a company and invalidates the cache entry
func (c *CachedStore) Delete(ctx context.Context, orgID, companyID int64) error {
	if err := c.store.Delete(ctx, orgID, companyID); err != nil {
		return err
	}
	if c.redis != nil {
		c.redis.Del(ctx, cacheKey(orgID, companyID))
	}
	return nil
}

func (c *CachedStore) prime(ctx context.Context, company *Company) {
	if c.redis == nil {
		return
	}
	if data, err := json.Marshal(company); err == nil {
		c.redis.Set(ctx, cacheKey(company.OrganizationID, company.ID), data, c.ttl)
	}
}
