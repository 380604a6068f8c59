// Copyright 2026 The VenueCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/venuecore/venuecore/internal/session"
)

// PoolProvider supplies connection pools for data sources. Implemented by
// the postgres store's pool manager.
type PoolProvider interface {
	Acquire(ctx context.Context, ds *DataSource) (*pgxpool.Pool, error)
	Evict(dataSourceID string)
}

// Resolver turns an authenticated session into a tenant Context: logical
// tenant → data source row → pooled connection → physical tenant id.
//
// Tenant and data source rows are cached with a TTL so a tenant moved to a
// new shard is picked up without restart. Every failure path is fail-closed;
// there is no fallthrough to a default pool or tenant.
type Resolver struct {
	repo   Repository
	dsRepo DataSourceRepository
	pools  PoolProvider
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	tenant  *Tenant
	ds      *DataSource
	expires time.Time
}

// NewResolver creates a resolver with the given directory repositories and
// pool provider. ttl bounds how long a tenant→data-source binding is reused.
func NewResolver(repo Repository, dsRepo DataSourceRepository, pools PoolProvider, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		repo:   repo,
		dsRepo: dsRepo,
		pools:  pools,
		ttl:    ttl,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve resolves the tenant context for an authenticated session
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) (*Context, error) {
	tc, err := r.ResolveTenant(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	tc.UserID = sess.UserID
	tc.SessionID = sess.ID
	return tc, nil
}

// ResolveTenant resolves a tenant context from a logical tenant id alone.
// Used for machine credentials (API tokens, webhooks) where there is no
// session.
func (r *Resolver) ResolveTenant(ctx context.Context, tenantID string) (*Context, error) {
	t, ds, err := r.lookup(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if t.Status != StatusActive {
		return nil, ErrTenantSuspended
	}

	pool, err := r.pools.Acquire(ctx, ds)
	if err != nil {
		// Drop the binding so a repaired or reassigned data source is
		// re-read on the next request.
		r.invalidate(tenantID)
		r.pools.Evict(ds.ID)
		return nil, fmt.Errorf("data source %s unavailable: %w", ds.ID, err)
	}

	physicalID := t.ID
	if ds.TenantIDOverride != "" {
		physicalID = ds.TenantIDOverride
	}

	return &Context{
		Tenant:   t,
		Pool:     pool,
		TenantID: physicalID,
	}, nil
}

// Invalidate drops the cached binding for a tenant, forcing the next
// Resolve to re-read the directory.
func (r *Resolver) Invalidate(tenantID string) {
	r.invalidate(tenantID)
}

func (r *Resolver) lookup(ctx context.Context, tenantID string) (*Tenant, *DataSource, error) {
	r.mu.RLock()
	entry, ok := r.cache[tenantID]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.tenant, entry.ds, nil
	}

	t, err := r.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, ErrTenantNotFound
	}

	ds, err := r.dsRepo.GetByID(ctx, t.DataSourceID)
	if err != nil {
		return nil, nil, ErrDataSourceNotFound
	}

	r.mu.Lock()
	r.cache[tenantID] = cacheEntry{tenant: t, ds: ds, expires: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return t, ds, nil
}

func (r *Resolver) invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()
}
