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

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Manager caches one connection pool per data source. It implements
// tenant.PoolProvider. Pools are created lazily on first acquire and
// closed when evicted or reaped after sitting idle.
type Manager struct {
	maxOpenConns int
	maxIdleConns int
	logger       *slog.Logger

	mu    sync.Mutex
	pools map[string]*managedPool
}

type managedPool struct {
	pool     *pgxpool.Pool
	lastUsed time.Time
}

// NewManager creates a pool manager. maxOpenConns and maxIdleConns apply
// to each data source pool individually.
func NewManager(maxOpenConns, maxIdleConns int, logger *slog.Logger) *Manager {
	return &Manager{
		maxOpenConns: maxOpenConns,
		maxIdleConns: maxIdleConns,
		logger:       logger,
		pools:        make(map[string]*managedPool),
	}
}

// Acquire returns the pool for a data source, dialing it on first use.
// The returned pool is shared; callers must not close it.
func (m *Manager) Acquire(ctx context.Context, ds *tenant.DataSource) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mp, ok := m.pools[ds.ID]; ok {
		mp.lastUsed = time.Now()
		return mp.pool, nil
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d",
		ds.Host, ds.Port, ds.User, ds.Password, ds.Database, ds.SSLMode,
		m.maxOpenConns, m.maxIdleConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping data source: %w", err)
	}

	m.pools[ds.ID] = &managedPool{pool: pool, lastUsed: time.Now()}
	m.logger.Info("opened data source pool", slog.String("data_source_id", ds.ID))

	return pool, nil
}

// Evict closes and drops the pool for a data source, if present
func (m *Manager) Evict(dataSourceID string) {
	m.mu.Lock()
	mp, ok := m.pools[dataSourceID]
	if ok {
		delete(m.pools, dataSourceID)
	}
	m.mu.Unlock()

	if ok {
		mp.pool.Close()
		m.logger.Info("evicted data source pool", slog.String("data_source_id", dataSourceID))
	}
}

// Reap closes pools that have not been acquired within idleFor. Returns
// the number of pools closed.
func (m *Manager) Reap(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	m.mu.Lock()
	var stale []*managedPool
	for id, mp := range m.pools {
		if mp.lastUsed.Before(cutoff) {
			stale = append(stale, mp)
			delete(m.pools, id)
		}
	}
	m.mu.Unlock()

	for _, mp := range stale {
		mp.pool.Close()
	}
	return len(stale)
}

// Close closes every managed pool
func (m *Manager) Close() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*managedPool)
	m.mu.Unlock()

	for _, mp := range pools {
		mp.pool.Close()
	}
}
