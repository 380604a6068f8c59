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
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/venuecore/venuecore/internal/session"
)

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

type mockDataSourceRepo struct {
	mock.Mock
}

func (m *mockDataSourceRepo) Create(ctx context.Context, ds *DataSource) error {
	args := m.Called(ctx, ds)
	return args.Error(0)
}

func (m *mockDataSourceRepo) GetByID(ctx context.Context, id string) (*DataSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DataSource), args.Error(1)
}

func (m *mockDataSourceRepo) List(ctx context.Context) ([]*DataSource, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*DataSource), args.Error(1)
}

type mockPoolProvider struct {
	mock.Mock
}

func (m *mockPoolProvider) Acquire(ctx context.Context, ds *DataSource) (*pgxpool.Pool, error) {
	args := m.Called(ctx, ds)
	return args.Get(0).(*pgxpool.Pool), args.Error(1)
}

func (m *mockPoolProvider) Evict(dataSourceID string) {
	m.Called(dataSourceID)
}

func activeTenant() *Tenant {
	return &Tenant{ID: "tenant-1", Slug: "acme", Status: StatusActive, DataSourceID: "ds-1"}
}

func TestResolver_Resolve_AppliesOverride(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	ds := &DataSource{ID: "ds-1", TenantIDOverride: "legacy-42"}
	repo.On("GetByID", mock.Anything, "tenant-1").Return(activeTenant(), nil)
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(ds, nil)
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), nil)

	r := NewResolver(repo, dsRepo, pools, time.Minute)
	tc, err := r.Resolve(context.Background(), &session.Session{ID: "sess-1", TenantID: "tenant-1", UserID: "user-1"})

	assert.NoError(t, err)
	assert.Equal(t, "tenant-1", tc.Tenant.ID)
	assert.Equal(t, "legacy-42", tc.TenantID, "physical tenant id must follow the data source override")
	assert.Equal(t, "user-1", tc.UserID)
	assert.Equal(t, "sess-1", tc.SessionID)
}

func TestResolver_Resolve_NoOverrideUsesLogicalID(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	ds := &DataSource{ID: "ds-1"}
	repo.On("GetByID", mock.Anything, "tenant-1").Return(activeTenant(), nil)
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(ds, nil)
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), nil)

	r := NewResolver(repo, dsRepo, pools, time.Minute)
	tc, err := r.ResolveTenant(context.Background(), "tenant-1")

	assert.NoError(t, err)
	assert.Equal(t, "tenant-1", tc.TenantID)
}

func TestResolver_Resolve_SuspendedFailsClosed(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	suspended := activeTenant()
	suspended.Status = StatusSuspended
	repo.On("GetByID", mock.Anything, "tenant-1").Return(suspended, nil)
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(&DataSource{ID: "ds-1"}, nil)

	r := NewResolver(repo, dsRepo, pools, time.Minute)
	_, err := r.ResolveTenant(context.Background(), "tenant-1")

	assert.ErrorIs(t, err, ErrTenantSuspended)
	pools.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
}

func TestResolver_Resolve_UnknownTenant(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	repo.On("GetByID", mock.Anything, "ghost").Return(nil, ErrTenantNotFound)

	r := NewResolver(repo, dsRepo, pools, time.Minute)
	_, err := r.ResolveTenant(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestResolver_Resolve_PoolFailureEvictsAndInvalidates(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	ds := &DataSource{ID: "ds-1"}
	repo.On("GetByID", mock.Anything, "tenant-1").Return(activeTenant(), nil)
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(ds, nil)
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), errors.New("connection refused")).Once()
	pools.On("Evict", "ds-1").Return()
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), nil).Once()

	r := NewResolver(repo, dsRepo, pools, time.Minute)

	_, err := r.ResolveTenant(context.Background(), "tenant-1")
	assert.Error(t, err)
	pools.AssertCalled(t, "Evict", "ds-1")

	// The failed binding was dropped, so the retry re-reads the
	// directory instead of reusing the cached entry.
	tc, err := r.ResolveTenant(context.Background(), "tenant-1")
	assert.NoError(t, err)
	assert.Equal(t, "tenant-1", tc.TenantID)
	repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestResolver_Resolve_CachesBinding(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	ds := &DataSource{ID: "ds-1"}
	repo.On("GetByID", mock.Anything, "tenant-1").Return(activeTenant(), nil).Once()
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(ds, nil).Once()
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), nil)

	r := NewResolver(repo, dsRepo, pools, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := r.ResolveTenant(context.Background(), "tenant-1")
		assert.NoError(t, err)
	}
	repo.AssertNumberOfCalls(t, "GetByID", 1)
	dsRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestResolver_Invalidate_ForcesDirectoryReread(t *testing.T) {
	repo := new(mockTenantRepo)
	dsRepo := new(mockDataSourceRepo)
	pools := new(mockPoolProvider)

	ds := &DataSource{ID: "ds-1"}
	repo.On("GetByID", mock.Anything, "tenant-1").Return(activeTenant(), nil)
	dsRepo.On("GetByID", mock.Anything, "ds-1").Return(ds, nil)
	pools.On("Acquire", mock.Anything, ds).Return((*pgxpool.Pool)(nil), nil)

	r := NewResolver(repo, dsRepo, pools, time.Hour)

	r.ResolveTenant(context.Background(), "tenant-1")
	r.Invalidate("tenant-1")
	r.ResolveTenant(context.Background(), "tenant-1")

	repo.AssertNumberOfCalls(t, "GetByID", 2)
}
