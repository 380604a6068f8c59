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

package identity

import (
	"context"
	"testing"

	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

type memTenantRepo struct {
	tenants map[string]*tenant.Tenant
}

func (m *memTenantRepo) Create(_ context.Context, t *tenant.Tenant) error {
	m.tenants[t.ID] = t
	return nil
}

func (m *memTenantRepo) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (m *memTenantRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range m.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (m *memTenantRepo) Update(_ context.Context, t *tenant.Tenant) error {
	m.tenants[t.ID] = t
	return nil
}

func (m *memTenantRepo) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	var out []*tenant.Tenant
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out, nil
}

type memDataSourceRepo struct {
	sources map[string]*tenant.DataSource
}

func (m *memDataSourceRepo) Create(_ context.Context, ds *tenant.DataSource) error {
	m.sources[ds.ID] = ds
	return nil
}

func (m *memDataSourceRepo) GetByID(_ context.Context, id string) (*tenant.DataSource, error) {
	ds, ok := m.sources[id]
	if !ok {
		return nil, tenant.ErrDataSourceNotFound
	}
	return ds, nil
}

func (m *memDataSourceRepo) List(_ context.Context) ([]*tenant.DataSource, error) {
	var out []*tenant.DataSource
	for _, ds := range m.sources {
		out = append(out, ds)
	}
	return out, nil
}

type memMembershipRepo struct {
	memberships []*tenant.Membership
}

func (m *memMembershipRepo) Grant(_ context.Context, mem *tenant.Membership) error {
	m.memberships = append(m.memberships, mem)
	return nil
}

func (m *memMembershipRepo) Revoke(_ context.Context, tenantID, userID, role string) error {
	return nil
}

func (m *memMembershipRepo) GetUserRoles(_ context.Context, tenantID, userID string) ([]*tenant.Membership, error) {
	var out []*tenant.Membership
	for _, mem := range m.memberships {
		if mem.TenantID == tenantID && mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memMembershipRepo) ListMembers(_ context.Context, tenantID string) ([]*tenant.Membership, error) {
	return m.memberships, nil
}

func newBootstrapFixture(repo *memUserRepo) (*BootstrapService, *tenant.Service) {
	tenants := &memTenantRepo{tenants: make(map[string]*tenant.Tenant)}
	sources := &memDataSourceRepo{sources: make(map[string]*tenant.DataSource)}
	memberships := &memMembershipRepo{}

	tenantService := tenant.NewService(tenants, sources, memberships, audit.NewSlogLogger(), nil)
	identityService := newIdentityService(repo)
	return NewBootstrapService(identityService, tenantService, audit.NewSlogLogger()), tenantService
}

func setBootstrapEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBootstrapOwnerEmail, "owner@example.com")
	t.Setenv(EnvBootstrapOwnerPassword, "correct-horse-battery")
	t.Setenv(EnvBootstrapTenantName, "Acme Events")
	t.Setenv(EnvBootstrapTenantSlug, "acme")
	t.Setenv(EnvBootstrapDSHost, "localhost")
	t.Setenv(EnvBootstrapDSUser, "venuecore")
	t.Setenv(EnvBootstrapDSDatabase, "venuecore_acme")
}

func TestBootstrap_SeedsTenantAndOwner(t *testing.T) {
	users := newMemUserRepo()
	bs, tenantService := newBootstrapFixture(users)
	ctx := context.Background()
	setBootstrapEnv(t)

	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	seeded, err := tenantService.GetTenantBySlug(ctx, "acme")
	if err != nil {
		t.Fatalf("bootstrap tenant missing: %v", err)
	}
	if seeded.DataSourceID == "" {
		t.Error("tenant should be bound to the bootstrap data source")
	}

	// The owner can sign in with the configured credentials.
	user, err := bs.identityService.Authenticate(ctx, seeded.ID, "owner@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("owner should be able to authenticate: %v", err)
	}

	roles, err := tenantService.GetUserRoles(ctx, seeded.ID, user.ID)
	if err != nil {
		t.Fatalf("role lookup failed: %v", err)
	}
	if len(roles) != 1 || roles[0].Role != tenant.RoleOwner {
		t.Errorf("owner role should be granted, got %+v", roles)
	}
}

func TestBootstrap_SkipsWhenUnconfigured(t *testing.T) {
	users := newMemUserRepo()
	bs, tenantService := newBootstrapFixture(users)
	ctx := context.Background()
	t.Setenv(EnvBootstrapOwnerEmail, "")

	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("unconfigured bootstrap should be a no-op, got %v", err)
	}
	if tenants, _ := tenantService.ListTenants(ctx, 10, 0); len(tenants) != 0 {
		t.Errorf("no tenant should be created, got %d", len(tenants))
	}
	if len(users.users) != 0 {
		t.Errorf("no user should be created, got %d", len(users.users))
	}
}

func TestBootstrap_IsIdempotent(t *testing.T) {
	users := newMemUserRepo()
	bs, tenantService := newBootstrapFixture(users)
	ctx := context.Background()
	setBootstrapEnv(t)

	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	if err := bs.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap should skip silently, got %v", err)
	}

	tenants, _ := tenantService.ListTenants(ctx, 10, 0)
	if len(tenants) != 1 {
		t.Errorf("want exactly one tenant after re-run, got %d", len(tenants))
	}
	if len(users.users) != 1 {
		t.Errorf("want exactly one user after re-run, got %d", len(users.users))
	}
}
