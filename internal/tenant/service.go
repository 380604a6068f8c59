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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
)

// Service provides tenant management business logic
type Service struct {
	repo           Repository
	dsRepo         DataSourceRepository
	membershipRepo MembershipRepository
	auditLogger    audit.Logger
	resolver       *Resolver
}

// NewService creates a new tenant service
func NewService(repo Repository, dsRepo DataSourceRepository, membershipRepo MembershipRepository, auditLogger audit.Logger, resolver *Resolver) *Service {
	return &Service{
		repo:           repo,
		dsRepo:         dsRepo,
		membershipRepo: membershipRepo,
		auditLogger:    auditLogger,
		resolver:       resolver,
	}
}

// CreateTenant creates a new tenant bound to a data source. The creator is
// granted the owner role.
func (s *Service) CreateTenant(ctx context.Context, name, slug, plan, dataSourceID, creatorID string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	slug = normalizeSlug(slug)
	if slug == "" {
		slug = normalizeSlug(name)
	}
	if plan == "" {
		plan = PlanStarter
	}

	if _, err := s.dsRepo.GetByID(ctx, dataSourceID); err != nil {
		return nil, ErrDataSourceNotFound
	}

	if existing, err := s.repo.GetBySlug(ctx, slug); err == nil && existing != nil {
		return nil, fmt.Errorf("tenant with slug %s already exists", slug)
	}

	now := time.Now()
	t := &Tenant{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         name,
		Slug:         slug,
		Status:       StatusActive,
		Plan:         plan,
		DataSourceID: dataSourceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	if creatorID != "" {
		if err := s.membershipRepo.Grant(ctx, &Membership{
			ID:        uuid.Must(uuid.NewV7()).String(),
			TenantID:  t.ID,
			UserID:    creatorID,
			Role:      RoleOwner,
			GrantedBy: creatorID,
			GrantedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("failed to grant owner role: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  creatorID,
		Resource: "tenant",
		Metadata: map[string]any{"slug": slug, "data_source_id": dataSourceID},
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// GetTenantBySlug retrieves a tenant by slug
func (s *Service) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.repo.GetBySlug(ctx, normalizeSlug(slug))
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateTenant updates tenant name and plan
func (s *Service) UpdateTenant(ctx context.Context, id, name, plan string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		t.Name = name
	}
	if plan != "" {
		t.Plan = plan
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.resolver.Invalidate(id)
	return t, nil
}

// SuspendTenant suspends a tenant. All subsequent context resolution for
// the tenant fails until it is reactivated.
func (s *Service) SuspendTenant(ctx context.Context, id, actorID string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	t.Status = StatusSuspended
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.resolver.Invalidate(id)

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantSuspended,
		TenantID: id,
		ActorID:  actorID,
		Resource: "tenant",
	})

	return nil
}

// CreateDataSource registers a physical database tenants can be assigned to
func (s *Service) CreateDataSource(ctx context.Context, ds *DataSource) (*DataSource, error) {
	if ds.Host == "" || ds.Database == "" || ds.User == "" {
		return nil, fmt.Errorf("data source host, database and user are required")
	}
	if ds.Port == "" {
		ds.Port = "5432"
	}
	if ds.SSLMode == "" {
		ds.SSLMode = "disable"
	}

	ds.ID = uuid.Must(uuid.NewV7()).String()
	ds.Status = StatusActive
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	if err := s.dsRepo.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}
	return ds, nil
}

// ListDataSources lists registered data sources
func (s *Service) ListDataSources(ctx context.Context) ([]*DataSource, error) {
	return s.dsRepo.List(ctx)
}

// AssignDataSource moves a tenant to a different data source. Takes effect
// immediately for new requests; in-flight requests finish on the old pool.
func (s *Service) AssignDataSource(ctx context.Context, tenantID, dataSourceID, actorID string) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if _, err := s.dsRepo.GetByID(ctx, dataSourceID); err != nil {
		return ErrDataSourceNotFound
	}

	t.DataSourceID = dataSourceID
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.resolver.Invalidate(tenantID)

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeDataSourceChanged,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "data_source",
		Metadata: map[string]any{"data_source_id": dataSourceID},
	})

	return nil
}

// AssignRole grants a role to a user in a tenant
func (s *Service) AssignRole(ctx context.Context, tenantID, userID, role, grantedBy string) error {
	if !ValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}

	m := &Membership{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		GrantedBy: grantedBy,
		GrantedAt: time.Now(),
	}

	if err := s.membershipRepo.Grant(ctx, m); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		TenantID: tenantID,
		ActorID:  grantedBy,
		Resource: role,
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

// RevokeRole revokes a role from a user in a tenant
func (s *Service) RevokeRole(ctx context.Context, tenantID, userID, role, actorID string) error {
	if err := s.membershipRepo.Revoke(ctx, tenantID, userID, role); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleRevoked,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: role,
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

// GetUserRoles retrieves the roles a user has in a tenant
func (s *Service) GetUserRoles(ctx context.Context, tenantID, userID string) ([]*Membership, error) {
	return s.membershipRepo.GetUserRoles(ctx, tenantID, userID)
}

// ListMembers retrieves all role assignments in a tenant
func (s *Service) ListMembers(ctx context.Context, tenantID string) ([]*Membership, error) {
	return s.membershipRepo.ListMembers(ctx, tenantID)
}

func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
