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
	"fmt"
	"os"

	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

const (
	EnvBootstrapOwnerEmail    = "BOOTSTRAP_OWNER_EMAIL"
	EnvBootstrapOwnerPassword = "BOOTSTRAP_OWNER_PASSWORD"
	EnvBootstrapOwnerName     = "BOOTSTRAP_OWNER_NAME"
	EnvBootstrapTenantName    = "BOOTSTRAP_TENANT_NAME"
	EnvBootstrapTenantSlug    = "BOOTSTRAP_TENANT_SLUG"
	EnvBootstrapDSName        = "BOOTSTRAP_DS_NAME"
	EnvBootstrapDSHost        = "BOOTSTRAP_DS_HOST"
	EnvBootstrapDSPort        = "BOOTSTRAP_DS_PORT"
	EnvBootstrapDSUser        = "BOOTSTRAP_DS_USER"
	EnvBootstrapDSPassword    = "BOOTSTRAP_DS_PASSWORD"
	EnvBootstrapDSDatabase    = "BOOTSTRAP_DS_DATABASE"
	EnvBootstrapDSSSLMode     = "BOOTSTRAP_DS_SSLMODE"
)

// BootstrapService seeds a fresh installation with its first data source,
// tenant and owner account. Every other route requires an authenticated
// session, so without this step there is no way in.
type BootstrapService struct {
	identityService *Service
	tenantService   *tenant.Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, tenantService *tenant.Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		tenantService:   tenantService,
		auditLogger:     auditLogger,
	}
}

// Bootstrap checks for bootstrap configuration and executes it if necessary
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapOwnerEmail)
	if email == "" {
		return nil
	}
	password := os.Getenv(EnvBootstrapOwnerPassword)
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapOwnerEmail, EnvBootstrapOwnerPassword)
	}

	tenantName := os.Getenv(EnvBootstrapTenantName)
	if tenantName == "" {
		tenantName = "VenueCore"
	}
	slug := os.Getenv(EnvBootstrapTenantSlug)
	if slug == "" {
		slug = "main"
	}

	// Already bootstrapped or the tenant exists, skip silently.
	if existing, err := s.tenantService.GetTenantBySlug(ctx, slug); err == nil && existing != nil {
		return nil
	}

	dsName := os.Getenv(EnvBootstrapDSName)
	if dsName == "" {
		dsName = "primary"
	}
	ds, err := s.tenantService.CreateDataSource(ctx, &tenant.DataSource{
		Name:     dsName,
		Host:     os.Getenv(EnvBootstrapDSHost),
		Port:     os.Getenv(EnvBootstrapDSPort),
		User:     os.Getenv(EnvBootstrapDSUser),
		Password: os.Getenv(EnvBootstrapDSPassword),
		Database: os.Getenv(EnvBootstrapDSDatabase),
		SSLMode:  os.Getenv(EnvBootstrapDSSSLMode),
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap data source: %w", err)
	}

	t, err := s.tenantService.CreateTenant(ctx, tenantName, slug, "", ds.ID, "")
	if err != nil {
		return fmt.Errorf("failed to create bootstrap tenant: %w", err)
	}

	ownerName := os.Getenv(EnvBootstrapOwnerName)
	if ownerName == "" {
		ownerName = "Owner"
	}
	user, err := s.identityService.ProvisionUser(ctx, t.ID, email, ownerName)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap owner: %w", err)
	}
	if err := s.identityService.AddPassword(ctx, user.ID, password); err != nil {
		return fmt.Errorf("failed to set bootstrap owner password: %w", err)
	}
	if err := s.tenantService.AssignRole(ctx, t.ID, user.ID, tenant.RoleOwner, audit.ActorSystemBootstrap); err != nil {
		return fmt.Errorf("failed to grant owner role during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSystemBootstrap,
		TenantID: t.ID,
		ActorID:  user.ID,
		Resource: "tenant",
		Metadata: map[string]any{
			"email":          email,
			"slug":           slug,
			"data_source_id": ds.ID,
		},
	})

	fmt.Printf("Successfully bootstrapped tenant %s with owner %s\n", slug, email)
	return nil
}
