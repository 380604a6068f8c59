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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/crm"
	"github.com/venuecore/venuecore/internal/tenant"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	cfg := Config{
		Host:         envOr("TEST_DB_HOST", "localhost"),
		Port:         envOr("TEST_DB_PORT", "5432"),
		User:         envOr("TEST_DB_USER", "venuecore"),
		Password:     envOr("TEST_DB_PASSWORD", "venuecore_dev_password"),
		Database:     envOr("TEST_DB_NAME", "venuecore"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}

	db, err := New(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(context.Background(), TenantSchema); err != nil {
		t.Fatalf("failed to apply tenant schema: %v", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Two tenants sharing one physical database must never see each other's
// rows: every read is filtered by the physical tenant id carried in the
// resolved context.
func TestAccountRepository_TenantIsolation(t *testing.T) {
	db := testDB(t)

	ctxA := tenant.WithContext(context.Background(), &tenant.Context{
		Tenant:   &tenant.Tenant{ID: "tenant-a", Status: tenant.StatusActive},
		Pool:     db.Pool(),
		TenantID: "tenant-a",
	})
	ctxB := tenant.WithContext(context.Background(), &tenant.Context{
		Tenant:   &tenant.Tenant{ID: "tenant-b", Status: tenant.StatusActive},
		Pool:     db.Pool(),
		TenantID: "tenant-b",
	})

	repo := NewAccountRepository()

	account := &crm.Account{
		ID:   uuid.Must(uuid.NewV7()).String(),
		Name: "Shared Name Catering",
		Type: crm.AccountTypeCustomer,
	}
	if err := repo.Create(ctxA, account); err != nil {
		t.Fatalf("failed to create account in tenant A: %v", err)
	}
	defer db.Pool().Exec(context.Background(), "DELETE FROM accounts WHERE id = $1", account.ID)

	// Tenant B must not see tenant A's account.
	if _, err := repo.GetByID(ctxB, account.ID); err != crm.ErrAccountNotFound {
		t.Errorf("cross-tenant leakage: expected ErrAccountNotFound, got %v", err)
	}

	// Tenant A sees its own account.
	found, err := repo.GetByID(ctxA, account.ID)
	if err != nil {
		t.Fatalf("failed to get account in tenant A: %v", err)
	}
	if found.ID != account.ID {
		t.Errorf("expected account %s, got %s", account.ID, found.ID)
	}

	// Listing in tenant B must not include it either.
	listB, err := repo.List(ctxB, "", 100, 0)
	if err != nil {
		t.Fatalf("failed to list accounts in tenant B: %v", err)
	}
	for _, a := range listB {
		if a.ID == account.ID {
			t.Errorf("cross-tenant leakage: tenant B listed tenant A's account")
		}
	}
}

// A tenant id override remaps the physical partition: rows written under
// the override are invisible under the logical id.
func TestAccountRepository_TenantIDOverride(t *testing.T) {
	db := testDB(t)

	logical := "tenant-logical"
	physical := "legacy-42"

	ctxOverride := tenant.WithContext(context.Background(), &tenant.Context{
		Tenant:   &tenant.Tenant{ID: logical, Status: tenant.StatusActive},
		Pool:     db.Pool(),
		TenantID: physical,
	})
	ctxLogical := tenant.WithContext(context.Background(), &tenant.Context{
		Tenant:   &tenant.Tenant{ID: logical, Status: tenant.StatusActive},
		Pool:     db.Pool(),
		TenantID: logical,
	})

	repo := NewAccountRepository()

	account := &crm.Account{
		ID:   uuid.Must(uuid.NewV7()).String(),
		Name: "Override Test Venue",
		Type: crm.AccountTypeProspect,
	}
	if err := repo.Create(ctxOverride, account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	defer db.Pool().Exec(context.Background(), "DELETE FROM accounts WHERE id = $1", account.ID)

	if account.TenantID != physical {
		t.Errorf("expected row written under physical id %q, got %q", physical, account.TenantID)
	}

	if _, err := repo.GetByID(ctxLogical, account.ID); err != crm.ErrAccountNotFound {
		t.Errorf("expected ErrAccountNotFound under logical id, got %v", err)
	}

	if _, err := repo.GetByID(ctxOverride, account.ID); err != nil {
		t.Errorf("failed to get account under physical id: %v", err)
	}
}
