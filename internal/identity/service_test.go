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
	"strings"
	"testing"
	"time"

	"github.com/venuecore/venuecore/internal/audit"
)

type memUserRepo struct {
	users       map[string]*User
	credentials map[string]*Credentials
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:       make(map[string]*User),
		credentials: make(map[string]*Credentials),
	}
}

func (m *memUserRepo) Create(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) AddCredentials(_ context.Context, c *Credentials) error {
	m.credentials[c.UserID] = c
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, tenantID, email string) (*User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUserRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) UpdateLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) GetCredentials(_ context.Context, userID string) (*Credentials, error) {
	c, ok := m.credentials[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return c, nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	c, ok := m.credentials[userID]
	if !ok {
		return ErrUserNotFound
	}
	c.PasswordHash = passwordHash
	return nil
}

// testHasher uses deliberately cheap argon2 parameters so the suite stays fast.
func testHasher() *PasswordHasher {
	return NewPasswordHasher(8*1024, 1, 1, 16, 32)
}

func newIdentityService(repo *memUserRepo) *Service {
	return NewService(repo, testHasher(), audit.NewSlogLogger(), 3, 15*time.Minute)
}

func provisionWithPassword(t *testing.T, s *Service, tenantID, email, password string) *User {
	t.Helper()
	u, err := s.ProvisionUser(context.Background(), tenantID, email, "Test User")
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if err := s.AddPassword(context.Background(), u.ID, password); err != nil {
		t.Fatalf("add password failed: %v", err)
	}
	return u
}

func TestIdentity_ProvisionUser(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u, err := s.ProvisionUser(ctx, "tenant-1", "ops@example.com", "Pat Ops")
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if u.Status != UserStatusActive {
		t.Errorf("new user should be active, got %s", u.Status)
	}
	if u.TenantID != "tenant-1" {
		t.Errorf("tenant not recorded, got %q", u.TenantID)
	}

	if _, err := s.ProvisionUser(ctx, "tenant-1", "ops@example.com", "Duplicate"); err != ErrUserAlreadyExists {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := s.ProvisionUser(ctx, "tenant-1", "not-an-email", "X"); err != ErrInvalidEmail {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}

	// The same email is allowed in a different tenant.
	if _, err := s.ProvisionUser(ctx, "tenant-2", "ops@example.com", "Other Tenant"); err != nil {
		t.Errorf("same email in another tenant should be allowed, got %v", err)
	}
}

func TestIdentity_Authenticate(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u := provisionWithPassword(t, s, "tenant-1", "ops@example.com", "correct-horse-battery")

	got, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("wrong user returned")
	}

	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	// Unknown users and wrong passwords are indistinguishable to the caller.
	if _, err := s.Authenticate(ctx, "tenant-1", "nobody@example.com", "whatever"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	// A user cannot authenticate through another tenant.
	if _, err := s.Authenticate(ctx, "tenant-2", "ops@example.com", "correct-horse-battery"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials across tenants, got %v", err)
	}
}

func TestIdentity_Authenticate_LockoutAfterRepeatedFailures(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	provisionWithPassword(t, s, "tenant-1", "ops@example.com", "correct-horse-battery")

	for i := 0; i < 3; i++ {
		if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "wrong"); err != ErrInvalidCredentials {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The third failure locks the account; even the right password is refused.
	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "correct-horse-battery"); err != ErrAccountLocked {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}
}

func TestIdentity_Authenticate_SuccessResetsFailureCount(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u := provisionWithPassword(t, s, "tenant-1", "ops@example.com", "correct-horse-battery")

	s.Authenticate(ctx, "tenant-1", "ops@example.com", "wrong")
	s.Authenticate(ctx, "tenant-1", "ops@example.com", "wrong")

	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if repo.users[u.ID].FailedLoginAttempts != 0 {
		t.Errorf("failure count should reset on success, got %d", repo.users[u.ID].FailedLoginAttempts)
	}
}

func TestIdentity_Authenticate_DeactivatedUser(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u := provisionWithPassword(t, s, "tenant-1", "ops@example.com", "correct-horse-battery")
	if err := s.DeactivateUser(ctx, u.ID, "admin-1"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	// A deactivated user is indistinguishable from an unknown one.
	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "correct-horse-battery"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for deactivated user, got %v", err)
	}
}

func TestIdentity_AddPassword_RejectsWeak(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u, err := s.ProvisionUser(ctx, "tenant-1", "ops@example.com", "Pat Ops")
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	if err := s.AddPassword(ctx, u.ID, "short"); err != ErrWeakPassword {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

func TestIdentity_ChangePassword(t *testing.T) {
	repo := newMemUserRepo()
	s := newIdentityService(repo)
	ctx := context.Background()

	u := provisionWithPassword(t, s, "tenant-1", "ops@example.com", "correct-horse-battery")

	if err := s.ChangePassword(ctx, u.ID, "wrong-old", "new-password-123"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for wrong old password, got %v", err)
	}
	if err := s.ChangePassword(ctx, u.ID, "correct-horse-battery", "new-password-123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "new-password-123"); err != nil {
		t.Errorf("new password should authenticate, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "tenant-1", "ops@example.com", "correct-horse-battery"); err != ErrInvalidCredentials {
		t.Errorf("old password should be rejected, got %v", err)
	}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("some-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", encoded)
	}

	ok, err := h.Verify("some-password", encoded)
	if err != nil || !ok {
		t.Errorf("verify should succeed, ok=%v err=%v", ok, err)
	}
	ok, _ = h.Verify("other-password", encoded)
	if ok {
		t.Error("verify must fail for the wrong password")
	}
}
