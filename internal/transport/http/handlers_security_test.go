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

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/session"
	"github.com/venuecore/venuecore/internal/tenant"
)

// =============================================================================
// TENANT BOUNDARY TESTS
// Category: Auth Middleware - Tenant Context Derivation
// Type: Unit Test (UT)
// =============================================================================

type memSessionRepo struct {
	sessions map[string]*session.Session
}

func (m *memSessionRepo) Create(_ context.Context, s *session.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) Get(_ context.Context, id string) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.LastSeenAt = at
	}
	return nil
}

func (m *memSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type stubTenantRepo struct {
	tenants map[string]*tenant.Tenant
}

func (s *stubTenantRepo) Create(_ context.Context, t *tenant.Tenant) error { return nil }
func (s *stubTenantRepo) Update(_ context.Context, t *tenant.Tenant) error { return nil }
func (s *stubTenantRepo) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	return nil, nil
}

func (s *stubTenantRepo) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (s *stubTenantRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

type stubDataSourceRepo struct {
	sources map[string]*tenant.DataSource
}

func (s *stubDataSourceRepo) Create(_ context.Context, ds *tenant.DataSource) error { return nil }
func (s *stubDataSourceRepo) List(_ context.Context) ([]*tenant.DataSource, error)  { return nil, nil }

func (s *stubDataSourceRepo) GetByID(_ context.Context, id string) (*tenant.DataSource, error) {
	ds, ok := s.sources[id]
	if !ok {
		return nil, tenant.ErrDataSourceNotFound
	}
	return ds, nil
}

type stubMembershipRepo struct {
	grants map[string][]*tenant.Membership // keyed by user id
}

func (s *stubMembershipRepo) Grant(_ context.Context, m *tenant.Membership) error {
	s.grants[m.UserID] = append(s.grants[m.UserID], m)
	return nil
}

func (s *stubMembershipRepo) Revoke(_ context.Context, tenantID, userID, role string) error {
	return nil
}

func (s *stubMembershipRepo) GetUserRoles(_ context.Context, tenantID, userID string) ([]*tenant.Membership, error) {
	return s.grants[userID], nil
}

func (s *stubMembershipRepo) ListMembers(_ context.Context, tenantID string) ([]*tenant.Membership, error) {
	return nil, nil
}

type stubPoolProvider struct{}

func (stubPoolProvider) Acquire(_ context.Context, _ *tenant.DataSource) (*pgxpool.Pool, error) {
	return nil, nil
}
func (stubPoolProvider) Evict(string) {}

// createMinimalHandler wires a Handler with in-memory session storage and a
// single active tenant. Only the pieces the middleware touches are real.
func createMinimalHandler(t *testing.T) (*Handler, *memSessionRepo, *stubMembershipRepo) {
	t.Helper()

	sessions := &memSessionRepo{sessions: make(map[string]*session.Session)}
	tenants := &stubTenantRepo{tenants: map[string]*tenant.Tenant{
		"tenant-1": {ID: "tenant-1", Slug: "acme", Status: tenant.StatusActive, DataSourceID: "ds-1"},
	}}
	sources := &stubDataSourceRepo{sources: map[string]*tenant.DataSource{
		"ds-1": {ID: "ds-1", Name: "primary", Host: "localhost", Port: "5432", Database: "venuecore"},
	}}
	memberships := &stubMembershipRepo{grants: make(map[string][]*tenant.Membership)}

	resolver := tenant.NewResolver(tenants, sources, stubPoolProvider{}, time.Minute)
	sessionService := session.NewService(sessions, 24*time.Hour, time.Hour)
	tenantService := tenant.NewService(tenants, sources, memberships, audit.NewSlogLogger(), resolver)

	h := NewHandler(nil, sessionService, tenantService, nil, nil, nil, nil, nil, nil, resolver, nil, SessionConfig{
		CookieName: "venuecore_session",
	})
	return h, sessions, memberships
}

func seedSession(repo *memSessionRepo, id, tenantID string) {
	repo.sessions[id] = &session.Session{
		ID:         id,
		TenantID:   tenantID,
		UserID:     "user-1",
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestPurpose: Validates that requests without a session cookie are rejected.
// Scope: Unit Test
// Security: Authentication boundary check
// Expected: Returns HTTP 401 Unauthorized.
func TestAuthMiddleware_NoCookie_ReturnsUnauthorized(t *testing.T) {
	h, _, _ := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()

	h.AuthMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"request without a session cookie should return 401")
}

// TestPurpose: Validates that an expired session is rejected and the cookie cleared.
// Scope: Unit Test
// Security: Session lifetime enforcement
// Expected: Returns HTTP 401 Unauthorized.
func TestAuthMiddleware_ExpiredSession_ReturnsUnauthorized(t *testing.T) {
	h, sessions, _ := createMinimalHandler(t)
	seedSession(sessions, "sess-expired-0000000000", "tenant-1")
	sessions.sessions["sess-expired-0000000000"].ExpiresAt = time.Now().Add(-time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-expired-0000000000"})
	w := httptest.NewRecorder()

	h.AuthMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestPurpose: Validates that the X-Tenant-ID header is rejected on
// authenticated routes. Tenant context comes only from the session; a
// client-supplied tenant id is treated as a spoofing attempt.
// Scope: Unit Test
// Security: Tenant isolation boundary (horizontal privilege escalation)
// Expected: Returns HTTP 400 Bad Request; the downstream handler never runs.
func TestAuthMiddleware_TenantHeader_IsRejected(t *testing.T) {
	h, sessions, _ := createMinimalHandler(t)
	seedSession(sessions, "sess-valid-000000000000", "tenant-1")

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
	req.Header.Set("X-Tenant-ID", "some-other-tenant")
	w := httptest.NewRecorder()

	h.AuthMiddleware(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"X-Tenant-ID on an authenticated request must be rejected")
	assert.False(t, reached, "handler must not run when the tenant header is present")
	assert.Contains(t, w.Body.String(), "derived from session")
}

// TestPurpose: Validates that a valid session resolves tenant context and the
// request proceeds with the session's tenant, not anything client-supplied.
// Scope: Unit Test
// Expected: Downstream handler observes the resolved tenant context.
func TestAuthMiddleware_ValidSession_ResolvesTenantContext(t *testing.T) {
	h, sessions, _ := createMinimalHandler(t)
	seedSession(sessions, "sess-valid-000000000000", "tenant-1")

	var got *tenant.Context
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, err := tenant.FromContext(r.Context())
		assert.NoError(t, err)
		got = tc
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
	w := httptest.NewRecorder()

	h.AuthMiddleware(next).ServeHTTP(w, req)

	if assert.NotNil(t, got, "tenant context should be set for downstream handlers") {
		assert.Equal(t, "tenant-1", got.TenantID)
		assert.Equal(t, "user-1", got.UserID)
	}
}

// TestPurpose: Validates that a session bound to a suspended tenant is
// refused even though the session itself is valid.
// Scope: Unit Test
// Security: Fail-closed tenant resolution
// Expected: Returns HTTP 403 Forbidden.
func TestAuthMiddleware_SuspendedTenant_ReturnsForbidden(t *testing.T) {
	h, sessions, _ := createMinimalHandler(t)
	seedSession(sessions, "sess-valid-000000000000", "tenant-1")

	// Suspend the tenant behind the session's back; the resolver must
	// fail closed rather than serve cached-forever state.
	newResolver := tenant.NewResolver(&stubTenantRepo{tenants: map[string]*tenant.Tenant{
		"tenant-1": {ID: "tenant-1", Slug: "acme", Status: tenant.StatusSuspended, DataSourceID: "ds-1"},
	}}, &stubDataSourceRepo{sources: map[string]*tenant.DataSource{
		"ds-1": {ID: "ds-1", Name: "primary", Host: "localhost", Port: "5432", Database: "venuecore"},
	}}, stubPoolProvider{}, time.Minute)
	h.resolver = newResolver

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
	w := httptest.NewRecorder()

	h.AuthMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "suspended")
}

// =============================================================================
// CSRF TESTS
// Category: Security - Cross-Site Request Forgery
// Type: Unit Test (UT)
// =============================================================================

func TestCSRFMiddleware_MutationWithoutToken_ReturnsForbidden(t *testing.T) {
	h, _, _ := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.CSRFMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code,
		"POST without X-CSRF-Token should be refused")
}

func TestCSRFMiddleware_ReadRequests_PassThrough(t *testing.T) {
	h, _, _ := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()

	h.CSRFMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "GET requests are exempt from the header check")
}

func TestCSRFMiddleware_MutationWithToken_PassesThrough(t *testing.T) {
	h, _, _ := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{}`))
	req.Header.Set("X-CSRF-Token", "csrf-token-value")
	w := httptest.NewRecorder()

	h.CSRFMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// API TOKEN AUTH TESTS
// Category: Integration Surface - Bearer Token Handling
// Type: Unit Test (UT)
// =============================================================================

func TestTokenAuthMiddleware_MissingBearer_ReturnsUnauthorized(t *testing.T) {
	h, _, _ := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/integration/v1/events", nil)
	w := httptest.NewRecorder()

	h.TokenAuthMiddleware(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")
}

// =============================================================================
// ROLE ENFORCEMENT TESTS
// Category: Authorization - Management Route Access
// Type: Unit Test (UT)
// =============================================================================

func grantRole(repo *stubMembershipRepo, userID, role string) {
	repo.grants[userID] = append(repo.grants[userID], &tenant.Membership{
		TenantID: "tenant-1",
		UserID:   userID,
		Role:     role,
	})
}

// TestPurpose: Validates that a viewer cannot reach management routes even
// with a valid session. Authorization is checked against stored role
// assignments, not anything client-supplied.
// Scope: Unit Test
// Security: Vertical privilege escalation
// Expected: Returns HTTP 403 Forbidden; the downstream handler never runs.
func TestRequireManager_Viewer_ReturnsForbidden(t *testing.T) {
	h, sessions, memberships := createMinimalHandler(t)
	seedSession(sessions, "sess-valid-000000000000", "tenant-1")
	grantRole(memberships, "user-1", tenant.RoleViewer)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
	w := httptest.NewRecorder()

	h.AuthMiddleware(h.RequireManager(next)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code,
		"viewer must not reach management routes")
	assert.False(t, reached, "handler must not run for a viewer")
	assert.Contains(t, w.Body.String(), "owner or admin")
}

// TestPurpose: Validates that a user with no role assignments at all is
// refused on management routes.
// Scope: Unit Test
// Expected: Returns HTTP 403 Forbidden.
func TestRequireManager_NoMembership_ReturnsForbidden(t *testing.T) {
	h, sessions, _ := createMinimalHandler(t)
	seedSession(sessions, "sess-valid-000000000000", "tenant-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/data-sources", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
	w := httptest.NewRecorder()

	h.AuthMiddleware(h.RequireManager(okHandler())).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestPurpose: Validates that owners and admins pass the management check.
// Scope: Unit Test
// Expected: Downstream handler runs and returns HTTP 200.
func TestRequireManager_OwnerAndAdmin_PassThrough(t *testing.T) {
	for _, role := range []string{tenant.RoleOwner, tenant.RoleAdmin} {
		h, sessions, memberships := createMinimalHandler(t)
		seedSession(sessions, "sess-valid-000000000000", "tenant-1")
		grantRole(memberships, "user-1", role)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", strings.NewReader(`{}`))
		req.AddCookie(&http.Cookie{Name: "venuecore_session", Value: "sess-valid-000000000000"})
		w := httptest.NewRecorder()

		h.AuthMiddleware(h.RequireManager(okHandler())).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "role %s should pass the management check", role)
	}
}
