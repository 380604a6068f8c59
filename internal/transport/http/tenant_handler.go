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
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/venuecore/venuecore/internal/identity"
	"github.com/venuecore/venuecore/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Plan         string `json:"plan"`
	DataSourceID string `json:"data_source_id"`
}

// CreateTenant creates a new tenant
// @Summary Create Tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateTenantRequest true "Tenant Data"
// @Success 201 {object} tenant.Tenant
// @Failure 400 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), req.Name, req.Slug, req.Plan, req.DataSourceID, GetUserID(r.Context()))
	if err != nil {
		if err == tenant.ErrDataSourceNotFound {
			respondError(w, http.StatusBadRequest, "data source not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListTenants lists tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// GetTenant retrieves a tenant by ID
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTenantRequest represents tenant update data
type UpdateTenantRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// UpdateTenant updates a tenant's name and plan
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.UpdateTenant(r.Context(), chi.URLParam(r, "tenantID"), req.Name, req.Plan)
	if err != nil {
		if err == tenant.ErrTenantNotFound {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// SuspendTenant suspends a tenant. In-flight sessions lose access at the
// next resolve.
func (h *Handler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.tenantService.SuspendTenant(r.Context(), chi.URLParam(r, "tenantID"), GetUserID(r.Context())); err != nil {
		if err == tenant.ErrTenantNotFound {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to suspend tenant")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "tenant suspended"})
}

// AssignDataSourceRequest picks the physical database a tenant lives in
type AssignDataSourceRequest struct {
	DataSourceID string `json:"data_source_id"`
}

// AssignDataSource moves a tenant to a data source
func (h *Handler) AssignDataSource(w http.ResponseWriter, r *http.Request) {
	var req AssignDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.tenantService.AssignDataSource(r.Context(), chi.URLParam(r, "tenantID"), req.DataSourceID, GetUserID(r.Context()))
	if err != nil {
		switch err {
		case tenant.ErrTenantNotFound:
			respondError(w, http.StatusNotFound, "tenant not found")
		case tenant.ErrDataSourceNotFound:
			respondError(w, http.StatusBadRequest, "data source not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to assign data source")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "data source assigned"})
}

// CreateDataSourceRequest represents data source registration
type CreateDataSourceRequest struct {
	Name             string `json:"name"`
	Host             string `json:"host"`
	Port             string `json:"port"`
	User             string `json:"user"`
	Password         string `json:"password"`
	Database         string `json:"database"`
	SSLMode          string `json:"ssl_mode"`
	TenantIDOverride string `json:"tenant_id_override"`
}

// CreateDataSource registers a physical database
func (h *Handler) CreateDataSource(w http.ResponseWriter, r *http.Request) {
	var req CreateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ds, err := h.tenantService.CreateDataSource(r.Context(), &tenant.DataSource{
		Name:             req.Name,
		Host:             req.Host,
		Port:             req.Port,
		User:             req.User,
		Password:         req.Password,
		Database:         req.Database,
		SSLMode:          req.SSLMode,
		TenantIDOverride: req.TenantIDOverride,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, ds)
}

// ListDataSources lists registered data sources. Credentials are never
// serialized.
func (h *Handler) ListDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.tenantService.ListDataSources(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list data sources")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data_sources": sources})
}

// GetCurrentTenant returns the session's resolved tenant
func (h *Handler) GetCurrentTenant(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}
	respondJSON(w, http.StatusOK, tc.Tenant)
}

// UpdateCurrentTenant updates the session's tenant
func (h *Handler) UpdateCurrentTenant(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.UpdateTenant(r.Context(), tc.Tenant.ID, req.Name, req.Plan)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ListMembers lists the current tenant's memberships
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	members, err := h.tenantService.ListMembers(r.Context(), tc.Tenant.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// AssignRoleRequest represents role assignment data
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// AssignRole grants a role to a user in the current tenant
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.tenantService.AssignRole(r.Context(), tc.Tenant.ID, chi.URLParam(r, "userID"), req.Role, GetUserID(r.Context()))
	if err != nil {
		if err == tenant.ErrMembershipExists {
			respondError(w, http.StatusConflict, "role already granted")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "role granted"})
}

// RevokeRole removes a role from a user in the current tenant
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	err = h.tenantService.RevokeRole(r.Context(), tc.Tenant.ID, chi.URLParam(r, "userID"), chi.URLParam(r, "role"), GetUserID(r.Context()))
	if err != nil {
		if err == tenant.ErrMembershipNotFound {
			respondError(w, http.StatusNotFound, "membership not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to revoke role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "role revoked"})
}

// ProvisionUserRequest represents staff user provisioning data
type ProvisionUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ProvisionUser creates a staff user in the current tenant
func (h *Handler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	var req ProvisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.ProvisionUser(r.Context(), tc.Tenant.ID, req.Email, req.Name)
	if err != nil {
		switch err {
		case identity.ErrUserAlreadyExists:
			respondError(w, http.StatusConflict, "user already exists")
		case identity.ErrInvalidEmail:
			respondError(w, http.StatusBadRequest, "invalid email address")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	if req.Password != "" {
		if err := h.identityService.AddPassword(r.Context(), user.ID, req.Password); err != nil {
			respondError(w, http.StatusBadRequest, "failed to set password: "+err.Error())
			return
		}
	}

	if req.Role != "" {
		if err := h.tenantService.AssignRole(r.Context(), tc.Tenant.ID, user.ID, req.Role, GetUserID(r.Context())); err != nil {
			respondError(w, http.StatusBadRequest, "user created but role grant failed: "+err.Error())
			return
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// ListUsers lists the current tenant's staff users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	limit, offset := pagination(r)
	users, err := h.identityService.ListUsers(r.Context(), tc.Tenant.ID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// DeactivateUser deactivates a staff user and destroys their sessions
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.identityService.DeactivateUser(r.Context(), userID, GetUserID(r.Context())); err != nil {
		if err == identity.ErrUserNotFound {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to deactivate user")
		return
	}

	if err := h.sessionService.DestroyAllForUser(r.Context(), userID); err != nil {
		respondError(w, http.StatusInternalServerError, "user deactivated but session cleanup failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

// IssueAPITokenRequest represents api token issuance data
type IssueAPITokenRequest struct {
	Name    string `json:"name"`
	TTLDays int    `json:"ttl_days"`
}

// IssueAPIToken issues a signed API token for the current tenant. The
// signed token is returned once and never stored.
func (h *Handler) IssueAPIToken(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	var req IssueAPITokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TTLDays <= 0 {
		req.TTLDays = 90
	}

	token, signed, err := h.apiTokenService.Issue(r.Context(), tc.Tenant.ID, req.Name, time.Duration(req.TTLDays)*24*time.Hour, GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token_id":   token.ID,
		"name":       token.Name,
		"expires_at": token.ExpiresAt,
		"token":      signed,
	})
}

// ListAPITokens lists the current tenant's token records
func (h *Handler) ListAPITokens(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	tokens, err := h.apiTokenService.List(r.Context(), tc.Tenant.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list api tokens")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// RevokeAPIToken revokes an api token
func (h *Handler) RevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	tc, err := tenant.FromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no tenant context")
		return
	}

	if err := h.apiTokenService.Revoke(r.Context(), tc.Tenant.ID, chi.URLParam(r, "tokenID"), GetUserID(r.Context())); err != nil {
		respondError(w, http.StatusNotFound, "api token not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "api token revoked"})
}
