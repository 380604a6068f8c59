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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/venuecore/venuecore/internal/observability/logger"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Tenant Context Principles:
// 1. Tenant context is derived EXCLUSIVELY from the session (or from a
//    verified API token on integration routes).
// 2. The X-Tenant-ID header is forbidden and rejected on authenticated
//    requests.
// 3. Repositories never accept a tenant id from request input; they read
//    the resolved context.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Log request start
			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware validates the session cookie and resolves the tenant
// context: session → logical tenant → data source → pooled connection.
// Everything downstream reads the resolved context; nothing re-derives
// tenant from request input.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := h.getSessionFromCookie(r)
		if sessionID == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		sess, err := h.sessionService.Get(r.Context(), sessionID)
		if err != nil {
			h.clearSessionCookie(w)
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		// Reject X-Tenant-ID on authenticated requests. Tenant context
		// comes from the session, full stop.
		if r.Header.Get("X-Tenant-ID") != "" {
			slog.WarnContext(r.Context(), "tenant header spoofing attempt detected on authenticated route",
				logger.SessionID(sess.ID[:8]+"..."),
				logger.UserID(sess.UserID),
			)
			respondError(w, http.StatusBadRequest, "X-Tenant-ID header is not allowed on authenticated requests; tenant is derived from session")
			return
		}

		tc, err := h.resolver.Resolve(r.Context(), sess)
		if err != nil {
			switch err {
			case tenant.ErrTenantSuspended:
				respondError(w, http.StatusForbidden, "tenant is suspended")
			case tenant.ErrTenantNotFound:
				respondError(w, http.StatusForbidden, "tenant not found")
			default:
				slog.ErrorContext(r.Context(), "failed to resolve tenant context",
					logger.Error(err),
					logger.TenantID(sess.TenantID),
				)
				respondError(w, http.StatusServiceUnavailable, "tenant data source unavailable")
			}
			return
		}

		if err := h.sessionService.Refresh(r.Context(), sessionID); err != nil {
			slog.ErrorContext(r.Context(), "failed to refresh session", logger.Error(err))
		}

		ctx := tenant.WithContext(r.Context(), tc)
		ctx = context.WithValue(ctx, userIDKey, sess.UserID)
		ctx = context.WithValue(ctx, sessionIDKey, sess.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenAuthMiddleware authenticates integration routes with a bearer API
// token and resolves the token's tenant context. No session is involved.
func (h *Handler) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.apiTokenService.Verify(r.Context(), strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid api token")
			return
		}

		tc, err := h.resolver.ResolveTenant(r.Context(), claims.TenantID)
		if err != nil {
			switch err {
			case tenant.ErrTenantSuspended:
				respondError(w, http.StatusForbidden, "tenant is suspended")
			default:
				respondError(w, http.StatusServiceUnavailable, "tenant data source unavailable")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), tc)))
	})
}

// RequireManager restricts a route subtree to tenant owners and admins.
// Role assignments come from the directory, never from the request.
func (h *Handler) RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, err := tenant.FromContext(r.Context())
		if err != nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		userID := GetUserID(r.Context())
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		memberships, err := h.tenantService.GetUserRoles(r.Context(), tc.Tenant.ID, userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load role assignments",
				logger.Error(err),
				logger.UserID(userID),
				logger.TenantID(tc.Tenant.ID),
			)
			respondError(w, http.StatusServiceUnavailable, "role lookup unavailable")
			return
		}
		for _, m := range memberships {
			if tenant.CanManage(m.Role) {
				next.ServeHTTP(w, r)
				return
			}
		}

		slog.WarnContext(r.Context(), "management route denied",
			logger.UserID(userID),
			logger.TenantID(tc.Tenant.ID),
			logger.Path(r.URL.Path),
		)
		respondError(w, http.StatusForbidden, "requires tenant owner or admin role")
	})
}

// CSRFMiddleware protects state-changing requests with a custom header
// check.
func (h *Handler) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || r.Method == http.MethodTrace {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("X-CSRF-Token") == "" {
			slog.WarnContext(r.Context(), "missing CSRF token header",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			respondError(w, http.StatusForbidden, "CSRF protection: X-CSRF-Token header is required for state-changing operations")
			return
		}

		next.ServeHTTP(w, r)
	})
}
