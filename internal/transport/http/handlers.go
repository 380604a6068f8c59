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
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/venuecore/venuecore/internal/apitoken"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/billing"
	"github.com/venuecore/venuecore/internal/comms"
	"github.com/venuecore/venuecore/internal/crm"
	"github.com/venuecore/venuecore/internal/events"
	"github.com/venuecore/venuecore/internal/identity"
	"github.com/venuecore/venuecore/internal/inventory"
	"github.com/venuecore/venuecore/internal/session"
	"github.com/venuecore/venuecore/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService  *identity.Service
	sessionService   *session.Service
	tenantService    *tenant.Service
	crmService       *crm.Service
	eventService     *events.Service
	billingService   *billing.Service
	inventoryService *inventory.Service
	commsService     *comms.Service
	apiTokenService  *apitoken.Service
	resolver         *tenant.Resolver
	auditLogger      audit.Logger
	sessionConfig    SessionConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	CookieMaxAge   int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	sessionService *session.Service,
	tenantService *tenant.Service,
	crmService *crm.Service,
	eventService *events.Service,
	billingService *billing.Service,
	inventoryService *inventory.Service,
	commsService *comms.Service,
	apiTokenService *apitoken.Service,
	resolver *tenant.Resolver,
	auditLogger audit.Logger,
	sessionConfig SessionConfig,
) *Handler {
	return &Handler{
		identityService:  identityService,
		sessionService:   sessionService,
		tenantService:    tenantService,
		crmService:       crmService,
		eventService:     eventService,
		billingService:   billingService,
		inventoryService: inventoryService,
		commsService:     commsService,
		apiTokenService:  apiTokenService,
		resolver:         resolver,
		auditLogger:      auditLogger,
		sessionConfig:    sessionConfig,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated: login establishes the session that carries
		// tenant context for everything else.
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		// Session-authenticated, tenant-scoped routes. Fail closed: no
		// session, no tenant, no data.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(h.CSRFMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/change-password", h.ChangePassword)

			// Current tenant and its staff
			r.Route("/tenant", func(r chi.Router) {
				r.Get("/", h.GetCurrentTenant)
				r.Get("/members", h.ListMembers)

				// Staff, role and token management is for owners
				// and admins.
				r.Group(func(r chi.Router) {
					r.Use(h.RequireManager)
					r.Put("/", h.UpdateCurrentTenant)
					r.Post("/members/{userID}/roles", h.AssignRole)
					r.Delete("/members/{userID}/roles/{role}", h.RevokeRole)
					r.Post("/users", h.ProvisionUser)
					r.Get("/users", h.ListUsers)
					r.Delete("/users/{userID}", h.DeactivateUser)
					r.Route("/api-tokens", func(r chi.Router) {
						r.Post("/", h.IssueAPIToken)
						r.Get("/", h.ListAPITokens)
						r.Delete("/{tokenID}", h.RevokeAPIToken)
					})
				})
			})

			// Platform directory: tenants and data sources. Owners
			// and admins only.
			r.Route("/tenants", func(r chi.Router) {
				r.Use(h.RequireManager)
				r.Post("/", h.CreateTenant)
				r.Get("/", h.ListTenants)
				r.Get("/{tenantID}", h.GetTenant)
				r.Put("/{tenantID}", h.UpdateTenant)
				r.Post("/{tenantID}/suspend", h.SuspendTenant)
				r.Post("/{tenantID}/data-source", h.AssignDataSource)
			})
			r.Route("/data-sources", func(r chi.Router) {
				r.Use(h.RequireManager)
				r.Post("/", h.CreateDataSource)
				r.Get("/", h.ListDataSources)
			})

			// CRM
			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", h.CreateAccount)
				r.Get("/", h.ListAccounts)
				r.Get("/{accountID}", h.GetAccount)
				r.Put("/{accountID}", h.UpdateAccount)
				r.Delete("/{accountID}", h.DeleteAccount)
				r.Get("/{accountID}/communications", h.ListAccountCommunications)
			})
			r.Route("/contacts", func(r chi.Router) {
				r.Post("/", h.CreateContact)
				r.Get("/", h.ListContacts)
				r.Get("/{contactID}", h.GetContact)
				r.Put("/{contactID}", h.UpdateContact)
				r.Delete("/{contactID}", h.DeleteContact)
				r.Get("/{contactID}/communications", h.ListContactCommunications)
				r.Post("/{contactID}/email", h.SendContactEmail)
				r.Post("/{contactID}/sms", h.SendContactSMS)
			})
			r.Route("/leads", func(r chi.Router) {
				r.Post("/", h.CreateLead)
				r.Get("/", h.ListLeads)
				r.Get("/{leadID}", h.GetLead)
				r.Put("/{leadID}", h.UpdateLead)
				r.Put("/{leadID}/status", h.UpdateLeadStatus)
				r.Post("/{leadID}/convert", h.ConvertLead)
				r.Delete("/{leadID}", h.DeleteLead)
			})
			r.Route("/opportunities", func(r chi.Router) {
				r.Post("/", h.CreateOpportunity)
				r.Get("/", h.ListOpportunities)
				r.Get("/{oppID}", h.GetOpportunity)
				r.Put("/{oppID}/stage", h.UpdateOpportunityStage)
				r.Put("/{oppID}/line-items", h.SetOpportunityLineItems)
				r.Delete("/{oppID}", h.DeleteOpportunity)
			})

			// Events and staffing
			r.Route("/events", func(r chi.Router) {
				r.Post("/", h.CreateEvent)
				r.Get("/", h.ListEvents)
				r.Get("/{eventID}", h.GetEvent)
				r.Put("/{eventID}", h.UpdateEvent)
				r.Put("/{eventID}/status", h.TransitionEvent)
				r.Delete("/{eventID}", h.DeleteEvent)
				r.Post("/{eventID}/dates", h.AddEventDate)
				r.Get("/{eventID}/reservations", h.ListEventReservations)
			})
			r.Route("/event-dates/{dateID}", func(r chi.Router) {
				r.Delete("/", h.RemoveEventDate)
				r.Post("/staff", h.AssignStaff)
				r.Get("/staff", h.ListStaff)
			})
			r.Route("/staff-assignments/{assignmentID}", func(r chi.Router) {
				r.Post("/respond", h.RespondToAssignment)
				r.Delete("/", h.RemoveStaff)
			})

			// Billing
			r.Route("/invoices", func(r chi.Router) {
				r.Post("/", h.CreateInvoice)
				r.Get("/", h.ListInvoices)
				r.Get("/{invoiceID}", h.GetInvoice)
				r.Post("/{invoiceID}/issue", h.IssueInvoice)
				r.Post("/{invoiceID}/void", h.VoidInvoice)
				r.Post("/{invoiceID}/payments", h.RecordPayment)
				r.Get("/{invoiceID}/payments", h.ListPayments)
			})
			r.Route("/quotes", func(r chi.Router) {
				r.Post("/", h.CreateQuote)
				r.Get("/", h.ListQuotes)
				r.Get("/{quoteID}", h.GetQuote)
				r.Post("/{quoteID}/send", h.SendQuote)
				r.Post("/{quoteID}/accept", h.AcceptQuote)
				r.Post("/{quoteID}/decline", h.DeclineQuote)
			})
			r.Route("/contracts", func(r chi.Router) {
				r.Post("/", h.CreateContract)
				r.Get("/", h.ListContracts)
				r.Get("/{contractID}", h.GetContract)
				r.Post("/{contractID}/send", h.SendContract)
				r.Post("/{contractID}/sign", h.SignContract)
				r.Post("/{contractID}/cancel", h.CancelContract)
			})

			// Inventory
			r.Route("/inventory", func(r chi.Router) {
				r.Post("/items", h.CreateInventoryItem)
				r.Get("/items", h.ListInventoryItems)
				r.Get("/items/{itemID}", h.GetInventoryItem)
				r.Put("/items/{itemID}", h.UpdateInventoryItem)
				r.Delete("/items/{itemID}", h.DeleteInventoryItem)
				r.Post("/items/{itemID}/reserve", h.ReserveStock)
				r.Post("/reservations/{reservationID}/release", h.ReleaseReservation)
			})

			// Communications log
			r.Route("/communications", func(r chi.Router) {
				r.Post("/", h.LogCommunication)
				r.Get("/{commID}", h.GetCommunication)
			})
		})

		// Machine-to-machine integration routes, authenticated with a
		// signed API token.
		r.Group(func(r chi.Router) {
			r.Use(h.TokenAuthMiddleware)
			r.Post("/integrations/payments/webhook", h.PaymentWebhook)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "venuecore",
	})
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    sessionID,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   h.sessionConfig.CookieMaxAge,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset = queryInt(r, "offset", 0)
	return limit, offset
}
