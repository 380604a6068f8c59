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

	"github.com/go-chi/chi/v5"
	"github.com/venuecore/venuecore/internal/crm"
)

// --- Accounts ---

// CreateAccount creates an account
// @Summary Create Account
// @Tags CRM
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body crm.Account true "Account Data"
// @Success 201 {object} crm.Account
// @Failure 400 {object} map[string]string
// @Router /accounts [post]
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var account crm.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.crmService.CreateAccount(r.Context(), &account)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetAccount retrieves an account by ID
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.crmService.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// ListAccounts lists accounts, optionally filtered by a name search
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	accounts, err := h.crmService.ListAccounts(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// UpdateAccount updates an account
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var account crm.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account.ID = chi.URLParam(r, "accountID")

	updated, err := h.crmService.UpdateAccount(r.Context(), &account)
	if err != nil {
		if err == crm.ErrAccountNotFound {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteAccount soft-deletes an account
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.crmService.DeleteAccount(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		if err == crm.ErrAccountNotFound {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// --- Contacts ---

// CreateContact creates a contact
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var contact crm.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.crmService.CreateContact(r.Context(), &contact)
	if err != nil {
		if err == crm.ErrAccountNotFound {
			respondError(w, http.StatusBadRequest, "account not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetContact retrieves a contact by ID
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.crmService.GetContact(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// ListContacts lists contacts, optionally filtered by account
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	contacts, err := h.crmService.ListContacts(r.Context(), r.URL.Query().Get("account_id"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

// UpdateContact updates a contact
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var contact crm.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	contact.ID = chi.URLParam(r, "contactID")

	updated, err := h.crmService.UpdateContact(r.Context(), &contact)
	if err != nil {
		if err == crm.ErrContactNotFound {
			respondError(w, http.StatusNotFound, "contact not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteContact soft-deletes a contact
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.crmService.DeleteContact(r.Context(), chi.URLParam(r, "contactID")); err != nil {
		if err == crm.ErrContactNotFound {
			respondError(w, http.StatusNotFound, "contact not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "contact deleted"})
}

// --- Leads ---

// CreateLead creates a lead
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead crm.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.crmService.CreateLead(r.Context(), &lead)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetLead retrieves a lead by ID
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.crmService.GetLead(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// ListLeads lists leads, optionally filtered by status
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	leads, err := h.crmService.ListLeads(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// UpdateLead updates a lead's contact details
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var lead crm.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lead.ID = chi.URLParam(r, "leadID")

	updated, err := h.crmService.UpdateLead(r.Context(), &lead)
	if err != nil {
		switch err {
		case crm.ErrLeadNotFound:
			respondError(w, http.StatusNotFound, "lead not found")
		case crm.ErrLeadConverted:
			respondError(w, http.StatusConflict, "lead has already been converted")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// UpdateLeadStatusRequest represents a lead status change
type UpdateLeadStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLeadStatus moves a lead through the qualification pipeline
func (h *Handler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := h.crmService.UpdateLeadStatus(r.Context(), chi.URLParam(r, "leadID"), req.Status)
	if err != nil {
		switch err {
		case crm.ErrLeadNotFound:
			respondError(w, http.StatusNotFound, "lead not found")
		case crm.ErrLeadConverted:
			respondError(w, http.StatusConflict, "lead already converted")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// ConvertLeadRequest represents lead conversion data
type ConvertLeadRequest struct {
	OpportunityName string `json:"opportunity_name"`
	AmountCents     int64  `json:"amount_cents"`
}

// ConvertLead converts a lead into an account and contact, optionally
// opening an opportunity
// @Summary Convert Lead
// @Tags CRM
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param leadID path string true "Lead ID"
// @Param request body ConvertLeadRequest true "Conversion Data"
// @Success 200 {object} crm.ConvertLeadResult
// @Failure 409 {object} map[string]string
// @Router /leads/{leadID}/convert [post]
func (h *Handler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	var req ConvertLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.crmService.ConvertLead(r.Context(), chi.URLParam(r, "leadID"), req.OpportunityName, req.AmountCents)
	if err != nil {
		switch err {
		case crm.ErrLeadNotFound:
			respondError(w, http.StatusNotFound, "lead not found")
		case crm.ErrLeadConverted:
			respondError(w, http.StatusConflict, "lead already converted")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DeleteLead soft-deletes a lead
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.crmService.DeleteLead(r.Context(), chi.URLParam(r, "leadID")); err != nil {
		if err == crm.ErrLeadNotFound {
			respondError(w, http.StatusNotFound, "lead not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete lead")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "lead deleted"})
}

// --- Opportunities ---

// CreateOpportunity creates an opportunity
func (h *Handler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp crm.Opportunity
	if err := json.NewDecoder(r.Body).Decode(&opp); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.crmService.CreateOpportunity(r.Context(), &opp)
	if err != nil {
		if err == crm.ErrAccountNotFound {
			respondError(w, http.StatusBadRequest, "account not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetOpportunity retrieves an opportunity with its line items
func (h *Handler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := h.crmService.GetOpportunity(r.Context(), chi.URLParam(r, "oppID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "opportunity not found")
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// ListOpportunities lists opportunities filtered by account and stage
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	opps, err := h.crmService.ListOpportunities(r.Context(), q.Get("account_id"), q.Get("stage"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}

// UpdateOpportunityStageRequest represents a stage change
type UpdateOpportunityStageRequest struct {
	Stage string `json:"stage"`
}

// UpdateOpportunityStage moves an opportunity through the pipeline
func (h *Handler) UpdateOpportunityStage(w http.ResponseWriter, r *http.Request) {
	var req UpdateOpportunityStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opp, err := h.crmService.UpdateOpportunityStage(r.Context(), chi.URLParam(r, "oppID"), req.Stage)
	if err != nil {
		switch err {
		case crm.ErrOpportunityNotFound:
			respondError(w, http.StatusNotFound, "opportunity not found")
		case crm.ErrStageTransition:
			respondError(w, http.StatusConflict, "invalid stage transition")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// SetLineItemsRequest represents a full replacement of an
// opportunity's line items
type SetLineItemsRequest struct {
	LineItems []*crm.LineItem `json:"line_items"`
}

// SetOpportunityLineItems replaces an opportunity's line items and
// reprices it
func (h *Handler) SetOpportunityLineItems(w http.ResponseWriter, r *http.Request) {
	var req SetLineItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opp, err := h.crmService.SetOpportunityLineItems(r.Context(), chi.URLParam(r, "oppID"), req.LineItems)
	if err != nil {
		if err == crm.ErrOpportunityNotFound {
			respondError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// DeleteOpportunity soft-deletes an opportunity
func (h *Handler) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	if err := h.crmService.DeleteOpportunity(r.Context(), chi.URLParam(r, "oppID")); err != nil {
		if err == crm.ErrOpportunityNotFound {
			respondError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete opportunity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "opportunity deleted"})
}
