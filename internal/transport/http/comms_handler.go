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
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/venuecore/venuecore/internal/comms"
	"github.com/venuecore/venuecore/internal/crm"
)

// LogCommunication records an externally handled touchpoint such as a
// call or a note
// @Summary Log Communication
// @Tags Communications
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body comms.Communication true "Communication Data"
// @Success 201 {object} comms.Communication
// @Failure 400 {object} map[string]string
// @Router /communications [post]
func (h *Handler) LogCommunication(w http.ResponseWriter, r *http.Request) {
	var c comms.Communication
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	logged, err := h.commsService.Log(r.Context(), &c)
	if err != nil {
		switch err {
		case comms.ErrUnknownChannel:
			respondError(w, http.StatusBadRequest, "unknown channel")
		case comms.ErrEmptyMessage:
			respondError(w, http.StatusBadRequest, "message body is required")
		case crm.ErrContactNotFound:
			respondError(w, http.StatusBadRequest, "contact not found")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, logged)
}

// GetCommunication retrieves a communication record by ID
func (h *Handler) GetCommunication(w http.ResponseWriter, r *http.Request) {
	c, err := h.commsService.Get(r.Context(), chi.URLParam(r, "commID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "communication not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// ListContactCommunications lists a contact's communication history
func (h *Handler) ListContactCommunications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.commsService.ListByContact(r.Context(), chi.URLParam(r, "contactID"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list communications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"communications": list})
}

// ListAccountCommunications lists an account's communication history
func (h *Handler) ListAccountCommunications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.commsService.ListByAccount(r.Context(), chi.URLParam(r, "accountID"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list communications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"communications": list})
}

// SendEmailRequest represents an outbound email
type SendEmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendContactEmail sends an email to a contact through the configured
// provider. A failed delivery is still recorded and returned with the
// error.
func (h *Handler) SendContactEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.commsService.SendEmail(r.Context(), chi.URLParam(r, "contactID"), req.Subject, req.Body)
	if err != nil {
		h.respondSendError(w, c, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// SendSMSRequest represents an outbound text message
type SendSMSRequest struct {
	Body string `json:"body"`
}

// SendContactSMS sends a text message to a contact
func (h *Handler) SendContactSMS(w http.ResponseWriter, r *http.Request) {
	var req SendSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.commsService.SendSMS(r.Context(), chi.URLParam(r, "contactID"), req.Body)
	if err != nil {
		h.respondSendError(w, c, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) respondSendError(w http.ResponseWriter, c *comms.Communication, err error) {
	switch {
	case err == crm.ErrContactNotFound:
		respondError(w, http.StatusNotFound, "contact not found")
	case err == comms.ErrEmptyMessage:
		respondError(w, http.StatusBadRequest, "message body is required")
	case err == comms.ErrProviderNotConfigured:
		respondError(w, http.StatusServiceUnavailable, "no provider configured for channel")
	case errors.Is(err, comms.ErrProviderRejected):
		// The failed attempt is on record. Surface it alongside the error.
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":         "provider rejected the message",
			"communication": c,
		})
	default:
		respondError(w, http.StatusBadGateway, "delivery failed")
	}
}
