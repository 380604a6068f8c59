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
	"github.com/venuecore/venuecore/internal/events"
)

// CreateEvent creates an event
// @Summary Create Event
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body events.Event true "Event Data"
// @Success 201 {object} events.Event
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event events.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.eventService.CreateEvent(r.Context(), &event)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetEvent retrieves an event with its scheduled dates
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// ListEvents lists events filtered by status and account
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	list, err := h.eventService.ListEvents(r.Context(), q.Get("status"), q.Get("account_id"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": list})
}

// UpdateEvent updates an event's details
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var event events.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event.ID = chi.URLParam(r, "eventID")

	updated, err := h.eventService.UpdateEvent(r.Context(), &event)
	if err != nil {
		if err == events.ErrEventNotFound {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// TransitionEventRequest represents an event status change
type TransitionEventRequest struct {
	Status string `json:"status"`
}

// TransitionEvent moves an event between lifecycle statuses
func (h *Handler) TransitionEvent(w http.ResponseWriter, r *http.Request) {
	var req TransitionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.eventService.TransitionEvent(r.Context(), chi.URLParam(r, "eventID"), req.Status)
	if err != nil {
		switch err {
		case events.ErrEventNotFound:
			respondError(w, http.StatusNotFound, "event not found")
		case events.ErrEventClosed:
			respondError(w, http.StatusConflict, "event is completed or cancelled")
		default:
			respondError(w, http.StatusConflict, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// AddEventDate adds a scheduled date to an event
func (h *Handler) AddEventDate(w http.ResponseWriter, r *http.Request) {
	var date events.EventDate
	if err := json.NewDecoder(r.Body).Decode(&date); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.eventService.AddEventDate(r.Context(), chi.URLParam(r, "eventID"), &date)
	if err != nil {
		switch err {
		case events.ErrEventNotFound:
			respondError(w, http.StatusNotFound, "event not found")
		case events.ErrEventClosed:
			respondError(w, http.StatusConflict, "event is completed or cancelled")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// RemoveEventDate removes a scheduled date and its staff assignments
func (h *Handler) RemoveEventDate(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.RemoveEventDate(r.Context(), chi.URLParam(r, "dateID")); err != nil {
		if err == events.ErrEventDateNotFound {
			respondError(w, http.StatusNotFound, "event date not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove event date")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "event date removed"})
}

// AssignStaffRequest represents staff assignment data
type AssignStaffRequest struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	RateCents int64  `json:"rate_cents"`
}

// AssignStaff books a staff member onto an event date. Overlapping
// bookings for the same user are rejected.
// @Summary Assign Staff
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param dateID path string true "Event Date ID"
// @Param request body AssignStaffRequest true "Assignment Data"
// @Success 201 {object} events.StaffAssignment
// @Failure 409 {object} map[string]string
// @Router /event-dates/{dateID}/staff [post]
func (h *Handler) AssignStaff(w http.ResponseWriter, r *http.Request) {
	var req AssignStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.eventService.AssignStaff(r.Context(), chi.URLParam(r, "dateID"), req.UserID, req.Role, req.RateCents)
	if err != nil {
		switch err {
		case events.ErrEventDateNotFound:
			respondError(w, http.StatusNotFound, "event date not found")
		case events.ErrStaffDoubleBooked:
			respondError(w, http.StatusConflict, "staff member is already booked for an overlapping date")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, assignment)
}

// ListStaff lists the staff assignments on an event date
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.eventService.ListStaff(r.Context(), chi.URLParam(r, "dateID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"assignments": staff})
}

// RespondToAssignmentRequest represents a staff member's answer to a
// booking
type RespondToAssignmentRequest struct {
	Accept bool `json:"accept"`
}

// RespondToAssignment records the signed-in staff member's accept or
// decline. Only the assigned user may respond.
func (h *Handler) RespondToAssignment(w http.ResponseWriter, r *http.Request) {
	var req RespondToAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.eventService.RespondToAssignment(r.Context(), chi.URLParam(r, "assignmentID"), GetUserID(r.Context()), req.Accept)
	if err != nil {
		if err == events.ErrAssignmentNotFound {
			respondError(w, http.StatusNotFound, "staff assignment not found")
			return
		}
		respondError(w, http.StatusForbidden, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}

// RemoveStaff removes a staff assignment
func (h *Handler) RemoveStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.RemoveStaff(r.Context(), chi.URLParam(r, "assignmentID")); err != nil {
		if err == events.ErrAssignmentNotFound {
			respondError(w, http.StatusNotFound, "staff assignment not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove staff assignment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "staff assignment removed"})
}

// DeleteEvent soft-deletes an event
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.DeleteEvent(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		if err == events.ErrEventNotFound {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// ListEventReservations lists the inventory reservations held for an
// event
func (h *Handler) ListEventReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.inventoryService.ListReservations(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}
