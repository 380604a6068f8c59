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
	"github.com/venuecore/venuecore/internal/inventory"
)

// CreateInventoryItem creates an inventory item
// @Summary Create Inventory Item
// @Tags Inventory
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body inventory.Item true "Item Data"
// @Success 201 {object} inventory.Item
// @Failure 409 {object} map[string]string
// @Router /inventory/items [post]
func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var item inventory.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.inventoryService.CreateItem(r.Context(), &item)
	if err != nil {
		if err == inventory.ErrDuplicateSKU {
			respondError(w, http.StatusConflict, "sku already exists")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetInventoryItem retrieves an inventory item by ID
func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventoryService.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "inventory item not found")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// ListInventoryItems lists inventory items, optionally by category
func (h *Handler) ListInventoryItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, err := h.inventoryService.ListItems(r.Context(), r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list inventory items")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// UpdateInventoryItem updates an inventory item
func (h *Handler) UpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var item inventory.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item.ID = chi.URLParam(r, "itemID")

	updated, err := h.inventoryService.UpdateItem(r.Context(), &item)
	if err != nil {
		switch err {
		case inventory.ErrItemNotFound:
			respondError(w, http.StatusNotFound, "inventory item not found")
		case inventory.ErrDuplicateSKU:
			respondError(w, http.StatusConflict, "sku already exists")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteInventoryItem deletes an item with no held reservations
func (h *Handler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.DeleteItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		if err == inventory.ErrItemNotFound {
			respondError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "inventory item deleted"})
}

// ReserveStockRequest represents a stock hold for an event
type ReserveStockRequest struct {
	EventID  string `json:"event_id"`
	Quantity int    `json:"quantity"`
}

// ReserveStock holds quantity of an item for an event
// @Summary Reserve Stock
// @Tags Inventory
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param itemID path string true "Item ID"
// @Param request body ReserveStockRequest true "Reservation Data"
// @Success 201 {object} inventory.Reservation
// @Failure 409 {object} map[string]string
// @Router /inventory/items/{itemID}/reserve [post]
func (h *Handler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var req ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reservation, err := h.inventoryService.Reserve(r.Context(), chi.URLParam(r, "itemID"), req.EventID, req.Quantity)
	if err != nil {
		switch err {
		case inventory.ErrItemNotFound:
			respondError(w, http.StatusNotFound, "inventory item not found")
		case inventory.ErrInsufficientStock:
			respondError(w, http.StatusConflict, "insufficient available stock")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

// ReleaseReservation returns a held reservation to available stock
func (h *Handler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.Release(r.Context(), chi.URLParam(r, "reservationID")); err != nil {
		if err == inventory.ErrReservationState {
			respondError(w, http.StatusConflict, "reservation already released")
			return
		}
		respondError(w, http.StatusNotFound, "reservation not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "reservation released"})
}
