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
	"log/slog"
	"net/http"

	"github.com/venuecore/venuecore/internal/billing"
	"github.com/venuecore/venuecore/internal/observability/logger"
)

// PaymentWebhookRequest is the gateway's charge event payload
type PaymentWebhookRequest struct {
	Type        string `json:"type"`
	ChargeID    string `json:"charge_id"`
	InvoiceID   string `json:"invoice_id"`
	AmountCents int64  `json:"amount_cents"`
}

// PaymentWebhook applies an inbound payment gateway event. The route
// authenticates with a tenant-scoped API token; redelivered events are
// acknowledged without double-recording.
// @Summary Payment Webhook
// @Tags Integrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PaymentWebhookRequest true "Charge Event"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /integrations/payments/webhook [post]
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChargeID == "" || req.InvoiceID == "" {
		respondError(w, http.StatusBadRequest, "charge_id and invoice_id are required")
		return
	}

	// Only succeeded charges move money. Anything else is acknowledged
	// so the gateway stops retrying.
	if req.Type != "" && req.Type != "charge.succeeded" {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.billingService.ApplyGatewayEvent(r.Context(), req.ChargeID, req.InvoiceID, req.AmountCents); err != nil {
		switch err {
		case billing.ErrInvoiceNotFound:
			respondError(w, http.StatusNotFound, "invoice not found")
		case billing.ErrInvoiceState:
			respondError(w, http.StatusUnprocessableEntity, "invoice is not open for payment")
		case billing.ErrOverpayment:
			respondError(w, http.StatusUnprocessableEntity, "payment exceeds invoice balance")
		default:
			slog.Error("failed to apply gateway event",
				logger.ChargeID(req.ChargeID),
				logger.InvoiceID(req.InvoiceID),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "failed to apply gateway event")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
