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
	"github.com/venuecore/venuecore/internal/billing"
)

// --- Invoices ---

// CreateInvoice creates a draft invoice
// @Summary Create Invoice
// @Tags Billing
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body billing.Invoice true "Invoice Data"
// @Success 201 {object} billing.Invoice
// @Failure 400 {object} map[string]string
// @Router /invoices [post]
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var invoice billing.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.billingService.CreateInvoice(r.Context(), &invoice)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetInvoice retrieves an invoice with its lines
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.billingService.GetInvoice(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "invoice not found")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// ListInvoices lists invoices filtered by account and status
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	invoices, err := h.billingService.ListInvoices(r.Context(), q.Get("account_id"), q.Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

// IssueInvoiceRequest represents invoice issuance data
type IssueInvoiceRequest struct {
	DueDate *time.Time `json:"due_date,omitempty"`
}

// IssueInvoice issues a draft invoice, assigning its number
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	var req IssueInvoiceRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	invoice, err := h.billingService.IssueInvoice(r.Context(), chi.URLParam(r, "invoiceID"), req.DueDate)
	if err != nil {
		switch err {
		case billing.ErrInvoiceNotFound:
			respondError(w, http.StatusNotFound, "invoice not found")
		case billing.ErrInvoiceState:
			respondError(w, http.StatusConflict, "invoice cannot be issued in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to issue invoice")
		}
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// VoidInvoice voids an invoice. Paid invoices cannot be voided.
func (h *Handler) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.billingService.VoidInvoice(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		switch err {
		case billing.ErrInvoiceNotFound:
			respondError(w, http.StatusNotFound, "invoice not found")
		case billing.ErrInvoiceState:
			respondError(w, http.StatusConflict, "invoice cannot be voided in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to void invoice")
		}
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// RecordPaymentRequest represents manual payment data
type RecordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	CardSource  string `json:"card_source,omitempty"`
}

// RecordPayment records a payment against an issued invoice. Card
// payments are charged through the gateway first.
// @Summary Record Payment
// @Tags Billing
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param invoiceID path string true "Invoice ID"
// @Param request body RecordPaymentRequest true "Payment Data"
// @Success 201 {object} billing.Payment
// @Failure 422 {object} map[string]string
// @Router /invoices/{invoiceID}/payments [post]
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.billingService.RecordPayment(r.Context(), chi.URLParam(r, "invoiceID"), req.AmountCents, req.Method, req.CardSource)
	if err != nil {
		switch err {
		case billing.ErrInvoiceNotFound:
			respondError(w, http.StatusNotFound, "invoice not found")
		case billing.ErrInvoiceState:
			respondError(w, http.StatusConflict, "invoice is not open for payment")
		case billing.ErrOverpayment:
			respondError(w, http.StatusUnprocessableEntity, "payment exceeds invoice balance")
		case billing.ErrGatewayDeclined:
			respondError(w, http.StatusPaymentRequired, "payment was declined")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// ListPayments lists the payments applied to an invoice
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.billingService.ListPayments(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		if err == billing.ErrInvoiceNotFound {
			respondError(w, http.StatusNotFound, "invoice not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

// --- Quotes ---

// CreateQuote creates a draft quote
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var quote billing.Quote
	if err := json.NewDecoder(r.Body).Decode(&quote); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.billingService.CreateQuote(r.Context(), &quote)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetQuote retrieves a quote with its lines
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.billingService.GetQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "quote not found")
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// ListQuotes lists quotes filtered by account and status
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	quotes, err := h.billingService.ListQuotes(r.Context(), q.Get("account_id"), q.Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// SendQuote marks a draft quote as sent
func (h *Handler) SendQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.billingService.SendQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		switch err {
		case billing.ErrQuoteNotFound:
			respondError(w, http.StatusNotFound, "quote not found")
		case billing.ErrQuoteState:
			respondError(w, http.StatusConflict, "quote cannot be sent in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to send quote")
		}
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// AcceptQuote accepts a sent quote and opens a draft invoice from it
func (h *Handler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	quote, invoice, err := h.billingService.AcceptQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		switch err {
		case billing.ErrQuoteNotFound:
			respondError(w, http.StatusNotFound, "quote not found")
		case billing.ErrQuoteState:
			respondError(w, http.StatusConflict, "quote cannot be accepted in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to accept quote")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quote": quote, "invoice": invoice})
}

// DeclineQuote declines a sent quote
func (h *Handler) DeclineQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.billingService.DeclineQuote(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		switch err {
		case billing.ErrQuoteNotFound:
			respondError(w, http.StatusNotFound, "quote not found")
		case billing.ErrQuoteState:
			respondError(w, http.StatusConflict, "quote cannot be declined in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to decline quote")
		}
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// --- Contracts ---

// CreateContract creates a draft contract
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var contract billing.Contract
	if err := json.NewDecoder(r.Body).Decode(&contract); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.billingService.CreateContract(r.Context(), &contract)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GetContract retrieves a contract by ID
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.billingService.GetContract(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "contract not found")
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// ListContracts lists contracts filtered by account and status
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	contracts, err := h.billingService.ListContracts(r.Context(), q.Get("account_id"), q.Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list contracts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"contracts": contracts})
}

// SendContract marks a draft contract as sent for signature
func (h *Handler) SendContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.billingService.SendContract(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		switch err {
		case billing.ErrContractNotFound:
			respondError(w, http.StatusNotFound, "contract not found")
		case billing.ErrContractState:
			respondError(w, http.StatusConflict, "contract cannot be sent in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to send contract")
		}
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// SignContractRequest represents signature data
type SignContractRequest struct {
	SignerName string `json:"signer_name"`
}

// SignContract records the countersignature on a sent contract
func (h *Handler) SignContract(w http.ResponseWriter, r *http.Request) {
	var req SignContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contract, err := h.billingService.SignContract(r.Context(), chi.URLParam(r, "contractID"), req.SignerName)
	if err != nil {
		switch err {
		case billing.ErrContractNotFound:
			respondError(w, http.StatusNotFound, "contract not found")
		case billing.ErrContractState:
			respondError(w, http.StatusConflict, "contract cannot be signed in its current state")
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// CancelContract cancels a contract that has not been signed
func (h *Handler) CancelContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.billingService.CancelContract(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		switch err {
		case billing.ErrContractNotFound:
			respondError(w, http.StatusNotFound, "contract not found")
		case billing.ErrContractState:
			respondError(w, http.StatusConflict, "contract cannot be cancelled in its current state")
		default:
			respondError(w, http.StatusInternalServerError, "failed to cancel contract")
		}
		return
	}
	respondJSON(w, http.StatusOK, contract)
}
