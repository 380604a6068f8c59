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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuecore/venuecore/internal/billing"
	"github.com/venuecore/venuecore/internal/tenant"
)

// InvoiceRepository implements billing.InvoiceRepository. Invoice rows
// live in the tenant data source; the invoice number counter lives in the
// directory, keyed by logical tenant, so numbering survives a move
// between data sources.
type InvoiceRepository struct {
	directory *DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(directory *DB) *InvoiceRepository {
	return &InvoiceRepository{directory: directory}
}

// Create creates a draft invoice with its lines
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (
			id, tenant_id, account_id, event_id, number, status, issue_date, due_date,
			subtotal_cents, tax_rate_basis, tax_cents, total_cents, amount_paid_cents,
			created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, inv.ID, tenantID, inv.AccountID, inv.EventID, inv.Number, inv.Status,
		inv.IssueDate, inv.DueDate, inv.SubtotalCents, inv.TaxRateBasis,
		inv.TaxCents, inv.TotalCents, inv.AmountPaidCents, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for _, l := range inv.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO invoice_lines (id, invoice_id, description, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, l.ID, inv.ID, l.Description, l.Quantity, l.UnitPriceCents); err != nil {
			return fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	inv.TenantID = tenantID
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return nil
}

const invoiceColumns = `id, tenant_id, account_id, COALESCE(event_id::text, ''), number, status,
	issue_date, due_date, subtotal_cents, tax_rate_basis, tax_cents, total_cents,
	amount_paid_cents, created_at, updated_at`

// GetByID retrieves an invoice with its lines
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*billing.Invoice, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l billing.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, &l)
	}
	return inv, rows.Err()
}

// Update updates invoice state and totals
func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	result, err := pool.Exec(ctx, `
		UPDATE invoices SET
			number = $3,
			status = $4,
			issue_date = $5,
			due_date = $6,
			subtotal_cents = $7,
			tax_rate_basis = $8,
			tax_cents = $9,
			total_cents = $10,
			amount_paid_cents = $11,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, inv.ID, inv.Number, inv.Status, inv.IssueDate, inv.DueDate,
		inv.SubtotalCents, inv.TaxRateBasis, inv.TaxCents, inv.TotalCents, inv.AmountPaidCents)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

// ApplyPayment adds to the paid amount with the balance check inside the
// UPDATE itself, so two concurrent payments cannot both read the same
// balance and overpay. Zero rows matched means the invoice is gone, not
// payable, or the amount exceeds the remaining balance; the follow-up
// read tells those apart.
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, id string, amountCents int64) (*billing.Invoice, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		UPDATE invoices SET
			amount_paid_cents = amount_paid_cents + $3,
			status = CASE
				WHEN amount_paid_cents + $3 >= total_cents THEN 'paid'
				ELSE 'partially_paid'
			END,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
			AND status IN ('issued', 'partially_paid')
			AND amount_paid_cents + $3 <= total_cents
		RETURNING `+invoiceColumns+`
	`, tenantID, id, amountCents)
	inv, err := scanInvoice(row)
	if err == nil {
		return inv, nil
	}
	if err != billing.ErrInvoiceNotFound {
		return nil, err
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status != billing.InvoiceIssued && current.Status != billing.InvoicePartiallyPaid {
		return nil, billing.ErrInvoiceState
	}
	return nil, billing.ErrOverpayment
}

// List lists invoices, optionally filtered by account and status
func (r *InvoiceRepository) List(ctx context.Context, accountID, status string, limit, offset int) ([]*billing.Invoice, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE tenant_id = $1
			AND ($2 = '' OR account_id = $2::uuid)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, accountID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// NextNumber atomically increments and returns the tenant's invoice
// counter in the directory database.
func (r *InvoiceRepository) NextNumber(ctx context.Context) (int64, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	err = r.directory.pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (tenant_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id)
		DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number
	`, tc.Tenant.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return n, nil
}

func scanInvoice(row pgx.Row) (*billing.Invoice, error) {
	var inv billing.Invoice
	var issueDate, dueDate sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.AccountID, &inv.EventID, &inv.Number, &inv.Status,
		&issueDate, &dueDate, &inv.SubtotalCents, &inv.TaxRateBasis, &inv.TaxCents,
		&inv.TotalCents, &inv.AmountPaidCents, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if issueDate.Valid {
		inv.IssueDate = &issueDate.Time
	}
	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	return &inv, nil
}

// PaymentRepository implements billing.PaymentRepository
type PaymentRepository struct{}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

// Create records a payment
func (r *PaymentRepository) Create(ctx context.Context, p *billing.Payment) error {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = pool.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, invoice_id, amount_cents, method, gateway_charge_id, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, tenantID, p.InvoiceID, p.AmountCents, p.Method, p.GatewayChargeID, p.ReceivedAt, now)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	p.TenantID = tenantID
	p.CreatedAt = now
	return nil
}

const paymentColumns = `id, tenant_id, invoice_id, amount_cents, method, gateway_charge_id, received_at, created_at`

// GetByID retrieves a payment
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*billing.Payment, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanPayment(row)
}

// ListByInvoice lists payments against an invoice
func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*billing.Payment, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND invoice_id = $2
		ORDER BY received_at
	`, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetByGatewayChargeID retrieves a payment by its gateway charge id, for
// webhook idempotency.
func (r *PaymentRepository) GetByGatewayChargeID(ctx context.Context, chargeID string) (*billing.Payment, error) {
	pool, tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND gateway_charge_id = $2
	`, tenantID, chargeID)
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*billing.Payment, error) {
	var p billing.Payment
	err := row.Scan(
		&p.ID, &p.TenantID, &p.InvoiceID, &p.AmountCents, &p.Method,
		&p.GatewayChargeID, &p.ReceivedAt, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, billing.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
}
