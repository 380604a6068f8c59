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

package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Service provides CRM business logic over accounts, contacts, leads and
// opportunities. Tenant scope comes from the resolved tenant context in ctx;
// repositories never accept a tenant id from callers.
type Service struct {
	accounts      AccountRepository
	contacts      ContactRepository
	leads         LeadRepository
	opportunities OpportunityRepository
	auditLogger   audit.Logger
}

// NewService creates a new CRM service
func NewService(
	accounts AccountRepository,
	contacts ContactRepository,
	leads LeadRepository,
	opportunities OpportunityRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		accounts:      accounts,
		contacts:      contacts,
		leads:         leads,
		opportunities: opportunities,
		auditLogger:   auditLogger,
	}
}

// --- Accounts ---

// CreateAccount creates a new account
func (s *Service) CreateAccount(ctx context.Context, account *Account) (*Account, error) {
	if account.Name == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if account.Type == "" {
		account.Type = AccountTypeProspect
	}

	account.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.auditRecord(ctx, audit.TypeRecordCreated, "account", account.ID)
	return account, nil
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts lists accounts, optionally filtered by a name search
func (s *Service) ListAccounts(ctx context.Context, search string, limit, offset int) ([]*Account, error) {
	return s.accounts.List(ctx, search, limit, offset)
}

// UpdateAccount updates an existing account
func (s *Service) UpdateAccount(ctx context.Context, account *Account) (*Account, error) {
	existing, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now()

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "account", account.ID)
	return account, nil
}

// DeleteAccount soft-deletes an account
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, audit.TypeRecordDeleted, "account", id)
	return nil
}

// --- Contacts ---

// CreateContact creates a new contact
func (s *Service) CreateContact(ctx context.Context, contact *Contact) (*Contact, error) {
	if contact.FirstName == "" && contact.LastName == "" {
		return nil, fmt.Errorf("contact name is required")
	}
	if contact.AccountID != "" {
		if _, err := s.accounts.GetByID(ctx, contact.AccountID); err != nil {
			return nil, ErrAccountNotFound
		}
	}

	contact.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.auditRecord(ctx, audit.TypeRecordCreated, "contact", contact.ID)
	return contact, nil
}

// GetContact retrieves a contact by ID
func (s *Service) GetContact(ctx context.Context, id string) (*Contact, error) {
	return s.contacts.GetByID(ctx, id)
}

// ListContacts lists contacts, optionally scoped to an account
func (s *Service) ListContacts(ctx context.Context, accountID string, limit, offset int) ([]*Contact, error) {
	return s.contacts.List(ctx, accountID, limit, offset)
}

// UpdateContact updates an existing contact
func (s *Service) UpdateContact(ctx context.Context, contact *Contact) (*Contact, error) {
	existing, err := s.contacts.GetByID(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	contact.CreatedAt = existing.CreatedAt
	contact.UpdatedAt = time.Now()

	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "contact", contact.ID)
	return contact, nil
}

// DeleteContact soft-deletes a contact
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	if err := s.contacts.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, audit.TypeRecordDeleted, "contact", id)
	return nil
}

// --- Leads ---

// CreateLead creates a new lead with status "new"
func (s *Service) CreateLead(ctx context.Context, lead *Lead) (*Lead, error) {
	if lead.Name == "" {
		return nil, fmt.Errorf("lead name is required")
	}

	lead.ID = uuid.Must(uuid.NewV7()).String()
	lead.Status = LeadStatusNew
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.auditRecord(ctx, audit.TypeRecordCreated, "lead", lead.ID)
	return lead, nil
}

// GetLead retrieves a lead by ID
func (s *Service) GetLead(ctx context.Context, id string) (*Lead, error) {
	return s.leads.GetByID(ctx, id)
}

// ListLeads lists leads, optionally filtered by status
func (s *Service) ListLeads(ctx context.Context, status string, limit, offset int) ([]*Lead, error) {
	return s.leads.List(ctx, status, limit, offset)
}

// UpdateLead updates a lead's contact details. The status field is not
// touched here; pipeline moves go through UpdateLeadStatus.
func (s *Service) UpdateLead(ctx context.Context, lead *Lead) (*Lead, error) {
	existing, err := s.leads.GetByID(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	if existing.Status == LeadStatusConverted {
		return nil, ErrLeadConverted
	}
	if lead.Name == "" {
		return nil, fmt.Errorf("lead name is required")
	}

	existing.Name = lead.Name
	existing.Email = lead.Email
	existing.Phone = lead.Phone
	existing.Company = lead.Company
	existing.Source = lead.Source
	existing.OwnerID = lead.OwnerID
	existing.Notes = lead.Notes
	existing.UpdatedAt = time.Now()

	if err := s.leads.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "lead", existing.ID)
	return existing, nil
}

// UpdateLeadStatus moves a lead along the pipeline. Converted leads are
// immutable; conversion happens only through ConvertLead.
func (s *Service) UpdateLeadStatus(ctx context.Context, id, status string) (*Lead, error) {
	switch status {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost:
	default:
		return nil, fmt.Errorf("invalid lead status: %s", status)
	}

	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == LeadStatusConverted {
		return nil, ErrLeadConverted
	}

	lead.Status = status
	lead.UpdatedAt = time.Now()
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "lead", id)
	return lead, nil
}

// ConvertLeadResult is what ConvertLead produced
type ConvertLeadResult struct {
	Lead        *Lead        `json:"lead"`
	Account     *Account     `json:"account"`
	Contact     *Contact     `json:"contact"`
	Opportunity *Opportunity `json:"opportunity,omitempty"`
}

// ConvertLead converts a lead into an account and contact, optionally
// opening an opportunity. Converting an already converted lead fails.
func (s *Service) ConvertLead(ctx context.Context, id string, opportunityName string, amountCents int64) (*ConvertLeadResult, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == LeadStatusConverted {
		return nil, ErrLeadConverted
	}

	accountName := lead.Company
	if accountName == "" {
		accountName = lead.Name
	}

	account, err := s.CreateAccount(ctx, &Account{
		Name:    accountName,
		Type:    AccountTypeProspect,
		Phone:   lead.Phone,
		OwnerID: lead.OwnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account from lead: %w", err)
	}

	first, last := splitName(lead.Name)
	contact, err := s.CreateContact(ctx, &Contact{
		AccountID: account.ID,
		FirstName: first,
		LastName:  last,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Primary:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact from lead: %w", err)
	}

	result := &ConvertLeadResult{Account: account, Contact: contact}

	if opportunityName != "" {
		opp, err := s.CreateOpportunity(ctx, &Opportunity{
			AccountID:   account.ID,
			Name:        opportunityName,
			AmountCents: amountCents,
			OwnerID:     lead.OwnerID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create opportunity from lead: %w", err)
		}
		result.Opportunity = opp
	}

	now := time.Now()
	lead.Status = LeadStatusConverted
	lead.ConvertedAt = &now
	lead.AccountID = account.ID
	lead.ContactID = contact.ID
	lead.UpdatedAt = now
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to mark lead converted: %w", err)
	}
	result.Lead = lead

	if tc, err := tenant.FromContext(ctx); err == nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLeadConverted,
			TenantID: tc.Tenant.ID,
			ActorID:  tc.UserID,
			Resource: "lead",
			Metadata: map[string]any{
				"lead_id":    id,
				"account_id": account.ID,
				"contact_id": contact.ID,
			},
		})
	}

	return result, nil
}

// DeleteLead soft-deletes a lead
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	if err := s.leads.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, audit.TypeRecordDeleted, "lead", id)
	return nil
}

// --- Opportunities ---

// CreateOpportunity creates a new opportunity in the prospecting stage
func (s *Service) CreateOpportunity(ctx context.Context, opp *Opportunity) (*Opportunity, error) {
	if opp.Name == "" {
		return nil, fmt.Errorf("opportunity name is required")
	}
	if _, err := s.accounts.GetByID(ctx, opp.AccountID); err != nil {
		return nil, ErrAccountNotFound
	}

	opp.ID = uuid.Must(uuid.NewV7()).String()
	opp.Stage = StageProspecting
	now := time.Now()
	opp.CreatedAt = now
	opp.UpdatedAt = now

	for _, li := range opp.LineItems {
		li.ID = uuid.Must(uuid.NewV7()).String()
		li.OpportunityID = opp.ID
	}
	if len(opp.LineItems) > 0 {
		opp.AmountCents = sumLineItems(opp.LineItems)
	}

	if err := s.opportunities.Create(ctx, opp); err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.auditRecord(ctx, audit.TypeRecordCreated, "opportunity", opp.ID)
	return opp, nil
}

// GetOpportunity retrieves an opportunity with its line items
func (s *Service) GetOpportunity(ctx context.Context, id string) (*Opportunity, error) {
	return s.opportunities.GetByID(ctx, id)
}

// ListOpportunities lists opportunities filtered by account and/or stage
func (s *Service) ListOpportunities(ctx context.Context, accountID, stage string, limit, offset int) ([]*Opportunity, error) {
	return s.opportunities.List(ctx, accountID, stage, limit, offset)
}

// UpdateOpportunityStage transitions an opportunity's stage. Closed
// opportunities cannot move.
func (s *Service) UpdateOpportunityStage(ctx context.Context, id, stage string) (*Opportunity, error) {
	if !ValidStage(stage) {
		return nil, fmt.Errorf("invalid stage: %s", stage)
	}

	opp, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.IsClosed() {
		return nil, ErrStageTransition
	}

	opp.Stage = stage
	if stage == StageClosedWon {
		opp.Probability = 100
	}
	if stage == StageClosedLost {
		opp.Probability = 0
	}
	opp.UpdatedAt = time.Now()

	if err := s.opportunities.Update(ctx, opp); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "opportunity", id)
	return opp, nil
}

// SetOpportunityLineItems replaces an opportunity's line items and
// recomputes its amount
func (s *Service) SetOpportunityLineItems(ctx context.Context, id string, items []*LineItem) (*Opportunity, error) {
	opp, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.IsClosed() {
		return nil, ErrStageTransition
	}

	for _, li := range items {
		if li.Quantity <= 0 {
			return nil, fmt.Errorf("line item quantity must be positive")
		}
		li.ID = uuid.Must(uuid.NewV7()).String()
		li.OpportunityID = id
	}

	if err := s.opportunities.ReplaceLineItems(ctx, id, items); err != nil {
		return nil, err
	}

	opp.LineItems = items
	opp.AmountCents = sumLineItems(items)
	opp.UpdatedAt = time.Now()
	if err := s.opportunities.Update(ctx, opp); err != nil {
		return nil, err
	}

	s.auditRecord(ctx, audit.TypeRecordUpdated, "opportunity", id)
	return opp, nil
}

// DeleteOpportunity soft-deletes an opportunity
func (s *Service) DeleteOpportunity(ctx context.Context, id string) error {
	if err := s.opportunities.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, audit.TypeRecordDeleted, "opportunity", id)
	return nil
}

// --- helpers ---

func (s *Service) auditRecord(ctx context.Context, eventType, resource, id string) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: tc.Tenant.ID,
		ActorID:  tc.UserID,
		Resource: resource,
		Metadata: map[string]any{"id": id},
	})
}

func sumLineItems(items []*LineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.Total()
	}
	return total
}

func splitName(full string) (first, last string) {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
