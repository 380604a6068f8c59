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

package comms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
	"github.com/venuecore/venuecore/internal/crm"
	"github.com/venuecore/venuecore/internal/tenant"
)

// Service coordinates communication logging and outbound delivery
type Service struct {
	repo        Repository
	contacts    crm.ContactRepository
	email       EmailProvider
	sms         SMSProvider
	auditLogger audit.Logger
}

// NewService creates a new communications service
func NewService(repo Repository, contacts crm.ContactRepository, email EmailProvider, sms SMSProvider, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		contacts:    contacts,
		email:       email,
		sms:         sms,
		auditLogger: auditLogger,
	}
}

// Log records a communication that happened outside the platform,
// such as a phone call or an in-person conversation.
func (s *Service) Log(ctx context.Context, c *Communication) (*Communication, error) {
	if !ValidChannel(c.Channel) {
		return nil, ErrUnknownChannel
	}
	if c.Body == "" {
		return nil, ErrEmptyMessage
	}
	if c.Direction == "" {
		c.Direction = DirectionOutbound
	}

	// A logged touchpoint needs an anchor: a contact, or an account for
	// calls and notes not tied to a person.
	if c.ContactID == "" && c.AccountID == "" {
		return nil, fmt.Errorf("contact id or account id is required")
	}
	if c.ContactID != "" {
		contact, err := s.contacts.GetByID(ctx, c.ContactID)
		if err != nil {
			return nil, err
		}
		c.AccountID = contact.AccountID
	}

	c.ID = uuid.Must(uuid.NewV7()).String()
	c.Status = StatusLogged
	if c.OccurredAt.IsZero() {
		c.OccurredAt = time.Now()
	}
	c.CreatedAt = time.Now()

	if tc, err := tenant.FromContext(ctx); err == nil {
		c.UserID = tc.UserID
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SendEmail delivers an email to a contact and records the outcome.
// A failed delivery is still recorded, with the provider error attached.
func (s *Service) SendEmail(ctx context.Context, contactID, subject, body string) (*Communication, error) {
	if s.email == nil {
		return nil, ErrProviderNotConfigured
	}
	if body == "" {
		return nil, ErrEmptyMessage
	}

	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.Email == "" {
		return nil, fmt.Errorf("contact has no email address")
	}

	c := s.newOutbound(ctx, contact, ChannelEmail, subject, body)

	providerID, sendErr := s.email.SendEmail(ctx, contact.Email, subject, body)
	s.finishSend(ctx, c, providerID, sendErr)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return c, fmt.Errorf("email delivery failed: %w", sendErr)
	}
	return c, nil
}

// SendSMS delivers an SMS to a contact and records the outcome
func (s *Service) SendSMS(ctx context.Context, contactID, body string) (*Communication, error) {
	if s.sms == nil {
		return nil, ErrProviderNotConfigured
	}
	if body == "" {
		return nil, ErrEmptyMessage
	}

	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.Phone == "" {
		return nil, fmt.Errorf("contact has no phone number")
	}

	c := s.newOutbound(ctx, contact, ChannelSMS, "", body)

	providerID, sendErr := s.sms.SendSMS(ctx, contact.Phone, body)
	s.finishSend(ctx, c, providerID, sendErr)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return c, fmt.Errorf("sms delivery failed: %w", sendErr)
	}
	return c, nil
}

// Get retrieves a communication record
func (s *Service) Get(ctx context.Context, id string) (*Communication, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByContact lists a contact's communication history, newest first
func (s *Service) ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*Communication, error) {
	return s.repo.ListByContact(ctx, contactID, limit, offset)
}

// ListByAccount lists an account's communication history, newest first
func (s *Service) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*Communication, error) {
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// PurgeOlderThan deletes communication records past the retention window
func (s *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func (s *Service) newOutbound(ctx context.Context, contact *crm.Contact, channel, subject, body string) *Communication {
	c := &Communication{
		ID:         uuid.Must(uuid.NewV7()).String(),
		ContactID:  contact.ID,
		AccountID:  contact.AccountID,
		Channel:    channel,
		Direction:  DirectionOutbound,
		Subject:    subject,
		Body:       body,
		OccurredAt: time.Now(),
		CreatedAt:  time.Now(),
	}
	if tc, err := tenant.FromContext(ctx); err == nil {
		c.UserID = tc.UserID
	}
	return c
}

func (s *Service) finishSend(ctx context.Context, c *Communication, providerID string, sendErr error) {
	if sendErr != nil {
		c.Status = StatusFailed
		c.Error = sendErr.Error()
		return
	}
	c.Status = StatusSent
	c.ProviderID = providerID

	if tc, err := tenant.FromContext(ctx); err == nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeMessageSent,
			TenantID: tc.Tenant.ID,
			ActorID:  tc.UserID,
			Resource: "communication",
			Metadata: map[string]any{"id": c.ID, "channel": c.Channel, "contact_id": c.ContactID},
		})
	}
}
