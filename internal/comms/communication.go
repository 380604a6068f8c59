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

// Package comms records customer communications and dispatches outbound
// email and SMS through external providers.
package comms

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCommunicationNotFound is returned when a communication record does not exist
	ErrCommunicationNotFound = errors.New("communication not found")
	// ErrUnknownChannel is returned for an unsupported communication channel
	ErrUnknownChannel = errors.New("unknown communication channel")
	// ErrEmptyMessage is returned when an outbound message has no body
	ErrEmptyMessage = errors.New("message body is required")
)

// Communication channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelCall  = "call"
	ChannelNote  = "note"
)

// Communication directions
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Communication statuses
const (
	StatusLogged = "logged"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Communication is a single interaction with a contact: a sent email or
// SMS, or a manually logged call or note.
type Communication struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contact_id"`
	AccountID  string    `json:"account_id,omitempty"`
	UserID     string    `json:"user_id"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	ProviderID string    `json:"provider_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidChannel reports whether ch is a known communication channel
func ValidChannel(ch string) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelCall, ChannelNote:
		return true
	}
	return false
}

// Repository defines communication persistence operations.
// Implementations resolve the tenant from the request context.
type Repository interface {
	Create(ctx context.Context, c *Communication) error
	GetByID(ctx context.Context, id string) (*Communication, error)
	ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*Communication, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*Communication, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
