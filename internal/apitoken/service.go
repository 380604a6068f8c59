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

package apitoken

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/venuecore/venuecore/internal/audit"
)

// Claims carried by a signed API token
type Claims struct {
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}

// Service issues and verifies server-to-server API tokens as HS256 JWTs.
// Signature and expiry are checked offline; revocation is checked against
// the directory record.
type Service struct {
	repo        Repository
	signingKey  []byte
	issuer      string
	auditLogger audit.Logger
}

// NewService creates a new api token service
func NewService(repo Repository, signingKey, issuer string, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		signingKey:  []byte(signingKey),
		issuer:      issuer,
		auditLogger: auditLogger,
	}
}

// Issue creates a token record and returns the signed JWT. The JWT is not
// persisted; callers must store it on receipt.
func (s *Service) Issue(ctx context.Context, tenantID, name string, ttl time.Duration, createdBy string) (*Token, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("token name is required")
	}
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}

	now := time.Now()
	token := &Token{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		Name:      name,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		CreatedBy: createdBy,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, "", fmt.Errorf("failed to store api token: %w", err)
	}

	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Issuer:    s.issuer,
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign api token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		TenantID: tenantID,
		ActorID:  createdBy,
		Resource: "api_token",
		Metadata: map[string]any{"name": name, "expires_at": token.ExpiresAt},
	})

	return token, signed, nil
}

// Verify validates a signed token and returns its claims
func (s *Service) Verify(ctx context.Context, signed string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	record, err := s.repo.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, ErrTokenNotFound
	}
	if record.RevokedAt != nil {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke revokes a token by id
func (s *Service) Revoke(ctx context.Context, tenantID, tokenID, actorID string) error {
	record, err := s.repo.GetByID(ctx, tokenID)
	if err != nil {
		return ErrTokenNotFound
	}
	if record.TenantID != tenantID {
		return ErrTokenNotFound
	}

	if err := s.repo.Revoke(ctx, tokenID, time.Now()); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenRevoked,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "api_token",
		Metadata: map[string]any{"token_id": tokenID},
	})

	return nil
}

// List lists a tenant's tokens
func (s *Service) List(ctx context.Context, tenantID string) ([]*Token, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}
