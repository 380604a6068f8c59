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

package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoContext is returned when a tenant-scoped operation runs without a
// resolved tenant context. Fail closed: there is no default tenant.
var ErrNoContext = errors.New("no tenant context resolved")

// Context is the resolved bundle used to scope a request: the tenant, the
// pooled connection to its physical database, and the physical tenant id
// every data row must carry.
type Context struct {
	Tenant *Tenant

	// Pool is the connection pool for the tenant's data source.
	Pool *pgxpool.Pool

	// TenantID is the physical tenant id: the data source's override when
	// set, the logical tenant id otherwise.
	TenantID string

	UserID    string
	SessionID string
}

type contextKey struct{}

// WithContext attaches a resolved tenant context to ctx
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext retrieves the resolved tenant context from ctx
func FromContext(ctx context.Context) (*Context, error) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || tc == nil {
		return nil, ErrNoContext
	}
	return tc, nil
}
