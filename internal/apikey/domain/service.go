package domain

import (
	"context"
	"errors"
)

type CreateKeyRequest struct {
	TenantID string
	Name     string
}

// CreatedKey carries the one-time plaintext secret alongside the stored row.
type CreatedKey struct {
	Key       APIKey
	Plaintext string
}

type Service interface {
	Create(context.Context, CreateKeyRequest) (CreatedKey, error)
	// Resolve maps a presented plaintext key to its stored row. Revoked
	// keys resolve to ErrRevoked.
	Resolve(ctx context.Context, plaintext string) (APIKey, error)
	Revoke(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string) ([]APIKey, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidKey    = errors.New("invalid_key")
	ErrRevoked       = errors.New("key_revoked")
	ErrNotFound      = errors.New("not_found")
)
