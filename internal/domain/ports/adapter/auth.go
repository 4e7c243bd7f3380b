package adapter

import "context"

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier validates an access token issued by the hosted auth service.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
