package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/ports/adapter"
)

var _ adapter.TokenVerifier = (*SupabaseVerifier)(nil)

// SupabaseVerifier validates HS256 access tokens issued by the hosted auth
// service. The shared signing secret comes from config.
type SupabaseVerifier struct {
	secret []byte
}

func NewSupabaseVerifier(secret string) *SupabaseVerifier {
	return &SupabaseVerifier{secret: []byte(secret)}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *SupabaseVerifier) Verify(_ context.Context, token string) (*adapter.Identity, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, domain.ErrUnauthorized
	}
	return &adapter.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
