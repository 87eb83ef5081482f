// Package claims holds the access-token claims type and the request
// context helpers, as a leaf package so handler packages can read
// claims without importing internal/auth (which imports some of them).
package claims

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

type AccessClaims struct {
	UserID  string `json:"uid"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	c, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return c
}
