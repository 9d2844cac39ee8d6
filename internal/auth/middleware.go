// Package auth is the identity-provider boundary: it turns a bearer token
// into the authenticated principal. The core treats the principal as a
// one-way input, never a store of truth for profile fields.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
)

const principalKey = "auth.principal"

// Middleware validates the Authorization bearer token and stashes the
// principal on the request context. Requests without a valid token are
// rejected with 401.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}
		c.Set(principalKey, identity.Principal{
			ID:        sub,
			Email:     stringClaim(claims, "email"),
			Name:      stringClaim(claims, "name"),
			Phone:     stringClaim(claims, "phone_number"),
			Verified:  boolClaim(claims, "email_verified"),
			AvatarURL: stringClaim(claims, "picture"),
		})
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal set by Middleware.
func PrincipalFrom(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func boolClaim(claims jwt.MapClaims, key string) bool {
	b, _ := claims[key].(bool)
	return b
}
