// Package auth verifies web-transport bearer tokens. WhatsApp users
// authenticate with PIN + session; web chat users arrive with an HS256 JWT
// minted by the frontend auth provider, which this package validates to
// resolve the user ID.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTVerifier validates web auth-context tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier. secret must be at least 32 characters
// for HS256 security; config validation enforces this.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// webClaims extends standard JWT claims with the user's role.
type webClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Verify parses and validates a token, returning the user ID and role.
func (v *JWTVerifier) Verify(tokenString string) (uuid.UUID, string, error) {
	if tokenString == "" {
		return uuid.Nil, "", fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &webClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*webClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != v.issuer {
		return uuid.Nil, "", fmt.Errorf("invalid issuer: expected %s, got %s", v.issuer, claims.Issuer)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject UUID: %w", err)
	}

	return userID, claims.Role, nil
}
