package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the pre-verified caller attached to every intent. The engine
// never sees credentials, only this pair.
type Identity struct {
	UserID string
	Name   string
}

// Verifier resolves an opaque token into a verified identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

var ErrInvalidToken = errors.New("invalid or expired token")

// JWTVerifier verifies HS256 tokens carrying "id" and "name" claims, the
// shape issued by the account service.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token and extracts the identity claims.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Name: name}, nil
}

// Sign issues a token for the identity. Token issuing belongs to the account
// service; this exists for tests and local tooling.
func (v *JWTVerifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   id.UserID,
		"name": id.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}
