package jwtinfra

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HostedIdentity is what a hosted auth provider asserts about its user.
type HostedIdentity struct {
	Subject string
	Email   string
	Role    string
	Name    string
}

// HostedVerifier checks HS256 access tokens minted by a hosted identity
// provider that shares its signing secret with this API.
type HostedVerifier struct {
	secret []byte
}

func NewHostedVerifier(secret string) *HostedVerifier {
	return &HostedVerifier{secret: []byte(secret)}
}

func (v *HostedVerifier) Verify(tokenStr string) (*HostedIdentity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	id := &HostedIdentity{Subject: sub}
	id.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		id.Role, _ = meta["role"].(string)
		id.Name, _ = meta["name"].(string)
	}
	return id, nil
}
