package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAuthHeader = errors.New("authorization header is missing")
	ErrMalformedBearer   = errors.New("authorization header must be 'Bearer <token>'")
	ErrNoSubject         = errors.New("token has no subject")
)

const bearerPrefix = "bearer "

// ExtractTokenFromRequest returns the bearer token of the Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMalformedBearer
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsRune(token, ' ') {
		return "", ErrMalformedBearer
	}
	return token, nil
}

// ExtractUserIDFromJWT reads the sub claim without checking the signature.
// Only Optional relies on it; Require goes through a TokenVerifier.
func ExtractUserIDFromJWT(raw string) (string, error) {
	if raw == "" {
		return "", ErrMalformedBearer
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}
