// Package identity resolves the caller behind a request. Tokens are
// issued and signature-checked by the SSO gateway in front of the portal;
// here we only decode the claims and enforce expiry and group membership.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminGroup is the SSO group granting write access to the portal.
const AdminGroup = "/api_admin"

// ErrNoToken means the request carried no bearer token.
var ErrNoToken = errors.New("no bearer token")

// ErrExpired means the token's exp claim is in the past.
var ErrExpired = errors.New("token expired")

// Principal is the identity decoded from a token.
type Principal struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Groups   []string `json:"groups"`
}

// Admin reports whether the principal belongs to the admin group.
func (p Principal) Admin() bool {
	for _, g := range p.Groups {
		if g == AdminGroup {
			return true
		}
	}
	return false
}

type claims struct {
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Groups            []string `json:"groups"`
	jwt.RegisteredClaims
}

// Decode extracts the principal from a raw token. The signature is not
// checked, only well-formedness and expiry.
func Decode(raw string) (Principal, error) {
	var c claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &c); err != nil {
		return Principal{}, fmt.Errorf("malformed token: %w", err)
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()) {
		return Principal{}, ErrExpired
	}
	return Principal{
		Username: c.PreferredUsername,
		Email:    c.Email,
		Groups:   c.Groups,
	}, nil
}

// FromRequest decodes the principal from the Authorization header.
func FromRequest(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Principal{}, ErrNoToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header || raw == "" {
		return Principal{}, ErrNoToken
	}
	return Decode(raw)
}
