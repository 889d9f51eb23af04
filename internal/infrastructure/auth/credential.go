// Package auth holds the shopper's bearer credential and turns credential
// changes into session transitions.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes issued by the bookstore backend
const (
	ScopeUser    = "ROLE_USER"
	ScopeRefresh = "ROLE_REFRESH"
)

// Credential errors
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrRefreshToken   = errors.New("refresh token cannot be used as a session credential")
	ErrMissingUserID  = errors.New("missing user id in claims")
)

// claimID accepts numeric and string identifiers
type claimID string

func (c *claimID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = claimID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = claimID(n.String())
	return nil
}

// Claims are the fields the storefront reads from a backend token
type Claims struct {
	jwt.RegisteredClaims
	UserID claimID `json:"userId"`
	AltID  claimID `json:"user_id"`
	Scope  string  `json:"scope"`
}

// Credential is a parsed bearer token
type Credential struct {
	Token     string
	UserID    string
	Subject   string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Expired reports whether the credential is past its expiry at now
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseCredential reads the claims of token without verifying its
// signature; the backend verifies every request.
func ParseCredential(token string) (Credential, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Credential{}, errors.Join(ErrMalformedToken, err)
	}
	if claims.Scope == ScopeRefresh {
		return Credential{}, ErrRefreshToken
	}

	userID := string(claims.UserID)
	if userID == "" {
		userID = string(claims.AltID)
	}
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Credential{}, ErrMissingUserID
	}

	cred := Credential{Token: token, UserID: userID, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}
