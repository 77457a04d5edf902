// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives for the gateway.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, cookie
// signing) from the domain logic. The browser never sees the backend bearer
// token: it only holds a signed session id produced by [CookieSigner].
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned when a session cookie fails verification.
var ErrInvalidCookie = errors.New("sec: invalid session cookie")

// SessionClaims is the payload of the signed session cookie.
//
// Only the session id travels to the browser. Identity and the bearer
// credential stay on the server side, keyed by this id.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Abbreviated to keep the cookie small.
	SessionID string `json:"sid"`
}

// CookieSigner signs and verifies session cookies using HS256.
type CookieSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewCookieSigner creates a signer. The secret must be at least 32 bytes.
func NewCookieSigner(secret, issuer string, ttl time.Duration) (*CookieSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: cookie secret must be at least 32 bytes, got %d", len(secret))
	}
	return &CookieSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Sign returns a compact JWS carrying the session id.
func (signer *CookieSigner) Sign(sessionID string) (string, error) {
	currentTime := signer.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(signer.ttl)),
		},
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of a cookie value and
// returns the session id it carries.
func (signer *CookieSigner) Verify(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	},
		jwt.WithIssuer(signer.issuer),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}
