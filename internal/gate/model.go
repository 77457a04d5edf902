// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"fmt"

	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

// # Session Status

// Status is the authentication state of one browser session.
type Status int

const (
	// StatusUnknown is the initial state, before any bootstrap.
	StatusUnknown Status = iota
	// StatusAuthenticating means a stored credential is being validated.
	StatusAuthenticating
	// StatusAuthenticated means token and user are present and the last check succeeded.
	StatusAuthenticated
	// StatusAnonymous means there is no usable credential.
	StatusAnonymous
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusUnknown; candidate <= StatusAnonymous; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("gate: unknown session status %q", text)
}

// Resolved reports whether a guard decision can be made in this status.
func (s Status) Resolved() bool {
	return s == StatusAuthenticated || s == StatusAnonymous
}

// # Identity

// User is the gateway's mirror of the backend user record.
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Role        sec.Role `json:"role"`
	Category    string   `json:"category,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Address     string   `json:"address,omitempty"`
}

// Credential is what is persisted per browser session: the backend bearer
// token plus a mirrored copy of the user record.
type Credential struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Profile is the new-account payload sent on registration.
type Profile struct {
	BusinessName string
	Role         sec.Role
	Category     string
	Email        string
	Password     string
}

// DefaultCategory is used when a registration leaves the category blank.
const DefaultCategory = "Umum"

// Snapshot is an immutable read view of a [Session].
//
// The bearer token itself never leaves the gateway; only its presence is exposed.
type Snapshot struct {
	Status   Status `json:"status"`
	HasToken bool   `json:"has_token"`
	User     *User  `json:"user,omitempty"`
}

// Role returns the user's role, or "" when there is no user.
func (s Snapshot) Role() sec.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
