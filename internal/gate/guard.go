// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"fmt"

	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

// # Audience

// Audience declares who may view a route.
type Audience int

const (
	AudiencePublic Audience = iota
	AudienceUMKMOnly
	AudienceInvestorOnly
)

// String returns the metric/log label of the audience.
func (a Audience) String() string {
	switch a {
	case AudienceUMKMOnly:
		return "umkm_only"
	case AudienceInvestorOnly:
		return "investor_only"
	default:
		return "public"
	}
}

// role returns the role an audience is restricted to, or "" for public routes.
func (a Audience) role() sec.Role {
	switch a {
	case AudienceUMKMOnly:
		return sec.RoleUMKM
	case AudienceInvestorOnly:
		return sec.RoleInvestor
	default:
		return ""
	}
}

// # Decision

// DecisionKind tags a [Decision].
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirect
	DecisionPending
)

// String returns the wire name of the decision kind.
func (k DecisionKind) String() string {
	switch k {
	case DecisionRedirect:
		return "redirect"
	case DecisionPending:
		return "pending"
	default:
		return "allow"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k DecisionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *DecisionKind) UnmarshalText(text []byte) error {
	for candidate := DecisionAllow; candidate <= DecisionPending; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("gate: unknown decision %q", text)
}

// Decision is the outcome of [Guard]: Allow, Redirect(path) or Pending.
// Path is set only for redirects.
type Decision struct {
	Kind DecisionKind `json:"kind"`
	Path string       `json:"path,omitempty"`
}

// Allow lets the navigation through.
func Allow() Decision { return Decision{Kind: DecisionAllow} }

// Redirect sends the visitor to path.
func Redirect(path string) Decision { return Decision{Kind: DecisionRedirect, Path: path} }

// Pending asks the caller to render a neutral loading state.
func Pending() Decision { return Decision{Kind: DecisionPending} }

// # Guard

/*
Guard decides whether a visitor may view a route.

It is a pure function of its inputs:

  - Unknown or Authenticating: Pending, no decision yet.
  - Anonymous on a non-public route: Redirect to the public entry.
  - Authenticated on a public route: Redirect to the role home.
  - Authenticated on the other role's route: Redirect to the own role home.
  - Otherwise: Allow.

Cross-role access is redirected silently, never reported as an error.
*/
func Guard(status Status, role sec.Role, audience Audience) Decision {
	switch status {
	case StatusAnonymous:
		if audience != AudiencePublic {
			return Redirect(PublicEntry)
		}
		return Allow()

	case StatusAuthenticated:
		if audience == AudiencePublic {
			return Redirect(Home(role))
		}
		if audience.role() != role {
			return Redirect(Home(role))
		}
		return Allow()

	default:
		return Pending()
	}
}
