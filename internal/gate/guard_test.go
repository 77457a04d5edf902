// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

func TestGuard_Table(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		role     sec.Role
		audience Audience
		want     Decision
	}{
		{"unknown public", StatusUnknown, "", AudiencePublic, Pending()},
		{"unknown umkm", StatusUnknown, "", AudienceUMKMOnly, Pending()},
		{"authenticating investor", StatusAuthenticating, sec.RoleInvestor, AudienceInvestorOnly, Pending()},
		{"authenticating public", StatusAuthenticating, sec.RoleUMKM, AudiencePublic, Pending()},

		{"anonymous public", StatusAnonymous, "", AudiencePublic, Allow()},
		{"anonymous umkm", StatusAnonymous, "", AudienceUMKMOnly, Redirect(PublicEntry)},
		{"anonymous investor", StatusAnonymous, "", AudienceInvestorOnly, Redirect(PublicEntry)},

		{"umkm on public", StatusAuthenticated, sec.RoleUMKM, AudiencePublic, Redirect(HomeUMKM)},
		{"umkm on umkm", StatusAuthenticated, sec.RoleUMKM, AudienceUMKMOnly, Allow()},
		{"umkm on investor", StatusAuthenticated, sec.RoleUMKM, AudienceInvestorOnly, Redirect(HomeUMKM)},

		{"investor on public", StatusAuthenticated, sec.RoleInvestor, AudiencePublic, Redirect(HomeInvestor)},
		{"investor on investor", StatusAuthenticated, sec.RoleInvestor, AudienceInvestorOnly, Allow()},
		{"investor on umkm", StatusAuthenticated, sec.RoleInvestor, AudienceUMKMOnly, Redirect(HomeInvestor)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.status, tt.role, tt.audience))
		})
	}
}

func TestGuard_IsPure(t *testing.T) {
	statuses := []Status{StatusUnknown, StatusAuthenticating, StatusAuthenticated, StatusAnonymous}
	roles := []sec.Role{"", sec.RoleUMKM, sec.RoleInvestor}
	audiences := []Audience{AudiencePublic, AudienceUMKMOnly, AudienceInvestorOnly}

	for _, status := range statuses {
		for _, role := range roles {
			for _, audience := range audiences {
				first := Guard(status, role, audience)
				for range 3 {
					assert.Equal(t, first, Guard(status, role, audience))
				}
			}
		}
	}
}

func TestGuard_NeverDecidesWhileUnresolved(t *testing.T) {
	for _, audience := range []Audience{AudiencePublic, AudienceUMKMOnly, AudienceInvestorOnly} {
		assert.Equal(t, DecisionPending, Guard(StatusUnknown, sec.RoleUMKM, audience).Kind)
		assert.Equal(t, DecisionPending, Guard(StatusAuthenticating, sec.RoleInvestor, audience).Kind)
	}
}

func TestHome(t *testing.T) {
	assert.Equal(t, "/dashboard", Home(sec.RoleUMKM))
	assert.Equal(t, "/investor/dashboard", Home(sec.RoleInvestor))
}
