// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteTable_Resolve(t *testing.T) {
	table := NewRouteTable(DefaultRoutes)

	tests := []struct {
		path string
		want Audience
	}{
		{"/", AudiencePublic},
		{"/register", AudiencePublic},
		{"/dashboard", AudienceUMKMOnly},
		{"/transaksi", AudienceUMKMOnly},
		{"/produk/42/edit", AudienceUMKMOnly},
		{"/laporan/", AudienceUMKMOnly},
		{"/investor", AudienceInvestorOnly},
		{"/investor/dashboard", AudienceInvestorOnly},
		{"/investor/temukan/umkm-7", AudienceInvestorOnly},
		{"/investor/unknown-page", AudienceInvestorOnly},
		{"/investorx", AudiencePublic},
		{"/nowhere", AudiencePublic},
		{"/dashboard/../investor/bantuan", AudienceInvestorOnly},
		{"", AudiencePublic},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Resolve(tt.path))
		})
	}
}
