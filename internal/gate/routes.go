// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"path"
	"sort"
	"strings"

	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

// # Route Homes

const (
	// PublicEntry is where anonymous visitors land (the login page).
	PublicEntry = "/"
	// HomeUMKM is the landing page of the UMKM surface.
	HomeUMKM = "/dashboard"
	// HomeInvestor is the landing page of the Investor surface.
	HomeInvestor = "/investor/dashboard"
)

// Home returns the landing page for a role.
func Home(role sec.Role) string {
	if role == sec.RoleInvestor {
		return HomeInvestor
	}
	return HomeUMKM
}

// # Route Table

// Route binds a path to its audience.
type Route struct {
	Path     string
	Audience Audience
}

// DefaultRoutes is the navigable surface of the portal.
var DefaultRoutes = []Route{
	{"/", AudiencePublic},
	{"/register", AudiencePublic},

	{"/dashboard", AudienceUMKMOnly},
	{"/transaksi", AudienceUMKMOnly},
	{"/produk", AudienceUMKMOnly},
	{"/laporan", AudienceUMKMOnly},
	{"/profil", AudienceUMKMOnly},

	{"/investor", AudienceInvestorOnly},
	{"/investor/dashboard", AudienceInvestorOnly},
	{"/investor/portofolio", AudienceInvestorOnly},
	{"/investor/laporan", AudienceInvestorOnly},
	{"/investor/temukan", AudienceInvestorOnly},
	{"/investor/profil", AudienceInvestorOnly},
	{"/investor/pengaturan", AudienceInvestorOnly},
	{"/investor/bantuan", AudienceInvestorOnly},
}

// RouteTable resolves request paths to audiences.
//
// Unknown paths take the audience of their longest registered prefix
// (matched on whole segments), else Public.
type RouteTable struct {
	routes []Route // sorted by descending path length
	exact  map[string]Audience
}

// NewRouteTable builds a table from routes.
func NewRouteTable(routes []Route) *RouteTable {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})

	exact := make(map[string]Audience, len(routes))
	for _, route := range routes {
		exact[route.Path] = route.Audience
	}

	return &RouteTable{routes: sorted, exact: exact}
}

// Resolve returns the audience of a request path.
func (table *RouteTable) Resolve(requestPath string) Audience {
	cleaned := path.Clean("/" + requestPath)

	if audience, ok := table.exact[cleaned]; ok {
		return audience
	}

	for _, route := range table.routes {
		if route.Path == "/" {
			continue
		}
		if strings.HasPrefix(cleaned, route.Path+"/") {
			return route.Audience
		}
	}

	return AudiencePublic
}
