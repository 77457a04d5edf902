// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// Role is the account type held by an authenticated user. The values are the
// backend's `user_type` wire values.
type Role string

const (
	// Small/micro business owner managing products and transactions
	RoleUMKM Role = "umkm"

	// Investor browsing the portfolio and discovery surface
	RoleInvestor Role = "investor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUMKM || r == RoleInvestor
}

// ParseRole converts a wire value into a [Role]. Unknown values fall back to
// [RoleUMKM], which is the backend's default account type.
func ParseRole(value string) Role {
	if role := Role(value); role.Valid() {
		return role
	}
	return RoleUMKM
}

// String implements [fmt.Stringer].
func (r Role) String() string {
	return string(r)
}
