// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

// BackendIdentity adapts the backend REST client to [Identity].
type BackendIdentity struct {
	client *backend.Client
}

// NewBackendIdentity constructs a [BackendIdentity].
func NewBackendIdentity(client *backend.Client) *BackendIdentity {
	return &BackendIdentity{client: client}
}

// Login implements [Identity].
func (identity *BackendIdentity) Login(ctx context.Context, email, password string) (Credential, error) {
	result, err := identity.client.Login(ctx, email, password)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: result.Token, User: userFromBackend(result.User)}, nil
}

// Register implements [Identity].
func (identity *BackendIdentity) Register(ctx context.Context, profile Profile) (Credential, error) {
	result, err := identity.client.Register(ctx, backend.RegisterInput{
		BusinessName: profile.BusinessName,
		UserType:     profile.Role.String(),
		Category:     profile.Category,
		Email:        profile.Email,
		Password:     profile.Password,
	})
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: result.Token, User: userFromBackend(result.User)}, nil
}

// Logout implements [Identity].
func (identity *BackendIdentity) Logout(ctx context.Context, token string) error {
	return identity.client.Logout(ctx, token)
}

// Me implements [Identity].
func (identity *BackendIdentity) Me(ctx context.Context, token string) (User, error) {
	user, err := identity.client.Me(ctx, token)
	if err != nil {
		return User{}, err
	}
	return userFromBackend(user), nil
}

// userFromBackend maps the backend record onto the gateway's user.
func userFromBackend(user backend.User) User {
	return User{
		ID:          string(user.ID),
		Email:       user.Email,
		DisplayName: user.Name,
		Role:        sec.ParseRole(user.UserType),
		Category:    user.Category,
		Phone:       user.Phone,
		Address:     user.Address,
	}
}

// isUnauthorized reports a 401 from the identity collaborator.
func isUnauthorized(err error) bool {
	return backend.IsUnauthorized(err)
}
