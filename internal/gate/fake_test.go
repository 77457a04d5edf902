// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

type fakeAccount struct {
	password string
	user     User
}

// fakeIdentity is an in-memory identity collaborator.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	tokens   map[string]string // token -> email
	issued   int

	// meRelease, when set, blocks Me until closed.
	meRelease chan struct{}
	// meErr, when set, is returned by Me instead of the lookup.
	meErr error
	// logoutErr, when set, is returned by Logout.
	logoutErr error

	loginCalls  int
	logoutCalls int
	meCalls     int
	lastProfile Profile
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: make(map[string]fakeAccount),
		tokens:   make(map[string]string),
	}
}

func (f *fakeIdentity) addAccount(email, password string, role sec.Role) User {
	f.mu.Lock()
	defer f.mu.Unlock()

	user := User{ID: fmt.Sprint(len(f.accounts) + 1), Email: email, DisplayName: "Warung " + email, Role: role}
	f.accounts[email] = fakeAccount{password: password, user: user}
	return user
}

// issue mints a token for an existing account. Caller holds mu.
func (f *fakeIdentity) issue(email string) Credential {
	f.issued++
	token := fmt.Sprintf("token-%d", f.issued)
	f.tokens[token] = email
	return Credential{Token: token, User: f.accounts[email].user}
}

func (f *fakeIdentity) Login(_ context.Context, email, password string) (Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loginCalls++
	account, ok := f.accounts[email]
	if !ok || account.password != password {
		return Credential{}, &backend.RejectedError{Operation: "login", Status: http.StatusUnauthorized, Message: "Email atau password salah"}
	}
	return f.issue(email), nil
}

func (f *fakeIdentity) Register(_ context.Context, profile Profile) (Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastProfile = profile
	if _, exists := f.accounts[profile.Email]; exists {
		return Credential{}, &backend.RejectedError{Operation: "register", Status: http.StatusUnprocessableEntity, Message: "Email sudah terdaftar"}
	}

	user := User{
		ID:          fmt.Sprint(len(f.accounts) + 1),
		Email:       profile.Email,
		DisplayName: profile.BusinessName,
		Role:        profile.Role,
		Category:    profile.Category,
	}
	f.accounts[profile.Email] = fakeAccount{password: profile.Password, user: user}
	return f.issue(profile.Email), nil
}

func (f *fakeIdentity) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logoutCalls++
	if f.logoutErr != nil {
		return f.logoutErr
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeIdentity) Me(ctx context.Context, token string) (User, error) {
	f.mu.Lock()
	f.meCalls++
	release := f.meRelease
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return User{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.meErr != nil {
		return User{}, f.meErr
	}
	email, ok := f.tokens[token]
	if !ok {
		return User{}, &backend.RejectedError{Operation: "me", Status: http.StatusUnauthorized, Message: "Unauthenticated."}
	}
	return f.accounts[email].user, nil
}

// rename changes the stored display name, as a profile edit would.
func (f *fakeIdentity) rename(email, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account := f.accounts[email]
	account.user.DisplayName = name
	f.accounts[email] = account
}

func (f *fakeIdentity) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

func (f *fakeIdentity) counts() (login, logout, me int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.logoutCalls, f.meCalls
}

var errBackendDown = &backend.UnavailableError{Operation: "logout", Err: errors.New("connection refused")}
