// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

func newTestSession(identity Identity, store CredentialStore) *Session {
	return newSession("browser-1", identity, store, metrics.Nop{}, 2*time.Second)
}

func allAudiences() []Audience {
	return []Audience{AudiencePublic, AudienceUMKMOnly, AudienceInvestorOnly}
}

func TestBootstrap_NoCredential(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	session := newTestSession(identity, NewMemoryCredentialStore())

	snapshot := session.Bootstrap(ctx)

	assert.Equal(t, StatusAnonymous, snapshot.Status)
	assert.False(t, snapshot.HasToken)
	assert.Nil(t, snapshot.User)
	assert.Equal(t, Redirect(PublicEntry), Guard(snapshot.Status, snapshot.Role(), AudienceUMKMOnly))

	_, _, meCalls := identity.counts()
	assert.Zero(t, meCalls, "no remote check without a stored credential")
}

func TestBootstrap_ValidCredentialRefreshesUser(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.addAccount("ani@example.com", "rahasia123", sec.RoleInvestor)
	store := NewMemoryCredentialStore()

	credential, err := identity.Login(ctx, "ani@example.com", "rahasia123")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "browser-1", credential))
	identity.rename("ani@example.com", "Ani Capital")

	snapshot := newTestSession(identity, store).Bootstrap(ctx)

	require.Equal(t, StatusAuthenticated, snapshot.Status)
	assert.Equal(t, "Ani Capital", snapshot.User.DisplayName)

	stored, err := store.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.Equal(t, "Ani Capital", stored.User.DisplayName)

	assert.Equal(t, Redirect(HomeInvestor), Guard(snapshot.Status, snapshot.Role(), AudienceUMKMOnly))
}

func TestBootstrap_RejectedCredentialBehavesLikeNone(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	user := identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, "browser-1", Credential{Token: "expired", User: user}))

	rejected := newTestSession(identity, store).Bootstrap(ctx)

	assert.Equal(t, StatusAnonymous, rejected.Status)
	_, err := store.Load(ctx, "browser-1")
	assert.ErrorIs(t, err, ErrNoCredential)

	fresh := newTestSession(identity, NewMemoryCredentialStore()).Bootstrap(ctx)
	for _, audience := range allAudiences() {
		assert.Equal(t,
			Guard(fresh.Status, fresh.Role(), audience),
			Guard(rejected.Status, rejected.Role(), audience),
			"audience %s", audience)
	}
}

func TestBootstrap_UnreachableBackendClearsCredential(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.meErr = &backend.UnavailableError{Operation: "me", Err: errors.New("timeout")}
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, "browser-1", Credential{Token: "t", User: User{ID: "1", Role: sec.RoleUMKM}}))

	snapshot := newTestSession(identity, store).Bootstrap(ctx)

	assert.Equal(t, StatusAnonymous, snapshot.Status)
	_, err := store.Load(ctx, "browser-1")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestBootstrapAsync_PendingUntilResolved(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	credential, err := identity.Login(ctx, "budi@example.com", "rahasia123")
	require.NoError(t, err)

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, "browser-1", credential))

	identity.meRelease = make(chan struct{})
	session := newTestSession(identity, store)
	done := session.BootstrapAsync(ctx)

	snapshot := session.Snapshot()
	assert.Equal(t, StatusAuthenticating, snapshot.Status)
	for _, audience := range allAudiences() {
		assert.Equal(t, Pending(), Guard(snapshot.Status, snapshot.Role(), audience))
	}

	close(identity.meRelease)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bootstrap did not resolve")
	}

	snapshot = session.Snapshot()
	assert.Equal(t, StatusAuthenticated, snapshot.Status)
	assert.Equal(t, Allow(), Guard(snapshot.Status, snapshot.Role(), AudienceUMKMOnly))
}

func TestBootstrapAsync_LoginDuringCheckWins(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, "browser-1", Credential{Token: "expired", User: User{ID: "9"}}))

	identity.meRelease = make(chan struct{})
	session := newTestSession(identity, store)
	done := session.BootstrapAsync(ctx)

	snapshot, err := session.Login(ctx, "budi@example.com", "rahasia123")
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, snapshot.Status)

	// The stale check now fails; its result must be discarded.
	close(identity.meRelease)
	<-done
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StatusAuthenticated, session.Snapshot().Status)
	stored, err := store.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.NotEqual(t, "expired", stored.Token)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores credential", func(t *testing.T) {
		identity := newFakeIdentity()
		identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
		store := NewMemoryCredentialStore()
		session := newTestSession(identity, store)
		session.Bootstrap(ctx)

		snapshot, err := session.Login(ctx, "budi@example.com", "rahasia123")
		require.NoError(t, err)

		assert.Equal(t, StatusAuthenticated, snapshot.Status)
		assert.True(t, snapshot.HasToken)
		assert.Equal(t, sec.RoleUMKM, snapshot.Role())

		token, ok := session.Token()
		assert.True(t, ok)
		stored, err := store.Load(ctx, "browser-1")
		require.NoError(t, err)
		assert.Equal(t, token, stored.Token)
	})

	t.Run("failure returns backend message and no retry", func(t *testing.T) {
		identity := newFakeIdentity()
		identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
		session := newTestSession(identity, NewMemoryCredentialStore())

		snapshot, err := session.Login(ctx, "budi@example.com", "salah")
		require.Error(t, err)

		assert.Equal(t, StatusAnonymous, snapshot.Status)
		assert.Equal(t, "Email atau password salah", backend.Message(err))
		loginCalls, _, _ := identity.counts()
		assert.Equal(t, 1, loginCalls)

		_, ok := session.Token()
		assert.False(t, ok)
	})
}

func TestRegister_DefaultsCategoryAndSignsIn(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	session := newTestSession(identity, NewMemoryCredentialStore())

	snapshot, err := session.Register(ctx, Profile{
		BusinessName: "Warung Sari",
		Role:         sec.RoleUMKM,
		Email:        "sari@example.com",
		Password:     "rahasia123",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusAuthenticated, snapshot.Status)
	assert.Equal(t, DefaultCategory, identity.lastProfile.Category)
	assert.Equal(t, DefaultCategory, snapshot.User.Category)

	_, err = newTestSession(identity, NewMemoryCredentialStore()).Register(ctx, Profile{
		BusinessName: "Warung Lain",
		Role:         sec.RoleUMKM,
		Email:        "sari@example.com",
		Password:     "rahasia123",
	})
	require.Error(t, err)
	assert.Equal(t, "Email sudah terdaftar", backend.Message(err))
}

func TestLogout_AlwaysEndsAnonymous(t *testing.T) {
	ctx := context.Background()

	for _, remoteErr := range []error{nil, errBackendDown} {
		identity := newFakeIdentity()
		identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
		identity.logoutErr = remoteErr
		store := NewMemoryCredentialStore()
		session := newTestSession(identity, store)

		_, err := session.Login(ctx, "budi@example.com", "rahasia123")
		require.NoError(t, err)

		snapshot := session.Logout(ctx)

		assert.Equal(t, StatusAnonymous, snapshot.Status)
		assert.False(t, snapshot.HasToken)
		_, err = store.Load(ctx, "browser-1")
		assert.ErrorIs(t, err, ErrNoCredential)

		_, logoutCalls, _ := identity.counts()
		assert.Equal(t, 1, logoutCalls)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	store := NewMemoryCredentialStore()
	session := newTestSession(identity, store)

	_, err := session.Login(ctx, "budi@example.com", "rahasia123")
	require.NoError(t, err)

	// A 401 for a token the session no longer holds is ignored.
	snapshot := session.Invalidate(ctx, "token-from-before")
	assert.Equal(t, StatusAuthenticated, snapshot.Status)

	token, _ := session.Token()
	snapshot = session.Invalidate(ctx, token)
	assert.Equal(t, StatusAnonymous, snapshot.Status)
	_, err = store.Load(ctx, "browser-1")
	assert.ErrorIs(t, err, ErrNoCredential)

	_, logoutCalls, _ := identity.counts()
	assert.Zero(t, logoutCalls, "implicit logout does not call the backend")
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	session := newTestSession(identity, NewMemoryCredentialStore())

	_, err := session.Login(ctx, "budi@example.com", "rahasia123")
	require.NoError(t, err)

	identity.rename("budi@example.com", "Toko Budi")
	snapshot, err := session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Toko Budi", snapshot.User.DisplayName)

	identity.revokeAll()
	snapshot, err = session.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, backend.IsUnauthorized(err))
	assert.Equal(t, StatusAnonymous, snapshot.Status)
}

func TestWait_ReturnsOnContextDone(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	identity.meRelease = make(chan struct{})
	defer close(identity.meRelease)

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, "browser-1", Credential{Token: "t"}))
	session := newTestSession(identity, store)
	session.BootstrapAsync(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	assert.Equal(t, StatusAuthenticating, session.Wait(waitCtx).Status)
}
