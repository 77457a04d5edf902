// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

func TestManager_SessionIsCreatedOnceAndBootstrapped(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(newFakeIdentity(), NewMemoryCredentialStore(), metrics.Nop{})

	first := manager.Session(ctx, "browser-1")
	second := manager.Session(ctx, "browser-1")
	other := manager.Session(ctx, "browser-2")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, manager.Len())

	// No stored credential: resolved synchronously.
	assert.Equal(t, StatusAnonymous, first.Snapshot().Status)
}

func TestManager_SweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	identity := newFakeIdentity()
	manager := NewManager(identity, store, nil)

	manager.Session(ctx, "idle")

	require.NoError(t, store.Save(ctx, "checking", Credential{Token: "t"}))
	identity.meRelease = make(chan struct{})
	defer close(identity.meRelease)
	manager.Session(ctx, "checking")

	evicted := manager.Sweep(time.Now().Add(constants.SessionIdleTTL + time.Minute))

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, manager.Len(), "sessions still authenticating are kept")
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager(newFakeIdentity(), NewMemoryCredentialStore(), nil)

	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
