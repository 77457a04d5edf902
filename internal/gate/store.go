// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredential is returned by [CredentialStore.Load] when nothing is stored.
var ErrNoCredential = errors.New("gate: no stored credential")

// CredentialStore persists one [Credential] per browser session id.
//
// It is read once at bootstrap, written on successful login/register and
// cleared on logout or implicit logout.
type CredentialStore interface {
	// Load returns the stored credential or [ErrNoCredential].
	Load(ctx context.Context, sessionID string) (Credential, error)
	// Save replaces the stored credential.
	Save(ctx context.Context, sessionID string, credential Credential) error
	// Clear removes the stored credential. Clearing an absent entry is not an error.
	Clear(ctx context.Context, sessionID string) error
}

// MemoryCredentialStore keeps credentials in process memory. Used when no
// Redis is configured, and in tests.
type MemoryCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential
}

// NewMemoryCredentialStore creates an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{credentials: make(map[string]Credential)}
}

// Load implements [CredentialStore].
func (store *MemoryCredentialStore) Load(_ context.Context, sessionID string) (Credential, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	credential, ok := store.credentials[sessionID]
	if !ok {
		return Credential{}, ErrNoCredential
	}
	return credential, nil
}

// Save implements [CredentialStore].
func (store *MemoryCredentialStore) Save(_ context.Context, sessionID string, credential Credential) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.credentials[sessionID] = credential
	return nil
}

// Clear implements [CredentialStore].
func (store *MemoryCredentialStore) Clear(_ context.Context, sessionID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.credentials, sessionID)
	return nil
}
