// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

// Manager owns the sessions of all browser session ids.
//
// Sessions are created lazily in Unknown and bootstrapped on first sight.
// Idle sessions are evicted from memory; their persisted credential survives
// and is re-validated the next time the visitor shows up.
type Manager struct {
	identity Identity
	store    CredentialStore
	recorder metrics.Recorder

	bootstrapTimeout time.Duration
	idleTTL          time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager constructs a [Manager].
func NewManager(identity Identity, store CredentialStore, recorder metrics.Recorder) *Manager {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Manager{
		identity:         identity,
		store:            store,
		recorder:         recorder,
		bootstrapTimeout: constants.BootstrapTimeout,
		idleTTL:          constants.SessionIdleTTL,
		sessions:         make(map[string]*Session),
	}
}

/*
Session returns the session for a browser session id.

A session seen for the first time is created and its bootstrap started;
callers that need a decision should consult [Guard], which answers Pending
until the bootstrap resolves.
*/
func (manager *Manager) Session(ctx context.Context, sessionID string) *Session {
	manager.mu.Lock()
	session, found := manager.sessions[sessionID]
	if !found {
		session = newSession(sessionID, manager.identity, manager.store, manager.recorder, manager.bootstrapTimeout)
		manager.sessions[sessionID] = session
	}
	manager.mu.Unlock()

	session.touch(time.Now())
	if !found {
		session.BootstrapAsync(ctx)
	}
	return session
}

// Len reports the number of in-memory sessions.
func (manager *Manager) Len() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL. Sessions still
// authenticating are kept.
func (manager *Manager) Sweep(now time.Time) int {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	evicted := 0
	for id, session := range manager.sessions {
		lastSeen, status := session.idleSince()
		if status == StatusAuthenticating {
			continue
		}
		if now.Sub(lastSeen) > manager.idleTTL {
			delete(manager.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions periodically until ctx is cancelled.
func (manager *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.SessionSweepInterval)
	defer ticker.Stop()

	logger := ctxutil.GetLogger(ctx)
	for {
		select {
		case <-ticker.C:
			if evicted := manager.Sweep(time.Now()); evicted > 0 {
				logger.DebugContext(ctx, "session_sweep", slog.Int("evicted", evicted), slog.Int("remaining", manager.Len()))
			}
		case <-ctx.Done():
			return
		}
	}
}
