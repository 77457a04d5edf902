// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gate implements the session and role-routing gate of the portal.

It owns the knowledge of whether a browser visitor is authenticated and which
role they hold, keeps that knowledge synchronized with the backend identity
API, and decides which of the two application surfaces (UMKM, Investor) a
visitor may reach.

Architecture:

  - Session: explicit per-visitor state container with a narrow mutation API.
  - Manager: maps signed session ids to sessions and bootstraps them lazily.
  - Guard: pure decision function over (status, role, audience).
  - CredentialStore: persisted client state (Redis or memory).

Nothing outside this package mutates a session except through Bootstrap,
Login, Register, Logout, Invalidate and Refresh.
*/
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

// # Contracts

// Identity is the remote identity collaborator.
type Identity interface {
	// Login exchanges credentials for a bearer token and the user record.
	Login(ctx context.Context, email, password string) (Credential, error)
	// Register creates an account; success is equivalent to a login.
	Register(ctx context.Context, profile Profile) (Credential, error)
	// Logout revokes the bearer token remotely.
	Logout(ctx context.Context, token string) error
	// Me returns the user owning the token ("who am I").
	Me(ctx context.Context, token string) (User, error)
}

// # Session

// Session is the state container of one browser session.
//
// # Invariant
//
// status == StatusAuthenticated exactly when token and user are present and
// the last credential check succeeded.
//
// # Concurrency
//
// Reads take mu. Mutations are serialized by opMu; a background bootstrap
// applies its result only if no mutation happened since it started (epoch).
type Session struct {
	id       string
	identity Identity
	store    CredentialStore
	recorder metrics.Recorder

	// bootstrapTimeout bounds the background "who am I" call.
	bootstrapTimeout time.Duration

	opMu sync.Mutex

	mu       sync.RWMutex
	status   Status
	token    string
	user     *User
	epoch    uint64
	resolved chan struct{}
	lastSeen time.Time
}

func newSession(id string, identity Identity, store CredentialStore, recorder metrics.Recorder, bootstrapTimeout time.Duration) *Session {
	return &Session{
		id:               id,
		identity:         identity,
		store:            store,
		recorder:         recorder,
		bootstrapTimeout: bootstrapTimeout,
		status:           StatusUnknown,
		resolved:         make(chan struct{}),
		lastSeen:         time.Now(),
	}
}

// ID returns the browser session id.
func (s *Session) ID() string { return s.id }

// Snapshot returns an immutable view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{Status: s.status, HasToken: s.token != ""}
	if s.user != nil {
		user := *s.user
		snapshot.User = &user
	}
	return snapshot
}

// Token returns the bearer token while the session is authenticated.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status != StatusAuthenticated {
		return "", false
	}
	return s.token, true
}

// Resolved is closed once the session has left Unknown/Authenticating.
func (s *Session) Resolved() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

// Wait blocks until the session is resolved or ctx is done, then returns the
// current snapshot.
func (s *Session) Wait(ctx context.Context) Snapshot {
	select {
	case <-s.Resolved():
	case <-ctx.Done():
	}
	return s.Snapshot()
}

// # Bootstrap

/*
Bootstrap validates a previously stored credential and blocks until the
session is resolved.

  - No stored credential: Anonymous.
  - Stored credential accepted by Me: Authenticated, user refreshed and re-stored.
  - Stored credential rejected (or Me unreachable): Anonymous, credential cleared.

Calling it on a session that already left Unknown only waits for resolution.
*/
func (s *Session) Bootstrap(ctx context.Context) Snapshot {
	<-s.BootstrapAsync(ctx)
	return s.Snapshot()
}

/*
BootstrapAsync starts a bootstrap and returns a channel closed on resolution.

The stored credential is read synchronously, so a visitor without one is
Anonymous as soon as this returns. Only the remote check runs in the
background, detached from ctx cancellation but bounded by the bootstrap timeout.
*/
func (s *Session) BootstrapAsync(ctx context.Context) <-chan struct{} {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.status != StatusUnknown {
		done := s.resolved
		s.mu.Unlock()
		return done
	}
	done := s.resolved
	s.mu.Unlock()

	logger := ctxutil.GetLogger(ctx)

	// 1. Read persisted client state
	credential, err := s.store.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			logger.WarnContext(ctx, "session_credential_load_failed", slog.String("error", err.Error()))
		}
		s.setAnonymous()
		s.recorder.RecordSessionEvent("bootstrap", "no_credential")
		return done
	}

	// 2. Enter Authenticating; guards render a loading state from here on
	s.mu.Lock()
	s.status = StatusAuthenticating
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	// 3. Validate remotely in the background
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.bootstrapTimeout)
	go func() {
		defer cancel()
		s.finishBootstrap(checkCtx, epoch, credential)
	}()

	return done
}

// finishBootstrap applies the outcome of the remote credential check.
func (s *Session) finishBootstrap(ctx context.Context, epoch uint64, credential Credential) {
	logger := ctxutil.GetLogger(ctx)

	user, err := s.identity.Me(ctx, credential.Token)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	// A login, logout or invalidation happened meanwhile; it wins.
	s.mu.RLock()
	superseded := s.epoch != epoch
	s.mu.RUnlock()
	if superseded {
		return
	}

	if err != nil {
		logger.InfoContext(ctx, "session_bootstrap_rejected", slog.String("error", err.Error()))
		s.setAnonymous()
		if clearErr := s.store.Clear(ctx, s.id); clearErr != nil {
			logger.WarnContext(ctx, "session_credential_clear_failed", slog.String("error", clearErr.Error()))
		}
		s.recorder.RecordSessionEvent("bootstrap", "rejected")
		return
	}

	refreshed := Credential{Token: credential.Token, User: user}
	if saveErr := s.store.Save(ctx, s.id, refreshed); saveErr != nil {
		logger.WarnContext(ctx, "session_credential_save_failed", slog.String("error", saveErr.Error()))
	}
	s.setAuthenticated(refreshed)
	s.recorder.RecordSessionEvent("bootstrap", "ok")
}

// # Mutations

/*
Login authenticates with email and password.

On success the credential is stored and the session becomes Authenticated.
On failure the session is Anonymous and the collaborator's error is returned
unmodified. There is no retry.
*/
func (s *Session) Login(ctx context.Context, email, password string) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	credential, err := s.identity.Login(ctx, email, password)
	return s.applyAuthentication(ctx, "login", credential, err)
}

/*
Register creates an account and signs it in immediately.

There is no separate verification step: a successful registration behaves
exactly like a successful login.
*/
func (s *Session) Register(ctx context.Context, profile Profile) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if profile.Category == "" {
		profile.Category = DefaultCategory
	}

	credential, err := s.identity.Register(ctx, profile)
	return s.applyAuthentication(ctx, "register", credential, err)
}

func (s *Session) applyAuthentication(ctx context.Context, event string, credential Credential, err error) (Snapshot, error) {
	logger := ctxutil.GetLogger(ctx)

	if err == nil && credential.Token == "" {
		err = errors.New("gate: identity returned no token")
	}

	if err != nil {
		s.setAnonymous()
		if clearErr := s.store.Clear(ctx, s.id); clearErr != nil {
			logger.WarnContext(ctx, "session_credential_clear_failed", slog.String("error", clearErr.Error()))
		}
		s.recorder.RecordSessionEvent(event, "rejected")
		return s.Snapshot(), err
	}

	if saveErr := s.store.Save(ctx, s.id, credential); saveErr != nil {
		// The session still works for this gateway instance; it just will
		// not survive a restart.
		logger.WarnContext(ctx, "session_credential_save_failed", slog.String("error", saveErr.Error()))
	}

	s.setAuthenticated(credential)
	s.recorder.RecordSessionEvent(event, "ok")
	logger.InfoContext(ctx, "session_"+event+"_succeeded",
		slog.String("user_id", credential.User.ID),
		slog.String("role", credential.User.Role.String()),
	)

	return s.Snapshot(), nil
}

/*
Logout ends the session.

Local state and the stored credential are cleared unconditionally, then the
collaborator is notified on a best-effort basis. The result is always
Anonymous, whether or not the remote call succeeds.
*/
func (s *Session) Logout(ctx context.Context) Snapshot {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	logger := ctxutil.GetLogger(ctx)

	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	s.setAnonymous()
	if err := s.store.Clear(ctx, s.id); err != nil {
		logger.WarnContext(ctx, "session_credential_clear_failed", slog.String("error", err.Error()))
	}

	outcome := "ok"
	if token != "" {
		if err := s.identity.Logout(ctx, token); err != nil {
			outcome = "remote_failed"
			logger.WarnContext(ctx, "session_remote_logout_failed", slog.String("error", err.Error()))
		}
	}
	s.recorder.RecordSessionEvent("logout", outcome)

	return s.Snapshot()
}

/*
Refresh re-runs the credential check of an authenticated session and updates
the mirrored user, e.g. after a profile edit.

A 401 ends the session like [Session.Invalidate]; other failures leave the
session untouched and are returned.
*/
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	token, status := s.token, s.status
	s.mu.RUnlock()

	if status != StatusAuthenticated {
		return s.Snapshot(), nil
	}

	user, err := s.identity.Me(ctx, token)
	if err != nil {
		if isUnauthorized(err) {
			s.invalidateLocked(ctx)
		}
		return s.Snapshot(), err
	}

	credential := Credential{Token: token, User: user}
	if saveErr := s.store.Save(ctx, s.id, credential); saveErr != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_credential_save_failed", slog.String("error", saveErr.Error()))
	}
	s.setAuthenticated(credential)
	s.recorder.RecordSessionEvent("refresh", "ok")

	return s.Snapshot(), nil
}

/*
Invalidate is the implicit logout applied when an authenticated call fails
with 401.

token is the bearer token the failed call used. A 401 for a token the session
no longer holds (the user logged in again meanwhile) is ignored. No remote
logout is attempted: the collaborator already considers the token invalid.
*/
func (s *Session) Invalidate(ctx context.Context, token string) Snapshot {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()

	if token != "" && token != current {
		return s.Snapshot()
	}

	s.invalidateLocked(ctx)
	return s.Snapshot()
}

func (s *Session) invalidateLocked(ctx context.Context) {
	s.setAnonymous()
	if err := s.store.Clear(ctx, s.id); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_credential_clear_failed", slog.String("error", err.Error()))
	}
	s.recorder.RecordSessionEvent("invalidate", "ok")
	ctxutil.GetLogger(ctx).InfoContext(ctx, "session_invalidated")
}

// # State Transitions (caller holds opMu)

func (s *Session) setAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusAnonymous
	s.token = ""
	s.user = nil
	s.epoch++
	s.markResolvedLocked()
}

func (s *Session) setAuthenticated(credential Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := credential.User
	s.status = StatusAuthenticated
	s.token = credential.Token
	s.user = &user
	s.epoch++
	s.markResolvedLocked()
}

func (s *Session) markResolvedLocked() {
	select {
	case <-s.resolved:
	default:
		close(s.resolved)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() (time.Time, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen, s.status
}
