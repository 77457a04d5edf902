// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/ctxkey"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
)

// WithSession attaches a session to ctx.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeyGateSession, session)
}

// FromContext returns the session attached by [Resolver.Middleware], or nil.
func FromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(ctxkey.KeyGateSession).(*Session)
	return session
}

// # Session Resolution

// Resolver attaches the gate session to every request and applies guards.
type Resolver struct {
	manager  *Manager
	routes   *RouteTable
	recorder metrics.Recorder
	grace    time.Duration
}

// NewResolver constructs a [Resolver].
func NewResolver(manager *Manager, routes *RouteTable, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Resolver{
		manager:  manager,
		routes:   routes,
		recorder: recorder,
		grace:    constants.PendingGrace,
	}
}

/*
Middleware looks up (or creates and bootstraps) the gate session for the
browser session id placed in the context by the platform session middleware.

After the handler returns, the visitor record is updated with the resolved
identity so the request log carries user_id and role.
*/
func (resolver *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()

		visitor := ctxutil.GetVisitor(ctx)
		if visitor == nil || visitor.SessionID == "" {
			respond.Error(writer, request, apperr.Internal(fmt.Errorf("gate: no browser session on request")))
			return
		}

		session := resolver.manager.Session(ctx, visitor.SessionID)
		next.ServeHTTP(writer, request.WithContext(WithSession(ctx, session)))

		if user := session.Snapshot().User; user != nil {
			visitor.UserID = user.ID
			visitor.Role = user.Role.String()
		}
	})
}

// decide runs the guard for a session, giving an in-flight bootstrap a short
// grace period first.
func (resolver *Resolver) decide(ctx context.Context, session *Session, audience Audience) (Decision, Snapshot) {
	snapshot := session.Snapshot()
	if !snapshot.Status.Resolved() && resolver.grace > 0 {
		graceCtx, cancel := context.WithTimeout(ctx, resolver.grace)
		snapshot = session.Wait(graceCtx)
		cancel()
	}

	decision := Guard(snapshot.Status, snapshot.Role(), audience)
	resolver.recorder.RecordGuardDecision(audience.String(), decision.Kind.String())
	return decision, snapshot
}

// # API Guard

/*
RequireAudience protects JSON endpoints.

API callers cannot follow a navigation redirect, so the decision maps onto
status codes: Pending waits for the bootstrap (bounded by the request
context), Anonymous gets 401, the wrong role gets 403.
*/
func (resolver *Resolver) RequireAudience(audience Audience) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			session := FromContext(ctx)
			if session == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			snapshot := session.Wait(ctx)
			if !snapshot.Status.Resolved() {
				writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(constants.PendingRetryAfter))
				respond.Error(writer, request, apperr.Unauthorized("Session is still being verified"))
				return
			}

			decision := Guard(snapshot.Status, snapshot.Role(), audience)
			resolver.recorder.RecordGuardDecision(audience.String(), decision.Kind.String())

			switch {
			case decision.Kind == DecisionAllow:
				next.ServeHTTP(writer, request)
			case snapshot.Status == StatusAnonymous:
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			default:
				respond.Error(writer, request, apperr.Forbidden("This feature belongs to another account type"))
			}
		})
	}
}

// RequireAuthenticated protects endpoints open to both roles.
func (resolver *Resolver) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		session := FromContext(request.Context())
		if session == nil || session.Wait(request.Context()).Status != StatusAuthenticated {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Page Guard

var loadingShell = template.Must(template.New("loading").Parse(`<!doctype html>
<html lang="id">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.RetryAfter}}">
<title>Warung Pintar</title>
</head>
<body><p>Memuat sesi...</p></body>
</html>
`))

/*
Pages guards SPA navigations before the shell is served.

  - Allow: the SPA shell.
  - Redirect: 302 to the target.
  - Pending: a neutral loading page that refreshes itself, with Retry-After.
*/
func (resolver *Resolver) Pages(shell http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		session := FromContext(ctx)
		if session == nil {
			respond.Error(writer, request, apperr.Internal(fmt.Errorf("gate: page guard without session")))
			return
		}

		decision, _ := resolver.decide(ctx, session, resolver.routes.Resolve(request.URL.Path))

		switch decision.Kind {
		case DecisionRedirect:
			http.Redirect(writer, request, decision.Path, http.StatusFound)
		case DecisionPending:
			writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(constants.PendingRetryAfter))
			writer.Header().Set("Cache-Control", "no-store")
			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			writer.WriteHeader(http.StatusOK)
			_ = loadingShell.Execute(writer, struct{ RetryAfter int }{constants.PendingRetryAfter})
		default:
			writer.Header().Set("Cache-Control", "no-store")
			shell.ServeHTTP(writer, request)
		}
	})
}
