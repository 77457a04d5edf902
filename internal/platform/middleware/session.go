// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
)

// CookieSigner defines what the session middleware needs from [sec.CookieSigner].
//
// # Why an interface?
//
// Keeping it here decouples the middleware from the signing implementation,
// so tests can inject a trivial signer.
type CookieSigner interface {
	Sign(sessionID string) (string, error)
	Verify(value string) (string, error)
}

// SessionOptions configures the browser session cookie.
type SessionOptions struct {
	CookieName string
	MaxAge     int // seconds
	Secure     bool
}

// Session resolves the browser session id from a signed cookie.
//
// # Flow
//  1. Read the cookie and verify its signature via [CookieSigner].
//  2. If absent or invalid, mint a fresh session id and set a new cookie.
//  3. Inject a [*ctxutil.Visitor] carrying the session id into the context.
//
// The middleware never rejects a request: a visitor without a valid cookie is
// simply a new anonymous session. Authorization decisions happen downstream.
func Session(signer CookieSigner, opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// 1. Existing session
			var sessionID string
			if cookie, err := request.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				verified, verifyErr := signer.Verify(cookie.Value)
				if verifyErr != nil {
					ctxutil.GetLogger(ctx).DebugContext(ctx, "session_cookie_rejected",
						slog.String("error", verifyErr.Error()),
					)
				} else {
					sessionID = verified
				}
			}

			// 2. New session
			if sessionID == "" {
				sessionID = uuid.NewString()
				value, err := signer.Sign(sessionID)
				if err != nil {
					ctxutil.GetLogger(ctx).ErrorContext(ctx, "session_cookie_sign_failed",
						slog.String("error", err.Error()),
					)
				} else {
					http.SetCookie(writer, &http.Cookie{
						Name:     opts.CookieName,
						Value:    value,
						Path:     "/",
						MaxAge:   opts.MaxAge,
						HttpOnly: true,
						Secure:   opts.Secure,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			// 3. Context injection
			ctx = ctxutil.WithVisitor(ctx, &ctxutil.Visitor{SessionID: sessionID})
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
