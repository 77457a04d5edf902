// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/warungpintar/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Visitor Identity

// Visitor identifies the browser session behind a request. UserID and Role
// are empty while the visitor is not authenticated.
//
// The session middleware stores a pointer and fills UserID/Role once the
// session resolves, so the request logger sees the final identity.
type Visitor struct {
	SessionID string
	UserID    string
	Role      string
}

// WithVisitor returns a new context with the provided visitor attached.
func WithVisitor(ctx context.Context, visitor *Visitor) context.Context {
	return context.WithValue(ctx, ctxkey.KeyVisitor, visitor)
}

// GetVisitor retrieves the [*Visitor] from the [context.Context].
func GetVisitor(ctx context.Context) *Visitor {
	visitor, ok := ctx.Value(ctxkey.KeyVisitor).(*Visitor)
	if !ok {
		return nil
	}
	return visitor
}
