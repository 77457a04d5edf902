// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Visitor verifies that the visitor pointer is shared through context.
*/
func TestContext_Visitor(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.GetVisitor(ctx))

	visitor := &ctxutil.Visitor{SessionID: "sess-1"}
	ctx = ctxutil.WithVisitor(ctx, visitor)

	// Late identity resolution is visible through the same pointer.
	visitor.UserID = "user-123"
	visitor.Role = "umkm"

	retrieved := ctxutil.GetVisitor(ctx)
	assert.NotNil(t, retrieved)
	assert.Equal(t, "sess-1", retrieved.SessionID)
	assert.Equal(t, "user-123", retrieved.UserID)
	assert.Equal(t, "umkm", retrieved.Role)
}
