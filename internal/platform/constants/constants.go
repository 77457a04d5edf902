// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the gateway.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session: cookie naming and lifetime.
  - Collaborators: timeouts for the backend API and the inference model.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "warungpintar-portal"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Uploads of up to 10 MiB must fit inside it.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Ingestion waits for the inference model, so it is generous.
	DefaultWriteTimeout = 90 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 75 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 50.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 100

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session

const (
	// SessionIssuer is the 'iss' claim of the signed session cookie.
	SessionIssuer = "warungpintar.portal"

	// SessionCookieName is the browser cookie that carries the signed session id.
	SessionCookieName = "wp_session"

	// SessionCookieTTL is how long a browser keeps its session id.
	SessionCookieTTL = 30 * 24 * time.Hour

	// CredentialTTL bounds how long a stored bearer credential is kept in Redis.
	CredentialTTL = 30 * 24 * time.Hour

	// BootstrapTimeout bounds the background "who am I" check.
	BootstrapTimeout = 15 * time.Second

	// SessionIdleTTL is how long an unused session stays in gateway memory.
	SessionIdleTTL = 30 * time.Minute

	// SessionSweepInterval is how often idle sessions are evicted.
	SessionSweepInterval = 5 * time.Minute

	// PendingRetryAfter is the Retry-After (seconds) sent while a session is resolving.
	PendingRetryAfter = 1

	// PendingGrace is how long a page navigation waits for an in-flight
	// bootstrap before answering with the loading page.
	PendingGrace = 300 * time.Millisecond
)

// # Collaborators

const (
	// BackendTimeout is the HTTP client timeout for the backend REST API.
	BackendTimeout = 20 * time.Second

	// InferenceTimeout is the deadline for one inference call.
	InferenceTimeout = 60 * time.Second
)

// # Ingestion

const (
	// AttemptTTL is how long an idle ingestion attempt stays in memory.
	AttemptTTL = 30 * time.Minute

	// AttemptSweepInterval is how often idle attempts are dropped.
	AttemptSweepInterval = 5 * time.Minute

	// AttemptHistoryLimit caps the audit rows returned to the user.
	AttemptHistoryLimit = 20
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # Health Payload Fields

const (
	FieldStatus = "status"
	FieldChecks = "checks"
)

// # Redis Prefixes

const (
	RedisPrefixCredential = "portal:credential:"
)
