// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/warungpintar/internal/platform/constants"
)

// RedisCredentialStore implements [CredentialStore] using Redis.
//
// Each entry is the JSON-encoded credential under
// "portal:credential:<session id>" with a sliding TTL.
type RedisCredentialStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCredentialStore creates a Redis-backed store.
func NewRedisCredentialStore(client *redis.Client, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, ttl: ttl}
}

func credentialKey(sessionID string) string {
	return constants.RedisPrefixCredential + sessionID
}

/*
Load retrieves the credential stored for a session.

Description: Returns ErrNoCredential if the key is absent or expired. The TTL
is refreshed on every successful read so active sessions do not expire.

Returns:
  - Credential: Stored token and mirrored user
  - error: ErrNoCredential, decoding or connectivity errors
*/
func (store *RedisCredentialStore) Load(ctx context.Context, sessionID string) (Credential, error) {
	key := credentialKey(sessionID)

	raw, err := store.client.GetEx(ctx, key, store.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Credential{}, ErrNoCredential
		}
		return Credential{}, fmt.Errorf("redis_credential_get_failed: %w", err)
	}

	var credential Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return Credential{}, fmt.Errorf("redis_credential_decode_failed: %w", err)
	}

	return credential, nil
}

/*
Save stores the credential for a session with the configured TTL.
*/
func (store *RedisCredentialStore) Save(ctx context.Context, sessionID string, credential Credential) error {
	raw, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("redis_credential_encode_failed: %w", err)
	}

	if err := store.client.Set(ctx, credentialKey(sessionID), raw, store.ttl).Err(); err != nil {
		return fmt.Errorf("redis_credential_set_failed: %w", err)
	}

	return nil
}

/*
Clear removes the credential for a session.
*/
func (store *RedisCredentialStore) Clear(ctx context.Context, sessionID string) error {
	if err := store.client.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis_credential_delete_failed: %w", err)
	}
	return nil
}
