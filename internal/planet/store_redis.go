// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package planet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
)

// RedisInviteRepository implements InviteRepository using Redis.
//
// Invite codes are volatile: Redis owns their expiry, and GETDEL consumption
// makes every code single-use without a read-then-delete race window.
type RedisInviteRepository struct {
	client *redis.Client
}

// NewInviteRepository creates a new Redis-backed InviteRepository.
func NewInviteRepository(client *redis.Client) *RedisInviteRepository {
	return &RedisInviteRepository{client: client}
}

/*
Create stores an invite code resolving to a planet id with a TTL.

Parameters:
  - context: context.Context
  - code: string
  - planetID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisInviteRepository) Create(context context.Context, code, planetID string, ttl time.Duration) error {
	key := constants.RedisPrefixInvite + code

	if err := repository.client.Set(context, key, planetID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_invite_create_failed: %w", err)
	}
	return nil
}

/*
Peek retrieves the planet id for an invite code without removing it.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - string: Planet id
  - error: apperr NOT_FOUND or connectivity errors
*/
func (repository *RedisInviteRepository) Peek(context context.Context, code string) (string, error) {
	key := constants.RedisPrefixInvite + code

	planetID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Invite")
		}
		return "", fmt.Errorf("redis_invite_peek_failed: %w", err)
	}
	return planetID, nil
}

/*
Consume atomically retrieves and removes the planet id for an invite code.

Description: GETDEL guarantees single use; a second redemption of the same
code observes redis.Nil and maps to apperr NOT_FOUND.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - string: Planet id
  - error: apperr NOT_FOUND or connectivity errors
*/
func (repository *RedisInviteRepository) Consume(context context.Context, code string) (string, error) {
	key := constants.RedisPrefixInvite + code

	planetID, err := repository.client.GetDel(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Invite")
		}
		return "", fmt.Errorf("redis_invite_consume_failed: %w", err)
	}
	return planetID, nil
}
