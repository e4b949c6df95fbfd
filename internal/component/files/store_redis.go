// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
)

// RedisTicketRepository implements TicketRepository using Redis.
//
// Tickets are volatile by design: Redis owns their expiry, and GETDEL
// consumption makes every ticket single-use without a read-then-delete race
// window.
type RedisTicketRepository struct {
	client *redis.Client
}

// NewTicketRepository creates a new Redis-backed TicketRepository.
func NewTicketRepository(client *redis.Client) *RedisTicketRepository {
	return &RedisTicketRepository{client: client}
}

/*
Create stores a download bundle under a ticket id with a TTL.

Parameters:
  - context: context.Context
  - ticketID: string
  - bundle: *TicketBundle
  - ttl: time.Duration

Returns:
  - error: Encoding or execution errors
*/
func (repository *RedisTicketRepository) Create(context context.Context, ticketID string, bundle *TicketBundle, ttl time.Duration) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("redis_ticket_encode_failed: %w", err)
	}

	key := constants.RedisPrefixDownloadTicket + ticketID
	if err := repository.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_ticket_create_failed: %w", err)
	}
	return nil
}

/*
Consume atomically retrieves and removes a download bundle.

Description: GETDEL guarantees single use; a second resolution of the same
ticket observes redis.Nil and maps to apperr NOT_FOUND.

Parameters:
  - context: context.Context
  - ticketID: string

Returns:
  - *TicketBundle: The resolved bundle
  - error: apperr NOT_FOUND or connectivity errors
*/
func (repository *RedisTicketRepository) Consume(context context.Context, ticketID string) (*TicketBundle, error) {
	key := constants.RedisPrefixDownloadTicket + ticketID

	payload, err := repository.client.GetDel(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Ticket")
		}
		return nil, fmt.Errorf("redis_ticket_consume_failed: %w", err)
	}

	bundle := &TicketBundle{}
	if err := json.Unmarshal(payload, bundle); err != nil {
		return nil, fmt.Errorf("redis_ticket_decode_failed: %w", err)
	}
	return bundle, nil
}
