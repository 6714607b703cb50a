/*
 * Copyright (c) 2026, Ringboard, Inc. (https://www.ringboard.io).
 *
 * Ringboard, Inc. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout caps each redis round trip so a slow medium cannot stall
// cache writes; callers treat timeouts as a miss.
const redisOpTimeout = 500 * time.Millisecond

// RedisStore is a Store backed by redis, for deployments where dashboard
// replicas share a warm cache across restarts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Persist writes a record. The record's TTL doubles as the redis expiry, so
// the medium drops records on its own once they can no longer be rehydrated.
func (s *RedisStore) Persist(mediumKey string, record Record) error {
	ctx, cancel := opContext()
	defer cancel()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	var expiry time.Duration
	if record.TTL > 0 {
		expiry = record.TTL
	}
	if err := s.client.Set(ctx, mediumKey, data, expiry).Err(); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	return nil
}

// Load reads a single record.
func (s *RedisStore) Load(mediumKey string) (Record, bool, error) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := s.client.Get(ctx, mediumKey).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to load record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("failed to deserialize record: %w", err)
	}
	return record, true, nil
}

// List enumerates all records under the given prefix via SCAN.
func (s *RedisStore) List(prefix string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var records []Record
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to deserialize record: %w", err)
		}
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

// Remove deletes a single record.
func (s *RedisStore) Remove(mediumKey string) error {
	ctx, cancel := opContext()
	defer cancel()

	if err := s.client.Del(ctx, mediumKey).Err(); err != nil {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	return nil
}

// ClearPrefix deletes every record under the given prefix.
func (s *RedisStore) ClearPrefix(prefix string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to remove record: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	return nil
}

// Close closes the underlying redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}
