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
	"strings"
	"sync"
)

// MemoryStore is a map-backed Store. It is used in tests and as the fallback
// medium when persistence is disabled; records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory persistence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Persist stores a record under the medium key.
func (s *MemoryStore) Persist(mediumKey string, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[mediumKey] = record
	return nil
}

// Load reads a single record.
func (s *MemoryStore) Load(mediumKey string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.records[mediumKey]
	return record, exists, nil
}

// List enumerates all records under the given prefix.
func (s *MemoryStore) List(prefix string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []Record
	for mediumKey, record := range s.records {
		if strings.HasPrefix(mediumKey, prefix) {
			records = append(records, record)
		}
	}
	return records, nil
}

// Remove deletes a single record.
func (s *MemoryStore) Remove(mediumKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, mediumKey)
	return nil
}

// ClearPrefix deletes every record under the given prefix.
func (s *MemoryStore) ClearPrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mediumKey := range s.records {
		if strings.HasPrefix(mediumKey, prefix) {
			delete(s.records, mediumKey)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
