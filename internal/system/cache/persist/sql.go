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
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ringboard/ringboard/internal/system/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DataSourceTypePostgres selects the postgres driver.
	DataSourceTypePostgres = "postgres"
	// DataSourceTypeSQLite selects the embedded sqlite driver.
	DataSourceTypeSQLite = "sqlite"
)

const createRecordsTable = `CREATE TABLE IF NOT EXISTS cache_records (
	record_key TEXT PRIMARY KEY,
	cache_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	written_at BIGINT NOT NULL,
	ttl_ms BIGINT NOT NULL,
	tags TEXT NOT NULL
)`

// SQLStore is a Store backed by a relational database. A local sqlite file is
// the usual medium; postgres is supported for deployments that already run one.
type SQLStore struct {
	db     *sql.DB
	dbType string
}

// NewSQLStore opens a database connection for the given data source type and
// DSN, and ensures the records table exists.
func NewSQLStore(dbType, dsn string) (*SQLStore, error) {
	if dbType != DataSourceTypePostgres && dbType != DataSourceTypeSQLite {
		return nil, fmt.Errorf("unsupported data source type: %s", dbType)
	}

	db, err := sql.Open(dbType, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLStore{db: db, dbType: dbType}
	if _, err := db.Exec(createRecordsTable); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.GetLogger().Error("Failed to close database", log.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	return store, nil
}

// NewSQLStoreWithDB wraps an existing database handle. The records table is
// assumed to exist; used by callers that manage the schema themselves and in
// tests.
func NewSQLStoreWithDB(db *sql.DB, dbType string) *SQLStore {
	return &SQLStore{db: db, dbType: dbType}
}

// Persist writes a record, replacing any previous record under the same key.
func (s *SQLStore) Persist(mediumKey string, record Record) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	query := s.rebind(`INSERT INTO cache_records (record_key, cache_key, payload, written_at, ttl_ms, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_key) DO UPDATE SET
			cache_key = excluded.cache_key,
			payload = excluded.payload,
			written_at = excluded.written_at,
			ttl_ms = excluded.ttl_ms,
			tags = excluded.tags`)

	_, err = s.db.Exec(query, mediumKey, record.Key, string(record.Payload),
		record.WrittenAt.UnixNano(), record.TTL.Milliseconds(), string(tags))
	if err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	return nil
}

// Load reads a single record.
func (s *SQLStore) Load(mediumKey string) (Record, bool, error) {
	query := s.rebind(`SELECT cache_key, payload, written_at, ttl_ms, tags
		FROM cache_records WHERE record_key = ?`)

	row := s.db.QueryRow(query, mediumKey)
	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to load record: %w", err)
	}
	return record, true, nil
}

// List enumerates all records under the given prefix.
func (s *SQLStore) List(prefix string) ([]Record, error) {
	query := s.rebind(`SELECT cache_key, payload, written_at, ttl_ms, tags
		FROM cache_records WHERE record_key LIKE ? ESCAPE '\'`)

	rows, err := s.db.Query(query, likePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.GetLogger().Error("Error closing rows", log.Error(closeErr))
		}
	}()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Remove deletes a single record.
func (s *SQLStore) Remove(mediumKey string) error {
	query := s.rebind(`DELETE FROM cache_records WHERE record_key = ?`)
	if _, err := s.db.Exec(query, mediumKey); err != nil {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	return nil
}

// ClearPrefix deletes every record under the given prefix.
func (s *SQLStore) ClearPrefix(prefix string) error {
	query := s.rebind(`DELETE FROM cache_records WHERE record_key LIKE ? ESCAPE '\'`)
	if _, err := s.db.Exec(query, likePattern(prefix)); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to the $n form required by the postgres
// driver. Queries are written with ? and rewritten per database type, the same
// way the rest of the codebase keeps SQL portable between sqlite and postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dbType != DataSourceTypePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// likePattern builds a prefix-match LIKE pattern, escaping the characters that
// are meaningful to LIKE. Namespaces are configuration-controlled, but a
// defaulted namespace may still contain an underscore.
func likePattern(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}

func scanRecord(scan func(dest ...interface{}) error) (Record, error) {
	var (
		cacheKey  string
		payload   string
		writtenAt int64
		ttlMillis int64
		tagsJSON  string
	)
	if err := scan(&cacheKey, &payload, &writtenAt, &ttlMillis, &tagsJSON); err != nil {
		return Record{}, err
	}

	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return Record{}, fmt.Errorf("failed to deserialize tags: %w", err)
	}

	return Record{
		Key:       cacheKey,
		Payload:   json.RawMessage(payload),
		WrittenAt: time.Unix(0, writtenAt),
		TTL:       time.Duration(ttlMillis) * time.Millisecond,
		Tags:      tags,
	}, nil
}
