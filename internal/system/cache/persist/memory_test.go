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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MemoryStoreTestSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (suite *MemoryStoreTestSuite) SetupTest() {
	suite.store = NewMemoryStore()
}

func testRecord(key string) Record {
	return Record{
		Key:       key,
		Payload:   json.RawMessage(`{"value":1}`),
		WrittenAt: time.Now(),
		TTL:       time.Minute,
		Tags:      []string{"clients"},
	}
}

func (suite *MemoryStoreTestSuite) TestPersistAndLoad() {
	t := suite.T()
	record := testRecord("a")
	require.NoError(t, suite.store.Persist("ns:a", record))

	loaded, found, err := suite.store.Load("ns:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, record.Key, loaded.Key)
	assert.Equal(t, record.Tags, loaded.Tags)
	assert.JSONEq(t, string(record.Payload), string(loaded.Payload))

	_, found, err = suite.store.Load("ns:missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func (suite *MemoryStoreTestSuite) TestPersistReplacesExistingRecord() {
	t := suite.T()
	require.NoError(t, suite.store.Persist("ns:a", testRecord("a")))

	updated := testRecord("a")
	updated.Payload = json.RawMessage(`{"value":2}`)
	require.NoError(t, suite.store.Persist("ns:a", updated))

	loaded, found, err := suite.store.Load("ns:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"value":2}`, string(loaded.Payload))
	assert.Equal(t, 1, suite.store.Len())
}

func (suite *MemoryStoreTestSuite) TestListFiltersByPrefix() {
	t := suite.T()
	require.NoError(t, suite.store.Persist("dashboard:a", testRecord("a")))
	require.NoError(t, suite.store.Persist("dashboard:b", testRecord("b")))
	require.NoError(t, suite.store.Persist("analytics:c", testRecord("c")))

	records, err := suite.store.List("dashboard:")
	require.NoError(t, err)
	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func (suite *MemoryStoreTestSuite) TestRemove() {
	t := suite.T()
	require.NoError(t, suite.store.Persist("ns:a", testRecord("a")))
	require.NoError(t, suite.store.Remove("ns:a"))
	require.NoError(t, suite.store.Remove("ns:a"))

	_, found, err := suite.store.Load("ns:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func (suite *MemoryStoreTestSuite) TestClearPrefix() {
	t := suite.T()
	require.NoError(t, suite.store.Persist("dashboard:a", testRecord("a")))
	require.NoError(t, suite.store.Persist("dashboard:b", testRecord("b")))
	require.NoError(t, suite.store.Persist("analytics:c", testRecord("c")))

	require.NoError(t, suite.store.ClearPrefix("dashboard:"))
	assert.Equal(t, 1, suite.store.Len())

	_, found, err := suite.store.Load("analytics:c")
	require.NoError(t, err)
	assert.True(t, found)
}
