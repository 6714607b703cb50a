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

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InvalidationTestSuite struct {
	suite.Suite
	clock       *FakeClock
	store       *Store[string]
	invalidator *Invalidator[string]
}

func TestInvalidationTestSuite(t *testing.T) {
	suite.Run(t, new(InvalidationTestSuite))
}

func (suite *InvalidationTestSuite) SetupTest() {
	suite.clock = NewFakeClock(time.Now())
	suite.store = newTestStore(suite.clock, 100, time.Minute, nil)
	suite.invalidator = NewInvalidator(suite.store)
}

func (suite *InvalidationTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *InvalidationTestSuite) TestInvalidateRemovesEntry() {
	t := suite.T()
	suite.store.Set("a", "alpha", SetOptions{})

	assert.Equal(t, 1, suite.invalidator.Invalidate("a"))
	assert.False(t, suite.store.Has("a"))
}

func (suite *InvalidationTestSuite) TestCascadeFollowsDependents() {
	t := suite.T()
	suite.store.Set("clients", "list", SetOptions{})
	suite.store.Set("summary", "totals", SetOptions{})
	suite.store.Set("distribution", "chart", SetOptions{})
	suite.store.Set("unrelated", "value", SetOptions{})

	suite.invalidator.AddDependency("summary", "clients")
	suite.invalidator.AddDependency("distribution", "clients")

	count := suite.invalidator.Invalidate("clients")
	assert.Equal(t, 3, count)
	assert.False(t, suite.store.Has("clients"))
	assert.False(t, suite.store.Has("summary"))
	assert.False(t, suite.store.Has("distribution"))
	assert.True(t, suite.store.Has("unrelated"))
}

func (suite *InvalidationTestSuite) TestCascadeIsTransitive() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{})
	suite.store.Set("b", "2", SetOptions{})
	suite.store.Set("c", "3", SetOptions{})

	suite.invalidator.AddDependency("b", "a")
	suite.invalidator.AddDependency("c", "b")

	assert.Equal(t, 3, suite.invalidator.Invalidate("a"))
	assert.False(t, suite.store.Has("c"))
}

func (suite *InvalidationTestSuite) TestCascadeTerminatesOnCycle() {
	testCases := []struct {
		name string
		root string
	}{
		{name: "FromA", root: "a"},
		{name: "FromB", root: "b"},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			suite.SetupTest()
			defer suite.TearDownTest()

			suite.store.Set("a", "1", SetOptions{})
			suite.store.Set("b", "2", SetOptions{})
			suite.invalidator.AddDependency("a", "b")
			suite.invalidator.AddDependency("b", "a")

			notified := make(map[string]int)
			suite.invalidator.OnInvalidate("a", func(key string) error {
				notified[key]++
				return nil
			})
			suite.invalidator.OnInvalidate("b", func(key string) error {
				notified[key]++
				return nil
			})

			assert.Equal(t, 2, suite.invalidator.Invalidate(tc.root))
			assert.Equal(t, 1, notified["a"])
			assert.Equal(t, 1, notified["b"])
		})
	}
}

func (suite *InvalidationTestSuite) TestRemoveDependency() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{})
	suite.store.Set("b", "2", SetOptions{})

	suite.invalidator.AddDependency("b", "a")
	suite.invalidator.RemoveDependency("b", "a")

	assert.Equal(t, 1, suite.invalidator.Invalidate("a"))
	assert.True(t, suite.store.Has("b"))
}

func (suite *InvalidationTestSuite) TestInvalidateByTags() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{Tags: []string{"financial"}})
	suite.store.Set("b", "2", SetOptions{Tags: []string{"financial"}})
	suite.store.Set("c", "3", SetOptions{Tags: []string{"users"}})
	suite.store.Set("d", "4", SetOptions{})

	suite.invalidator.AddDependency("d", "a")

	count := suite.invalidator.InvalidateByTags("financial")
	assert.Equal(t, 3, count)
	assert.True(t, suite.store.Has("c"))
	assert.False(t, suite.store.Has("d"))
}

func (suite *InvalidationTestSuite) TestInvalidateAllNotifiesResidentKeys() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{})
	suite.store.Set("b", "2", SetOptions{})

	var notified []string
	suite.invalidator.OnInvalidate("a", func(key string) error {
		notified = append(notified, key)
		return nil
	})
	suite.invalidator.OnInvalidate("b", func(key string) error {
		notified = append(notified, key)
		return nil
	})

	suite.invalidator.InvalidateAll()
	assert.Equal(t, 0, suite.store.Stats().Size)
	assert.ElementsMatch(t, []string{"a", "b"}, notified)
}

func (suite *InvalidationTestSuite) TestUnsubscribeStopsCallbacks() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{})

	calls := 0
	unsubscribe := suite.invalidator.OnInvalidate("a", func(string) error {
		calls++
		return nil
	})

	suite.invalidator.Invalidate("a")
	require.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe()

	suite.store.Set("a", "1", SetOptions{})
	suite.invalidator.Invalidate("a")
	assert.Equal(t, 1, calls)
}

func (suite *InvalidationTestSuite) TestCallbackFailuresAreIsolated() {
	t := suite.T()
	suite.store.Set("a", "1", SetOptions{})
	suite.store.Set("b", "2", SetOptions{})
	suite.invalidator.AddDependency("b", "a")

	var ran []string
	suite.invalidator.OnInvalidate("a", func(string) error {
		ran = append(ran, "failing")
		return errors.New("downstream refused")
	})
	suite.invalidator.OnInvalidate("a", func(string) error {
		panic("subscriber bug")
	})
	suite.invalidator.OnInvalidate("a", func(string) error {
		ran = append(ran, "healthy")
		return nil
	})

	// The failing and panicking callbacks must not stop the remaining
	// subscriber or the cascade itself.
	assert.Equal(t, 2, suite.invalidator.Invalidate("a"))
	assert.Equal(t, []string{"failing", "healthy"}, ran)
	assert.False(t, suite.store.Has("b"))
}

func (suite *InvalidationTestSuite) TestInvalidateAbsentKeyStillCascades() {
	t := suite.T()
	suite.store.Set("b", "2", SetOptions{})
	suite.invalidator.AddDependency("b", "a")

	// The root is not resident; the cascade still reaches its dependents.
	assert.Equal(t, 2, suite.invalidator.Invalidate("a"))
	assert.False(t, suite.store.Has("b"))
}
