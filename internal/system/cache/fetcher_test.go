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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FetcherTestSuite struct {
	suite.Suite
	clock   *FakeClock
	store   *Store[string]
	fetcher *Fetcher[string]
}

func TestFetcherTestSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

func (suite *FetcherTestSuite) SetupTest() {
	suite.clock = NewFakeClock(time.Now())
	suite.store = newTestStore(suite.clock, 100, 100*time.Millisecond, nil)
	suite.fetcher = NewFetcher(suite.store)
}

func (suite *FetcherTestSuite) TearDownTest() {
	suite.fetcher.WaitForRevalidations()
	suite.store.Close()
}

func countingFetch(value *atomic.Value, calls *atomic.Int32) FetchFunc[string] {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value.Load().(string), nil
	}
}

func (suite *FetcherTestSuite) TestFreshEntrySkipsFetch() {
	t := suite.T()
	suite.store.Set("a", "cached", SetOptions{})

	calls := 0
	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		calls++
		return "remote", nil
	}, FetchOptions{StaleWhileRevalidate: true})

	require.NoError(t, err)
	assert.Equal(t, "cached", value)
	assert.Equal(t, 0, calls)
}

func (suite *FetcherTestSuite) TestAbsentEntryFetchesAndCaches() {
	t := suite.T()
	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		return "remote", nil
	}

	value, err := suite.fetcher.Fetch(context.Background(), "a", fn, FetchOptions{Tags: []string{"clients"}})
	require.NoError(t, err)
	assert.Equal(t, "remote", value)
	assert.Equal(t, 1, calls)
	assert.ElementsMatch(t, []string{"a"}, suite.store.KeysByTags("clients"))

	// The second call is served from the cache.
	value, err = suite.fetcher.Fetch(context.Background(), "a", fn, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "remote", value)
	assert.Equal(t, 1, calls)
}

func (suite *FetcherTestSuite) TestForceRefreshBypassesFreshEntry() {
	t := suite.T()
	suite.store.Set("a", "cached", SetOptions{})

	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		return "remote", nil
	}, FetchOptions{ForceRefresh: true})

	require.NoError(t, err)
	assert.Equal(t, "remote", value)

	cached, found := suite.store.Get("a")
	require.True(t, found)
	assert.Equal(t, "remote", cached)
}

func (suite *FetcherTestSuite) TestStaleWhileRevalidateServesStaleThenRefreshes() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	var remote atomic.Value
	remote.Store("refreshed")
	var calls atomic.Int32

	value, err := suite.fetcher.Fetch(context.Background(), "a",
		countingFetch(&remote, &calls), FetchOptions{StaleWhileRevalidate: true})
	require.NoError(t, err)
	assert.Equal(t, "stale", value)

	suite.fetcher.WaitForRevalidations()
	assert.Equal(t, int32(1), calls.Load())

	cached, found := suite.store.Get("a")
	require.True(t, found)
	assert.Equal(t, "refreshed", cached)
}

func (suite *FetcherTestSuite) TestStaleWithoutRevalidateBlocksForFreshValue() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		return "refreshed", nil
	}, FetchOptions{})

	require.NoError(t, err)
	assert.Equal(t, "refreshed", value)
}

func (suite *FetcherTestSuite) TestServeStaleOnError() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		return "", errors.New("upstream down")
	}, FetchOptions{})

	require.NoError(t, err)
	assert.Equal(t, "stale", value)
}

func (suite *FetcherTestSuite) TestErrorAfterConcurrentInvalidationDoesNotServeStale() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	upstreamErr := errors.New("upstream down")
	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		// An invalidation lands while the synchronous refetch is in flight;
		// the removed copy must not come back as a fallback.
		suite.store.Delete("a")
		return "", upstreamErr
	}, FetchOptions{})

	assert.ErrorIs(t, err, upstreamErr)
	assert.Empty(t, value)
}

func (suite *FetcherTestSuite) TestErrorPropagatesWithoutFallback() {
	t := suite.T()
	upstreamErr := errors.New("upstream down")

	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		return "", upstreamErr
	}, FetchOptions{})

	assert.ErrorIs(t, err, upstreamErr)
	assert.Empty(t, value)
	assert.False(t, suite.store.Has("a"))
}

func (suite *FetcherTestSuite) TestBackgroundRefreshFailureKeepsStale() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	value, err := suite.fetcher.Fetch(context.Background(), "a", func(context.Context) (string, error) {
		return "", errors.New("upstream down")
	}, FetchOptions{StaleWhileRevalidate: true})
	require.NoError(t, err)
	assert.Equal(t, "stale", value)

	suite.fetcher.WaitForRevalidations()

	snapshot, resident := suite.store.Peek("a")
	require.True(t, resident)
	assert.Equal(t, "stale", snapshot.Value)
}

func (suite *FetcherTestSuite) TestConcurrentStaleFetchesAreNotCoalesced() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	gate := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-gate
		return "refreshed", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := suite.fetcher.Fetch(context.Background(), "a", fn,
				FetchOptions{StaleWhileRevalidate: true})
			assert.NoError(t, err)
			assert.Equal(t, "stale", value)
		}()
	}
	wg.Wait()

	close(gate)
	suite.fetcher.WaitForRevalidations()

	// Each caller triggered its own upstream call.
	assert.Equal(t, int32(2), calls.Load())
}

func (suite *FetcherTestSuite) TestBackgroundRefreshSurvivesCallerCancellation() {
	t := suite.T()
	suite.store.Set("a", "stale", SetOptions{})
	suite.clock.Advance(150 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	value, err := suite.fetcher.Fetch(ctx, "a", func(fetchCtx context.Context) (string, error) {
		close(started)
		// The background context must outlive the caller's cancellation.
		select {
		case <-fetchCtx.Done():
			return "", fetchCtx.Err()
		case <-time.After(10 * time.Millisecond):
			return "refreshed", nil
		}
	}, FetchOptions{StaleWhileRevalidate: true})
	require.NoError(t, err)
	assert.Equal(t, "stale", value)

	<-started
	cancel()
	suite.fetcher.WaitForRevalidations()

	cached, found := suite.store.Peek("a")
	require.True(t, found)
	assert.Equal(t, "refreshed", cached.Value)
}
