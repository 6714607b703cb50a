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
	"sync"
	"time"

	"github.com/ringboard/ringboard/internal/system/log"
)

// FetchFunc is the remote-fetch contract wrapped by the fetcher. Any remote
// data call must take this shape to be cache-eligible.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// FetchOptions carries the per-call policy for Fetcher.Fetch.
type FetchOptions struct {
	// TTL overrides the store's default TTL for the written entry.
	TTL time.Duration
	// Tags labels the written entry for bulk invalidation.
	Tags []string
	// Persist writes the entry through to the persistence adapter.
	Persist bool
	// ForceRefresh bypasses the cache and always invokes the fetch function.
	ForceRefresh bool
	// StaleWhileRevalidate serves a stale entry immediately and refreshes it
	// in the background instead of blocking the caller.
	StaleWhileRevalidate bool
}

// Fetcher wraps a store with the fetch policy consumers actually call:
// serve fresh, serve-stale-and-refresh-in-background, or serve-stale-on-error.
type Fetcher[T any] struct {
	store *Store[T]
	wg    sync.WaitGroup
}

// NewFetcher creates a fetcher over the given store.
func NewFetcher[T any](store *Store[T]) *Fetcher[T] {
	return &Fetcher[T]{store: store}
}

// Store returns the underlying store.
func (f *Fetcher[T]) Store() *Store[T] {
	return f.store
}

// Fetch resolves the key against the cache and the given fetch function:
//
//   - fresh entry: returned immediately, fn is not invoked;
//   - stale entry with StaleWhileRevalidate: the stale value is returned
//     immediately and fn runs in the background, overwriting the entry on
//     success and leaving it untouched on failure;
//   - absent entry, ForceRefresh, or stale without StaleWhileRevalidate: fn
//     runs synchronously; its result is cached and returned. If fn fails and
//     a stale copy is still resident, the stale copy is served instead of the
//     error; with no fallback the error propagates.
//
// Concurrent calls against the same stale key each trigger their own refresh;
// the fetcher performs no request coalescing, so duplicate upstream calls are
// possible.
func (f *Fetcher[T]) Fetch(ctx context.Context, key string, fn FetchFunc[T], opts FetchOptions) (T, error) {
	snapshot, resident := f.store.Peek(key)
	fresh := resident && snapshot.Fresh(f.store.clock.Now())

	if !opts.ForceRefresh && fresh {
		if value, hit := f.store.Get(key); hit {
			return value, nil
		}
		// The entry expired between Peek and Get; fall through to a refetch.
		resident = false
	}

	if !opts.ForceRefresh && resident && opts.StaleWhileRevalidate {
		f.refreshInBackground(ctx, key, fn, opts)
		return snapshot.Value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		// The entry may have been deleted or invalidated while fn ran; only a
		// copy still resident in the store is a valid fallback.
		if stale, stillResident := f.store.Peek(key); stillResident {
			f.logger().Warn("Fetch failed, serving stale cache entry",
				log.String(log.LoggerKeyCacheKey, key), log.Error(err))
			return stale.Value, nil
		}
		var zero T
		return zero, err
	}

	f.store.Set(key, value, f.setOptions(opts))
	return value, nil
}

// WaitForRevalidations blocks until all in-flight background refreshes have
// completed. Intended for shutdown and tests.
func (f *Fetcher[T]) WaitForRevalidations() {
	f.wg.Wait()
}

// refreshInBackground launches fn without blocking the caller. The refresh is
// fire and forget: it is detached from the caller's cancellation and always
// completes, writing its result even if no consumer remains interested. The
// write is idempotent, so an orphaned refresh is harmless.
func (f *Fetcher[T]) refreshInBackground(ctx context.Context, key string, fn FetchFunc[T], opts FetchOptions) {
	bgCtx := context.WithoutCancel(ctx)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		value, err := fn(bgCtx)
		if err != nil {
			f.logger().Warn("Background revalidation failed, keeping stale entry",
				log.String(log.LoggerKeyCacheKey, key), log.Error(err))
			return
		}
		f.store.Set(key, value, f.setOptions(opts))
	}()
}

func (f *Fetcher[T]) setOptions(opts FetchOptions) SetOptions {
	return SetOptions{
		TTL:     opts.TTL,
		Tags:    opts.Tags,
		Persist: opts.Persist,
	}
}

func (f *Fetcher[T]) logger() *log.Logger {
	return log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Fetcher"),
		log.String(log.LoggerKeyCacheName, f.store.Name()))
}
