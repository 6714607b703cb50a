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
	"fmt"
	"sync"

	"github.com/ringboard/ringboard/internal/system/log"
)

// InvalidateCallback is a side effect run when a key is invalidated. A
// returned error is logged; it never blocks other subscribers or the
// invalidation itself.
type InvalidateCallback func(key string) error

type subscription struct {
	key      string
	callback InvalidateCallback
}

// Invalidator layers a dependency graph and invalidation subscriptions over a
// store. Invalidation through it cascades to every registered dependent key;
// plain store operations (eviction, sweep) do not.
type Invalidator[T any] struct {
	store *Store[T]

	mu sync.Mutex
	// dependents maps a key to the set of keys that must also be invalidated
	// when it is invalidated.
	dependents    map[string]map[string]struct{}
	subscriptions map[string][]*subscription
}

// NewInvalidator creates an invalidator over the given store.
func NewInvalidator[T any](store *Store[T]) *Invalidator[T] {
	return &Invalidator[T]{
		store:         store,
		dependents:    make(map[string]map[string]struct{}),
		subscriptions: make(map[string][]*subscription),
	}
}

// AddDependency registers that invalidating dependsOn must also invalidate
// key. Dependencies are transitive and may form cycles; cascades terminate
// regardless.
func (i *Invalidator[T]) AddDependency(key, dependsOn string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	deps, exists := i.dependents[dependsOn]
	if !exists {
		deps = make(map[string]struct{})
		i.dependents[dependsOn] = deps
	}
	deps[key] = struct{}{}
}

// RemoveDependency drops a previously registered dependency.
func (i *Invalidator[T]) RemoveDependency(key, dependsOn string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if deps, exists := i.dependents[dependsOn]; exists {
		delete(deps, key)
		if len(deps) == 0 {
			delete(i.dependents, dependsOn)
		}
	}
}

// OnInvalidate registers a callback to run whenever the key is invalidated,
// whether directly, by tags, or through a cascade. The returned function
// removes the subscription and is safe to call more than once.
func (i *Invalidator[T]) OnInvalidate(key string, callback InvalidateCallback) func() {
	sub := &subscription{key: key, callback: callback}

	i.mu.Lock()
	i.subscriptions[key] = append(i.subscriptions[key], sub)
	i.mu.Unlock()

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		subs := i.subscriptions[key]
		for idx, candidate := range subs {
			if candidate == sub {
				i.subscriptions[key] = append(subs[:idx], subs[idx+1:]...)
				break
			}
		}
		if len(i.subscriptions[key]) == 0 {
			delete(i.subscriptions, key)
		}
	}
}

// Invalidate removes the entry for the key, runs its subscriptions, and
// cascades to every dependent key, each invalidated exactly once. It returns
// the number of keys invalidated.
func (i *Invalidator[T]) Invalidate(key string) int {
	return i.invalidateKeys([]string{key})
}

// InvalidateByTags invalidates every resident entry carrying any of the given
// tags, cascading from each. It returns the number of keys invalidated.
func (i *Invalidator[T]) InvalidateByTags(tags ...string) int {
	return i.invalidateKeys(i.store.KeysByTags(tags...))
}

// InvalidateAll clears the store and runs the subscriptions of every key that
// was resident.
func (i *Invalidator[T]) InvalidateAll() {
	keys := i.store.Keys()
	i.store.Clear()
	for _, key := range keys {
		i.notify(key)
	}
}

// invalidateKeys expands the roots through the dependency graph with a
// visited set, then deletes and notifies each key in discovery order. The
// visited set guarantees termination on cyclic dependency declarations.
func (i *Invalidator[T]) invalidateKeys(roots []string) int {
	i.mu.Lock()
	visited := make(map[string]struct{})
	var order []string
	var walk func(key string)
	walk = func(key string) {
		if _, seen := visited[key]; seen {
			return
		}
		visited[key] = struct{}{}
		order = append(order, key)
		for dependent := range i.dependents[key] {
			walk(dependent)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	i.mu.Unlock()

	for _, key := range order {
		i.store.Delete(key)
		i.notify(key)
	}
	return len(order)
}

// notify runs the subscriptions registered for the key. Each callback is
// isolated: an error or panic is logged and the remaining callbacks still run.
func (i *Invalidator[T]) notify(key string) {
	i.mu.Lock()
	subs := i.subscriptions[key]
	callbacks := make([]InvalidateCallback, len(subs))
	for idx, sub := range subs {
		callbacks[idx] = sub.callback
	}
	i.mu.Unlock()

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Invalidator"),
		log.String(log.LoggerKeyCacheName, i.store.Name()))
	for _, callback := range callbacks {
		i.runCallback(logger, key, callback)
	}
}

func (i *Invalidator[T]) runCallback(logger *log.Logger, key string, callback InvalidateCallback) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Invalidation callback panicked",
				log.String(log.LoggerKeyCacheKey, key), log.Error(fmt.Errorf("%v", r)))
		}
	}()
	if err := callback(key); err != nil {
		logger.Warn("Invalidation callback failed",
			log.String(log.LoggerKeyCacheKey, key), log.Error(err))
	}
}
