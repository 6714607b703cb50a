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

// tagIndex maps each tag to the set of keys currently carrying it. It is
// maintained under the owning store's mutex and must never diverge from the
// live entry table.
type tagIndex struct {
	byTag map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[string]map[string]struct{}),
	}
}

// add registers the key under every given tag.
func (t *tagIndex) add(key string, tags []string) {
	for _, tag := range tags {
		keys, exists := t.byTag[tag]
		if !exists {
			keys = make(map[string]struct{})
			t.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// remove drops the key from every given tag, deleting empty tag sets.
func (t *tagIndex) remove(key string, tags []string) {
	for _, tag := range tags {
		if keys, exists := t.byTag[tag]; exists {
			delete(keys, key)
			if len(keys) == 0 {
				delete(t.byTag, tag)
			}
		}
	}
}

// keysFor returns the union of keys registered under any of the given tags.
func (t *tagIndex) keysFor(tags []string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, tag := range tags {
		for key := range t.byTag[tag] {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// clear drops the whole index.
func (t *tagIndex) clear() {
	t.byTag = make(map[string]map[string]struct{})
}
