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

package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPBackend queries the managed data backend over HTTP. Timeout semantics
// live here, on the fetch side of the contract; the cache itself has none.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend rooted at the given base URL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Query fetches one operation's result document.
func (b *HTTPBackend) Query(ctx context.Context, domain, operation string,
	params map[string]string) (Payload, error) {
	endpoint, err := url.JoinPath(b.baseURL, domain, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend request: %w", err)
	}
	if len(params) > 0 {
		query := req.URL.Query()
		for name, value := range params {
			query.Set(name, value)
		}
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d for %s/%s", resp.StatusCode, domain, operation)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}
	return Payload(body), nil
}
