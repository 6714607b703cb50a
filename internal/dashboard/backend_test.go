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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type HTTPBackendTestSuite struct {
	suite.Suite
}

func TestHTTPBackendTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPBackendTestSuite))
}

func (suite *HTTPBackendTestSuite) TestQuery() {
	t := suite.T()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/calls.recent", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calls":[]}`))
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, time.Second)
	payload, err := backend.Query(context.Background(), DomainDashboard, "calls.recent",
		map[string]string{"limit": "50"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"calls":[]}`, string(payload))
}

func (suite *HTTPBackendTestSuite) TestQueryNonOKStatus() {
	t := suite.T()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, time.Second)
	payload, err := backend.Query(context.Background(), DomainDashboard, "clients.list", nil)
	assert.Nil(t, payload)
	assert.ErrorContains(t, err, "status 502")
}

func (suite *HTTPBackendTestSuite) TestQueryRespectsContextCancellation() {
	t := suite.T()
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewHTTPBackend(server.URL, time.Second)
	_, err := backend.Query(ctx, DomainDashboard, "clients.list", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *HTTPBackendTestSuite) TestQueryUnreachableBackend() {
	t := suite.T()
	backend := NewHTTPBackend("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := backend.Query(context.Background(), DomainDashboard, "clients.list", nil)
	assert.Error(t, err)
}
