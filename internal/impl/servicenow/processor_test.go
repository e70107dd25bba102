// Copyright 2026 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package servicenow

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpanda-data/benthos/v4/public/service"
)

// stubServer records the requests it receives and answers table requests with
// the configured handler. Token requests always succeed.
type stubServer struct {
	*httptest.Server

	mut   sync.Mutex
	calls []string
}

func newStubServer(t *testing.T, table http.HandlerFunc) *stubServer {
	t.Helper()

	s := &stubServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mut.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mut.Unlock()

		if r.URL.Path == "/oauth_token.do" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"token"}`))
			return
		}
		table(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) requests() []string {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]string(nil), s.calls...)
}

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func parseConf(t *testing.T, spec *service.ConfigSpec, yamlStr string) *service.ParsedConfig {
	t.Helper()

	conf, err := spec.ParseYAML(yamlStr, service.NewEnvironment())
	require.NoError(t, err)
	return conf
}

func structured(t *testing.T, batch service.MessageBatch) map[string]any {
	t.Helper()

	require.Len(t, batch, 1)
	v, err := batch[0].AsStructured()
	require.NoError(t, err)
	obj, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return obj
}

func TestGetProcessorBasicAuth(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/now/table/incident", r.URL.Path)
		assert.Equal(t, "active=true^priority=1", r.URL.Query().Get("sysparm_query"))
		assert.Equal(t, "10", r.URL.Query().Get("sysparm_limit"))
		assert.Equal(t, "all", r.URL.Query().Get("sysparm_display_value"))
		assert.Equal(t, "abc", r.Header.Get("X-Correlation"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "snow_username", user)
		assert.Equal(t, "snow_password", pass)

		respondJSON(w, http.StatusOK, `{"result":[
			{"number":"INC0000001","sys_id":"a","priority":"1"},
			{"number":"INC0000002","sys_id":"b","priority":"1"}
		]}`)
	})

	conf := parseConf(t, getProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: snow_username
password: snow_password
table: ${! @table }
query: active=true^priority=${! this.priority }
limit: 10
display_value: "all"
headers:
  X-Correlation: ${! @correlation }
`, srv.URL))

	proc, err := newGetProcessor(conf, service.MockResources())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, proc.Close(testContext(t))) })

	msg := service.NewMessage([]byte(`{"priority":1}`))
	msg.MetaSetMut("table", "incident")
	msg.MetaSetMut("correlation", "abc")

	batch, err := proc.Process(testContext(t), msg)
	require.NoError(t, err)

	out := structured(t, batch)
	assert.Equal(t, int64(2), out["size"])

	results, ok := out["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "INC0000001", results[0].(map[string]any)["number"])
	assert.Equal(t, "b", results[1].(map[string]any)["sys_id"])

	table, _ := batch[0].MetaGet("servicenow_table")
	assert.Equal(t, "incident", table)
	correlation, _ := batch[0].MetaGet("correlation")
	assert.Equal(t, "abc", correlation)

	assert.Equal(t, []string{"GET /api/now/table/incident"}, srv.requests())
}

func TestPostProcessorOAuth(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"short_description": "API Create Incident...",
			"requested_for":     "a7ec77cbdefac300d322d182689619dc",
		}, body)

		respondJSON(w, http.StatusCreated, `{"result":{
			"number":"INC0010002",
			"short_description":"API Create Incident...",
			"sys_id":"c537bae64f411200adf9f8e18110c76e",
			"sys_domain":{"link":"https://instance.servicenow.com/api/now/table/sys_user_group/global","value":"global"}
		}}`)
	})

	conf := parseConf(t, postProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
client_id: clientId
client_secret: clientSecret
table: fakeTableName
data: |
  root.short_description = this.title
  root.requested_for = this.user
`, srv.URL))

	proc, err := newPostProcessor(conf, service.MockResources())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, proc.Close(testContext(t))) })

	for i := 0; i < 2; i++ {
		batch, err := proc.Process(testContext(t), service.NewMessage([]byte(
			`{"title":"API Create Incident...","user":"a7ec77cbdefac300d322d182689619dc"}`,
		)))
		require.NoError(t, err)

		out := structured(t, batch)
		result, ok := out["result"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, result, 4)
		assert.Equal(t, "INC0010002", result["number"])
		assert.Equal(t, "global", result["sys_domain"].(map[string]any)["value"])

		sysID, _ := batch[0].MetaGet("servicenow_sys_id")
		assert.Equal(t, "c537bae64f411200adf9f8e18110c76e", sysID)
	}

	assert.Equal(t, []string{
		"POST /oauth_token.do",
		"POST /api/now/table/fakeTableName",
		"POST /api/now/table/fakeTableName",
	}, srv.requests())
}

func TestPostProcessorRejectsNonObjectData(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
		w.WriteHeader(http.StatusInternalServerError)
	})

	conf := parseConf(t, postProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
table: incident
`, srv.URL))

	proc, err := newPostProcessor(conf, service.MockResources())
	require.NoError(t, err)

	_, err = proc.Process(testContext(t), service.NewMessage([]byte(`["not","an","object"]`)))
	require.ErrorContains(t, err, "expected record data to be an object")
}

func TestPostProcessorEmptyBody(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	conf := parseConf(t, postProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
table: incident
`, srv.URL))

	proc, err := newPostProcessor(conf, service.MockResources())
	require.NoError(t, err)

	_, err = proc.Process(testContext(t), service.NewMessage([]byte(`{"short_description":"foo"}`)))
	require.ErrorContains(t, err, "empty response body")
}

func TestUpdateProcessor(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/now/table/incident/04ce72c9c0a8016600b5b7f75ac67b5b", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"state": "6", "close_notes": "Fixed"}, body)

		respondJSON(w, http.StatusOK, `{"result":{
			"sys_id":"04ce72c9c0a8016600b5b7f75ac67b5b",
			"state":"6",
			"close_notes":"Fixed"
		}}`)
	})

	conf := parseConf(t, updateProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
table: incident
sys_id: ${! @sys_id }
`, srv.URL))

	proc, err := newUpdateProcessor(conf, service.MockResources())
	require.NoError(t, err)

	msg := service.NewMessage([]byte(`{"state":"6","close_notes":"Fixed"}`))
	msg.MetaSetMut("sys_id", "04ce72c9c0a8016600b5b7f75ac67b5b")

	batch, err := proc.Process(testContext(t), msg)
	require.NoError(t, err)

	result, ok := structured(t, batch)["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "6", result["state"])
	assert.Equal(t, "Fixed", result["close_notes"])
}

func TestUpdateProcessorEmptySysID(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
		w.WriteHeader(http.StatusInternalServerError)
	})

	conf := parseConf(t, updateProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
table: incident
sys_id: ${! @sys_id }
`, srv.URL))

	proc, err := newUpdateProcessor(conf, service.MockResources())
	require.NoError(t, err)

	_, err = proc.Process(testContext(t), service.NewMessage([]byte(`{"state":"6"}`)))
	require.ErrorContains(t, err, "sys_id must not be empty")
}

func TestDeleteProcessor(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "no content", status: http.StatusNoContent, want: true},
		{name: "ok", status: http.StatusOK, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(test.status)
			})

			conf := parseConf(t, deleteProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: password
client_id: clientId
client_secret: clientSecret
table: fakeTableName
sys_id: 04ce72c9c0a8016600b5b7f75ac67b5b
`, srv.URL))

			proc, err := newDeleteProcessor(conf, service.MockResources())
			require.NoError(t, err)

			batch, err := proc.Process(testContext(t), service.NewMessage(nil))
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"deleted": test.want}, structured(t, batch))

			assert.Equal(t, []string{
				"POST /oauth_token.do",
				"DELETE /api/now/table/fakeTableName/04ce72c9c0a8016600b5b7f75ac67b5b",
			}, srv.requests())
		})
	}
}

func TestProcessorErrorResponse(t *testing.T) {
	srv := newStubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusForbidden, `{"error":{"message":"User Not Authorized","detail":"Required to provide Auth information"},"status":"failure"}`)
	})

	conf := parseConf(t, getProcessorConfigSpec(), fmt.Sprintf(`
base_url: %s
username: username
password: wrong
table: incident
`, srv.URL))

	proc, err := newGetProcessor(conf, service.MockResources())
	require.NoError(t, err)

	_, err = proc.Process(testContext(t), service.NewMessage(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "User Not Authorized")
}

func TestProcessorConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "client id without secret",
			config: `
domain: acme
username: u
password: p
client_id: foo
table: incident
`,
			wantErr: "client_id and client_secret must be set together",
		},
		{
			name: "missing domain",
			config: `
username: u
password: p
table: incident
`,
			wantErr: "domain is required",
		},
		{
			name: "unknown rate limit",
			config: `
domain: acme
username: u
password: p
table: incident
rate_limit: foo
`,
			wantErr: "rate limit resource 'foo' was not found",
		},
		{
			name: "zero limit",
			config: `
domain: acme
username: u
password: p
table: incident
limit: 0
`,
			wantErr: "limit must be greater than zero",
		},
		{
			name: "negative offset",
			config: `
domain: acme
username: u
password: p
table: incident
offset: -5
`,
			wantErr: "offset must not be negative, got -5",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := parseConf(t, getProcessorConfigSpec(), test.config)
			_, err := newGetProcessor(conf, service.MockResources())
			require.ErrorContains(t, err, test.wantErr)
		})
	}
}

func TestProcessorConfigDefaults(t *testing.T) {
	conf := parseConf(t, getProcessorConfigSpec(), `
domain: acme
username: u
password: p
table: incident
`)

	proc, err := newGetProcessor(conf, service.MockResources())
	require.NoError(t, err)

	assert.Equal(t, "https://acme.service-now.com/", proc.conn.client.BaseURL())
	assert.False(t, proc.conn.client.UsesOAuth())
	assert.Empty(t, proc.conn.headers)
	assert.Zero(t, proc.opts.Limit)
	assert.Empty(t, proc.opts.Fields)
}
