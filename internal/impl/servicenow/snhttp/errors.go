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

package snhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrEmptyBody is returned when ServiceNow answers with an empty body to a
	// request that is expected to return one.
	ErrEmptyBody = errors.New("empty response body")

	// ErrMissingResult is returned when a response body does not contain the
	// top level result field.
	ErrMissingResult = errors.New("response body is missing a result field")

	// ErrMissingTable is returned when a table operation is attempted with an
	// empty table name.
	ErrMissingTable = errors.New("table name must not be empty")

	// ErrMissingSysID is returned when a record operation is attempted with an
	// empty sys_id.
	ErrMissingSysID = errors.New("sys_id must not be empty")
)

// HTTPError wraps non-2xx responses with useful context.
type HTTPError struct {
	StatusCode int
	Reason     string
	Body       string
	Headers    http.Header
}

func (e *HTTPError) Error() string {
	body := strings.ReplaceAll(e.Body, "\n", "")
	return fmt.Sprintf("request failed with status %d (%s) and body '%s'", e.StatusCode, e.Reason, body)
}

// errorResponse is the error envelope returned by the ServiceNow REST API.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

func newHTTPError(res *http.Response, body []byte) *HTTPError {
	e := &HTTPError{
		StatusCode: res.StatusCode,
		Reason:     http.StatusText(res.StatusCode),
		Body:       string(body),
		Headers:    res.Header.Clone(),
	}

	var snErr errorResponse
	if err := json.Unmarshal(body, &snErr); err == nil && snErr.Error.Message != "" {
		e.Reason = snErr.Error.Message
		if snErr.Error.Detail != "" {
			e.Reason += ": " + snErr.Error.Detail
		}
	}
	return e
}
