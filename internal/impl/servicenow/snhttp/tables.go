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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const tableAPIPath = "api/now/table/"

// TablePath returns the Table API path of a table, or of a single record when
// sysID is not empty.
func TablePath(table, sysID string) string {
	p := tableAPIPath + url.PathEscape(table)
	if sysID != "" {
		p += "/" + url.PathEscape(sysID)
	}
	return p
}

// GetRecords retrieves the records of a table.
func (c *Client) GetRecords(ctx context.Context, table string, opts GetOptions, headers http.Header) ([]Record, error) {
	if table == "" {
		return nil, ErrMissingTable
	}

	res, err := c.Do(ctx, http.MethodGet, TablePath(table, ""), opts.values(), headers, nil)
	if err != nil {
		return nil, err
	}

	var body TableResponse
	if err := decodeBody(res, &body); err != nil {
		return nil, err
	}
	if body.Result == nil {
		return nil, ErrMissingResult
	}
	return body.Result, nil
}

// CreateRecord inserts a record into a table and returns the record as stored
// by ServiceNow.
func (c *Client) CreateRecord(ctx context.Context, table string, data Record, headers http.Header) (Record, error) {
	if table == "" {
		return nil, ErrMissingTable
	}

	res, err := c.Do(ctx, http.MethodPost, TablePath(table, ""), nil, headers, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(res)
}

// UpdateRecord replaces the given fields of a record and returns the updated
// record.
func (c *Client) UpdateRecord(ctx context.Context, table, sysID string, data Record, headers http.Header) (Record, error) {
	if table == "" {
		return nil, ErrMissingTable
	}
	if sysID == "" {
		return nil, ErrMissingSysID
	}

	res, err := c.Do(ctx, http.MethodPut, TablePath(table, sysID), nil, headers, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(res)
}

// DeleteRecord deletes a record. The returned bool is true only when
// ServiceNow answers with 204 No Content.
func (c *Client) DeleteRecord(ctx context.Context, table, sysID string, headers http.Header) (bool, error) {
	if table == "" {
		return false, ErrMissingTable
	}
	if sysID == "" {
		return false, ErrMissingSysID
	}

	res, err := c.Do(ctx, http.MethodDelete, TablePath(table, sysID), nil, headers, nil)
	if err != nil {
		return false, err
	}
	return res.StatusCode == http.StatusNoContent, nil
}

func decodeRecord(res *Response) (Record, error) {
	var body RecordResponse
	if err := decodeBody(res, &body); err != nil {
		return nil, err
	}
	if body.Result == nil {
		return nil, ErrMissingResult
	}
	return body.Result, nil
}

func decodeBody(res *Response, v any) error {
	if len(bytes.TrimSpace(res.Body)) == 0 {
		return fmt.Errorf("status %d: %w", res.StatusCode, ErrEmptyBody)
	}
	if err := json.Unmarshal(res.Body, v); err != nil {
		return fmt.Errorf("error parsing response body: %w", err)
	}
	return nil
}
