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
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Record represents a single ServiceNow table record as a map of field names
// to values.
type Record map[string]any

// TableResponse is the body returned when listing records of a table.
type TableResponse struct {
	Result []Record `json:"result"`
}

// RecordResponse is the body returned when creating or updating a record.
type RecordResponse struct {
	Result Record `json:"result"`
}

// Response is a successful (2xx) response from ServiceNow.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// GetOptions narrows down the records returned by GetRecords. Zero values are
// omitted from the request.
type GetOptions struct {
	// Query is an encoded query, e.g. active=true^priority=1.
	Query string

	// Fields restricts the returned fields of each record.
	Fields []string

	// Limit caps the number of records returned.
	Limit int

	// Offset skips the first N records.
	Offset int

	// DisplayValue is one of true, false or all.
	DisplayValue string

	// ExcludeReferenceLink drops the link attribute of reference fields.
	ExcludeReferenceLink bool
}

func (o GetOptions) values() url.Values {
	v := url.Values{}
	if o.Query != "" {
		v.Set("sysparm_query", o.Query)
	}
	if len(o.Fields) > 0 {
		v.Set("sysparm_fields", strings.Join(o.Fields, ","))
	}
	if o.Limit > 0 {
		v.Set("sysparm_limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("sysparm_offset", strconv.Itoa(o.Offset))
	}
	if o.DisplayValue != "" {
		v.Set("sysparm_display_value", o.DisplayValue)
	}
	if o.ExcludeReferenceLink {
		v.Set("sysparm_exclude_reference_link", "true")
	}
	return v
}
