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
	"context"
	"fmt"

	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/redpanda-data/connect-servicenow/internal/impl/servicenow/snhttp"
)

const (
	sngFieldQuery                = "query"
	sngFieldFields               = "fields"
	sngFieldLimit                = "limit"
	sngFieldOffset               = "offset"
	sngFieldDisplayValue         = "display_value"
	sngFieldExcludeReferenceLink = "exclude_reference_link"
)

func getProcessorConfigSpec() *service.ConfigSpec {
	return service.NewConfigSpec().
		Categories("Services").
		Version(snVersionFrom).
		Summary("Retrieves records from a ServiceNow table.").
		Description(`
Calls the ServiceNow Table API with a GET request and replaces the message with an object containing the records found and their count:

`+"```json"+`
{"results": [{"number": "INC0010002", "sys_id": "..."}], "size": 1}
`+"```"+`

The metadata field `+"`servicenow_table`"+` is set on the resulting message. In order to keep the original contents of the message use a `+"[`branch` processor](/docs/components/processors/branch)"+`.`).
		Example(
			"Get incidents using basic authentication",
			"Fetches the active incidents of an instance.",
			`
pipeline:
  processors:
    - servicenow_get:
        domain: "${SNOW_DOMAIN}"
        username: "${SNOW_USERNAME}"
        password: "${SNOW_PASSWORD}"
        table: incident
        query: active=true
`).
		Example(
			"Get incidents using OAuth",
			"Authenticates with the OAuth password grant of a registered application.",
			`
pipeline:
  processors:
    - servicenow_get:
        domain: "${SNOW_DOMAIN}"
        username: "${SNOW_USERNAME}"
        password: "${SNOW_PASSWORD}"
        client_id: "${SNOW_CLIENT_ID}"
        client_secret: "${SNOW_CLIENT_SECRET}"
        table: incident
`).
		Fields(connectionFields()...).
		Field(tableField()).
		Field(service.NewInterpolatedStringField(sngFieldQuery).
			Description("An encoded query used to filter records.").
			Example("active=true^priority=1").
			Default("")).
		Field(service.NewStringListField(sngFieldFields).
			Description("Restricts the fields returned for each record. All fields are returned when empty.").
			Example([]string{"number", "short_description", "sys_id"}).
			Default([]any{})).
		Field(service.NewIntField(sngFieldLimit).
			Description("The maximum number of records to return.").
			Optional()).
		Field(service.NewIntField(sngFieldOffset).
			Description("The number of records to skip.").
			Advanced().
			Optional()).
		Field(service.NewStringEnumField(sngFieldDisplayValue, "true", "false", "all").
			Description("Whether to return display values, actual values or both.").
			Advanced().
			Optional()).
		Field(service.NewBoolField(sngFieldExcludeReferenceLink).
			Description("Whether to exclude the API link of reference fields.").
			Advanced().
			Default(false))
}

func init() {
	if err := service.RegisterProcessor(
		"servicenow_get", getProcessorConfigSpec(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newGetProcessor(conf, mgr)
		},
	); err != nil {
		panic(err)
	}
}

type getProcessor struct {
	conn  *connection
	log   *service.Logger
	table *service.InterpolatedString
	query *service.InterpolatedString
	opts  snhttp.GetOptions
}

func newGetProcessor(conf *service.ParsedConfig, mgr *service.Resources) (*getProcessor, error) {
	p := &getProcessor{log: mgr.Logger()}

	var err error
	if p.table, err = conf.FieldInterpolatedString(snFieldTable); err != nil {
		return nil, err
	}
	if p.query, err = conf.FieldInterpolatedString(sngFieldQuery); err != nil {
		return nil, err
	}
	if p.opts.Fields, err = conf.FieldStringList(sngFieldFields); err != nil {
		return nil, err
	}
	if conf.Contains(sngFieldLimit) {
		if p.opts.Limit, err = conf.FieldInt(sngFieldLimit); err != nil {
			return nil, err
		}
		if p.opts.Limit < 1 {
			return nil, fmt.Errorf("%v must be greater than zero, got %d", sngFieldLimit, p.opts.Limit)
		}
	}
	if conf.Contains(sngFieldOffset) {
		if p.opts.Offset, err = conf.FieldInt(sngFieldOffset); err != nil {
			return nil, err
		}
		if p.opts.Offset < 0 {
			return nil, fmt.Errorf("%v must not be negative, got %d", sngFieldOffset, p.opts.Offset)
		}
	}
	if conf.Contains(sngFieldDisplayValue) {
		if p.opts.DisplayValue, err = conf.FieldString(sngFieldDisplayValue); err != nil {
			return nil, err
		}
	}
	if p.opts.ExcludeReferenceLink, err = conf.FieldBool(sngFieldExcludeReferenceLink); err != nil {
		return nil, err
	}

	if p.conn, err = connectionFromParsed(conf, mgr); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *getProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	table, err := p.table.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("table interpolation error: %w", err)
	}

	opts := p.opts
	if opts.Query, err = p.query.TryString(msg); err != nil {
		return nil, fmt.Errorf("query interpolation error: %w", err)
	}

	headers, err := p.conn.renderHeaders(msg)
	if err != nil {
		return nil, err
	}

	records, err := p.conn.client.GetRecords(ctx, table, opts, headers)
	if err != nil {
		return nil, err
	}
	p.log.With("table", table).Debugf("Get done with %d records", len(records))

	results := make([]any, len(records))
	for i, r := range records {
		results[i] = map[string]any(r)
	}
	return resultBatch(msg, map[string]any{
		"results": results,
		"size":    int64(len(records)),
	}, table, ""), nil
}

func (p *getProcessor) Close(context.Context) error {
	p.conn.close()
	return nil
}
