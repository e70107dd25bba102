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

	"github.com/redpanda-data/benthos/v4/public/bloblang"
	"github.com/redpanda-data/benthos/v4/public/service"
)

func postProcessorConfigSpec() *service.ConfigSpec {
	return service.NewConfigSpec().
		Categories("Services").
		Version(snVersionFrom).
		Summary("Inserts a record into a ServiceNow table.").
		Description(`
Calls the ServiceNow Table API with a POST request and replaces the message with the record created by ServiceNow under the field `+"`result`"+`.

The record is built from the message contents, or from the `+"`data`"+` mapping when set. The metadata fields `+"`servicenow_table`"+` and `+"`servicenow_sys_id`"+` are set on the resulting message.`).
		Example(
			"Create an incident",
			"Creates an incident from each message.",
			`
pipeline:
  processors:
    - servicenow_post:
        domain: "${SNOW_DOMAIN}"
        username: "${SNOW_USERNAME}"
        password: "${SNOW_PASSWORD}"
        table: incident
        data: |
          root.short_description = this.title
          root.requested_for = this.user_id
`).
		Fields(connectionFields()...).
		Field(tableField()).
		Field(dataField())
}

func init() {
	if err := service.RegisterProcessor(
		"servicenow_post", postProcessorConfigSpec(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newPostProcessor(conf, mgr)
		},
	); err != nil {
		panic(err)
	}
}

type postProcessor struct {
	conn  *connection
	log   *service.Logger
	table *service.InterpolatedString
	data  *bloblang.Executor
}

func newPostProcessor(conf *service.ParsedConfig, mgr *service.Resources) (*postProcessor, error) {
	p := &postProcessor{log: mgr.Logger()}

	var err error
	if p.table, err = conf.FieldInterpolatedString(snFieldTable); err != nil {
		return nil, err
	}
	if conf.Contains(snFieldData) {
		if p.data, err = conf.FieldBloblang(snFieldData); err != nil {
			return nil, err
		}
	}
	if p.conn, err = connectionFromParsed(conf, mgr); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *postProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	table, err := p.table.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("table interpolation error: %w", err)
	}

	data, err := recordFromMessage(msg, p.data)
	if err != nil {
		return nil, err
	}

	headers, err := p.conn.renderHeaders(msg)
	if err != nil {
		return nil, err
	}

	record, err := p.conn.client.CreateRecord(ctx, table, data, headers)
	if err != nil {
		return nil, err
	}

	sysID, _ := record["sys_id"].(string)
	p.log.With("table", table, "sys_id", sysID).Infof("Post done with %d fields", len(record))

	return resultBatch(msg, map[string]any{
		"result": map[string]any(record),
	}, table, sysID), nil
}

func (p *postProcessor) Close(context.Context) error {
	p.conn.close()
	return nil
}
