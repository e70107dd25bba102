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

func updateProcessorConfigSpec() *service.ConfigSpec {
	return service.NewConfigSpec().
		Categories("Services").
		Version(snVersionFrom).
		Summary("Updates a record of a ServiceNow table.").
		Description(`
Calls the ServiceNow Table API with a PUT request against the record identified by `+"`sys_id`"+` and replaces the message with the updated record under the field `+"`result`"+`.

Only the fields present in the message contents, or produced by the `+"`data`"+` mapping, are changed.`).
		Example(
			"Resolve incidents",
			"Marks the incident referenced by each message as resolved.",
			`
pipeline:
  processors:
    - servicenow_update:
        domain: "${SNOW_DOMAIN}"
        username: "${SNOW_USERNAME}"
        password: "${SNOW_PASSWORD}"
        table: incident
        sys_id: ${! this.sys_id }
        data: |
          root.state = "6"
          root.close_notes = this.notes
`).
		Fields(connectionFields()...).
		Field(tableField()).
		Field(sysIDField()).
		Field(dataField())
}

func init() {
	if err := service.RegisterProcessor(
		"servicenow_update", updateProcessorConfigSpec(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newUpdateProcessor(conf, mgr)
		},
	); err != nil {
		panic(err)
	}
}

type updateProcessor struct {
	conn  *connection
	log   *service.Logger
	table *service.InterpolatedString
	sysID *service.InterpolatedString
	data  *bloblang.Executor
}

func newUpdateProcessor(conf *service.ParsedConfig, mgr *service.Resources) (*updateProcessor, error) {
	p := &updateProcessor{log: mgr.Logger()}

	var err error
	if p.table, err = conf.FieldInterpolatedString(snFieldTable); err != nil {
		return nil, err
	}
	if p.sysID, err = conf.FieldInterpolatedString(snFieldSysID); err != nil {
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

func (p *updateProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	table, err := p.table.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("table interpolation error: %w", err)
	}
	sysID, err := p.sysID.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("sys_id interpolation error: %w", err)
	}

	data, err := recordFromMessage(msg, p.data)
	if err != nil {
		return nil, err
	}

	headers, err := p.conn.renderHeaders(msg)
	if err != nil {
		return nil, err
	}

	record, err := p.conn.client.UpdateRecord(ctx, table, sysID, data, headers)
	if err != nil {
		return nil, err
	}
	p.log.With("table", table, "sys_id", sysID).Debugf("Update done with %d fields", len(record))

	return resultBatch(msg, map[string]any{
		"result": map[string]any(record),
	}, table, sysID), nil
}

func (p *updateProcessor) Close(context.Context) error {
	p.conn.close()
	return nil
}
