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
)

func deleteProcessorConfigSpec() *service.ConfigSpec {
	return service.NewConfigSpec().
		Categories("Services").
		Version(snVersionFrom).
		Summary("Deletes a record of a ServiceNow table by sys_id.").
		Description(`
Calls the ServiceNow Table API with a DELETE request and replaces the message with an object of the form `+"`{\"deleted\": true}`"+`. The record is only reported as deleted when ServiceNow answers with the status code 204, any other successful status sets `+"`deleted`"+` to false. Error responses fail the message.`).
		Example(
			"Delete records",
			"Deletes the record referenced by the metadata of each message.",
			`
pipeline:
  processors:
    - servicenow_delete:
        domain: "${SNOW_DOMAIN}"
        username: "${SNOW_USERNAME}"
        password: "${SNOW_PASSWORD}"
        table: ${! @table }
        sys_id: ${! @sys_id }
`).
		Fields(connectionFields()...).
		Field(tableField()).
		Field(sysIDField())
}

func init() {
	if err := service.RegisterProcessor(
		"servicenow_delete", deleteProcessorConfigSpec(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newDeleteProcessor(conf, mgr)
		},
	); err != nil {
		panic(err)
	}
}

type deleteProcessor struct {
	conn  *connection
	log   *service.Logger
	table *service.InterpolatedString
	sysID *service.InterpolatedString
}

func newDeleteProcessor(conf *service.ParsedConfig, mgr *service.Resources) (*deleteProcessor, error) {
	p := &deleteProcessor{log: mgr.Logger()}

	var err error
	if p.table, err = conf.FieldInterpolatedString(snFieldTable); err != nil {
		return nil, err
	}
	if p.sysID, err = conf.FieldInterpolatedString(snFieldSysID); err != nil {
		return nil, err
	}
	if p.conn, err = connectionFromParsed(conf, mgr); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *deleteProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	table, err := p.table.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("table interpolation error: %w", err)
	}
	sysID, err := p.sysID.TryString(msg)
	if err != nil {
		return nil, fmt.Errorf("sys_id interpolation error: %w", err)
	}

	headers, err := p.conn.renderHeaders(msg)
	if err != nil {
		return nil, err
	}

	deleted, err := p.conn.client.DeleteRecord(ctx, table, sysID, headers)
	if err != nil {
		return nil, err
	}
	if !deleted {
		p.log.With("table", table, "sys_id", sysID).Warn("Delete request succeeded without a 204 status, record may not have been deleted")
	}

	return resultBatch(msg, map[string]any{
		"deleted": deleted,
	}, table, sysID), nil
}

func (p *deleteProcessor) Close(context.Context) error {
	p.conn.close()
	return nil
}
