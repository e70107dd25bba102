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

// Package servicenow provides processors that call the ServiceNow Table API
// in order to retrieve, create, update and delete records.
//
// Every processor shares the same connection fields. Requests are
// authenticated with HTTP Basic credentials, or with a bearer token obtained
// through the OAuth2 password grant when a client ID and secret are
// configured. The token is fetched once per processor and reused for the
// messages that follow.
package servicenow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redpanda-data/benthos/v4/public/bloblang"
	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/redpanda-data/connect-servicenow/internal/impl/servicenow/snhttp"
)

const (
	snFieldDomain         = "domain"
	snFieldUsername       = "username"
	snFieldPassword       = "password"
	snFieldClientID       = "client_id"
	snFieldClientSecret   = "client_secret"
	snFieldHeaders        = "headers"
	snFieldBaseURL        = "base_url"
	snFieldRequestTimeout = "request_timeout"
	snFieldTLS            = "tls"
	snFieldProxyURL       = "proxy_url"
	snFieldRateLimit      = "rate_limit"

	snFieldTable  = "table"
	snFieldSysID  = "sys_id"
	snFieldData   = "data"
	snVersionFrom = "4.79.0"
)

// connectionFields returns the config fields shared by all ServiceNow
// processors.
func connectionFields() []*service.ConfigField {
	return []*service.ConfigField{
		service.NewStringField(snFieldDomain).
			Description("The ServiceNow instance subdomain, used to build `https://<domain>.service-now.com/`. Do not include the protocol.").
			Example("dev12345").
			Default(""),
		service.NewStringField(snFieldUsername).
			Description("The ServiceNow username. Used with `password` for basic authentication, or together with the client credentials for the OAuth password grant."),
		service.NewStringField(snFieldPassword).
			Description("The password of the ServiceNow account.").
			Secret(),
		service.NewStringField(snFieldClientID).
			Description("An OAuth client ID. When set along with `client_secret` requests are authenticated with a bearer token obtained through the OAuth password grant.").
			Default(""),
		service.NewStringField(snFieldClientSecret).
			Description("The OAuth client secret paired with `client_id`.").
			Secret().
			Default(""),
		service.NewInterpolatedStringMapField(snFieldHeaders).
			Description("Additional headers to send with every request, including the token request. The `Accept`, `Authorization` and `Content-Type` headers are managed by the processor and cannot be overridden.").
			Example(map[string]any{"X-Request-Source": "redpanda-connect"}).
			Default(map[string]any{}),
		service.NewStringField(snFieldBaseURL).
			Description("Overrides the URL derived from `domain`, useful when ServiceNow is reached through a gateway.").
			Advanced().
			Default(""),
		service.NewDurationField(snFieldRequestTimeout).
			Description("A timeout applied to each HTTP request.").
			Advanced().
			Default("30s"),
		service.NewTLSToggledField(snFieldTLS).
			Advanced(),
		service.NewStringField(snFieldProxyURL).
			Description("An optional HTTP proxy URL.").
			Advanced().
			Default(""),
		service.NewStringField(snFieldRateLimit).
			Description("An optional [rate limit](/docs/components/rate_limits/about) to throttle requests by.").
			Default(""),
	}
}

func tableField() *service.ConfigField {
	return service.NewInterpolatedStringField(snFieldTable).
		Description("The name of the ServiceNow table.").
		Example("incident").
		Example(`${! @table }`)
}

func sysIDField() *service.ConfigField {
	return service.NewInterpolatedStringField(snFieldSysID).
		Description("The sys_id of the record.").
		Example("04ce72c9c0a8016600b5b7f75ac67b5b").
		Example(`${! this.sys_id }`)
}

func dataField() *service.ConfigField {
	return service.NewBloblangField(snFieldData).
		Description("An optional [Bloblang mapping](/docs/guides/bloblang/about) that produces the record fields to send. When omitted the message contents are sent as they are and must be a JSON object.").
		Example(`root.short_description = this.title
root.urgency = "2"`).
		Optional()
}

// connection is the part of a processor that talks to ServiceNow.
type connection struct {
	client  *snhttp.Client
	headers map[string]*service.InterpolatedString
}

func connectionFromParsed(conf *service.ParsedConfig, mgr *service.Resources) (*connection, error) {
	var sConf snhttp.Config
	var err error

	if sConf.Domain, err = conf.FieldString(snFieldDomain); err != nil {
		return nil, err
	}
	if sConf.Username, err = conf.FieldString(snFieldUsername); err != nil {
		return nil, err
	}
	if sConf.Password, err = conf.FieldString(snFieldPassword); err != nil {
		return nil, err
	}
	if sConf.ClientID, err = conf.FieldString(snFieldClientID); err != nil {
		return nil, err
	}
	if sConf.ClientSecret, err = conf.FieldString(snFieldClientSecret); err != nil {
		return nil, err
	}
	if sConf.BaseURL, err = conf.FieldString(snFieldBaseURL); err != nil {
		return nil, err
	}
	if sConf.Timeout, err = conf.FieldDuration(snFieldRequestTimeout); err != nil {
		return nil, err
	}

	tlsConf, tlsEnabled, err := conf.FieldTLSToggled(snFieldTLS)
	if err != nil {
		return nil, err
	}
	if tlsEnabled {
		sConf.TLSConf = tlsConf
	}

	if sConf.ProxyURL, err = conf.FieldString(snFieldProxyURL); err != nil {
		return nil, err
	}
	if sConf.RateLimit, err = conf.FieldString(snFieldRateLimit); err != nil {
		return nil, err
	}

	c := &connection{}
	if c.headers, err = conf.FieldInterpolatedStringMap(snFieldHeaders); err != nil {
		return nil, err
	}
	if c.client, err = snhttp.NewClient(sConf, mgr); err != nil {
		return nil, err
	}
	return c, nil
}

// renderHeaders resolves the extra headers against a message.
func (c *connection) renderHeaders(msg *service.Message) (http.Header, error) {
	if len(c.headers) == 0 {
		return nil, nil
	}
	h := make(http.Header, len(c.headers))
	for k, v := range c.headers {
		value, err := v.TryString(msg)
		if err != nil {
			return nil, fmt.Errorf("header %v interpolation error: %w", k, err)
		}
		h.Set(k, value)
	}
	return h, nil
}

func (c *connection) close() {
	c.client.Close()
}

// recordFromMessage extracts the record fields to send, either by executing
// the data mapping or by using the message contents directly.
func recordFromMessage(msg *service.Message, mapping *bloblang.Executor) (snhttp.Record, error) {
	if mapping != nil {
		mapped, err := msg.BloblangQuery(mapping)
		if err != nil {
			return nil, fmt.Errorf("data mapping failed: %w", err)
		}
		if mapped == nil {
			return nil, errors.New("data mapping deleted the message")
		}
		msg = mapped
	}

	v, err := msg.AsStructured()
	if err != nil {
		return nil, fmt.Errorf("failed to parse record data: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected record data to be an object, got %T", v)
	}
	return snhttp.Record(obj), nil
}

// resultBatch replaces the contents of a copy of msg with a structured result.
func resultBatch(msg *service.Message, content map[string]any, table, sysID string) service.MessageBatch {
	out := msg.Copy()
	out.SetStructuredMut(content)
	out.MetaSetMut("servicenow_table", table)
	if sysID != "" {
		out.MetaSetMut("servicenow_sys_id", sysID)
	}
	return service.MessageBatch{out}
}
