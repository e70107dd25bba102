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

// Package snhttp implements a small HTTP client for the ServiceNow REST API.
//
// The client authenticates either with HTTP Basic credentials or, when OAuth
// client credentials are configured, with a bearer token obtained through the
// OAuth2 password grant against the instance's oauth_token.do endpoint. The
// token is fetched lazily on the first request and reused for every request
// that follows.
package snhttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/redpanda-data/benthos/v4/public/service"
)

const tokenPath = "oauth_token.do"

// Config describes how to reach and authenticate against a ServiceNow
// instance.
type Config struct {
	// Domain is the instance subdomain, used to build
	// https://<domain>.service-now.com/.
	Domain string

	// BaseURL overrides the URL derived from Domain.
	BaseURL string

	Username string
	Password string

	// ClientID and ClientSecret switch the client to the OAuth2 password
	// grant when both are set.
	ClientID     string
	ClientSecret string

	Timeout  time.Duration
	TLSConf  *tls.Config
	ProxyURL string

	// RateLimit is the name of a rate limit resource to wait on before each
	// request.
	RateLimit string
}

// Client is a ServiceNow REST API client.
type Client struct {
	baseURL  string
	username string
	password string
	oauth    *oauth2.Config

	httpClient *http.Client
	rateLimit  string

	tokenMut sync.Mutex
	token    *oauth2.Token

	mgr *service.Resources
	log *service.Logger
}

// NewClient creates a client from a config.
func NewClient(conf Config, mgr *service.Resources) (*Client, error) {
	baseURL, err := resolveBaseURL(conf)
	if err != nil {
		return nil, err
	}

	if (conf.ClientID == "") != (conf.ClientSecret == "") {
		return nil, errors.New("client_id and client_secret must be set together")
	}

	c := &Client{
		baseURL:    baseURL,
		username:   conf.Username,
		password:   conf.Password,
		httpClient: &http.Client{Timeout: conf.Timeout},
		mgr:        mgr,
		log:        mgr.Logger(),
	}

	if conf.ClientID != "" {
		c.oauth = &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conf.TLSConf != nil {
		transport.TLSClientConfig = conf.TLSConf
	}
	if conf.ProxyURL != "" {
		proxyURL, err := url.Parse(conf.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy_url string: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	c.httpClient.Transport = newMeteredTransport(transport, mgr.Metrics())

	if c.rateLimit = conf.RateLimit; c.rateLimit != "" {
		if !mgr.HasRateLimit(c.rateLimit) {
			return nil, fmt.Errorf("rate limit resource '%v' was not found", c.rateLimit)
		}
	}
	return c, nil
}

func resolveBaseURL(conf Config) (string, error) {
	if conf.BaseURL != "" {
		if _, err := url.ParseRequestURI(conf.BaseURL); err != nil {
			return "", errors.New("base_url is not a valid URL")
		}
		if !strings.HasSuffix(conf.BaseURL, "/") {
			return conf.BaseURL + "/", nil
		}
		return conf.BaseURL, nil
	}
	if conf.Domain == "" {
		return "", errors.New("a domain is required when base_url is not set")
	}
	if strings.Contains(conf.Domain, "://") || strings.Contains(conf.Domain, "/") {
		return "", fmt.Errorf("domain %q must be a subdomain without protocol or path", conf.Domain)
	}
	return "https://" + conf.Domain + ".service-now.com/", nil
}

// BaseURL returns the root URL all requests are made against, always ending
// with a slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UsesOAuth returns true when requests are authenticated with a bearer token.
func (c *Client) UsesOAuth() bool {
	return c.oauth != nil
}

// Token returns the cached OAuth2 access token, performing the password grant
// when no valid token is cached yet. The extra headers are sent along with
// the token request.
func (c *Client) Token(ctx context.Context, headers http.Header) (string, error) {
	if c.oauth == nil {
		return "", errors.New("oauth client credentials are not configured")
	}

	c.tokenMut.Lock()
	defer c.tokenMut.Unlock()

	// Tokens without an expiry remain valid for the lifetime of the client.
	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	if err := c.waitForAccess(ctx); err != nil {
		return "", err
	}

	tokenClient := &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: &headerTransport{base: c.httpClient.Transport, headers: headers},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, tokenClient)

	c.log.Debugf("Requesting access token from %v", c.oauth.Endpoint.TokenURL)
	tok, err := c.oauth.PasswordCredentialsToken(ctx, c.username, c.password)
	if err != nil {
		return "", fmt.Errorf("error fetching access token: %w", err)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// Do executes a single request against a path relative to the base URL. The
// body, when not nil, is encoded as JSON. Responses outside of the 2xx range
// are returned as *HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, headers http.Header, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	applyHeaders(req.Header, headers)

	if c.oauth != nil {
		tok, err := c.Token(ctx, headers)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	if err := c.waitForAccess(ctx); err != nil {
		return nil, err
	}

	c.log.Debugf("Sending %v request to %v", method, target)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%v %v: %w", method, target, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, newHTTPError(res, resBody)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBody,
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// waitForAccess blocks until the rate limit, when one is configured, grants
// the next request.
func (c *Client) waitForAccess(ctx context.Context) error {
	if c.rateLimit == "" {
		return nil
	}
	for {
		var period time.Duration
		var accessErr error
		if err := c.mgr.AccessRateLimit(ctx, c.rateLimit, func(rl service.RateLimit) {
			period, accessErr = rl.Access(ctx)
		}); err != nil {
			accessErr = err
		}
		if accessErr != nil {
			return fmt.Errorf("rate limit %v: %w", c.rateLimit, accessErr)
		}
		if period <= 0 {
			return nil
		}

		c.log.Tracef("Rate limit %v reached, waiting %v", c.rateLimit, period)
		timer := time.NewTimer(period)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// reservedHeaders are set by the client itself and cannot be replaced by
// extra headers.
var reservedHeaders = map[string]struct{}{
	"Accept":        {},
	"Authorization": {},
	"Content-Type":  {},
}

func applyHeaders(dst, extra http.Header) {
	for k, values := range extra {
		k = http.CanonicalHeaderKey(k)
		if _, reserved := reservedHeaders[k]; reserved {
			continue
		}
		dst.Del(k)
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// headerTransport adds the extra headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.headers) == 0 {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	applyHeaders(req.Header, t.headers)
	return base.RoundTrip(req)
}

// meteredTransport records the latency of each round trip and counts
// responses by status class.
type meteredTransport struct {
	base    http.RoundTripper
	latency *service.MetricTimer
	classes [5]*service.MetricCounter
}

func newMeteredTransport(base http.RoundTripper, metrics *service.Metrics) *meteredTransport {
	t := &meteredTransport{
		base:    base,
		latency: metrics.NewTimer("http_request_latency_ns"),
	}
	for i := range t.classes {
		t.classes[i] = metrics.NewCounter(fmt.Sprintf("http_request_code_%dxx", i+1))
	}
	return t
}

func (t *meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startedAt := time.Now()
	res, err := t.base.RoundTrip(req)
	t.latency.Timing(time.Since(startedAt).Nanoseconds())
	if err != nil {
		return nil, err
	}
	if class := res.StatusCode / 100; class >= 1 && class <= len(t.classes) {
		t.classes[class-1].Incr(1)
	}
	return res, nil
}
