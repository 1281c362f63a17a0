// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/defaults"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
	"github.com/NVIDIA/gpudbg/pkg/server"
)

// DefaultServer is the daemon address used when none is given.
const DefaultServer = "http://localhost:8080"

// UserAgent is sent with every request.
const UserAgent = "gpudbg-client/1.0"

// Client talks to a gpudbg daemon.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. with httptest's.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the daemon at server. A missing scheme means http.
func New(server string, opts ...Option) (*Client, error) {
	if server == "" {
		server = DefaultServer
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid server address", err,
			map[string]any{"server": server})
	}

	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   defaults.HTTPClientTimeout,
			Transport: serializer.NewTransport(false),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) url(p string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(p, query), body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create request", err)
	}
	reqID := uuid.New().String()
	req.Header.Set("X-Request-Id", reqID)
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		code := errors.ErrCodeUnavailable
		if ctx.Err() != nil {
			code = errors.ErrCodeTimeout
		}
		return nil, errors.WrapWithContext(code, "request failed", err,
			map[string]any{"method": method, "path": p, "requestId": reqID})
	}
	slog.Debug("request completed", "method", method, "path", p, "status", resp.StatusCode, "requestId", reqID)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// decodeError turns an error reply into a StructuredError carrying the
// server's code, message and details.
func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to read error response", err)
	}

	var er server.ErrorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Code == "" {
		return errors.NewWithContext(codeFromStatus(resp.StatusCode), http.StatusText(resp.StatusCode),
			map[string]any{"status": resp.StatusCode, "body": strings.TrimSpace(string(data))})
	}

	ctx := make(map[string]any, len(er.Details)+2)
	for k, v := range er.Details {
		ctx[k] = v
	}
	ctx["requestId"] = er.RequestID
	ctx["retryable"] = er.Retryable
	return errors.NewWithContext(errors.ErrorCode(er.Code), er.Message, ctx)
}

func codeFromStatus(status int) errors.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return errors.ErrCodeNotFound
	case http.StatusBadRequest:
		return errors.ErrCodeInvalidRequest
	case http.StatusMethodNotAllowed:
		return errors.ErrCodeMethodNotAllowed
	case http.StatusTooManyRequests:
		return errors.ErrCodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		return errors.ErrCodeUnavailable
	case http.StatusGatewayTimeout:
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeInternal
	}
}

func decode(format serializer.Format, body io.Reader, v any) error {
	r, err := serializer.NewReader(format, body)
	if err != nil {
		return err
	}
	return r.Deserialize(v)
}

func nodePath(p string) string {
	return debugfs.RouteNodes + "/" + strings.TrimLeft(p, "/")
}

// List returns every node of the daemon's tree.
func (c *Client) List(ctx context.Context) ([]debugfs.Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, debugfs.RouteNodes, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []debugfs.Entry
	if err := decode(serializer.FormatJSON, resp.Body, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to decode node list", err)
	}
	return out, nil
}

// Read returns the text of one node.
func (c *Client) Read(ctx context.Context, p string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.NodeReadTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, nodePath(p), nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeInternal, "failed to read node", err,
			map[string]any{"path": p})
	}
	return string(data), nil
}

// Write sets an attribute node. A restart-applied write returns once the
// power cycle has finished.
func (c *Client) Write(ctx context.Context, p, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.HTTPResponseHeaderTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPut, nodePath(p), nil, strings.NewReader(value))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Tunables returns the current value of every tunable. The values are
// fetched CBOR encoded.
func (c *Client) Tunables(ctx context.Context) (map[string]uint64, error) {
	resp, err := c.do(ctx, http.MethodGet, debugfs.RouteTunables,
		url.Values{"format": {string(serializer.FormatCBOR)}}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := make(map[string]uint64)
	if err := decode(serializer.FormatCBOR, resp.Body, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to decode tunables", err)
	}
	return out, nil
}

// String returns the daemon base URL.
func (c *Client) String() string {
	return c.base.String()
}
