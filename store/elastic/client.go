// Copyright 2025 Poiesic Systems
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


package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/llmwatch/core"
	"github.com/poiesic/llmwatch/store"
)

const defaultTimeout = 30 * time.Second

// errorBodyLimit bounds how much of a failure response body is carried into
// error messages and, through reconciliation, into failure annotations.
const errorBodyLimit = 2048

// Client implements store.DocumentStore against an Elasticsearch-compatible
// HTTP API. Every request carries basic authentication.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
}

var _ store.DocumentStore = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default() scoped to this component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a store client for the given base URL and credentials.
func NewClient(baseURL, username, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("elastic: base URL is required")
	}

	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default().With("component", "elastic-store"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// FetchBatch searches index for up to opts.Size documents. A 404 from the
// store means the index does not exist yet and yields an empty batch.
func (c *Client) FetchBatch(ctx context.Context, index string, opts store.FetchOptions) ([]*core.WorkItem, error) {
	query := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  opts.Size,
	}
	if !opts.IncludeErrored {
		query["query"] = map[string]any{
			"bool": map[string]any{
				"must_not": []any{
					map[string]any{"exists": map[string]any{"field": core.ControlField + ".error"}},
				},
			},
		}
	}
	if opts.SortField != "" {
		query["sort"] = []any{
			map[string]any{opts.SortField: map[string]any{"order": "asc"}},
		}
	}

	resp, err := c.do(ctx, http.MethodPost, c.docURL(index, "_search"), query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if !success(resp.StatusCode) {
		return nil, statusError(store.ErrFetchFailed, resp)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %w", store.ErrFetchFailed, err)
	}

	items := make([]*core.WorkItem, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		var source map[string]any
		if err := json.Unmarshal(hit.Source, &source); err != nil {
			return nil, fmt.Errorf("%w: decoding document %s: %w", store.ErrFetchFailed, hit.ID, err)
		}
		items = append(items, &core.WorkItem{
			ID:     hit.ID,
			Source: source,
			Raw:    hit.Source,
		})
	}
	return items, nil
}

// Upsert fully replaces the document at id in index.
func (c *Client) Upsert(ctx context.Context, index, id string, doc map[string]any) error {
	resp, err := c.do(ctx, http.MethodPost, c.docURL(index, "_doc", id), doc)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return statusError(store.ErrWriteFailed, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Delete removes the document at id in index. The store's own status decides
// whether deleting an absent document succeeds; any non-2xx is an error.
func (c *Client) Delete(ctx context.Context, index, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.docURL(index, "_doc", id), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrDeleteFailed, err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return statusError(store.ErrDeleteFailed, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) docURL(index string, parts ...string) string {
	segments := append([]string{url.PathEscape(index)}, parts...)
	return c.baseURL + "/" + strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("store request", "method", method, "url", rawURL)
	return c.http.Do(req)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func statusError(sentinel error, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("%w: %s %s: status %d: %s",
		sentinel, resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
}
