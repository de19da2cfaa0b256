// Package nodeapi implements the NodeAPI port against the remote key/value
// store's REST endpoints.
package nodeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NodeAPI = (*Client)(nil)

// CredentialHeader is the request header the node API reads the credential from.
const CredentialHeader = "nodeAPPToken"

// Endpoint paths relative to the configured base URL.
const (
	pathAuthCheck   = "node-system/auth-token-check"
	pathListEdit    = "node-system/env-list-edit"
	pathListView    = "node-system/env-list-view"
	pathAddEntry    = "node-system/env-add-entry"
	pathUpdateEntry = "node-system/env-update-entry"
	pathRemoveEntry = "node-system/env-remove-entry"
)

// maxBodyBytes caps how much of a node API response is read into memory.
const maxBodyBytes = 8 << 20

// Client implements the driven.NodeAPI port.
type Client struct {
	http     *http.Client // Entry list and mutations; never cached.
	treeHTTP *http.Client // Read-only tree; revalidated through httpcache.
	baseURL  *url.URL
	logger   *slog.Logger
}

// NewClient creates a node API client with the following transport stacks:
//   - entries and mutations: plain http.DefaultTransport, so every list fetch
//     reaches the server
//   - variables tree: httpcache (ETag/Last-Modified revalidation) over a
//     transport that marks every response as varying on the credential header
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	cache := httpcache.NewMemoryCacheTransport()
	cache.Transport = varyOnCredential{next: http.DefaultTransport}
	cache.MarkCachedResponses = true

	return &Client{
		http:     &http.Client{Timeout: timeout},
		treeHTTP: &http.Client{Timeout: timeout, Transport: cache},
		baseURL:  u,
		logger:   logger,
	}, nil
}

// NewClientWithHTTPClient creates a Client that sends every request through
// httpClient. This constructor is intended for testing, allowing injection of
// an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:     httpClient,
		treeHTTP: httpClient,
		baseURL:  u,
		logger:   logger,
	}, nil
}

// CheckCredential reports whether the node API accepts credential.
// Only HTTP 200 counts as acceptance.
func (c *Client) CheckCredential(ctx context.Context, credential string) (bool, error) {
	resp, err := c.do(ctx, c.http, http.MethodGet, pathAuthCheck, credential, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	return resp.StatusCode == http.StatusOK, nil
}

// ListEntries fetches the full entry list. A well-formed body that is not a
// JSON array yields an empty list.
func (c *Client) ListEntries(ctx context.Context, credential string) ([]model.Entry, error) {
	resp, err := c.do(ctx, c.http, http.MethodGet, pathListEdit, credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", pathListEdit, err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Endpoint: pathListEdit, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("decoding %s response: invalid JSON", pathListEdit)
		}
		c.logger.Warn("entry list response is not an array", "endpoint", pathListEdit)
		return []model.Entry{}, nil
	}

	entries := []model.Entry{}
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", pathListEdit, err)
	}

	return entries, nil
}

// resultResponse is the body returned by the add and update endpoints.
type resultResponse struct {
	Result string `json:"result"`
}

// successResponse is the body returned by the remove endpoint.
type successResponse struct {
	Success bool `json:"success"`
}

// removeRequest identifies the entry to delete.
type removeRequest struct {
	Category string `json:"category"`
	Key      string `json:"key"`
}

// AddEntry creates an entry. The server signals success with result "OK";
// any other result string is returned as a driven.RejectedError.
func (c *Client) AddEntry(ctx context.Context, credential string, entry model.Entry) error {
	return c.postResult(ctx, pathAddEntry, credential, entry, "Error adding environment variable")
}

// UpdateEntry replaces the value and description of an existing entry.
func (c *Client) UpdateEntry(ctx context.Context, credential string, entry model.Entry) error {
	return c.postResult(ctx, pathUpdateEntry, credential, entry, "Error updating environment variable")
}

// RemoveEntry deletes the entry identified by category and key. The server
// signals success with success=true.
func (c *Client) RemoveEntry(ctx context.Context, credential, category, key string) error {
	resp, err := c.do(ctx, c.http, http.MethodDelete, pathRemoveEntry, credential, removeRequest{Category: category, Key: key})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out successResponse
	if err := decodeBody(resp, &out); err != nil {
		if !isSuccess(resp.StatusCode) {
			return &StatusError{Endpoint: pathRemoveEntry, StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return fmt.Errorf("decoding %s response: %w", pathRemoveEntry, err)
	}

	if !out.Success {
		return &driven.RejectedError{Endpoint: pathRemoveEntry, Message: "Error deleting environment variable"}
	}
	return nil
}

// Tree fetches the read-only variables tree as opaque JSON.
func (c *Client) Tree(ctx context.Context, credential string) (json.RawMessage, error) {
	resp, err := c.do(ctx, c.treeHTTP, http.MethodGet, pathListView, credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.Header.Get(httpcache.XFromCache) != "" {
		TreeCacheHits.Inc()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", pathListView, err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Endpoint: pathListView, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("decoding %s response: invalid JSON", pathListView)
	}

	return json.RawMessage(body), nil
}

func (c *Client) postResult(ctx context.Context, path, credential string, entry model.Entry, fallback string) error {
	resp, err := c.do(ctx, c.http, http.MethodPost, path, credential, entry)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out resultResponse
	if err := decodeBody(resp, &out); err != nil {
		if !isSuccess(resp.StatusCode) {
			return &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	if out.Result == "OK" {
		return nil
	}

	msg := out.Result
	if msg == "" {
		msg = fallback
	}
	return &driven.RejectedError{Endpoint: path, Message: msg}
}

// do builds and sends a request to the node API, JSON-encoding payload when
// non-nil, and records metrics for the call.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path, credential string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set(CredentialHeader, credential)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if path == pathListView {
		// Tree reads always revalidate so a mutation is visible on the next
		// read; a 304 is answered from the cached body.
		req.Header.Set("Cache-Control", "max-age=0")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		observe(path, method, "error", start)
		c.logger.Warn("node api request failed", "endpoint", path, "method", method, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	observe(path, method, strconv.Itoa(resp.StatusCode), start)

	c.logger.Debug("node api request",
		"endpoint", path,
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Microsecond),
	)

	return resp, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// parseBaseURL parses raw and guarantees a trailing slash on the path so that
// relative endpoint paths resolve beneath it.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL: %q is not absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func decodeBody(resp *http.Response, out any) error {
	return json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// varyOnCredential adds the credential header to every response's Vary list
// so httpcache keys stored responses per credential.
type varyOnCredential struct {
	next http.RoundTripper
}

func (t varyOnCredential) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Header.Add("Vary", CredentialHeader)
	return resp, nil
}
