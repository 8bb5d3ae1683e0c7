// Package client is a Supabase client for the storefront. It speaks
// PostgREST for table access and GoTrue for authentication, which is
// all the hosted backend exposes to us.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Client is a Supabase REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// APIKey is the anon key; row-level security applies to every query.
	APIKey string
	// HTTPClient overrides the default client (used to inject the
	// resilient transport).
	HTTPClient *http.Client
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the project URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIKey returns the configured anon key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// =============================================================================
// Database Operations (PostgREST)
// =============================================================================

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
	}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client      *Client
	table       string
	columns     string
	filters     []string
	orders      []string
	limit       int
	offset      int
	single      bool
	maybeSingle bool
	count       string // exact, planned, estimated
	head        bool
	accessToken string
}

// Select specifies columns to select. Embedded resources use PostgREST
// syntax, e.g. "*, images:product_images(id, image_url, is_primary)".
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%v", column, value))
	return q
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=neq.%v", column, value))
	return q
}

// Gt adds a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=gt.%v", column, value))
	return q
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=gte.%v", column, value))
	return q
}

// Lt adds a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=lt.%v", column, value))
	return q
}

// Lte adds a less-than-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=lte.%v", column, value))
	return q
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []any) *QueryBuilder {
	strValues := make([]string, len(values))
	for i, v := range values {
		strValues[i] = fmt.Sprintf("%v", v)
	}
	q.filters = append(q.filters, fmt.Sprintf("%s=in.(%s)", column, strings.Join(strValues, ",")))
	return q
}

// Is adds an IS filter (for NULL, TRUE, FALSE).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=is.%v", column, value))
	return q
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the OFFSET.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single expects exactly one result row; the server rejects zero or
// multiple rows.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// MaybeSingle expects zero or one result rows. A missing row decodes to
// an empty response rather than an error.
func (q *QueryBuilder) MaybeSingle() *QueryBuilder {
	q.maybeSingle = true
	return q
}

// Count includes a row count in the response ("exact", "planned" or
// "estimated").
func (q *QueryBuilder) Count(countType string) *QueryBuilder {
	q.count = countType
	return q
}

// Head issues a HEAD request: count-only, no rows returned.
func (q *QueryBuilder) Head() *QueryBuilder {
	q.head = true
	return q
}

// WithAccessToken authorizes the query with a user access token so
// row-level security evaluates against that user instead of anon.
func (q *QueryBuilder) WithAccessToken(token string) *QueryBuilder {
	q.accessToken = token
	return q
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for _, f := range q.filters {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) == 2 {
			params.Add(parts[0], parts[1])
		}
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}
	if q.offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", q.offset))
	}

	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	method := "GET"
	if q.head {
		method = "HEAD"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.setHeaders(req)
	if q.single || q.maybeSingle {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if q.count != "" {
		req.Header.Set("Prefer", fmt.Sprintf("count=%s", q.count))
	}

	resp, err := q.client.do(req)
	if err != nil {
		return nil, err
	}
	if q.maybeSingle && resp.StatusCode == http.StatusNotAcceptable {
		// Zero rows with an object Accept header. Report "no row"
		// as an empty body, matching maybeSingle semantics.
		resp.StatusCode = http.StatusOK
		resp.Body = nil
	}
	return resp, nil
}

// ExecuteInsert executes an INSERT operation.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

// ExecuteUpdate executes an UPDATE operation over the rows matching the
// accumulated filters.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, patch any) (*Response, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	params := url.Values{}
	for _, f := range q.filters {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) == 2 {
			params.Add(parts[0], parts[1])
		}
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PATCH", reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

// ExecuteDelete executes a DELETE operation over the rows matching the
// accumulated filters.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	params := url.Values{}
	for _, f := range q.filters {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) == 2 {
			params.Add(parts[0], parts[1])
		}
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

func (q *QueryBuilder) setHeaders(req *http.Request) {
	token := q.accessToken
	if token == "" {
		token = q.client.apiKey
	}
	req.Header.Set("apikey", q.client.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

// =============================================================================
// Response Types
// =============================================================================

// Response is a generic API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// ContentRangeCount parses the total from a Content-Range header such as
// "0-9/100" or "*/0". Returns 0 when the header is absent or the total
// is unknown ("0-9/*").
func (r *Response) ContentRangeCount() int {
	contentRange := r.Headers.Get("Content-Range")
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(total)
	if err != nil {
		return 0
	}
	return count
}

// Error returns an error if the response indicates failure. PostgREST
// and GoTrue disagree on error body shape, so probe the known fields.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	if msg := errorMessage(r.Body); msg != "" {
		return fmt.Errorf("supabase error: %s", msg)
	}
	return fmt.Errorf("supabase error: status %d", r.StatusCode)
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, path := range []string{"message", "msg", "error_description", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// =============================================================================
// Internal Methods
// =============================================================================

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
