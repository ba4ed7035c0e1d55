package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
)

// DefaultTimeout bounds every gateway request.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// HTTPDoer is implemented by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the gateway's REST surface.
type Client struct {
	gatewayURL   string
	baseURL      string
	httpClient   HTTPDoer
	timeout      time.Duration
	logger       *slog.Logger
	newRequestID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the HTTP client, mostly for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDs replaces the x-request-id generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newRequestID = gen
		}
	}
}

// NewClient builds a Client for the configured gateway URL. The URL itself
// is kept verbatim; requests go to DeriveBaseURL(gatewayURL).
func NewClient(gatewayURL string, opts ...Option) *Client {
	c := &Client{
		gatewayURL:   gatewayURL,
		baseURL:      DeriveBaseURL(gatewayURL),
		httpClient:   &http.Client{},
		timeout:      DefaultTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GatewayURL returns the URL the client was configured with.
func (c *Client) GatewayURL() string { return c.gatewayURL }

// BaseURL returns the derived REST base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

type listEnvelope struct {
	OK   *bool `json:"ok"`
	Data *struct {
		Tools []tools.Tool `json:"tools"`
	} `json:"data"`
	Error *tools.ToolError `json:"error"`
}

// ListTools fetches the tool catalog with GET {base}/tools. A body without
// data.tools yields an empty slice.
func (c *Client) ListTools(ctx context.Context, h headers.Set) ([]tools.Tool, error) {
	resp, err := c.Send(ctx, h, http.MethodGet, "/tools", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}

	var env listEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, resp.PayloadError(err)
	}
	if env.OK != nil && !*env.OK {
		if env.Error == nil {
			return nil, &tools.ToolError{Message: "Unknown error"}
		}
		return nil, env.Error
	}
	if env.Data == nil || env.Data.Tools == nil {
		return []tools.Tool{}, nil
	}
	c.logger.Debug("fetched tool catalog", "url", resp.URL, "count", len(env.Data.Tools))
	return env.Data.Tools, nil
}

// CallTool invokes POST {base}/tools/{name}/call with the arguments wrapped
// under "arguments". An ok:false envelope comes back as a CallResult with OK
// unset; only transport, status and payload failures are returned as errors.
func (c *Client) CallTool(ctx context.Context, h headers.Set, req tools.CallRequest) (*tools.CallResult, error) {
	if strings.TrimSpace(req.Tool) == "" {
		return nil, errors.New("tool name is required")
	}
	req = tools.NewCallRequest(req.Tool, req.Arguments)
	resp, err := c.Send(ctx, h, http.MethodPost, callPath(req.Tool), req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}

	var result tools.CallResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, resp.PayloadError(err)
	}
	if result.OK {
		c.logger.Info("tool call succeeded", "tool", req.Tool, "request_id", resp.RequestID)
	} else {
		c.logger.Info("tool call returned error", "tool", req.Tool, "request_id", resp.RequestID, "error", result.Err())
	}
	return &result, nil
}

// Health reads GET {base}/health.
func (c *Client) Health(ctx context.Context, h headers.Set) (map[string]any, error) {
	resp, err := c.Send(ctx, h, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusError()
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, resp.PayloadError(err)
	}
	return out, nil
}

// RawResponse is an undecorated gateway reply: the status code and the
// body, decoded as JSON when possible and as a string otherwise.
type RawResponse struct {
	StatusCode int `json:"status_code" yaml:"status_code"`
	Response   any `json:"response" yaml:"response"`
}

// RawListTools issues the catalog request and returns whatever came back.
func (c *Client) RawListTools(ctx context.Context, h headers.Set) (*RawResponse, error) {
	return c.Raw(ctx, h, http.MethodGet, "/tools", nil)
}

// RawCallTool issues a tool call and returns whatever came back.
func (c *Client) RawCallTool(ctx context.Context, h headers.Set, req tools.CallRequest) (*RawResponse, error) {
	req = tools.NewCallRequest(req.Tool, req.Arguments)
	return c.Raw(ctx, h, http.MethodPost, callPath(req.Tool), req)
}

// Raw sends an arbitrary request relative to the base URL. Non-200 statuses
// are not errors here.
func (c *Client) Raw(ctx context.Context, h headers.Set, method, path string, body any) (*RawResponse, error) {
	resp, err := c.Send(ctx, h, method, path, body)
	if err != nil {
		return nil, err
	}
	out := &RawResponse{StatusCode: resp.StatusCode}
	var decoded any
	if err := json.Unmarshal(resp.Body, &decoded); err == nil {
		out.Response = decoded
	} else {
		out.Response = string(resp.Body)
	}
	return out, nil
}

func callPath(name string) string {
	return "/tools/" + url.PathEscape(name) + "/call"
}

// Response is a completed exchange with the gateway.
type Response struct {
	URL        string
	RequestID  string
	StatusCode int
	Body       []byte
}

// StatusError describes r as a non-200 failure, decoding a gateway error
// envelope from the body when there is one.
func (r *Response) StatusError() *StatusError {
	se := &StatusError{StatusCode: r.StatusCode, URL: r.URL, Excerpt: Excerpt(r.Body)}
	var env struct {
		Error *tools.ToolError `json:"error"`
	}
	if json.Unmarshal(r.Body, &env) == nil && env.Error != nil {
		se.Domain = env.Error
	}
	return se
}

// PayloadError describes r as an undecodable body.
func (r *Response) PayloadError(err error) *PayloadError {
	return &PayloadError{URL: r.URL, Excerpt: Excerpt(r.Body), Err: err}
}

// Send performs one request relative to the base URL. Only failures to get
// a response at all are errors; status handling is left to the caller.
func (c *Client) Send(ctx context.Context, h headers.Set, method, path string, body any) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := JoinURL(c.baseURL, path)
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	h.Apply(req)
	if req.Header.Get(headers.ContentType) == "" {
		req.Header.Set(headers.ContentType, "application/json")
	}
	requestID := c.newRequestID()
	req.Header.Set(headers.RequestID, requestID)

	start := time.Now()
	c.logger.Debug("gateway request", "method", method, "url", target, "request_id", requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", "method", method, "url", target, "request_id", requestID, "error", err)
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	c.logger.Debug("gateway response", "url", target, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))
	return &Response{URL: target, RequestID: requestID, StatusCode: resp.StatusCode, Body: data}, nil
}
