// Package apiclient is the HTTP implementation of the five API operations a
// test case can perform.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"

	"tcrun/pkg/logging"
)

// Param is one query or path parameter.
type Param struct {
	Name  string
	Value string
}

// Request describes one API call.
type Request struct {
	URL         string
	QueryParams []Param
	// PathParams replace {name} segments of URL.
	PathParams []Param
	Body       []byte
	// Token is sent as a bearer token when non-empty.
	Token string
}

// Response is what the API returned. Non-2xx statuses are not errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Client performs API calls. Transport failures are returned unmodified.
type Client interface {
	Get(ctx context.Context, req Request) (*Response, error)
	Post(ctx context.Context, req Request) (*Response, error)
	Put(ctx context.Context, req Request) (*Response, error)
	Patch(ctx context.Context, req Request) (*Response, error)
	// Delete discards the response body.
	Delete(ctx context.Context, req Request) (*Response, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL string
	// Token is the default bearer token, overridden by Request.Token.
	Token   string
	Timeout time.Duration
	// HTTPClient replaces the pooled default client.
	HTTPClient *http.Client
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates an HTTPClient.
func New(opts Options) *HTTPClient {
	hc := opts.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
		hc.Timeout = opts.Timeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    hc,
	}
}

func (c *HTTPClient) Get(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, http.MethodGet, req, false)
}

func (c *HTTPClient) Post(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, http.MethodPost, req, true)
}

func (c *HTTPClient) Put(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, http.MethodPut, req, true)
}

func (c *HTTPClient) Patch(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, http.MethodPatch, req, true)
}

func (c *HTTPClient) Delete(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.do(ctx, http.MethodDelete, req, false)
	if resp != nil {
		resp.Body = nil
	}
	return resp, err
}

// ResolveURL expands path parameters, prefixes the base URL for relative
// targets and appends the query parameters.
func (c *HTTPClient) ResolveURL(req Request) (string, error) {
	target := req.URL
	for _, p := range req.PathParams {
		target = strings.ReplaceAll(target, "{"+p.Name+"}", url.PathEscape(p.Value))
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		if !strings.HasPrefix(target, "/") {
			target = "/" + target
		}
		target = c.baseURL + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", target, err)
	}
	if len(req.QueryParams) > 0 {
		q := u.Query()
		for _, p := range req.QueryParams {
			q.Add(p.Name, p.Value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *HTTPClient) do(ctx context.Context, method string, req Request, withBody bool) (*Response, error) {
	target, err := c.ResolveURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if withBody && req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	token := req.Token
	if token == "" {
		token = c.token
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	logging.Debug("APIClient", "%s %s", method, target)
	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, target, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Duration:   time.Since(start),
	}
	logging.Debug("APIClient", "%s %s -> %d in %s", method, target, resp.StatusCode, resp.Duration)
	return resp, nil
}
