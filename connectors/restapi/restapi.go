// Package restapi exposes a REST endpoint as a dispatchable capability.
// GET responses are cacheable and tagged with the endpoint host; write
// methods report the same tag through Invalidates so cached reads drop.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360/datalink/capability"
	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/logging"
	"github.com/c360/datalink/pkg/retry"
	"github.com/c360/datalink/pkg/tlsutil"
)

// DefaultName is the capability name when the config leaves it empty.
const DefaultName = "rest_api"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 * 1024 * 1024

// allowedMethods is the closed set of HTTP methods the connector accepts.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Config describes one REST endpoint the connector serves.
type Config struct {
	// Name is the capability name the connector registers under.
	Name string `json:"name,omitempty"`

	// BaseURL is the endpoint root every request resolves against.
	BaseURL string `json:"base_url"`

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration `json:"timeout,omitempty"`

	// TLS configures trust and client certificates for https endpoints.
	// Nil uses the default transport.
	TLS *tlsutil.ClientConfig `json:"tls,omitempty"`

	// Retry tunes the transient-failure retry policy. Zero value uses the
	// package defaults.
	Retry retry.Config `json:"-"`
}

// UnmarshalJSON accepts the timeout as either a duration string ("30s") or
// integer nanoseconds.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		Timeout json.RawMessage `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Timeout) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Timeout, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration for timeout: %w", err)
		}
		c.Timeout = d
		return nil
	}

	var nsec int64
	if err := json.Unmarshal(aux.Timeout, &nsec); err != nil {
		return fmt.Errorf("timeout must be a duration string or integer nanoseconds")
	}
	c.Timeout = time.Duration(nsec)
	return nil
}

// Connector fetches data from a REST API. Server errors and transport
// failures retry with exponential backoff; client errors fail immediately.
type Connector struct {
	name   string
	base   *url.URL
	client *http.Client
	retry  retry.Config
	logger *logging.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithHTTPClient replaces the default HTTP client. Tests inject the
// httptest server's client through this.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a connector for one base URL.
func New(cfg Config, opts ...Option) (*Connector, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "RESTConnector", "New", "parse base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "RESTConnector", "New",
			fmt.Sprintf("base URL %q must be absolute http(s)", cfg.BaseURL))
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retryCfg := cfg.Retry
	if retryCfg == (retry.Config{}) {
		retryCfg = retry.DefaultConfig()
	}

	client := &http.Client{Timeout: timeout}
	if cfg.TLS != nil {
		tlsCfg, err := tlsutil.Client(*cfg.TLS)
		if err != nil {
			return nil, err
		}
		client.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}

	c := &Connector{
		name:   name,
		base:   base,
		client: client,
		retry:  retryCfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger(name, nil, nil)
	}
	return c, nil
}

// Descriptor returns the capability schema the connector registers under.
func (c *Connector) Descriptor() capability.Descriptor {
	return capability.Descriptor{
		Name:        c.name,
		Description: "Fetches data from " + c.base.Host + " over HTTP with transient-failure retries",
		Parameters: []capability.ParameterSpec{
			{Name: "path", Type: capability.TypeString, Description: "Path resolved against the base URL"},
			{Name: "method", Type: capability.TypeString, Description: "HTTP method, default GET"},
			{Name: "params", Type: capability.TypeObject, Description: "Query parameters"},
			{Name: "headers", Type: capability.TypeObject, Description: "Request headers"},
			{Name: "body", Type: capability.TypeAny, Description: "JSON request body for write methods"},
		},
	}
}

// Register builds a connector from cfg and registers it.
func Register(registry *capability.Registry, cfg Config, opts ...Option) error {
	c, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	return registry.Register(c.Descriptor(), c)
}

type httpResponse struct {
	status int
	body   []byte
}

// Execute performs one HTTP request. GET results come back cacheable and
// tagged api:<host>; POST/PUT/PATCH/DELETE report the same tag as
// invalidated.
func (c *Connector) Execute(ctx context.Context, params map[string]any) (*capability.Result, error) {
	method, err := c.method(params)
	if err != nil {
		return nil, err
	}

	target, err := c.target(params)
	if err != nil {
		return nil, err
	}

	headers, err := objectParam(params, "headers")
	if err != nil {
		return nil, errors.WrapInvalid(err, "RESTConnector", "Execute", "read headers")
	}

	var payload []byte
	if body, ok := params["body"]; ok && body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.WrapInvalid(err, "RESTConnector", "Execute", "encode body")
		}
	}

	res, err := retry.DoWithResult(ctx, c.retry, func() (*httpResponse, error) {
		return c.doRequest(ctx, method, target, headers, payload)
	})
	if err != nil {
		if retry.IsNonRetryable(err) {
			return nil, errors.WrapInvalid(err, "RESTConnector", "Execute", "request rejected")
		}
		return nil, errors.WrapTransient(err, "RESTConnector", "Execute", "request")
	}

	c.logger.Debug(fmt.Sprintf("%s %s returned %d (%d bytes)",
		method, target.Path, res.status, len(res.body)))

	result := &capability.Result{
		Data:     decodeBody(res.body),
		Metadata: map[string]string{"status": strconv.Itoa(res.status)},
	}
	hostTag := "api:" + c.base.Host
	switch method {
	case http.MethodGet:
		result.Cacheable = true
		result.InvalidationTags = []string{hostTag}
	case http.MethodHead, http.MethodOptions:
		// Safe methods, nothing to cache or invalidate.
	default:
		result.Invalidates = []string{hostTag}
	}
	return result, nil
}

func (c *Connector) method(params map[string]any) (string, error) {
	raw, ok := params["method"]
	if !ok || raw == nil {
		return http.MethodGet, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "RESTConnector", "Execute", "method must be a string")
	}
	method := strings.ToUpper(strings.TrimSpace(s))
	if method == "" {
		return http.MethodGet, nil
	}
	if !allowedMethods[method] {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "RESTConnector", "Execute",
			fmt.Sprintf("unsupported method %q", s))
	}
	return method, nil
}

func (c *Connector) target(params map[string]any) (*url.URL, error) {
	path := ""
	if raw, ok := params["path"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "RESTConnector", "Execute", "path must be a string")
		}
		path = s
	}

	target := c.base.JoinPath(path)

	query, err := objectParam(params, "params")
	if err != nil {
		return nil, errors.WrapInvalid(err, "RESTConnector", "Execute", "read query parameters")
	}
	if len(query) > 0 {
		q := target.Query()
		for key, value := range query {
			q.Set(key, fmt.Sprint(value))
		}
		target.RawQuery = q.Encode()
	}
	return target, nil
}

// doRequest performs one attempt. Server errors and rate limits return plain
// errors so the retry loop tries again; client errors come back non-retryable.
func (c *Connector) doRequest(ctx context.Context, method string, target *url.URL, headers map[string]any, payload []byte) (*httpResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, retry.NonRetryable(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, fmt.Sprint(value))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxResponseBytes {
		return nil, retry.NonRetryable(stderrors.New("response body exceeds size limit"))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", errors.ErrRateLimited, resp.Status)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error: %s", resp.Status)
	case resp.StatusCode >= 400:
		return nil, retry.NonRetryable(fmt.Errorf("client error: %s", resp.Status))
	}

	return &httpResponse{status: resp.StatusCode, body: raw}, nil
}

// decodeBody returns the response as decoded JSON when possible, the raw
// string otherwise. Numbers decode as json.Number so integer identity
// survives into schema learning.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

func objectParam(params map[string]any, key string) (map[string]any, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return m, nil
}
