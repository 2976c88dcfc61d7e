package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the backend listens unless configured otherwise
	DefaultBaseURL = "http://localhost:6767"

	// Prefix is the fixed path under which every API route lives
	Prefix = "/api"

	tracerName = "github.com/kamal-hamza/lima-cli/internal/adapters/api"
)

// Client talks to the LIMA backend. Each call is a single attempt: there is
// no retry and no timeout beyond what the caller's context imposes.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	tracer  oteltrace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger attaches a logger for request diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client bound to the given base URL
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server origin the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call. route is the templated path used for
// spans and logs; path is the concrete, escaped path.
type request struct {
	method      string
	route       string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) do(ctx context.Context, r request) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "lima.api "+r.method+" "+r.route,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient))
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.method", r.method),
		attribute.String("http.route", r.route),
		attribute.String("lima.request_id", requestID),
	)

	target := c.baseURL + Prefix + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("request failed",
			zap.String("method", r.method),
			zap.String("route", r.route),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, &TransportError{Method: r.method, Route: r.route, Err: err}
	}
	defer res.Body.Close()

	data, readErr := io.ReadAll(res.Body)
	out := &response{
		status:      res.StatusCode,
		contentType: res.Header.Get("Content-Type"),
		body:        data,
	}

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	c.logger.Debug("request completed",
		zap.String("method", r.method),
		zap.String("route", r.route),
		zap.Int("status", res.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var body any
		if readErr == nil {
			body = parseBody(out.contentType, data)
		}
		apiErr := &APIError{Status: res.StatusCode, Body: body}
		span.SetStatus(codes.Error, apiErr.Message())
		if code := apiErr.Code(); code != "" {
			span.SetAttributes(attribute.String("lima.error_code", code))
		}
		return nil, apiErr
	}

	if readErr != nil {
		span.RecordError(readErr)
		return nil, &TransportError{Method: r.method, Route: r.route, Err: readErr}
	}

	return out, nil
}

// getJSON performs a GET and decodes the JSON response into out
func (c *Client) getJSON(ctx context.Context, route, path string, query url.Values, out any) error {
	res, err := c.do(ctx, request{method: http.MethodGet, route: route, path: path, query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// sendJSON sends a JSON body. The response is decoded into out only when it
// is JSON and non-empty; decoded reports whether that happened.
func (c *Client) sendJSON(ctx context.Context, method, route, path string, in, out any) (decoded bool, err error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return false, fmt.Errorf("failed to encode request: %w", err)
	}

	res, err := c.do(ctx, request{
		method:      method,
		route:       route,
		path:        path,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
	})
	if err != nil {
		return false, err
	}

	if out == nil || !isJSON(res.contentType) || len(bytes.TrimSpace(res.body)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return false, fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return true, nil
}

// sendNoBody performs a request without a body and ignores the response body
func (c *Client) sendNoBody(ctx context.Context, method, route, path string) error {
	_, err := c.do(ctx, request{method: method, route: route, path: path})
	return err
}

// postMultipart posts a prepared multipart form and always expects JSON back
func (c *Client) postMultipart(ctx context.Context, route, path string, body io.Reader, contentType string, out any) error {
	res, err := c.do(ctx, request{
		method:      http.MethodPost,
		route:       route,
		path:        path,
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// segment escapes one path segment
func segment(s string) string {
	return EncodeURIComponent(s)
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s so it is safe as a single URL path segment,
// leaving only letters, digits and -_.!~*'() unescaped
func EncodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
