// Package client provides the HTTP call wrapper the journey steps use to talk
// to the mini-program API. Every call yields a *Result; transport errors,
// unexpected statuses, and unparseable bodies are reported through
// Result.Failure instead of Go errors, so a step can decide pass or fail
// from one value.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hohopark/hoho-journey/internal/logging"
)

// logBodyLimit caps how much of a response body is logged.
const logBodyLimit = 200

// ErrUnsupportedMethod is set on results for methods other than
// GET, POST, PUT, and DELETE.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Client issues JSON requests against a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a Client. Every call is bounded by timeout.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// BaseURL returns the URL paths are appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Option adjusts a single call.
type Option func(*callOptions)

type callOptions struct {
	expectFailure bool
}

// ExpectFailure marks a call whose non-2xx answer is an anticipated outcome.
// The result then carries an error wrapper payload
// {"success": false, "error": <raw body>} instead of a nil payload.
func ExpectFailure() Option {
	return func(o *callOptions) { o.expectFailure = true }
}

// Call issues one request. body is JSON-encoded for POST and PUT and ignored
// otherwise; token, when non-empty, is sent as a bearer credential.
// Call never returns nil.
func (c *Client) Call(ctx context.Context, method, path string, body any, token string, opts ...Option) *Result {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	method = strings.ToUpper(method)
	res := &Result{Method: method, Path: path}
	log := c.logger.With(zap.String("method", method), zap.String("path", path))

	var reqBody io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost, http.MethodPut:
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return res.fail(FailureRequest, fmt.Errorf("encoding request body: %w", err))
			}
			reqBody = bytes.NewReader(data)
		}
	default:
		return res.fail(FailureRequest, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return res.fail(FailureRequest, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := classify(ctx, err)
		log.Warn("request failed", zap.Stringer("failure", kind), zap.Error(err))
		return res.fail(kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	res.StatusCode = resp.StatusCode
	if err != nil {
		kind := classify(ctx, err)
		log.Warn("reading response failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return res.fail(kind, fmt.Errorf("reading response body: %w", err))
	}
	res.Raw = string(raw)

	log.Info("request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Debug("error response", zap.String("body", logging.Truncate(res.Raw, logBodyLimit)))
		res.Failure = FailureStatus
		res.Err = &StatusError{StatusCode: resp.StatusCode, Body: res.Raw}
		if o.expectFailure {
			res.Payload = map[string]any{"success": false, "error": res.Raw}
		}
		return res
	}

	payload, err := decodeJSON(raw)
	if err != nil {
		log.Debug("non-JSON success body", zap.String("body", logging.Truncate(res.Raw, logBodyLimit)))
		res.Failure = FailureParse
		res.Err = fmt.Errorf("decoding response body: %w", err)
		res.Payload = map[string]any{"success": true}
		return res
	}

	log.Debug("response", zap.String("body", logging.Truncate(res.Raw, logBodyLimit)))
	res.Payload = payload
	return res
}

// decodeJSON parses a body keeping numbers as json.Number so large integer
// IDs survive formatting.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// classify maps a transport error onto a failure kind.
func classify(ctx context.Context, err error) Failure {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	return FailureConnection
}
