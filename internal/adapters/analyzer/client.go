// Package analyzer calls a remote summarization service over HTTP.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/okian/evalmatrix/internal/domain/analysis"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/okian/evalmatrix/pkg/logger"
)

// Defaults for the client.
const (
	DefaultTimeout = 60 * time.Second
	AnalyzePath    = "/api/analyze"
	logBodyLimit   = 200
)

// Client posts snapshots to {baseURL}/api/analyze.
type Client struct {
	http    *resty.Client
	baseURL string
	timeout time.Duration
	retries int
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each Analyze call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries retries 5xx responses and transport errors.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(c.retries).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
			}
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})
	return c
}

// Analyze sends the snapshot and normalizes the returned analysis. The call
// is abandoned with analysis.ErrTimeout once the configured bound elapses.
func (c *Client) Analyze(ctx context.Context, snap types.Snapshot) (types.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"evaluation": snap}).
		Post(c.baseURL + AnalyzePath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn(ctx, "analysis timed out", logger.Duration("elapsed", time.Since(start)))
			return types.Analysis{}, fmt.Errorf("%w after %s", analysis.ErrTimeout, c.timeout)
		}
		c.log.Error(ctx, "analysis request failed", logger.Error(err))
		return types.Analysis{}, analysis.NewServiceError(0, err.Error())
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error").String()
		c.log.Warn(ctx, "analysis service returned an error",
			logger.Int("status", resp.StatusCode()),
			logger.String("body", analysis.TruncateForLog(body, logBodyLimit)),
		)
		return types.Analysis{}, analysis.NewServiceError(resp.StatusCode(), msg)
	}
	if !gjson.Valid(body) {
		return types.Analysis{}, analysis.NewServiceError(resp.StatusCode(), "malformed response body")
	}

	result := analysis.Normalize([]byte(gjson.Get(body, "analysis").Raw))
	result.Model = gjson.Get(body, "model").String()
	c.log.Debug(ctx, "analysis received",
		logger.String("model", result.Model),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
