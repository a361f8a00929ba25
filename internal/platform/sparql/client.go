// Package sparql is a small SPARQL 1.1 protocol client for the mu.semte.ch
// triplestore, plus the escaping helpers every query builder must use.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job_alert_service/internal/common"
)

type Config struct {
	Endpoint string
	// Sudo sends the mu-auth-sudo header so mu-authorization lets the
	// query through regardless of session.
	Sudo                 bool
	Timeout              time.Duration
	MaxRetries           int
	RetryInitialInterval time.Duration
}

// Client executes queries and updates against one SPARQL endpoint.
type Client struct {
	endpoint   string
	sudo       bool
	maxRetries int
	initial    time.Duration
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sparql endpoint returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 200 * time.Millisecond
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		sudo:       cfg.Sudo,
		maxRetries: cfg.MaxRetries,
		initial:    cfg.RetryInitialInterval,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Query runs a SELECT query and returns the decoded rows.
func (c *Client) Query(ctx context.Context, query string) ([]Row, error) {
	doc, err := c.read(ctx, query)
	if err != nil {
		return nil, err
	}
	return decodeRows(doc.Results.Bindings), nil
}

// Ask runs an ASK query.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	doc, err := c.read(ctx, query)
	if err != nil {
		return false, err
	}
	if doc.Boolean == nil {
		return false, errors.New("sparql: ASK response carries no boolean")
	}
	return *doc.Boolean, nil
}

// Update runs an INSERT/DELETE update.
func (c *Client) Update(ctx context.Context, update string) error {
	_, err := c.post(ctx, url.Values{"update": {update}})
	return err
}

func (c *Client) read(ctx context.Context, query string) (*resultsDocument, error) {
	body, err := c.post(ctx, url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}
	var doc resultsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "sparql: decode results")
	}
	return &doc, nil
}

func (c *Client) post(ctx context.Context, form url.Values) ([]byte, error) {
	c.log.Debugw("Executing SPARQL request", "endpoint", c.endpoint, "request", form.Encode())

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "sparql: build request"))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("Accept", "application/sparql-results+json")
		if c.sudo {
			req.Header.Set("mu-auth-sudo", "true")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.log.Warnw("SPARQL request failed, retrying", "error", err)
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "sparql: read response")
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{Code: resp.StatusCode, Body: string(data)}
			if statusErr.retryable() {
				c.log.Warnw("SPARQL endpoint unavailable, retrying", "status", resp.StatusCode)
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initial
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, err
		}
		return nil, errors.Mark(errors.Wrap(err, "sparql: request failed"), common.ErrServiceUnavailable)
	}
	return body, nil
}
