// Package scoring talks to the external risk scoring service and reshapes
// its payloads for the dashboard.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ctem-enterprise/internal/logger"

	"github.com/cenkalti/backoff"
)

var (
	ErrNotConfigured = errors.New("scoring service not configured")
	ErrBadResponse   = errors.New("malformed scoring service response")
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scoring service %s %s: HTTP error status %d", e.Method, e.Path, e.Code)
}

type Client struct {
	baseURL string
	client  *http.Client
	retry   time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.client = c } }

// WithRetryWindow bounds how long idempotent GETs are retried.
func WithRetryWindow(d time.Duration) Option { return func(cl *Client) { cl.retry = d } }

// NewClient returns a client for baseURL. An empty baseURL yields a client
// whose calls all fail with ErrNotConfigured.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		retry:   10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Configured() bool { return c != nil && c.baseURL != "" }

func (c *Client) AttackPaths(ctx context.Context) (*AttackGraph, error) {
	var raw rawAttackGraph
	if err := c.get(ctx, "/api/attack-paths", &raw); err != nil {
		return nil, fmt.Errorf("fetch attack paths: %w", err)
	}
	g := transformAttackPaths(raw)
	return &g, nil
}

func (c *Client) Threats(ctx context.Context) ([]Threat, error) {
	var raw []rawThreat
	if err := c.get(ctx, "/api/threats", &raw); err != nil {
		return nil, fmt.Errorf("fetch threats: %w", err)
	}
	return transformThreats(raw), nil
}

func (c *Client) Vulnerabilities(ctx context.Context) ([]Vulnerability, error) {
	var raw []rawVulnerability
	if err := c.get(ctx, "/api/vulnerabilities", &raw); err != nil {
		return nil, fmt.Errorf("fetch vulnerabilities: %w", err)
	}
	return transformVulnerabilities(raw), nil
}

// StartRemediation asks the service to remediate a threat. The answer is
// passed through untouched.
func (c *Client) StartRemediation(ctx context.Context, threatID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	body := map[string]string{"threatId": threatID}
	if err := c.do(ctx, http.MethodPost, "/api/auto-remediation", body, &out); err != nil {
		return nil, fmt.Errorf("start remediation: %w", err)
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.get(ctx, "/api/auto-remediation", &out); err != nil {
		return nil, fmt.Errorf("get remediation status: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, status interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodPost, "/api/auto-remediation/status", status, &out); err != nil {
		return nil, fmt.Errorf("update remediation status: %w", err)
	}
	return out, nil
}

// get retries transport errors and 5xx answers with exponential backoff.
// Client errors and undecodable bodies fail at once.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.retry

	op := func() error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if errors.Is(err, ErrBadResponse) {
			return backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		logger.Warnf("scoring service GET %s failed, retrying in %v: %v", path, d, err)
	}

	return backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBadResponse, method, path, err)
	}
	return nil
}
