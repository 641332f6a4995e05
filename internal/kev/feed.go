package kev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"ctem-enterprise/internal/logger"

	"github.com/cenkalti/backoff"
)

var (
	ErrFeedUnavailable = errors.New("kev feed unavailable")
	ErrCacheMiss       = errors.New("kev cache miss")
)

// SharedCache lets several processes reuse one downloaded catalog.
type SharedCache interface {
	Load(ctx context.Context) (*Catalog, time.Time, error)
	Store(ctx context.Context, c *Catalog, fetchedAt time.Time, ttl time.Duration) error
}

// DefaultFailureCooldown is how long a failed download is remembered before
// the feed is contacted again.
const DefaultFailureCooldown = 5 * time.Minute

type Feed struct {
	url      string
	ttl      time.Duration
	client   *http.Client
	shared   SharedCache
	now      func() time.Time
	retry    time.Duration
	cooldown time.Duration

	mu        sync.Mutex
	catalog   *Catalog
	fetchedAt time.Time
	failedAt  time.Time
	lastErr   error
}

type Option func(*Feed)

func WithHTTPClient(c *http.Client) Option  { return func(f *Feed) { f.client = c } }
func WithSharedCache(c SharedCache) Option  { return func(f *Feed) { f.shared = c } }
func WithClock(now func() time.Time) Option { return func(f *Feed) { f.now = now } }

// WithRetryWindow bounds the total time spent retrying one download.
func WithRetryWindow(d time.Duration) Option { return func(f *Feed) { f.retry = d } }

// WithFailureCooldown sets how long a failed download suppresses new attempts.
func WithFailureCooldown(d time.Duration) Option { return func(f *Feed) { f.cooldown = d } }

func NewFeed(url string, ttl time.Duration, opts ...Option) *Feed {
	f := &Feed{
		url:      url,
		ttl:      ttl,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
		retry:    30 * time.Second,
		cooldown: DefaultFailureCooldown,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Catalog returns the cached catalog while it is younger than the TTL and
// downloads a fresh one otherwise. A failed download falls back to the stale
// copy when there is one, and no new download is tried until the cooldown
// has passed.
func (f *Feed) Catalog(ctx context.Context) (*Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if f.catalog != nil && now.Sub(f.fetchedAt) < f.ttl {
		return f.catalog, nil
	}
	if !f.failedAt.IsZero() && now.Sub(f.failedAt) < f.cooldown {
		return f.fallback(f.lastErr)
	}

	if f.shared != nil {
		c, at, err := f.shared.Load(ctx)
		if err == nil && now.Sub(at) < f.ttl {
			c.buildIndex()
			f.catalog, f.fetchedAt = c, at
			return c, nil
		}
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			logger.Warnf("kev shared cache load failed: %v", err)
		}
	}

	c, err := f.download(ctx)
	if err != nil {
		logger.Errorf("error fetching KEV data: %v", err)
		// a cancelled caller says nothing about the feed
		if ctx.Err() == nil {
			f.failedAt, f.lastErr = now, err
		}
		return f.fallback(err)
	}

	f.catalog, f.fetchedAt = c, now
	f.failedAt, f.lastErr = time.Time{}, nil
	logger.WithField("count", len(c.Vulnerabilities)).Infof("kev catalog %s refreshed", c.CatalogVersion)

	if f.shared != nil {
		if err := f.shared.Store(ctx, c, now, f.ttl); err != nil {
			logger.Warnf("kev shared cache store failed: %v", err)
		}
	}
	return c, nil
}

func (f *Feed) fallback(err error) (*Catalog, error) {
	if f.catalog != nil {
		return f.catalog, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
}

// Lookup finds a CVE in the catalog. A missing feed reads as "not listed".
func (f *Feed) Lookup(ctx context.Context, cveID string) (*Vulnerability, error) {
	c, err := f.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := c.Find(cveID)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *Feed) IsListed(ctx context.Context, cveID string) bool {
	v, err := f.Lookup(ctx, cveID)
	return err == nil && v != nil
}

func (f *Feed) download(ctx context.Context) (*Catalog, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if f.retry < 2*time.Second {
		bo.InitialInterval = f.retry / 4
	}
	bo.MaxElapsedTime = f.retry

	var catalog *Catalog
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("failed to fetch KEV data: %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("failed to fetch KEV data: %s", resp.Status))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		var c Catalog
		if err := json.Unmarshal(body, &c); err != nil {
			return backoff.Permanent(fmt.Errorf("decode kev catalog: %w", err))
		}
		c.buildIndex()
		catalog = &c
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return catalog, nil
}
