package kev

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ctem-enterprise/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "title": "CISA Catalog of Known Exploited Vulnerabilities",
  "catalogVersion": "2026.10.18",
  "dateReleased": "2026-10-18T15:00:00.000Z",
  "count": 2,
  "vulnerabilities": [
    {"cveID": "CVE-2021-44228", "vendorProject": "Apache", "product": "Log4j2",
     "vulnerabilityName": "Apache Log4j2 RCE", "dateAdded": "2021-12-10",
     "shortDescription": "JNDI lookup RCE", "requiredAction": "Apply updates",
     "dueDate": "2021-12-24", "knownRansomwareCampaignUse": "Known", "notes": ""},
    {"cveID": "CVE-2023-4863", "vendorProject": "Google", "product": "Chromium WebP",
     "vulnerabilityName": "Heap overflow", "dateAdded": "2023-09-13",
     "shortDescription": "libwebp overflow", "requiredAction": "Apply updates",
     "dueDate": "2023-10-04", "knownRansomwareCampaignUse": "Unknown", "notes": ""}
  ]
}`

func init() {
	logger.SetOutput(io.Discard)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newCatalogServer(t *testing.T, status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if code := status.Load(); code != 0 && code != http.StatusOK {
			w.WriteHeader(int(code))
			return
		}
		_, _ = w.Write([]byte(catalogJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedCachesWithinTTL(t *testing.T) {
	var status, hits atomic.Int32
	srv := newCatalogServer(t, &status, &hits)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}
	feed := NewFeed(srv.URL, 6*time.Hour, WithClock(clock.Now))

	ctx := context.Background()
	c, err := feed.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Vulnerabilities, 2)

	clock.Advance(5 * time.Hour)
	_, err = feed.Catalog(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	clock.Advance(2 * time.Hour)
	_, err = feed.Catalog(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestFeedServesStaleCatalogOnFailure(t *testing.T) {
	var status, hits atomic.Int32
	srv := newCatalogServer(t, &status, &hits)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}
	feed := NewFeed(srv.URL, time.Hour, WithClock(clock.Now), WithRetryWindow(20*time.Millisecond))

	ctx := context.Background()
	_, err := feed.Catalog(ctx)
	require.NoError(t, err)

	status.Store(http.StatusServiceUnavailable)
	clock.Advance(2 * time.Hour)

	c, err := feed.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026.10.18", c.CatalogVersion)
}

func TestFeedUnavailableWithoutCache(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusNotFound)
	srv := newCatalogServer(t, &status, &hits)
	feed := NewFeed(srv.URL, time.Hour, WithRetryWindow(20*time.Millisecond))

	_, err := feed.Catalog(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
	assert.EqualValues(t, 1, hits.Load(), "4xx is not retried")

	assert.False(t, feed.IsListed(context.Background(), "CVE-2021-44228"))
}

func TestFeedFailureCooldown(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := newCatalogServer(t, &status, &hits)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}
	feed := NewFeed(srv.URL, time.Hour,
		WithClock(clock.Now),
		WithRetryWindow(20*time.Millisecond),
		WithFailureCooldown(5*time.Minute),
	)

	ctx := context.Background()
	_, err := feed.Catalog(ctx)
	require.ErrorIs(t, err, ErrFeedUnavailable)
	afterFirst := hits.Load()
	require.Positive(t, afterFirst)

	for i := 0; i < 4; i++ {
		v, err := feed.Lookup(ctx, "CVE-2021-44228")
		assert.ErrorIs(t, err, ErrFeedUnavailable)
		assert.Nil(t, v)
	}
	assert.Equal(t, afterFirst, hits.Load(), "no downloads during the cooldown")

	status.Store(http.StatusOK)
	clock.Advance(6 * time.Minute)
	c, err := feed.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Vulnerabilities, 2)
	assert.Equal(t, afterFirst+1, hits.Load())
}

func TestFeedCooldownServesStaleCopy(t *testing.T) {
	var status, hits atomic.Int32
	srv := newCatalogServer(t, &status, &hits)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}
	feed := NewFeed(srv.URL, time.Hour, WithClock(clock.Now), WithRetryWindow(20*time.Millisecond))

	ctx := context.Background()
	_, err := feed.Catalog(ctx)
	require.NoError(t, err)

	status.Store(http.StatusBadGateway)
	clock.Advance(2 * time.Hour)
	_, err = feed.Catalog(ctx)
	require.NoError(t, err)
	failedHits := hits.Load()

	for i := 0; i < 3; i++ {
		c, err := feed.Catalog(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2026.10.18", c.CatalogVersion)
	}
	assert.Equal(t, failedHits, hits.Load())
}

func TestFeedLookupIsCaseInsensitive(t *testing.T) {
	var status, hits atomic.Int32
	srv := newCatalogServer(t, &status, &hits)
	feed := NewFeed(srv.URL, time.Hour)

	v, err := feed.Lookup(context.Background(), " cve-2021-44228 ")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Log4j2", v.Product)
	assert.True(t, bool(v.KnownRansomwareCampaignUse))

	missing, err := feed.Lookup(context.Background(), "CVE-1999-0001")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type memoryShared struct {
	catalog   *Catalog
	fetchedAt time.Time
	stores    int
}

func (m *memoryShared) Load(context.Context) (*Catalog, time.Time, error) {
	if m.catalog == nil {
		return nil, time.Time{}, ErrCacheMiss
	}
	return m.catalog, m.fetchedAt, nil
}

func (m *memoryShared) Store(_ context.Context, c *Catalog, at time.Time, _ time.Duration) error {
	m.catalog, m.fetchedAt = c, at
	m.stores++
	return nil
}

func TestFeedUsesSharedCache(t *testing.T) {
	var status, hits atomic.Int32
	srv := newCatalogServer(t, &status, &hits)
	shared := &memoryShared{}
	clock := &fakeClock{t: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)}

	first := NewFeed(srv.URL, time.Hour, WithSharedCache(shared), WithClock(clock.Now))
	_, err := first.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, shared.stores)

	second := NewFeed(srv.URL, time.Hour, WithSharedCache(shared), WithClock(clock.Now))
	c, err := second.Catalog(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "second feed reads the shared copy")
	_, ok := c.Find("CVE-2023-4863")
	assert.True(t, ok)
}

func TestRansomwareUseDecoding(t *testing.T) {
	var vs []Vulnerability
	require.NoError(t, json.Unmarshal([]byte(`[
		{"knownRansomwareCampaignUse": "Known"},
		{"knownRansomwareCampaignUse": "Unknown"},
		{"knownRansomwareCampaignUse": true},
		{}
	]`), &vs))

	assert.True(t, bool(vs[0].KnownRansomwareCampaignUse))
	assert.False(t, bool(vs[1].KnownRansomwareCampaignUse))
	assert.True(t, bool(vs[2].KnownRansomwareCampaignUse))
	assert.False(t, bool(vs[3].KnownRansomwareCampaignUse))

	out, err := json.Marshal(vs[0].KnownRansomwareCampaignUse)
	require.NoError(t, err)
	assert.Equal(t, `"Known"`, string(out))
}

func TestWeight(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    Vulnerability
		want float64
	}{
		{"base", Vulnerability{DueDate: "2027-01-01"}, 1.5},
		{"ransomware", Vulnerability{DueDate: "2027-01-01", KnownRansomwareCampaignUse: true}, 2.25},
		{"due in 5 days", Vulnerability{DueDate: "2026-10-24"}, 1.5 * 1.3},
		{"overdue", Vulnerability{DueDate: "2026-09-01"}, 1.5 * 1.3},
		{"due in 20 days", Vulnerability{DueDate: "2026-11-08"}, 1.5 * 1.2},
		{"ransomware and imminent", Vulnerability{DueDate: "2026-10-20", KnownRansomwareCampaignUse: true}, 1.5 * 1.5 * 1.3},
		{"unparseable due date", Vulnerability{DueDate: "soon"}, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Weight(tt.v, now), 1e-9)
		})
	}
}

func TestRecentlyAdded(t *testing.T) {
	var c Catalog
	require.NoError(t, json.Unmarshal([]byte(catalogJSON), &c))

	recent := c.RecentlyAdded(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, recent, 1)
	assert.Equal(t, "CVE-2023-4863", recent[0].CVEID)
}
