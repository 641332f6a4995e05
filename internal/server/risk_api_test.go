package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ctem-enterprise/internal/handlers"
	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/scoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both entries are past due, so their weights do not depend on the clock:
// log4j 1.5 × 1.5 (ransomware) × 1.3 = 2.925, webp 1.5 × 1.3 = 1.95.
const kevFixture = `{
  "catalogVersion": "2026.10.18",
  "count": 2,
  "vulnerabilities": [
    {"cveID": "CVE-2021-44228", "vendorProject": "Apache", "product": "Log4j2",
     "dateAdded": "2021-12-10", "dueDate": "2021-12-24", "knownRansomwareCampaignUse": "Known"},
    {"cveID": "CVE-2023-4863", "vendorProject": "Google", "product": "Chromium WebP",
     "dateAdded": "2023-09-13", "dueDate": "2023-10-04", "knownRansomwareCampaignUse": "Unknown"}
  ]
}`

type stubKEV struct {
	catalog *kev.Catalog
	err     error
	calls   atomic.Int32
}

func newStubKEV(t *testing.T) *stubKEV {
	t.Helper()
	var c kev.Catalog
	require.NoError(t, json.Unmarshal([]byte(kevFixture), &c))
	return &stubKEV{catalog: &c}
}

func (s *stubKEV) Catalog(context.Context) (*kev.Catalog, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

func (s *stubKEV) Lookup(ctx context.Context, cveID string) (*kev.Vulnerability, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := c.Find(cveID)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type vulnRow struct {
	CVEID string `json:"cveId"`
	Risk  struct {
		Score     float64 `json:"riskScore"`
		BaseScore float64 `json:"baseScore"`
		KEVWeight float64 `json:"kevWeight"`
		InKEV     bool    `json:"inKev"`
	} `json:"risk"`
}

func TestVulnerabilitiesAreKEVWeightedAndSorted(t *testing.T) {
	feed := newStubKEV(t)
	api, _ := newAPIWith(t, func(d *handlers.Deps) { d.KEV = feed })

	w := api.do(http.MethodGet, "/api/vulnerabilities", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []vulnRow
	decode(t, w, &rows)
	require.Len(t, rows, 4)

	assert.EqualValues(t, 1, feed.calls.Load(), "catalog resolved once per request")

	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Risk.Score, rows[i].Risk.Score, "rows sorted by score, highest first")
	}

	byCVE := map[string]vulnRow{}
	pos := map[string]int{}
	for i, r := range rows {
		byCVE[r.CVEID] = r
		pos[r.CVEID] = i
	}

	log4j := byCVE["CVE-2021-44228"]
	assert.Equal(t, 0, pos["CVE-2021-44228"])
	assert.True(t, log4j.Risk.InKEV)
	assert.InDelta(t, 2.925, log4j.Risk.KEVWeight, 1e-9)
	assert.Equal(t, 10.0, log4j.Risk.Score, "clamped to 10")

	// 8.8 × criticality 4/10 = 3.52, × 1.95
	webp := byCVE["CVE-2023-4863"]
	assert.True(t, webp.Risk.InKEV)
	assert.InDelta(t, 1.95, webp.Risk.KEVWeight, 1e-9)
	assert.InDelta(t, 3.52, webp.Risk.BaseScore, 1e-9)
	assert.InDelta(t, 6.86, webp.Risk.Score, 1e-9)

	// default 5 × 0.8 × 1.3 exposure, not listed
	smartInstall := byCVE["CVE-2018-0171"]
	assert.False(t, smartInstall.Risk.InKEV)
	assert.Equal(t, 1.0, smartInstall.Risk.KEVWeight)
	assert.InDelta(t, 5.2, smartInstall.Risk.Score, 1e-9)

	assert.Less(t, pos["CVE-2023-4863"], pos["CVE-2018-0171"], "KEV weighting lifts webp above the unlisted CVE")
}

func TestVulnerabilitiesWithFeedDown(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	feed := kev.NewFeed(upstream.URL, time.Hour, kev.WithRetryWindow(50*time.Millisecond))
	api, _ := newAPIWith(t, func(d *handlers.Deps) { d.KEV = feed })

	w := api.do(http.MethodGet, "/api/vulnerabilities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	afterFirst := hits.Load()
	require.Positive(t, afterFirst)

	start := time.Now()
	for i := 0; i < 3; i++ {
		w = api.do(http.MethodGet, "/api/vulnerabilities", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, afterFirst, hits.Load(), "failed feed is not contacted again during the cooldown")
	assert.Less(t, time.Since(start), time.Second)

	var rows []vulnRow
	decode(t, w, &rows)
	for _, r := range rows {
		assert.False(t, r.Risk.InKEV, r.CVEID)
	}
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/api/kev/CVE-2021-44228", nil).Code)
}

func TestScoreRisk(t *testing.T) {
	api, _ := newAPIWith(t, func(d *handlers.Deps) { d.KEV = newStubKEV(t) })

	rejected := []gin.H{
		{"cvssScore": 10.5},
		{"cvssScore": -1},
		{"assetCriticality": 11},
		{"assetCriticality": -0.5},
	}
	for _, body := range rejected {
		w := api.do(http.MethodPost, "/api/risk/score", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}

	tests := []struct {
		name   string
		body   gin.H
		score  float64
		weight float64
		inKEV  bool
	}{
		{"listed", gin.H{"cveId": "CVE-2023-4863", "cvssScore": 4}, 7.8, 1.95, true},
		{"listed and clamped", gin.H{"cveId": "cve-2021-44228", "cvssScore": 6}, 10, 2.925, true},
		{"unlisted exposed", gin.H{"cveId": "CVE-2099-0001", "cvssScore": 4, "isExposed": true}, 5.2, 1, false},
		{"criticality", gin.H{"cvssScore": 8, "assetCriticality": 5}, 4, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/risk/score", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var a struct {
				Score     float64 `json:"riskScore"`
				KEVWeight float64 `json:"kevWeight"`
				InKEV     bool    `json:"inKev"`
			}
			decode(t, w, &a)
			assert.InDelta(t, tt.score, a.Score, 1e-9)
			assert.InDelta(t, tt.weight, a.KEVWeight, 1e-9)
			assert.Equal(t, tt.inKEV, a.InKEV)
		})
	}
}

func TestKEVEntry(t *testing.T) {
	feed := newStubKEV(t)
	api, _ := newAPIWith(t, func(d *handlers.Deps) { d.KEV = feed })

	w := api.do(http.MethodGet, "/api/kev/cve-2021-44228", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		CVEID  string            `json:"cveId"`
		InKEV  bool              `json:"inKev"`
		Weight float64           `json:"weight"`
		Entry  kev.Vulnerability `json:"entry"`
	}
	decode(t, w, &listed)
	assert.Equal(t, "CVE-2021-44228", listed.CVEID)
	assert.True(t, listed.InKEV)
	assert.InDelta(t, 2.925, listed.Weight, 1e-9)
	assert.Equal(t, "Log4j2", listed.Entry.Product)

	w = api.do(http.MethodGet, "/api/kev/CVE-1999-0001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cveId":"CVE-1999-0001","inKev":false}`, w.Body.String())

	feed.err = kev.ErrFeedUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/api/kev/CVE-2021-44228", nil).Code)
}

func TestScoringServiceFailureIsBadGateway(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	api, _ := newAPIWith(t, func(d *handlers.Deps) {
		d.Scoring = scoring.NewClient(upstream.URL, scoring.WithRetryWindow(100*time.Millisecond))
	})

	for _, path := range []string{"/api/threats", "/api/attack-paths", "/api/vulnerabilities?source=scoring"} {
		t.Run(path, func(t *testing.T) {
			w := api.do(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
	assert.Positive(t, hits.Load())

	// the local catalog still answers, and the dashboard status degrades quietly
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/vulnerabilities", nil).Code)
	w := api.do(http.MethodGet, "/api/auto-remediation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"upstream"`)
}

func TestScoringServiceIsUsedWhenConfigured(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/threats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "t1", "type": "ransomware", "severity": 9.1, "affected_systems": ["a"], "status": "active"}]`))
	})
	mux.HandleFunc("/api/attack-paths", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nodes": [{"id": "n1", "type": "ASSET", "name": "Web", "risk_score": 0.8}], "edges": []}`))
	})
	mux.HandleFunc("/api/auto-remediation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"engine": "running", "queue": 2}`))
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	api, _ := newAPIWith(t, func(d *handlers.Deps) { d.Scoring = scoring.NewClient(upstream.URL) })

	w := api.do(http.MethodGet, "/api/threats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var threats []map[string]interface{}
	decode(t, w, &threats)
	require.Len(t, threats, 1)
	assert.Equal(t, "critical", threats[0]["severity"])

	w = api.do(http.MethodGet, "/api/attack-paths", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"asset"`)

	w = api.do(http.MethodGet, "/api/auto-remediation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		IsRunning bool                   `json:"isRunning"`
		Upstream  map[string]interface{} `json:"upstream"`
	}
	decode(t, w, &status)
	assert.True(t, status.IsRunning)
	assert.Equal(t, "running", status.Upstream["engine"])
}
