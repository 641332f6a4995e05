package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"
	"ctem-enterprise/internal/risk"

	"github.com/gin-gonic/gin"
)

type assetView struct {
	models.Asset
	OpenVulnerabilities int64 `json:"openVulnerabilities"`
}

func (h *Handler) ListAssets(c *gin.Context) {
	var assets []models.Asset
	if err := h.db.WithContext(c.Request.Context()).Order("criticality desc, name asc").Find(&assets).Error; err != nil {
		internalError(c, "failed to fetch assets", err)
		return
	}

	var counts []struct {
		AssetID uint
		Total   int64
	}
	err := h.db.WithContext(c.Request.Context()).Model(&models.Vulnerability{}).
		Select("asset_id, count(*) as total").
		Where("status = ?", "open").
		Group("asset_id").
		Scan(&counts).Error
	if err != nil {
		internalError(c, "failed to count vulnerabilities", err)
		return
	}
	open := make(map[uint]int64, len(counts))
	for _, row := range counts {
		open[row.AssetID] = row.Total
	}

	out := make([]assetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetView{Asset: a, OpenVulnerabilities: open[a.ID]})
	}
	c.JSON(http.StatusOK, out)
}

type vulnerabilityView struct {
	models.Vulnerability
	Risk risk.Assessment `json:"risk"`
}

func inputFor(v models.Vulnerability) risk.Input {
	in := risk.Input{
		CVEID:      v.CVEID,
		CVSSScore:  v.CVSSScore,
		CVSSVector: v.CVSSVector,
		Exposed:    v.Asset.Exposed,
	}
	if v.Asset.Criticality > 0 {
		crit := v.Asset.Criticality
		in.AssetCriticality = &crit
	}
	return in
}

// kevCatalog resolves the catalog once for a request. Nil means "no KEV
// data" and every CVE scores as unlisted.
func (h *Handler) kevCatalog(ctx context.Context) *kev.Catalog {
	if h.kev == nil {
		return nil
	}
	catalog, err := h.kev.Catalog(ctx)
	if err != nil {
		logger.Warnf("kev catalog unavailable, scoring as unlisted: %v", err)
		return nil
	}
	return catalog
}

// ListVulnerabilities returns every vulnerability with its KEV-weighted
// assessment, highest risk first.
func (h *Handler) ListVulnerabilities(c *gin.Context) {
	if h.scoring.Configured() && c.Query("source") == "scoring" {
		vulns, err := h.scoring.Vulnerabilities(c.Request.Context())
		if err != nil {
			upstreamError(c, "failed to fetch vulnerabilities", err)
			return
		}
		c.JSON(http.StatusOK, vulns)
		return
	}

	var vulns []models.Vulnerability
	if err := h.db.WithContext(c.Request.Context()).Preload("Asset").Find(&vulns).Error; err != nil {
		internalError(c, "failed to fetch vulnerabilities", err)
		return
	}

	catalog := h.kevCatalog(c.Request.Context())
	now := h.now()

	out := make([]vulnerabilityView, 0, len(vulns))
	for _, v := range vulns {
		var listed *kev.Vulnerability
		if catalog != nil && v.CVEID != "" {
			if entry, ok := catalog.Find(v.CVEID); ok {
				listed = &entry
			}
		}
		out = append(out, vulnerabilityView{
			Vulnerability: v,
			Risk:          risk.Score(inputFor(v), listed, now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Risk.Score > out[j].Risk.Score
	})
	c.JSON(http.StatusOK, out)
}

// ScoreRisk scores an ad hoc vulnerability record.
func (h *Handler) ScoreRisk(c *gin.Context) {
	var in risk.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid vulnerability record")
		return
	}
	if in.CVSSScore != nil && (*in.CVSSScore < 0 || *in.CVSSScore > 10) {
		respondError(c, http.StatusBadRequest, "cvssScore must be between 0 and 10")
		return
	}
	if in.AssetCriticality != nil && (*in.AssetCriticality < 0 || *in.AssetCriticality > 10) {
		respondError(c, http.StatusBadRequest, "assetCriticality must be between 0 and 10")
		return
	}
	c.JSON(http.StatusOK, h.scorer.Assess(c.Request.Context(), in))
}

// GetKEVEntry answers whether a CVE is in the KEV catalog and with which
// weight.
func (h *Handler) GetKEVEntry(c *gin.Context) {
	cve := strings.TrimSpace(c.Param("cve"))
	if h.kev == nil {
		respondError(c, http.StatusServiceUnavailable, "kev feed unavailable")
		return
	}

	v, err := h.kev.Lookup(c.Request.Context(), cve)
	if errors.Is(err, kev.ErrFeedUnavailable) {
		respondError(c, http.StatusServiceUnavailable, "kev feed unavailable")
		return
	}
	if err != nil {
		internalError(c, "failed to look up kev entry", err)
		return
	}
	if v == nil {
		c.JSON(http.StatusOK, gin.H{"cveId": strings.ToUpper(cve), "inKev": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cveId":  v.CVEID,
		"inKev":  true,
		"weight": kev.Weight(*v, h.now()),
		"entry":  v,
	})
}
