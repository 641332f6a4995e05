// Package handlers implements the JSON API behind the dashboard.
package handlers

import (
	"context"
	"net/http"
	"time"

	"ctem-enterprise/internal/dashboard"
	"ctem-enterprise/internal/eventbus"
	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/logger"
	"ctem-enterprise/internal/models"
	"ctem-enterprise/internal/remediation"
	"ctem-enterprise/internal/risk"
	"ctem-enterprise/internal/scoring"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// KEVSource is satisfied by *kev.Feed.
type KEVSource interface {
	Catalog(ctx context.Context) (*kev.Catalog, error)
	Lookup(ctx context.Context, cveID string) (*kev.Vulnerability, error)
}

type Handler struct {
	db          *gorm.DB
	kev         KEVSource
	scorer      *risk.Scorer
	dashboard   *dashboard.Provider
	remediation *remediation.Service
	scoring     *scoring.Client
	bus         eventbus.Publisher
	now         func() time.Time
}

type Deps struct {
	DB          *gorm.DB
	KEV         KEVSource
	Dashboard   *dashboard.Provider
	Remediation *remediation.Service
	Scoring     *scoring.Client    // optional
	Bus         eventbus.Publisher // optional, reported by Health
}

func New(d Deps) *Handler {
	h := &Handler{
		db:          d.DB,
		kev:         d.KEV,
		dashboard:   d.Dashboard,
		remediation: d.Remediation,
		scoring:     d.Scoring,
		bus:         d.Bus,
		now:         time.Now,
	}
	var lookup risk.KEVLookup
	if d.KEV != nil {
		lookup = d.KEV
	}
	h.scorer = risk.NewScorer(lookup)
	if h.dashboard == nil {
		h.dashboard = dashboard.NewProvider(d.KEV)
	}
	if h.remediation == nil {
		h.remediation = remediation.NewService(d.DB, d.Bus)
	}
	return h
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// internalError logs err and answers 500 with msg.
func internalError(c *gin.Context, msg string, err error) {
	logger.WithField("path", c.FullPath()).Errorf("%s: %v", msg, err)
	respondError(c, http.StatusInternalServerError, msg)
}

// currentUser returns the user set by middleware.InjectUser.
func currentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get("CurrentUser")
	if !ok {
		return models.User{}, false
	}
	switch u := v.(type) {
	case models.User:
		return u, true
	case *models.User:
		return *u, true
	}
	return models.User{}, false
}

func currentUserID(c *gin.Context) uint {
	if u, ok := currentUser(c); ok {
		return u.ID
	}
	return 0
}

// upstreamError logs err and answers 502 for scoring service failures.
func upstreamError(c *gin.Context, msg string, err error) {
	logger.WithField("path", c.FullPath()).Errorf("%s: %v", msg, err)
	respondError(c, http.StatusBadGateway, msg)
}

// upstreamWarn logs a scoring service failure that does not fail the request.
func upstreamWarn(c *gin.Context, msg string, err error) {
	logger.WithField("path", c.FullPath()).Warnf("%s: %v", msg, err)
}
