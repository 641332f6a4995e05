// Package risk weights vulnerability scores by exposure, asset criticality
// and KEV listing.
package risk

import (
	"context"
	"math"
	"time"

	"ctem-enterprise/internal/kev"
	"ctem-enterprise/internal/logger"
)

const (
	DefaultBaseScore = 5.0
	ExposureFactor   = 1.3
	MaxScore         = 10.0
)

type Input struct {
	CVEID            string   `json:"cveId"`
	CVSSScore        *float64 `json:"cvssScore,omitempty"`
	CVSSVector       string   `json:"cvssVector,omitempty"`
	AssetCriticality *float64 `json:"assetCriticality,omitempty"`
	Exposed          bool     `json:"isExposed"`
}

type Assessment struct {
	CVEID     string             `json:"cveId"`
	Score     float64            `json:"riskScore"`
	BaseScore float64            `json:"baseScore"`
	KEVWeight float64            `json:"kevWeight"`
	InKEV     bool               `json:"inKev"`
	Severity  string             `json:"severity"`
	KEV       *kev.Vulnerability `json:"kev,omitempty"`
}

// BaseScore is the CVSS score (or vector-derived score, or 5.0) scaled by
// asset criticality/10 and by 1.3 when the asset is exposed.
func BaseScore(in Input) float64 {
	score := DefaultBaseScore
	switch {
	case in.CVSSScore != nil && *in.CVSSScore > 0:
		score = *in.CVSSScore
	case in.CVSSVector != "":
		if s := ScoreFromVector(in.CVSSVector); s > 0 {
			score = s
		}
	}

	if in.AssetCriticality != nil && *in.AssetCriticality > 0 {
		score *= *in.AssetCriticality / 10
	}
	if in.Exposed {
		score *= ExposureFactor
	}
	return score
}

// Score is pure: listed is the KEV entry for in.CVEID or nil.
func Score(in Input, listed *kev.Vulnerability, now time.Time) Assessment {
	base := BaseScore(in)
	a := Assessment{
		CVEID:     in.CVEID,
		BaseScore: round2(base),
		KEVWeight: 1,
	}

	score := base
	if listed != nil {
		a.InKEV = true
		a.KEV = listed
		a.KEVWeight = kev.Weight(*listed, now)
		score *= a.KEVWeight
	}

	a.Score = round2(Clamp(score))
	a.Severity = SeverityRating(a.Score)
	return a
}

func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(math.Max(score, 0), MaxScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type KEVLookup interface {
	Lookup(ctx context.Context, cveID string) (*kev.Vulnerability, error)
}

// Scorer resolves KEV entries and applies Score.
type Scorer struct {
	kev KEVLookup
	now func() time.Time
}

func NewScorer(lookup KEVLookup) *Scorer {
	return &Scorer{kev: lookup, now: time.Now}
}

// Assess never fails: without KEV data the vulnerability is scored as unlisted.
func (s *Scorer) Assess(ctx context.Context, in Input) Assessment {
	var listed *kev.Vulnerability
	if s.kev != nil && in.CVEID != "" {
		v, err := s.kev.Lookup(ctx, in.CVEID)
		if err != nil {
			logger.Warnf("kev lookup for %s failed, scoring as unlisted: %v", in.CVEID, err)
		}
		listed = v
	}
	return Score(in, listed, s.now())
}
