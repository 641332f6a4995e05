package kev

import (
	"math"
	"time"
)

const (
	BaseWeight       = 1.5
	RansomwareFactor = 1.5
	ImminentFactor   = 1.3 // due within 7 days, overdue included
	NearTermFactor   = 1.2 // due within 30 days
)

// Weight is the risk multiplier for a listed vulnerability.
func Weight(v Vulnerability, now time.Time) float64 {
	w := BaseWeight
	if v.KnownRansomwareCampaignUse {
		w *= RansomwareFactor
	}

	due, ok := v.Due()
	if !ok {
		return w
	}
	days := int(math.Ceil(due.Sub(now).Hours() / 24))
	switch {
	case days <= 7:
		w *= ImminentFactor
	case days <= 30:
		w *= NearTermFactor
	}
	return w
}
