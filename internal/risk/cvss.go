package risk

import (
	"strings"

	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// ScoreFromVector calculates the CVSS base score from a vector string.
// Unknown or malformed vectors score 0.
func ScoreFromVector(vector string) float64 {
	vector = strings.TrimSpace(vector)
	if !strings.HasPrefix(vector, "CVSS:") {
		return 0
	}
	if strings.HasPrefix(vector, "CVSS:3.1") || strings.HasPrefix(vector, "CVSS:3.0") {
		if v, err := gocvss31.ParseVector(vector); err == nil {
			return v.BaseScore()
		}
	}
	if strings.HasPrefix(vector, "CVSS:4.0") {
		if v, err := gocvss40.ParseVector(vector); err == nil {
			return v.Score()
		}
	}
	return 0
}

// SeverityRating returns the CVSS qualitative rating for a score.
func SeverityRating(score float64) string {
	switch {
	case score == 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}
