// Package kev reads the CISA Known Exploited Vulnerabilities catalog.
package kev

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type Catalog struct {
	Title           string          `json:"title"`
	CatalogVersion  string          `json:"catalogVersion"`
	DateReleased    string          `json:"dateReleased"`
	Count           int             `json:"count"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`

	index map[string]int
}

type Vulnerability struct {
	CVEID                      string        `json:"cveID"`
	VendorProject              string        `json:"vendorProject"`
	Product                    string        `json:"product"`
	VulnerabilityName          string        `json:"vulnerabilityName"`
	DateAdded                  string        `json:"dateAdded"`
	ShortDescription           string        `json:"shortDescription"`
	RequiredAction             string        `json:"requiredAction"`
	DueDate                    string        `json:"dueDate"`
	KnownRansomwareCampaignUse RansomwareUse `json:"knownRansomwareCampaignUse"`
	Notes                      string        `json:"notes"`
}

// RansomwareUse decodes the feed's "Known"/"Unknown" marker. Plain booleans
// are accepted as well.
type RansomwareUse bool

func (r *RansomwareUse) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = RansomwareUse(strings.EqualFold(strings.TrimSpace(s), "known"))
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = RansomwareUse(v)
	return nil
}

func (r RansomwareUse) MarshalJSON() ([]byte, error) {
	if r {
		return []byte(`"Known"`), nil
	}
	return []byte(`"Unknown"`), nil
}

func (v Vulnerability) Added() (time.Time, bool) {
	t, err := time.Parse(dateLayout, v.DateAdded)
	return t, err == nil
}

func (v Vulnerability) Due() (time.Time, bool) {
	t, err := time.Parse(dateLayout, v.DueDate)
	return t, err == nil
}

func normalizeCVE(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]int, len(c.Vulnerabilities))
	for i, v := range c.Vulnerabilities {
		c.index[normalizeCVE(v.CVEID)] = i
	}
}

// Find returns the catalog entry for a CVE id, case-insensitive.
func (c *Catalog) Find(cveID string) (Vulnerability, bool) {
	if c == nil {
		return Vulnerability{}, false
	}
	id := normalizeCVE(cveID)
	if c.index == nil {
		for _, v := range c.Vulnerabilities {
			if normalizeCVE(v.CVEID) == id {
				return v, true
			}
		}
		return Vulnerability{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Vulnerability{}, false
	}
	return c.Vulnerabilities[i], true
}

// RecentlyAdded lists entries whose dateAdded is after since.
func (c *Catalog) RecentlyAdded(since time.Time) []Vulnerability {
	if c == nil {
		return nil
	}
	var out []Vulnerability
	for _, v := range c.Vulnerabilities {
		if added, ok := v.Added(); ok && added.After(since) {
			out = append(out, v)
		}
	}
	return out
}
