package models

import "gorm.io/gorm"

type AssetType string

const (
	AssetServer      AssetType = "server"
	AssetWorkstation AssetType = "workstation"
	AssetNetwork     AssetType = "network_device"
	AssetIoT         AssetType = "iot"
)

type Asset struct {
	gorm.Model
	Name      string    `gorm:"size:255;not null" json:"name"`
	Hostname  string    `gorm:"size:255" json:"hostname"`
	AssetType AssetType `gorm:"type:varchar(50);not null" json:"assetType"`
	// 1..10, 0 means unknown
	Criticality float64 `json:"criticality"`
	Exposed     bool    `json:"exposed"`
}

// Vulnerability found on an asset. Score is computed on read.
type Vulnerability struct {
	gorm.Model
	CVEID       string   `gorm:"size:32;index;not null" json:"cveId"`
	Title       string   `gorm:"size:255" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	CVSSScore   *float64 `json:"cvssScore,omitempty"`
	CVSSVector  string   `gorm:"size:255" json:"cvssVector,omitempty"`
	Status      string   `gorm:"size:32" json:"status"`

	AssetID uint  `json:"assetId"`
	Asset   Asset `json:"asset"`
}
