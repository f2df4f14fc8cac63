package models

import "time"

// PlatformConfigKey is the primary key of the singleton platform config row.
const PlatformConfigKey = "config"

// PlatformConfig is the process-wide settlement configuration. Only governance
// operations mutate it after bootstrap; every mutation bumps Version.
type PlatformConfig struct {
	Key string `gorm:"type:varchar(16);primaryKey"`

	Treasury     string `gorm:"type:varchar(64);not null"`
	ReferralPool string `gorm:"type:varchar(64);not null"`
	Verifier     string `gorm:"type:varchar(64);not null"`

	Admin1 string `gorm:"type:varchar(64);not null"`
	Admin2 string `gorm:"type:varchar(64);not null"`
	Admin3 string `gorm:"type:varchar(64);not null"`

	PlatformFeeBps int64 `gorm:"not null"`
	TreasuryFeeBps int64 `gorm:"not null"`
	ReferralFeeBps int64 `gorm:"not null"`

	IsPaused     bool  `gorm:"not null;default:false"`
	TotalMatches int64 `gorm:"not null;default:0"`
	TotalVolume  int64 `gorm:"not null;default:0"`
	Version      int64 `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (PlatformConfig) TableName() string {
	return "platform_configs"
}

func (c PlatformConfig) AdminSigners() []string {
	return []string{c.Admin1, c.Admin2, c.Admin3}
}
