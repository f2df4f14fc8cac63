package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdminAction is the audit trail of governance operations.
type AdminAction struct {
	ID            string         `gorm:"type:varchar(36);primaryKey"`
	Action        string         `gorm:"type:varchar(48);not null;index"`
	Signers       datatypes.JSON `gorm:"type:jsonb;not null"`
	Details       datatypes.JSON `gorm:"type:jsonb"`
	ConfigVersion int64          `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"type:timestamptz;not null;index"`
}

func (AdminAction) TableName() string {
	return "admin_actions"
}

const (
	AlertInfo     = "info"
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

type SystemAlert struct {
	ID             string     `gorm:"type:varchar(36);primaryKey"`
	Level          string     `gorm:"type:varchar(16);not null;index"`
	Message        string     `gorm:"type:text;not null"`
	Acknowledged   bool       `gorm:"not null;default:false;index"`
	AcknowledgedBy *string    `gorm:"type:varchar(64)"`
	AcknowledgedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null;index"`
}

func (SystemAlert) TableName() string {
	return "system_alerts"
}
