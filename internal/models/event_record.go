package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord persists every notification emitted by a committed operation.
type EventRecord struct {
	ID      string         `gorm:"type:varchar(36);primaryKey"`
	Name    string         `gorm:"type:varchar(48);not null;index"`
	Ref     string         `gorm:"type:varchar(64);index"`
	Payload datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (EventRecord) TableName() string {
	return "event_records"
}
