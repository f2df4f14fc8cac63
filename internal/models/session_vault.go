package models

import "time"

// SessionVault is a user's prepaid balance. Funds are held by the ledger
// account in Account; Balance mirrors it.
type SessionVault struct {
	Owner   string `gorm:"type:varchar(64);primaryKey"`
	Account string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Balance        int64 `gorm:"not null;default:0"`
	TotalDeposited int64 `gorm:"not null;default:0"`
	TotalWithdrawn int64 `gorm:"not null;default:0"`
	MatchesPlayed  int64 `gorm:"not null;default:0"`

	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
	LastActivity time.Time `gorm:"type:timestamptz;not null;index"`
}

func (SessionVault) TableName() string {
	return "session_vaults"
}
