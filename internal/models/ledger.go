package models

import "time"

type LedgerAccount struct {
	Address   string    `gorm:"type:varchar(64);primaryKey"`
	Balance   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

// LedgerEntry is an append-only journal line for one transfer.
type LedgerEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	FromAddress string `gorm:"type:varchar(64);not null;index"`
	ToAddress   string `gorm:"type:varchar(64);not null;index"`
	Amount      int64  `gorm:"not null"`

	// Reason is a short machine tag such as "match_stake" or "payout_winner".
	Reason string `gorm:"type:varchar(32);not null;index"`
	Ref    string `gorm:"type:varchar(64);index"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
