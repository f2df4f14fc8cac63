package models

import "time"

type MatchStatus string

const (
	MatchWaitingForPlayer MatchStatus = "waiting_for_player"
	MatchInProgress       MatchStatus = "in_progress"
	MatchCompleted        MatchStatus = "completed"
	MatchCancelled        MatchStatus = "cancelled"
	MatchRefunded         MatchStatus = "refunded"
)

func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchRefunded
}

// Match is one wager between a creator and (once joined) a joiner. Its escrow
// lives in the ledger under Escrow.
type Match struct {
	ID     string `gorm:"type:varchar(64);primaryKey"`
	GameID string `gorm:"type:varchar(64);not null;index"`
	Escrow string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Creator string  `gorm:"type:varchar(64);not null;index"`
	Joiner  *string `gorm:"type:varchar(64);index"`

	WagerAmount int64 `gorm:"not null"`
	TotalPot    int64 `gorm:"not null"`

	CreatorFunding string  `gorm:"type:varchar(16);not null"`
	JoinerFunding  *string `gorm:"type:varchar(16)"`

	Status     MatchStatus `gorm:"type:varchar(24);not null;index"`
	Winner     *string     `gorm:"type:varchar(64);index"`
	ResultHash *string     `gorm:"type:varchar(64)"`

	// Settlement breakdown, populated on completion.
	PlatformFee  int64 `gorm:"not null;default:0"`
	TreasuryFee  int64 `gorm:"not null;default:0"`
	ReferralFee  int64 `gorm:"not null;default:0"`
	WinnerAmount int64 `gorm:"not null;default:0"`
	Residual     int64 `gorm:"not null;default:0"`
	RefundAmount int64 `gorm:"not null;default:0"`

	ExpiryTime time.Time  `gorm:"type:timestamptz;not null;index"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;not null"`
	SettledAt  *time.Time `gorm:"type:timestamptz"`
	ArchivedAt *time.Time `gorm:"type:timestamptz;index"`

	// Failed uploads back off: a row is retried after RetryBefore and dropped
	// from the queue once ArchiveAttempts reaches the archiver's cap.
	ArchiveAttempts    int        `gorm:"not null;default:0"`
	LastArchiveAttempt *time.Time `gorm:"type:timestamptz"`
}

func (Match) TableName() string {
	return "matches"
}

// Participants counts creator plus joiner when present.
func (m Match) Participants() int64 {
	if m.Joiner != nil && *m.Joiner != "" {
		return 2
	}
	return 1
}
