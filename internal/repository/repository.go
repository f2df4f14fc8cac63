package repository

import (
	"context"
	"time"

	"wagerescrow/internal/models"
)

// Tx is the set of reads and writes available inside a transaction. The
// ...ForUpdate reads lock the returned row until the transaction ends.
type Tx interface {
	GetPlatformConfigForUpdate(ctx context.Context) (*models.PlatformConfig, error)
	SavePlatformConfig(ctx context.Context, item *models.PlatformConfig) error

	GetMatchForUpdate(ctx context.Context, id string) (*models.Match, error)
	InsertMatch(ctx context.Context, item *models.Match) error
	SaveMatch(ctx context.Context, item *models.Match) error

	GetSessionVaultForUpdate(ctx context.Context, owner string) (*models.SessionVault, error)
	InsertSessionVault(ctx context.Context, item *models.SessionVault) error
	SaveSessionVault(ctx context.Context, item *models.SessionVault) error

	// LockLedgerAccount returns the account row, creating it with a zero
	// balance when missing.
	LockLedgerAccount(ctx context.Context, address string) (*models.LedgerAccount, error)
	SaveLedgerAccount(ctx context.Context, item *models.LedgerAccount) error
	InsertLedgerEntry(ctx context.Context, item *models.LedgerEntry) error

	InsertEventRecord(ctx context.Context, item *models.EventRecord) error
	InsertAdminAction(ctx context.Context, item *models.AdminAction) error
	InsertSystemAlert(ctx context.Context, item *models.SystemAlert) error
}

// Repository is the storage boundary of the settlement engine. InTx runs fn
// atomically: if fn returns an error nothing it wrote is kept.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error

	GetPlatformConfig(ctx context.Context) (*models.PlatformConfig, error)

	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context, params ListMatchesParams) ([]models.Match, error)
	CountMatches(ctx context.Context, params ListMatchesParams) (int64, error)
	ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.Match, error)
	ListUnarchivedMatches(ctx context.Context, params ListUnarchivedParams) ([]models.Match, error)
	MarkMatchesArchived(ctx context.Context, ids []string, at time.Time) error
	RecordArchiveFailures(ctx context.Context, ids []string, at time.Time) error

	GetSessionVault(ctx context.Context, owner string) (*models.SessionVault, error)

	GetLedgerBalance(ctx context.Context, address string) (int64, error)
	ListLedgerEntries(ctx context.Context, params ListLedgerEntriesParams) ([]models.LedgerEntry, error)

	ListEventRecords(ctx context.Context, params ListEventRecordsParams) ([]models.EventRecord, error)
	ListAdminActions(ctx context.Context, params ListAdminActionsParams) ([]models.AdminAction, error)
	ListSystemAlerts(ctx context.Context, params ListSystemAlertsParams) ([]models.SystemAlert, error)
	AcknowledgeSystemAlert(ctx context.Context, id string, by string, at time.Time) (*models.SystemAlert, error)

	GetPlatformStats(ctx context.Context) (PlatformStats, error)
}

// ListUnarchivedParams selects terminal matches still waiting for export.
// Rows whose last failed attempt is not before RetryBefore are skipped, as are
// rows with MaxAttempts or more failures. Fewer failures sort first.
type ListUnarchivedParams struct {
	Limit       int
	MaxAttempts int
	RetryBefore time.Time
}

type ListMatchesParams struct {
	Limit   int
	Offset  int
	Status  *models.MatchStatus
	Creator *string
	// Player matches either side of the wager.
	Player  *string
	GameID  *string
	OrderBy string
	Asc     *bool
}

type ListLedgerEntriesParams struct {
	Limit   int
	Offset  int
	Address *string
	Ref     *string
}

type ListEventRecordsParams struct {
	Limit  int
	Offset int
	Name   *string
	Ref    *string
	Since  *time.Time
}

type ListAdminActionsParams struct {
	Limit  int
	Offset int
	Action *string
}

type ListSystemAlertsParams struct {
	Limit        int
	Offset       int
	Level        *string
	Acknowledged *bool
}

// PlatformStats aggregates dashboard figures that are not kept as counters on
// the platform config.
type PlatformStats struct {
	OpenMatches       int64 `json:"open_matches"`
	CompletedMatches  int64 `json:"completed_matches"`
	RefundedMatches   int64 `json:"refunded_matches"`
	PlatformRevenue   int64 `json:"platform_revenue"`
	ResidualHeld      int64 `json:"residual_held"`
	ActiveVaults      int64 `json:"active_vaults"`
	TotalVaultBalance int64 `json:"total_vault_balance"`
}
