package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if s == nil || s.db == nil {
		return errors.New("store unavailable")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store unavailable")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// --- platform config ---------------------------------------------------------

func (s *Store) GetPlatformConfig(ctx context.Context) (*models.PlatformConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PlatformConfig
	err := s.db.WithContext(ctx).Where("key = ?", models.PlatformConfigKey).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- matches -----------------------------------------------------------------

func (s *Store) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Match
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]models.Match, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyMatchFilters(s.db.WithContext(ctx).Model(&models.Match{}), params)
	query = applyOrder(query, matchOrderColumn(params.OrderBy), params.Asc, "created_at")
	var items []models.Match
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMatches(ctx context.Context, params repository.ListMatchesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applyMatchFilters(s.db.WithContext(ctx).Model(&models.Match{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.Match, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Match
	err := s.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("status IN ?", []models.MatchStatus{models.MatchWaitingForPlayer, models.MatchInProgress, models.MatchCancelled}).
		Where("expiry_time < ?", now).
		Order("expiry_time asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUnarchivedMatches(ctx context.Context, params repository.ListUnarchivedParams) ([]models.Match, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Match
	query := s.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("status IN ?", []models.MatchStatus{models.MatchCompleted, models.MatchRefunded}).
		Where("archived_at IS NULL")
	if params.MaxAttempts > 0 {
		query = query.Where("archive_attempts < ?", params.MaxAttempts)
	}
	if !params.RetryBefore.IsZero() {
		query = query.Where("last_archive_attempt IS NULL OR last_archive_attempt < ?", params.RetryBefore)
	}
	err := query.
		Order("archive_attempts asc").
		Order("updated_at asc").
		Limit(normalizeLimit(params.Limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkMatchesArchived(ctx context.Context, ids []string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("id IN ?", ids).
		Update("archived_at", at).Error
}

func (s *Store) RecordArchiveFailures(ctx context.Context, ids []string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"archive_attempts":     gorm.Expr("archive_attempts + 1"),
			"last_archive_attempt": at,
		}).Error
}

func applyMatchFilters(query *gorm.DB, params repository.ListMatchesParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(string(*params.Status)) != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Creator != nil && strings.TrimSpace(*params.Creator) != "" {
		query = query.Where("creator = ?", strings.TrimSpace(*params.Creator))
	}
	if params.Player != nil && strings.TrimSpace(*params.Player) != "" {
		p := strings.TrimSpace(*params.Player)
		query = query.Where("creator = ? OR joiner = ?", p, p)
	}
	if params.GameID != nil && strings.TrimSpace(*params.GameID) != "" {
		query = query.Where("game_id = ?", strings.TrimSpace(*params.GameID))
	}
	return query
}

func matchOrderColumn(orderBy string) string {
	switch strings.TrimSpace(orderBy) {
	case "expiry_time", "wager_amount", "total_pot", "updated_at", "created_at":
		return orderBy
	default:
		return ""
	}
}

// --- session vaults ----------------------------------------------------------

func (s *Store) GetSessionVault(ctx context.Context, owner string) (*models.SessionVault, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SessionVault
	err := s.db.WithContext(ctx).Where("owner = ?", strings.TrimSpace(owner)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- ledger ------------------------------------------------------------------

func (s *Store) GetLedgerBalance(ctx context.Context, address string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var item models.LedgerAccount
	err := s.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(address)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return item.Balance, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, params repository.ListLedgerEntriesParams) ([]models.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if params.Address != nil && strings.TrimSpace(*params.Address) != "" {
		a := strings.TrimSpace(*params.Address)
		query = query.Where("from_address = ? OR to_address = ?", a, a)
	}
	if params.Ref != nil && strings.TrimSpace(*params.Ref) != "" {
		query = query.Where("ref = ?", strings.TrimSpace(*params.Ref))
	}
	var items []models.LedgerEntry
	err := query.Order("id desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- events, audit, alerts ---------------------------------------------------

func (s *Store) ListEventRecords(ctx context.Context, params repository.ListEventRecordsParams) ([]models.EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.EventRecord{})
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name = ?", strings.TrimSpace(*params.Name))
	}
	if params.Ref != nil && strings.TrimSpace(*params.Ref) != "" {
		query = query.Where("ref = ?", strings.TrimSpace(*params.Ref))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	var items []models.EventRecord
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAdminActions(ctx context.Context, params repository.ListAdminActionsParams) ([]models.AdminAction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AdminAction{})
	if params.Action != nil && strings.TrimSpace(*params.Action) != "" {
		query = query.Where("action = ?", strings.TrimSpace(*params.Action))
	}
	var items []models.AdminAction
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSystemAlerts(ctx context.Context, params repository.ListSystemAlertsParams) ([]models.SystemAlert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemAlert{})
	if params.Level != nil && strings.TrimSpace(*params.Level) != "" {
		query = query.Where("level = ?", strings.TrimSpace(*params.Level))
	}
	if params.Acknowledged != nil {
		query = query.Where("acknowledged = ?", *params.Acknowledged)
	}
	var items []models.SystemAlert
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 20)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AcknowledgeSystemAlert(ctx context.Context, id string, by string, at time.Time) (*models.SystemAlert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var out *models.SystemAlert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.SystemAlert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !item.Acknowledged {
			item.Acknowledged = true
			item.AcknowledgedBy = &by
			item.AcknowledgedAt = &at
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		}
		out = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- stats -------------------------------------------------------------------

func (s *Store) GetPlatformStats(ctx context.Context) (repository.PlatformStats, error) {
	var out repository.PlatformStats
	if s == nil || s.db == nil {
		return out, nil
	}
	db := s.db.WithContext(ctx)

	type statusRow struct {
		Status models.MatchStatus
		N      int64
	}
	var rows []statusRow
	if err := db.Model(&models.Match{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return out, err
	}
	for _, r := range rows {
		switch r.Status {
		case models.MatchWaitingForPlayer, models.MatchInProgress, models.MatchCancelled:
			out.OpenMatches += r.N
		case models.MatchCompleted:
			out.CompletedMatches = r.N
		case models.MatchRefunded:
			out.RefundedMatches = r.N
		}
	}

	var fees struct {
		Revenue  int64
		Residual int64
	}
	if err := db.Model(&models.Match{}).
		Select("coalesce(sum(treasury_fee + referral_fee), 0) as revenue, coalesce(sum(residual), 0) as residual").
		Where("status = ?", models.MatchCompleted).
		Scan(&fees).Error; err != nil {
		return out, err
	}
	out.PlatformRevenue = fees.Revenue
	out.ResidualHeld = fees.Residual

	var vaults struct {
		Active  int64
		Balance int64
	}
	if err := db.Model(&models.SessionVault{}).
		Select("count(*) filter (where balance > 0) as active, coalesce(sum(balance), 0) as balance").
		Scan(&vaults).Error; err != nil {
		return out, err
	}
	out.ActiveVaults = vaults.Active
	out.TotalVaultBalance = vaults.Balance
	return out, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
