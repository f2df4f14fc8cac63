package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wagerescrow/internal/models"
)

// txStore implements repository.Tx on top of a gorm transaction. Reads that
// precede a mutation take row locks so concurrent operations on the same
// match, vault or account serialize.
type txStore struct {
	db *gorm.DB
}

func (t *txStore) locked(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *txStore) GetPlatformConfigForUpdate(ctx context.Context) (*models.PlatformConfig, error) {
	var item models.PlatformConfig
	err := t.locked(ctx).Where("key = ?", models.PlatformConfigKey).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *txStore) SavePlatformConfig(ctx context.Context, item *models.PlatformConfig) error {
	if item == nil {
		return nil
	}
	item.Key = models.PlatformConfigKey
	return t.db.WithContext(ctx).Save(item).Error
}

func (t *txStore) GetMatchForUpdate(ctx context.Context, id string) (*models.Match, error) {
	var item models.Match
	err := t.locked(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *txStore) InsertMatch(ctx context.Context, item *models.Match) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}

func (t *txStore) SaveMatch(ctx context.Context, item *models.Match) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Save(item).Error
}

func (t *txStore) GetSessionVaultForUpdate(ctx context.Context, owner string) (*models.SessionVault, error) {
	var item models.SessionVault
	err := t.locked(ctx).Where("owner = ?", owner).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *txStore) InsertSessionVault(ctx context.Context, item *models.SessionVault) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}

func (t *txStore) SaveSessionVault(ctx context.Context, item *models.SessionVault) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Save(item).Error
}

func (t *txStore) LockLedgerAccount(ctx context.Context, address string) (*models.LedgerAccount, error) {
	seed := models.LedgerAccount{Address: address}
	if err := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var item models.LedgerAccount
	if err := t.locked(ctx).Where("address = ?", address).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *txStore) SaveLedgerAccount(ctx context.Context, item *models.LedgerAccount) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).
		Model(&models.LedgerAccount{}).
		Where("address = ?", item.Address).
		Update("balance", item.Balance).Error
}

func (t *txStore) InsertLedgerEntry(ctx context.Context, item *models.LedgerEntry) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}

func (t *txStore) InsertEventRecord(ctx context.Context, item *models.EventRecord) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}

func (t *txStore) InsertAdminAction(ctx context.Context, item *models.AdminAction) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}

func (t *txStore) InsertSystemAlert(ctx context.Context, item *models.SystemAlert) error {
	if item == nil {
		return nil
	}
	return t.db.WithContext(ctx).Create(item).Error
}
