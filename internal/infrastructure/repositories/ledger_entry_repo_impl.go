package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"settlement-core.backend/internal/domain/entities"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/models"
	"settlement-core.backend/pkg/utils"
)

type ledgerEntryRepo struct {
	db *gorm.DB
}

func NewLedgerEntryRepository(db *gorm.DB) domainrepos.LedgerEntryRepository {
	return &ledgerEntryRepo{db: db}
}

func (r *ledgerEntryRepo) Create(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = utils.GenerateUUIDv7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = entities.EntryStatusPosted
	}
	return GetDB(ctx, r.db).Create(&models.LedgerEntry{
		ID:           entry.ID,
		WalletID:     entry.WalletID,
		EntryType:    string(entry.Type),
		Bucket:       string(entry.Bucket),
		Category:     string(entry.Category),
		Amount:       entry.Amount,
		Description:  entry.Description,
		Reference:    entry.Reference,
		Status:       string(entry.Status),
		TransferID:   entry.TransferID.Ptr(),
		JobPaymentID: entry.JobPaymentID.Ptr(),
		WithdrawalID: entry.WithdrawalID.Ptr(),
		CreatedAt:    entry.CreatedAt,
	}).Error
}

type bucketSum struct {
	Bucket    string
	EntryType string
	Total     decimal.Decimal
}

// SumByBucket totals credits and debits per bucket. Sums are rounded back to
// money scale since some drivers aggregate numerics as floats.
func (r *ledgerEntryRepo) SumByBucket(ctx context.Context, walletID uuid.UUID) (*entities.BucketTotals, error) {
	var rows []bucketSum
	err := GetDB(ctx, r.db).Model(&models.LedgerEntry{}).
		Select("bucket, entry_type, COALESCE(SUM(amount), 0) AS total").
		Where("wallet_id = ?", walletID).
		Group("bucket, entry_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := &entities.BucketTotals{}
	for _, row := range rows {
		sum := entities.RoundMoney(row.Total)
		switch {
		case row.Bucket == string(entities.BucketAvailable) && row.EntryType == string(entities.EntryCredit):
			totals.AvailableCredits = sum
		case row.Bucket == string(entities.BucketAvailable) && row.EntryType == string(entities.EntryDebit):
			totals.AvailableDebits = sum
		case row.Bucket == string(entities.BucketLocked) && row.EntryType == string(entities.EntryCredit):
			totals.LockedCredits = sum
		case row.Bucket == string(entities.BucketLocked) && row.EntryType == string(entities.EntryDebit):
			totals.LockedDebits = sum
		}
	}
	return totals, nil
}

// ListByWallet returns newest entries first.
func (r *ledgerEntryRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error) {
	var rows []models.LedgerEntry
	var total int64

	query := GetDB(ctx, r.db).Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}
	if err := query.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toLedgerEntryEntities(rows), total, nil
}

func (r *ledgerEntryRepo) ListAllByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := GetDB(ctx, r.db).
		Where("wallet_id = ?", walletID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLedgerEntryEntities(rows), nil
}

func toLedgerEntryEntities(rows []models.LedgerEntry) []*entities.LedgerEntry {
	items := make([]*entities.LedgerEntry, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		items = append(items, &entities.LedgerEntry{
			ID:           m.ID,
			WalletID:     m.WalletID,
			Type:         entities.EntryType(m.EntryType),
			Bucket:       entities.Bucket(m.Bucket),
			Category:     entities.EntryCategory(m.Category),
			Amount:       m.Amount,
			Description:  m.Description,
			Reference:    m.Reference,
			Status:       entities.EntryStatus(m.Status),
			TransferID:   null.StringFromPtr(m.TransferID),
			JobPaymentID: null.StringFromPtr(m.JobPaymentID),
			WithdrawalID: null.StringFromPtr(m.WithdrawalID),
			CreatedAt:    m.CreatedAt,
		})
	}
	return items
}
