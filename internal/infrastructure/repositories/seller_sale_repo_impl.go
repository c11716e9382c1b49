package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/models"
)

type sellerSaleRepo struct {
	db *gorm.DB
}

func NewSellerSaleRepository(db *gorm.DB) domainrepos.SellerSaleRepository {
	return &sellerSaleRepo{db: db}
}

// ListUnsettled returns untagged sales with start <= soldAt < end. Inside a
// transaction the rows stay locked until it ends.
func (r *sellerSaleRepo) ListUnsettled(ctx context.Context, sellerID string, start, end time.Time) ([]*entities.SellerSale, error) {
	var rows []models.SellerSale
	err := GetDB(withLock(ctx), r.db).
		Where("seller_id = ? AND settlement_id IS NULL AND sold_at >= ? AND sold_at < ?", sellerID, start, end).
		Order("sold_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]*entities.SellerSale, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		items = append(items, &entities.SellerSale{
			ID:               m.ID,
			SellerID:         m.SellerID,
			OrderNumber:      m.OrderNumber,
			Amount:           m.Amount,
			CommissionAmount: m.CommissionAmount,
			DeductionAmount:  m.DeductionAmount,
			SoldAt:           m.SoldAt,
			SettlementID:     null.StringFromPtr(m.SettlementID),
		})
	}
	return items, nil
}

func (r *sellerSaleRepo) ListSellersWithUnsettled(ctx context.Context, start, end time.Time) ([]string, error) {
	var sellers []string
	err := GetDB(ctx, r.db).Model(&models.SellerSale{}).
		Where("settlement_id IS NULL AND sold_at >= ? AND sold_at < ?", start, end).
		Distinct().
		Order("seller_id ASC").
		Pluck("seller_id", &sellers).Error
	return sellers, err
}

func (r *sellerSaleRepo) MarkSettled(ctx context.Context, saleIDs []uuid.UUID, settlementID uuid.UUID) error {
	if len(saleIDs) == 0 {
		return nil
	}
	result := GetDB(ctx, r.db).Model(&models.SellerSale{}).
		Where("id IN ? AND settlement_id IS NULL", saleIDs).
		Update("settlement_id", settlementID.String())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(saleIDs)) {
		return domainerrors.ErrConcurrentUpdate
	}
	return nil
}
