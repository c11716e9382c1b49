package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/models"
	"settlement-core.backend/pkg/utils"
)

type settlementRepo struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) domainrepos.SettlementRepository {
	return &settlementRepo{db: db}
}

func (r *settlementRepo) Create(ctx context.Context, s *entities.Settlement) error {
	if s.ID == uuid.Nil {
		s.ID = utils.GenerateUUIDv7()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.UpdatedAt = s.CreatedAt
	if s.Version == 0 {
		s.Version = 1
	}

	err := GetDB(ctx, r.db).Create(fromSettlementEntity(s)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainerrors.ErrAlreadyExists
	}
	return err
}

func (r *settlementRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Settlement, error) {
	return r.first(GetDB(ctx, r.db).Where("id = ?", id))
}

func (r *settlementRepo) GetBySellerPeriod(ctx context.Context, sellerID, period string) (*entities.Settlement, error) {
	return r.first(GetDB(ctx, r.db).Where("seller_id = ? AND period = ?", sellerID, period))
}

func (r *settlementRepo) first(query *gorm.DB) (*entities.Settlement, error) {
	var m models.Settlement
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toSettlementEntity(&m), nil
}

func (r *settlementRepo) List(ctx context.Context, filter entities.SettlementFilter, pagination utils.PaginationParams) ([]*entities.Settlement, int64, error) {
	var rows []models.Settlement
	var total int64

	query := GetDB(ctx, r.db).Model(&models.Settlement{})
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}
	if err := query.Order("period_start DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*entities.Settlement, 0, len(rows))
	for i := range rows {
		items = append(items, toSettlementEntity(&rows[i]))
	}
	return items, total, nil
}

func (r *settlementRepo) CompareAndSwap(ctx context.Context, s *entities.Settlement, expectedVersion int) error {
	s.Recompute()
	now := time.Now().UTC()
	result := GetDB(ctx, r.db).Model(&models.Settlement{}).
		Where("id = ? AND version = ?", s.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":            string(s.Status),
			"total_sales":       s.TotalSales,
			"commission":        s.Commission,
			"deductions":        s.Deductions,
			"settlement_amount": s.SettlementAmount,
			"hold_reason":       s.HoldReason.Ptr(),
			"payment_reference": s.PaymentReference.Ptr(),
			"approved_at":       s.ApprovedAt.Ptr(),
			"paid_at":           s.PaidAt.Ptr(),
			"version":           expectedVersion + 1,
			"updated_at":        now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConcurrentUpdate
	}
	s.Version = expectedVersion + 1
	s.UpdatedAt = now
	return nil
}

func fromSettlementEntity(s *entities.Settlement) *models.Settlement {
	return &models.Settlement{
		ID:               s.ID,
		SellerID:         s.SellerID,
		Period:           s.Period,
		PeriodStart:      s.PeriodStart,
		PeriodEnd:        s.PeriodEnd,
		TotalSales:       s.TotalSales,
		Commission:       s.Commission,
		Deductions:       s.Deductions,
		SettlementAmount: s.SettlementAmount,
		SaleCount:        s.SaleCount,
		Status:           string(s.Status),
		Cycle:            s.Cycle,
		DueDate:          s.DueDate,
		HoldReason:       s.HoldReason.Ptr(),
		PaymentReference: s.PaymentReference.Ptr(),
		ApprovedAt:       s.ApprovedAt.Ptr(),
		PaidAt:           s.PaidAt.Ptr(),
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toSettlementEntity(m *models.Settlement) *entities.Settlement {
	return &entities.Settlement{
		ID:               m.ID,
		SellerID:         m.SellerID,
		Period:           m.Period,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		TotalSales:       m.TotalSales,
		Commission:       m.Commission,
		Deductions:       m.Deductions,
		SettlementAmount: m.SettlementAmount,
		SaleCount:        m.SaleCount,
		Status:           entities.SettlementStatus(m.Status),
		Cycle:            m.Cycle,
		DueDate:          m.DueDate,
		HoldReason:       null.StringFromPtr(m.HoldReason),
		PaymentReference: null.StringFromPtr(m.PaymentReference),
		ApprovedAt:       null.TimeFromPtr(m.ApprovedAt),
		PaidAt:           null.TimeFromPtr(m.PaidAt),
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
