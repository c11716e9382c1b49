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

type jobPaymentRepo struct {
	db *gorm.DB
}

func NewJobPaymentRepository(db *gorm.DB) domainrepos.JobPaymentRepository {
	return &jobPaymentRepo{db: db}
}

func (r *jobPaymentRepo) Create(ctx context.Context, p *entities.JobPayment) error {
	if p.ID == uuid.Nil {
		p.ID = utils.GenerateUUIDv7()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	err := GetDB(ctx, r.db).Create(&models.JobPayment{
		ID:               p.ID,
		JobID:            p.JobID,
		WalletID:         p.WalletID,
		GrossAmount:      p.GrossAmount,
		CommissionAmount: p.CommissionAmount,
		CommissionRuleID: p.CommissionRuleID.Ptr(),
		ImmediatePayment: p.ImmediatePayment,
		HoldAmount:       p.HoldAmount,
		WarrantyEndDate:  p.WarrantyEndDate.Ptr(),
		Status:           string(p.Status),
		ReleasedAt:       p.ReleasedAt.Ptr(),
		ReleaseReason:    p.ReleaseReason.Ptr(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainerrors.ErrAlreadyExists
	}
	return err
}

func (r *jobPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.JobPayment, error) {
	return r.first(GetDB(ctx, r.db).Where("id = ?", id))
}

func (r *jobPaymentRepo) GetByJobID(ctx context.Context, jobID string) (*entities.JobPayment, error) {
	return r.first(GetDB(ctx, r.db).Where("job_id = ?", jobID))
}

func (r *jobPaymentRepo) first(query *gorm.DB) (*entities.JobPayment, error) {
	var m models.JobPayment
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toJobPaymentEntity(&m), nil
}

func (r *jobPaymentRepo) MarkReleased(ctx context.Context, id uuid.UUID, reason entities.ReleaseReason, at time.Time) error {
	result := GetDB(ctx, r.db).Model(&models.JobPayment{}).
		Where("id = ? AND status = ?", id, string(entities.JobPaymentLocked)).
		Updates(map[string]interface{}{
			"status":         string(entities.JobPaymentPaid),
			"released_at":    at,
			"release_reason": string(reason),
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domainerrors.ErrHoldAlreadyReleased
	}
	return nil
}

// ListReleasable leaves out jobs with an open dispute so they cannot crowd
// releasable holds out of a page.
func (r *jobPaymentRepo) ListReleasable(ctx context.Context, cutoff time.Time, after *entities.ReleaseCursor, limit int) ([]*entities.JobPayment, error) {
	var rows []models.JobPayment
	query := GetDB(ctx, r.db).
		Where("status = ? AND warranty_end_date IS NOT NULL AND warranty_end_date <= ?", string(entities.JobPaymentLocked), cutoff).
		Where("NOT EXISTS (SELECT 1 FROM job_disputes d WHERE d.job_id = job_payments.job_id AND d.status IN ?)", openDisputeStatuses).
		Order("warranty_end_date ASC, id ASC")
	if after != nil {
		query = query.Where("(warranty_end_date > ? OR (warranty_end_date = ? AND id > ?))",
			after.WarrantyEndDate, after.WarrantyEndDate, after.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]*entities.JobPayment, 0, len(rows))
	for i := range rows {
		items = append(items, toJobPaymentEntity(&rows[i]))
	}
	return items, nil
}

func toJobPaymentEntity(m *models.JobPayment) *entities.JobPayment {
	return &entities.JobPayment{
		ID:               m.ID,
		JobID:            m.JobID,
		WalletID:         m.WalletID,
		GrossAmount:      m.GrossAmount,
		CommissionAmount: m.CommissionAmount,
		CommissionRuleID: null.StringFromPtr(m.CommissionRuleID),
		ImmediatePayment: m.ImmediatePayment,
		HoldAmount:       m.HoldAmount,
		WarrantyEndDate:  null.TimeFromPtr(m.WarrantyEndDate),
		Status:           entities.JobPaymentStatus(m.Status),
		ReleasedAt:       null.TimeFromPtr(m.ReleasedAt),
		ReleaseReason:    null.StringFromPtr(m.ReleaseReason),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
