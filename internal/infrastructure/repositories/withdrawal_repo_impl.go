package repositories

import (
	"context"
	"errors"
	"fmt"
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

type withdrawalRepo struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) domainrepos.WithdrawalRepository {
	return &withdrawalRepo{db: db}
}

func (r *withdrawalRepo) Create(ctx context.Context, w *entities.WithdrawalRequest) error {
	if w.ID == uuid.Nil {
		w.ID = utils.GenerateUUIDv7()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.UpdatedAt = w.CreatedAt
	return GetDB(ctx, r.db).Create(&models.WithdrawalRequest{
		ID:                w.ID,
		WalletID:          w.WalletID,
		Amount:            w.Amount,
		Status:            string(w.Status),
		BankAccountMasked: w.BankAccountMasked,
		DebitEntryID:      w.DebitEntryID,
		ExternalReference: w.ExternalReference.Ptr(),
		FailureReason:     w.FailureReason.Ptr(),
		ResolvedAt:        w.ResolvedAt.Ptr(),
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}).Error
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error) {
	var m models.WithdrawalRequest
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toWithdrawalEntity(&m), nil
}

func (r *withdrawalRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.WithdrawalRequest, error) {
	var rows []models.WithdrawalRequest
	err := GetDB(ctx, r.db).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]*entities.WithdrawalRequest, 0, len(rows))
	for i := range rows {
		items = append(items, toWithdrawalEntity(&rows[i]))
	}
	return items, nil
}

func (r *withdrawalRepo) Resolve(ctx context.Context, id uuid.UUID, status entities.WithdrawalStatus, externalRef, failureReason string, at time.Time) error {
	updates := map[string]interface{}{
		"status":      string(status),
		"resolved_at": at,
		"updated_at":  at,
	}
	if externalRef != "" {
		updates["external_reference"] = externalRef
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	result := GetDB(ctx, r.db).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, string(entities.WithdrawalPending)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: withdrawal already %s", domainerrors.ErrInvalidTransition, current.Status)
	}
	return nil
}

func toWithdrawalEntity(m *models.WithdrawalRequest) *entities.WithdrawalRequest {
	return &entities.WithdrawalRequest{
		ID:                m.ID,
		WalletID:          m.WalletID,
		Amount:            m.Amount,
		Status:            entities.WithdrawalStatus(m.Status),
		BankAccountMasked: m.BankAccountMasked,
		DebitEntryID:      m.DebitEntryID,
		ExternalReference: null.StringFromPtr(m.ExternalReference),
		FailureReason:     null.StringFromPtr(m.FailureReason),
		ResolvedAt:        null.TimeFromPtr(m.ResolvedAt),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
