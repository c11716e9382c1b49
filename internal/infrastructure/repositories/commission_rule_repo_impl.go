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

// emptyScopeSQL matches rules with no scope field set.
const emptyScopeSQL = "(job_type IS NULL OR job_type = '') AND (city IS NULL OR city = '') AND " +
	"(region IS NULL OR region = '') AND (dealer_id IS NULL OR dealer_id = '') AND " +
	"(service_category_id IS NULL OR service_category_id = '') AND " +
	"(service_sub_category_id IS NULL OR service_sub_category_id = '')"

type commissionRuleRepo struct {
	db *gorm.DB
}

func NewCommissionRuleRepository(db *gorm.DB) domainrepos.CommissionRuleRepository {
	return &commissionRuleRepo{db: db}
}

func (r *commissionRuleRepo) Create(ctx context.Context, rule *entities.CommissionRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = utils.GenerateUUIDv7()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = rule.CreatedAt
	return GetDB(ctx, r.db).Create(fromCommissionRuleEntity(rule)).Error
}

func (r *commissionRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error) {
	var m models.CommissionRule
	err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toCommissionRuleEntity(&m), nil
}

func (r *commissionRuleRepo) List(ctx context.Context, activeOnly bool, pagination utils.PaginationParams) ([]*entities.CommissionRule, int64, error) {
	var rows []models.CommissionRule
	var total int64

	query := GetDB(ctx, r.db).Model(&models.CommissionRule{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}
	if err := query.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*entities.CommissionRule, 0, len(rows))
	for i := range rows {
		items = append(items, toCommissionRuleEntity(&rows[i]))
	}
	return items, total, nil
}

func (r *commissionRuleRepo) ListEffective(ctx context.Context, at time.Time) ([]*entities.CommissionRule, error) {
	var rows []models.CommissionRule
	err := GetDB(ctx, r.db).
		Where("is_active = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", true, at, at).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]*entities.CommissionRule, 0, len(rows))
	for i := range rows {
		items = append(items, toCommissionRuleEntity(&rows[i]))
	}
	return items, nil
}

func (r *commissionRuleRepo) DeactivateDefaults(ctx context.Context, keepID uuid.UUID, at time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&models.CommissionRule{}).
		Where("is_active = ? AND id <> ?", true, keepID).
		Where(emptyScopeSQL).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": at,
			"updated_at":     at,
		})
	return result.RowsAffected, result.Error
}

func (r *commissionRuleRepo) EndDefaults(ctx context.Context, keepID uuid.UUID, endAt, at time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&models.CommissionRule{}).
		Where("is_active = ? AND id <> ?", true, keepID).
		Where(emptyScopeSQL).
		Where("(effective_to IS NULL OR effective_to > ?)", endAt).
		Updates(map[string]interface{}{
			"effective_to": endAt,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// Deactivate is idempotent on already inactive rules.
func (r *commissionRuleRepo) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := GetDB(ctx, r.db).Model(&models.CommissionRule{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

func fromCommissionRuleEntity(rule *entities.CommissionRule) *models.CommissionRule {
	return &models.CommissionRule{
		ID:                   rule.ID,
		CommissionType:       string(rule.Type),
		CommissionValue:      rule.Value,
		JobType:              rule.Scope.JobType.Ptr(),
		City:                 rule.Scope.City.Ptr(),
		Region:               rule.Scope.Region.Ptr(),
		DealerID:             rule.Scope.DealerID.Ptr(),
		ServiceCategoryID:    rule.Scope.ServiceCategoryID.Ptr(),
		ServiceSubCategoryID: rule.Scope.ServiceSubCategoryID.Ptr(),
		EffectiveFrom:        rule.EffectiveFrom,
		EffectiveTo:          rule.EffectiveTo.Ptr(),
		IsActive:             rule.IsActive,
		CreatedBy:            rule.CreatedBy,
		Notes:                rule.Notes.Ptr(),
		DeactivatedAt:        rule.DeactivatedAt.Ptr(),
		CreatedAt:            rule.CreatedAt,
		UpdatedAt:            rule.UpdatedAt,
	}
}

func toCommissionRuleEntity(m *models.CommissionRule) *entities.CommissionRule {
	return &entities.CommissionRule{
		ID:    m.ID,
		Type:  entities.CommissionType(m.CommissionType),
		Value: m.CommissionValue,
		Scope: entities.RuleScope{
			JobType:              null.StringFromPtr(m.JobType),
			City:                 null.StringFromPtr(m.City),
			Region:               null.StringFromPtr(m.Region),
			DealerID:             null.StringFromPtr(m.DealerID),
			ServiceCategoryID:    null.StringFromPtr(m.ServiceCategoryID),
			ServiceSubCategoryID: null.StringFromPtr(m.ServiceSubCategoryID),
		},
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   null.TimeFromPtr(m.EffectiveTo),
		IsActive:      m.IsActive,
		CreatedBy:     m.CreatedBy,
		Notes:         null.StringFromPtr(m.Notes),
		DeactivatedAt: null.TimeFromPtr(m.DeactivatedAt),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
