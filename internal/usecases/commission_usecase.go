package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/metrics"
	"settlement-core.backend/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// CommissionUsecase resolves and administers commission rules
type CommissionUsecase struct {
	ruleRepo repositories.CommissionRuleRepository
	uow      repositories.UnitOfWork
	now      func() time.Time
}

// NewCommissionUsecase creates a new commission usecase
func NewCommissionUsecase(ruleRepo repositories.CommissionRuleRepository, uow repositories.UnitOfWork) *CommissionUsecase {
	return &CommissionUsecase{
		ruleRepo: ruleRepo,
		uow:      uow,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (u *CommissionUsecase) WithClock(now func() time.Time) *CommissionUsecase {
	u.now = now
	return u
}

// SelectRule picks the single applicable rule for c among rules at instant at.
// Lower tiers win; within a tier the newest rule wins, then the greater id.
func SelectRule(rules []*entities.CommissionRule, c entities.CommissionContext, at time.Time) *entities.CommissionRule {
	var best *entities.CommissionRule
	bestTier := 0
	for _, rule := range rules {
		if rule == nil || !rule.IsEffective(at) || !rule.Scope.Matches(c) {
			continue
		}
		tier := rule.Scope.Kind().Tier()
		if best == nil || tier < bestTier || (tier == bestTier && newerRule(rule, best)) {
			best = rule
			bestTier = tier
		}
	}
	return best
}

func newerRule(a, b *entities.CommissionRule) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// Resolve finds the applicable rule for c. CommissionAmount is filled when c carries a gross amount.
func (u *CommissionUsecase) Resolve(ctx context.Context, c entities.CommissionContext) (*entities.CommissionResolution, error) {
	if c.GrossAmount.IsNegative() {
		return nil, fmt.Errorf("%w: gross amount must not be negative", domainerrors.ErrInvalidInput)
	}

	at := u.now().UTC()
	rules, err := u.ruleRepo.ListEffective(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("load commission rules: %w", err)
	}

	rule := SelectRule(rules, c, at)
	if rule == nil {
		metrics.CommissionResolutions.WithLabelValues("none").Inc()
		logger.Warn(ctx, "No applicable commission rule",
			zap.String("dealer_id", c.DealerID),
			zap.String("service_category_id", c.ServiceCategoryID),
			zap.String("job_type", c.JobType),
		)
		return nil, domainerrors.ErrNoApplicableRule
	}
	if rule.Value.IsNegative() {
		return nil, fmt.Errorf("%w: rule %s has value %s", domainerrors.ErrInvalidCommissionValue, rule.ID, rule.Value)
	}

	kind := rule.Scope.Kind()
	metrics.CommissionResolutions.WithLabelValues(string(kind)).Inc()

	res := &entities.CommissionResolution{
		RuleID: rule.ID,
		Type:   rule.Type,
		Value:  rule.Value,
		Scope:  kind,
		Tier:   kind.Tier(),
	}
	if c.GrossAmount.IsPositive() {
		amount := rule.Compute(c.GrossAmount)
		res.CommissionAmount = &amount
	}
	return res, nil
}

// ValidateRuleInput checks a rule payload before it is stored.
func ValidateRuleInput(input *entities.CreateCommissionRuleInput) error {
	if input == nil {
		return fmt.Errorf("%w: missing payload", domainerrors.ErrInvalidInput)
	}
	if !input.Type.Valid() {
		return fmt.Errorf("%w: commissionType must be PERCENTAGE or FIXED", domainerrors.ErrInvalidInput)
	}
	if input.Value.IsNegative() {
		return fmt.Errorf("%w: commissionValue must not be negative", domainerrors.ErrInvalidCommissionValue)
	}
	if input.Type == entities.CommissionTypePercentage && input.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage commission cannot exceed 100", domainerrors.ErrInvalidCommissionValue)
	}
	if input.EffectiveFrom != nil && input.EffectiveTo != nil && input.EffectiveTo.Before(*input.EffectiveFrom) {
		return fmt.Errorf("%w: effectiveTo is before effectiveFrom", domainerrors.ErrInvalidInput)
	}
	return nil
}

func normalizeScope(s entities.RuleScope) entities.RuleScope {
	clean := func(v null.String) null.String {
		if !v.Valid || strings.TrimSpace(v.String) == "" {
			return null.String{}
		}
		return null.StringFrom(strings.TrimSpace(v.String))
	}
	return entities.RuleScope{
		JobType:              clean(s.JobType),
		City:                 clean(s.City),
		Region:               clean(s.Region),
		DealerID:             clean(s.DealerID),
		ServiceCategoryID:    clean(s.ServiceCategoryID),
		ServiceSubCategoryID: clean(s.ServiceSubCategoryID),
	}
}

// CreateRule stores a new active rule. A new default rule retires the previous
// defaults, or caps their window at its start when it begins in the future.
func (u *CommissionUsecase) CreateRule(ctx context.Context, input *entities.CreateCommissionRuleInput) (*entities.CommissionRule, error) {
	if err := ValidateRuleInput(input); err != nil {
		return nil, err
	}

	now := u.now().UTC()
	rule := &entities.CommissionRule{
		ID:            utils.GenerateUUIDv7(),
		Type:          input.Type,
		Value:         input.Value,
		Scope:         normalizeScope(input.Scope),
		EffectiveFrom: now,
		IsActive:      true,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.EffectiveFrom != nil {
		rule.EffectiveFrom = input.EffectiveFrom.UTC()
	}
	if input.EffectiveTo != nil {
		rule.EffectiveTo = null.TimeFrom(input.EffectiveTo.UTC())
	}
	if input.Notes != "" {
		rule.Notes = null.StringFrom(input.Notes)
	}

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.ruleRepo.Create(txCtx, rule); err != nil {
			return err
		}
		if !rule.Scope.IsEmpty() {
			return nil
		}
		if rule.EffectiveFrom.After(now) {
			ended, err := u.ruleRepo.EndDefaults(txCtx, rule.ID, rule.EffectiveFrom, now)
			if err != nil {
				return err
			}
			if ended > 0 {
				logger.Info(txCtx, "Capped previous default commission rules",
					zap.Int64("count", ended),
					zap.Time("effective_to", rule.EffectiveFrom))
			}
			return nil
		}
		retired, err := u.ruleRepo.DeactivateDefaults(txCtx, rule.ID, now)
		if err != nil {
			return err
		}
		if retired > 0 {
			logger.Info(txCtx, "Retired previous default commission rules", zap.Int64("count", retired))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create commission rule: %w", err)
	}

	logger.Info(ctx, "Commission rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("scope", string(rule.Scope.Kind())),
		zap.String("created_by", rule.CreatedBy),
	)
	return rule, nil
}

// SeedRules creates each rule in order and stops at the first failure.
func (u *CommissionUsecase) SeedRules(ctx context.Context, inputs []*entities.CreateCommissionRuleInput) (int, error) {
	created := 0
	for i, input := range inputs {
		if _, err := u.CreateRule(ctx, input); err != nil {
			return created, fmt.Errorf("rule #%d: %w", i+1, err)
		}
		created++
	}
	return created, nil
}

func (u *CommissionUsecase) GetRule(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error) {
	return u.ruleRepo.GetByID(ctx, id)
}

func (u *CommissionUsecase) ListRules(ctx context.Context, activeOnly bool, pagination utils.PaginationParams) ([]*entities.CommissionRule, int64, error) {
	return u.ruleRepo.List(ctx, activeOnly, pagination)
}

// DeactivateRule retires a rule. Rules are never deleted.
func (u *CommissionUsecase) DeactivateRule(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error) {
	if err := u.ruleRepo.Deactivate(ctx, id, u.now().UTC()); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Commission rule deactivated", zap.String("rule_id", id.String()))
	return u.ruleRepo.GetByID(ctx, id)
}
