package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/pkg/logger"
)

// PayoutConfig holds the defaults applied when a payout request leaves the split open.
type PayoutConfig struct {
	DefaultHoldPercent  decimal.Decimal
	DefaultWarrantyDays int
}

type commissionResolver interface {
	Resolve(ctx context.Context, c entities.CommissionContext) (*entities.CommissionResolution, error)
}

type creditPoster interface {
	GetOrCreateWallet(ctx context.Context, ownerID string, ownerType entities.PartyType) (*entities.Wallet, error)
	PostCredit(ctx context.Context, walletID uuid.UUID, input *entities.PostCreditInput) (*entities.CreditResult, error)
}

// PayoutUsecase pays a technician for a completed job: commission, split, credit.
type PayoutUsecase struct {
	resolver    commissionResolver
	ledger      creditPoster
	jobPayments repositories.JobPaymentRepository
	cfg         PayoutConfig
	now         func() time.Time
}

// NewPayoutUsecase creates a new payout usecase
func NewPayoutUsecase(resolver commissionResolver, ledger creditPoster, jobPayments repositories.JobPaymentRepository, cfg PayoutConfig) *PayoutUsecase {
	return &PayoutUsecase{
		resolver:    resolver,
		ledger:      ledger,
		jobPayments: jobPayments,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (u *PayoutUsecase) WithClock(now func() time.Time) *PayoutUsecase {
	u.now = now
	return u
}

// SettleJob posts the technician's payout for a job. A job is paid at most
// once; repeating the call returns the recorded JobPayment with Existing set.
func (u *PayoutUsecase) SettleJob(ctx context.Context, input *entities.JobPayoutInput) (*entities.JobPayoutResult, error) {
	if input == nil || strings.TrimSpace(input.JobID) == "" || strings.TrimSpace(input.TechnicianID) == "" {
		return nil, fmt.Errorf("%w: job id and technician id are required", domainerrors.ErrInvalidInput)
	}
	if !input.GrossAmount.IsPositive() {
		return nil, fmt.Errorf("%w: grossAmount must be positive", domainerrors.ErrInvalidInput)
	}

	if existing, err := u.existing(ctx, input.JobID); existing != nil || err != nil {
		return existing, err
	}

	resolution, err := u.resolver.Resolve(ctx, input.CommissionContext())
	if err != nil {
		return nil, err
	}
	commission := decimal.Zero
	if resolution.CommissionAmount != nil {
		commission = *resolution.CommissionAmount
	}
	gross := entities.RoundMoney(input.GrossAmount)
	net := gross.Sub(commission)

	wallet, err := u.ledger.GetOrCreateWallet(ctx, input.TechnicianID, entities.PartyTechnician)
	if err != nil {
		return nil, err
	}

	credit := &entities.PostCreditInput{
		Amount:           net,
		Reference:        "job:" + input.JobID,
		Description:      "Payout for job " + input.JobID,
		JobID:            input.JobID,
		GrossAmount:      &gross,
		CommissionAmount: &commission,
		CommissionRuleID: resolution.RuleID.String(),
		Split:            u.splitPolicy(input),
	}
	result, err := u.ledger.PostCredit(ctx, wallet.ID, credit)
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		// Lost a race with a concurrent payout of the same job.
		if existing, lookupErr := u.existing(ctx, input.JobID); existing != nil {
			return existing, nil
		} else if lookupErr != nil {
			return nil, lookupErr
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Job paid out",
		zap.String("job_id", input.JobID),
		zap.String("technician_id", input.TechnicianID),
		zap.String("rule_id", resolution.RuleID.String()),
		zap.String("commission", commission.StringFixed(entities.MoneyScale)),
	)
	return &entities.JobPayoutResult{
		Commission: resolution,
		JobPayment: result.JobPayment,
		Credit:     result,
	}, nil
}

func (u *PayoutUsecase) existing(ctx context.Context, jobID string) (*entities.JobPayoutResult, error) {
	payment, err := u.jobPayments.GetByJobID(ctx, jobID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up job payment: %w", err)
	}
	return &entities.JobPayoutResult{JobPayment: payment, Existing: true}, nil
}

// splitPolicy picks the hold: explicit amount, explicit percent, then the configured default.
func (u *PayoutUsecase) splitPolicy(input *entities.JobPayoutInput) entities.SplitPolicy {
	policy := entities.SplitPolicy{
		HoldAmount:  input.HoldAmount,
		HoldPercent: input.HoldPercent,
	}
	if policy.HoldAmount == nil && policy.HoldPercent == nil && u.cfg.DefaultHoldPercent.IsPositive() {
		pct := u.cfg.DefaultHoldPercent
		policy.HoldPercent = &pct
	}

	if input.WarrantyEndDate != nil {
		end := input.WarrantyEndDate.UTC()
		policy.WarrantyEndDate = &end
		return policy
	}
	days := u.cfg.DefaultWarrantyDays
	if input.WarrantyDays != nil {
		days = *input.WarrantyDays
	}
	if days < 0 {
		days = 0
	}
	base := u.now().UTC()
	if input.CompletedAt != nil {
		base = input.CompletedAt.UTC()
	}
	end := base.AddDate(0, 0, days)
	policy.WarrantyEndDate = &end
	return policy
}
