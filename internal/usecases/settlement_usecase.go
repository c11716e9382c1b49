package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/metrics"
	"settlement-core.backend/pkg/utils"
)

const maxTransitionAttempts = 3

// SettlementConfig holds settlement batching defaults.
type SettlementConfig struct {
	DefaultCycle string
	PeriodDays   int
}

// SettlementUsecase batches seller sales and drives settlements through their lifecycle.
type SettlementUsecase struct {
	settlements repositories.SettlementRepository
	sales       repositories.SellerSaleRepository
	uow         repositories.UnitOfWork
	cfg         SettlementConfig
	now         func() time.Time
}

// NewSettlementUsecase creates a new settlement usecase
func NewSettlementUsecase(settlements repositories.SettlementRepository, sales repositories.SellerSaleRepository, uow repositories.UnitOfWork, cfg SettlementConfig) *SettlementUsecase {
	if cfg.DefaultCycle == "" {
		cfg.DefaultCycle = "T+7"
	}
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = 7
	}
	return &SettlementUsecase{
		settlements: settlements,
		sales:       sales,
		uow:         uow,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (u *SettlementUsecase) WithClock(now func() time.Time) *SettlementUsecase {
	u.now = now
	return u
}

func truncateDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Create builds the batch for a seller and period from the seller's unsettled
// sales. An existing batch for the same key is returned unchanged with created=false.
func (u *SettlementUsecase) Create(ctx context.Context, input *entities.CreateSettlementInput) (s *entities.Settlement, created bool, err error) {
	if input == nil || strings.TrimSpace(input.SellerID) == "" {
		return nil, false, fmt.Errorf("%w: sellerId is required", domainerrors.ErrInvalidInput)
	}
	start, end := truncateDay(input.PeriodStart), truncateDay(input.PeriodEnd)
	if end.Before(start) {
		return nil, false, fmt.Errorf("%w: periodEnd is before periodStart", domainerrors.ErrInvalidInput)
	}
	cycle := input.Cycle
	if cycle == "" {
		cycle = u.cfg.DefaultCycle
	}
	days, err := entities.CycleDays(cycle)
	if err != nil {
		return nil, false, err
	}

	sellerID := strings.TrimSpace(input.SellerID)
	period := entities.PeriodKey(start, end)
	if existing, err := u.settlements.GetBySellerPeriod(ctx, sellerID, period); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, false, err
	}

	now := u.now().UTC()
	s = &entities.Settlement{
		ID:          utils.GenerateUUIDv7(),
		SellerID:    sellerID,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		TotalSales:  decimal.Zero,
		Commission:  decimal.Zero,
		Deductions:  decimal.Zero,
		Status:      entities.SettlementPending,
		Cycle:       cycle,
		DueDate:     end.AddDate(0, 0, days),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		err = u.uow.Do(ctx, func(txCtx context.Context) error {
			return u.collectSales(txCtx, s, start, end)
		})
		if !errors.Is(err, domainerrors.ErrConcurrentUpdate) {
			break
		}
		logger.Debug(ctx, "Sales claimed by another settlement, retrying",
			zap.String("seller_id", sellerID),
			zap.Int("attempt", attempt+1),
		)
	}
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		existing, getErr := u.settlements.GetBySellerPeriod(ctx, sellerID, period)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create settlement: %w", err)
	}

	logger.Info(ctx, "Settlement created",
		zap.String("settlement_id", s.ID.String()),
		zap.String("seller_id", sellerID),
		zap.String("period", period),
		zap.Int("sales", s.SaleCount),
		zap.String("amount", s.SettlementAmount.StringFixed(entities.MoneyScale)),
	)
	return s, true, nil
}

// collectSales totals the seller's unsettled sales into s, stores it and tags
// the sales. It fails with ErrConcurrentUpdate when another batch tagged any
// of them first.
func (u *SettlementUsecase) collectSales(txCtx context.Context, s *entities.Settlement, start, end time.Time) error {
	sales, err := u.sales.ListUnsettled(txCtx, s.SellerID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("list unsettled sales: %w", err)
	}
	s.TotalSales, s.Commission, s.Deductions = decimal.Zero, decimal.Zero, decimal.Zero
	ids := make([]uuid.UUID, 0, len(sales))
	for _, sale := range sales {
		s.TotalSales = s.TotalSales.Add(sale.Amount)
		s.Commission = s.Commission.Add(sale.CommissionAmount)
		s.Deductions = s.Deductions.Add(sale.DeductionAmount)
		ids = append(ids, sale.ID)
	}
	s.SaleCount = len(sales)
	s.Recompute()
	if err := u.settlements.Create(txCtx, s); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return u.sales.MarkSettled(txCtx, ids, s.ID)
}

// Get returns a settlement by id.
func (u *SettlementUsecase) Get(ctx context.Context, id uuid.UUID) (*entities.Settlement, error) {
	return u.settlements.GetByID(ctx, id)
}

// List returns settlements matching filter.
func (u *SettlementUsecase) List(ctx context.Context, filter entities.SettlementFilter, pagination utils.PaginationParams) ([]*entities.Settlement, int64, error) {
	return u.settlements.List(ctx, filter, pagination)
}

// Approve moves PENDING to APPROVED. Approving an APPROVED settlement is a no-op.
func (u *SettlementUsecase) Approve(ctx context.Context, id uuid.UUID) (*entities.Settlement, error) {
	return u.transition(ctx, id, entities.ActionApprove, func(s *entities.Settlement, at time.Time) {
		s.ApprovedAt = null.TimeFrom(at)
	})
}

// Hold parks a PENDING settlement with a reason.
func (u *SettlementUsecase) Hold(ctx context.Context, id uuid.UUID, reason string) (*entities.Settlement, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: hold reason is required", domainerrors.ErrInvalidInput)
	}
	return u.transition(ctx, id, entities.ActionHold, func(s *entities.Settlement, _ time.Time) {
		s.HoldReason = null.StringFrom(reason)
	})
}

// Release returns an ON_HOLD settlement to PENDING.
func (u *SettlementUsecase) Release(ctx context.Context, id uuid.UUID) (*entities.Settlement, error) {
	return u.transition(ctx, id, entities.ActionRelease, func(s *entities.Settlement, _ time.Time) {
		s.HoldReason = null.String{}
	})
}

// MarkPaid closes an APPROVED settlement. PAID is terminal.
func (u *SettlementUsecase) MarkPaid(ctx context.Context, id uuid.UUID, paymentReference string) (*entities.Settlement, error) {
	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return nil, fmt.Errorf("%w: paymentReference is required", domainerrors.ErrInvalidInput)
	}
	return u.transition(ctx, id, entities.ActionMarkPaid, func(s *entities.Settlement, at time.Time) {
		s.PaymentReference = null.StringFrom(paymentReference)
		s.PaidAt = null.TimeFrom(at)
	})
}

// transition applies action with optimistic concurrency. A lost race re-reads
// the settlement and re-validates the action against its new state.
func (u *SettlementUsecase) transition(ctx context.Context, id uuid.UUID, action entities.SettlementAction, mutate func(*entities.Settlement, time.Time)) (*entities.Settlement, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		s, err := u.settlements.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		from := s.Status
		next, noop, err := entities.NextSettlementStatus(s.Status, action)
		if err != nil {
			metrics.SettlementTransitions.WithLabelValues(string(action), "rejected").Inc()
			return nil, err
		}
		if noop {
			metrics.SettlementTransitions.WithLabelValues(string(action), "noop").Inc()
			return s, nil
		}

		at := u.now().UTC()
		expected := s.Version
		s.Status = next
		s.UpdatedAt = at
		mutate(s, at)
		err = u.settlements.CompareAndSwap(ctx, s, expected)
		if errors.Is(err, domainerrors.ErrConcurrentUpdate) {
			logger.Debug(ctx, "Settlement changed concurrently, retrying",
				zap.String("settlement_id", id.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		metrics.SettlementTransitions.WithLabelValues(string(action), metrics.Outcome(err)).Inc()
		if err != nil {
			return nil, fmt.Errorf("update settlement: %w", err)
		}

		logger.Info(ctx, "Settlement transitioned",
			zap.String("settlement_id", id.String()),
			zap.String("action", string(action)),
			zap.String("from", string(from)),
			zap.String("to", string(next)),
		)
		return s, nil
	}
	return nil, domainerrors.ErrConcurrentUpdate
}

// LastCompletedPeriod returns the inclusive first and last day of the most
// recent period that ended before now. Periods are PeriodDays long and
// aligned to the Unix epoch so consecutive runs never overlap.
func (u *SettlementUsecase) LastCompletedPeriod() (time.Time, time.Time) {
	length := int64(u.cfg.PeriodDays)
	today := truncateDay(u.now()).Unix() / 86400
	currentStart := today - today%length
	start := time.Unix((currentStart-length)*86400, 0).UTC()
	end := time.Unix((currentStart-1)*86400, 0).UTC()
	return start, end
}

// GenerateForPeriod creates batches for every seller with unsettled sales in
// the period, running at most concurrency creations at once. A failure for one
// seller is counted and logged without stopping the others.
func (u *SettlementUsecase) GenerateForPeriod(ctx context.Context, start, end time.Time, concurrency int) (*entities.SettlementRunResult, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: period end is before period start", domainerrors.ErrInvalidInput)
	}
	sellers, err := u.sales.ListSellersWithUnsettled(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}

	result := &entities.SettlementRunResult{Period: entities.PeriodKey(start, end), Sellers: len(sellers)}
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, sellerID := range sellers {
		sellerID := sellerID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, created, err := u.Create(gctx, &entities.CreateSettlementInput{
				SellerID:    sellerID,
				PeriodStart: start,
				PeriodEnd:   end,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				logger.Error(gctx, "Settlement generation failed", zap.String("seller_id", sellerID), zap.Error(err))
			case created:
				result.Created++
			default:
				result.Existing++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	logger.Info(ctx, "Settlement generation finished",
		zap.String("period", result.Period),
		zap.Int("sellers", result.Sellers),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
