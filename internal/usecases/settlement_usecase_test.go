package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/usecases"
	"settlement-core.backend/pkg/utils"
)

var (
	settleNow   = time.Date(2024, 7, 10, 15, 30, 0, 0, time.UTC)
	periodStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC)
)

func newSettlementFixture(sales *MockSellerSaleRepository) (*usecases.SettlementUsecase, *memSettlements) {
	repo := newMemSettlements()
	uc := usecases.NewSettlementUsecase(repo, sales, memSettlementsUoW{repo}, usecases.SettlementConfig{DefaultCycle: "T+7", PeriodDays: 7}).
		WithClock(func() time.Time { return settleNow })
	return uc, repo
}

func sale(seller, amount, commission, deduction string) *entities.SellerSale {
	return &entities.SellerSale{
		ID:               uuid.New(),
		SellerID:         seller,
		Amount:           dec(amount),
		CommissionAmount: dec(commission),
		DeductionAmount:  dec(deduction),
		SoldAt:           periodStart.Add(time.Hour),
	}
}

func pendingSettlement(t *testing.T, uc *usecases.SettlementUsecase, sales *MockSellerSaleRepository, seller string) *entities.Settlement {
	t.Helper()
	sales.On("ListUnsettled", mock.Anything, seller, periodStart, periodEnd.AddDate(0, 0, 1)).Return([]*entities.SellerSale{}, nil).Once()
	s, created, err := uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: seller, PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)
	require.True(t, created)
	return s
}

func TestSettlementUsecase_Create_AggregatesAndTagsSales(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	lines := []*entities.SellerSale{sale("S1", "1000", "100", "20"), sale("S1", "500.50", "50.05", "0")}
	sales.On("ListUnsettled", mock.Anything, "S1", periodStart, periodEnd.AddDate(0, 0, 1)).Return(lines, nil)
	sales.On("MarkSettled", mock.Anything, []uuid.UUID{lines[0].ID, lines[1].ID}, mock.AnythingOfType("uuid.UUID")).Return(nil)
	uc, _ := newSettlementFixture(sales)

	s, created, err := uc.Create(context.Background(), &entities.CreateSettlementInput{
		SellerID:    "S1",
		PeriodStart: periodStart.Add(5 * time.Hour),
		PeriodEnd:   periodEnd.Add(23 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2024-07-01_2024-07-07", s.Period)
	assert.Equal(t, entities.SettlementPending, s.Status)
	assert.True(t, s.TotalSales.Equal(dec("1500.50")))
	assert.True(t, s.Commission.Equal(dec("150.05")))
	assert.True(t, s.Deductions.Equal(dec("20")))
	assert.True(t, s.SettlementAmount.Equal(dec("1330.45")))
	assert.Equal(t, 2, s.SaleCount)
	assert.Equal(t, time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC), s.DueDate)

	again, created, err := uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: "S1", PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)
	sales.AssertNumberOfCalls(t, "ListUnsettled", 1)
}

func TestSettlementUsecase_Create_RetotalsWhenSalesClaimedConcurrently(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	taken := sale("S1", "1000", "100", "0")
	left := sale("S1", "250", "25", "0")
	window := periodEnd.AddDate(0, 0, 1)
	sales.On("ListUnsettled", mock.Anything, "S1", periodStart, window).Return([]*entities.SellerSale{taken, left}, nil).Once()
	sales.On("MarkSettled", mock.Anything, []uuid.UUID{taken.ID, left.ID}, mock.AnythingOfType("uuid.UUID")).Return(domainerrors.ErrConcurrentUpdate).Once()
	sales.On("ListUnsettled", mock.Anything, "S1", periodStart, window).Return([]*entities.SellerSale{left}, nil).Once()
	sales.On("MarkSettled", mock.Anything, []uuid.UUID{left.ID}, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	uc, _ := newSettlementFixture(sales)

	s, created, err := uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: "S1", PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, s.TotalSales.Equal(dec("250")))
	assert.True(t, s.SettlementAmount.Equal(dec("225")))
	assert.Equal(t, 1, s.SaleCount)
	sales.AssertExpectations(t)
}

func TestSettlementUsecase_Create_GivesUpWhenSalesKeepMoving(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	line := sale("S1", "100", "10", "0")
	sales.On("ListUnsettled", mock.Anything, "S1", periodStart, periodEnd.AddDate(0, 0, 1)).Return([]*entities.SellerSale{line}, nil)
	sales.On("MarkSettled", mock.Anything, mock.Anything, mock.Anything).Return(domainerrors.ErrConcurrentUpdate)
	uc, _ := newSettlementFixture(sales)

	_, _, err := uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: "S1", PeriodStart: periodStart, PeriodEnd: periodEnd})
	assert.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)
	sales.AssertNumberOfCalls(t, "MarkSettled", 3)
}

func TestSettlementUsecase_Create_Validation(t *testing.T) {
	uc, _ := newSettlementFixture(new(MockSellerSaleRepository))

	_, _, err := uc.Create(context.Background(), &entities.CreateSettlementInput{PeriodStart: periodStart, PeriodEnd: periodEnd})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	_, _, err = uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: "S1", PeriodStart: periodEnd, PeriodEnd: periodStart})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	_, _, err = uc.Create(context.Background(), &entities.CreateSettlementInput{SellerID: "S1", PeriodStart: periodStart, PeriodEnd: periodEnd, Cycle: "weekly"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestSettlementUsecase_Lifecycle(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	uc, _ := newSettlementFixture(sales)
	s := pendingSettlement(t, uc, sales, "S1")
	ctx := context.Background()

	_, err := uc.MarkPaid(ctx, s.ID, "UTR-9")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	approved, err := uc.Approve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementApproved, approved.Status)
	assert.Equal(t, settleNow, approved.ApprovedAt.Time)

	again, err := uc.Approve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementApproved, again.Status)
	assert.Equal(t, approved.Version, again.Version)

	_, err = uc.Hold(ctx, s.ID, "kyc review")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	paid, err := uc.MarkPaid(ctx, s.ID, "UTR-9")
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementPaid, paid.Status)
	assert.Equal(t, "UTR-9", paid.PaymentReference.String)

	for name, call := range map[string]func() error{
		"approve":   func() error { _, err := uc.Approve(ctx, s.ID); return err },
		"hold":      func() error { _, err := uc.Hold(ctx, s.ID, "late"); return err },
		"release":   func() error { _, err := uc.Release(ctx, s.ID); return err },
		"mark-paid": func() error { _, err := uc.MarkPaid(ctx, s.ID, "x"); return err },
	} {
		assert.ErrorIs(t, call(), domainerrors.ErrSettlementClosed, name)
	}
}

func TestSettlementUsecase_HoldAndRelease(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	uc, _ := newSettlementFixture(sales)
	s := pendingSettlement(t, uc, sales, "S1")
	ctx := context.Background()

	_, err := uc.Hold(ctx, s.ID, "   ")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	held, err := uc.Hold(ctx, s.ID, "chargeback pending")
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementOnHold, held.Status)
	assert.Equal(t, "chargeback pending", held.HoldReason.String)

	_, err = uc.Approve(ctx, s.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	released, err := uc.Release(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementPending, released.Status)
	assert.False(t, released.HoldReason.Valid)

	_, err = uc.Release(ctx, s.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
}

func TestSettlementUsecase_ConcurrentApproveAndHold(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	uc, _ := newSettlementFixture(sales)
	s := pendingSettlement(t, uc, sales, "S1")

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, errs[0] = uc.Approve(context.Background(), s.ID)
	}()
	go func() {
		defer wg.Done()
		<-start
		_, errs[1] = uc.Hold(context.Background(), s.ID, "manual review")
	}()
	close(start)
	wg.Wait()

	final, err := uc.Get(context.Background(), s.ID)
	require.NoError(t, err)
	switch final.Status {
	case entities.SettlementApproved:
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], domainerrors.ErrInvalidTransition)
	case entities.SettlementOnHold:
		assert.NoError(t, errs[1])
		assert.ErrorIs(t, errs[0], domainerrors.ErrInvalidTransition)
	default:
		t.Fatalf("unexpected final status %s", final.Status)
	}
	assert.Equal(t, 2, final.Version)
}

func TestSettlementUsecase_Transition_RetriesLostRace(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	uc, repo := newSettlementFixture(sales)
	s := pendingSettlement(t, uc, sales, "S1")

	// Another writer approves between our read and our write.
	raced := false
	repo.casHook = func() {
		if raced {
			return
		}
		raced = true
		repo.mu.Lock()
		repo.byID[s.ID].Status = entities.SettlementApproved
		repo.byID[s.ID].Version++
		repo.mu.Unlock()
	}

	got, err := uc.Approve(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementApproved, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestSettlementUsecase_Transition_GivesUpAfterRepeatedConflicts(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	uc, repo := newSettlementFixture(sales)
	s := pendingSettlement(t, uc, sales, "S1")

	repo.casHook = func() {
		repo.mu.Lock()
		repo.byID[s.ID].Version++
		repo.mu.Unlock()
	}
	_, err := uc.Hold(context.Background(), s.ID, "fraud check")
	assert.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)
}

func TestSettlementUsecase_LastCompletedPeriod(t *testing.T) {
	uc, _ := newSettlementFixture(new(MockSellerSaleRepository))
	start, end := uc.LastCompletedPeriod()
	assert.Equal(t, 6, int(end.Sub(start).Hours()/24))
	assert.True(t, end.Before(truncate(settleNow)))
	assert.False(t, end.AddDate(0, 0, 7).Before(truncate(settleNow)))

	next, _ := usecases.NewSettlementUsecase(newMemSettlements(), nil, passthroughUoW{}, usecases.SettlementConfig{PeriodDays: 7}).
		WithClock(func() time.Time { return end.AddDate(0, 0, 8) }).
		LastCompletedPeriod()
	assert.Equal(t, end.AddDate(0, 0, 1), next)
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func TestSettlementUsecase_GenerateForPeriod(t *testing.T) {
	sales := new(MockSellerSaleRepository)
	window := periodEnd.AddDate(0, 0, 1)
	sales.On("ListSellersWithUnsettled", mock.Anything, periodStart, window).Return([]string{"S1", "S2", "S3"}, nil)
	sales.On("ListUnsettled", mock.Anything, "S1", periodStart, window).Return([]*entities.SellerSale{sale("S1", "10", "1", "0")}, nil)
	sales.On("ListUnsettled", mock.Anything, "S2", periodStart, window).Return([]*entities.SellerSale{sale("S2", "20", "2", "0")}, nil)
	sales.On("ListUnsettled", mock.Anything, "S3", periodStart, window).Return(nil, errors.New("replica lag"))
	sales.On("MarkSettled", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	uc, repo := newSettlementFixture(sales)

	res, err := uc.GenerateForPeriod(context.Background(), periodStart, periodEnd, 2)
	require.NoError(t, err)
	assert.Equal(t, entities.SettlementRunResult{Period: "2024-07-01_2024-07-07", Sellers: 3, Created: 2, Failed: 1}, *res)

	list, total, err := uc.List(context.Background(), entities.SettlementFilter{Status: entities.SettlementPending}, utils.PaginationParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
	assert.Len(t, repo.byID, 2)
}
