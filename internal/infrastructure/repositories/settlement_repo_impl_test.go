package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/infrastructure/models"
	"settlement-core.backend/pkg/utils"
)

func newSettlement(sellerID string, start time.Time) *entities.Settlement {
	end := start.AddDate(0, 0, 6)
	s := &entities.Settlement{
		SellerID:    sellerID,
		Period:      entities.PeriodKey(start, end),
		PeriodStart: start,
		PeriodEnd:   end,
		TotalSales:  decimal.NewFromInt(1000),
		Commission:  decimal.NewFromInt(100),
		Deductions:  decimal.NewFromInt(50),
		Status:      entities.SettlementPending,
		Cycle:       "T+7",
		DueDate:     end.AddDate(0, 0, 7),
		CreatedAt:   repoBaseTime,
	}
	s.Recompute()
	return s
}

func TestSettlementRepository_CreateUniqueAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettlementRepository(db)
	ctx := context.Background()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	s := newSettlement("seller-1", start)
	require.NoError(t, repo.Create(ctx, s))
	require.Equal(t, 1, s.Version)

	err := repo.Create(ctx, newSettlement("seller-1", start))
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	got, err := repo.GetBySellerPeriod(ctx, "seller-1", "2024-02-01_2024-02-07")
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.True(t, got.SettlementAmount.Equal(decimal.NewFromInt(850)))

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSettlementRepository_CompareAndSwap(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettlementRepository(db)
	ctx := context.Background()

	s := newSettlement("seller-2", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, s))

	stale := *s
	s.Status = entities.SettlementApproved
	s.ApprovedAt = null.TimeFrom(repoBaseTime)
	require.NoError(t, repo.CompareAndSwap(ctx, s, 1))
	require.Equal(t, 2, s.Version)

	stale.Status = entities.SettlementOnHold
	stale.HoldReason = null.StringFrom("audit")
	require.ErrorIs(t, repo.CompareAndSwap(ctx, &stale, 1), domainerrors.ErrConcurrentUpdate)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, entities.SettlementApproved, got.Status)
	require.Equal(t, 2, got.Version)
	require.False(t, got.HoldReason.Valid)
}

func TestSettlementRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettlementRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	a := newSettlement("seller-a", jan)
	b := newSettlement("seller-a", feb)
	b.Status = entities.SettlementOnHold
	c := newSettlement("seller-b", feb)
	for _, s := range []*entities.Settlement{a, b, c} {
		require.NoError(t, repo.Create(ctx, s))
	}

	items, total, err := repo.List(ctx, entities.SettlementFilter{SellerID: "seller-a"}, utils.PaginationParams{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, b.ID, items[0].ID, "latest period first")

	items, total, err = repo.List(ctx, entities.SettlementFilter{Status: entities.SettlementOnHold}, utils.PaginationParams{Page: 1, Limit: 5})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, b.ID, items[0].ID)
}

func TestSellerSaleRepository_UnsettledAndMark(t *testing.T) {
	db := newTestDB(t)
	repo := NewSellerSaleRepository(db)
	ctx := context.Background()

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	sale := func(seller string, soldAt time.Time, amount int64) models.SellerSale {
		m := models.SellerSale{
			ID:               uuid.New(),
			SellerID:         seller,
			OrderNumber:      "ORD-" + uuid.NewString()[:8],
			Amount:           decimal.NewFromInt(amount),
			CommissionAmount: decimal.NewFromInt(amount / 10),
			DeductionAmount:  decimal.Zero,
			SoldAt:           soldAt,
		}
		require.NoError(t, db.Create(&m).Error)
		return m
	}

	in1 := sale("seller-1", start.Add(time.Hour), 100)
	in2 := sale("seller-1", end.Add(-time.Second), 200)
	sale("seller-1", end, 300)
	sale("seller-1", start.Add(-time.Second), 400)
	sale("seller-2", start.Add(2*time.Hour), 500)

	sellers, err := repo.ListSellersWithUnsettled(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, []string{"seller-1", "seller-2"}, sellers)

	sales, err := repo.ListUnsettled(ctx, "seller-1", start, end)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, in1.ID, sales[0].ID)
	require.Equal(t, in2.ID, sales[1].ID)

	settlementID := uuid.New()
	require.NoError(t, repo.MarkSettled(ctx, []uuid.UUID{in1.ID, in2.ID}, settlementID))
	require.NoError(t, repo.MarkSettled(ctx, nil, settlementID))

	sales, err = repo.ListUnsettled(ctx, "seller-1", start, end)
	require.NoError(t, err)
	require.Empty(t, sales)

	sellers, err = repo.ListSellersWithUnsettled(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, []string{"seller-2"}, sellers)
}

func TestSellerSaleRepository_MarkSettledRejectsClaimedSales(t *testing.T) {
	db := newTestDB(t)
	repo := NewSellerSaleRepository(db)
	ctx := context.Background()

	soldAt := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	first := models.SellerSale{ID: uuid.New(), SellerID: "seller-1", OrderNumber: "ORD-1", Amount: decimal.NewFromInt(100), SoldAt: soldAt}
	second := models.SellerSale{ID: uuid.New(), SellerID: "seller-1", OrderNumber: "ORD-2", Amount: decimal.NewFromInt(50), SoldAt: soldAt}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	winner := uuid.New()
	require.NoError(t, repo.MarkSettled(ctx, []uuid.UUID{first.ID}, winner))

	err := repo.MarkSettled(ctx, []uuid.UUID{first.ID}, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)

	uow := NewUnitOfWork(db)
	err = uow.Do(ctx, func(txCtx context.Context) error {
		return repo.MarkSettled(txCtx, []uuid.UUID{first.ID, second.ID}, uuid.New())
	})
	require.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)

	var got models.SellerSale
	require.NoError(t, db.First(&got, "id = ?", second.ID).Error)
	require.Nil(t, got.SettlementID, "partial claim is rolled back")
	require.NoError(t, db.First(&got, "id = ?", first.ID).Error)
	require.Equal(t, winner.String(), *got.SettlementID)
}
