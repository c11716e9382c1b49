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
	"settlement-core.backend/pkg/utils"
)

func TestWalletRepository_CreateGetUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	w := &entities.Wallet{
		OwnerID:           "tech-1",
		OwnerType:         entities.PartyTechnician,
		AvailableBalance:  decimal.Zero,
		LockedBalance:     decimal.Zero,
		BankAccountNumber: null.StringFrom("001122334455"),
		BankRoutingCode:   null.StringFrom("HDFC0001"),
	}
	require.NoError(t, repo.Create(ctx, w))
	require.NotEqual(t, uuid.Nil, w.ID)

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, "tech-1", got.OwnerID)
	require.True(t, got.HasBankDetails())
	require.Equal(t, "********4455", got.MaskedBankAccount())

	byOwner, err := repo.GetByOwner(ctx, "tech-1", entities.PartyTechnician)
	require.NoError(t, err)
	require.Equal(t, w.ID, byOwner.ID)

	_, err = repo.GetByOwner(ctx, "tech-1", entities.PartyDealer)
	require.ErrorIs(t, err, domainerrors.ErrWalletNotFound)

	require.NoError(t, repo.UpdateBalances(ctx, w.ID, decimal.RequireFromString("700.00"), decimal.RequireFromString("300.00")))

	locked, err := repo.GetForUpdate(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, locked.AvailableBalance.Equal(decimal.NewFromInt(700)))
	require.True(t, locked.LockedBalance.Equal(decimal.NewFromInt(300)))
	require.True(t, locked.TotalBalance().Equal(decimal.NewFromInt(1000)))
}

func TestWalletRepository_DuplicateOwnerAndNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entities.Wallet{OwnerID: "seller-1", OwnerType: entities.PartySeller}))
	err := repo.Create(ctx, &entities.Wallet{OwnerID: "seller-1", OwnerType: entities.PartySeller})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrWalletNotFound)

	err = repo.UpdateBalances(ctx, uuid.New(), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, domainerrors.ErrWalletNotFound)
}

func TestLedgerEntryRepository_SumAndList(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletRepository(db)
	repo := NewLedgerEntryRepository(db)
	ctx := context.Background()

	w := &entities.Wallet{OwnerID: "tech-2", OwnerType: entities.PartyTechnician}
	require.NoError(t, wallets.Create(ctx, w))

	post := func(typ entities.EntryType, bucket entities.Bucket, amount string, offset int) *entities.LedgerEntry {
		e := &entities.LedgerEntry{
			WalletID:  w.ID,
			Type:      typ,
			Bucket:    bucket,
			Category:  entities.CategoryAdjustment,
			Amount:    decimal.RequireFromString(amount),
			Reference: "ref",
			CreatedAt: repoBaseTime.Add(time.Duration(offset) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, e))
		return e
	}

	first := post(entities.EntryCredit, entities.BucketAvailable, "700.10", 0)
	post(entities.EntryCredit, entities.BucketLocked, "300.20", 1)
	post(entities.EntryDebit, entities.BucketLocked, "300.20", 2)
	post(entities.EntryCredit, entities.BucketAvailable, "300.20", 3)
	last := post(entities.EntryDebit, entities.BucketAvailable, "0.30", 4)

	totals, err := repo.SumByBucket(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, totals.AvailableCredits.Equal(decimal.RequireFromString("1000.30")))
	require.True(t, totals.AvailableDebits.Equal(decimal.RequireFromString("0.30")))
	require.True(t, totals.LockedCredits.Equal(decimal.RequireFromString("300.20")))
	require.True(t, totals.LockedDebits.Equal(decimal.RequireFromString("300.20")))

	bal := totals.Balance(w.ID)
	require.True(t, bal.Available.Equal(decimal.NewFromInt(1000)))
	require.True(t, bal.Locked.IsZero())

	page, total, err := repo.ListByWallet(ctx, w.ID, utils.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	require.Equal(t, last.ID, page[0].ID)
	require.Equal(t, entities.EntryStatusPosted, page[0].Status)

	all, err := repo.ListAllByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, first.ID, all[0].ID)

	empty, err := repo.SumByBucket(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, empty.Balance(uuid.Nil).Total.IsZero())
}
