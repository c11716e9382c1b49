package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"settlement-core.backend/internal/domain/entities"
	"settlement-core.backend/pkg/utils"
)

// WalletRepository defines wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string, ownerType entities.PartyType) (*entities.Wallet, error)
	// GetForUpdate reads the wallet and row-locks it for the surrounding transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	UpdateBalances(ctx context.Context, id uuid.UUID, available, locked decimal.Decimal) error
}

// LedgerEntryRepository is append-only: entries are never updated or deleted.
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *entities.LedgerEntry) error
	SumByBucket(ctx context.Context, walletID uuid.UUID) (*entities.BucketTotals, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error)
	// ListAllByWallet returns every entry in posting order for replay.
	ListAllByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.LedgerEntry, error)
}
