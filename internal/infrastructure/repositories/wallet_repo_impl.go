package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/models"
	"settlement-core.backend/pkg/utils"
)

type walletRepo struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) domainrepos.WalletRepository {
	return &walletRepo{db: db}
}

// Create creates a new wallet with zero balances unless set
func (r *walletRepo) Create(ctx context.Context, wallet *entities.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = utils.GenerateUUIDv7()
	}
	now := time.Now().UTC()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now

	err := GetDB(ctx, r.db).Create(&models.Wallet{
		ID:                wallet.ID,
		OwnerID:           wallet.OwnerID,
		OwnerType:         string(wallet.OwnerType),
		AvailableBalance:  wallet.AvailableBalance,
		LockedBalance:     wallet.LockedBalance,
		BankAccountNumber: wallet.BankAccountNumber.Ptr(),
		BankRoutingCode:   wallet.BankRoutingCode.Ptr(),
		BankAccountHolder: wallet.BankAccountHolder.Ptr(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainerrors.ErrAlreadyExists
	}
	return err
}

// GetByID gets a wallet by ID
func (r *walletRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	return r.first(GetDB(ctx, r.db).Where("id = ?", id))
}

// GetForUpdate gets a wallet and locks its row until the transaction ends
func (r *walletRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	return r.first(GetDB(withLock(ctx), r.db).Where("id = ?", id))
}

// GetByOwner gets the wallet of a party
func (r *walletRepo) GetByOwner(ctx context.Context, ownerID string, ownerType entities.PartyType) (*entities.Wallet, error) {
	return r.first(GetDB(ctx, r.db).Where("owner_id = ? AND owner_type = ?", ownerID, string(ownerType)))
}

func (r *walletRepo) first(query *gorm.DB) (*entities.Wallet, error) {
	var m models.Wallet
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrWalletNotFound
		}
		return nil, err
	}
	return toWalletEntity(&m), nil
}

// UpdateBalances overwrites the cached balances
func (r *walletRepo) UpdateBalances(ctx context.Context, id uuid.UUID, available, locked decimal.Decimal) error {
	result := GetDB(ctx, r.db).Model(&models.Wallet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"available_balance": available,
			"locked_balance":    locked,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrWalletNotFound
	}
	return nil
}

func toWalletEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		OwnerType:         entities.PartyType(m.OwnerType),
		AvailableBalance:  m.AvailableBalance,
		LockedBalance:     m.LockedBalance,
		BankAccountNumber: null.StringFromPtr(m.BankAccountNumber),
		BankRoutingCode:   null.StringFromPtr(m.BankRoutingCode),
		BankAccountHolder: null.StringFromPtr(m.BankAccountHolder),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
