package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID           string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_wallet_owner"`
	OwnerType         string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_owner"`
	AvailableBalance  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	LockedBalance     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	BankAccountNumber *string         `gorm:"type:varchar(64)"`
	BankRoutingCode   *string         `gorm:"type:varchar(32)"`
	BankAccountHolder *string         `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LedgerEntry rows are insert-only.
type LedgerEntry struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryType    string          `gorm:"type:varchar(10);not null"`
	Bucket       string          `gorm:"type:varchar(10);not null"`
	Category     string          `gorm:"type:varchar(40);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Description  string
	Reference    string  `gorm:"type:varchar(255);index"`
	Status       string  `gorm:"type:varchar(20);not null"`
	TransferID   *string `gorm:"type:varchar(64);index"`
	JobPaymentID *string `gorm:"type:varchar(64);index"`
	WithdrawalID *string `gorm:"type:varchar(64);index"`
	CreatedAt    time.Time
}

type JobPayment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JobID            string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	WalletID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	GrossAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CommissionRuleID *string         `gorm:"type:varchar(64)"`
	ImmediatePayment decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	HoldAmount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	WarrantyEndDate  *time.Time      `gorm:"index"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	ReleasedAt       *time.Time
	ReleaseReason    *string `gorm:"type:varchar(30)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type WithdrawalRequest struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	BankAccountMasked string          `gorm:"type:varchar(64)"`
	DebitEntryID      uuid.UUID       `gorm:"type:uuid"`
	ExternalReference *string         `gorm:"type:varchar(255)"`
	FailureReason     *string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
