package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Settlement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SellerID         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_settlement_seller_period"`
	Period           string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_settlement_seller_period"`
	PeriodStart      time.Time       `gorm:"not null"`
	PeriodEnd        time.Time       `gorm:"not null"`
	TotalSales       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Commission       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Deductions       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	SettlementAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	SaleCount        int
	Status           string    `gorm:"type:varchar(20);not null;index"`
	Cycle            string    `gorm:"type:varchar(10)"`
	DueDate          time.Time `gorm:"index"`
	HoldReason       *string
	PaymentReference *string `gorm:"type:varchar(255)"`
	ApprovedAt       *time.Time
	PaidAt           *time.Time
	Version          int `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SellerSale is written by the order service; this service only tags settlement_id.
type SellerSale struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SellerID         string          `gorm:"type:varchar(64);not null;index"`
	OrderNumber      string          `gorm:"type:varchar(64)"`
	Amount           decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	DeductionAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	SoldAt           time.Time       `gorm:"not null;index"`
	SettlementID     *string         `gorm:"type:varchar(64);index"`
}
