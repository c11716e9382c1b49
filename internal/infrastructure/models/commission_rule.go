package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionRule struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CommissionType       string          `gorm:"type:varchar(20);not null"`
	CommissionValue      decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	JobType              *string         `gorm:"type:varchar(100);index"`
	City                 *string         `gorm:"type:varchar(100)"`
	Region               *string         `gorm:"type:varchar(100)"`
	DealerID             *string         `gorm:"type:varchar(64);index"`
	ServiceCategoryID    *string         `gorm:"type:varchar(64);index"`
	ServiceSubCategoryID *string         `gorm:"type:varchar(64)"`
	EffectiveFrom        time.Time       `gorm:"not null;index"`
	EffectiveTo          *time.Time
	IsActive             bool   `gorm:"not null;index"`
	CreatedBy            string `gorm:"type:varchar(64)"`
	Notes                *string
	DeactivatedAt        *time.Time
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}
