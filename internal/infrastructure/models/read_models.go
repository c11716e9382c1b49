package models

import "time"

// Read models below are owned by collaborating services and are only queried here.

type Job struct {
	ID           string  `gorm:"type:varchar(64);primaryKey"`
	TechnicianID *string `gorm:"type:varchar(64);index"`
	DealerID     *string `gorm:"type:varchar(64);index"`
	Status       string  `gorm:"type:varchar(30);not null;index"`
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

type Review struct {
	ID           string  `gorm:"type:varchar(64);primaryKey"`
	TechnicianID *string `gorm:"type:varchar(64);index"`
	DealerID     *string `gorm:"type:varchar(64);index"`
	Rating       float64 `gorm:"not null"`
	IsLocked     bool
	IsHidden     bool
	CreatedAt    time.Time
}

type TechnicianProfile struct {
	ID           string   `gorm:"type:varchar(64);primaryKey"`
	Rating       *float64 `gorm:"column:rating"`
	KYCCompleted bool     `gorm:"column:kyc_completed"`
}

type DealerProfile struct {
	ID     string   `gorm:"type:varchar(64);primaryKey"`
	Rating *float64 `gorm:"column:rating"`
}

type JobDispute struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	JobID     string `gorm:"type:varchar(64);not null;index"`
	Status    string `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (Job) TableName() string               { return "jobs" }
func (Review) TableName() string            { return "reviews" }
func (TechnicianProfile) TableName() string { return "technician_profiles" }
func (DealerProfile) TableName() string     { return "dealer_profiles" }
func (JobDispute) TableName() string        { return "job_disputes" }
