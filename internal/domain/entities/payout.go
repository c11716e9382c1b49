package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobPayoutInput describes a completed job whose technician is to be paid.
type JobPayoutInput struct {
	JobID                string           `json:"-"`
	TechnicianID         string           `json:"technicianId" binding:"required"`
	GrossAmount          decimal.Decimal  `json:"grossAmount"`
	DealerID             string           `json:"dealerId"`
	JobType              string           `json:"jobType"`
	City                 string           `json:"city"`
	Region               string           `json:"region"`
	ServiceCategoryID    string           `json:"serviceCategoryId"`
	ServiceSubCategoryID string           `json:"serviceSubCategoryId"`
	CompletedAt          *time.Time       `json:"completedAt"`
	HoldAmount           *decimal.Decimal `json:"holdAmount"`
	HoldPercent          *decimal.Decimal `json:"holdPercent"`
	WarrantyEndDate      *time.Time       `json:"warrantyEndDate"`
	WarrantyDays         *int             `json:"warrantyDays"`
}

// CommissionContext returns the resolver context for the job.
func (in JobPayoutInput) CommissionContext() CommissionContext {
	return CommissionContext{
		DealerID:             in.DealerID,
		JobType:              in.JobType,
		City:                 in.City,
		Region:               in.Region,
		ServiceCategoryID:    in.ServiceCategoryID,
		ServiceSubCategoryID: in.ServiceSubCategoryID,
		GrossAmount:          in.GrossAmount,
	}
}

// JobPayoutResult is the outcome of paying out a job. Existing is set when the
// job had already been paid and nothing new was posted.
type JobPayoutResult struct {
	Commission *CommissionResolution `json:"commission,omitempty"`
	JobPayment *JobPayment           `json:"jobPayment"`
	Credit     *CreditResult         `json:"credit,omitempty"`
	Existing   bool                  `json:"existing"`
}
