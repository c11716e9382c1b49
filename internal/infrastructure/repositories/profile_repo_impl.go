package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/models"
)

// Job states that count as complaints against the assignee.
var complaintJobStatuses = []string{"IN_WARRANTY", "DISPUTED"}

const completedJobStatus = "COMPLETED"

type profileRepo struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) domainrepos.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetTechnician(ctx context.Context, id string) (*entities.TechnicianProfile, error) {
	var m models.TechnicianProfile
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrProfileNotFound
		}
		return nil, err
	}
	return &entities.TechnicianProfile{ID: m.ID, LegacyRating: m.Rating, KYCCompleted: m.KYCCompleted}, nil
}

func (r *profileRepo) GetDealer(ctx context.Context, id string) (*entities.DealerProfile, error) {
	var m models.DealerProfile
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrProfileNotFound
		}
		return nil, err
	}
	return &entities.DealerProfile{ID: m.ID, LegacyRating: m.Rating}, nil
}

func partyColumn(role entities.PartyType) string {
	if role == entities.PartyDealer {
		return "dealer_id"
	}
	return "technician_id"
}

func (r *profileRepo) ReviewAverage(ctx context.Context, role entities.PartyType, partyID string) (*float64, error) {
	var row struct {
		AvgRating   *float64
		ReviewCount int64
	}
	err := GetDB(ctx, r.db).Model(&models.Review{}).
		Select("AVG(rating) AS avg_rating, COUNT(*) AS review_count").
		Where(partyColumn(role)+" = ? AND is_locked = ? AND is_hidden = ?", partyID, true, false).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ReviewCount == 0 {
		return nil, nil
	}
	return row.AvgRating, nil
}

func (r *profileRepo) TechnicianJobCounts(ctx context.Context, id string) (*entities.JobCounts, error) {
	return r.jobCounts(ctx, entities.PartyTechnician, id)
}

func (r *profileRepo) DealerJobCounts(ctx context.Context, id string) (*entities.JobCounts, error) {
	return r.jobCounts(ctx, entities.PartyDealer, id)
}

func (r *profileRepo) jobCounts(ctx context.Context, role entities.PartyType, id string) (*entities.JobCounts, error) {
	var row struct {
		Total      int64
		Completed  int64
		Complaints int64
	}
	err := GetDB(ctx, r.db).Model(&models.Job{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS complaints",
			completedJobStatus, complaintJobStatuses).
		Where(partyColumn(role)+" = ?", id).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &entities.JobCounts{
		Total:               row.Total,
		Completed:           row.Completed,
		InWarrantyOrDispute: row.Complaints,
	}, nil
}

type disputeRepo struct {
	db *gorm.DB
}

// Dispute states that suspend automatic hold release.
var openDisputeStatuses = []string{"OPEN", "IN_REVIEW"}

func NewDisputeRepository(db *gorm.DB) domainrepos.DisputeRepository {
	return &disputeRepo{db: db}
}

func (r *disputeRepo) HasOpenDispute(ctx context.Context, jobID string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&models.JobDispute{}).
		Where("job_id = ? AND status IN ?", jobID, openDisputeStatuses).
		Count(&count).Error
	return count > 0, err
}
