package repositories

import (
	"context"

	"settlement-core.backend/internal/domain/entities"
)

// ProfileRepository reads the profile-store facts trust scores are computed from.
// Missing profiles are reported as ErrProfileNotFound.
type ProfileRepository interface {
	GetTechnician(ctx context.Context, id string) (*entities.TechnicianProfile, error)
	GetDealer(ctx context.Context, id string) (*entities.DealerProfile, error)
	// ReviewAverage averages locked, non-hidden reviews of the party; nil when there are none.
	ReviewAverage(ctx context.Context, role entities.PartyType, partyID string) (*float64, error)
	TechnicianJobCounts(ctx context.Context, id string) (*entities.JobCounts, error)
	DealerJobCounts(ctx context.Context, id string) (*entities.JobCounts, error)
}
