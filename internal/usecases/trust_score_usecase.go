package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/metrics"
)

const (
	ratingWeight     = 40.0
	jobSuccessWeight = 30.0
	baseTrustPoints  = 30.0
	kycBonusPoints   = 10.0
	complaintStep    = 5.0
	complaintCap     = 25.0
	penaltyStep      = 3.0
	penaltyCap       = 15.0
	maxRating        = 5.0
)

var errScoreNotFinite = errors.New("trust score is not a finite number")

// TrustScoreUsecase computes party trust scores on demand. Scores are never persisted.
type TrustScoreUsecase struct {
	profiles repositories.ProfileRepository
}

func NewTrustScoreUsecase(profiles repositories.ProfileRepository) *TrustScoreUsecase {
	return &TrustScoreUsecase{profiles: profiles}
}

func ratingPoints(in entities.TrustInputs) (float64, float64) {
	rating := in.Rating()
	return rating, rating / maxRating * ratingWeight
}

func jobSuccessPoints(in entities.TrustInputs) float64 {
	if in.TotalJobs <= 0 {
		return 0
	}
	return float64(in.CompletedJobs) / float64(in.TotalJobs) * jobSuccessWeight
}

// ComputeTechnicianScore applies the technician formula to in.
func ComputeTechnicianScore(in entities.TrustInputs) (int, *entities.TrustBreakdown, error) {
	b := &entities.TrustBreakdown{BasePoints: baseTrustPoints}
	b.Rating, b.RatingPoints = ratingPoints(in)
	b.JobSuccessPoints = jobSuccessPoints(in)
	if in.KYCCompleted {
		b.KYCBonus = kycBonusPoints
	}
	b.ComplaintsPenalty = math.Min(float64(in.ComplaintsCount)*complaintStep, complaintCap)
	b.PenaltiesPenalty = math.Min(float64(in.PenaltiesCount)*penaltyStep, penaltyCap)
	b.Raw = b.RatingPoints + b.JobSuccessPoints + b.BasePoints + b.KYCBonus - b.ComplaintsPenalty - b.PenaltiesPenalty
	return finalize(b)
}

// ComputeDealerScore applies the dealer formula: no KYC bonus, and jobs in
// warranty or dispute are the only penalty.
func ComputeDealerScore(in entities.TrustInputs) (int, *entities.TrustBreakdown, error) {
	b := &entities.TrustBreakdown{BasePoints: baseTrustPoints}
	b.Rating, b.RatingPoints = ratingPoints(in)
	b.JobSuccessPoints = jobSuccessPoints(in)
	b.ComplaintsPenalty = math.Min(float64(in.ComplaintsCount)*complaintStep, complaintCap)
	b.Raw = b.RatingPoints + b.JobSuccessPoints + b.BasePoints - b.ComplaintsPenalty
	return finalize(b)
}

func finalize(b *entities.TrustBreakdown) (int, *entities.TrustBreakdown, error) {
	if math.IsNaN(b.Raw) || math.IsInf(b.Raw, 0) {
		return entities.BaselineTrustScore, b, errScoreNotFinite
	}
	return entities.ClampScore(b.Raw), b, nil
}

// Score dispatches on role. Only TECHNICIAN and DEALER are scored.
func (u *TrustScoreUsecase) Score(ctx context.Context, role entities.PartyType, partyID string) (*entities.TrustScore, error) {
	if partyID == "" {
		return nil, fmt.Errorf("%w: party id is required", domainerrors.ErrInvalidInput)
	}
	switch role {
	case entities.PartyTechnician:
		return u.ScoreTechnician(ctx, partyID)
	case entities.PartyDealer:
		return u.ScoreDealer(ctx, partyID)
	default:
		return nil, fmt.Errorf("%w: role must be TECHNICIAN or DEALER", domainerrors.ErrInvalidInput)
	}
}

// ScoreTechnician always returns a score. When the baseline was used, the
// cause is returned as well so callers can inspect it; it is not a failure.
func (u *TrustScoreUsecase) ScoreTechnician(ctx context.Context, id string) (*entities.TrustScore, error) {
	in, err := u.technicianInputs(ctx, id)
	if err != nil {
		return u.fallback(ctx, id, entities.PartyTechnician, err), err
	}
	score, breakdown, err := ComputeTechnicianScore(*in)
	if err != nil {
		return u.fallback(ctx, id, entities.PartyTechnician, err), err
	}
	return build(id, entities.PartyTechnician, score, breakdown, in), nil
}

// ScoreDealer follows the same fallback contract as ScoreTechnician.
func (u *TrustScoreUsecase) ScoreDealer(ctx context.Context, id string) (*entities.TrustScore, error) {
	in, err := u.dealerInputs(ctx, id)
	if err != nil {
		return u.fallback(ctx, id, entities.PartyDealer, err), err
	}
	score, breakdown, err := ComputeDealerScore(*in)
	if err != nil {
		return u.fallback(ctx, id, entities.PartyDealer, err), err
	}
	return build(id, entities.PartyDealer, score, breakdown, in), nil
}

func build(id string, role entities.PartyType, score int, b *entities.TrustBreakdown, in *entities.TrustInputs) *entities.TrustScore {
	return &entities.TrustScore{
		PartyID:   id,
		Role:      role,
		Score:     score,
		Badge:     entities.BadgeFor(score),
		Breakdown: b,
		Inputs:    in,
	}
}

func (u *TrustScoreUsecase) fallback(ctx context.Context, id string, role entities.PartyType, cause error) *entities.TrustScore {
	reason := "computation failed"
	if errors.Is(cause, domainerrors.ErrProfileNotFound) {
		reason = "profile not found"
	}
	metrics.TrustScoreFallbacks.WithLabelValues(string(role)).Inc()
	logger.Warn(ctx, "Trust score degraded to baseline",
		zap.String("party_id", id),
		zap.String("role", string(role)),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	return entities.BaselineTrust(id, role, reason)
}

func (u *TrustScoreUsecase) technicianInputs(ctx context.Context, id string) (*entities.TrustInputs, error) {
	profile, err := u.profiles.GetTechnician(ctx, id)
	if err != nil {
		return nil, err
	}
	avg, err := u.profiles.ReviewAverage(ctx, entities.PartyTechnician, id)
	if err != nil {
		return nil, fmt.Errorf("review average: %w", err)
	}
	counts, err := u.profiles.TechnicianJobCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	return &entities.TrustInputs{
		ReviewAverage:   avg,
		LegacyRating:    profile.LegacyRating,
		TotalJobs:       counts.Total,
		CompletedJobs:   counts.Completed,
		KYCCompleted:    profile.KYCCompleted,
		ComplaintsCount: counts.InWarrantyOrDispute,
		PenaltiesCount:  penaltiesFor(id),
	}, nil
}

func (u *TrustScoreUsecase) dealerInputs(ctx context.Context, id string) (*entities.TrustInputs, error) {
	profile, err := u.profiles.GetDealer(ctx, id)
	if err != nil {
		return nil, err
	}
	avg, err := u.profiles.ReviewAverage(ctx, entities.PartyDealer, id)
	if err != nil {
		return nil, fmt.Errorf("review average: %w", err)
	}
	counts, err := u.profiles.DealerJobCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}
	return &entities.TrustInputs{
		ReviewAverage:   avg,
		LegacyRating:    profile.LegacyRating,
		TotalJobs:       counts.Total,
		CompletedJobs:   counts.Completed,
		ComplaintsCount: counts.InWarrantyOrDispute,
	}, nil
}

// penaltiesFor has no data source yet and always reports zero penalties.
func penaltiesFor(string) int64 {
	return 0
}
