package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/usecases"
)

func ptr[T any](v T) *T {
	return &v
}

func TestComputeTechnicianScore(t *testing.T) {
	t.Run("nothing known scores the base", func(t *testing.T) {
		score, b, err := usecases.ComputeTechnicianScore(entities.TrustInputs{})
		require.NoError(t, err)
		assert.Equal(t, 30, score)
		assert.Equal(t, 30.0, b.BasePoints)
		assert.Equal(t, entities.BadgeRisky, entities.BadgeFor(score))
	})

	t.Run("perfect technician hits the ceiling", func(t *testing.T) {
		score, b, err := usecases.ComputeTechnicianScore(entities.TrustInputs{
			ReviewAverage: ptr(5.0),
			TotalJobs:     10,
			CompletedJobs: 10,
			KYCCompleted:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, 100, score)
		assert.Equal(t, 110.0, b.Raw)
		assert.Equal(t, entities.BadgeTrusted, entities.BadgeFor(score))
	})

	t.Run("penalties are capped", func(t *testing.T) {
		score, b, err := usecases.ComputeTechnicianScore(entities.TrustInputs{
			ReviewAverage:   ptr(4.0),
			TotalJobs:       4,
			CompletedJobs:   2,
			ComplaintsCount: 9,
			PenaltiesCount:  9,
		})
		require.NoError(t, err)
		assert.Equal(t, 25.0, b.ComplaintsPenalty)
		assert.Equal(t, 15.0, b.PenaltiesPenalty)
		// 32 + 15 + 30 - 25 - 15
		assert.Equal(t, 37, score)
	})

	t.Run("legacy rating is used without reviews", func(t *testing.T) {
		score, b, err := usecases.ComputeTechnicianScore(entities.TrustInputs{LegacyRating: ptr(2.5)})
		require.NoError(t, err)
		assert.Equal(t, 2.5, b.Rating)
		assert.Equal(t, 50, score)
		assert.Equal(t, entities.BadgeNormal, entities.BadgeFor(score))
	})

	t.Run("non-finite input falls back", func(t *testing.T) {
		score, _, err := usecases.ComputeTechnicianScore(entities.TrustInputs{ReviewAverage: ptr(math.Inf(1))})
		assert.Error(t, err)
		assert.Equal(t, entities.BaselineTrustScore, score)
	})
}

func TestComputeDealerScore(t *testing.T) {
	score, b, err := usecases.ComputeDealerScore(entities.TrustInputs{
		ReviewAverage:   ptr(5.0),
		TotalJobs:       10,
		CompletedJobs:   10,
		KYCCompleted:    true,
		ComplaintsCount: 2,
		PenaltiesCount:  4,
	})
	require.NoError(t, err)
	assert.Zero(t, b.KYCBonus)
	assert.Zero(t, b.PenaltiesPenalty)
	assert.Equal(t, 10.0, b.ComplaintsPenalty)
	assert.Equal(t, 90, score)
}

func TestTrustScoreUsecase_ScoreTechnician(t *testing.T) {
	profiles := new(MockProfileRepository)
	profiles.On("GetTechnician", mock.Anything, "T1").Return(&entities.TechnicianProfile{ID: "T1", LegacyRating: ptr(1.0), KYCCompleted: true}, nil)
	profiles.On("ReviewAverage", mock.Anything, entities.PartyTechnician, "T1").Return(ptr(4.5), nil)
	profiles.On("TechnicianJobCounts", mock.Anything, "T1").Return(&entities.JobCounts{Total: 10, Completed: 8, InWarrantyOrDispute: 1}, nil)

	uc := usecases.NewTrustScoreUsecase(profiles)
	got, err := uc.Score(context.Background(), entities.PartyTechnician, "T1")
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	// 36 + 24 + 30 + 10 - 5
	assert.Equal(t, 95, got.Score)
	assert.Equal(t, entities.BadgeTrusted, got.Badge)
	assert.Equal(t, 4.5, got.Breakdown.Rating)
	assert.Equal(t, int64(1), got.Inputs.ComplaintsCount)
}

func TestTrustScoreUsecase_MissingProfileFallsBack(t *testing.T) {
	profiles := new(MockProfileRepository)
	profiles.On("GetDealer", mock.Anything, "D404").Return(nil, domainerrors.ErrProfileNotFound)

	uc := usecases.NewTrustScoreUsecase(profiles)
	got, err := uc.ScoreDealer(context.Background(), "D404")
	assert.ErrorIs(t, err, domainerrors.ErrProfileNotFound)
	require.NotNil(t, got)
	assert.True(t, got.Fallback)
	assert.Equal(t, 30, got.Score)
	assert.Equal(t, "profile not found", got.FallbackReason)
	assert.Equal(t, entities.BadgeRisky, got.Badge)
}

func TestTrustScoreUsecase_StoreFailureFallsBack(t *testing.T) {
	profiles := new(MockProfileRepository)
	profiles.On("GetTechnician", mock.Anything, "T1").Return(&entities.TechnicianProfile{ID: "T1"}, nil)
	profiles.On("ReviewAverage", mock.Anything, entities.PartyTechnician, "T1").Return(nil, errors.New("timeout"))

	got, err := usecases.NewTrustScoreUsecase(profiles).ScoreTechnician(context.Background(), "T1")
	assert.Error(t, err)
	assert.True(t, got.Fallback)
	assert.Equal(t, "computation failed", got.FallbackReason)
	assert.Equal(t, entities.BaselineTrustScore, got.Score)
}

func TestTrustScoreUsecase_Score_RejectsUnknownRole(t *testing.T) {
	uc := usecases.NewTrustScoreUsecase(new(MockProfileRepository))
	_, err := uc.Score(context.Background(), entities.PartySeller, "S1")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = uc.Score(context.Background(), entities.PartyTechnician, "")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}
