package entities

import "math"

// BaselineTrustScore is returned when a party's score cannot be computed.
const BaselineTrustScore = 30

type TrustBadge string

const (
	BadgeTrusted TrustBadge = "TRUSTED"
	BadgeNormal  TrustBadge = "NORMAL"
	BadgeRisky   TrustBadge = "RISKY"
)

// BadgeFor maps a final score to its badge.
func BadgeFor(score int) TrustBadge {
	switch {
	case score >= 70:
		return BadgeTrusted
	case score >= 50:
		return BadgeNormal
	default:
		return BadgeRisky
	}
}

// TrustInputs are the facts a trust score is computed from.
type TrustInputs struct {
	ReviewAverage   *float64 `json:"reviewAverage,omitempty"`
	LegacyRating    *float64 `json:"legacyRating,omitempty"`
	TotalJobs       int64    `json:"totalJobs"`
	CompletedJobs   int64    `json:"completedJobs"`
	KYCCompleted    bool     `json:"kycCompleted"`
	ComplaintsCount int64    `json:"complaintsCount"`
	PenaltiesCount  int64    `json:"penaltiesCount"`
}

// Rating picks the review average, then the legacy rating, then zero.
func (in TrustInputs) Rating() float64 {
	if in.ReviewAverage != nil {
		return *in.ReviewAverage
	}
	if in.LegacyRating != nil {
		return *in.LegacyRating
	}
	return 0
}

// TrustBreakdown lists each component's contribution to the score.
type TrustBreakdown struct {
	Rating            float64 `json:"rating"`
	RatingPoints      float64 `json:"ratingPoints"`
	JobSuccessPoints  float64 `json:"jobSuccessPoints"`
	BasePoints        float64 `json:"basePoints"`
	KYCBonus          float64 `json:"kycBonus"`
	ComplaintsPenalty float64 `json:"complaintsPenalty"`
	PenaltiesPenalty  float64 `json:"penaltiesPenalty"`
	Raw               float64 `json:"raw"`
}

// TrustScore is the result of scoring a party. Fallback is set when the
// baseline was returned instead of a computed value.
type TrustScore struct {
	PartyID        string          `json:"partyId"`
	Role           PartyType       `json:"role"`
	Score          int             `json:"score"`
	Badge          TrustBadge      `json:"badge"`
	Breakdown      *TrustBreakdown `json:"breakdown,omitempty"`
	Inputs         *TrustInputs    `json:"inputs,omitempty"`
	Fallback       bool            `json:"fallback"`
	FallbackReason string          `json:"fallbackReason,omitempty"`
}

// BaselineTrust builds the fallback score for a party.
func BaselineTrust(partyID string, role PartyType, reason string) *TrustScore {
	return &TrustScore{
		PartyID:        partyID,
		Role:           role,
		Score:          BaselineTrustScore,
		Badge:          BadgeFor(BaselineTrustScore),
		Fallback:       true,
		FallbackReason: reason,
	}
}

// ClampScore rounds raw to the nearest integer and bounds it to [0,100].
func ClampScore(raw float64) int {
	if math.IsNaN(raw) {
		return BaselineTrustScore
	}
	r := math.Round(raw)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}

// TechnicianProfile is the profile-store view of a technician.
type TechnicianProfile struct {
	ID           string   `json:"id"`
	LegacyRating *float64 `json:"legacyRating,omitempty"`
	KYCCompleted bool     `json:"kycCompleted"`
}

// DealerProfile is the profile-store view of a dealer.
type DealerProfile struct {
	ID           string   `json:"id"`
	LegacyRating *float64 `json:"legacyRating,omitempty"`
}

// JobCounts are job-outcome counts for a party.
type JobCounts struct {
	Total     int64
	Completed int64
	// InWarrantyOrDispute counts jobs currently in a warranty or dispute state.
	InWarrantyOrDispute int64
}
