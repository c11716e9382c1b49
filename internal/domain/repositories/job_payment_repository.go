package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
)

// JobPaymentRepository defines job payout split storage
type JobPaymentRepository interface {
	Create(ctx context.Context, payment *entities.JobPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.JobPayment, error)
	GetByJobID(ctx context.Context, jobID string) (*entities.JobPayment, error)
	// MarkReleased moves a LOCKED payment to PAID. It returns ErrHoldAlreadyReleased
	// when the payment is no longer LOCKED.
	MarkReleased(ctx context.Context, id uuid.UUID, reason entities.ReleaseReason, at time.Time) error
	// ListReleasable returns LOCKED payments whose warranty ended at or before the
	// cutoff, ordered after the cursor when one is given.
	ListReleasable(ctx context.Context, cutoff time.Time, after *entities.ReleaseCursor, limit int) ([]*entities.JobPayment, error)
}

// DisputeRepository reads complaint state owned by the warranty/complaint service.
type DisputeRepository interface {
	HasOpenDispute(ctx context.Context, jobID string) (bool, error)
}
