package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
)

// WithdrawalRepository defines withdrawal request storage
type WithdrawalRepository interface {
	Create(ctx context.Context, w *entities.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]*entities.WithdrawalRequest, error)
	// Resolve moves a PENDING request to PAID or FAILED. It returns ErrInvalidTransition
	// when the request is no longer PENDING.
	Resolve(ctx context.Context, id uuid.UUID, status entities.WithdrawalStatus, externalRef, failureReason string, at time.Time) error
}
