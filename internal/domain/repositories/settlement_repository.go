package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
	"settlement-core.backend/pkg/utils"
)

// SettlementRepository defines settlement batch storage
type SettlementRepository interface {
	// Create inserts a batch; it returns ErrAlreadyExists when (sellerId, period) is taken.
	Create(ctx context.Context, s *entities.Settlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Settlement, error)
	GetBySellerPeriod(ctx context.Context, sellerID, period string) (*entities.Settlement, error)
	List(ctx context.Context, filter entities.SettlementFilter, pagination utils.PaginationParams) ([]*entities.Settlement, int64, error)
	// CompareAndSwap persists s if the stored version still equals expectedVersion and
	// bumps s.Version. It returns ErrConcurrentUpdate otherwise.
	CompareAndSwap(ctx context.Context, s *entities.Settlement, expectedVersion int) error
}

// SellerSaleRepository reads and tags the order service's sale lines.
type SellerSaleRepository interface {
	ListUnsettled(ctx context.Context, sellerID string, start, end time.Time) ([]*entities.SellerSale, error)
	ListSellersWithUnsettled(ctx context.Context, start, end time.Time) ([]string, error)
	MarkSettled(ctx context.Context, saleIDs []uuid.UUID, settlementID uuid.UUID) error
}
