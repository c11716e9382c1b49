package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"settlement-core.backend/internal/domain/entities"
	"settlement-core.backend/pkg/utils"
)

// CommissionRuleRepository defines commission rule storage. Rules are never deleted.
type CommissionRuleRepository interface {
	Create(ctx context.Context, rule *entities.CommissionRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error)
	List(ctx context.Context, activeOnly bool, pagination utils.PaginationParams) ([]*entities.CommissionRule, int64, error)
	// ListEffective returns active rules whose effective window contains at.
	ListEffective(ctx context.Context, at time.Time) ([]*entities.CommissionRule, error)
	// DeactivateDefaults deactivates every active empty-scope rule except keepID.
	DeactivateDefaults(ctx context.Context, keepID uuid.UUID, at time.Time) (int64, error)
	// EndDefaults caps the effective window of every active empty-scope rule
	// except keepID at endAt, leaving windows that already end earlier alone.
	EndDefaults(ctx context.Context, keepID uuid.UUID, endAt, at time.Time) (int64, error)
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
}
