package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	domainerrors "settlement-core.backend/internal/domain/errors"
)

type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "PENDING"
	SettlementApproved SettlementStatus = "APPROVED"
	SettlementOnHold   SettlementStatus = "ON_HOLD"
	SettlementPaid     SettlementStatus = "PAID"
)

type SettlementAction string

const (
	ActionApprove  SettlementAction = "approve"
	ActionHold     SettlementAction = "hold"
	ActionRelease  SettlementAction = "release"
	ActionMarkPaid SettlementAction = "mark-paid"
)

// settlementTransitions lists the legal source states for each action.
var settlementTransitions = map[SettlementAction]struct {
	from SettlementStatus
	to   SettlementStatus
}{
	ActionApprove:  {SettlementPending, SettlementApproved},
	ActionHold:     {SettlementPending, SettlementOnHold},
	ActionRelease:  {SettlementOnHold, SettlementPending},
	ActionMarkPaid: {SettlementApproved, SettlementPaid},
}

// NextSettlementStatus validates action against the current status.
// noop is true when the action leaves the settlement unchanged (re-approving).
func NextSettlementStatus(current SettlementStatus, action SettlementAction) (next SettlementStatus, noop bool, err error) {
	if current == SettlementPaid {
		return current, false, domainerrors.ErrSettlementClosed
	}
	t, ok := settlementTransitions[action]
	if !ok {
		return current, false, fmt.Errorf("%w: unknown action %q", domainerrors.ErrInvalidTransition, action)
	}
	if action == ActionApprove && current == SettlementApproved {
		return current, true, nil
	}
	if current != t.from {
		return current, false, fmt.Errorf("%w: cannot %s a %s settlement", domainerrors.ErrInvalidTransition, action, current)
	}
	return t.to, false, nil
}

var cyclePattern = regexp.MustCompile(`^T\+(\d{1,3})$`)

// CycleDays parses a cycle label such as "T+7" into its day offset.
func CycleDays(cycle string) (int, error) {
	m := cyclePattern.FindStringSubmatch(strings.TrimSpace(cycle))
	if m == nil {
		return 0, fmt.Errorf("%w: cycle must look like T+N, got %q", domainerrors.ErrInvalidInput, cycle)
	}
	return strconv.Atoi(m[1])
}

const periodDateLayout = "2006-01-02"

// PeriodKey is the batch key label for a settlement period.
func PeriodKey(start, end time.Time) string {
	return start.UTC().Format(periodDateLayout) + "_" + end.UTC().Format(periodDateLayout)
}

// Settlement is a seller's payout batch for one period.
type Settlement struct {
	ID               uuid.UUID        `json:"id"`
	SellerID         string           `json:"sellerId"`
	Period           string           `json:"period"`
	PeriodStart      time.Time        `json:"periodStart"`
	PeriodEnd        time.Time        `json:"periodEnd"`
	TotalSales       decimal.Decimal  `json:"totalSales"`
	Commission       decimal.Decimal  `json:"commission"`
	Deductions       decimal.Decimal  `json:"deductions"`
	SettlementAmount decimal.Decimal  `json:"settlementAmount"`
	SaleCount        int              `json:"saleCount"`
	Status           SettlementStatus `json:"status"`
	Cycle            string           `json:"cycle"`
	DueDate          time.Time        `json:"dueDate"`
	HoldReason       null.String      `json:"holdReason,omitempty"`
	PaymentReference null.String      `json:"paymentReference,omitempty"`
	ApprovedAt       null.Time        `json:"approvedAt"`
	PaidAt           null.Time        `json:"paidAt"`
	Version          int              `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Recompute derives SettlementAmount from its components. It is the only writer of that field.
func (s *Settlement) Recompute() {
	s.SettlementAmount = s.TotalSales.Sub(s.Commission).Sub(s.Deductions)
}

// SellerSale is a sale line owned by the order service, consumed when batching.
type SellerSale struct {
	ID               uuid.UUID       `json:"id"`
	SellerID         string          `json:"sellerId"`
	OrderNumber      string          `json:"orderNumber"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	DeductionAmount  decimal.Decimal `json:"deductionAmount"`
	SoldAt           time.Time       `json:"soldAt"`
	SettlementID     null.String     `json:"settlementId,omitempty"`
}

// CreateSettlementInput asks for the batch of one seller and period.
type CreateSettlementInput struct {
	SellerID    string    `json:"sellerId" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
	Cycle       string    `json:"cycle"`
}

// SettlementFilter narrows settlement listings.
type SettlementFilter struct {
	SellerID string
	Status   SettlementStatus
}

// SettlementRunResult summarizes one batch-generation pass over a period.
type SettlementRunResult struct {
	Period   string `json:"period"`
	Sellers  int    `json:"sellers"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
	Failed   int    `json:"failed"`
}
