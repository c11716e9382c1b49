package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "PERCENTAGE"
	CommissionTypeFixed      CommissionType = "FIXED"
)

func (t CommissionType) Valid() bool {
	return t == CommissionTypePercentage || t == CommissionTypeFixed
}

// ScopeKind classifies a rule scope into one of the precedence variants.
type ScopeKind string

const (
	ScopeDealerCategory ScopeKind = "DEALER_CATEGORY"
	ScopeDealer         ScopeKind = "DEALER"
	ScopeCategory       ScopeKind = "CATEGORY"
	ScopeContext        ScopeKind = "CONTEXT"
	ScopeDefault        ScopeKind = "DEFAULT"
)

// Tier returns the precedence tier of the kind; 1 is the most specific.
func (k ScopeKind) Tier() int {
	switch k {
	case ScopeDealerCategory:
		return 1
	case ScopeDealer:
		return 2
	case ScopeCategory:
		return 3
	case ScopeContext:
		return 4
	default:
		return 5
	}
}

// RuleScope holds the optional match fields of a commission rule. An empty
// field matches any context value.
type RuleScope struct {
	JobType              null.String `json:"jobType"`
	City                 null.String `json:"city"`
	Region               null.String `json:"region"`
	DealerID             null.String `json:"dealerId"`
	ServiceCategoryID    null.String `json:"serviceCategoryId"`
	ServiceSubCategoryID null.String `json:"serviceSubCategoryId"`
}

func set(s null.String) bool {
	return s.Valid && s.String != ""
}

func (s RuleScope) hasDealer() bool {
	return set(s.DealerID)
}

func (s RuleScope) hasCategory() bool {
	return set(s.ServiceCategoryID) || set(s.ServiceSubCategoryID)
}

func (s RuleScope) hasContext() bool {
	return set(s.JobType) || set(s.City) || set(s.Region)
}

// IsEmpty reports whether the scope is the default (match-everything) scope.
func (s RuleScope) IsEmpty() bool {
	return !s.hasDealer() && !s.hasCategory() && !s.hasContext()
}

// Kind derives the precedence variant from which fields are set.
func (s RuleScope) Kind() ScopeKind {
	switch {
	case s.hasDealer() && s.hasCategory():
		return ScopeDealerCategory
	case s.hasDealer():
		return ScopeDealer
	case s.hasCategory():
		return ScopeCategory
	case s.hasContext():
		return ScopeContext
	default:
		return ScopeDefault
	}
}

func fieldMatches(rule null.String, value string) bool {
	if !set(rule) {
		return true
	}
	return rule.String == value
}

// Matches reports whether every field set on the scope equals the context value.
func (s RuleScope) Matches(ctx CommissionContext) bool {
	return fieldMatches(s.DealerID, ctx.DealerID) &&
		fieldMatches(s.ServiceCategoryID, ctx.ServiceCategoryID) &&
		fieldMatches(s.ServiceSubCategoryID, ctx.ServiceSubCategoryID) &&
		fieldMatches(s.JobType, ctx.JobType) &&
		fieldMatches(s.City, ctx.City) &&
		fieldMatches(s.Region, ctx.Region)
}

// CommissionRule is an administrator-defined commission policy.
type CommissionRule struct {
	ID            uuid.UUID       `json:"id"`
	Type          CommissionType  `json:"commissionType"`
	Value         decimal.Decimal `json:"commissionValue"`
	Scope         RuleScope       `json:"scope"`
	EffectiveFrom time.Time       `json:"effectiveFrom"`
	EffectiveTo   null.Time       `json:"effectiveTo"`
	IsActive      bool            `json:"isActive"`
	CreatedBy     string          `json:"createdBy"`
	Notes         null.String     `json:"notes"`
	DeactivatedAt null.Time       `json:"deactivatedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsEffective reports whether the rule applies at the given instant.
func (r *CommissionRule) IsEffective(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom.After(at) {
		return false
	}
	if r.EffectiveTo.Valid && r.EffectiveTo.Time.Before(at) {
		return false
	}
	return true
}

// Compute returns the commission owed on gross. FIXED commissions never exceed gross.
func (r *CommissionRule) Compute(gross decimal.Decimal) decimal.Decimal {
	return ComputeCommission(r.Type, r.Value, gross)
}

// ComputeCommission applies a commission type and value to a gross amount.
func ComputeCommission(t CommissionType, value, gross decimal.Decimal) decimal.Decimal {
	if gross.IsNegative() || gross.IsZero() {
		return decimal.Zero
	}
	switch t {
	case CommissionTypePercentage:
		return RoundMoney(gross.Mul(value).Div(decimal.NewFromInt(100)))
	case CommissionTypeFixed:
		return RoundMoney(decimal.Min(value, gross))
	default:
		return decimal.Zero
	}
}

// CommissionContext describes the transaction a commission is resolved for.
type CommissionContext struct {
	DealerID             string          `json:"dealerId"`
	JobType              string          `json:"jobType"`
	City                 string          `json:"city"`
	Region               string          `json:"region"`
	ServiceCategoryID    string          `json:"serviceCategoryId"`
	ServiceSubCategoryID string          `json:"serviceSubCategoryId"`
	GrossAmount          decimal.Decimal `json:"grossAmount"`
}

// CommissionResolution is the outcome of resolving a context against the rule set.
type CommissionResolution struct {
	RuleID           uuid.UUID        `json:"ruleId"`
	Type             CommissionType   `json:"commissionType"`
	Value            decimal.Decimal  `json:"commissionValue"`
	Scope            ScopeKind        `json:"scope"`
	Tier             int              `json:"tier"`
	CommissionAmount *decimal.Decimal `json:"commissionAmount,omitempty"`
}

// CreateCommissionRuleInput is the admin payload for a new rule.
type CreateCommissionRuleInput struct {
	Type          CommissionType  `json:"commissionType" binding:"required"`
	Value         decimal.Decimal `json:"commissionValue"`
	Scope         RuleScope       `json:"scope"`
	EffectiveFrom *time.Time      `json:"effectiveFrom"`
	EffectiveTo   *time.Time      `json:"effectiveTo"`
	Notes         string          `json:"notes"`
	CreatedBy     string          `json:"-"`
}
