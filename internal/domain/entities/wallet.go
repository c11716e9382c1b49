package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// MoneyScale is the number of decimal places amounts are kept at.
const MoneyScale = 2

// RoundMoney rounds an amount to MoneyScale places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

type PartyType string

const (
	PartyTechnician PartyType = "TECHNICIAN"
	PartyDealer     PartyType = "DEALER"
	PartySeller     PartyType = "SELLER"
)

// Wallet is a party's balance holder. AvailableBalance and LockedBalance are a
// materialized view over the wallet's ledger entries.
type Wallet struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           string          `json:"ownerId"`
	OwnerType         PartyType       `json:"ownerType"`
	AvailableBalance  decimal.Decimal `json:"availableBalance"`
	LockedBalance     decimal.Decimal `json:"lockedBalance"`
	BankAccountNumber null.String     `json:"-"`
	BankRoutingCode   null.String     `json:"-"`
	BankAccountHolder null.String     `json:"bankAccountHolder,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TotalBalance is available plus locked.
func (w *Wallet) TotalBalance() decimal.Decimal {
	return w.AvailableBalance.Add(w.LockedBalance)
}

// HasBankDetails reports whether a withdrawal destination is on file.
func (w *Wallet) HasBankDetails() bool {
	return w.BankAccountNumber.Valid && w.BankAccountNumber.String != "" &&
		w.BankRoutingCode.Valid && w.BankRoutingCode.String != ""
}

// MaskedBankAccount returns the account number with all but the last four digits hidden.
func (w *Wallet) MaskedBankAccount() string {
	if !w.BankAccountNumber.Valid {
		return ""
	}
	acc := w.BankAccountNumber.String
	if len(acc) <= 4 {
		return acc
	}
	masked := make([]byte, len(acc))
	for i := range acc {
		if i < len(acc)-4 {
			masked[i] = '*'
		} else {
			masked[i] = acc[i]
		}
	}
	return string(masked)
}

type EntryType string

const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
)

// Bucket is the wallet sub-balance an entry applies to.
type Bucket string

const (
	BucketAvailable Bucket = "AVAILABLE"
	BucketLocked    Bucket = "LOCKED"
)

type EntryCategory string

const (
	CategoryJobPayout            EntryCategory = "JOB_PAYOUT"
	CategoryWarrantyHold         EntryCategory = "WARRANTY_HOLD"
	CategoryHoldRelease          EntryCategory = "HOLD_RELEASE"
	CategoryWithdrawal           EntryCategory = "WITHDRAWAL"
	CategoryWithdrawalReversal   EntryCategory = "WITHDRAWAL_REVERSAL"
	CategoryCommissionChargeback EntryCategory = "COMMISSION_CHARGEBACK"
	CategoryAdjustment           EntryCategory = "ADJUSTMENT"
)

type EntryStatus string

const EntryStatusPosted EntryStatus = "POSTED"

// LedgerEntry is an immutable balance movement. Entries are never updated or deleted.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"walletId"`
	Type         EntryType       `json:"type"`
	Bucket       Bucket          `json:"bucket"`
	Category     EntryCategory   `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Reference    string          `json:"reference"`
	Status       EntryStatus     `json:"status"`
	TransferID   null.String     `json:"transferId,omitempty"`
	JobPaymentID null.String     `json:"jobPaymentId,omitempty"`
	WithdrawalID null.String     `json:"withdrawalId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Signed returns the entry amount as a signed delta on its bucket.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Type == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Balance is a wallet's balance derived from ledger entries.
type Balance struct {
	WalletID  uuid.UUID       `json:"walletId"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
	Total     decimal.Decimal `json:"total"`
}

// NewBalance builds a Balance and fills Total.
func NewBalance(walletID uuid.UUID, available, locked decimal.Decimal) *Balance {
	return &Balance{
		WalletID:  walletID,
		Available: available,
		Locked:    locked,
		Total:     available.Add(locked),
	}
}

// BucketTotals are per-bucket credit and debit sums for a wallet.
type BucketTotals struct {
	AvailableCredits decimal.Decimal
	AvailableDebits  decimal.Decimal
	LockedCredits    decimal.Decimal
	LockedDebits     decimal.Decimal
}

// Balance folds the totals into a Balance.
func (t BucketTotals) Balance(walletID uuid.UUID) *Balance {
	return NewBalance(walletID,
		t.AvailableCredits.Sub(t.AvailableDebits),
		t.LockedCredits.Sub(t.LockedDebits),
	)
}

type JobPaymentStatus string

const (
	JobPaymentPending JobPaymentStatus = "PENDING"
	JobPaymentLocked  JobPaymentStatus = "LOCKED"
	JobPaymentPaid    JobPaymentStatus = "PAID"
)

type ReleaseReason string

const (
	ReleaseWarrantyExpired ReleaseReason = "WARRANTY_EXPIRED"
	ReleaseDisputeResolved ReleaseReason = "DISPUTE_RESOLVED"
)

func (r ReleaseReason) Valid() bool {
	return r == ReleaseWarrantyExpired || r == ReleaseDisputeResolved
}

// JobPayment records how a job's payout was split between immediate and held funds.
type JobPayment struct {
	ID               uuid.UUID        `json:"id"`
	JobID            string           `json:"jobId"`
	WalletID         uuid.UUID        `json:"walletId"`
	GrossAmount      decimal.Decimal  `json:"grossAmount"`
	CommissionAmount decimal.Decimal  `json:"commissionAmount"`
	CommissionRuleID null.String      `json:"commissionRuleId,omitempty"`
	ImmediatePayment decimal.Decimal  `json:"immediatePayment"`
	HoldAmount       decimal.Decimal  `json:"holdAmount"`
	WarrantyEndDate  null.Time        `json:"warrantyEndDate"`
	Status           JobPaymentStatus `json:"status"`
	ReleasedAt       null.Time        `json:"releasedAt"`
	ReleaseReason    null.String      `json:"releaseReason,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NetAmount is gross minus commission.
func (p *JobPayment) NetAmount() decimal.Decimal {
	return p.GrossAmount.Sub(p.CommissionAmount)
}

// SplitPolicy decides how a net credit is divided between available and locked funds.
// HoldAmount takes precedence over HoldPercent when both are set.
type SplitPolicy struct {
	HoldAmount      *decimal.Decimal `json:"holdAmount"`
	HoldPercent     *decimal.Decimal `json:"holdPercent"`
	WarrantyEndDate *time.Time       `json:"warrantyEndDate"`
}

// Split returns (immediate, hold) for net. The two always sum to net exactly.
func (p SplitPolicy) Split(net decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	hold := decimal.Zero
	switch {
	case p.HoldAmount != nil:
		hold = RoundMoney(*p.HoldAmount)
	case p.HoldPercent != nil:
		hold = RoundMoney(net.Mul(*p.HoldPercent).Div(decimal.NewFromInt(100)))
	}
	return net.Sub(hold), hold
}

// PostCreditInput is the payload for crediting a wallet.
type PostCreditInput struct {
	Amount           decimal.Decimal  `json:"amount"`
	Reference        string           `json:"reference" binding:"required"`
	Description      string           `json:"description"`
	JobID            string           `json:"jobId"`
	GrossAmount      *decimal.Decimal `json:"grossAmount"`
	CommissionAmount *decimal.Decimal `json:"commissionAmount"`
	CommissionRuleID string           `json:"commissionRuleId"`
	Split            SplitPolicy      `json:"split"`
}

// CreditResult is what a credit posting produced.
type CreditResult struct {
	ImmediateEntry *LedgerEntry `json:"immediateEntry,omitempty"`
	HoldEntry      *LedgerEntry `json:"holdEntry,omitempty"`
	JobPayment     *JobPayment  `json:"jobPayment,omitempty"`
	Balance        *Balance     `json:"balance"`
}

// DebitInput is the payload for a non-withdrawal debit.
type DebitInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference" binding:"required"`
	Description string          `json:"description"`
	Category    EntryCategory   `json:"category"`
}

// HoldRelease is the outcome of releasing a warranty hold.
type HoldRelease struct {
	JobPayment  *JobPayment  `json:"jobPayment"`
	LockedDebit *LedgerEntry `json:"lockedDebit"`
	Entry       *LedgerEntry `json:"entry"`
	Balance     *Balance     `json:"balance"`
}

// LedgerVerification is a replay audit of a wallet's entries.
type LedgerVerification struct {
	WalletID          uuid.UUID       `json:"walletId"`
	EntryCount        int             `json:"entryCount"`
	Derived           *Balance        `json:"derived"`
	Cached            *Balance        `json:"cached"`
	CacheConsistent   bool            `json:"cacheConsistent"`
	NeverNegative     bool            `json:"neverNegative"`
	CreditsMinusDebit decimal.Decimal `json:"creditsMinusDebits"`
}

type WithdrawalStatus string

const (
	WithdrawalPending WithdrawalStatus = "PENDING"
	WithdrawalPaid    WithdrawalStatus = "PAID"
	WithdrawalFailed  WithdrawalStatus = "FAILED"
)

// WithdrawalRequest is a bank payout awaiting external reconciliation.
type WithdrawalRequest struct {
	ID                uuid.UUID        `json:"id"`
	WalletID          uuid.UUID        `json:"walletId"`
	Amount            decimal.Decimal  `json:"amount"`
	Status            WithdrawalStatus `json:"status"`
	BankAccountMasked string           `json:"bankAccountMasked"`
	DebitEntryID      uuid.UUID        `json:"debitEntryId"`
	ExternalReference null.String      `json:"externalReference,omitempty"`
	FailureReason     null.String      `json:"failureReason,omitempty"`
	ResolvedAt        null.Time        `json:"resolvedAt"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// WithdrawalCallbackInput is posted by the bank-transfer service.
type WithdrawalCallbackInput struct {
	Status            WithdrawalStatus `json:"status" binding:"required"`
	ExternalReference string           `json:"externalReference"`
	FailureReason     string           `json:"failureReason"`
}

// DebitResult is the outcome of a debit.
type DebitResult struct {
	Entry   *LedgerEntry `json:"entry"`
	Balance *Balance     `json:"balance"`
}

// WithdrawalInput is the payload for a withdrawal request.
type WithdrawalInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// ReleaseCursor marks the last hold a sweep page returned. Holds are ordered
// by warranty end date, then id.
type ReleaseCursor struct {
	WarrantyEndDate time.Time
	ID              uuid.UUID
}

// SweepResult summarizes one pass of automatic hold release.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
