package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/metrics"
	"settlement-core.backend/pkg/utils"
)

// LedgerConfig holds ledger limits.
type LedgerConfig struct {
	MinWithdrawal decimal.Decimal
}

// LedgerUsecase owns wallet balances, warranty holds and withdrawals.
// Every mutation of a wallet runs under the wallet lock and a transaction
// holding the wallet row lock.
type LedgerUsecase struct {
	uow         repositories.UnitOfWork
	wallets     repositories.WalletRepository
	entries     repositories.LedgerEntryRepository
	jobPayments repositories.JobPaymentRepository
	withdrawals repositories.WithdrawalRepository
	disputes    repositories.DisputeRepository
	locker      repositories.Locker
	cfg         LedgerConfig
	now         func() time.Time
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(
	uow repositories.UnitOfWork,
	wallets repositories.WalletRepository,
	entries repositories.LedgerEntryRepository,
	jobPayments repositories.JobPaymentRepository,
	withdrawals repositories.WithdrawalRepository,
	disputes repositories.DisputeRepository,
	locker repositories.Locker,
	cfg LedgerConfig,
) *LedgerUsecase {
	return &LedgerUsecase{
		uow:         uow,
		wallets:     wallets,
		entries:     entries,
		jobPayments: jobPayments,
		withdrawals: withdrawals,
		disputes:    disputes,
		locker:      locker,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (u *LedgerUsecase) WithClock(now func() time.Time) *LedgerUsecase {
	u.now = now
	return u
}

func walletLockKey(id uuid.UUID) string {
	return "wallet:" + id.String()
}

// walletTx carries the locked wallet and its running balance through a mutation.
type walletTx struct {
	ctx     context.Context
	wallet  *entities.Wallet
	balance *entities.Balance
	posted  []*entities.LedgerEntry
	at      time.Time
}

func (t *walletTx) apply(e *entities.LedgerEntry) {
	delta := e.Signed()
	available, locked := t.balance.Available, t.balance.Locked
	if e.Bucket == entities.BucketLocked {
		locked = locked.Add(delta)
	} else {
		available = available.Add(delta)
	}
	t.balance = entities.NewBalance(t.wallet.ID, available, locked)
}

// withWallet serializes fn against every other mutation of the wallet.
func (u *LedgerUsecase) withWallet(ctx context.Context, walletID uuid.UUID, fn func(tx *walletTx) error) error {
	unlock, err := u.locker.Lock(ctx, walletLockKey(walletID))
	if err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}
	defer unlock()

	var posted []*entities.LedgerEntry
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		wallet, err := u.wallets.GetForUpdate(txCtx, walletID)
		if err != nil {
			return err
		}
		totals, err := u.entries.SumByBucket(txCtx, walletID)
		if err != nil {
			return fmt.Errorf("sum ledger entries: %w", err)
		}
		tx := &walletTx{
			ctx:     txCtx,
			wallet:  wallet,
			balance: totals.Balance(walletID),
			at:      u.now().UTC(),
		}
		if err := fn(tx); err != nil {
			return err
		}
		if len(tx.posted) == 0 {
			return nil
		}
		if tx.balance.Available.IsNegative() || tx.balance.Locked.IsNegative() {
			return domainerrors.ErrInsufficientBalance
		}
		posted = tx.posted
		return u.wallets.UpdateBalances(txCtx, walletID, tx.balance.Available, tx.balance.Locked)
	})
	if err != nil {
		return err
	}
	for _, e := range posted {
		metrics.LedgerPostings.WithLabelValues(string(e.Category), string(e.Type)).Inc()
	}
	return nil
}

func (u *LedgerUsecase) newEntry(tx *walletTx, entryType entities.EntryType, bucket entities.Bucket, category entities.EntryCategory, amount decimal.Decimal, reference, description string) *entities.LedgerEntry {
	return &entities.LedgerEntry{
		ID:          utils.GenerateUUIDv7(),
		WalletID:    tx.wallet.ID,
		Type:        entryType,
		Bucket:      bucket,
		Category:    category,
		Amount:      amount,
		Description: description,
		Reference:   reference,
		Status:      entities.EntryStatusPosted,
		CreatedAt:   tx.at,
	}
}

func (u *LedgerUsecase) commit(tx *walletTx, entry *entities.LedgerEntry) error {
	if err := u.entries.Create(tx.ctx, entry); err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	tx.apply(entry)
	tx.posted = append(tx.posted, entry)
	return nil
}

// GetOrCreateWallet returns the owner's wallet, creating an empty one on first use.
func (u *LedgerUsecase) GetOrCreateWallet(ctx context.Context, ownerID string, ownerType entities.PartyType) (*entities.Wallet, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", domainerrors.ErrInvalidInput)
	}
	wallet, err := u.wallets.GetByOwner(ctx, ownerID, ownerType)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domainerrors.ErrWalletNotFound) {
		return nil, err
	}

	now := u.now().UTC()
	wallet = &entities.Wallet{
		ID:               utils.GenerateUUIDv7(),
		OwnerID:          ownerID,
		OwnerType:        ownerType,
		AvailableBalance: decimal.Zero,
		LockedBalance:    decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.wallets.Create(ctx, wallet); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return u.wallets.GetByOwner(ctx, ownerID, ownerType)
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	logger.Info(ctx, "Wallet created",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("owner_id", ownerID),
		zap.String("owner_type", string(ownerType)),
	)
	return wallet, nil
}

// GetWallet returns a wallet by id.
func (u *LedgerUsecase) GetWallet(ctx context.Context, walletID uuid.UUID) (*entities.Wallet, error) {
	return u.wallets.GetByID(ctx, walletID)
}

func validateCredit(input *entities.PostCreditInput) (immediate, hold decimal.Decimal, err error) {
	if input == nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: missing payload", domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Reference) == "" {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: reference is required", domainerrors.ErrInvalidInput)
	}
	amount := input.Amount
	if amount.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount must not be negative", domainerrors.ErrInvalidInput)
	}
	if amount.IsZero() && input.JobID == "" {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount must be positive", domainerrors.ErrInvalidInput)
	}
	if !entities.RoundMoney(amount).Equal(amount) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount has more than %d decimal places", domainerrors.ErrInvalidInput, entities.MoneyScale)
	}
	if p := input.Split.HoldPercent; p != nil && (p.IsNegative() || p.GreaterThan(hundred)) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: holdPercent must be between 0 and 100", domainerrors.ErrInvalidInput)
	}

	immediate, hold = input.Split.Split(amount)
	if hold.IsNegative() || hold.GreaterThan(amount) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: hold must be between 0 and the credited amount", domainerrors.ErrInvalidInput)
	}
	if hold.IsPositive() && input.Split.WarrantyEndDate == nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: warrantyEndDate is required when part of the credit is held", domainerrors.ErrInvalidInput)
	}
	if input.JobID != "" {
		gross, commission := jobAmounts(input)
		if commission.IsNegative() || commission.GreaterThan(gross) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: commission must be between 0 and gross", domainerrors.ErrInvalidInput)
		}
		if !gross.Sub(commission).Equal(amount) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount must equal gross minus commission", domainerrors.ErrInvalidInput)
		}
	}
	return immediate, hold, nil
}

func jobAmounts(input *entities.PostCreditInput) (gross, commission decimal.Decimal) {
	gross, commission = input.Amount, decimal.Zero
	if input.GrossAmount != nil {
		gross = *input.GrossAmount
	}
	if input.CommissionAmount != nil {
		commission = *input.CommissionAmount
	}
	return gross, commission
}

// PostCredit credits a wallet, splitting the amount into an immediately
// available part and a warranty hold. A JobPayment is recorded when the
// credit is for a job.
func (u *LedgerUsecase) PostCredit(ctx context.Context, walletID uuid.UUID, input *entities.PostCreditInput) (*entities.CreditResult, error) {
	immediate, hold, err := validateCredit(input)
	if err != nil {
		return nil, err
	}

	result := &entities.CreditResult{}
	err = u.withWallet(ctx, walletID, func(tx *walletTx) error {
		var paymentID null.String
		category := entities.CategoryAdjustment
		if input.JobID != "" {
			payment := u.newJobPayment(tx, input, immediate, hold)
			if err := u.jobPayments.Create(tx.ctx, payment); err != nil {
				return fmt.Errorf("record job payment: %w", err)
			}
			result.JobPayment = payment
			paymentID = null.StringFrom(payment.ID.String())
			category = entities.CategoryJobPayout
		}

		if immediate.IsPositive() {
			entry := u.newEntry(tx, entities.EntryCredit, entities.BucketAvailable, category, immediate, input.Reference, input.Description)
			entry.JobPaymentID = paymentID
			if err := u.commit(tx, entry); err != nil {
				return err
			}
			result.ImmediateEntry = entry
		}
		if hold.IsPositive() {
			desc := fmt.Sprintf("Warranty hold until %s", input.Split.WarrantyEndDate.UTC().Format(time.DateOnly))
			entry := u.newEntry(tx, entities.EntryCredit, entities.BucketLocked, entities.CategoryWarrantyHold, hold, input.Reference, desc)
			entry.JobPaymentID = paymentID
			if err := u.commit(tx, entry); err != nil {
				return err
			}
			result.HoldEntry = entry
		}
		result.Balance = tx.balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Credit posted",
		zap.String("wallet_id", walletID.String()),
		zap.String("reference", input.Reference),
		zap.String("immediate", immediate.StringFixed(entities.MoneyScale)),
		zap.String("hold", hold.StringFixed(entities.MoneyScale)),
	)
	return result, nil
}

func (u *LedgerUsecase) newJobPayment(tx *walletTx, input *entities.PostCreditInput, immediate, hold decimal.Decimal) *entities.JobPayment {
	gross, commission := jobAmounts(input)
	payment := &entities.JobPayment{
		ID:               utils.GenerateUUIDv7(),
		JobID:            input.JobID,
		WalletID:         tx.wallet.ID,
		GrossAmount:      gross,
		CommissionAmount: commission,
		ImmediatePayment: immediate,
		HoldAmount:       hold,
		Status:           entities.JobPaymentPaid,
		CreatedAt:        tx.at,
		UpdatedAt:        tx.at,
	}
	if input.CommissionRuleID != "" {
		payment.CommissionRuleID = null.StringFrom(input.CommissionRuleID)
	}
	if input.Split.WarrantyEndDate != nil {
		payment.WarrantyEndDate = null.TimeFrom(input.Split.WarrantyEndDate.UTC())
	}
	if hold.IsPositive() {
		payment.Status = entities.JobPaymentLocked
	}
	return payment
}

// ReleaseHold moves a job payment's held funds from locked to available.
// A hold is released at most once.
func (u *LedgerUsecase) ReleaseHold(ctx context.Context, jobPaymentID uuid.UUID, reason entities.ReleaseReason) (*entities.HoldRelease, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: reason must be WARRANTY_EXPIRED or DISPUTE_RESOLVED", domainerrors.ErrInvalidInput)
	}
	payment, err := u.jobPayments.GetByID(ctx, jobPaymentID)
	if err != nil {
		return nil, err
	}

	result := &entities.HoldRelease{}
	err = u.withWallet(ctx, payment.WalletID, func(tx *walletTx) error {
		current, err := u.jobPayments.GetByID(tx.ctx, jobPaymentID)
		if err != nil {
			return err
		}
		if err := u.checkReleasable(tx, current, reason); err != nil {
			return err
		}
		if err := u.jobPayments.MarkReleased(tx.ctx, current.ID, reason, tx.at); err != nil {
			return err
		}

		transferID := null.StringFrom(utils.GenerateUUIDv7().String())
		paymentID := null.StringFrom(current.ID.String())
		reference := "job:" + current.JobID
		desc := fmt.Sprintf("Hold released (%s)", reason)

		debit := u.newEntry(tx, entities.EntryDebit, entities.BucketLocked, entities.CategoryHoldRelease, current.HoldAmount, reference, desc)
		debit.TransferID, debit.JobPaymentID = transferID, paymentID
		if err := u.commit(tx, debit); err != nil {
			return err
		}
		credit := u.newEntry(tx, entities.EntryCredit, entities.BucketAvailable, entities.CategoryHoldRelease, current.HoldAmount, reference, desc)
		credit.TransferID, credit.JobPaymentID = transferID, paymentID
		if err := u.commit(tx, credit); err != nil {
			return err
		}

		current.Status = entities.JobPaymentPaid
		current.ReleasedAt = null.TimeFrom(tx.at)
		current.ReleaseReason = null.StringFrom(string(reason))
		current.UpdatedAt = tx.at
		result.JobPayment = current
		result.LockedDebit = debit
		result.Entry = credit
		result.Balance = tx.balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.HoldReleases.WithLabelValues(string(reason)).Inc()
	logger.Info(ctx, "Hold released",
		zap.String("job_payment_id", jobPaymentID.String()),
		zap.String("job_id", payment.JobID),
		zap.String("reason", string(reason)),
		zap.String("amount", payment.HoldAmount.StringFixed(entities.MoneyScale)),
	)
	return result, nil
}

func (u *LedgerUsecase) checkReleasable(tx *walletTx, p *entities.JobPayment, reason entities.ReleaseReason) error {
	if !p.HoldAmount.IsPositive() {
		return fmt.Errorf("%w: job payment has no hold", domainerrors.ErrHoldNotReleasable)
	}
	if p.Status != entities.JobPaymentLocked {
		return domainerrors.ErrHoldAlreadyReleased
	}
	if reason == entities.ReleaseWarrantyExpired {
		if !p.WarrantyEndDate.Valid || p.WarrantyEndDate.Time.After(tx.at) {
			return fmt.Errorf("%w: warranty is still active", domainerrors.ErrHoldNotReleasable)
		}
	}
	open, err := u.disputes.HasOpenDispute(tx.ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("check disputes: %w", err)
	}
	if open {
		return fmt.Errorf("%w: job has an open dispute", domainerrors.ErrHoldNotReleasable)
	}
	return nil
}

var debitCategories = map[entities.EntryCategory]bool{
	entities.CategoryAdjustment:           true,
	entities.CategoryCommissionChargeback: true,
}

// Debit removes funds from the available balance. Withdrawals go through RequestWithdrawal.
func (u *LedgerUsecase) Debit(ctx context.Context, walletID uuid.UUID, input *entities.DebitInput) (*entities.DebitResult, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: missing payload", domainerrors.ErrInvalidInput)
	}
	if !input.Amount.IsPositive() || !entities.RoundMoney(input.Amount).Equal(input.Amount) {
		return nil, fmt.Errorf("%w: amount must be positive with at most %d decimal places", domainerrors.ErrInvalidInput, entities.MoneyScale)
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, fmt.Errorf("%w: reference is required", domainerrors.ErrInvalidInput)
	}
	category := input.Category
	if category == "" {
		category = entities.CategoryAdjustment
	}
	if !debitCategories[category] {
		return nil, fmt.Errorf("%w: category must be ADJUSTMENT or COMMISSION_CHARGEBACK", domainerrors.ErrInvalidInput)
	}

	result := &entities.DebitResult{}
	err := u.withWallet(ctx, walletID, func(tx *walletTx) error {
		if input.Amount.GreaterThan(tx.balance.Available) {
			return fmt.Errorf("%w: available %s, requested %s", domainerrors.ErrInsufficientBalance,
				tx.balance.Available.StringFixed(entities.MoneyScale), input.Amount.StringFixed(entities.MoneyScale))
		}
		entry := u.newEntry(tx, entities.EntryDebit, entities.BucketAvailable, category, input.Amount, input.Reference, input.Description)
		if err := u.commit(tx, entry); err != nil {
			return err
		}
		result.Entry = entry
		result.Balance = tx.balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Debit posted",
		zap.String("wallet_id", walletID.String()),
		zap.String("category", string(category)),
		zap.String("amount", input.Amount.StringFixed(entities.MoneyScale)),
	)
	return result, nil
}

// Balance derives the wallet balance from its entries. A cached balance that
// disagrees is logged; the derived value is authoritative.
func (u *LedgerUsecase) Balance(ctx context.Context, walletID uuid.UUID) (*entities.Balance, error) {
	wallet, err := u.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	totals, err := u.entries.SumByBucket(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger entries: %w", err)
	}
	derived := totals.Balance(walletID)
	if !derived.Available.Equal(wallet.AvailableBalance) || !derived.Locked.Equal(wallet.LockedBalance) {
		logger.Warn(ctx, "Cached wallet balance diverges from ledger",
			zap.String("wallet_id", walletID.String()),
			zap.String("cached_available", wallet.AvailableBalance.String()),
			zap.String("derived_available", derived.Available.String()),
			zap.String("cached_locked", wallet.LockedBalance.String()),
			zap.String("derived_locked", derived.Locked.String()),
		)
	}
	return derived, nil
}

// Entries lists a wallet's ledger entries, newest first.
func (u *LedgerUsecase) Entries(ctx context.Context, walletID uuid.UUID, pagination utils.PaginationParams) ([]*entities.LedgerEntry, int64, error) {
	if _, err := u.wallets.GetByID(ctx, walletID); err != nil {
		return nil, 0, err
	}
	return u.entries.ListByWallet(ctx, walletID, pagination)
}

// Verify replays every entry of the wallet in posting order.
func (u *LedgerUsecase) Verify(ctx context.Context, walletID uuid.UUID) (*entities.LedgerVerification, error) {
	wallet, err := u.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	entries, err := u.entries.ListAllByWallet(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	available, locked, net := decimal.Zero, decimal.Zero, decimal.Zero
	neverNegative := true
	for _, e := range entries {
		if e.Bucket == entities.BucketLocked {
			locked = locked.Add(e.Signed())
		} else {
			available = available.Add(e.Signed())
		}
		net = net.Add(e.Signed())
		if available.IsNegative() || locked.IsNegative() {
			neverNegative = false
		}
	}

	derived := entities.NewBalance(walletID, available, locked)
	cached := entities.NewBalance(walletID, wallet.AvailableBalance, wallet.LockedBalance)
	v := &entities.LedgerVerification{
		WalletID:          walletID,
		EntryCount:        len(entries),
		Derived:           derived,
		Cached:            cached,
		CacheConsistent:   derived.Available.Equal(cached.Available) && derived.Locked.Equal(cached.Locked),
		NeverNegative:     neverNegative,
		CreditsMinusDebit: net,
	}
	if !v.CacheConsistent || !v.NeverNegative {
		logger.Warn(ctx, "Ledger verification found problems",
			zap.String("wallet_id", walletID.String()),
			zap.Bool("cache_consistent", v.CacheConsistent),
			zap.Bool("never_negative", v.NeverNegative),
		)
	}
	return v, nil
}

// RequestWithdrawal debits the available balance and records a PENDING
// withdrawal for the bank-transfer service. Checks run in a fixed order so
// the caller sees the first failing reason: minimum, bank details, balance.
func (u *LedgerUsecase) RequestWithdrawal(ctx context.Context, walletID uuid.UUID, input *entities.WithdrawalInput) (*entities.WithdrawalRequest, error) {
	if input == nil || !input.Amount.IsPositive() || !entities.RoundMoney(input.Amount).Equal(input.Amount) {
		return nil, fmt.Errorf("%w: amount must be positive with at most %d decimal places", domainerrors.ErrInvalidInput, entities.MoneyScale)
	}
	if input.Amount.LessThan(u.cfg.MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum is %s", domainerrors.ErrBelowMinimumWithdrawal, u.cfg.MinWithdrawal.StringFixed(entities.MoneyScale))
	}

	var request *entities.WithdrawalRequest
	err := u.withWallet(ctx, walletID, func(tx *walletTx) error {
		if !tx.wallet.HasBankDetails() {
			return domainerrors.ErrBankDetailsMissing
		}
		if input.Amount.GreaterThan(tx.balance.Available) {
			return fmt.Errorf("%w: available %s, requested %s", domainerrors.ErrInsufficientBalance,
				tx.balance.Available.StringFixed(entities.MoneyScale), input.Amount.StringFixed(entities.MoneyScale))
		}

		withdrawalID := utils.GenerateUUIDv7()
		entry := u.newEntry(tx, entities.EntryDebit, entities.BucketAvailable, entities.CategoryWithdrawal, input.Amount,
			"withdrawal:"+withdrawalID.String(), "Withdrawal to "+tx.wallet.MaskedBankAccount())
		entry.WithdrawalID = null.StringFrom(withdrawalID.String())
		if err := u.commit(tx, entry); err != nil {
			return err
		}

		request = &entities.WithdrawalRequest{
			ID:                withdrawalID,
			WalletID:          tx.wallet.ID,
			Amount:            input.Amount,
			Status:            entities.WithdrawalPending,
			BankAccountMasked: tx.wallet.MaskedBankAccount(),
			DebitEntryID:      entry.ID,
			CreatedAt:         tx.at,
			UpdatedAt:         tx.at,
		}
		if err := u.withdrawals.Create(tx.ctx, request); err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Withdrawals.WithLabelValues(string(entities.WithdrawalPending)).Inc()
	logger.Info(ctx, "Withdrawal requested",
		zap.String("wallet_id", walletID.String()),
		zap.String("withdrawal_id", request.ID.String()),
		zap.String("amount", request.Amount.StringFixed(entities.MoneyScale)),
	)
	return request, nil
}

// WithdrawalCallback reconciles a withdrawal with the bank-transfer outcome.
// FAILED posts a compensating credit. Repeating the recorded outcome is a no-op.
func (u *LedgerUsecase) WithdrawalCallback(ctx context.Context, id uuid.UUID, input *entities.WithdrawalCallbackInput) (*entities.WithdrawalRequest, error) {
	if input == nil || (input.Status != entities.WithdrawalPaid && input.Status != entities.WithdrawalFailed) {
		return nil, fmt.Errorf("%w: status must be PAID or FAILED", domainerrors.ErrInvalidInput)
	}
	existing, err := u.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == input.Status {
		return existing, nil
	}

	var resolved *entities.WithdrawalRequest
	err = u.withWallet(ctx, existing.WalletID, func(tx *walletTx) error {
		current, err := u.withdrawals.GetByID(tx.ctx, id)
		if err != nil {
			return err
		}
		if current.Status == input.Status {
			resolved = current
			return nil
		}
		if err := u.withdrawals.Resolve(tx.ctx, id, input.Status, input.ExternalReference, input.FailureReason, tx.at); err != nil {
			return err
		}
		if input.Status == entities.WithdrawalFailed {
			entry := u.newEntry(tx, entities.EntryCredit, entities.BucketAvailable, entities.CategoryWithdrawalReversal, current.Amount,
				"withdrawal:"+id.String(), "Withdrawal failed: "+input.FailureReason)
			entry.WithdrawalID = null.StringFrom(id.String())
			if err := u.commit(tx, entry); err != nil {
				return err
			}
		}
		resolved, err = u.withdrawals.GetByID(tx.ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Withdrawals.WithLabelValues(string(input.Status)).Inc()
	logger.Info(ctx, "Withdrawal resolved",
		zap.String("withdrawal_id", id.String()),
		zap.String("status", string(input.Status)),
	)
	return resolved, nil
}

// ListWithdrawals lists a wallet's withdrawal requests.
func (u *LedgerUsecase) ListWithdrawals(ctx context.Context, walletID uuid.UUID) ([]*entities.WithdrawalRequest, error) {
	if _, err := u.wallets.GetByID(ctx, walletID); err != nil {
		return nil, err
	}
	return u.withdrawals.ListByWallet(ctx, walletID)
}

// defaultSweepLimit bounds a sweep when the caller gives no limit.
const defaultSweepLimit = 100

// SweepReleasableHolds releases up to limit holds whose warranty has ended,
// reading them in pages of limit. Holds on jobs with an open dispute, and holds
// that fail to release, are passed over and retried on a later sweep.
func (u *LedgerUsecase) SweepReleasableHolds(ctx context.Context, limit int) (*entities.SweepResult, error) {
	if limit < 1 {
		limit = defaultSweepLimit
	}
	cutoff := u.now().UTC()
	result := &entities.SweepResult{}
	var cursor *entities.ReleaseCursor
	for result.Released < limit {
		payments, err := u.jobPayments.ListReleasable(ctx, cutoff, cursor, limit)
		if err != nil {
			return result, fmt.Errorf("list releasable holds: %w", err)
		}
		if len(payments) == 0 {
			break
		}
		last := payments[len(payments)-1]
		cursor = &entities.ReleaseCursor{WarrantyEndDate: last.WarrantyEndDate.Time, ID: last.ID}

		for _, p := range payments {
			if result.Released >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Scanned++
			u.sweepOne(ctx, p, result)
		}
		if len(payments) < limit {
			break
		}
	}
	return result, nil
}

func (u *LedgerUsecase) sweepOne(ctx context.Context, p *entities.JobPayment, result *entities.SweepResult) {
	open, err := u.disputes.HasOpenDispute(ctx, p.JobID)
	if err != nil {
		result.Failed++
		logger.Error(ctx, "Dispute check failed", zap.String("job_id", p.JobID), zap.Error(err))
		return
	}
	if open {
		result.Skipped++
		return
	}

	_, err = u.ReleaseHold(ctx, p.ID, entities.ReleaseWarrantyExpired)
	switch {
	case err == nil:
		result.Released++
	case errors.Is(err, domainerrors.ErrHoldAlreadyReleased), errors.Is(err, domainerrors.ErrHoldNotReleasable):
		result.Skipped++
	default:
		result.Failed++
		logger.Error(ctx, "Hold release failed",
			zap.String("job_payment_id", p.ID.String()),
			zap.Error(err),
		)
	}
}
