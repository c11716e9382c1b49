package usecases_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/volatiletech/null/v8"
	"settlement-core.backend/internal/domain/entities"
	domainerrors "settlement-core.backend/internal/domain/errors"
	"settlement-core.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// passthroughUoW runs the callback directly, for fakes that keep their own consistency.
type passthroughUoW struct{}

func (passthroughUoW) Do(ctx context.Context, f func(context.Context) error) error {
	return f(ctx)
}

// Mock CommissionRuleRepository
type MockCommissionRuleRepository struct {
	mock.Mock
}

func (m *MockCommissionRuleRepository) Create(ctx context.Context, rule *entities.CommissionRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockCommissionRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.CommissionRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CommissionRule), args.Error(1)
}

func (m *MockCommissionRuleRepository) List(ctx context.Context, activeOnly bool, pagination utils.PaginationParams) ([]*entities.CommissionRule, int64, error) {
	args := m.Called(ctx, activeOnly, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.CommissionRule), args.Get(1).(int64), args.Error(2)
}

func (m *MockCommissionRuleRepository) ListEffective(ctx context.Context, at time.Time) ([]*entities.CommissionRule, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CommissionRule), args.Error(1)
}

func (m *MockCommissionRuleRepository) DeactivateDefaults(ctx context.Context, keepID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, keepID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRuleRepository) EndDefaults(ctx context.Context, keepID uuid.UUID, endAt, at time.Time) (int64, error) {
	args := m.Called(ctx, keepID, endAt, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommissionRuleRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetTechnician(ctx context.Context, id string) (*entities.TechnicianProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TechnicianProfile), args.Error(1)
}

func (m *MockProfileRepository) GetDealer(ctx context.Context, id string) (*entities.DealerProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DealerProfile), args.Error(1)
}

func (m *MockProfileRepository) ReviewAverage(ctx context.Context, role entities.PartyType, partyID string) (*float64, error) {
	args := m.Called(ctx, role, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*float64), args.Error(1)
}

func (m *MockProfileRepository) TechnicianJobCounts(ctx context.Context, id string) (*entities.JobCounts, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.JobCounts), args.Error(1)
}

func (m *MockProfileRepository) DealerJobCounts(ctx context.Context, id string) (*entities.JobCounts, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.JobCounts), args.Error(1)
}

// Mock DisputeRepository
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) HasOpenDispute(ctx context.Context, jobID string) (bool, error) {
	args := m.Called(ctx, jobID)
	return args.Bool(0), args.Error(1)
}

// Mock SellerSaleRepository
type MockSellerSaleRepository struct {
	mock.Mock
}

func (m *MockSellerSaleRepository) ListUnsettled(ctx context.Context, sellerID string, start, end time.Time) ([]*entities.SellerSale, error) {
	args := m.Called(ctx, sellerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SellerSale), args.Error(1)
}

func (m *MockSellerSaleRepository) ListSellersWithUnsettled(ctx context.Context, start, end time.Time) ([]string, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSellerSaleRepository) MarkSettled(ctx context.Context, saleIDs []uuid.UUID, settlementID uuid.UUID) error {
	args := m.Called(ctx, saleIDs, settlementID)
	return args.Error(0)
}

// memLedger is an in-memory wallet, entry, job payment and withdrawal store.
type memLedger struct {
	mu          sync.Mutex
	wallets     map[uuid.UUID]*entities.Wallet
	entries     []*entities.LedgerEntry
	payments    map[uuid.UUID]*entities.JobPayment
	withdrawals map[uuid.UUID]*entities.WithdrawalRequest
	openJobs    map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		wallets:     map[uuid.UUID]*entities.Wallet{},
		payments:    map[uuid.UUID]*entities.JobPayment{},
		withdrawals: map[uuid.UUID]*entities.WithdrawalRequest{},
		openJobs:    map[string]bool{},
	}
}

func (s *memLedger) addWallet(owner string, bank bool) *entities.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &entities.Wallet{ID: uuid.New(), OwnerID: owner, OwnerType: entities.PartyTechnician}
	if bank {
		w.BankAccountNumber = null.StringFrom("000123456789")
		w.BankRoutingCode = null.StringFrom("HDFC0001234")
	}
	s.wallets[w.ID] = w
	copied := *w
	return &copied
}

func (s *memLedger) setOpenDispute(jobID string, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openJobs[jobID] = open
}

type memWallets struct{ *memLedger }

func (r memWallets) Create(_ context.Context, w *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.OwnerType == w.OwnerType {
			return domainerrors.ErrAlreadyExists
		}
	}
	copied := *w
	r.wallets[w.ID] = &copied
	return nil
}

func (r memWallets) GetByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, domainerrors.ErrWalletNotFound
	}
	copied := *w
	return &copied, nil
}

func (r memWallets) GetByOwner(_ context.Context, ownerID string, ownerType entities.PartyType) (*entities.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			copied := *w
			return &copied, nil
		}
	}
	return nil, domainerrors.ErrWalletNotFound
}

func (r memWallets) GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r memWallets) UpdateBalances(_ context.Context, id uuid.UUID, available, locked decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return domainerrors.ErrWalletNotFound
	}
	w.AvailableBalance, w.LockedBalance = available, locked
	return nil
}

type memEntries struct{ *memLedger }

func (r memEntries) Create(_ context.Context, e *entities.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *e
	r.entries = append(r.entries, &copied)
	return nil
}

func (r memEntries) SumByBucket(_ context.Context, walletID uuid.UUID) (*entities.BucketTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &entities.BucketTotals{}
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		switch {
		case e.Bucket == entities.BucketAvailable && e.Type == entities.EntryCredit:
			t.AvailableCredits = t.AvailableCredits.Add(e.Amount)
		case e.Bucket == entities.BucketAvailable:
			t.AvailableDebits = t.AvailableDebits.Add(e.Amount)
		case e.Type == entities.EntryCredit:
			t.LockedCredits = t.LockedCredits.Add(e.Amount)
		default:
			t.LockedDebits = t.LockedDebits.Add(e.Amount)
		}
	}
	return t, nil
}

func (r memEntries) ListByWallet(ctx context.Context, walletID uuid.UUID, _ utils.PaginationParams) ([]*entities.LedgerEntry, int64, error) {
	all, _ := r.ListAllByWallet(ctx, walletID)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, int64(len(all)), nil
}

func (r memEntries) ListAllByWallet(_ context.Context, walletID uuid.UUID) ([]*entities.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.LedgerEntry
	for _, e := range r.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memJobPayments struct{ *memLedger }

func (r memJobPayments) Create(_ context.Context, p *entities.JobPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.JobID == p.JobID {
			return domainerrors.ErrAlreadyExists
		}
	}
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r memJobPayments) GetByID(_ context.Context, id uuid.UUID) (*entities.JobPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r memJobPayments) GetByJobID(_ context.Context, jobID string) (*entities.JobPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.JobID == jobID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r memJobPayments) MarkReleased(_ context.Context, id uuid.UUID, reason entities.ReleaseReason, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if p.Status != entities.JobPaymentLocked {
		return domainerrors.ErrHoldAlreadyReleased
	}
	p.Status = entities.JobPaymentPaid
	p.ReleasedAt = null.TimeFrom(at)
	p.ReleaseReason = null.StringFrom(string(reason))
	return nil
}

// ListReleasable does not filter disputed jobs, so the usecase's own check is exercised.
func (r memJobPayments) ListReleasable(_ context.Context, cutoff time.Time, after *entities.ReleaseCursor, limit int) ([]*entities.JobPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	less := func(endA time.Time, idA uuid.UUID, endB time.Time, idB uuid.UUID) bool {
		if !endA.Equal(endB) {
			return endA.Before(endB)
		}
		return idA.String() < idB.String()
	}
	var out []*entities.JobPayment
	for _, p := range r.payments {
		if p.Status != entities.JobPaymentLocked || !p.WarrantyEndDate.Valid || p.WarrantyEndDate.Time.After(cutoff) {
			continue
		}
		if after != nil && !less(after.WarrantyEndDate, after.ID, p.WarrantyEndDate.Time, p.ID) {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i].WarrantyEndDate.Time, out[i].ID, out[j].WarrantyEndDate.Time, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memWithdrawals struct{ *memLedger }

func (r memWithdrawals) Create(_ context.Context, w *entities.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *w
	r.withdrawals[w.ID] = &copied
	return nil
}

func (r memWithdrawals) GetByID(_ context.Context, id uuid.UUID) (*entities.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (r memWithdrawals) ListByWallet(_ context.Context, walletID uuid.UUID) ([]*entities.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.WithdrawalRequest
	for _, w := range r.withdrawals {
		if w.WalletID == walletID {
			copied := *w
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r memWithdrawals) Resolve(_ context.Context, id uuid.UUID, status entities.WithdrawalStatus, externalRef, failureReason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if w.Status != entities.WithdrawalPending {
		return domainerrors.ErrInvalidTransition
	}
	w.Status = status
	w.ExternalReference = null.NewString(externalRef, externalRef != "")
	w.FailureReason = null.NewString(failureReason, failureReason != "")
	w.ResolvedAt = null.TimeFrom(at)
	return nil
}

type memDisputes struct{ *memLedger }

func (r memDisputes) HasOpenDispute(_ context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openJobs[jobID], nil
}

// memSettlements is an in-memory SettlementRepository with version checks.
type memSettlements struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entities.Settlement
	// casHook runs before each compare-and-swap, outside the lock.
	casHook func()
}

func newMemSettlements() *memSettlements {
	return &memSettlements{byID: map[uuid.UUID]*entities.Settlement{}}
}

type settlementJournalKey struct{}

// memSettlementsUoW removes the settlements a failed unit of work created.
type memSettlementsUoW struct{ repo *memSettlements }

func (u memSettlementsUoW) Do(ctx context.Context, f func(context.Context) error) error {
	var created []uuid.UUID
	if err := f(context.WithValue(ctx, settlementJournalKey{}, &created)); err != nil {
		u.repo.mu.Lock()
		for _, id := range created {
			delete(u.repo.byID, id)
		}
		u.repo.mu.Unlock()
		return err
	}
	return nil
}

func (r *memSettlements) Create(ctx context.Context, s *entities.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.SellerID == s.SellerID && existing.Period == s.Period {
			return domainerrors.ErrAlreadyExists
		}
	}
	copied := *s
	r.byID[s.ID] = &copied
	if journal, ok := ctx.Value(settlementJournalKey{}).(*[]uuid.UUID); ok {
		*journal = append(*journal, s.ID)
	}
	return nil
}

func (r *memSettlements) GetByID(_ context.Context, id uuid.UUID) (*entities.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memSettlements) GetBySellerPeriod(_ context.Context, sellerID, period string) (*entities.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.SellerID == sellerID && s.Period == period {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memSettlements) List(_ context.Context, filter entities.SettlementFilter, _ utils.PaginationParams) ([]*entities.Settlement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Settlement
	for _, s := range r.byID {
		if (filter.SellerID == "" || s.SellerID == filter.SellerID) && (filter.Status == "" || s.Status == filter.Status) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memSettlements) CompareAndSwap(_ context.Context, s *entities.Settlement, expectedVersion int) error {
	if r.casHook != nil {
		r.casHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[s.ID]
	if !ok {
		return domainerrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domainerrors.ErrConcurrentUpdate
	}
	s.Recompute()
	s.Version = expectedVersion + 1
	copied := *s
	r.byID[s.ID] = &copied
	return nil
}
