// Package app assembles repositories and usecases for the server and the CLI.
package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"settlement-core.backend/internal/config"
	domainrepos "settlement-core.backend/internal/domain/repositories"
	"settlement-core.backend/internal/infrastructure/repositories"
	"settlement-core.backend/internal/usecases"
	"settlement-core.backend/pkg/lock"
	redispkg "settlement-core.backend/pkg/redis"
)

const walletLockPrefix = "settlement:lock:"

// Services holds every usecase the transports need.
type Services struct {
	Commission *usecases.CommissionUsecase
	TrustScore *usecases.TrustScoreUsecase
	Ledger     *usecases.LedgerUsecase
	Payout     *usecases.PayoutUsecase
	Settlement *usecases.SettlementUsecase
}

// NewLocker picks the wallet lock backend. The redis backend is required when
// more than one instance writes to the same database.
func NewLocker(cfg config.LedgerConfig, client *goredis.Client) (domainrepos.Locker, error) {
	switch cfg.LockBackend {
	case "", config.LockBackendMemory:
		return lock.NewKeyedMutex(), nil
	case config.LockBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("lock backend %q needs REDIS_URL", cfg.LockBackend)
		}
		return redispkg.NewLocker(client, walletLockPrefix, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

// NewServices wires gorm repositories into the usecases.
func NewServices(db *gorm.DB, cfg *config.Config, locker domainrepos.Locker) *Services {
	uow := repositories.NewUnitOfWork(db)
	ruleRepo := repositories.NewCommissionRuleRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	entryRepo := repositories.NewLedgerEntryRepository(db)
	jobPaymentRepo := repositories.NewJobPaymentRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	disputeRepo := repositories.NewDisputeRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	settlementRepo := repositories.NewSettlementRepository(db)
	saleRepo := repositories.NewSellerSaleRepository(db)

	commission := usecases.NewCommissionUsecase(ruleRepo, uow)
	ledger := usecases.NewLedgerUsecase(uow, walletRepo, entryRepo, jobPaymentRepo, withdrawalRepo, disputeRepo, locker, usecases.LedgerConfig{
		MinWithdrawal: cfg.Ledger.MinWithdrawal,
	})

	return &Services{
		Commission: commission,
		TrustScore: usecases.NewTrustScoreUsecase(profileRepo),
		Ledger:     ledger,
		Payout: usecases.NewPayoutUsecase(commission, ledger, jobPaymentRepo, usecases.PayoutConfig{
			DefaultHoldPercent:  cfg.Ledger.DefaultHoldPercent,
			DefaultWarrantyDays: cfg.Ledger.DefaultWarrantyDays,
		}),
		Settlement: usecases.NewSettlementUsecase(settlementRepo, saleRepo, uow, usecases.SettlementConfig{
			DefaultCycle: cfg.Settlement.DefaultCycle,
			PeriodDays:   cfg.Settlement.PeriodDays,
		}),
	}
}
