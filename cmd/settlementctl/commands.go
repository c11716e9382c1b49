package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"settlement-core.backend/internal/domain/entities"
)

const dateLayout = "2006-01-02"

var errLedgerMismatch = errors.New("ledger verification failed")

func newMigrateCommand(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables owned by the settlement core",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if err := rt.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations executed successfully.")
			return nil
		}),
	}
}

func newSweepHoldsCommand(with runtimeWrapper) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sweep-holds",
		Short: "Release warranty holds whose warranty period has ended",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if limit <= 0 {
				limit = rt.cfg.Jobs.BatchSize
			}
			res, err := rt.services.Ledger.SweepReleasableHolds(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum holds to examine (defaults to JOB_BATCH_SIZE)")
	return cmd
}

func newGenerateSettlementsCommand(with runtimeWrapper) *cobra.Command {
	var start, end string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "generate-settlements",
		Short: "Create settlement batches for every seller with unsettled sales in a period",
		Long: `Create settlement batches for a period. Without --start and --end the
last completed settlement period is used. Existing batches are left untouched.`,
		Args: cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			from, to := rt.services.Settlement.LastCompletedPeriod()
			if start != "" || end != "" {
				var err error
				if from, to, err = parsePeriod(start, end); err != nil {
					return err
				}
			}
			if concurrency <= 0 {
				concurrency = rt.cfg.Jobs.Concurrency
			}
			res, err := rt.services.Settlement.GenerateForPeriod(cmd.Context(), from, to, concurrency)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day of the period, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "sellers processed in parallel (defaults to JOB_CONCURRENCY)")
	return cmd
}

func parsePeriod(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errors.New("--start and --end must be given together")
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("--end is before --start")
	}
	return from, to, nil
}

func newSeedRulesCommand(with runtimeWrapper) *cobra.Command {
	var file, createdBy string
	cmd := &cobra.Command{
		Use:   "seed-rules",
		Short: "Create commission rules from a YAML file",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			inputs, err := loadRuleSeed(file)
			if err != nil {
				return err
			}
			for _, in := range inputs {
				in.CreatedBy = createdBy
			}
			created, err := rt.services.Commission.SeedRules(cmd.Context(), inputs)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d of %d commission rules.\n", created, len(inputs))
			return err
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	cmd.Flags().StringVar(&createdBy, "created-by", "settlementctl", "recorded as the rule author")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVerifyLedgerCommand(with runtimeWrapper) *cobra.Command {
	var wallets []string
	cmd := &cobra.Command{
		Use:   "verify-ledger",
		Short: "Replay wallet entries and compare them with the cached balances",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			failed := 0
			reports := make([]*entities.LedgerVerification, 0, len(wallets))
			for _, raw := range wallets {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid wallet id %q: %w", raw, err)
				}
				report, err := rt.services.Ledger.Verify(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("wallet %s: %w", id, err)
				}
				if !report.CacheConsistent || !report.NeverNegative {
					failed++
				}
				reports = append(reports, report)
			}
			if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d wallets", errLedgerMismatch, failed, len(wallets))
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&wallets, "wallet", "w", nil, "wallet id to verify (repeatable)")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}
