package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/config"
	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/payout"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository/postgres"
	"github.com/makerstall/payoutsapi/internal/shopify"
)

func main() {
	_ = godotenv.Load()

	periodFlag := flag.String("period", "", "payout period as YYYY-MM (default: previous month)")
	manualFlag := flag.String("manual", "", "manual override amounts as creator_id:amount,creator_id:amount")
	yesFlag := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	period, err := resolvePeriod(*periodFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid period: %v\n", err)
		os.Exit(1)
	}
	overrides, err := payout.ParseOverrides(*manualFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid manual amounts: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if !*yesFlag && !confirm(period) {
		fmt.Println("Aborted.")
		os.Exit(0)
	}

	gen := buildGenerator(cfg, db, logger)

	batch, err := gen.Generate(context.Background(), period, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		os.Exit(1)
	}

	created, skipped, failed := 0, 0, 0
	for _, r := range batch.Results {
		switch {
		case r.Error != "":
			failed++
			fmt.Printf("  ✗ %s (%s): %s\n", r.CreatorName, r.CreatorID, r.Error)
		case r.Message != "":
			skipped++
			fmt.Printf("  - %s (%s): %s\n", r.CreatorName, r.CreatorID, r.Message)
		default:
			created++
			fmt.Printf("  ✓ %s (%s): %s %s\n", r.CreatorName, r.CreatorID, r.Amount.StringFixed(2), r.Currency)
		}
	}
	fmt.Printf("Done: %d payouts created, %d skipped, %d failed\n", created, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func confirm(period domain.Period) bool {
	fmt.Printf("Generate payouts for %s to %s? This writes payout rows. [y/N] ",
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func resolvePeriod(raw string) (domain.Period, error) {
	if raw == "" {
		return domain.PreviousMonthPeriod(time.Now().UTC()), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return domain.Period{}, fmt.Errorf("expected YYYY-MM, got %q", raw)
	}
	return domain.PeriodForMonth(t.Year(), t.Month()), nil
}

func buildGenerator(cfg *config.Config, db *sql.DB, logger *zap.Logger) *payout.Generator {
	repos := postgres.NewRepositories(db, logger)
	source := shopify.NewOrderSourceFromConfig(cfg.Shopify, logger)
	fetcher := shopify.NewOrderFetcher(source, shopify.DefaultRetryPolicy(), logger)
	reconciler := reconcile.NewReconciler(reconcile.Options{
		LegacyStatusOverride: cfg.Payout.LegacyRefundOverride,
	})
	calc := payout.Calculator{
		Rate:         cfg.Payout.CommissionRate,
		MinThreshold: cfg.Payout.MinThreshold,
		BaseCurrency: cfg.Payout.BaseCurrency,
	}
	return payout.NewGenerator(fetcher, reconciler, calc, repos, logger)
}
