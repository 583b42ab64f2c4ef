package main

import (
	"context"
	"flag"
	"fmt"
	"os"
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

	startFlag := flag.String("start", "", "range start as YYYY-MM-DD (default: all time)")
	endFlag := flag.String("end", "", "range end as YYYY-MM-DD (default: now)")
	flag.Parse()

	var rng domain.DateRange
	if *startFlag != "" {
		t, err := time.Parse("2006-01-02", *startFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -start: %v\n", err)
			os.Exit(1)
		}
		rng.Start = t
	}
	if *endFlag != "" {
		t, err := time.Parse("2006-01-02", *endFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -end: %v\n", err)
			os.Exit(1)
		}
		rng.End = t.AddDate(0, 0, 1).Add(-time.Second)
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

	repos := postgres.NewRepositories(db, logger)
	source := shopify.NewOrderSourceFromConfig(cfg.Shopify, logger)
	fetcher := shopify.NewOrderFetcher(source, shopify.DefaultRetryPolicy(), logger)
	reconciler := reconcile.NewReconciler(reconcile.Options{
		LegacyStatusOverride: cfg.Payout.LegacyRefundOverride,
	})
	dash := payout.NewDashboard(fetcher, reconciler, cfg.Payout.CommissionRate, repos, logger, time.Now)

	report, err := dash.Build(context.Background(), rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dashboard: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Range: %s to %s\n",
		report.DateRange.Start.Format("2006-01-02"), report.DateRange.End.Format("2006-01-02"))
	fmt.Printf("Orders: %d  Sales: %d\n", report.Stats.OrderCount, report.Stats.TotalSales)
	fmt.Printf("Revenue: %s  Refunds: %s  Net: %s  Commission: %s\n",
		report.Stats.TotalRevenue.StringFixed(2),
		report.Stats.TotalRefunds.StringFixed(2),
		report.Stats.NetRevenue.StringFixed(2),
		report.Stats.TotalCommission.StringFixed(2))

	fmt.Println("\nTop products:")
	for i, p := range report.Products {
		if i >= 10 {
			break
		}
		fmt.Printf("  %-40s sales=%-4d revenue=%s\n", p.Title, p.SalesCount, p.Revenue.StringFixed(2))
	}

	fmt.Println("\nSix-month trend:")
	for _, point := range report.SalesTrend {
		fmt.Printf("  %s  sales=%-4d revenue=%-10s refunds=%-10s net=%s\n",
			point.Month, point.Sales,
			point.Revenue.StringFixed(2), point.Refunds.StringFixed(2), point.NetRevenue.StringFixed(2))
	}
}
