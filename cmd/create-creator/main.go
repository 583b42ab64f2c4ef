package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/makerstall/payoutsapi/internal/config"
	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	nameFlag := flag.String("name", "", "Creator display name")
	emailFlag := flag.String("email", "", "Creator email")
	methodFlag := flag.String("method", "iban", "Payout method: iban or paypal")
	currencyFlag := flag.String("currency", "", "Payout currency (e.g. EUR); empty uses the shop base currency")
	rateFlag := flag.String("rate", "", "Commission rate override (e.g. 0.25); empty uses the shop default")
	thresholdFlag := flag.String("threshold", "", "Minimum payout override (e.g. 50.00); empty uses the shop default")
	flag.Parse()

	name := strings.TrimSpace(*nameFlag)
	email := strings.TrimSpace(*emailFlag)
	if name == "" || email == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/create-creator/main.go --name \"Creator Name\" --email creator@example.com [--method iban|paypal] [--currency EUR] [--rate 0.25] [--threshold 50.00]")
		os.Exit(1)
	}
	method := domain.PayoutMethod(strings.ToLower(strings.TrimSpace(*methodFlag)))
	if !method.IsValid() {
		fmt.Fprintf(os.Stderr, "Error: invalid payout method %q\n", *methodFlag)
		os.Exit(1)
	}
	currency := strings.ToUpper(strings.TrimSpace(*currencyFlag))
	if currency != "" && len(currency) != 3 {
		fmt.Fprintf(os.Stderr, "Error: currency must be a 3-letter code\n")
		os.Exit(1)
	}

	var rateArg, thresholdArg interface{}
	if raw := strings.TrimSpace(*rateFlag); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			fmt.Fprintf(os.Stderr, "Error: rate must be a decimal between 0 and 1\n")
			os.Exit(1)
		}
		rateArg = rate
	}
	if raw := strings.TrimSpace(*thresholdFlag); raw != "" {
		threshold, err := decimal.NewFromString(raw)
		if err != nil || threshold.IsNegative() {
			fmt.Fprintf(os.Stderr, "Error: threshold must be a non-negative decimal\n")
			os.Exit(1)
		}
		thresholdArg = threshold
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	id := uuid.New()
	var currencyArg interface{}
	if currency != "" {
		currencyArg = currency
	}
	query := `
		INSERT INTO creators (id, name, email, payout_method, payout_currency, commission_rate, min_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
	`
	if _, err := db.ExecContext(context.Background(), query, id, name, email, string(method), currencyArg, rateArg, thresholdArg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create creator: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Creator created successfully!")
	fmt.Printf("  ID:     %s\n", id)
	fmt.Printf("  Name:   %s\n", name)
	fmt.Printf("  Email:  %s\n", email)
	fmt.Printf("  Method: %s\n", method)
	if currency != "" {
		fmt.Printf("  Currency: %s\n", currency)
	}
	if rate, ok := rateArg.(decimal.Decimal); ok {
		fmt.Printf("  Rate:   %s\n", rate)
	}
	if threshold, ok := thresholdArg.(decimal.Decimal); ok {
		fmt.Printf("  Threshold: %s\n", threshold)
	}
}
