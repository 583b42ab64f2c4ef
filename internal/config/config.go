package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	Shopify     ShopifyConfig
	Payout      PayoutConfig
	API         APIConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	// Transport picks the order API: "graphql" (cursor pagination) or
	// "rest" (page-number pagination, for shops without GraphQL access).
	Transport string
}

// PayoutConfig holds the reconciliation and payout knobs.
type PayoutConfig struct {
	CommissionRate decimal.Decimal // fixed creator commission rate, default 0.30
	MinThreshold   decimal.Decimal // minimum commission (in base currency) to create a payout
	BaseCurrency   string          // shop base currency, default GBP
	// LegacyRefundOverride preserves the historical behavior where a
	// refunded/partially_refunded order status overrides line-item refund
	// amounts with a full refund of the product's gross.
	LegacyRefundOverride bool
}

type APIConfig struct {
	AdminKeyHash string // bcrypt hash of the admin API key; empty disables admin routes
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("COMMISSION_RATE", "0.30")
	viper.SetDefault("PAYOUT_MIN_THRESHOLD", "20.00")
	viper.SetDefault("SHOP_CURRENCY", "GBP")
	viper.SetDefault("RECONCILE_LEGACY_REFUND_OVERRIDE", "true")
	viper.SetDefault("SHOPIFY_TRANSPORT", "graphql")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	rate, err := decimal.NewFromString(getEnvOrViper("COMMISSION_RATE", "0.30"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_RATE: %w", err)
	}
	threshold, err := decimal.NewFromString(getEnvOrViper("PAYOUT_MIN_THRESHOLD", "20.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYOUT_MIN_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "payoutsapi"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  strings.TrimSpace(getEnvOrViper("SHOPIFY_SHOP_DOMAIN", "")),
			AccessToken: strings.TrimSpace(getEnvOrViper("SHOPIFY_ACCESS_TOKEN", "")),
			APIVersion:  getEnvOrViper("SHOPIFY_API_VERSION", "2026-01"),
			Transport:   strings.ToLower(getEnvOrViper("SHOPIFY_TRANSPORT", "graphql")),
		},
		Payout: PayoutConfig{
			CommissionRate:       rate,
			MinThreshold:         threshold,
			BaseCurrency:         strings.ToUpper(getEnvOrViper("SHOP_CURRENCY", "GBP")),
			LegacyRefundOverride: getEnvOrViper("RECONCILE_LEGACY_REFUND_OVERRIDE", "true") == "true",
		},
		API: APIConfig{
			AdminKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_API_KEY_HASH", "")),
		},
	}

	// Validate required fields
	if cfg.Shopify.ShopDomain == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP_DOMAIN is required")
	}
	if cfg.Shopify.AccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	if cfg.Payout.CommissionRate.IsNegative() || cfg.Payout.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("COMMISSION_RATE must be between 0 and 1")
	}
	if cfg.Shopify.Transport != "graphql" && cfg.Shopify.Transport != "rest" {
		return nil, fmt.Errorf("SHOPIFY_TRANSPORT must be graphql or rest")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
