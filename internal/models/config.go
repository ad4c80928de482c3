package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pricing  PricingConfig
	Gateway  GatewayConfig
	Fees     FeeConfig
	Notify   NotifyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	SeedDemoUsers   bool
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Host            string
	Port            string
	APIToken        string
	AdminToken      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// PricingConfig holds price oracle settings
type PricingConfig struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	AssetsFile      string
}

// GatewayConfig holds payment gateway settings
type GatewayConfig struct {
	BaseURL          string
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	RequestTimeout   time.Duration
}

// FeeConfig holds the platform fee schedule.
//
// ConvertFeeBase selects what the conversion fee percentage applies to:
// "balance" charges against the user's entire pre-conversion USD balance
// (the historical behavior), "amount" charges against the converted amount.
type FeeConfig struct {
	BuyRate        decimal.Decimal
	ConvertRate    decimal.Decimal
	ConvertFeeBase string
	MinimumBuyUSD  decimal.Decimal
}

// NotifyConfig holds operator notification settings. When NatsURL is empty
// notifications are written to the structured log instead of a queue.
type NotifyConfig struct {
	NatsURL    string
	Subject    string
	AdminEmail string
}
