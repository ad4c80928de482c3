package common

import (
	"context"
	"log"
	"strings"

	"crypto-broker-go/internal/database"
	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/payments"
	"crypto-broker-go/internal/pricing"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Pricing   *pricing.Service
	Gateway   *payments.GatewayClient
	Notifier  notify.Notifier
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading asset catalog", zap.String("file", cfg.Pricing.AssetsFile))
	assets, err := LoadAssetConfig(cfg.Pricing.AssetsFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	if err := dbService.SeedWalletAddresses(ctx, assets); err != nil {
		dbService.Close()
		return nil, err
	}

	pricingService := pricing.NewService(cfg.Pricing, assets)
	gateway := payments.NewGatewayClient(cfg.Gateway)

	notifier, err := notify.NewNotifier(cfg.Notify)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService: dbService,
		Pricing:   pricingService,
		Gateway:   gateway,
		Notifier:  notifier,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// price feed or payment gateway. Useful for CLI tools like balance reports.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Notifier != nil {
		if err := cs.Notifier.Close(); err != nil {
			zap.L().Warn("Failed to close notifier", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
