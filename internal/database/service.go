/**
 * Copyright 2025-present crypto-broker-go authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.BrokerStore.
var _ store.BrokerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	subledger := NewSubledgerService(db)
	service := &Service{db: db, subledger: subledger}
	if err := service.initSchema(cfg.SeedDemoUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize subledger schema
	if err := subledger.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(seedDemoUsers bool) error {
	schema := `
	-- Customer profiles
	CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		tier TEXT NOT NULL DEFAULT 'basic',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_email ON user_profiles(email);
	CREATE INDEX IF NOT EXISTS idx_profiles_kyc_status ON user_profiles(kyc_status);

	-- Orders (buy, sell, convert)
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES user_profiles(id),
		idempotency_key TEXT NOT NULL DEFAULT '',
		order_type TEXT NOT NULL,
		asset TEXT NOT NULL,
		crypto_amount TEXT NOT NULL DEFAULT '0',
		usd_amount TEXT NOT NULL DEFAULT '0',
		fee_amount TEXT NOT NULL DEFAULT '0',
		quote_price TEXT NOT NULL DEFAULT '0',
		payment_method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		wallet_address TEXT NOT NULL DEFAULT '',
		transaction_hash TEXT NOT NULL DEFAULT '',
		proof_of_transfer_url TEXT NOT NULL DEFAULT '',
		payout_details TEXT NOT NULL DEFAULT '',
		payment_intent_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_idempotency
		ON orders(user_id, idempotency_key) WHERE idempotency_key != '';
	CREATE INDEX IF NOT EXISTS idx_orders_payment_intent
		ON orders(payment_intent_id) WHERE payment_intent_id != '';

	-- Claimed external deposits awaiting operator review
	CREATE TABLE IF NOT EXISTS deposit_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES user_profiles(id),
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_status ON deposit_requests(status);
	CREATE INDEX IF NOT EXISTS idx_deposits_user_id ON deposit_requests(user_id);

	-- Customer submissions
	CREATE TABLE IF NOT EXISTS support_tickets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_user_id ON support_tickets(user_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON support_tickets(status);

	CREATE TABLE IF NOT EXISTS complaints (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS contact_messages (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Static platform deposit addresses
	CREATE TABLE IF NOT EXISTS wallet_addresses (
		id TEXT PRIMARY KEY,
		asset TEXT NOT NULL,
		network TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(asset, network)
	);

	-- Platform revenue log
	CREATE TABLE IF NOT EXISTS platform_fees (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		fee_type TEXT NOT NULL,
		fee_amount TEXT NOT NULL,
		fee_percentage TEXT NOT NULL,
		original_amount TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(order_id, fee_type)
	);

	CREATE INDEX IF NOT EXISTS idx_fees_order_id ON platform_fees(order_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	// Insert demo users for local development if configured to do so
	if seedDemoUsers {
		users := []struct {
			id    string
			name  string
			email string
		}{
			{uuid.New().String(), "Alice Johnson", "alice.johnson@example.com"},
			{uuid.New().String(), "Bob Smith", "bob.smith@example.com"},
			{uuid.New().String(), "Carol Williams", "carol.williams@example.com"},
		}

		for _, user := range users {
			_, err := s.db.Exec(queryInsertProfile, user.id, user.name, user.email, "", "", models.KYCPending, models.TierBasic)
			if err != nil {
				zap.L().Error("Failed to insert demo user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Demo user created", zap.String("id", user.id), zap.String("name", user.name))
			}
		}
	} else {
		zap.L().Info("Skipping demo user creation (SEED_DEMO_USERS=false)")
	}

	return nil
}

// SeedWalletAddresses upserts the static deposit addresses declared in the
// asset catalog. Existing rows for the same asset/network pair are kept.
func (s *Service) SeedWalletAddresses(ctx context.Context, assets []models.AssetSpec) error {
	for _, asset := range assets {
		if asset.DepositAddress == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx, queryInsertWalletAddress,
			uuid.New().String(), asset.Symbol, asset.Network, asset.DepositAddress)
		if err != nil {
			return fmt.Errorf("unable to seed wallet address for %s: %w", asset.Symbol, err)
		}
	}
	return nil
}

// Subledger convenience methods

func (s *Service) GetUserBalance(ctx context.Context, userId string, asset string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, userId, asset)
}

func (s *Service) GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx, userId)
}

func (s *Service) ProcessEntry(ctx context.Context, params store.EntryParams) (*models.LedgerEntry, error) {
	return s.subledger.ProcessEntry(ctx, params)
}

func (s *Service) GetLedgerHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.subledger.GetLedgerHistory(ctx, userId, asset, limit, offset)
}

func (s *Service) ReconcileUserBalance(ctx context.Context, userId, asset string) error {
	return s.subledger.ReconcileBalance(ctx, userId, asset)
}
