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

package main

import (
	"context"
	"fmt"

	"crypto-broker-go/internal/common"
	"crypto-broker-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	zap.L().Info("Loading asset catalog", zap.String("file", cfg.Pricing.AssetsFile))
	assets, err := common.LoadAssetConfig(cfg.Pricing.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load asset config", zap.Error(err))
	}
	zap.L().Info("Asset catalog loaded", zap.Int("count", len(assets)))

	if err := dbService.SeedWalletAddresses(ctx, assets); err != nil {
		zap.L().Fatal("Failed to seed wallet addresses", zap.Error(err))
	}

	addresses, err := dbService.GetWalletAddresses(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read wallet addresses", zap.Error(err))
	}

	common.PrintHeader("PLATFORM DEPOSIT ADDRESSES", common.DefaultWidth)
	for i, addr := range addresses {
		symbol := common.BoxPrefix(i == len(addresses)-1)
		fmt.Printf("%s %-6s (%-10s): %s\n", symbol, addr.Asset, addr.Network, addr.Address)
	}
	summary := fmt.Sprintf("SUMMARY: %d assets listed, %d deposit addresses seeded", len(assets), len(addresses))
	common.PrintFooter(summary, common.DefaultWidth)

	zap.L().Info("Setup complete",
		zap.Int("assets", len(assets)),
		zap.Int("deposit_addresses", len(addresses)))
}
