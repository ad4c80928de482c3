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
	"flag"
	"fmt"

	"crypto-broker-go/internal/common"
	"crypto-broker-go/internal/config"
	"crypto-broker-go/internal/database"
	"crypto-broker-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
}

func formatEntryId(entryId string) string {
	if entryId == "" {
		return "none"
	}
	if len(entryId) > 8 {
		return entryId[:8] + "..."
	}
	return entryId
}

func printBalance(balance models.AccountBalance, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	lastEntry := formatEntryId(balance.LastEntryId)

	fmt.Printf("%s %-15s: %20s (v%d, last_entry: %s, updated: %s)\n",
		symbol,
		balance.Asset,
		balance.Balance.String(),
		balance.Version,
		lastEntry,
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printUserHeader(profile models.UserProfile, balanceCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", profile.FullName, profile.Email)
	fmt.Printf("│  ID: %s\n", profile.Id)
	fmt.Printf("│  KYC: %s / %s tier\n", profile.KYCStatus, profile.Tier)
	fmt.Printf("│  Assets: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

func processProfile(ctx context.Context, profile models.UserProfile, dbService *database.Service) (int, error) {
	balances, err := dbService.GetAllUserBalances(ctx, profile.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, nil
	}

	printUserHeader(profile, len(balances))
	for i, balance := range balances {
		printBalance(balance, i == len(balances)-1)
	}

	return len(balances), nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var profiles []models.UserProfile
	if *emailFlag != "" {
		profile, err := dbService.GetProfileByEmail(ctx, *emailFlag)
		if err != nil {
			logger.Fatal("Failed to find user by email", zap.String("email", *emailFlag), zap.Error(err))
		}
		profiles = []models.UserProfile{*profile}
	} else {
		profiles, err = dbService.GetProfiles(ctx)
		if err != nil {
			logger.Fatal("Failed to read profiles from database", zap.Error(err))
		}
	}

	common.PrintHeader("CUSTOMER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, profile := range profiles {
		stats.totalUsers++

		balanceCount, err := processProfile(ctx, profile, dbService)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", profile.Id),
				zap.String("user_name", profile.FullName),
				zap.Error(err))
			continue
		}

		if balanceCount > 0 {
			stats.usersWithBalances++
			stats.totalBalances += balanceCount
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances))
}
