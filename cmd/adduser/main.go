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

	"crypto-broker-go/internal/common"
	"crypto-broker-go/internal/config"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "Full name of the customer (required)")
	emailFlag := flag.String("email", "", "Email address of the customer (required)")
	phoneFlag := flag.String("phone", "", "Phone number (optional)")
	countryFlag := flag.String("country", "", "Country code (optional)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both -name and -email are required")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	profile, err := dbService.CreateProfile(ctx, store.CreateProfileParams{
		UserId:   uuid.New().String(),
		FullName: *nameFlag,
		Email:    *emailFlag,
		Phone:    *phoneFlag,
		Country:  *countryFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to create profile", zap.Error(err))
	}

	zap.L().Info("Customer profile created",
		zap.String("id", profile.Id),
		zap.String("name", profile.FullName),
		zap.String("email", profile.Email),
		zap.String("kyc_status", profile.KYCStatus),
		zap.String("tier", profile.Tier))
}
