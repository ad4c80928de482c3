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
	"os/signal"
	"syscall"

	"crypto-broker-go/internal/common"
	"crypto-broker-go/internal/config"
	"crypto-broker-go/internal/orders"
	"crypto-broker-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Starting brokerage API server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	services.Pricing.Start(ctx)
	defer services.Pricing.Stop()

	orderService := orders.NewService(services.DbService, services.Pricing, services.Gateway, services.Notifier, cfg.Fees)

	srv := server.New(cfg, services.DbService, orderService, services.Pricing, services.Notifier)
	if err := srv.Run(ctx); err != nil {
		zap.L().Fatal("Server error", zap.Error(err))
	}

	zap.L().Info("Server exited gracefully")
}
