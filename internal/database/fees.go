package database

import (
	"context"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordPlatformFee logs revenue taken from an order.
func (s *Service) RecordPlatformFee(ctx context.Context, params store.RecordFeeParams) error {
	feeId := uuid.New().String()

	result, err := s.db.ExecContext(ctx, queryInsertPlatformFee,
		feeId, params.OrderId, params.UserId, params.FeeType,
		params.FeeAmount.String(), params.FeePercentage.String(), params.OriginalAmount.String())
	if err != nil {
		zap.L().Error("Failed to insert platform fee", zap.String("order_id", params.OrderId), zap.Error(err))
		return fmt.Errorf("unable to insert platform fee: %w", err)
	}

	// One fee row per (order, fee type); a replayed settlement is a no-op.
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		zap.L().Debug("Platform fee already recorded",
			zap.String("order_id", params.OrderId),
			zap.String("fee_type", params.FeeType))
		return nil
	}

	zap.L().Info("Platform fee recorded",
		zap.String("fee_id", feeId),
		zap.String("order_id", params.OrderId),
		zap.String("fee_type", params.FeeType),
		zap.String("fee_amount", params.FeeAmount.String()))
	return nil
}

// GetAdminStats summarizes platform state for the operator dashboard.
func (s *Service) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	if err := s.db.QueryRowContext(ctx, queryCountProfiles).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("unable to count profiles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, queryCountPendingKYC).Scan(&stats.PendingKYC); err != nil {
		return nil, fmt.Errorf("unable to count pending kyc: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, queryCountPendingDeposits).Scan(&stats.PendingDeposits); err != nil {
		return nil, fmt.Errorf("unable to count pending deposits: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryCompletedOrderVolumes)
	if err != nil {
		return nil, fmt.Errorf("unable to query completed volume: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	volume := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return nil, fmt.Errorf("unable to scan order volume: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("unable to parse order volume '%s': %w", amountStr, err)
		}
		volume = volume.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order volumes: %w", err)
	}
	stats.TotalVolumeUSD = volume

	return stats, nil
}
