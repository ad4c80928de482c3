package database

import (
	"context"
	"database/sql"
	"fmt"

	"crypto-broker-go/internal/models"

	"go.uber.org/zap"
)

// GetWalletAddresses returns the static platform deposit addresses.
func (s *Service) GetWalletAddresses(ctx context.Context) ([]models.WalletAddress, error) {
	rows, err := s.db.QueryContext(ctx, queryGetWalletAddresses)
	if err != nil {
		zap.L().Error("Failed to query wallet addresses", zap.Error(err))
		return nil, fmt.Errorf("unable to query wallet addresses: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var addresses []models.WalletAddress
	for rows.Next() {
		var address models.WalletAddress
		err := rows.Scan(&address.Id, &address.Asset, &address.Network, &address.Address, &address.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet address: %w", err)
		}
		addresses = append(addresses, address)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during address row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}

	return addresses, nil
}
