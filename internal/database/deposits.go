package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanDepositRequest(row rowScanner) (*models.DepositRequest, error) {
	var deposit models.DepositRequest
	var amountStr string

	err := row.Scan(&deposit.Id, &deposit.UserId, &deposit.Asset, &amountStr,
		&deposit.Reference, &deposit.Status, &deposit.CreatedAt, &deposit.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if deposit.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	return &deposit, nil
}

func (s *Service) CreateDepositRequest(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) (*models.DepositRequest, error) {
	depositId := uuid.New().String()

	zap.L().Info("Creating deposit request",
		zap.String("deposit_id", depositId),
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.String("amount", amount.String()))

	_, err := s.db.ExecContext(ctx, queryInsertDepositRequest,
		depositId, userId, asset, amount.String(), reference, "pending")
	if err != nil {
		zap.L().Error("Failed to insert deposit request", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert deposit request: %w", err)
	}

	return s.GetDepositRequestById(ctx, depositId)
}

func (s *Service) GetDepositRequestById(ctx context.Context, depositId string) (*models.DepositRequest, error) {
	deposit, err := scanDepositRequest(s.db.QueryRowContext(ctx, queryGetDepositRequestById, depositId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrDepositNotFound, depositId)
		}
		return nil, fmt.Errorf("unable to query deposit request: %w", err)
	}
	return deposit, nil
}

// GetDepositRequests lists deposit requests, optionally filtered by status.
func (s *Service) GetDepositRequests(ctx context.Context, status string) ([]models.DepositRequest, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.QueryContext(ctx, queryGetAllDepositRequests)
	} else {
		rows, err = s.db.QueryContext(ctx, queryGetDepositRequests, status)
	}
	if err != nil {
		zap.L().Error("Failed to query deposit requests", zap.Error(err))
		return nil, fmt.Errorf("unable to query deposit requests: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var deposits []models.DepositRequest
	for rows.Next() {
		deposit, err := scanDepositRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit request: %w", err)
		}
		deposits = append(deposits, *deposit)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during deposit row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}

	return deposits, nil
}

func (s *Service) UpdateDepositStatus(ctx context.Context, depositId, status string) error {
	if status != "pending" && status != "approved" && status != "denied" {
		return fmt.Errorf("invalid deposit status: %s", status)
	}

	result, err := s.db.ExecContext(ctx, queryUpdateDepositStatus, status, depositId)
	if err != nil {
		return fmt.Errorf("unable to update deposit status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrDepositNotFound, depositId)
	}

	zap.L().Info("Deposit status updated",
		zap.String("deposit_id", depositId),
		zap.String("status", status))
	return nil
}
