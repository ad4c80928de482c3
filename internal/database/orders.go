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
	"errors"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// validOrderTransition encodes the forward-only order lifecycle. Terminal
// states (completed, failed) accept no further transitions.
func validOrderTransition(from, to string) bool {
	switch from {
	case models.OrderPending:
		return to == models.OrderProcessing || to == models.OrderCompleted || to == models.OrderFailed
	case models.OrderProcessing:
		return to == models.OrderCompleted || to == models.OrderFailed
	default:
		return false
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var cryptoAmountStr, usdAmountStr, feeAmountStr, quotePriceStr string

	err := row.Scan(&order.Id, &order.UserId, &order.IdempotencyKey, &order.Type, &order.Asset,
		&cryptoAmountStr, &usdAmountStr, &feeAmountStr, &quotePriceStr,
		&order.PaymentMethod, &order.Status, &order.WalletAddress,
		&order.TransactionHash, &order.ProofOfTransfer, &order.PayoutDetails, &order.PaymentIntentId,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if order.CryptoAmount, err = decimal.NewFromString(cryptoAmountStr); err != nil {
		return nil, fmt.Errorf("failed to parse crypto_amount '%s': %w", cryptoAmountStr, err)
	}
	if order.UsdAmount, err = decimal.NewFromString(usdAmountStr); err != nil {
		return nil, fmt.Errorf("failed to parse usd_amount '%s': %w", usdAmountStr, err)
	}
	if order.FeeAmount, err = decimal.NewFromString(feeAmountStr); err != nil {
		return nil, fmt.Errorf("failed to parse fee_amount '%s': %w", feeAmountStr, err)
	}
	if order.QuotePrice, err = decimal.NewFromString(quotePriceStr); err != nil {
		return nil, fmt.Errorf("failed to parse quote_price '%s': %w", quotePriceStr, err)
	}

	return &order, nil
}

func (s *Service) CreateOrder(ctx context.Context, params store.CreateOrderParams) (*models.Order, error) {
	orderId := uuid.New().String()

	zap.L().Info("Creating order",
		zap.String("order_id", orderId),
		zap.String("user_id", params.UserId),
		zap.String("type", params.Type),
		zap.String("asset", params.Asset),
		zap.String("usd_amount", params.UsdAmount.String()))

	_, err := s.db.ExecContext(ctx, queryInsertOrder,
		orderId, params.UserId, params.IdempotencyKey, params.Type, params.Asset,
		params.CryptoAmount.String(), params.UsdAmount.String(), params.FeeAmount.String(),
		params.QuotePrice.String(), params.PaymentMethod, params.Status,
		params.WalletAddress, params.ProofOfTransfer, params.PayoutDetails)
	if err != nil {
		zap.L().Error("Failed to insert order", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert order: %w", err)
	}

	return s.GetOrderById(ctx, orderId)
}

func (s *Service) GetOrderById(ctx context.Context, orderId string) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, queryGetOrderById, orderId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrOrderNotFound, orderId)
		}
		return nil, fmt.Errorf("unable to query order by ID: %w", err)
	}
	return order, nil
}

func (s *Service) GetOrderByIdempotencyKey(ctx context.Context, userId, key string) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, queryGetOrderByIdempotencyKey, userId, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency key %s", store.ErrOrderNotFound, key)
		}
		return nil, fmt.Errorf("unable to query order by idempotency key: %w", err)
	}
	return order, nil
}

func (s *Service) GetOrderByPaymentIntent(ctx context.Context, intentId string) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, queryGetOrderByPaymentIntent, intentId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment intent %s", store.ErrOrderNotFound, intentId)
		}
		return nil, fmt.Errorf("unable to query order by payment intent: %w", err)
	}
	return order, nil
}

func (s *Service) GetOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	query := queryGetOrdersBase
	var clauses []string
	var args []any

	if filter.UserId != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		clauses = append(clauses, "order_type = ?")
		args = append(args, filter.Type)
	}

	for i, clause := range clauses {
		if i == 0 {
			query += "\n\t\tWHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += "\n\t\tORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += "\n\t\tLIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("unable to query orders: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during order row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus moves an order along its lifecycle. Transitions that move
// backwards, or away from a terminal state, are rejected with
// store.ErrInvalidTransition.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderId, status string) error {
	if status != models.OrderPending && status != models.OrderProcessing &&
		status != models.OrderCompleted && status != models.OrderFailed {
		return fmt.Errorf("invalid order status: %s", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentStatus string
	err = tx.QueryRowContext(ctx, queryGetOrderStatus, orderId).Scan(&currentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrOrderNotFound, orderId)
		}
		return fmt.Errorf("unable to query order status: %w", err)
	}

	if currentStatus == status {
		// Idempotent no-op
		return nil
	}

	if !validOrderTransition(currentStatus, status) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, currentStatus, status)
	}

	result, err := tx.ExecContext(ctx, queryUpdateOrderStatus, status, orderId, currentStatus)
	if err != nil {
		return fmt.Errorf("unable to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order status update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Order status updated",
		zap.String("order_id", orderId),
		zap.String("from", currentStatus),
		zap.String("to", status))
	return nil
}

// AttachPaymentIntent binds a gateway payment intent to an order. The intent
// can only be set once; settlement is driven by the gateway webhook.
func (s *Service) AttachPaymentIntent(ctx context.Context, orderId, intentId string) error {
	result, err := s.db.ExecContext(ctx, queryAttachPaymentIntent, intentId, orderId)
	if err != nil {
		return fmt.Errorf("unable to attach payment intent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the order does not exist or an intent is already attached.
		if _, err := s.GetOrderById(ctx, orderId); err != nil {
			return err
		}
		return fmt.Errorf("payment intent already attached to order %s", orderId)
	}

	zap.L().Info("Payment intent attached",
		zap.String("order_id", orderId),
		zap.String("payment_intent_id", intentId))
	return nil
}

func (s *Service) SetOrderTransactionHash(ctx context.Context, orderId, hash string) error {
	result, err := s.db.ExecContext(ctx, querySetOrderTransactionHash, hash, orderId)
	if err != nil {
		return fmt.Errorf("unable to set transaction hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrOrderNotFound, orderId)
	}

	return nil
}
