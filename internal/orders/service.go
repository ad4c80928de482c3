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

package orders

import (
	"context"
	"errors"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/payments"
	"crypto-broker-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sentinel errors for order validation.
var (
	ErrBelowMinimum = errors.New("amount below minimum")
	ErrInvalidOrder = errors.New("invalid order")
)

// USD is the settlement asset for fiat balances.
const USD = "USD"

// PriceSource supplies the quote used to price an order.
type PriceSource interface {
	GetQuote(symbol string) (models.AssetQuote, error)
}

// CardGateway opens card charges with the payment gateway.
type CardGateway interface {
	CreatePaymentIntent(ctx context.Context, orderId string, usdAmount decimal.Decimal) (*payments.PaymentIntent, error)
}

// Service is the single authority for order placement and settlement. All
// balance movements flow through the subledger; card order finality is
// written only by the gateway webhook path (SettlePaymentIntent).
type Service struct {
	store    store.BrokerStore
	prices   PriceSource
	gateway  CardGateway
	notifier notify.Notifier
	fees     models.FeeConfig
}

func NewService(brokerStore store.BrokerStore, prices PriceSource, gateway CardGateway, notifier notify.Notifier, fees models.FeeConfig) *Service {
	return &Service{
		store:    brokerStore,
		prices:   prices,
		gateway:  gateway,
		notifier: notifier,
		fees:     fees,
	}
}

// PlaceOrderParams contains the parameters for placing a buy or sell order.
type PlaceOrderParams struct {
	UserId          string
	IdempotencyKey  string
	Type            string // buy or sell
	Asset           string
	UsdAmount       decimal.Decimal // buy orders
	CryptoAmount    decimal.Decimal // sell orders
	PaymentMethod   string
	WalletAddress   string
	ProofOfTransfer string
	PayoutDetails   string
}

// PlaceOrder records a new buy or sell order. The returned bool reports
// whether the order was replayed from a previous request with the same
// idempotency key.
func (s *Service) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*models.Order, bool, error) {
	if _, err := s.store.GetProfileById(ctx, params.UserId); err != nil {
		return nil, false, err
	}

	if params.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, params.UserId, params.IdempotencyKey)
		if err == nil {
			zap.L().Info("Replaying order for idempotency key",
				zap.String("order_id", existing.Id),
				zap.String("idempotency_key", params.IdempotencyKey))
			return existing, true, nil
		}
		if !errors.Is(err, store.ErrOrderNotFound) {
			return nil, false, err
		}
	}

	switch params.Type {
	case "buy":
		order, err := s.placeBuyOrder(ctx, params)
		return order, false, err
	case "sell":
		order, err := s.placeSellOrder(ctx, params)
		return order, false, err
	default:
		return nil, false, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, params.Type)
	}
}

func (s *Service) placeBuyOrder(ctx context.Context, params PlaceOrderParams) (*models.Order, error) {
	if params.UsdAmount.LessThan(s.fees.MinimumBuyUSD) {
		return nil, fmt.Errorf("%w: buy orders start at %s USD", ErrBelowMinimum, s.fees.MinimumBuyUSD.String())
	}

	quote, err := s.prices.GetQuote(params.Asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	fee := buyFee(s.fees, params.UsdAmount)
	cryptoAmount := buyCredit(s.fees, params.UsdAmount, quote.Price)

	order, err := s.store.CreateOrder(ctx, store.CreateOrderParams{
		UserId:         params.UserId,
		IdempotencyKey: params.IdempotencyKey,
		Type:           "buy",
		Asset:          params.Asset,
		CryptoAmount:   cryptoAmount,
		UsdAmount:      params.UsdAmount,
		FeeAmount:      fee,
		QuotePrice:     quote.Price,
		PaymentMethod:  params.PaymentMethod,
		Status:         models.OrderProcessing,
		WalletAddress:  params.WalletAddress,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.RecordPlatformFee(ctx, store.RecordFeeParams{
		OrderId:        order.Id,
		UserId:         params.UserId,
		FeeType:        "platform",
		FeeAmount:      fee,
		FeePercentage:  s.fees.BuyRate,
		OriginalAmount: params.UsdAmount,
	}); err != nil {
		return nil, err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindOrderPlaced,
		Subject: fmt.Sprintf("Buy order %s placed", order.Id),
		Detail: map[string]string{
			"order_id":   order.Id,
			"user_id":    params.UserId,
			"asset":      params.Asset,
			"usd_amount": params.UsdAmount.String(),
		},
	})

	return order, nil
}

func (s *Service) placeSellOrder(ctx context.Context, params PlaceOrderParams) (*models.Order, error) {
	if !params.CryptoAmount.IsPositive() {
		return nil, fmt.Errorf("%w: sell amount must be positive", ErrInvalidOrder)
	}

	quote, err := s.prices.GetQuote(params.Asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	// Reject before creating the order row so an overdraft leaves no trace.
	balance, err := s.store.GetUserBalance(ctx, params.UserId, params.Asset)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(params.CryptoAmount) {
		return nil, fmt.Errorf("%w: balance %s %s, requested %s",
			store.ErrInsufficientBalance, balance.String(), params.Asset, params.CryptoAmount.String())
	}

	usdAmount := params.CryptoAmount.Mul(quote.Price)

	order, err := s.store.CreateOrder(ctx, store.CreateOrderParams{
		UserId:          params.UserId,
		IdempotencyKey:  params.IdempotencyKey,
		Type:            "sell",
		Asset:           params.Asset,
		CryptoAmount:    params.CryptoAmount,
		UsdAmount:       usdAmount,
		QuotePrice:      quote.Price,
		PaymentMethod:   params.PaymentMethod,
		Status:          models.OrderPending,
		ProofOfTransfer: params.ProofOfTransfer,
		PayoutDetails:   params.PayoutDetails,
	})
	if err != nil {
		return nil, err
	}

	// Debit the sold asset up front; the USD payout lands at settlement.
	_, err = s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      params.UserId,
		Asset:       params.Asset,
		EntryType:   "sell_debit",
		Amount:      params.CryptoAmount.Neg(),
		ExternalRef: fmt.Sprintf("order:%s:debit", order.Id),
		Reference:   fmt.Sprintf("sell %s %s", params.CryptoAmount.String(), params.Asset),
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			// Lost a race since the pre-check; the order never started.
			if failErr := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderFailed); failErr != nil {
				zap.L().Error("Failed to fail overdrawn sell order", zap.String("order_id", order.Id), zap.Error(failErr))
			}
		}
		return nil, err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindOrderPlaced,
		Subject: fmt.Sprintf("Sell order %s placed", order.Id),
		Detail: map[string]string{
			"order_id":      order.Id,
			"user_id":       params.UserId,
			"asset":         params.Asset,
			"crypto_amount": params.CryptoAmount.String(),
		},
	})

	return order, nil
}

// AttachCardPayment opens a card charge for a buy order and binds the
// resulting payment intent to it. The order stays in processing; only the
// gateway webhook moves it to a terminal state.
func (s *Service) AttachCardPayment(ctx context.Context, orderId string) (*payments.PaymentIntent, error) {
	order, err := s.store.GetOrderById(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.Type != "buy" {
		return nil, fmt.Errorf("%w: card payment only applies to buy orders", ErrInvalidOrder)
	}
	if order.Status != models.OrderPending && order.Status != models.OrderProcessing {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidOrder, orderId, order.Status)
	}
	if order.PaymentIntentId != "" {
		return nil, fmt.Errorf("%w: order %s already has a payment intent", ErrInvalidOrder, orderId)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, order.Id, order.UsdAmount)
	if err != nil {
		return nil, err
	}

	if err := s.store.AttachPaymentIntent(ctx, order.Id, intent.Id); err != nil {
		return nil, err
	}

	return intent, nil
}

// SettlePaymentIntent is the webhook-driven settlement path and the only
// writer of terminal status for card-funded buy orders. Replays are safe:
// the status transition is an idempotent no-op and the ledger credit is
// deduplicated on its external reference.
func (s *Service) SettlePaymentIntent(ctx context.Context, intentId string, succeeded bool) error {
	order, err := s.store.GetOrderByPaymentIntent(ctx, intentId)
	if err != nil {
		return err
	}

	if !succeeded {
		if err := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderFailed); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				zap.L().Warn("Ignoring failed-payment event for settled order",
					zap.String("order_id", order.Id),
					zap.String("status", order.Status))
				return nil
			}
			return err
		}

		s.notify(ctx, notify.Event{
			Kind:    notify.KindOrderFailed,
			Subject: fmt.Sprintf("Order %s payment failed", order.Id),
			Detail:  map[string]string{"order_id": order.Id, "payment_intent_id": intentId},
		})
		return nil
	}

	if err := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			zap.L().Warn("Ignoring succeeded-payment event for terminal order",
				zap.String("order_id", order.Id),
				zap.String("status", order.Status))
			return nil
		}
		return err
	}

	// Credit the purchased crypto. A replayed webhook hits the dedup.
	_, err = s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      order.UserId,
		Asset:       order.Asset,
		EntryType:   "buy_credit",
		Amount:      order.CryptoAmount,
		ExternalRef: fmt.Sprintf("order:%s:settlement", order.Id),
		Reference:   fmt.Sprintf("buy %s %s at %s", order.CryptoAmount.String(), order.Asset, order.QuotePrice.String()),
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateEntry) {
		return err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindOrderSettled,
		Subject: fmt.Sprintf("Order %s settled", order.Id),
		Detail: map[string]string{
			"order_id":          order.Id,
			"user_id":           order.UserId,
			"asset":             order.Asset,
			"crypto_amount":     order.CryptoAmount.String(),
			"payment_intent_id": intentId,
		},
	})

	return nil
}

// ConvertParams contains the parameters for converting USD balance to crypto.
type ConvertParams struct {
	UserId         string
	IdempotencyKey string
	Asset          string
	UsdAmount      decimal.Decimal
}

// Convert moves USD balance into a crypto position at the current quote.
// The conversion fee base is configurable; see models.FeeConfig.
func (s *Service) Convert(ctx context.Context, params ConvertParams) (*models.Order, bool, error) {
	if _, err := s.store.GetProfileById(ctx, params.UserId); err != nil {
		return nil, false, err
	}

	if params.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, params.UserId, params.IdempotencyKey)
		if err == nil {
			// A pending conversion means an earlier attempt crashed between
			// the order insert and settlement. The ledger refs dedup each
			// step, so finishing it here is safe.
			if existing.Type == "convert" && existing.Status == models.OrderPending {
				settled, err := s.settleConversion(ctx, existing)
				if err != nil {
					return nil, true, err
				}
				return settled, true, nil
			}
			return existing, true, nil
		}
		if !errors.Is(err, store.ErrOrderNotFound) {
			return nil, false, err
		}
	}

	if !params.UsdAmount.IsPositive() {
		return nil, false, fmt.Errorf("%w: conversion amount must be positive", ErrInvalidOrder)
	}

	quote, err := s.prices.GetQuote(params.Asset)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	usdBalance, err := s.store.GetUserBalance(ctx, params.UserId, USD)
	if err != nil {
		return nil, false, err
	}
	if usdBalance.LessThan(params.UsdAmount) {
		return nil, false, fmt.Errorf("%w: balance %s USD, requested %s",
			store.ErrInsufficientBalance, usdBalance.String(), params.UsdAmount.String())
	}

	fee := convertFee(s.fees, usdBalance, params.UsdAmount)
	cryptoAmount := convertCredit(s.fees, usdBalance, params.UsdAmount, quote.Price)
	if !cryptoAmount.IsPositive() {
		return nil, false, fmt.Errorf("%w: conversion fee %s consumes the whole amount", ErrInvalidOrder, fee.String())
	}

	order, err := s.store.CreateOrder(ctx, store.CreateOrderParams{
		UserId:         params.UserId,
		IdempotencyKey: params.IdempotencyKey,
		Type:           "convert",
		Asset:          params.Asset,
		CryptoAmount:   cryptoAmount,
		UsdAmount:      params.UsdAmount,
		FeeAmount:      fee,
		QuotePrice:     quote.Price,
		Status:         models.OrderPending,
	})
	if err != nil {
		return nil, false, err
	}

	order, err = s.settleConversion(ctx, order)
	if err != nil {
		return nil, false, err
	}
	return order, false, nil
}

// settleConversion applies the ledger movements for a pending convert order
// and completes it. Every step is idempotent (deduped ledger refs, an
// INSERT OR IGNORE fee row, a no-op status transition), so it can be re-run
// after a partial failure without double-applying funds.
func (s *Service) settleConversion(ctx context.Context, order *models.Order) (*models.Order, error) {
	// Debit the converted USD, fee included.
	_, err := s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      order.UserId,
		Asset:       USD,
		EntryType:   "convert_debit",
		Amount:      order.UsdAmount.Neg(),
		ExternalRef: fmt.Sprintf("order:%s:debit", order.Id),
		Reference:   fmt.Sprintf("convert %s USD to %s", order.UsdAmount.String(), order.Asset),
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateEntry) {
		if errors.Is(err, store.ErrInsufficientBalance) {
			if failErr := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderFailed); failErr != nil {
				zap.L().Error("Failed to fail overdrawn conversion", zap.String("order_id", order.Id), zap.Error(failErr))
			}
		}
		return nil, err
	}

	// Credit the crypto net of the fee.
	_, err = s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      order.UserId,
		Asset:       order.Asset,
		EntryType:   "convert_credit",
		Amount:      order.CryptoAmount,
		ExternalRef: fmt.Sprintf("order:%s:credit", order.Id),
		Reference:   fmt.Sprintf("convert credit %s %s at %s", order.CryptoAmount.String(), order.Asset, order.QuotePrice.String()),
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateEntry) {
		return nil, err
	}

	if err := s.store.RecordPlatformFee(ctx, store.RecordFeeParams{
		OrderId:        order.Id,
		UserId:         order.UserId,
		FeeType:        "conversion",
		FeeAmount:      order.FeeAmount,
		FeePercentage:  s.fees.ConvertRate,
		OriginalAmount: order.UsdAmount,
	}); err != nil {
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		return nil, err
	}

	settled, err := s.store.GetOrderById(ctx, order.Id)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindOrderSettled,
		Subject: fmt.Sprintf("Conversion %s settled", settled.Id),
		Detail: map[string]string{
			"order_id":      settled.Id,
			"user_id":       settled.UserId,
			"asset":         settled.Asset,
			"usd_amount":    settled.UsdAmount.String(),
			"fee":           settled.FeeAmount.String(),
			"crypto_amount": settled.CryptoAmount.String(),
		},
	})

	return settled, nil
}

// ClaimDeposit records a customer's claim that they sent funds to a platform
// address. Funds are credited only when an operator approves the claim.
func (s *Service) ClaimDeposit(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) (*models.DepositRequest, error) {
	if _, err := s.store.GetProfileById(ctx, userId); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidOrder)
	}

	deposit, err := s.store.CreateDepositRequest(ctx, userId, asset, amount, reference)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindDepositClaimed,
		Subject: fmt.Sprintf("Deposit claim %s awaiting review", deposit.Id),
		Detail: map[string]string{
			"deposit_id": deposit.Id,
			"user_id":    userId,
			"asset":      asset,
			"amount":     amount.String(),
		},
	})

	return deposit, nil
}

// ReviewDeposit approves or denies a claimed deposit. Approval credits the
// claimed amount; the ledger dedup makes a repeated approval harmless.
func (s *Service) ReviewDeposit(ctx context.Context, depositId string, approve bool) error {
	deposit, err := s.store.GetDepositRequestById(ctx, depositId)
	if err != nil {
		return err
	}
	if deposit.Status != "pending" {
		return fmt.Errorf("%w: deposit %s already %s", ErrInvalidOrder, depositId, deposit.Status)
	}

	if !approve {
		return s.store.UpdateDepositStatus(ctx, depositId, "denied")
	}

	if err := s.store.UpdateDepositStatus(ctx, depositId, "approved"); err != nil {
		return err
	}

	_, err = s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      deposit.UserId,
		Asset:       deposit.Asset,
		EntryType:   "deposit",
		Amount:      deposit.Amount,
		ExternalRef: fmt.Sprintf("deposit:%s", deposit.Id),
		Reference:   deposit.Reference,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateEntry) {
		return err
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindDepositApproved,
		Subject: fmt.Sprintf("Deposit %s approved", deposit.Id),
		Detail: map[string]string{
			"deposit_id": deposit.Id,
			"user_id":    deposit.UserId,
			"asset":      deposit.Asset,
			"amount":     deposit.Amount.String(),
		},
	})

	return nil
}

// SettleSellOrder completes a sell order after the operator has paid the
// customer out. The USD proceeds are credited to the customer's balance.
func (s *Service) SettleSellOrder(ctx context.Context, orderId, payoutRef string) error {
	order, err := s.store.GetOrderById(ctx, orderId)
	if err != nil {
		return err
	}
	if order.Type != "sell" {
		return fmt.Errorf("%w: order %s is not a sell order", ErrInvalidOrder, orderId)
	}

	if err := s.store.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		return err
	}

	_, err = s.store.ProcessEntry(ctx, store.EntryParams{
		UserId:      order.UserId,
		Asset:       USD,
		EntryType:   "sell_credit",
		Amount:      order.UsdAmount,
		ExternalRef: fmt.Sprintf("order:%s:payout", order.Id),
		Reference:   payoutRef,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateEntry) {
		return err
	}

	if payoutRef != "" {
		if err := s.store.SetOrderTransactionHash(ctx, order.Id, payoutRef); err != nil {
			return err
		}
	}

	s.notify(ctx, notify.Event{
		Kind:    notify.KindOrderSettled,
		Subject: fmt.Sprintf("Sell order %s paid out", order.Id),
		Detail: map[string]string{
			"order_id":   order.Id,
			"user_id":    order.UserId,
			"usd_amount": order.UsdAmount.String(),
		},
	})

	return nil
}

// notify delivers an operator notification. Delivery problems are logged and
// never fail the calling flow.
func (s *Service) notify(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("kind", event.Kind),
			zap.Error(err))
	}
}
