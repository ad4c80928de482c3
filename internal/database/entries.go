package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessEntry atomically updates the account balance and records the ledger
// entry. A positive amount credits the account, a negative amount debits it.
// Debits that would take the balance below zero are rejected with
// store.ErrInsufficientBalance and leave no trace in the ledger.
func (s *SubledgerService) ProcessEntry(ctx context.Context, params store.EntryParams) (*models.LedgerEntry, error) {

	zap.L().Info("Processing ledger entry",
		zap.String("user_id", params.UserId),
		zap.String("asset", params.Asset),
		zap.String("type", params.EntryType),
		zap.String("amount", params.Amount.String()),
		zap.String("external_ref", params.ExternalRef))

	// Check for duplicate external reference
	if params.ExternalRef != "" {
		var existingEntryId string
		err := s.db.QueryRowContext(ctx, queryCheckDuplicateEntry, params.ExternalRef).Scan(&existingEntryId)
		if err == nil {
			zap.L().Warn("Duplicate external reference detected, skipping",
				zap.String("external_ref", params.ExternalRef),
				zap.String("existing_entry_id", existingEntryId))
			return nil, fmt.Errorf("%w: external_ref %s already exists", store.ErrDuplicateEntry, params.ExternalRef)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate entry: %w", err)
		}
	}

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Get current balance (with optimistic locking version)
	var currentBalanceStr string
	var accountId string
	var version int64

	err = tx.QueryRowContext(ctx, queryGetAccountBalance, params.UserId, params.Asset).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		// Create new account balance record
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.UserId, params.Asset, "0", 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	// Calculate new balance and reject overdrafts
	newBalance := currentBalance.Add(params.Amount)
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s, requested %s %s",
			store.ErrInsufficientBalance, currentBalance.String(), params.Amount.String(), params.Asset)
	}

	// Create ledger entry record
	entryId := uuid.New().String()
	now := time.Now()
	entry := &models.LedgerEntry{}

	var amountStr, balanceBeforeStr, balanceAfterStr string
	err = tx.QueryRowContext(ctx, queryInsertLedgerEntry,
		entryId, params.UserId, params.Asset, params.EntryType,
		params.Amount.String(), currentBalance.String(), newBalance.String(),
		params.ExternalRef, params.Reference, "confirmed", now, now).
		Scan(&entry.Id, &entry.UserId, &entry.Asset, &entry.EntryType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&entry.ExternalRef, &entry.Reference,
			&entry.Status, &entry.CreatedAt, &entry.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	entry.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse returned amount: %w", err)
	}
	entry.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse returned balance_before: %w", err)
	}
	entry.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse returned balance_after: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), entryId, params.UserId, params.Asset, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	// Double-entry journal entries
	if err := s.addJournalEntries(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Ledger entry processed successfully",
		zap.String("entry_id", entryId),
		zap.String("user_id", params.UserId),
		zap.String("asset", params.Asset),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return entry, nil
}

// addJournalEntries creates double-entry bookkeeping entries.
// A credit to the user increases the platform's liability to them;
// a debit decreases it.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry) error {
	type journalLine struct {
		accountType  string
		accountId    string
		debitAmount  decimal.Decimal
		creditAmount decimal.Decimal
	}

	userAccount := fmt.Sprintf("%s_%s", entry.UserId, entry.Asset)
	liabilityAccount := fmt.Sprintf("customer_funds_%s", entry.Asset)

	var lines []journalLine
	if entry.Amount.IsNegative() {
		// User asset account decreases (credit), platform liability decreases (debit)
		lines = []journalLine{
			{"user_asset", userAccount, decimal.Zero, entry.Amount.Neg()},
			{"system_liability", liabilityAccount, entry.Amount.Neg(), decimal.Zero},
		}
	} else {
		// User asset account increases (debit), platform liability increases (credit)
		lines = []journalLine{
			{"user_asset", userAccount, entry.Amount, decimal.Zero},
			{"system_liability", liabilityAccount, decimal.Zero, entry.Amount},
		}
	}

	for _, line := range lines {
		lineId := uuid.New().String()
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			lineId, entry.Id, line.accountType, line.accountId, line.debitAmount.String(), line.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetLedgerHistory returns paginated ledger history for a user. An empty asset
// returns entries across all assets.
func (s *SubledgerService) GetLedgerHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting ledger history",
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	var rows *sql.Rows
	var err error
	if asset == "" {
		rows, err = s.db.QueryContext(ctx, queryGetLedgerHistoryAllAssets, userId, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, queryGetLedgerHistory, userId, asset, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&entry.Id, &entry.UserId, &entry.Asset, &entry.EntryType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&entry.ExternalRef, &entry.Reference,
			&entry.Status, &entry.CreatedAt, &entry.ProcessedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entry.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		entry.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}

		entry.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		entries = append(entries, entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}
