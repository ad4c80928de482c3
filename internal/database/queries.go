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

const (
	// Profile queries
	queryInsertProfile = `
		INSERT OR IGNORE INTO user_profiles (id, full_name, email, phone, country, kyc_status, tier)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetProfileById = `
		SELECT id, full_name, email, phone, country, kyc_status, tier, created_at, updated_at
		FROM user_profiles
		WHERE id = ?`

	queryGetProfileByEmail = `
		SELECT id, full_name, email, phone, country, kyc_status, tier, created_at, updated_at
		FROM user_profiles
		WHERE email = ?`

	queryGetProfiles = `
		SELECT id, full_name, email, phone, country, kyc_status, tier, created_at, updated_at
		FROM user_profiles
		ORDER BY created_at`

	queryUpdateKYCStatus = `
		UPDATE user_profiles
		SET kyc_status = ?, tier = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryGetAllUserBalances = `
		SELECT id, user_id, asset, balance, last_entry_id, version, updated_at
		FROM account_balances
		WHERE user_id = ?
		ORDER BY asset`

	// Amounts are summed in Go with decimal; SUM() over the TEXT column would
	// coerce each amount to REAL and lose exactness.
	queryReconcileBalance = `
		SELECT amount
		FROM ledger_entries
		WHERE user_id = ? AND asset = ? AND status = 'confirmed'`

	// Ledger queries
	queryCheckDuplicateEntry = `
		SELECT id FROM ledger_entries WHERE external_ref = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, user_id, asset, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, user_id, asset, entry_type, amount, balance_before, balance_after,
			external_ref, reference, status, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, asset, entry_type, amount, balance_before, balance_after,
		          external_ref, reference, status, created_at, processed_at`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND asset = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, entry_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetLedgerHistory = `
		SELECT id, user_id, asset, entry_type, amount, balance_before, balance_after,
		       external_ref, reference, status, created_at, processed_at
		FROM ledger_entries
		WHERE user_id = ? AND asset = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryGetLedgerHistoryAllAssets = `
		SELECT id, user_id, asset, entry_type, amount, balance_before, balance_after,
		       external_ref, reference, status, created_at, processed_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	// Order queries
	queryInsertOrder = `
		INSERT INTO orders (
			id, user_id, idempotency_key, order_type, asset, crypto_amount, usd_amount,
			fee_amount, quote_price, payment_method, status, wallet_address,
			proof_of_transfer_url, payout_details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetOrderById = `
		SELECT id, user_id, idempotency_key, order_type, asset, crypto_amount, usd_amount,
		       fee_amount, quote_price, payment_method, status, wallet_address,
		       transaction_hash, proof_of_transfer_url, payout_details, payment_intent_id,
		       created_at, updated_at
		FROM orders
		WHERE id = ?`

	queryGetOrderByIdempotencyKey = `
		SELECT id, user_id, idempotency_key, order_type, asset, crypto_amount, usd_amount,
		       fee_amount, quote_price, payment_method, status, wallet_address,
		       transaction_hash, proof_of_transfer_url, payout_details, payment_intent_id,
		       created_at, updated_at
		FROM orders
		WHERE user_id = ? AND idempotency_key = ?`

	queryGetOrderByPaymentIntent = `
		SELECT id, user_id, idempotency_key, order_type, asset, crypto_amount, usd_amount,
		       fee_amount, quote_price, payment_method, status, wallet_address,
		       transaction_hash, proof_of_transfer_url, payout_details, payment_intent_id,
		       created_at, updated_at
		FROM orders
		WHERE payment_intent_id = ?`

	// Base for filtered admin listings; WHERE clauses are appended by GetOrders.
	queryGetOrdersBase = `
		SELECT id, user_id, idempotency_key, order_type, asset, crypto_amount, usd_amount,
		       fee_amount, quote_price, payment_method, status, wallet_address,
		       transaction_hash, proof_of_transfer_url, payout_details, payment_intent_id,
		       created_at, updated_at
		FROM orders`

	queryGetOrderStatus = `
		SELECT status FROM orders WHERE id = ?`

	queryUpdateOrderStatus = `
		UPDATE orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`

	queryAttachPaymentIntent = `
		UPDATE orders
		SET payment_intent_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_intent_id = ''`

	querySetOrderTransactionHash = `
		UPDATE orders
		SET transaction_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Deposit request queries
	queryInsertDepositRequest = `
		INSERT INTO deposit_requests (id, user_id, asset, amount, reference, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetDepositRequestById = `
		SELECT id, user_id, asset, amount, reference, status, created_at, updated_at
		FROM deposit_requests
		WHERE id = ?`

	queryGetDepositRequests = `
		SELECT id, user_id, asset, amount, reference, status, created_at, updated_at
		FROM deposit_requests
		WHERE status = ?
		ORDER BY created_at`

	queryGetAllDepositRequests = `
		SELECT id, user_id, asset, amount, reference, status, created_at, updated_at
		FROM deposit_requests
		ORDER BY created_at DESC`

	queryUpdateDepositStatus = `
		UPDATE deposit_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Submission queries
	queryInsertSupportTicket = `
		INSERT INTO support_tickets (id, user_id, email, subject, message, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetSupportTickets = `
		SELECT id, user_id, email, subject, message, status, created_at, updated_at
		FROM support_tickets
		WHERE user_id = ?
		ORDER BY created_at DESC`

	queryUpdateTicketStatus = `
		UPDATE support_tickets
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryInsertComplaint = `
		INSERT INTO complaints (id, name, email, category, message, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryInsertContactMessage = `
		INSERT INTO contact_messages (id, name, email, subject, message, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Wallet address queries
	queryInsertWalletAddress = `
		INSERT OR IGNORE INTO wallet_addresses (id, asset, network, address)
		VALUES (?, ?, ?, ?)`

	queryGetWalletAddresses = `
		SELECT id, asset, network, address, created_at
		FROM wallet_addresses
		ORDER BY asset`

	// Fee and stats queries
	queryInsertPlatformFee = `
		INSERT OR IGNORE INTO platform_fees (id, order_id, user_id, fee_type, fee_amount, fee_percentage, original_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryCountProfiles = `
		SELECT COUNT(*) FROM user_profiles`

	queryCountPendingKYC = `
		SELECT COUNT(*) FROM user_profiles WHERE kyc_status = 'pending'`

	queryCountPendingDeposits = `
		SELECT COUNT(*) FROM deposit_requests WHERE status = 'pending'`

	// Summed in Go with decimal, same as queryReconcileBalance.
	queryCompletedOrderVolumes = `
		SELECT usd_amount
		FROM orders
		WHERE status = 'completed'`
)
