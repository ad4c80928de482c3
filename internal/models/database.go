package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYC statuses for a user profile.
const (
	KYCPending  = "pending"
	KYCApproved = "approved"
	KYCDenied   = "denied"
)

// Account tiers.
const (
	TierBasic    = "basic"
	TierAdvanced = "advanced"
)

// Order lifecycle statuses. Transitions are forward-only and enforced by the
// store: pending -> processing|completed|failed, processing -> completed|failed,
// terminal states frozen.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderFailed     = "failed"
)

// UserProfile represents a brokerage customer.
type UserProfile struct {
	Id        string    `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Country   string    `db:"country"`
	KYCStatus string    `db:"kyc_status"`
	Tier      string    `db:"tier"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id          string          `db:"id"`
	UserId      string          `db:"user_id"`
	Asset       string          `db:"asset"`
	Balance     decimal.Decimal `db:"balance"`
	LastEntryId string          `db:"last_entry_id"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// LedgerEntry represents an immutable balance movement (cold data)
type LedgerEntry struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Asset         string          `db:"asset"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	ExternalRef   string          `db:"external_ref"`
	Reference     string          `db:"reference"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   time.Time       `db:"processed_at"`
}

// Order represents a buy, sell or convert order placed by a customer.
type Order struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	IdempotencyKey  string          `db:"idempotency_key"`
	Type            string          `db:"order_type"` // buy, sell, convert
	Asset           string          `db:"asset"`
	CryptoAmount    decimal.Decimal `db:"crypto_amount"`
	UsdAmount       decimal.Decimal `db:"usd_amount"`
	FeeAmount       decimal.Decimal `db:"fee_amount"`
	QuotePrice      decimal.Decimal `db:"quote_price"`
	PaymentMethod   string          `db:"payment_method"`
	Status          string          `db:"status"`
	WalletAddress   string          `db:"wallet_address"`
	TransactionHash string          `db:"transaction_hash"`
	ProofOfTransfer string          `db:"proof_of_transfer_url"`
	PayoutDetails   string          `db:"payout_details"`
	PaymentIntentId string          `db:"payment_intent_id"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// DepositRequest is a claimed external deposit awaiting operator review.
type DepositRequest struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Asset     string          `db:"asset"`
	Amount    decimal.Decimal `db:"amount"`
	Reference string          `db:"reference"`
	Status    string          `db:"status"` // pending, approved, denied
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// SupportTicket is a customer support request.
type SupportTicket struct {
	Id        string    `db:"id"`
	UserId    string    `db:"user_id"`
	Email     string    `db:"email"`
	Subject   string    `db:"subject"`
	Message   string    `db:"message"`
	Status    string    `db:"status"` // new, in_progress, resolved
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Complaint is a formal complaint submission.
type Complaint struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Category  string    `db:"category"`
	Message   string    `db:"message"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// ContactMessage is a general contact-form submission.
type ContactMessage struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Subject   string    `db:"subject"`
	Message   string    `db:"message"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// WalletAddress is a static platform deposit address shown to customers.
// There is no mutation path for these rows; they are seeded from assets.yaml.
type WalletAddress struct {
	Id        string    `db:"id"`
	Asset     string    `db:"asset"`
	Network   string    `db:"network"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}

// PlatformFee logs revenue taken from an order.
type PlatformFee struct {
	Id             string          `db:"id"`
	OrderId        string          `db:"order_id"`
	UserId         string          `db:"user_id"`
	FeeType        string          `db:"fee_type"` // platform, conversion
	FeeAmount      decimal.Decimal `db:"fee_amount"`
	FeePercentage  decimal.Decimal `db:"fee_percentage"`
	OriginalAmount decimal.Decimal `db:"original_amount"`
	CreatedAt      time.Time       `db:"created_at"`
}

// AdminStats summarizes platform state for the operator dashboard.
type AdminStats struct {
	TotalUsers      int             `json:"total_users"`
	TotalVolumeUSD  decimal.Decimal `json:"total_volume_usd"`
	PendingKYC      int             `json:"pending_kyc"`
	PendingDeposits int             `json:"pending_deposits"`
}
