package store

import (
	"context"
	"errors"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateEntry         = errors.New("duplicate ledger entry")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrDepositNotFound        = errors.New("deposit request not found")
	ErrTicketNotFound         = errors.New("support ticket not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
)

// CreateProfileParams contains the parameters for registering a customer.
type CreateProfileParams struct {
	UserId   string
	FullName string
	Email    string
	Phone    string
	Country  string
}

// EntryParams describes a single balance movement to apply through the
// subledger. ExternalRef is the idempotency handle: a second entry with the
// same ExternalRef is rejected with ErrDuplicateEntry.
type EntryParams struct {
	UserId      string
	Asset       string
	EntryType   string // deposit, withdrawal, buy_credit, sell_debit, convert_debit, convert_credit, fee
	Amount      decimal.Decimal
	ExternalRef string
	Reference   string
}

// CreateOrderParams contains the parameters for recording a new order.
type CreateOrderParams struct {
	UserId          string
	IdempotencyKey  string
	Type            string
	Asset           string
	CryptoAmount    decimal.Decimal
	UsdAmount       decimal.Decimal
	FeeAmount       decimal.Decimal
	QuotePrice      decimal.Decimal
	PaymentMethod   string
	Status          string
	WalletAddress   string
	ProofOfTransfer string
	PayoutDetails   string
}

// RecordFeeParams contains the parameters for logging platform revenue.
type RecordFeeParams struct {
	OrderId        string
	UserId         string
	FeeType        string
	FeeAmount      decimal.Decimal
	FeePercentage  decimal.Decimal
	OriginalAmount decimal.Decimal
}

// OrderFilter narrows admin order listings. Zero values match everything.
type OrderFilter struct {
	UserId string
	Status string
	Type   string
	Limit  int
	Offset int
}

// BrokerStore defines the contract that every backend must satisfy.
type BrokerStore interface {
	// --- Profiles ---
	CreateProfile(ctx context.Context, params CreateProfileParams) (*models.UserProfile, error)
	GetProfileById(ctx context.Context, userId string) (*models.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	GetProfiles(ctx context.Context) ([]models.UserProfile, error)
	UpdateKYCStatus(ctx context.Context, userId, status string) error

	// --- Balances & ledger ---
	GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error)
	GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error)
	ProcessEntry(ctx context.Context, params EntryParams) (*models.LedgerEntry, error)
	GetLedgerHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.LedgerEntry, error)
	ReconcileUserBalance(ctx context.Context, userId, asset string) error

	// --- Orders ---
	CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Order, error)
	GetOrderById(ctx context.Context, orderId string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userId, key string) (*models.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, intentId string) (*models.Order, error)
	GetOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderId, status string) error
	AttachPaymentIntent(ctx context.Context, orderId, intentId string) error
	SetOrderTransactionHash(ctx context.Context, orderId, hash string) error

	// --- Deposits ---
	CreateDepositRequest(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) (*models.DepositRequest, error)
	GetDepositRequestById(ctx context.Context, depositId string) (*models.DepositRequest, error)
	GetDepositRequests(ctx context.Context, status string) ([]models.DepositRequest, error)
	UpdateDepositStatus(ctx context.Context, depositId, status string) error

	// --- Submissions ---
	CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error
	GetSupportTickets(ctx context.Context, userId string) ([]models.SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, ticketId, status string) error
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	CreateContactMessage(ctx context.Context, message *models.ContactMessage) error

	// --- Wallet addresses ---
	GetWalletAddresses(ctx context.Context) ([]models.WalletAddress, error)

	// --- Fees & stats ---
	RecordPlatformFee(ctx context.Context, params RecordFeeParams) error
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)

	// --- Lifecycle ---
	Close()
}
