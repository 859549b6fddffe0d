package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the settlement state of a transaction record.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionRefunded  TransactionStatus = "REFUNDED"
)

// PaymentMethodUSDCSolana marks transactions settled with USDC on Solana.
const PaymentMethodUSDCSolana = "USDC_SOLANA"

// Transaction is the immutable financial record of a completed order.
// NetAmount is what the seller receives: the listing price minus the platform
// fee. The buyer separately pays TotalAmount (price plus fee) per the order.
type Transaction struct {
	ID             string            `json:"id"`
	OrderID        string            `json:"orderId"`
	Amount         decimal.Decimal   `json:"amount"`
	PlatformFee    decimal.Decimal   `json:"platformFee"`
	NetAmount      decimal.Decimal   `json:"netAmount"`
	Status         TransactionStatus `json:"status"`
	PaymentMethod  string            `json:"paymentMethod,omitempty"`
	TxSignature    *string           `json:"txSignature,omitempty"`
	FeeTxSignature *string           `json:"feeTxSignature,omitempty"`
	ProcessedAt    *time.Time        `json:"processedAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`

	Order *OrderSummary `json:"order,omitempty"`
}

// OrderSummary is the denormalized order view embedded in transaction
// responses.
type OrderSummary struct {
	ID      string          `json:"id"`
	Listing *ListingSummary `json:"listing,omitempty"`
	Buyer   *AgentSummary   `json:"buyer,omitempty"`
	Seller  *AgentSummary   `json:"seller,omitempty"`
}

// PaymentProof carries the externally verified Solana transaction signatures
// a buyer submits after paying off-platform.
type PaymentProof struct {
	TxSignature    string  `json:"txSignature"`
	FeeTxSignature *string `json:"feeTxSignature,omitempty"`
}

