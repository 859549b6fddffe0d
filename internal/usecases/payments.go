package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type TransactionsReader interface {
	FindTransactionByOrderID(ctx context.Context, orderID string) (*entities.Transaction, error)
}

// PaymentConfig carries the platform-side payment parameters.
type PaymentConfig struct {
	FeePercent    decimal.Decimal
	WalletAddress string
	Network       string
	USDCMint      string
}

// PaymentLeg is one transfer the buyer has to make.
type PaymentLeg struct {
	Recipient string          `json:"recipient,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Purpose   string          `json:"purpose"`
	Note      string          `json:"note,omitempty"`
}

// PaymentInstructions tells a buyer how to settle an order off-platform with
// USDC on Solana: how much goes to the seller and how much to the platform.
type PaymentInstructions struct {
	OrderID       string               `json:"orderId"`
	Status        entities.OrderStatus `json:"status"`
	Currency      string               `json:"currency"`
	PaymentMethod string               `json:"paymentMethod"`
	Network       string               `json:"network"`
	USDCMint      string               `json:"usdcMint"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	SellerAmount  decimal.Decimal      `json:"sellerAmount"`
	PlatformFee   decimal.Decimal      `json:"platformFee"`
	FeePercent    decimal.Decimal      `json:"feePercent"`
	Legs          []PaymentLeg         `json:"legs"`
	AlreadyPaid   bool                 `json:"alreadyPaid"`
	TxSignature   *string              `json:"txSignature,omitempty"`
}

// PlatformPaymentInfo is the public payment configuration.
type PlatformPaymentInfo struct {
	Network        string          `json:"network"`
	USDCMint       string          `json:"usdcMint"`
	PlatformWallet string          `json:"platformWallet,omitempty"`
	FeePercent     decimal.Decimal `json:"feePercent"`
	PaymentMethod  string          `json:"paymentMethod"`
	Explorer       string          `json:"explorer"`
}

// PaymentService handles the off-platform settlement flow: instructing buyers
// where to send USDC, validating submitted proofs and recording them through
// the atomic completion path.
type PaymentService struct {
	logger *slog.Logger

	orders       OrdersRepository
	transactions TransactionsReader
	agents       AgentsRepository
	events       ports.OrderEventPublisher

	cfg PaymentConfig
}

func NewPaymentService(logger *slog.Logger, orders OrdersRepository, transactions TransactionsReader, agents AgentsRepository, cfg PaymentConfig, events ports.OrderEventPublisher) *PaymentService {
	return &PaymentService{
		logger:       logger,
		orders:       orders,
		transactions: transactions,
		agents:       agents,
		events:       events,
		cfg:          cfg,
	}
}

// PlatformInfo returns the public payment parameters.
func (s *PaymentService) PlatformInfo() PlatformPaymentInfo {
	return PlatformPaymentInfo{
		Network:        s.cfg.Network,
		USDCMint:       s.cfg.USDCMint,
		PlatformWallet: s.cfg.WalletAddress,
		FeePercent:     s.cfg.FeePercent,
		PaymentMethod:  entities.PaymentMethodUSDCSolana,
		Explorer:       ports.ExplorerBase,
	}
}

// GetPaymentInstructions builds the transfer breakdown for an order: the
// seller leg (price minus fee) and the platform fee leg. Only order parties
// may request it.
func (s *PaymentService) GetPaymentInstructions(ctx context.Context, orderID, agentID string) (*PaymentInstructions, error) {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ports.ErrOrderNotFound
	}
	if !order.IsParty(agentID) {
		return nil, ports.ErrNotOrderParty
	}

	seller, err := s.agents.FindAgentByID(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}

	sellerAmount := order.Amount.Sub(order.PlatformFee)

	sellerLeg := PaymentLeg{
		Amount:  sellerAmount,
		Purpose: "seller payout",
	}
	if seller != nil && seller.WalletAddress != "" {
		sellerLeg.Recipient = seller.WalletAddress
	} else {
		sellerLeg.Note = "seller has not set a wallet address yet"
	}

	feeLeg := PaymentLeg{
		Amount:  order.PlatformFee,
		Purpose: "platform fee",
	}
	if s.cfg.WalletAddress != "" {
		feeLeg.Recipient = s.cfg.WalletAddress
	} else {
		feeLeg.Note = "platform wallet not configured"
	}

	alreadyPaid := false
	var txSignature *string
	if txn, err := s.transactions.FindTransactionByOrderID(ctx, orderID); err != nil {
		return nil, err
	} else if txn != nil && txn.TxSignature != nil {
		alreadyPaid = true
		txSignature = txn.TxSignature
	}

	return &PaymentInstructions{
		OrderID:       order.ID,
		Status:        order.Status,
		Currency:      ports.DefaultCurrency,
		PaymentMethod: entities.PaymentMethodUSDCSolana,
		Network:       s.cfg.Network,
		USDCMint:      s.cfg.USDCMint,
		TotalAmount:   order.TotalAmount,
		SellerAmount:  sellerAmount,
		PlatformFee:   order.PlatformFee,
		FeePercent:    s.cfg.FeePercent,
		Legs:          []PaymentLeg{sellerLeg, feeLeg},
		AlreadyPaid:   alreadyPaid,
		TxSignature:   txSignature,
	}, nil
}

// SubmitPayment records the buyer's payment proof and settles the order
// through the same atomic path as manual completion. Only the buyer may
// submit; a second proof for the same order is rejected.
func (s *PaymentService) SubmitPayment(ctx context.Context, orderID, agentID string, proof entities.PaymentProof) (*entities.Order, *entities.Transaction, error) {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ports.ErrOrderNotFound
	}
	if !order.IsParty(agentID) {
		return nil, nil, ports.ErrNotOrderParty
	}
	if order.BuyerID != agentID {
		return nil, nil, ports.ErrBuyerOnly
	}
	if order.Status != entities.OrderVerified && order.Status != entities.OrderInProgress {
		return nil, nil, ports.ErrOrderNotPayable
	}

	if _, err = solana.SignatureFromBase58(proof.TxSignature); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ports.ErrInvalidTxSignature, proof.TxSignature)
	}
	if proof.FeeTxSignature != nil {
		if _, err = solana.SignatureFromBase58(*proof.FeeTxSignature); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ports.ErrInvalidTxSignature, *proof.FeeTxSignature)
		}
	}

	if txn, err := s.transactions.FindTransactionByOrderID(ctx, orderID); err != nil {
		return nil, nil, err
	} else if txn != nil && txn.TxSignature != nil {
		return nil, nil, ports.ErrPaymentAlreadySubmitted
	}

	completed, txn, err := s.orders.CompleteOrder(ctx, orderID, &proof)
	if err != nil {
		// A concurrent manual completion can win the status race after the
		// checks above; surface that as a payment-state error.
		if errors.Is(err, ports.ErrOrderNotCompletable) {
			return nil, nil, ports.ErrOrderNotPayable
		}
		return nil, nil, err
	}

	s.logger.Info("payment recorded",
		"order_id", orderID, "buyer_id", agentID, "tx_signature", proof.TxSignature)
	if s.events != nil {
		s.events.PublishOrderEvent(ports.OrderEvent{
			Type:    EventOrderCompleted,
			OrderID: completed.ID,
			Status:  completed.Status,
			Parties: []string{completed.BuyerID, completed.SellerID},
		})
	}

	return completed, txn, nil
}

// SetWalletAddress validates and stores the agent's Solana payout wallet.
func (s *PaymentService) SetWalletAddress(ctx context.Context, agentID, walletAddress string) (*entities.Agent, error) {
	if _, err := solana.PublicKeyFromBase58(walletAddress); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidWalletAddress, walletAddress)
	}

	agent, err := s.agents.UpdateWalletAddress(ctx, agentID, walletAddress)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ports.ErrAgentNotFound
	}

	s.logger.Info("wallet address updated", "agent_id", agentID)
	return agent, nil
}
