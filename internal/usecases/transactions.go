package usecases

import (
	"context"
	"log/slog"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type TransactionsRepository interface {
	TransactionsReader
	FindTransactionsByAgent(ctx context.Context, agentID string, limit, offset int) ([]entities.Transaction, int, error)
	PlatformStats(ctx context.Context) (ports.PlatformStats, error)
}

// TransactionService exposes the settlement ledger read side.
type TransactionService struct {
	logger *slog.Logger

	repo TransactionsRepository
}

func NewTransactionService(logger *slog.Logger, repo TransactionsRepository) *TransactionService {
	return &TransactionService{logger: logger, repo: repo}
}

// FindByAgent lists settlement records of orders the caller is a party to,
// newest first.
func (s *TransactionService) FindByAgent(ctx context.Context, agentID string, p ports.Pagination) ([]entities.Transaction, *ports.PageMeta, error) {
	p = p.Normalize()

	transactions, total, err := s.repo.FindTransactionsByAgent(ctx, agentID, p.Limit, p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return transactions, ports.NewPageMeta(p, total), nil
}

// FindByOrder loads the settlement record of one of the caller's orders.
func (s *TransactionService) FindByOrder(ctx context.Context, orderID, agentID string) (*entities.Transaction, error) {
	txn, err := s.repo.FindTransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ports.ErrOrderNotFound
	}
	if txn.Order == nil || (txn.Order.Buyer.ID != agentID && txn.Order.Seller.ID != agentID) {
		return nil, ports.ErrNotOrderParty
	}
	return txn, nil
}

// PlatformStats aggregates marketplace-wide settlement totals.
func (s *TransactionService) PlatformStats(ctx context.Context) (ports.PlatformStats, error) {
	return s.repo.PlatformStats(ctx)
}
