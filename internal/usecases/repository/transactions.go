package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/pkg/database"
)

// TransactionsRepository reads settlement records. Writes happen exclusively
// through the order completion bundle in OrdersRepository.
type TransactionsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewTransactionsRepository(logger *slog.Logger, pg *database.Postgres) *TransactionsRepository {
	return &TransactionsRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

const transactionColumns = `t.id, t.order_id, t.amount::text, t.platform_fee::text, t.net_amount::text,
	t.status, t.payment_method, t.tx_signature, t.fee_tx_signature, t.processed_at, t.created_at,
	o.listing_id, l.title, o.buyer_id, b.name, o.seller_id, s.name`

const transactionJoins = `
	FROM transactions t
	JOIN orders o ON o.id = t.order_id
	JOIN listings l ON l.id = o.listing_id
	JOIN agents b ON b.id = o.buyer_id
	JOIN agents s ON s.id = o.seller_id`

// FindTransactionByOrderID loads the settlement record of one order. Returns
// nil without error when the order has not settled yet.
func (r *TransactionsRepository) FindTransactionByOrderID(ctx context.Context, orderID string) (*entities.Transaction, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+transactionJoins+` WHERE t.order_id = $1`, orderID)

	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction for order %s: %w", orderID, err)
	}
	return txn, nil
}

// FindTransactionsByAgent returns the settlement records of orders the agent
// is a party to, newest first, plus the total count.
func (r *TransactionsRepository) FindTransactionsByAgent(ctx context.Context, agentID string, limit, offset int) ([]entities.Transaction, int, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+transactionJoins+`
		WHERE o.buyer_id = $1 OR o.seller_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3`,
		agentID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	transactions, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.db(ctx).QueryRow(ctx, `
		SELECT count(*) FROM transactions t
		JOIN orders o ON o.id = t.order_id
		WHERE o.buyer_id = $1 OR o.seller_id = $1`, agentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions for agent %s: %w", agentID, err)
	}

	return transactions, total, nil
}

// PlatformStats aggregates marketplace-wide settlement totals and the most
// recent completed transactions.
func (r *TransactionsRepository) PlatformStats(ctx context.Context) (ports.PlatformStats, error) {
	var stats ports.PlatformStats

	var volumeStr, revenueStr string
	err := r.db(ctx).QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(amount), 0)::text, COALESCE(sum(platform_fee), 0)::text
		FROM transactions WHERE status = 'COMPLETED'`,
	).Scan(&stats.TotalTransactions, &volumeStr, &revenueStr)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate platform stats: %w", err)
	}

	if stats.TotalVolume, err = decimal.NewFromString(volumeStr); err != nil {
		return stats, fmt.Errorf("invalid volume sum: %w", err)
	}
	if stats.PlatformRevenue, err = decimal.NewFromString(revenueStr); err != nil {
		return stats, fmt.Errorf("invalid revenue sum: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+transactionJoins+`
		WHERE t.status = 'COMPLETED'
		ORDER BY t.created_at DESC
		LIMIT 10`,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()

	if stats.RecentTransactions, err = collectTransactions(rows); err != nil {
		return stats, err
	}

	return stats, nil
}

func collectTransactions(rows pgx.Rows) ([]entities.Transaction, error) {
	var transactions []entities.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction rows: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var (
		t                          entities.Transaction
		amountStr, feeStr, netStr  string
		listingID, listingTitle    string
		buyerID, buyerName         string
		sellerID, sellerName       string
		processedAt                *time.Time
	)

	err := row.Scan(
		&t.ID, &t.OrderID, &amountStr, &feeStr, &netStr,
		&t.Status, &t.PaymentMethod, &t.TxSignature, &t.FeeTxSignature, &processedAt, &t.CreatedAt,
		&listingID, &listingTitle, &buyerID, &buyerName, &sellerID, &sellerName,
	)
	if err != nil {
		return nil, err
	}

	t.ProcessedAt = processedAt
	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("invalid transaction amount: %w", err)
	}
	if t.PlatformFee, err = decimal.NewFromString(feeStr); err != nil {
		return nil, fmt.Errorf("invalid transaction fee: %w", err)
	}
	if t.NetAmount, err = decimal.NewFromString(netStr); err != nil {
		return nil, fmt.Errorf("invalid transaction net amount: %w", err)
	}

	t.Order = &entities.OrderSummary{
		ID:      t.OrderID,
		Listing: &entities.ListingSummary{ID: listingID, Title: listingTitle},
		Buyer:   &entities.AgentSummary{ID: buyerID, Name: buyerName},
		Seller:  &entities.AgentSummary{ID: sellerID, Name: sellerName},
	}

	return &t, nil
}
