package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/pkg/database"
)

// OrdersRepository persists orders and drives the settlement writes. All
// multi-entity mutations (completion bundle) run inside a single database
// transaction through the transactor.
type OrdersRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewOrdersRepository(logger *slog.Logger, pg *database.Postgres) *OrdersRepository {
	return &OrdersRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

const orderColumns = `
	o.id, o.listing_id, o.buyer_id, o.seller_id,
	o.amount::text, o.platform_fee::text, o.total_amount::text,
	o.buyer_verified, o.seller_verified, o.status, o.notes,
	o.verification_hash, o.completed_at, o.created_at, o.updated_at,
	l.title, l.type, l.category,
	b.name, s.name,
	t.id, t.amount::text, t.platform_fee::text, t.net_amount::text,
	t.status, t.payment_method, t.tx_signature, t.fee_tx_signature,
	t.processed_at, t.created_at`

const orderJoins = `
	FROM orders o
	JOIN listings l ON l.id = o.listing_id
	JOIN agents b ON b.id = o.buyer_id
	JOIN agents s ON s.id = o.seller_id
	LEFT JOIN transactions t ON t.order_id = o.id`

// InsertOrder stores a freshly created order.
func (r *OrdersRepository) InsertOrder(ctx context.Context, order *entities.Order) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO orders (id, listing_id, buyer_id, seller_id, amount, platform_fee, total_amount,
		                    buyer_verified, seller_verified, status, notes, verification_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		order.ID, order.ListingID, order.BuyerID, order.SellerID,
		order.Amount.String(), order.PlatformFee.String(), order.TotalAmount.String(),
		order.BuyerVerified, order.SellerVerified, order.Status, order.Notes,
		order.VerificationHash, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// FindOrderByID loads an order with its denormalized listing, party and
// transaction details. Returns nil without error when the order is absent.
func (r *OrdersRepository) FindOrderByID(ctx context.Context, orderID string) (*entities.Order, error) {
	row := r.db(ctx).QueryRow(ctx, `SELECT`+orderColumns+orderJoins+` WHERE o.id = $1`, orderID)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}
	return order, nil
}

// FindOrdersByAgent returns the orders the agent is a party to, newest first,
// together with the total count for pagination.
func (r *OrdersRepository) FindOrdersByAgent(ctx context.Context, agentID string, limit, offset int) ([]entities.Order, int, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT`+orderColumns+orderJoins+`
		WHERE o.buyer_id = $1 OR o.seller_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`,
		agentID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	var orders []entities.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read order rows: %w", err)
	}

	var total int
	err = r.db(ctx).QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE buyer_id = $1 OR seller_id = $1`, agentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders for agent %s: %w", agentID, err)
	}

	return orders, total, nil
}

// MarkPartyVerified sets the verification flag of one party and promotes the
// order to VERIFIED when the other flag is already set. Flag update, guard and
// promotion are one statement, so concurrent buyer/seller calls cannot lose
// the transition. Returns false when the guarded update matched no row.
func (r *OrdersRepository) MarkPartyVerified(ctx context.Context, orderID string, party entities.OrderParty) (bool, error) {
	own, other := "buyer_verified", "seller_verified"
	if party == entities.PartySeller {
		own, other = other, own
	}

	query := fmt.Sprintf(`
		UPDATE orders
		SET %[1]s = true,
		    status = CASE WHEN %[2]s THEN 'VERIFIED' ELSE status END,
		    updated_at = now()
		WHERE id = $1 AND %[1]s = false AND status IN ('PENDING_VERIFICATION', 'VERIFIED')`,
		own, other)

	tag, err := r.db(ctx).Exec(ctx, query, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to mark order %s verified by %s: %w", orderID, party, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteOrder executes the settlement bundle: flip the order to COMPLETED,
// create or finalize its transaction record, increment both trade counters and
// mark the listing SOLD. Everything runs in one database transaction guarded
// by a compare-and-swap on the order status, so of two racing completions
// (complete vs. payment submission) exactly one can win.
//
// A non-nil proof attaches the payment signatures; submission is rejected when
// the existing transaction already carries one.
func (r *OrdersRepository) CompleteOrder(ctx context.Context, orderID string, proof *entities.PaymentProof) (*entities.Order, *entities.Transaction, error) {
	var order *entities.Order

	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var (
			listingID, buyerID, sellerID string
			amountStr, feeStr            string
		)
		err := r.db(ctx).QueryRow(ctx, `
			UPDATE orders
			SET status = 'COMPLETED', completed_at = now(), updated_at = now()
			WHERE id = $1 AND status IN ('VERIFIED', 'IN_PROGRESS')
			RETURNING listing_id, buyer_id, seller_id, amount::text, platform_fee::text`,
			orderID,
		).Scan(&listingID, &buyerID, &sellerID, &amountStr, &feeStr)
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrOrderNotCompletable
		}
		if err != nil {
			return fmt.Errorf("failed to complete order %s: %w", orderID, err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid amount stored for order %s: %w", orderID, err)
		}
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return fmt.Errorf("invalid platform fee stored for order %s: %w", orderID, err)
		}
		netAmount := amount.Sub(fee)

		if err = r.finalizeTransaction(ctx, orderID, amount, fee, netAmount, proof); err != nil {
			return err
		}

		_, err = r.db(ctx).Exec(ctx,
			`UPDATE agents SET total_trades = total_trades + 1, last_active = now() WHERE id = ANY($1)`,
			[]string{buyerID, sellerID},
		)
		if err != nil {
			return fmt.Errorf("failed to increment trade counters: %w", err)
		}

		_, err = r.db(ctx).Exec(ctx,
			`UPDATE listings SET status = 'SOLD', updated_at = now() WHERE id = $1`, listingID)
		if err != nil {
			return fmt.Errorf("failed to mark listing %s sold: %w", listingID, err)
		}

		order, err = r.FindOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return order, order.Transaction, nil
}

// finalizeTransaction creates the transaction record for the order, or
// finalizes the one a previous payment submission left behind. Must run
// inside the completion transaction.
func (r *OrdersRepository) finalizeTransaction(ctx context.Context, orderID string, amount, fee, netAmount decimal.Decimal, proof *entities.PaymentProof) error {
	var (
		existingID  string
		existingSig *string
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, tx_signature FROM transactions WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(&existingID, &existingSig)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		method := ""
		var sig, feeSig *string
		if proof != nil {
			method = entities.PaymentMethodUSDCSolana
			sig = &proof.TxSignature
			feeSig = proof.FeeTxSignature
		}
		_, err = r.db(ctx).Exec(ctx, `
			INSERT INTO transactions (id, order_id, amount, platform_fee, net_amount, status,
			                          payment_method, tx_signature, fee_tx_signature, processed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, 'COMPLETED', $6, $7, $8, now(), now())`,
			uuid.New().String(), orderID, amount.String(), fee.String(), netAmount.String(),
			method, sig, feeSig,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction for order %s: %w", orderID, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to load transaction for order %s: %w", orderID, err)
	}

	if proof != nil {
		if existingSig != nil {
			return ports.ErrPaymentAlreadySubmitted
		}
		_, err = r.db(ctx).Exec(ctx, `
			UPDATE transactions
			SET status = 'COMPLETED', payment_method = $2, tx_signature = $3, fee_tx_signature = $4, processed_at = now()
			WHERE id = $1`,
			existingID, entities.PaymentMethodUSDCSolana, proof.TxSignature, proof.FeeTxSignature,
		)
	} else {
		_, err = r.db(ctx).Exec(ctx, `
			UPDATE transactions
			SET status = 'COMPLETED', processed_at = now()
			WHERE id = $1`,
			existingID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to finalize transaction for order %s: %w", orderID, err)
	}
	return nil
}

// CancelOrder flips the order to CANCELLED unless it already completed. No
// listing or counter state is touched: an order that never completed never
// mutated them.
func (r *OrdersRepository) CancelOrder(ctx context.Context, orderID string) (*entities.Order, error) {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE orders
		SET status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND status <> 'COMPLETED'`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ports.ErrOrderCompleted
	}

	return r.FindOrderByID(ctx, orderID)
}

// scanOrder reads one joined order row.
func scanOrder(row pgx.Row) (*entities.Order, error) {
	var (
		o                          entities.Order
		amountStr, feeStr          string
		totalStr                   string
		listing                    entities.ListingSummary
		buyerName, sellerName      string
		txID, txAmount, txFee      *string
		txNet, txStatus, txMethod  *string
		txSig, txFeeSig            *string
		txProcessedAt, txCreatedAt *time.Time
	)

	err := row.Scan(
		&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID,
		&amountStr, &feeStr, &totalStr,
		&o.BuyerVerified, &o.SellerVerified, &o.Status, &o.Notes,
		&o.VerificationHash, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
		&listing.Title, &listing.Type, &listing.Category,
		&buyerName, &sellerName,
		&txID, &txAmount, &txFee, &txNet,
		&txStatus, &txMethod, &txSig, &txFeeSig,
		&txProcessedAt, &txCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("invalid order amount: %w", err)
	}
	if o.PlatformFee, err = decimal.NewFromString(feeStr); err != nil {
		return nil, fmt.Errorf("invalid platform fee: %w", err)
	}
	if o.TotalAmount, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("invalid total amount: %w", err)
	}

	listing.ID = o.ListingID
	o.Listing = &listing
	o.Buyer = &entities.AgentSummary{ID: o.BuyerID, Name: buyerName}
	o.Seller = &entities.AgentSummary{ID: o.SellerID, Name: sellerName}

	if txID != nil {
		txn := entities.Transaction{
			ID:             *txID,
			OrderID:        o.ID,
			Status:         entities.TransactionStatus(*txStatus),
			TxSignature:    txSig,
			FeeTxSignature: txFeeSig,
			ProcessedAt:    txProcessedAt,
			CreatedAt:      *txCreatedAt,
		}
		if txMethod != nil {
			txn.PaymentMethod = *txMethod
		}
		if txn.Amount, err = decimal.NewFromString(*txAmount); err != nil {
			return nil, fmt.Errorf("invalid transaction amount: %w", err)
		}
		if txn.PlatformFee, err = decimal.NewFromString(*txFee); err != nil {
			return nil, fmt.Errorf("invalid transaction fee: %w", err)
		}
		if txn.NetAmount, err = decimal.NewFromString(*txNet); err != nil {
			return nil, fmt.Errorf("invalid transaction net amount: %w", err)
		}
		o.Transaction = &txn
	}

	return &o, nil
}
