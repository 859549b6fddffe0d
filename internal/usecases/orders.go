package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

// Order lifecycle event types pushed over the websocket feed.
const (
	EventOrderCreated   = "order.created"
	EventOrderVerified  = "order.verified"
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
)

type OrdersRepository interface {
	InsertOrder(ctx context.Context, order *entities.Order) error
	FindOrderByID(ctx context.Context, orderID string) (*entities.Order, error)
	FindOrdersByAgent(ctx context.Context, agentID string, limit, offset int) ([]entities.Order, int, error)
	MarkPartyVerified(ctx context.Context, orderID string, party entities.OrderParty) (bool, error)
	CompleteOrder(ctx context.Context, orderID string, proof *entities.PaymentProof) (*entities.Order, *entities.Transaction, error)
	CancelOrder(ctx context.Context, orderID string) (*entities.Order, error)
}

type ListingsReader interface {
	FindListingByID(ctx context.Context, listingID string) (*entities.Listing, error)
}

// OrderService is the order lifecycle engine: it turns listings into orders,
// enforces the dual-verification state machine and drives settlement.
type OrderService struct {
	logger *slog.Logger

	repo     OrdersRepository
	listings ListingsReader
	events   ports.OrderEventPublisher

	feePercent decimal.Decimal
}

// NewOrderService wires the engine. feePercent is the platform surcharge in
// percent; events may be nil.
func NewOrderService(logger *slog.Logger, repo OrdersRepository, listings ListingsReader, feePercent decimal.Decimal, events ports.OrderEventPublisher) *OrderService {
	return &OrderService{
		logger:     logger,
		repo:       repo,
		listings:   listings,
		events:     events,
		feePercent: feePercent,
	}
}

// Create places an order against a listing on behalf of the requesting agent.
//
// For a SELL listing the requester buys from the listing owner. For a BUY
// listing the roles invert: the owner posted a purchase request, so the owner
// is recorded as buyer and the requester becomes the seller. The amount and
// fee are snapshotted from the listing price at this moment and never
// recomputed, even if the listing price changes later.
func (s *OrderService) Create(ctx context.Context, requesterID, listingID, notes string) (*entities.Order, error) {
	if len(notes) > 1000 {
		return nil, fmt.Errorf("%w: notes must be at most 1000 characters", ports.ErrValidation)
	}

	listing, err := s.listings.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ports.ErrListingNotFound
	}
	if listing.Status != entities.ListingActive {
		return nil, ports.ErrListingUnavailable
	}
	if listing.AgentID == requesterID {
		return nil, ports.ErrSelfTrade
	}

	var buyerID, sellerID string
	if listing.Type == entities.ListingSell {
		buyerID, sellerID = requesterID, listing.AgentID
	} else {
		buyerID, sellerID = listing.AgentID, requesterID
	}

	platformFee := listing.Price.Mul(s.feePercent).Div(decimal.NewFromInt(100))
	totalAmount := listing.Price.Add(platformFee)

	now := time.Now().UTC()
	order := &entities.Order{
		ID:               uuid.New().String(),
		ListingID:        listing.ID,
		BuyerID:          buyerID,
		SellerID:         sellerID,
		Amount:           listing.Price,
		PlatformFee:      platformFee,
		TotalAmount:      totalAmount,
		Status:           entities.OrderPendingVerification,
		Notes:            notes,
		VerificationHash: verificationHash(buyerID, sellerID, listing.ID, listing.Price, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err = s.repo.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	created, err := s.repo.FindOrderByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		"order_id", created.ID, "listing_id", listing.ID,
		"buyer_id", buyerID, "seller_id", sellerID, "total", totalAmount.String())
	s.publish(EventOrderCreated, created)

	return created, nil
}

// Verify records the caller's attestation of the order. Both parties must
// verify independently; once the second flag lands the order becomes
// VERIFIED. Verifying twice as the same party is an error, not a no-op.
func (s *OrderService) Verify(ctx context.Context, orderID, agentID string) (*entities.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ports.ErrOrderNotFound
	}

	party, ok := order.PartyOf(agentID)
	if !ok {
		return nil, ports.ErrNotOrderParty
	}
	if order.Status != entities.OrderPendingVerification && order.Status != entities.OrderVerified {
		return nil, ports.ErrOrderNotVerifiable
	}
	if (party == entities.PartyBuyer && order.BuyerVerified) ||
		(party == entities.PartySeller && order.SellerVerified) {
		return nil, ports.ErrAlreadyVerified
	}

	applied, err := s.repo.MarkPartyVerified(ctx, orderID, party)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ports.ErrOrderNotFound
	}

	if !applied {
		// Lost a race: either this party's flag already landed through a
		// concurrent call, or the order left the verifiable states.
		if updated.Status != entities.OrderPendingVerification && updated.Status != entities.OrderVerified {
			return nil, ports.ErrOrderNotVerifiable
		}
		return nil, ports.ErrAlreadyVerified
	}

	s.logger.Info("order verified by party", "order_id", orderID, "party", party, "status", updated.Status)
	if updated.Status == entities.OrderVerified {
		s.publish(EventOrderVerified, updated)
	}

	return updated, nil
}

// Complete settles a verified order: the order flips to COMPLETED, a
// transaction record is written, both parties' trade counters increment and
// the listing is marked SOLD, all atomically. Racing completions resolve to
// exactly one winner; the loser gets ErrOrderNotCompletable.
func (s *OrderService) Complete(ctx context.Context, orderID, agentID string) (*entities.Order, *entities.Transaction, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ports.ErrOrderNotFound
	}
	if !order.IsParty(agentID) {
		return nil, nil, ports.ErrNotOrderParty
	}
	if order.Status != entities.OrderVerified && order.Status != entities.OrderInProgress {
		return nil, nil, ports.ErrOrderNotCompletable
	}

	completed, txn, err := s.repo.CompleteOrder(ctx, orderID, nil)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("order completed",
		"order_id", orderID, "net_amount", txn.NetAmount.String(), "completed_by", agentID)
	s.publish(EventOrderCompleted, completed)

	return completed, txn, nil
}

// Cancel voids an order from any state except COMPLETED. Listing and agent
// state stay untouched.
func (s *OrderService) Cancel(ctx context.Context, orderID, agentID string) (*entities.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ports.ErrOrderNotFound
	}
	if !order.IsParty(agentID) {
		return nil, ports.ErrNotOrderParty
	}
	if order.Status == entities.OrderCompleted {
		return nil, ports.ErrOrderCompleted
	}

	cancelled, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "order_id", orderID, "cancelled_by", agentID)
	s.publish(EventOrderCancelled, cancelled)

	return cancelled, nil
}

// FindByAgent lists the caller's orders, newest first.
func (s *OrderService) FindByAgent(ctx context.Context, agentID string, p ports.Pagination) ([]entities.Order, *ports.PageMeta, error) {
	p = p.Normalize()

	orders, total, err := s.repo.FindOrdersByAgent(ctx, agentID, p.Limit, p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return orders, ports.NewPageMeta(p, total), nil
}

// FindByID loads one order; only the two parties may read it.
func (s *OrderService) FindByID(ctx context.Context, orderID, agentID string) (*entities.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ports.ErrOrderNotFound
	}
	if !order.IsParty(agentID) {
		return nil, ports.ErrNotOrderParty
	}
	return order, nil
}

func (s *OrderService) publish(eventType string, order *entities.Order) {
	if s.events == nil || order == nil {
		return
	}
	s.events.PublishOrderEvent(ports.OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		Status:  order.Status,
		Parties: []string{order.BuyerID, order.SellerID},
	})
}

// verificationHash binds the parties, the listing, the snapshotted amount and
// the creation instant into an audit trail reference. It is stored, never
// re-validated.
func verificationHash(buyerID, sellerID, listingID string, amount decimal.Decimal, at time.Time) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%d", buyerID, sellerID, listingID, amount.String(), at.UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
