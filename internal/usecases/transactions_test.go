package usecases

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

func TestTransactionsByAgent(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	transactionService := NewTransactionService(testLogger(), store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	stranger := store.seedAgent("stranger")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)
	_, _, err := orderService.Complete(context.Background(), order.ID, buyer.ID)
	require.NoError(t, err)

	transactions, meta, err := transactionService.FindByAgent(context.Background(), seller.ID, ports.Pagination{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	require.Equal(t, 1, meta.Total)
	require.Equal(t, order.ID, transactions[0].OrderID)
	require.NotNil(t, transactions[0].Order)
	require.Equal(t, buyer.ID, transactions[0].Order.Buyer.ID)

	none, meta, err := transactionService.FindByAgent(context.Background(), stranger.ID, ports.Pagination{})
	require.NoError(t, err)
	require.Empty(t, none)
	require.Equal(t, 0, meta.Total)
}

func TestTransactionByOrderPartyOnly(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	transactionService := NewTransactionService(testLogger(), store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	stranger := store.seedAgent("stranger")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)
	_, _, err := orderService.Complete(context.Background(), order.ID, buyer.ID)
	require.NoError(t, err)

	txn, err := transactionService.FindByOrder(context.Background(), order.ID, buyer.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, txn.OrderID)

	_, err = transactionService.FindByOrder(context.Background(), order.ID, stranger.ID)
	require.ErrorIs(t, err, ports.ErrNotOrderParty)
}

func TestPlatformStats(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	transactionService := NewTransactionService(testLogger(), store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")

	for _, price := range []int64{100, 200} {
		listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(price))
		order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)
		_, _, err := orderService.Complete(context.Background(), order.ID, buyer.ID)
		require.NoError(t, err)
	}

	stats, err := transactionService.PlatformStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalTransactions)
	require.True(t, stats.TotalVolume.Equal(decimal.NewFromInt(300)))
	require.True(t, stats.PlatformRevenue.Equal(decimal.NewFromInt(3)))
}
