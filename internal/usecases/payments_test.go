package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

// Base58 strings of '1' decode to zero bytes, so these parse as a 64-byte
// signature and a 32-byte public key.
var (
	validTxSignature = strings.Repeat("1", 64)
	validWallet      = strings.Repeat("1", 32)
)

func newTestPaymentService(store *memStore) *PaymentService {
	return NewPaymentService(testLogger(), store, store, store, PaymentConfig{
		FeePercent:    decimal.NewFromInt(1),
		WalletAddress: validWallet,
		Network:       "devnet",
		USDCMint:      "test-usdc-mint",
	}, nil)
}

func TestPlatformInfo(t *testing.T) {
	service := newTestPaymentService(newMemStore())

	info := service.PlatformInfo()
	require.Equal(t, "devnet", info.Network)
	require.Equal(t, "test-usdc-mint", info.USDCMint)
	require.Equal(t, validWallet, info.PlatformWallet)
	require.True(t, info.FeePercent.Equal(decimal.NewFromInt(1)))
	require.Equal(t, entities.PaymentMethodUSDCSolana, info.PaymentMethod)
}

func TestPaymentInstructionsBreakdown(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	store.agents[seller.ID].WalletAddress = validWallet
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order, err := orderService.Create(context.Background(), buyer.ID, listing.ID, "")
	require.NoError(t, err)

	instructions, err := paymentService.GetPaymentInstructions(context.Background(), order.ID, buyer.ID)
	require.NoError(t, err)

	require.True(t, instructions.TotalAmount.Equal(decimal.NewFromInt(101)))
	require.True(t, instructions.SellerAmount.Equal(decimal.NewFromInt(99)))
	require.True(t, instructions.PlatformFee.Equal(decimal.NewFromInt(1)))
	require.False(t, instructions.AlreadyPaid)

	require.Len(t, instructions.Legs, 2)
	require.Equal(t, validWallet, instructions.Legs[0].Recipient)
	require.Equal(t, validWallet, instructions.Legs[1].Recipient)
}

func TestPaymentInstructionsMissingSellerWallet(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order, err := orderService.Create(context.Background(), buyer.ID, listing.ID, "")
	require.NoError(t, err)

	instructions, err := paymentService.GetPaymentInstructions(context.Background(), order.ID, seller.ID)
	require.NoError(t, err)

	require.Empty(t, instructions.Legs[0].Recipient)
	require.NotEmpty(t, instructions.Legs[0].Note)
}

func TestPaymentInstructionsPartyOnly(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	stranger := store.seedAgent("stranger")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order, err := orderService.Create(context.Background(), buyer.ID, listing.ID, "")
	require.NoError(t, err)

	_, err = paymentService.GetPaymentInstructions(context.Background(), order.ID, stranger.ID)
	require.ErrorIs(t, err, ports.ErrNotOrderParty)
}

func TestSubmitPaymentSettlesOrder(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)

	completed, txn, err := paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID,
		entities.PaymentProof{TxSignature: validTxSignature})
	require.NoError(t, err)

	require.Equal(t, entities.OrderCompleted, completed.Status)
	require.Equal(t, entities.PaymentMethodUSDCSolana, txn.PaymentMethod)
	require.NotNil(t, txn.TxSignature)
	require.Equal(t, validTxSignature, *txn.TxSignature)
	require.True(t, txn.NetAmount.Equal(decimal.NewFromInt(99)))

	require.Equal(t, entities.ListingSold, store.listings[listing.ID].Status)

	instructions, err := paymentService.GetPaymentInstructions(context.Background(), order.ID, buyer.ID)
	require.NoError(t, err)
	require.True(t, instructions.AlreadyPaid)
}

func TestSubmitPaymentBuyerOnly(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	stranger := store.seedAgent("stranger")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)
	proof := entities.PaymentProof{TxSignature: validTxSignature}

	_, _, err := paymentService.SubmitPayment(context.Background(), order.ID, seller.ID, proof)
	require.ErrorIs(t, err, ports.ErrBuyerOnly)

	_, _, err = paymentService.SubmitPayment(context.Background(), order.ID, stranger.ID, proof)
	require.ErrorIs(t, err, ports.ErrNotOrderParty)
}

func TestSubmitPaymentStatusGuard(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order, err := orderService.Create(context.Background(), buyer.ID, listing.ID, "")
	require.NoError(t, err)

	_, _, err = paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID,
		entities.PaymentProof{TxSignature: validTxSignature})
	require.ErrorIs(t, err, ports.ErrOrderNotPayable)
}

func TestSubmitPaymentInvalidSignature(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)

	_, _, err := paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID,
		entities.PaymentProof{TxSignature: "not-base58-!!"})
	require.ErrorIs(t, err, ports.ErrInvalidTxSignature)
}

func TestSubmitPaymentDuplicateRejected(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)
	proof := entities.PaymentProof{TxSignature: validTxSignature}

	_, _, err := paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID, proof)
	require.NoError(t, err)

	_, _, err = paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID, proof)
	require.ErrorIs(t, err, ports.ErrPaymentAlreadySubmitted)
}

func TestSubmitPaymentAfterManualComplete(t *testing.T) {
	store := newMemStore()
	orderService := newTestOrderService(store, nil)
	paymentService := newTestPaymentService(store)

	seller := store.seedAgent("seller")
	buyer := store.seedAgent("buyer")
	listing := store.seedListing(seller.ID, entities.ListingSell, decimal.NewFromInt(100))

	order := verifiedOrder(t, store, orderService, buyer.ID, seller.ID, listing.ID)

	_, _, err := orderService.Complete(context.Background(), order.ID, seller.ID)
	require.NoError(t, err)

	_, _, err = paymentService.SubmitPayment(context.Background(), order.ID, buyer.ID,
		entities.PaymentProof{TxSignature: validTxSignature})
	require.ErrorIs(t, err, ports.ErrOrderNotPayable)
}

func TestSetWalletAddress(t *testing.T) {
	store := newMemStore()
	paymentService := newTestPaymentService(store)

	agent := store.seedAgent("wallet-owner")

	updated, err := paymentService.SetWalletAddress(context.Background(), agent.ID, validWallet)
	require.NoError(t, err)
	require.Equal(t, validWallet, updated.WalletAddress)

	_, err = paymentService.SetWalletAddress(context.Background(), agent.ID, "not-a-wallet-!!")
	require.ErrorIs(t, err, ports.ErrInvalidWalletAddress)
}
