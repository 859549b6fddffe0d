package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

// memStore is an in-memory stand-in for the Postgres repositories. Its
// mutations take the store lock for their whole duration, giving the same
// atomicity the real repositories get from guarded UPDATEs and the
// transactor, so the concurrency tests exercise genuine race outcomes.
type memStore struct {
	mu sync.Mutex

	agents       map[string]*entities.Agent
	listings     map[string]*entities.Listing
	orders       map[string]*entities.Order
	transactions map[string]*entities.Transaction // keyed by order ID
}

func newMemStore() *memStore {
	return &memStore{
		agents:       make(map[string]*entities.Agent),
		listings:     make(map[string]*entities.Listing),
		orders:       make(map[string]*entities.Order),
		transactions: make(map[string]*entities.Transaction),
	}
}

var (
	_ OrdersRepository       = (*memStore)(nil)
	_ ListingsRepository     = (*memStore)(nil)
	_ AgentsRepository       = (*memStore)(nil)
	_ TransactionsRepository = (*memStore)(nil)
)

// --- seeding helpers ---

func (m *memStore) seedAgent(name string) *entities.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent := &entities.Agent{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      name + "@example.com",
		APIKey:     uuid.New().String(),
		Status:     entities.AgentVerified,
		Rating:     decimal.Zero,
		LastActive: time.Now().UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	m.agents[agent.ID] = agent
	return agent
}

func (m *memStore) seedListing(ownerID string, listingType entities.ListingType, price decimal.Decimal) *entities.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	listing := &entities.Listing{
		ID:          uuid.New().String(),
		AgentID:     ownerID,
		Title:       "seeded listing",
		Description: "seeded listing description",
		Category:    entities.CategoryData,
		Type:        listingType,
		Price:       price,
		Currency:    ports.DefaultCurrency,
		Status:      entities.ListingActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.listings[listing.ID] = listing
	return listing
}

// --- OrdersRepository ---

func (m *memStore) InsertOrder(_ context.Context, order *entities.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *memStore) FindOrderByID(_ context.Context, orderID string) (*entities.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return m.denormalizeOrder(order), nil
}

func (m *memStore) FindOrdersByAgent(_ context.Context, agentID string, limit, offset int) ([]entities.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*entities.Order
	for _, order := range m.orders {
		if order.BuyerID == agentID || order.SellerID == agentID {
			matched = append(matched, order)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]entities.Order, 0, end-offset)
	for _, order := range matched[offset:end] {
		page = append(page, *m.denormalizeOrder(order))
	}
	return page, total, nil
}

func (m *memStore) MarkPartyVerified(_ context.Context, orderID string, party entities.OrderParty) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != entities.OrderPendingVerification && order.Status != entities.OrderVerified {
		return false, nil
	}

	switch party {
	case entities.PartyBuyer:
		if order.BuyerVerified {
			return false, nil
		}
		order.BuyerVerified = true
		if order.SellerVerified {
			order.Status = entities.OrderVerified
		}
	case entities.PartySeller:
		if order.SellerVerified {
			return false, nil
		}
		order.SellerVerified = true
		if order.BuyerVerified {
			order.Status = entities.OrderVerified
		}
	}
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) CompleteOrder(_ context.Context, orderID string, proof *entities.PaymentProof) (*entities.Order, *entities.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil, ports.ErrOrderNotFound
	}
	if order.Status != entities.OrderVerified && order.Status != entities.OrderInProgress {
		return nil, nil, ports.ErrOrderNotCompletable
	}

	txn := m.transactions[orderID]
	if txn != nil && proof != nil && txn.TxSignature != nil {
		return nil, nil, ports.ErrPaymentAlreadySubmitted
	}

	now := time.Now().UTC()
	if txn == nil {
		txn = &entities.Transaction{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			Amount:      order.Amount,
			PlatformFee: order.PlatformFee,
			NetAmount:   order.Amount.Sub(order.PlatformFee),
			CreatedAt:   now,
		}
		m.transactions[orderID] = txn
	}
	txn.Status = entities.TransactionCompleted
	txn.ProcessedAt = &now
	if proof != nil {
		txn.PaymentMethod = entities.PaymentMethodUSDCSolana
		sig := proof.TxSignature
		txn.TxSignature = &sig
		txn.FeeTxSignature = proof.FeeTxSignature
	}

	order.Status = entities.OrderCompleted
	order.CompletedAt = &now
	order.UpdatedAt = now

	if buyer := m.agents[order.BuyerID]; buyer != nil {
		buyer.TotalTrades++
	}
	if seller := m.agents[order.SellerID]; seller != nil {
		seller.TotalTrades++
	}
	if listing := m.listings[order.ListingID]; listing != nil {
		listing.Status = entities.ListingSold
	}

	completed := m.denormalizeOrder(order)
	return completed, completed.Transaction, nil
}

func (m *memStore) CancelOrder(_ context.Context, orderID string) (*entities.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	if order.Status == entities.OrderCompleted {
		return nil, ports.ErrOrderCompleted
	}

	order.Status = entities.OrderCancelled
	order.UpdatedAt = time.Now().UTC()
	return m.denormalizeOrder(order), nil
}

// denormalizeOrder builds the joined view the SQL repository returns. Caller
// must hold the lock.
func (m *memStore) denormalizeOrder(order *entities.Order) *entities.Order {
	out := *order

	if listing := m.listings[order.ListingID]; listing != nil {
		out.Listing = &entities.ListingSummary{
			ID: listing.ID, Title: listing.Title, Type: listing.Type, Category: listing.Category,
		}
	}
	if buyer := m.agents[order.BuyerID]; buyer != nil {
		out.Buyer = &entities.AgentSummary{ID: buyer.ID, Name: buyer.Name}
	}
	if seller := m.agents[order.SellerID]; seller != nil {
		out.Seller = &entities.AgentSummary{ID: seller.ID, Name: seller.Name}
	}
	if txn := m.transactions[order.ID]; txn != nil {
		txnCopy := *txn
		out.Transaction = &txnCopy
	}
	return &out
}

// --- ListingsRepository ---

func (m *memStore) InsertListing(_ context.Context, listing *entities.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *listing
	m.listings[listing.ID] = &stored
	return nil
}

func (m *memStore) FindListingByID(_ context.Context, listingID string) (*entities.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[listingID]
	if !ok {
		return nil, nil
	}

	out := *listing
	if owner := m.agents[listing.AgentID]; owner != nil {
		out.Agent = &entities.AgentSummary{ID: owner.ID, Name: owner.Name}
	}
	return &out, nil
}

func (m *memStore) SearchListings(_ context.Context, filters ports.ListingFilters, p ports.Pagination) ([]entities.Listing, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*entities.Listing
	for _, listing := range m.listings {
		if filters.Status != "" && string(listing.Status) != filters.Status {
			continue
		}
		if filters.Category != "" && string(listing.Category) != filters.Category {
			continue
		}
		if filters.Type != "" && string(listing.Type) != filters.Type {
			continue
		}
		if filters.AgentID != "" && listing.AgentID != filters.AgentID {
			continue
		}
		if filters.MinPrice != nil && listing.Price.LessThan(*filters.MinPrice) {
			continue
		}
		if filters.MaxPrice != nil && listing.Price.GreaterThan(*filters.MaxPrice) {
			continue
		}
		matched = append(matched, listing)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := p.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := offset + p.Limit
	if end > total {
		end = total
	}

	page := make([]entities.Listing, 0, end-offset)
	for _, listing := range matched[offset:end] {
		page = append(page, *listing)
	}
	return page, total, nil
}

func (m *memStore) UpdateListing(_ context.Context, listing *entities.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *listing
	stored.Agent = nil
	stored.UpdatedAt = time.Now().UTC()
	m.listings[listing.ID] = &stored
	return nil
}

func (m *memStore) IncrementViewCount(_ context.Context, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if listing, ok := m.listings[listingID]; ok {
		listing.ViewCount++
	}
	return nil
}

func (m *memStore) ExpireDueListings(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, listing := range m.listings {
		if listing.Status == entities.ListingActive && listing.ExpiresAt != nil && listing.ExpiresAt.Before(now) {
			listing.Status = entities.ListingExpired
			listing.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

// --- AgentsRepository ---

func (m *memStore) InsertAgent(_ context.Context, agent *entities.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.agents {
		if existing.Name == agent.Name || existing.Email == agent.Email {
			return ports.ErrAgentExists
		}
	}
	stored := *agent
	m.agents[agent.ID] = &stored
	return nil
}

func (m *memStore) FindAgentByID(_ context.Context, agentID string) (*entities.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return nil, nil
	}
	out := *agent
	return &out, nil
}

func (m *memStore) FindAgentByAPIKey(_ context.Context, apiKey string) (*entities.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, agent := range m.agents {
		if agent.APIKey == apiKey {
			out := *agent
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListAgents(_ context.Context, limit, offset int) ([]entities.Agent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*entities.Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		all = append(all, agent)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]entities.Agent, 0, end-offset)
	for _, agent := range all[offset:end] {
		page = append(page, *agent)
	}
	return page, total, nil
}

func (m *memStore) UpdateAgentProfile(_ context.Context, agent *entities.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.agents {
		if existing.ID != agent.ID && existing.Name == agent.Name {
			return ports.ErrAgentExists
		}
	}
	stored := *agent
	m.agents[agent.ID] = &stored
	return nil
}

func (m *memStore) UpdateWalletAddress(_ context.Context, agentID, walletAddress string) (*entities.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return nil, nil
	}
	agent.WalletAddress = walletAddress
	out := *agent
	return &out, nil
}

func (m *memStore) TouchLastActive(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agent, ok := m.agents[agentID]; ok {
		agent.LastActive = time.Now().UTC()
	}
	return nil
}

func (m *memStore) AgentStats(_ context.Context, agentID string) (ports.AgentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats ports.AgentStats
	stats.TotalRevenue = decimal.Zero

	for _, listing := range m.listings {
		if listing.AgentID == agentID && listing.Status == entities.ListingActive {
			stats.ActiveListings++
		}
	}
	for _, order := range m.orders {
		if order.BuyerID != agentID && order.SellerID != agentID {
			continue
		}
		stats.TotalOrders++
		if order.Status == entities.OrderCompleted {
			stats.CompletedOrders++
			if order.SellerID == agentID {
				if txn := m.transactions[order.ID]; txn != nil {
					stats.TotalRevenue = stats.TotalRevenue.Add(txn.NetAmount)
				}
			}
		}
	}
	return stats, nil
}

// --- TransactionsRepository ---

func (m *memStore) FindTransactionByOrderID(_ context.Context, orderID string) (*entities.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, ok := m.transactions[orderID]
	if !ok {
		return nil, nil
	}
	return m.denormalizeTransaction(txn), nil
}

func (m *memStore) FindTransactionsByAgent(_ context.Context, agentID string, limit, offset int) ([]entities.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*entities.Transaction
	for orderID, txn := range m.transactions {
		order := m.orders[orderID]
		if order == nil {
			continue
		}
		if order.BuyerID == agentID || order.SellerID == agentID {
			matched = append(matched, txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]entities.Transaction, 0, end-offset)
	for _, txn := range matched[offset:end] {
		page = append(page, *m.denormalizeTransaction(txn))
	}
	return page, total, nil
}

func (m *memStore) PlatformStats(_ context.Context) (ports.PlatformStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ports.PlatformStats{
		TotalVolume:     decimal.Zero,
		PlatformRevenue: decimal.Zero,
	}
	for _, txn := range m.transactions {
		if txn.Status != entities.TransactionCompleted {
			continue
		}
		stats.TotalTransactions++
		stats.TotalVolume = stats.TotalVolume.Add(txn.Amount)
		stats.PlatformRevenue = stats.PlatformRevenue.Add(txn.PlatformFee)
	}
	return stats, nil
}

// denormalizeTransaction builds the joined view. Caller must hold the lock.
func (m *memStore) denormalizeTransaction(txn *entities.Transaction) *entities.Transaction {
	out := *txn

	order := m.orders[txn.OrderID]
	if order == nil {
		return &out
	}

	summary := &entities.OrderSummary{ID: order.ID}
	if listing := m.listings[order.ListingID]; listing != nil {
		summary.Listing = &entities.ListingSummary{ID: listing.ID, Title: listing.Title}
	}
	if buyer := m.agents[order.BuyerID]; buyer != nil {
		summary.Buyer = &entities.AgentSummary{ID: buyer.ID, Name: buyer.Name}
	}
	if seller := m.agents[order.SellerID]; seller != nil {
		summary.Seller = &entities.AgentSummary{ID: seller.ID, Name: seller.Name}
	}
	out.Order = summary
	return &out
}

// eventRecorder captures published order events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []ports.OrderEvent
}

func (r *eventRecorder) PublishOrderEvent(event ports.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
