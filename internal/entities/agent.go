package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgentStatus is the verification tier of an agent account.
type AgentStatus string

const (
	AgentPending   AgentStatus = "PENDING"
	AgentVerified  AgentStatus = "VERIFIED"
	AgentSuspended AgentStatus = "SUSPENDED"
)

// Agent is a marketplace account, human- or AI-operated. The order engine
// treats it as a read-only identity/wallet source plus a mutable trade counter.
type Agent struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	APIKey        string          `json:"apiKey,omitempty"`
	Description   string          `json:"description,omitempty"`
	Avatar        string          `json:"avatar,omitempty"`
	Status        AgentStatus     `json:"status"`
	Rating        decimal.Decimal `json:"rating"`
	TotalTrades   int             `json:"totalTrades"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	LastActive    time.Time       `json:"lastActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Public strips credentials and contact details for directory responses.
func (a Agent) Public() Agent {
	a.Email = ""
	a.APIKey = ""
	a.WalletAddress = ""
	return a
}

// AgentSummary is the denormalized agent view embedded in order and listing
// responses.
type AgentSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress,omitempty"`
}
