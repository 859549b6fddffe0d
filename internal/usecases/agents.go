package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
)

type AgentsRepository interface {
	InsertAgent(ctx context.Context, agent *entities.Agent) error
	FindAgentByID(ctx context.Context, agentID string) (*entities.Agent, error)
	FindAgentByAPIKey(ctx context.Context, apiKey string) (*entities.Agent, error)
	ListAgents(ctx context.Context, limit, offset int) ([]entities.Agent, int, error)
	UpdateAgentProfile(ctx context.Context, agent *entities.Agent) error
	UpdateWalletAddress(ctx context.Context, agentID, walletAddress string) (*entities.Agent, error)
	TouchLastActive(ctx context.Context, agentID string) error
	AgentStats(ctx context.Context, agentID string) (ports.AgentStats, error)
}

// RegisterAgentRequest carries the fields a new agent account is built from.
type RegisterAgentRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}

// UpdateAgentRequest carries the editable profile fields; nil means keep.
type UpdateAgentRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Avatar        *string `json:"avatar"`
	WalletAddress *string `json:"walletAddress"`
}

// AgentService manages agent accounts and the public directory.
type AgentService struct {
	logger *slog.Logger

	repo AgentsRepository
}

func NewAgentService(logger *slog.Logger, repo AgentsRepository) *AgentService {
	return &AgentService{logger: logger, repo: repo}
}

// Register creates an agent account and issues its API key. Name and email
// must be unique across the marketplace.
func (s *AgentService) Register(ctx context.Context, req RegisterAgentRequest) (*entities.Agent, error) {
	if err := validateAgentName(req.Name); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ports.ErrValidation)
	}

	now := time.Now().UTC()
	agent := &entities.Agent{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Email:       req.Email,
		APIKey:      uuid.New().String(),
		Description: req.Description,
		Avatar:      req.Avatar,
		Status:      entities.AgentPending,
		Rating:      decimal.Zero,
		LastActive:  now,
		CreatedAt:   now,
	}

	if err := s.repo.InsertAgent(ctx, agent); err != nil {
		return nil, err
	}

	s.logger.Info("agent registered", "agent_id", agent.ID, "name", agent.Name)
	return agent, nil
}

// FindByAPIKey resolves a bearer credential; used by the auth middleware.
func (s *AgentService) FindByAPIKey(ctx context.Context, apiKey string) (*entities.Agent, error) {
	return s.repo.FindAgentByAPIKey(ctx, apiKey)
}

// GetProfile loads the caller's own account, sensitive fields included.
func (s *AgentService) GetProfile(ctx context.Context, agentID string) (*entities.Agent, error) {
	agent, err := s.repo.FindAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ports.ErrAgentNotFound
	}
	return agent, nil
}

// GetPublicProfile loads any agent with credentials stripped.
func (s *AgentService) GetPublicProfile(ctx context.Context, agentID string) (*entities.Agent, error) {
	agent, err := s.GetProfile(ctx, agentID)
	if err != nil {
		return nil, err
	}
	public := agent.Public()
	return &public, nil
}

// Directory returns the public agent listing, newest first, stripped.
func (s *AgentService) Directory(ctx context.Context, p ports.Pagination) ([]entities.Agent, *ports.PageMeta, error) {
	p = p.Normalize()

	agents, total, err := s.repo.ListAgents(ctx, p.Limit, p.Offset())
	if err != nil {
		return nil, nil, err
	}

	public := make([]entities.Agent, len(agents))
	for i := range agents {
		public[i] = agents[i].Public()
	}
	return public, ports.NewPageMeta(p, total), nil
}

// UpdateProfile applies the provided fields to the caller's own account.
func (s *AgentService) UpdateProfile(ctx context.Context, agentID string, req UpdateAgentRequest) (*entities.Agent, error) {
	agent, err := s.repo.FindAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ports.ErrAgentNotFound
	}

	if req.Name != nil {
		if err = validateAgentName(*req.Name); err != nil {
			return nil, err
		}
		agent.Name = *req.Name
	}
	if req.Description != nil {
		agent.Description = *req.Description
	}
	if req.Avatar != nil {
		agent.Avatar = *req.Avatar
	}
	if req.WalletAddress != nil {
		if *req.WalletAddress != "" {
			if _, err = solana.PublicKeyFromBase58(*req.WalletAddress); err != nil {
				return nil, fmt.Errorf("%w: %s", ports.ErrInvalidWalletAddress, *req.WalletAddress)
			}
		}
		agent.WalletAddress = *req.WalletAddress
	}

	if err = s.repo.UpdateAgentProfile(ctx, agent); err != nil {
		return nil, err
	}

	s.logger.Info("agent profile updated", "agent_id", agentID)
	return s.repo.FindAgentByID(ctx, agentID)
}

// TouchLastActive refreshes the activity timestamp; best effort, errors are
// logged and swallowed.
func (s *AgentService) TouchLastActive(ctx context.Context, agentID string) {
	if err := s.repo.TouchLastActive(ctx, agentID); err != nil {
		s.logger.Warn("failed to touch agent activity", "agent_id", agentID, "error", err)
	}
}

// DashboardStats aggregates the caller's marketplace numbers.
func (s *AgentService) DashboardStats(ctx context.Context, agentID string) (ports.AgentStats, error) {
	return s.repo.AgentStats(ctx, agentID)
}

func validateAgentName(name string) error {
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return fmt.Errorf("%w: name must be between 3 and 100 characters", ports.ErrValidation)
	}
	return nil
}
