package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/pkg/database"
)

const pgUniqueViolation = "23505"

// AgentsRepository persists agent accounts and their trade counters.
type AgentsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewAgentsRepository(logger *slog.Logger, pg *database.Postgres) *AgentsRepository {
	return &AgentsRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

const agentColumns = `id, name, email, api_key, description, avatar, status,
	rating::text, total_trades, wallet_address, last_active, created_at`

// InsertAgent stores a new agent account. Name and email are unique; a
// violation maps to ErrAgentExists.
func (r *AgentsRepository) InsertAgent(ctx context.Context, agent *entities.Agent) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO agents (id, name, email, api_key, description, avatar, status, rating,
		                    total_trades, wallet_address, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		agent.ID, agent.Name, agent.Email, agent.APIKey, agent.Description, agent.Avatar,
		agent.Status, agent.Rating.String(), agent.TotalTrades,
		nullableString(agent.WalletAddress), agent.LastActive, agent.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ports.ErrAgentExists
		}
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

// FindAgentByID loads one agent. Returns nil without error when absent.
func (r *AgentsRepository) FindAgentByID(ctx context.Context, agentID string) (*entities.Agent, error) {
	return r.findAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, agentID)
}

// FindAgentByAPIKey resolves the bearer credential to an agent account.
func (r *AgentsRepository) FindAgentByAPIKey(ctx context.Context, apiKey string) (*entities.Agent, error) {
	return r.findAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE api_key = $1`, apiKey)
}

func (r *AgentsRepository) findAgent(ctx context.Context, query string, arg any) (*entities.Agent, error) {
	agent, err := scanAgent(r.db(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query agent: %w", err)
	}
	return agent, nil
}

// ListAgents returns the public directory page, newest first.
func (r *AgentsRepository) ListAgents(ctx context.Context, limit, offset int) ([]entities.Agent, int, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []entities.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan agent row: %w", err)
		}
		agents = append(agents, *agent)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read agent rows: %w", err)
	}

	var total int
	if err = r.db(ctx).QueryRow(ctx, `SELECT count(*) FROM agents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count agents: %w", err)
	}

	return agents, total, nil
}

// UpdateAgentProfile saves the editable profile fields.
func (r *AgentsRepository) UpdateAgentProfile(ctx context.Context, agent *entities.Agent) error {
	_, err := r.db(ctx).Exec(ctx, `
		UPDATE agents
		SET name = $2, description = $3, avatar = $4, wallet_address = $5, last_active = now()
		WHERE id = $1`,
		agent.ID, agent.Name, agent.Description, agent.Avatar, nullableString(agent.WalletAddress),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ports.ErrAgentExists
		}
		return fmt.Errorf("failed to update agent %s: %w", agent.ID, err)
	}
	return nil
}

// UpdateWalletAddress stores the payout wallet of an agent.
func (r *AgentsRepository) UpdateWalletAddress(ctx context.Context, agentID, walletAddress string) (*entities.Agent, error) {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE agents SET wallet_address = $2 WHERE id = $1`, agentID, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to set wallet address for agent %s: %w", agentID, err)
	}
	return r.FindAgentByID(ctx, agentID)
}

// TouchLastActive refreshes the activity timestamp; best effort.
func (r *AgentsRepository) TouchLastActive(ctx context.Context, agentID string) error {
	_, err := r.db(ctx).Exec(ctx, `UPDATE agents SET last_active = now() WHERE id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("failed to touch last active for agent %s: %w", agentID, err)
	}
	return nil
}

// AgentStats aggregates the dashboard numbers for one agent.
func (r *AgentsRepository) AgentStats(ctx context.Context, agentID string) (ports.AgentStats, error) {
	var stats ports.AgentStats

	err := r.db(ctx).QueryRow(ctx,
		`SELECT count(*) FROM listings WHERE agent_id = $1 AND status = 'ACTIVE'`, agentID,
	).Scan(&stats.ActiveListings)
	if err != nil {
		return stats, fmt.Errorf("failed to count active listings: %w", err)
	}

	err = r.db(ctx).QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'COMPLETED')
		FROM orders WHERE buyer_id = $1 OR seller_id = $1`, agentID,
	).Scan(&stats.TotalOrders, &stats.CompletedOrders)
	if err != nil {
		return stats, fmt.Errorf("failed to count orders: %w", err)
	}

	var revenueStr string
	err = r.db(ctx).QueryRow(ctx, `
		SELECT COALESCE(sum(t.net_amount), 0)::text
		FROM transactions t
		JOIN orders o ON o.id = t.order_id
		WHERE o.seller_id = $1 AND t.status = 'COMPLETED'`, agentID,
	).Scan(&revenueStr)
	if err != nil {
		return stats, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if stats.TotalRevenue, err = decimal.NewFromString(revenueStr); err != nil {
		return stats, fmt.Errorf("invalid revenue sum: %w", err)
	}

	return stats, nil
}

func scanAgent(row pgx.Row) (*entities.Agent, error) {
	var (
		a         entities.Agent
		ratingStr string
		wallet    *string
	)

	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.APIKey, &a.Description, &a.Avatar, &a.Status,
		&ratingStr, &a.TotalTrades, &wallet, &a.LastActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.Rating, err = decimal.NewFromString(ratingStr); err != nil {
		return nil, fmt.Errorf("invalid agent rating: %w", err)
	}
	if wallet != nil {
		a.WalletAddress = *wallet
	}
	return &a, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
