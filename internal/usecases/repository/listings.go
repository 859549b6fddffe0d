package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/agentmart/agent-marketplace/backend/internal/core/ports"
	"github.com/agentmart/agent-marketplace/backend/internal/entities"
	"github.com/agentmart/agent-marketplace/backend/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Sortable columns exposed to the search API.
var listingSortColumns = map[string]string{
	"createdAt": "l.created_at",
	"price":     "l.price",
	"viewCount": "l.view_count",
}

// ListingsRepository persists marketplace listings.
type ListingsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewListingsRepository(logger *slog.Logger, pg *database.Postgres) *ListingsRepository {
	return &ListingsRepository{logger: logger, db: pg.DBGetter, transactor: pg.Transactor}
}

const listingColumns = `l.id, l.agent_id, l.title, l.description, l.category, l.type,
	l.price::text, l.currency, l.tags, l.metadata, l.status, l.view_count,
	l.expires_at, l.created_at, l.updated_at, a.name`

// InsertListing stores a new listing.
func (r *ListingsRepository) InsertListing(ctx context.Context, listing *entities.Listing) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO listings (id, agent_id, title, description, category, type, price, currency,
		                      tags, metadata, status, view_count, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		listing.ID, listing.AgentID, listing.Title, listing.Description, listing.Category,
		listing.Type, listing.Price.String(), listing.Currency, listing.Tags, listing.Metadata,
		listing.Status, listing.ViewCount, listing.ExpiresAt, listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// FindListingByID loads one listing with its owner summary. Returns nil
// without error when absent.
func (r *ListingsRepository) FindListingByID(ctx context.Context, listingID string) (*entities.Listing, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings l JOIN agents a ON a.id = l.agent_id WHERE l.id = $1`,
		listingID,
	)

	listing, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listing %s: %w", listingID, err)
	}
	return listing, nil
}

// SearchListings runs the filtered, sorted, paginated marketplace search.
func (r *ListingsRepository) SearchListings(ctx context.Context, filters ports.ListingFilters, p ports.Pagination) ([]entities.Listing, int, error) {
	where := listingConditions(filters)

	orderBy, ok := listingSortColumns[p.SortBy]
	if !ok {
		orderBy = "l.created_at"
	}
	direction := "DESC"
	if p.SortOrder == "asc" {
		direction = "ASC"
	}

	query, args, err := psql.
		Select(listingColumns).
		From("listings l").
		Join("agents a ON a.id = l.agent_id").
		Where(where).
		OrderBy(orderBy + " " + direction).
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build listing search query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var listings []entities.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read listing rows: %w", err)
	}

	countQuery, countArgs, err := psql.Select("count(*)").From("listings l").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build listing count query: %w", err)
	}

	var total int
	if err = r.db(ctx).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	return listings, total, nil
}

func listingConditions(filters ports.ListingFilters) sq.And {
	where := sq.And{sq.Eq{"l.status": filters.Status}}

	if filters.Category != "" {
		where = append(where, sq.Eq{"l.category": filters.Category})
	}
	if filters.Type != "" {
		where = append(where, sq.Eq{"l.type": filters.Type})
	}
	if filters.AgentID != "" {
		where = append(where, sq.Eq{"l.agent_id": filters.AgentID})
	}
	if filters.MinPrice != nil {
		where = append(where, sq.GtOrEq{"l.price": filters.MinPrice.String()})
	}
	if filters.MaxPrice != nil {
		where = append(where, sq.LtOrEq{"l.price": filters.MaxPrice.String()})
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"l.title": pattern},
			sq.ILike{"l.description": pattern},
		})
	}

	return where
}

// UpdateListing saves the mutable fields of a listing.
func (r *ListingsRepository) UpdateListing(ctx context.Context, listing *entities.Listing) error {
	_, err := r.db(ctx).Exec(ctx, `
		UPDATE listings
		SET title = $2, description = $3, price = $4, tags = $5, metadata = $6,
		    status = $7, expires_at = $8, updated_at = now()
		WHERE id = $1`,
		listing.ID, listing.Title, listing.Description, listing.Price.String(),
		listing.Tags, listing.Metadata, listing.Status, listing.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing %s: %w", listing.ID, err)
	}
	return nil
}

// IncrementViewCount bumps the view counter of a listing.
func (r *ListingsRepository) IncrementViewCount(ctx context.Context, listingID string) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE listings SET view_count = view_count + 1 WHERE id = $1`, listingID)
	if err != nil {
		return fmt.Errorf("failed to increment view count for listing %s: %w", listingID, err)
	}
	return nil
}

// ExpireDueListings marks active listings past their expiry as EXPIRED and
// returns how many were affected.
func (r *ListingsRepository) ExpireDueListings(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE listings
		SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanListing reads one joined listing row.
func scanListing(row pgx.Row) (*entities.Listing, error) {
	var (
		l         entities.Listing
		priceStr  string
		ownerName string
	)

	err := row.Scan(
		&l.ID, &l.AgentID, &l.Title, &l.Description, &l.Category, &l.Type,
		&priceStr, &l.Currency, &l.Tags, &l.Metadata, &l.Status, &l.ViewCount,
		&l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt, &ownerName,
	)
	if err != nil {
		return nil, err
	}

	if l.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("invalid listing price: %w", err)
	}

	l.Agent = &entities.AgentSummary{ID: l.AgentID, Name: ownerName}
	return &l, nil
}
