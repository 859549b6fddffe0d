package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/agentmart/agent-marketplace/backend/internal/handlers"
)

// ListingExpirer worker periodically marks listings past their expiry date as
// expired so they drop out of the catalog.
type ListingExpirer struct {
	logger         *slog.Logger
	listingService handlers.ListingService

	// How often to sweep for due listings.
	sweepInterval time.Duration
}

// NewListingExpirer creates a new listing expiry worker
func NewListingExpirer(logger *slog.Logger, listingService handlers.ListingService, sweepInterval time.Duration) *ListingExpirer {
	return &ListingExpirer{
		logger:         logger,
		listingService: listingService,
		sweepInterval:  sweepInterval,
	}
}

// Start begins the periodic expiry sweep
func (le *ListingExpirer) Start(ctx context.Context) {
	le.logger.Info("Starting listing expirer worker", "sweep_interval", le.sweepInterval.String())

	// Run an initial sweep immediately
	if err := le.expireDueListings(ctx); err != nil {
		le.logger.Error("Initial listing expiry sweep failed", "error", err)
	}

	ticker := time.NewTicker(le.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			le.logger.Info("Listing expirer worker stopped")
			return
		case <-ticker.C:
			if err := le.expireDueListings(ctx); err != nil {
				le.logger.Error("Listing expiry sweep failed", "error", err)
			}
		}
	}
}

func (le *ListingExpirer) expireDueListings(ctx context.Context) error {
	count, err := le.listingService.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if count > 0 {
		le.logger.Info("Expired due listings", "count", count)
	} else {
		le.logger.Debug("No listings due for expiry")
	}

	return nil
}
