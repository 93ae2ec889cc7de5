// Package costguard enforces the per-user cost ceiling (§4.7): before any
// LLM-invoking request handler does meaningful work on behalf of an
// authenticated user, it loads the user and compares cost_accum against
// the configured limit; after a successful LLM call the reported cost is
// added onto cost_accum by a separate write once the resulting message has
// been persisted. The message insert and the cost update are not one
// transaction.
package costguard

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// UserCostStore is the narrow persistence seam Cost Guard depends on,
// implemented by services.UserService so this
// package stays decoupled from the generated ORM client.
type UserCostStore interface {
	// UserCostAccum loads the current running total for userID.
	UserCostAccum(ctx context.Context, userID string) (float64, error)
	// AddUserCost increments the running total by deltaUSD and persists it.
	AddUserCost(ctx context.Context, userID string, deltaUSD float64) error
}

// Guard enforces the ceiling configured in CostConfig.
type Guard struct {
	store UserCostStore
	limit float64
}

// New creates a Guard backed by store, enforcing cfg.Limit.
func New(store UserCostStore, cfg *config.CostConfig) *Guard {
	return &Guard{store: store, limit: cfg.Limit}
}

// Check loads userID's accumulated cost and fails with COST_LIMIT_EXCEEDED
// if it has already reached the configured ceiling. Anonymous users (empty
// userID) are never subject to the ceiling — only authenticated users
// accumulate cost per §4.7.
func (g *Guard) Check(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	accum, err := g.store.UserCostAccum(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user cost: %w", err)
	}
	if accum >= g.limit {
		return &models.Error{
			Kind:    models.ErrKindCostLimitExceeded,
			Message: "user cost limit exceeded",
			Extra: map[string]any{
				"user_cost": accum,
				"limit":     g.limit,
			},
		}
	}
	return nil
}

// RecordUsage adds a successful LLM call's cost onto the user's running
// total. A no-op for anonymous users.
func (g *Guard) RecordUsage(ctx context.Context, userID string, costUSD float64) error {
	if userID == "" || costUSD == 0 {
		return nil
	}
	return g.store.AddUserCost(ctx, userID, costUSD)
}
