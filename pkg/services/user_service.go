package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/docuchat/ent"
)

// UserService is the ent-backed CRUD wrapper over User rows, and the
// concrete implementation the composition root hands to
// costguard.Guard as its UserCostStore.
type UserService struct {
	client *ent.Client
}

// NewUserService creates a new UserService.
func NewUserService(client *ent.Client) *UserService {
	return &UserService{client: client}
}

// EnsureExists creates userID with a placeholder email if it doesn't
// already exist. The auth collaborator only hands back an opaque user id;
// the first request that references it lazily materializes the row.
func (s *UserService) EnsureExists(ctx context.Context, userID string) error {
	if _, err := s.client.User.Get(ctx, userID); err == nil {
		return nil
	} else if !ent.IsNotFound(err) {
		return fmt.Errorf("check user existence: %w", err)
	}

	_, err := s.client.User.Create().
		SetID(userID).
		SetEmail(userID + "@users.docuchat.local").
		SetCreatedAt(time.Now()).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil // already exists — fine
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserCostAccum satisfies costguard.UserCostStore: loads the current
// running total for userID.
func (s *UserService) UserCostAccum(ctx context.Context, userID string) (float64, error) {
	u, err := s.client.User.Get(ctx, userID)
	if err != nil {
		if ent.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get user cost: %w", err)
	}
	return u.CostAccum, nil
}

// AddUserCost satisfies costguard.UserCostStore: increments userID's
// running cost total by deltaUSD.
func (s *UserService) AddUserCost(ctx context.Context, userID string, deltaUSD float64) error {
	_, err := s.client.User.UpdateOneID(userID).
		AddCostAccum(deltaUSD).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("add user cost: %w", err)
	}
	return nil
}

// RecordLogin stamps last_login_at for userID.
func (s *UserService) RecordLogin(ctx context.Context, userID string) error {
	now := time.Now()
	_, err := s.client.User.UpdateOneID(userID).
		SetLastLoginAt(now).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}
