package costguard

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	accum map[string]float64
}

func newFakeStore() *fakeStore { return &fakeStore{accum: map[string]float64{}} }

func (f *fakeStore) UserCostAccum(ctx context.Context, userID string) (float64, error) {
	return f.accum[userID], nil
}

func (f *fakeStore) AddUserCost(ctx context.Context, userID string, deltaUSD float64) error {
	f.accum[userID] += deltaUSD
	return nil
}

func TestGuard_AllowsUserUnderLimit(t *testing.T) {
	store := newFakeStore()
	store.accum["u1"] = 0.10
	g := New(store, &config.CostConfig{Limit: 0.5})

	assert.NoError(t, g.Check(context.Background(), "u1"))
}

func TestGuard_RejectsUserAtOrOverLimit(t *testing.T) {
	store := newFakeStore()
	store.accum["u1"] = 0.5
	g := New(store, &config.CostConfig{Limit: 0.5})

	err := g.Check(context.Background(), "u1")
	require.Error(t, err)

	var apiErr *models.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, models.ErrKindCostLimitExceeded, apiErr.Kind)
	assert.Equal(t, 0.5, apiErr.Extra["user_cost"])
	assert.Equal(t, 0.5, apiErr.Extra["limit"])
}

func TestGuard_AnonymousUserNeverLimited(t *testing.T) {
	g := New(newFakeStore(), &config.CostConfig{Limit: 0.5})
	assert.NoError(t, g.Check(context.Background(), ""))
}

func TestGuard_RecordUsageAccumulates(t *testing.T) {
	store := newFakeStore()
	g := New(store, &config.CostConfig{Limit: 0.5})

	require.NoError(t, g.RecordUsage(context.Background(), "u1", 0.05))
	require.NoError(t, g.RecordUsage(context.Background(), "u1", 0.05))
	assert.Equal(t, 0.10, store.accum["u1"])
}

func TestGuard_RecordUsageIsNoOpForAnonymous(t *testing.T) {
	store := newFakeStore()
	g := New(store, &config.CostConfig{Limit: 0.5})
	require.NoError(t, g.RecordUsage(context.Background(), "", 0.05))
	assert.Empty(t, store.accum)
}
