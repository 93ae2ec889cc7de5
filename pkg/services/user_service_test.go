package services_test

import (
	"context"
	"testing"

	testdb "github.com/codeready-toolchain/docuchat/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/docuchat/pkg/services"
)

func TestUserService_EnsureExistsIsIdempotent(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewUserService(db.Client)
	ctx := context.Background()

	require.NoError(t, svc.EnsureExists(ctx, "u1"))
	require.NoError(t, svc.EnsureExists(ctx, "u1"))

	cost, err := svc.UserCostAccum(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cost)
}

func TestUserService_UnknownUserCostAccumIsZero(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewUserService(db.Client)

	cost, err := svc.UserCostAccum(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Zero(t, cost)
}

func TestUserService_AddUserCostAccumulates(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewUserService(db.Client)
	ctx := context.Background()

	require.NoError(t, svc.EnsureExists(ctx, "u1"))
	require.NoError(t, svc.AddUserCost(ctx, "u1", 0.05))
	require.NoError(t, svc.AddUserCost(ctx, "u1", 0.05))

	cost, err := svc.UserCostAccum(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.10, cost, 0.0001)
}

func TestUserService_AddUserCostMissingUserReturnsNotFound(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewUserService(db.Client)

	err := svc.AddUserCost(context.Background(), "missing", 0.05)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_RecordLoginMissingUserReturnsNotFound(t *testing.T) {
	db := testdb.NewTestClient(t)
	svc := services.NewUserService(db.Client)

	err := svc.RecordLogin(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
