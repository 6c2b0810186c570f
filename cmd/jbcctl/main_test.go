package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/domain"
	"justbecause/internal/testutil"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"merge-legacy"},
		{"user", "set-plan"},
		{"user", "make-admin"},
		{"settings", "set"},
		{"coupon", "create"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestCommandsNeedDatabase(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "status", "--database-url", ""})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestPlanPatch(t *testing.T) {
	now := testutil.Epoch

	p, err := planPatch("PRO", 30, now)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, *p.Plan)
	assert.Equal(t, now.Add(30*24*time.Hour), *p.PlanExpiresAt)

	p, err = planPatch("free", 0, now)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, *p.Plan)
	assert.True(t, p.ClearExpiry)

	_, err = planPatch("pro", 0, now)
	assert.Error(t, err)
	_, err = planPatch("supporter", 30, now)
	assert.Error(t, err)
}

func TestUserRefResolve(t *testing.T) {
	store := testutil.Store()
	v := testutil.Volunteer(t, store, "agent@example.org")
	ctx := context.Background()

	u, err := userRef{email: " Agent@Example.org "}.resolve(ctx, store.Users)
	require.NoError(t, err)
	assert.Equal(t, v.ID, u.ID)

	u, err = userRef{id: v.ID}.resolve(ctx, store.Users)
	require.NoError(t, err)
	assert.Equal(t, v.Email, u.Email)

	_, err = userRef{}.resolve(ctx, store.Users)
	assert.Error(t, err)
	_, err = userRef{id: v.ID, email: v.Email}.resolve(ctx, store.Users)
	assert.Error(t, err)
	_, err = userRef{email: "nobody@example.org"}.resolve(ctx, store.Users)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponFlagsInput(t *testing.T) {
	now := testutil.Epoch
	in, err := couponFlags{code: "launch", kind: "Percent", value: 20, expires: "720h", purposes: []string{"subscription"}}.input(now)
	require.NoError(t, err)
	assert.Equal(t, domain.CouponPercent, in.Kind)
	assert.Equal(t, now.Add(720*time.Hour), *in.ExpiresAt)
	assert.Equal(t, []domain.Purpose{domain.PurposeSubscription}, in.Purposes)

	in, err = couponFlags{code: "x", kind: "fixed", value: 500, currency: "usd", expires: "2026-12-31T00:00:00Z"}.input(now)
	require.NoError(t, err)
	assert.Equal(t, 2026, in.ExpiresAt.Year())

	_, err = couponFlags{code: "x", expires: "next week"}.input(now)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
