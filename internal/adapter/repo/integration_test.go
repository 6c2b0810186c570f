//go:build integration

package repo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"justbecause/internal/adapter/repo"
	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/migrations"
	"justbecause/internal/testutil"
)

var (
	testPool  *pgxpool.Pool
	testStore *domain.Store
)

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("justbecause"),
		postgres.WithUsername("jbc"),
		postgres.WithPassword("jbc"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}

	db, err := migrations.Open(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		return 1
	}
	err = migrations.Up(ctx, db)
	_ = db.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}

	testPool, err = infra.NewDBPool(ctx, &infra.Config{DatabaseURL: url})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()
	testStore = repo.NewStore(infra.NewSQLRunner(testPool, zerolog.Nop()))

	return m.Run()
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	v := testutil.Volunteer(t, testStore, "roundtrip@example.org")

	got, err := testStore.Users.GetByEmail(ctx, "roundtrip@example.org")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	require.NotNil(t, got.Volunteer)
	assert.Equal(t, "web-development", got.Volunteer.Skills[0].Subskill)

	dup := *v
	dup.ID = ""
	assert.ErrorIs(t, testStore.Users.Create(ctx, &dup), domain.ErrConflict)

	_, err = testStore.Users.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplicationsBumpProjectCounter(t *testing.T) {
	ctx := context.Background()
	ngo := testutil.NGO(t, testStore, "counter-ngo@example.org")
	vol := testutil.Volunteer(t, testStore, "counter-vol@example.org")
	p := testutil.Project(t, testStore, ngo)

	app := &domain.Application{ProjectID: p.ID, VolunteerID: vol.ID, NGOID: ngo.ID, Status: domain.ApplicationPending, MatchScore: 80}
	require.NoError(t, testStore.Applications.Create(ctx, app))
	assert.NotEmpty(t, app.ID)

	again := &domain.Application{ProjectID: p.ID, VolunteerID: vol.ID, NGOID: ngo.ID, Status: domain.ApplicationPending}
	assert.ErrorIs(t, testStore.Applications.Create(ctx, again), domain.ErrConflict)

	reloaded, err := testStore.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ApplicationsCount)

	between, err := testStore.Applications.ExistsBetween(ctx, ngo.ID, vol.ID)
	require.NoError(t, err)
	assert.True(t, between)
}

func TestConversationsAndUnread(t *testing.T) {
	ctx := context.Background()
	ngo := testutil.NGO(t, testStore, "chat-ngo@example.org")
	vol := testutil.Volunteer(t, testStore, "chat-vol@example.org")

	first, err := testStore.Conversations.FindOrCreate(ctx, &domain.Conversation{ParticipantA: ngo.ID, ParticipantB: vol.ID})
	require.NoError(t, err)
	second, err := testStore.Conversations.FindOrCreate(ctx, &domain.Conversation{ParticipantA: vol.ID, ParticipantB: ngo.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, testStore.Conversations.AddMessage(ctx, &domain.Message{ConversationID: first.ID, SenderID: vol.ID, Body: "hello"}))
	n, err := testStore.Conversations.UnreadCount(ctx, ngo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	marked, err := testStore.Conversations.MarkRead(ctx, first.ID, ngo.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	summaries, err := testStore.Conversations.ListForUser(ctx, ngo.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "hello", summaries[0].LastMessagePreview)
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testStore.Settings.Set(ctx, "price_ngo_pro_usd", "3900"))
	require.NoError(t, testStore.Settings.Set(ctx, "price_ngo_pro_usd", "4900"))
	v, ok, err := testStore.Settings.Get(ctx, "price_ngo_pro_usd")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4900", v)
}

func TestMergeLegacyProfilesAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	runner := infra.NewSQLRunner(testPool, zerolog.Nop())

	report, err := repo.MergeLegacyProfiles(ctx, runner, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"volunteer_profiles", "ngo_profiles"}, report.MissingTables)

	for _, table := range []string{"volunteer_profiles", "ngo_profiles"} {
		_, err = testPool.Exec(ctx, "create table "+table+" (user_id uuid primary key, profile jsonb not null)")
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = testPool.Exec(ctx, "drop table "+table) })
	}

	bare := testutil.Volunteer(t, testStore, "legacy@example.org", func(u *domain.User) {
		u.Volunteer = nil
		u.OnboardingCompleted = false
	})
	kept := testutil.Volunteer(t, testStore, "kept@example.org")
	_, err = testPool.Exec(ctx, `insert into volunteer_profiles (user_id, profile) values
  ($1, '{"headline":"Legacy designer","skills":[],"causes":["education"]}'),
  ($2, '{"headline":"Should not overwrite"}')`, bare.ID, kept.ID)
	require.NoError(t, err)

	dry, err := repo.MergeLegacyProfiles(ctx, runner, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dry.Volunteers)

	report, err = repo.MergeLegacyProfiles(ctx, runner, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.Volunteers)
	assert.EqualValues(t, 0, report.NGOs)

	merged := testutil.Reload(t, testStore, bare.ID)
	require.NotNil(t, merged.Volunteer)
	assert.Equal(t, "Legacy designer", merged.Volunteer.Headline)
	assert.True(t, merged.OnboardingCompleted)
	assert.Equal(t, "Full-stack developer", testutil.Reload(t, testStore, kept.ID).Volunteer.Headline)

	report, err = repo.MergeLegacyProfiles(ctx, runner, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, report.Volunteers)
}

func TestTransactionFulfilmentColumns(t *testing.T) {
	ctx := context.Background()
	buyer := testutil.Volunteer(t, testStore, "fulfil@example.org")
	tx := &domain.Transaction{UserID: buyer.ID, Purpose: domain.PurposeSubscription, Plan: domain.PlanPro,
		Gateway: "stripe", AmountMinor: 900, Currency: "USD", Status: domain.TxPending}
	require.NoError(t, testStore.Transactions.Create(ctx, tx))

	grant := testutil.Epoch.Add(30 * 24 * time.Hour)
	pinned, err := testStore.Transactions.PinGrantExpiry(ctx, tx.ID, grant)
	require.NoError(t, err)
	again, err := testStore.Transactions.PinGrantExpiry(ctx, tx.ID, grant.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, pinned.Equal(again))

	stamped, err := testStore.Transactions.MarkFulfilled(ctx, tx.ID, testutil.Epoch)
	require.NoError(t, err)
	assert.False(t, stamped)

	_, err = testStore.Transactions.MarkPaid(ctx, tx.ID, "pi_1", testutil.Epoch)
	require.NoError(t, err)
	stamped, err = testStore.Transactions.MarkFulfilled(ctx, tx.ID, testutil.Epoch)
	require.NoError(t, err)
	assert.True(t, stamped)

	got, err := testStore.Transactions.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FulfilledAt)
	require.NotNil(t, got.GrantExpiresAt)
	assert.True(t, grant.Equal(*got.GrantExpiresAt))
}
