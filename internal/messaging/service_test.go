package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/notify"
	"justbecause/internal/profiles"
	"justbecause/internal/realtime"
	"justbecause/internal/taxonomy"
	"justbecause/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events map[string][]string
}

func (r *recorder) Publish(_ context.Context, userID string, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string][]string{}
	}
	r.events[userID] = append(r.events[userID], ev.Type)
	return nil
}

func (r *recorder) types(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events[userID]...)
}

type noPricer struct{}

func (noPricer) UnlockPrice(context.Context, *domain.User, string) (*domain.PaymentRequiredError, error) {
	return &domain.PaymentRequiredError{Purpose: domain.PurposeProfileUnlock, AmountMinor: 500, Currency: "USD"}, nil
}

func newService(t *testing.T) (*Service, *domain.Store, *recorder) {
	t.Helper()
	store := testutil.Store()
	clock := testutil.Clock()
	rec := &recorder{}
	n := notify.NewService(store, i18n.MustNew(), rec, clock, "https://app.example.org", zerolog.Nop())
	prof := profiles.NewService(store, taxonomy.MustLoad(), n, noPricer{}, clock, zerolog.Nop())
	return NewService(store, prof, n, rec, clock, nil, zerolog.Nop()), store, rec
}

func TestStartConversationRequiresConnection(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ngo := testutil.NGO(t, store, "n@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")

	_, _, err := svc.StartConversation(ctx, ngo, vol.ID, "", "Hello there")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = svc.StartConversation(ctx, ngo, ngo.ID, "", "Hello me")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recipient_id", verr.Field)

	require.NoError(t, store.Unlocks.Create(ctx, &domain.ProfileUnlock{NGOID: ngo.ID, VolunteerID: vol.ID, Source: domain.UnlockPayment}))
	conv, msg, err := svc.StartConversation(ctx, ngo, vol.ID, "", "  Hello there  ")
	require.NoError(t, err)
	assert.True(t, conv.Has(ngo.ID))
	assert.True(t, conv.Has(vol.ID))
	assert.Equal(t, "Hello there", msg.Body)
}

func TestStartConversationViaApplication(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	ngo := testutil.NGO(t, store, "n@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")
	p := testutil.Project(t, store, ngo)
	require.NoError(t, store.Applications.Create(ctx, &domain.Application{ProjectID: p.ID, VolunteerID: vol.ID, NGOID: ngo.ID, Status: domain.ApplicationPending}))

	conv, _, err := svc.StartConversation(ctx, vol, ngo.ID, p.ID, "Question about the project")
	require.NoError(t, err)
	assert.Equal(t, p.ID, conv.ProjectID)

	again, _, err := svc.StartConversation(ctx, ngo, vol.ID, "", "Sure, ask away")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}

func TestAdminCanMessageAnyone(t *testing.T) {
	svc, store, _ := newService(t)
	admin := testutil.Admin(t, store, "a@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")
	_, _, err := svc.StartConversation(context.Background(), admin, vol.ID, "", "Welcome aboard")
	require.NoError(t, err)
}

func TestBannedRecipientIsHidden(t *testing.T) {
	svc, store, _ := newService(t)
	admin := testutil.Admin(t, store, "a@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org", func(u *domain.User) { u.Banned = true })
	_, _, err := svc.StartConversation(context.Background(), admin, vol.ID, "", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendPushesAndNotifies(t *testing.T) {
	svc, store, rec := newService(t)
	ctx := context.Background()
	admin := testutil.Admin(t, store, "a@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")
	conv, err := svc.Open(ctx, admin.ID, vol.ID, "")
	require.NoError(t, err)

	_, err = svc.Send(ctx, admin, conv.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, []string{"message", "notification"}, rec.types(vol.ID))

	unread, err := svc.UnreadCount(ctx, vol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	n, err := svc.MarkRead(ctx, vol.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, rec.types(admin.ID), "read")

	unread, err = svc.UnreadCount(ctx, vol.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestSendValidation(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	admin := testutil.Admin(t, store, "a@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")
	other := testutil.Volunteer(t, store, "o@example.org")
	conv, err := svc.Open(ctx, admin.ID, vol.ID, "")
	require.NoError(t, err)

	_, err = svc.Send(ctx, admin, conv.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Send(ctx, admin, conv.ID, strings.Repeat("x", maxBody+1))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Send(ctx, other, conv.ID, "let me in")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.ListMessages(ctx, other.ID, conv.ID, nil, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListConversationsAndMessages(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	admin := testutil.Admin(t, store, "a@example.org")
	vol := testutil.Volunteer(t, store, "v@example.org")
	conv, err := svc.Open(ctx, admin.ID, vol.ID, "")
	require.NoError(t, err)
	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, admin, conv.ID, body)
		require.NoError(t, err)
	}

	convs, err := svc.ListConversations(ctx, vol.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, admin.ID, convs[0].Other.ID)
	assert.Equal(t, 3, convs[0].Unread)

	msgs, err := svc.ListMessages(ctx, vol.ID, conv.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}
