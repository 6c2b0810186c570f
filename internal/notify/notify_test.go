package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/adapter/memory"
	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/realtime"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]realtime.Event{}
	}
	p.events[userID] = append(p.events[userID], ev)
	return nil
}

func newTestService(t *testing.T) (*Service, *domain.Store, *recordingPublisher, *clockwork.FakeClock) {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := NewService(store, i18n.MustNew(), pub, clock, "https://app.example.org/", zerolog.Nop())
	return svc, store, pub, clock
}

func createUser(t *testing.T, store *domain.Store, email, locale string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: "Asha", Locale: locale, Role: domain.RoleVolunteer, Plan: domain.PlanFree}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

func TestNotifyLocalizesPushesAndEmails(t *testing.T) {
	svc, store, pub, _ := newTestService(t)
	tr := i18n.MustNew()
	user := createUser(t, store, "asha@example.org", "hi")

	n, err := svc.Notify(context.Background(), user.ID, Event{
		Type: domain.NotifyApplicationStatus,
		Args: []any{"Website revamp", "accepted"},
		Link: "/applications/a1",
		Data: map[string]any{"application_id": "a1"},
	})
	require.NoError(t, err)
	assert.Equal(t, tr.T("hi", "notify.application_status.title"), n.Title)
	assert.Equal(t, tr.T("hi", "notify.application_status.body", "Website revamp", "accepted"), n.Body)

	require.Len(t, pub.events[user.ID], 1)
	assert.Equal(t, "notification", pub.events[user.ID][0].Type)

	emails := memory.Emails(store)
	require.Len(t, emails, 1)
	assert.Equal(t, "asha@example.org", emails[0].To)
	assert.Contains(t, emails[0].HTMLBody, "https://app.example.org/applications/a1")
	assert.Contains(t, emails[0].TextBody, "https://app.example.org/applications/a1")

	count, err := svc.UnreadCount(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotifySkipsEmailForChattyTypes(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	user := createUser(t, store, "asha@example.org", "en")

	_, err := svc.Notify(context.Background(), user.ID, Event{Type: domain.NotifyNewMessage, Args: []any{"Green Earth"}})
	require.NoError(t, err)
	assert.Empty(t, memory.Emails(store))
}

func TestNotifyUnknownRecipient(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Notify(context.Background(), "missing", Event{Type: domain.NotifyNewMessage})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	user := createUser(t, store, "asha@example.org", "en")
	for i := 0; i < 3; i++ {
		_, err := svc.Notify(ctx, user.ID, Event{Type: domain.NotifyNewMessage, Args: []any{"x"}})
		require.NoError(t, err)
	}
	list, err := svc.List(ctx, user.ID, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.NoError(t, svc.MarkRead(ctx, user.ID, list[0].ID))

	n, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, svc.MarkRead(ctx, "someone-else", list[1].ID), domain.ErrNotFound)
}

func TestRenderEscapesBody(t *testing.T) {
	html, text, err := Render(Content{Greeting: "Hi", Body: "<script>x</script>", ActionLabel: "Open", ActionURL: "https://a.example"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "<script>x</script>")
	assert.Contains(t, text, "Open: https://a.example")
}

type flakyMailer struct {
	fail bool
	sent []domain.EmailMessage
}

func (m *flakyMailer) Send(_ context.Context, msg domain.EmailMessage) error {
	if m.fail {
		return errors.New("relay down")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, Backoff(1))
	assert.Equal(t, 2*time.Minute, Backoff(2))
	assert.Equal(t, 8*time.Minute, Backoff(4))
}

func TestOutboxWorkerRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Outbox.Enqueue(ctx, &domain.EmailMessage{To: "a@example.org", Subject: "s", SendAfter: clock.Now()}))

	mailer := &flakyMailer{fail: true}
	w := NewOutboxWorker(store.Outbox, mailer, clock, nil, zerolog.Nop())

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		sent, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)

		// Nothing is due until the backoff elapses.
		sent, err = w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)

		clock.Advance(Backoff(attempt))
	}

	emails := memory.Emails(store)
	require.Len(t, emails, 1)
	assert.Equal(t, domain.EmailFailed, emails[0].Status)
	assert.Equal(t, MaxAttempts, emails[0].Attempts)
	assert.Equal(t, "relay down", emails[0].LastError)
}

func TestOutboxWorkerSends(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Outbox.Enqueue(ctx, &domain.EmailMessage{To: "a@example.org", Subject: "s", SendAfter: clock.Now()}))

	mailer := &flakyMailer{}
	sent, err := NewOutboxWorker(store.Outbox, mailer, clock, nil, zerolog.Nop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, domain.EmailSent, memory.Emails(store)[0].Status)
}
