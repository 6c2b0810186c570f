package auth

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/adapter/memory"
	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/infra/google"
	"justbecause/internal/notify"
)

type fakeGoogle struct {
	identity *google.Identity
}

func (f *fakeGoogle) Configured() bool { return true }

func (f *fakeGoogle) Verify(_ context.Context, token string) (*google.Identity, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return f.identity, nil
}

type fixture struct {
	svc    *Service
	store  *domain.Store
	clock  *clockwork.FakeClock
	google *fakeGoogle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	tr := i18n.MustNew()
	g := &fakeGoogle{identity: &google.Identity{Subject: "g-123", Email: "Priya@Example.org", EmailVerified: true, Name: "Priya"}}
	svc := NewService(Deps{
		Store:       store,
		Signer:      NewSigner("0123456789abcdef0123", time.Hour, clock),
		Google:      g,
		Notifier:    notify.NewService(store, tr, nil, clock, "https://app.example.org", zerolog.Nop()),
		Translator:  tr,
		Clock:       clock,
		FrontendURL: "https://app.example.org",
		Logger:      zerolog.Nop(),
	})
	return &fixture{svc: svc, store: store, clock: clock, google: g}
}

var tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_%\-]+)`)

func lastToken(t *testing.T, store *domain.Store) string {
	t.Helper()
	emails := memory.Emails(store)
	require.NotEmpty(t, emails)
	m := tokenRe.FindStringSubmatch(emails[len(emails)-1].TextBody)
	require.Len(t, m, 2)
	raw, err := url.QueryUnescape(m[1])
	require.NoError(t, err)
	return raw
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.svc.Signup(ctx, SignupInput{Email: "  Asha@Example.org ", Password: "correct horse", Name: "Asha", Role: domain.RoleVolunteer, Locale: "hi-IN"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.org", session.User.Email)
	assert.Equal(t, "hi", session.User.Locale)
	assert.False(t, session.User.EmailVerified)
	assert.NotEmpty(t, session.Token)
	require.Len(t, memory.Emails(f.store), 1)

	claims, err := f.svc.signer.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.Equal(t, domain.RoleVolunteer, claims.Role)

	_, err = f.svc.Signup(ctx, SignupInput{Email: "asha@example.org", Password: "another pass", Role: domain.RoleNGO})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.Login(ctx, "ASHA@example.org", "correct horse")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "asha@example.org", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.org", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"bad email", SignupInput{Email: "nope", Password: "12345678", Role: domain.RoleVolunteer}, "email"},
		{"short password", SignupInput{Email: "a@b.org", Password: "1234567", Role: domain.RoleVolunteer}, "password"},
		{"admin role", SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleAdmin}, "role"},
		{"no role", SignupInput{Email: "a@b.org", Password: "12345678"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tt.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoginBanned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleNGO})
	require.NoError(t, err)

	user := session.User
	user.Banned = true
	require.NoError(t, f.store.Users.Update(ctx, user))

	_, err = f.svc.Login(ctx, "a@b.org", "12345678")
	assert.ErrorIs(t, err, domain.ErrBanned)
	_, err = f.svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrBanned)
}

func TestTokenExpiry(t *testing.T) {
	f := newFixture(t)
	session, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleNGO})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Authenticate(context.Background(), session.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other := NewSigner("a-different-secret-value", time.Hour, f.clock)
	_, err = other.Parse(session.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.org"))
	require.NoError(t, f.svc.ForgotPassword(ctx, "unknown@b.org"))
	require.Len(t, memory.Emails(f.store), 2)
	token := lastToken(t, f.store)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "new password"))
	err = f.svc.ResetPassword(ctx, token, "newer password")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Login(ctx, "a@b.org", "new password")
	require.NoError(t, err)
}

func TestPasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.org"))
	token := lastToken(t, f.store)

	f.clock.Advance(resetTokenTTL + time.Minute)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "new password"), domain.ErrValidation)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyEmail(ctx, lastToken(t, f.store)))
	me, err := f.svc.Me(ctx, session.User.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailVerified)
	assert.ErrorIs(t, f.svc.ResendVerification(ctx, me.ID), domain.ErrInvalidState)
}

func TestGoogleSignInCreatesThenChoosesRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.svc.GoogleSignIn(ctx, "good", "", "")
	require.NoError(t, err)
	assert.Equal(t, "priya@example.org", session.User.Email)
	assert.True(t, session.User.EmailVerified)
	assert.Equal(t, domain.RoleUnassigned, session.User.Role)

	again, err := f.svc.GoogleSignIn(ctx, "good", "", "")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)

	chosen, err := f.svc.ChooseRole(ctx, session.User.ID, domain.RoleNGO)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNGO, chosen.User.Role)

	_, err = f.svc.ChooseRole(ctx, session.User.ID, domain.RoleVolunteer)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.GoogleSignIn(ctx, "bad", "", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGoogleSignInLinksExistingEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signup, err := f.svc.Signup(ctx, SignupInput{Email: "priya@example.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)

	session, err := f.svc.GoogleSignIn(ctx, "good", "", "")
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, session.User.ID)
	assert.Equal(t, "g-123", session.User.GoogleSub)
	assert.True(t, session.User.EmailVerified)
}

func TestGoogleSignInRejectsUnverifiedEmail(t *testing.T) {
	f := newFixture(t)
	f.google.identity = &google.Identity{Subject: "g-9", Email: "x@example.org"}
	_, err := f.svc.GoogleSignIn(context.Background(), "good", domain.RoleVolunteer, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)

	name, locale, avatar := "Asha K", "hi", "https://cdn.example.org/a.png"
	user, err := f.svc.UpdateMe(ctx, session.User.ID, UpdateMeInput{Name: &name, Locale: &locale, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", user.Name)
	assert.Equal(t, "hi", user.Locale)

	bad := "klingon"
	_, err = f.svc.UpdateMe(ctx, session.User.ID, UpdateMeInput{Locale: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	ftp := "ftp://x"
	_, err = f.svc.UpdateMe(ctx, session.User.ID, UpdateMeInput{AvatarURL: &ftp})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExportMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.org", Password: "12345678", Role: domain.RoleVolunteer})
	require.NoError(t, err)

	data, err := f.svc.ExportMe(ctx, session.User.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "PK", string(data[:2]))
}
