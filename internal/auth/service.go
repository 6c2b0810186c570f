// Package auth handles accounts: password and Google sign-in, session tokens,
// email verification and password resets.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"justbecause/internal/domain"
	"justbecause/internal/i18n"
	"justbecause/internal/infra/google"
	"justbecause/internal/metrics"
	"justbecause/internal/notify"
)

const (
	resetTokenTTL  = time.Hour
	verifyTokenTTL = 48 * time.Hour
	minPassword    = 8
	maxPassword    = 72
)

// ErrInvalidCredentials is returned for any failed password login so callers
// cannot probe which emails exist.
var ErrInvalidCredentials = fmt.Errorf("%w: email or password is incorrect", domain.ErrUnauthorized)

// IdentityVerifier checks Google ID tokens.
type IdentityVerifier interface {
	Configured() bool
	Verify(ctx context.Context, token string) (*google.Identity, error)
}

// Session is a signed-in user and their bearer token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	store       *domain.Store
	signer      *Signer
	google      IdentityVerifier
	notifier    *notify.Service
	translator  *i18n.Translator
	clock       clockwork.Clock
	metrics     *metrics.Metrics
	frontendURL string
	logger      zerolog.Logger
}

type Deps struct {
	Store       *domain.Store
	Signer      *Signer
	Google      IdentityVerifier
	Notifier    *notify.Service
	Translator  *i18n.Translator
	Clock       clockwork.Clock
	Metrics     *metrics.Metrics
	FrontendURL string
	Logger      zerolog.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		store:       d.Store,
		signer:      d.Signer,
		google:      d.Google,
		notifier:    d.Notifier,
		translator:  d.Translator,
		clock:       d.Clock,
		metrics:     d.Metrics,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		logger:      d.Logger.With().Str("component", "auth").Logger(),
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
	Locale   string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Role != domain.RoleVolunteer && in.Role != domain.RoleNGO {
		return nil, domain.Invalid("role", "must be volunteer or ngo")
	}
	name := strings.TrimSpace(in.Name)
	if len(name) > 120 {
		return nil, domain.Invalid("name", "must be at most 120 characters")
	}
	if _, err := s.store.Users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Email:        email,
		Name:         name,
		Locale:       s.translator.Normalize(in.Locale),
		PasswordHash: string(hash),
		Role:         in.Role,
		Plan:         domain.PlanFree,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.Signup("password")
	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("queue verification email failed")
	}
	return s.login(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Banned {
		return nil, domain.ErrBanned
	}
	return s.login(ctx, user)
}

// GoogleSignIn signs in with a Google ID token. Accounts are matched by
// Google subject, then linked by verified email, then created. role may be
// empty, in which case the new account picks one later with ChooseRole.
func (s *Service) GoogleSignIn(ctx context.Context, idToken string, role domain.Role, locale string) (*Session, error) {
	if s.google == nil || !s.google.Configured() {
		return nil, fmt.Errorf("%w: google sign-in is not configured", domain.ErrProviderFailure)
	}
	if role != domain.RoleUnassigned && role != domain.RoleVolunteer && role != domain.RoleNGO {
		return nil, domain.Invalid("role", "must be volunteer or ngo")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	user, err := s.store.Users.GetByGoogleSub(ctx, identity.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		user, err = s.linkOrCreate(ctx, identity, role, locale)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if user.Banned {
		return nil, domain.ErrBanned
	}
	return s.login(ctx, user)
}

func (s *Service) linkOrCreate(ctx context.Context, identity *google.Identity, role domain.Role, locale string) (*domain.User, error) {
	email := domain.NormalizeEmail(identity.Email)
	if email == "" || !identity.EmailVerified {
		return nil, fmt.Errorf("%w: google account email is not verified", domain.ErrUnauthorized)
	}
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err == nil {
		user.GoogleSub = identity.Subject
		user.EmailVerified = true
		if user.AvatarURL == "" {
			user.AvatarURL = identity.Picture
		}
		if err := s.store.Users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if locale == "" {
		locale = identity.Locale
	}
	user = &domain.User{
		Email:         email,
		Name:          identity.Name,
		AvatarURL:     identity.Picture,
		Locale:        s.translator.Normalize(locale),
		GoogleSub:     identity.Subject,
		Role:          role,
		Plan:          domain.PlanFree,
		EmailVerified: true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.Signup("google")
	return user, nil
}

// ChooseRole assigns a side of the marketplace to an account that has none.
func (s *Service) ChooseRole(ctx context.Context, userID string, role domain.Role) (*Session, error) {
	if role != domain.RoleVolunteer && role != domain.RoleNGO {
		return nil, domain.Invalid("role", "must be volunteer or ngo")
	}
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleUnassigned {
		return nil, fmt.Errorf("%w: role already chosen", domain.ErrInvalidState)
	}
	user.Role = role
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ForgotPassword queues a reset link when the account exists. It never
// reports whether it did.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.Users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Banned {
		return nil
	}
	raw, err := s.newToken(ctx, user.ID, domain.TokenPasswordReset, resetTokenTTL)
	if err != nil {
		return err
	}
	return s.notifier.SendAccountEmail(ctx, user, "reset", s.frontendURL+"/reset-password?token="+url.QueryEscape(raw))
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	t, err := s.consume(ctx, domain.TokenPasswordReset, token)
	if err != nil {
		return err
	}
	user, err := s.store.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	// Following the emailed link proves the address.
	user.EmailVerified = true
	return s.store.Users.Update(ctx, user)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	t, err := s.consume(ctx, domain.TokenEmailVerify, token)
	if err != nil {
		return err
	}
	user, err := s.store.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	user.EmailVerified = true
	return s.store.Users.Update(ctx, user)
}

func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: email already verified", domain.ErrInvalidState)
	}
	return s.sendVerification(ctx, user)
}

// Authenticate resolves a bearer token to its live user record.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if user.Banned {
		return nil, domain.ErrBanned
	}
	return user, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.Users.GetByID(ctx, userID)
}

type UpdateMeInput struct {
	Name      *string
	Locale    *string
	AvatarURL *string
}

func (s *Service) UpdateMe(ctx context.Context, userID string, in UpdateMeInput) (*domain.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > 120 {
			return nil, domain.Invalid("name", "must be 1..120 characters")
		}
		user.Name = name
	}
	if in.Locale != nil {
		locale := s.translator.Match(*in.Locale)
		if locale == "" {
			return nil, domain.Invalid("locale", "unsupported locale")
		}
		user.Locale = locale
	}
	if in.AvatarURL != nil {
		if err := validateURL("avatar_url", *in.AvatarURL); err != nil {
			return nil, err
		}
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) login(ctx context.Context, user *domain.User) (*Session, error) {
	now := s.clock.Now().UTC()
	user.LastLoginAt = &now
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return s.issue(user)
}

func (s *Service) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.signer.Sign(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User) error {
	raw, err := s.newToken(ctx, user.ID, domain.TokenEmailVerify, verifyTokenTTL)
	if err != nil {
		return err
	}
	return s.notifier.SendAccountEmail(ctx, user, "verify", s.frontendURL+"/verify-email?token="+url.QueryEscape(raw))
}

func (s *Service) newToken(ctx context.Context, userID string, kind domain.TokenKind, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	err := s.store.Tokens.Create(ctx, &domain.AuthToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: hashToken(raw),
		ExpiresAt: s.clock.Now().UTC().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return raw, nil
}

func (s *Service) consume(ctx context.Context, kind domain.TokenKind, raw string) (*domain.AuthToken, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.Invalid("token", "is required")
	}
	t, err := s.store.Tokens.Consume(ctx, kind, hashToken(raw), s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("token", "is invalid or has expired")
		}
		return nil, err
	}
	return t, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.IndexByte(email, '@')+1:], ".") {
		return domain.Invalid("email", "is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPassword || len(password) > maxPassword {
		return domain.Invalid("password", fmt.Sprintf("must be %d to %d bytes", minPassword, maxPassword))
	}
	return nil
}

func validateURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Invalid(field, "must be an http(s) URL")
	}
	return nil
}
