// Package profiles owns onboarding, profile browsing and the contact paywall
// on pro-bono volunteers.
package profiles

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/notify"
	"justbecause/internal/taxonomy"
)

// UnlockPricer quotes the price of a profile unlock for a buyer.
type UnlockPricer interface {
	UnlockPrice(ctx context.Context, buyer *domain.User, country string) (*domain.PaymentRequiredError, error)
}

type Service struct {
	store    *domain.Store
	taxonomy *taxonomy.Taxonomy
	notifier *notify.Service
	pricer   UnlockPricer
	clock    clockwork.Clock
	logger   zerolog.Logger
}

func NewService(store *domain.Store, tax *taxonomy.Taxonomy, notifier *notify.Service, pricer UnlockPricer, clock clockwork.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		taxonomy: tax,
		notifier: notifier,
		pricer:   pricer,
		clock:    clock,
		logger:   logger.With().Str("component", "profiles").Logger(),
	}
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

const maxSkills = 30

// SaveVolunteerProfile validates and stores the Impact Agent profile.
// Counters earned on the platform are kept from the stored profile.
func (s *Service) SaveVolunteerProfile(ctx context.Context, userID string, p domain.VolunteerProfile) (*domain.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleVolunteer {
		return nil, fmt.Errorf("%w: only volunteers have a volunteer profile", domain.ErrForbidden)
	}
	if err := s.normalizeVolunteer(&p); err != nil {
		return nil, err
	}
	if user.Volunteer != nil {
		p.CompletedProjects = user.Volunteer.CompletedProjects
		p.HoursContributed = user.Volunteer.HoursContributed
	}
	user.Volunteer = &p
	user.OnboardingCompleted = p.Complete()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) normalizeVolunteer(p *domain.VolunteerProfile) error {
	p.Headline = strings.TrimSpace(p.Headline)
	p.Bio = strings.TrimSpace(p.Bio)
	if len([]rune(p.Headline)) > 120 {
		return domain.Invalid("headline", "must be at most 120 characters")
	}
	if len([]rune(p.Bio)) > 2000 {
		return domain.Invalid("bio", "must be at most 2000 characters")
	}
	if len(p.Skills) > maxSkills {
		return domain.Invalid("skills", fmt.Sprintf("at most %d skills", maxSkills))
	}
	seen := make(map[string]bool, len(p.Skills))
	skills := make([]domain.Skill, 0, len(p.Skills))
	for i, sk := range p.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		sk.Subskill = strings.TrimSpace(sk.Subskill)
		if err := s.taxonomy.ValidateSkill(field, sk.Category, sk.Subskill); err != nil {
			return err
		}
		sk.Category, _ = s.taxonomy.CategoryOf(sk.Subskill)
		if sk.Level == "" {
			sk.Level = domain.LevelIntermediate
		}
		if !sk.Level.Valid() {
			return domain.Invalid(field+".level", "must be beginner, intermediate or expert")
		}
		if seen[sk.Subskill] {
			continue
		}
		seen[sk.Subskill] = true
		skills = append(skills, sk)
	}
	p.Skills = skills
	p.Causes = dedupe(p.Causes)
	if err := s.taxonomy.ValidateCauses("causes", p.Causes); err != nil {
		return err
	}
	if p.WorkMode != "" && !p.WorkMode.Valid() {
		return domain.Invalid("work_mode", "must be remote, onsite or hybrid")
	}
	if p.VolunteerType != "" && !p.VolunteerType.Valid() {
		return domain.Invalid("volunteer_type", "must be free, paid or both")
	}
	// 0 means not provided yet; onboarding stays incomplete until it is set.
	if p.HoursPerWeek < 0 || p.HoursPerWeek > 80 {
		return domain.Invalid("hours_per_week", "must be between 1 and 80, or 0 when not yet known")
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.VolunteerType == domain.VolunteerPaid || p.VolunteerType == domain.VolunteerBoth {
		if p.HourlyRate <= 0 {
			return domain.Invalid("hourly_rate", "is required for paid work")
		}
		if !currencyRe.MatchString(p.Currency) {
			return domain.Invalid("currency", "must be a 3-letter code")
		}
	} else {
		p.HourlyRate = 0
	}
	p.Location.Country = strings.ToUpper(strings.TrimSpace(p.Location.Country))
	p.Location.City = strings.TrimSpace(p.Location.City)
	if err := validateURL("linkedin_url", p.LinkedInURL); err != nil {
		return err
	}
	if err := validateURL("portfolio_url", p.PortfolioURL); err != nil {
		return err
	}
	if len(p.Phone) > 32 {
		return domain.Invalid("phone", "must be at most 32 characters")
	}
	return nil
}

// SaveNGOProfile validates and stores the organisation profile. Verification
// is controlled by admins and kept from the stored profile.
func (s *Service) SaveNGOProfile(ctx context.Context, userID string, p domain.NGOProfile) (*domain.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleNGO {
		return nil, fmt.Errorf("%w: only NGOs have an organisation profile", domain.ErrForbidden)
	}
	if err := s.normalizeNGO(&p); err != nil {
		return nil, err
	}
	p.Verified, p.VerifiedAt = false, nil
	if user.NGO != nil {
		p.Verified, p.VerifiedAt = user.NGO.Verified, user.NGO.VerifiedAt
	}
	user.NGO = &p
	user.OnboardingCompleted = p.Complete()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) normalizeNGO(p *domain.NGOProfile) error {
	p.OrgName = strings.TrimSpace(p.OrgName)
	p.Description = strings.TrimSpace(p.Description)
	if len([]rune(p.OrgName)) > 150 {
		return domain.Invalid("org_name", "must be at most 150 characters")
	}
	if len([]rune(p.Description)) > 5000 {
		return domain.Invalid("description", "must be at most 5000 characters")
	}
	p.Causes = dedupe(p.Causes)
	if err := s.taxonomy.ValidateCauses("causes", p.Causes); err != nil {
		return err
	}
	if err := validateURL("website", p.Website); err != nil {
		return err
	}
	if err := validateURL("logo_url", p.LogoURL); err != nil {
		return err
	}
	if p.ContactEmail = domain.NormalizeEmail(p.ContactEmail); p.ContactEmail != "" {
		if _, err := mail.ParseAddress(p.ContactEmail); err != nil {
			return domain.Invalid("contact_email", "is not a valid address")
		}
	}
	if p.YearFounded != 0 && (p.YearFounded < 1800 || p.YearFounded > s.clock.Now().Year()) {
		return domain.Invalid("year_founded", "is out of range")
	}
	if p.TeamSize < 0 {
		return domain.Invalid("team_size", "must not be negative")
	}
	p.Location.Country = strings.ToUpper(strings.TrimSpace(p.Location.Country))
	p.Location.City = strings.TrimSpace(p.Location.City)
	return nil
}

// ContactVisible reports whether viewer may see the volunteer's contact
// details. viewer is nil for anonymous requests.
func (s *Service) ContactVisible(ctx context.Context, viewer, volunteer *domain.User) (bool, error) {
	if !volunteer.Volunteer.GatesContact() {
		return true, nil
	}
	if viewer == nil {
		return false, nil
	}
	if viewer.ID == volunteer.ID || viewer.Role == domain.RoleAdmin {
		return true, nil
	}
	if viewer.Role != domain.RoleNGO {
		return false, nil
	}
	unlocked, err := s.store.Unlocks.Exists(ctx, viewer.ID, volunteer.ID)
	if err != nil || unlocked {
		return unlocked, err
	}
	return s.store.Applications.ExistsBetween(ctx, viewer.ID, volunteer.ID)
}

// Volunteer is the public card of an Impact Agent.
type Volunteer struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	AvatarURL       string                  `json:"avatar_url,omitempty"`
	Email           string                  `json:"email,omitempty"`
	Profile         domain.VolunteerProfile `json:"profile"`
	ContactUnlocked bool                    `json:"contact_unlocked"`
	JoinedAt        time.Time               `json:"joined_at"`
}

func volunteerView(u *domain.User, visible bool) Volunteer {
	v := Volunteer{ID: u.ID, Name: u.DisplayName(), AvatarURL: u.AvatarURL, ContactUnlocked: visible, JoinedAt: u.CreatedAt}
	if u.Volunteer != nil {
		v.Profile = *u.Volunteer
	}
	if visible {
		v.Email = u.Email
	} else {
		v.Profile = v.Profile.Redacted()
	}
	return v
}

// VolunteerFor renders u for viewer with the contact rules applied.
func (s *Service) VolunteerFor(ctx context.Context, viewer, u *domain.User) (Volunteer, error) {
	visible, err := s.ContactVisible(ctx, viewer, u)
	if err != nil {
		return Volunteer{}, err
	}
	return volunteerView(u, visible), nil
}

type VolunteerFilter struct {
	Query         string
	Skill         string
	Cause         string
	WorkMode      domain.WorkMode
	VolunteerType domain.VolunteerType
	Country       string
	Limit         int
	Offset        int
}

// BrowseVolunteers lists onboarded, active volunteers for NGOs and admins.
func (s *Service) BrowseVolunteers(ctx context.Context, viewer *domain.User, f VolunteerFilter) ([]Volunteer, int, error) {
	if viewer == nil || (viewer.Role != domain.RoleNGO && viewer.Role != domain.RoleAdmin) {
		return nil, 0, fmt.Errorf("%w: only organisations can browse volunteers", domain.ErrForbidden)
	}
	notBanned := false
	users, total, err := s.store.Users.List(ctx, domain.UserFilter{
		Role:          domain.RoleVolunteer,
		Query:         strings.TrimSpace(f.Query),
		Skill:         f.Skill,
		Cause:         f.Cause,
		WorkMode:      f.WorkMode,
		VolunteerType: f.VolunteerType,
		Country:       strings.ToUpper(f.Country),
		Banned:        &notBanned,
		OnboardedOnly: true,
		Limit:         domain.ClampLimit(f.Limit),
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]Volunteer, 0, len(users))
	for i := range users {
		v, err := s.VolunteerFor(ctx, viewer, &users[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// GetVolunteer returns one volunteer. Banned or non-volunteer accounts are
// reported as not found to everyone but admins.
func (s *Service) GetVolunteer(ctx context.Context, viewer *domain.User, id string) (Volunteer, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return Volunteer{}, err
	}
	isAdmin := viewer != nil && viewer.Role == domain.RoleAdmin
	if u.Role != domain.RoleVolunteer || (u.Banned && !isAdmin) {
		return Volunteer{}, domain.ErrNotFound
	}
	return s.VolunteerFor(ctx, viewer, u)
}

// NGO is the public card of an organisation.
type NGO struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Profile   domain.NGOProfile `json:"profile"`
	JoinedAt  time.Time         `json:"joined_at"`
}

func ngoView(u *domain.User) NGO {
	n := NGO{ID: u.ID, Name: u.DisplayName(), AvatarURL: u.Summary().AvatarURL, JoinedAt: u.CreatedAt}
	if u.NGO != nil {
		n.Profile = *u.NGO
	}
	return n
}

type NGOFilter struct {
	Query    string
	Cause    string
	Country  string
	Verified *bool
	Limit    int
	Offset   int
}

func (s *Service) BrowseNGOs(ctx context.Context, f NGOFilter) ([]NGO, int, error) {
	notBanned := false
	users, total, err := s.store.Users.List(ctx, domain.UserFilter{
		Role:          domain.RoleNGO,
		Query:         strings.TrimSpace(f.Query),
		Cause:         f.Cause,
		Country:       strings.ToUpper(f.Country),
		Verified:      f.Verified,
		Banned:        &notBanned,
		OnboardedOnly: true,
		Limit:         domain.ClampLimit(f.Limit),
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]NGO, 0, len(users))
	for i := range users {
		out = append(out, ngoView(&users[i]))
	}
	return out, total, nil
}

func (s *Service) GetNGO(ctx context.Context, id string) (NGO, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return NGO{}, err
	}
	if u.Role != domain.RoleNGO || u.Banned {
		return NGO{}, domain.ErrNotFound
	}
	return ngoView(u), nil
}

// UnlockResult reports the outcome of an unlock request.
type UnlockResult struct {
	Unlocked bool   `json:"unlocked"`
	Source   string `json:"source,omitempty"`
}

// UnlockVolunteer opens a pro-bono volunteer's contact details to an NGO.
// NGOs on an active Pro plan unlock for free; others get a
// PaymentRequiredError carrying the price to pay through checkout.
func (s *Service) UnlockVolunteer(ctx context.Context, ngo *domain.User, volunteerID, country string) (*UnlockResult, error) {
	if ngo.Role != domain.RoleNGO {
		return nil, fmt.Errorf("%w: only organisations can unlock profiles", domain.ErrForbidden)
	}
	volunteer, err := s.store.Users.GetByID(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer.Role != domain.RoleVolunteer || volunteer.Banned {
		return nil, domain.ErrNotFound
	}
	visible, err := s.ContactVisible(ctx, ngo, volunteer)
	if err != nil {
		return nil, err
	}
	if visible {
		return &UnlockResult{Unlocked: true}, nil
	}
	if ngo.HasActivePro(s.clock.Now()) {
		if err := s.GrantUnlock(ctx, ngo, volunteerID, domain.UnlockSubscription, ""); err != nil {
			return nil, err
		}
		return &UnlockResult{Unlocked: true, Source: string(domain.UnlockSubscription)}, nil
	}
	quote, err := s.pricer.UnlockPrice(ctx, ngo, country)
	if err != nil {
		return nil, err
	}
	return nil, quote
}

// GrantUnlock records an unlock and tells the volunteer who can now reach them.
// Repeated grants for the same pair are no-ops.
func (s *Service) GrantUnlock(ctx context.Context, ngo *domain.User, volunteerID string, source domain.UnlockSource, transactionID string) error {
	unlock := &domain.ProfileUnlock{
		NGOID:         ngo.ID,
		VolunteerID:   volunteerID,
		Source:        source,
		TransactionID: transactionID,
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.store.Unlocks.Create(ctx, unlock); err != nil {
		return fmt.Errorf("record unlock: %w", err)
	}
	_, err := s.notifier.Notify(ctx, volunteerID, notify.Event{
		Type: domain.NotifyProfileUnlocked,
		Args: []any{ngo.DisplayName()},
		Link: "/ngos/" + ngo.ID,
		Data: map[string]any{"ngo_id": ngo.ID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("volunteer_id", volunteerID).Msg("unlock notification failed")
	}
	return nil
}

// Unlocked lists the volunteers an NGO has unlocked.
func (s *Service) Unlocked(ctx context.Context, ngo *domain.User) ([]Volunteer, error) {
	if ngo.Role != domain.RoleNGO {
		return nil, fmt.Errorf("%w: only organisations unlock profiles", domain.ErrForbidden)
	}
	unlocks, err := s.store.Unlocks.ListByNGO(ctx, ngo.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(unlocks))
	for _, u := range unlocks {
		ids = append(ids, u.VolunteerID)
	}
	users, err := s.store.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Volunteer, 0, len(unlocks))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, volunteerView(u, true))
		}
	}
	return out, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
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
