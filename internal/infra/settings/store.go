// Package settings holds operator-tunable platform settings such as plan
// prices, free-tier limits and provider keys.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"justbecause/internal/domain"
)

const (
	KeyNGOFreeProjectsPerMonth           = "ngo_free_projects_per_month"
	KeyVolunteerFreeApplicationsPerMonth = "volunteer_free_applications_per_month"
	KeyAssistDailyLimit                  = "assist_daily_limit"
	KeyGeminiAPIKey                      = "gemini_api_key"
)

// PriceKey names the setting holding the price of item in currency.
// item is volunteer_pro, ngo_pro or profile_unlock.
func PriceKey(item, currency string) string {
	return "price_" + item + "_" + strings.ToLower(currency)
}

type spec struct {
	def     string
	integer bool
	secret  bool
}

var known = map[string]spec{
	KeyNGOFreeProjectsPerMonth:           {def: "3", integer: true},
	KeyVolunteerFreeApplicationsPerMonth: {def: "5", integer: true},
	KeyAssistDailyLimit:                  {def: "20", integer: true},
	KeyGeminiAPIKey:                      {secret: true},
	PriceKey("volunteer_pro", "INR"):     {def: "49900", integer: true},
	PriceKey("volunteer_pro", "USD"):     {def: "900", integer: true},
	PriceKey("ngo_pro", "INR"):           {def: "199900", integer: true},
	PriceKey("ngo_pro", "USD"):           {def: "2900", integer: true},
	PriceKey("profile_unlock", "INR"):    {def: "29900", integer: true},
	PriceKey("profile_unlock", "USD"):    {def: "500", integer: true},
}

// Store reads settings with defaults applied.
type Store struct {
	repo domain.SettingsRepository
}

func NewStore(repo domain.SettingsRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) String(ctx context.Context, key string) (string, error) {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return strings.TrimSpace(v), nil
	}
	return known[key].def, nil
}

// Int returns an integer setting, falling back to its default when the stored
// value does not parse.
func (s *Store) Int(ctx context.Context, key string) (int64, error) {
	v, err := s.String(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return strconv.ParseInt(known[key].def, 10, 64)
	}
	return n, nil
}

// Validate checks value against key's rules and returns it normalised.
func Validate(key, value string) (string, error) {
	sp, ok := known[key]
	if !ok {
		return "", domain.Invalid("key", fmt.Sprintf("unknown setting %q", key))
	}
	value = strings.TrimSpace(value)
	if sp.integer {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return "", domain.Invalid(key, "must be a non-negative integer")
		}
	}
	if sp.secret && value == "" {
		return "", domain.Invalid(key, "value is required")
	}
	return value, nil
}

// Set validates and stores a setting.
func (s *Store) Set(ctx context.Context, key, value string) error {
	value, err := Validate(key, value)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, key, value)
}

// SetAll validates every pair and stores them only when all are valid.
func (s *Store) SetAll(ctx context.Context, values map[string]string) error {
	clean := make(map[string]string, len(values))
	for _, key := range sortedKeys(values) {
		v, err := Validate(key, values[key])
		if err != nil {
			return err
		}
		clean[key] = v
	}
	for _, key := range sortedKeys(clean) {
		if err := s.repo.Set(ctx, key, clean[key]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every known setting with defaults applied. Secrets are masked.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(known))
	for key, sp := range known {
		v, ok := stored[key]
		if !ok {
			v = sp.def
		}
		if sp.secret {
			v = mask(v)
		}
		out[key] = v
	}
	return out, nil
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.String(ctx, KeyGeminiAPIKey)
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
