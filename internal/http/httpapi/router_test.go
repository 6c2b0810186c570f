package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/adapter/memory"
	"justbecause/internal/auth"
	"justbecause/internal/bootstrap"
	"justbecause/internal/infra"
	"justbecause/internal/infra/geoip"
	"justbecause/internal/testutil"
)

type server struct {
	t       *testing.T
	handler http.Handler
	svc     *bootstrap.Services
}

func newServer(t *testing.T, authLimit int) *server {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:              "test",
		StorageDriver:       "memory",
		JWTSecret:           "test-secret-0123456789",
		JWTTTL:              time.Hour,
		FrontendBaseURL:     "https://app.example.org",
		StoragePath:         t.TempDir(),
		StorageBaseURL:      "http://api.example.org/static",
		CORSAllowedOrigins:  []string{"https://app.example.org"},
		RateLimitPerMin:     1000,
		AuthRateLimitPerMin: authLimit,
	}
	backends := &bootstrap.Backends{Store: memory.NewStore()}
	svc, err := bootstrap.Build(cfg, backends, zerolog.Nop(), bootstrap.Options{Realtime: true, Clock: testutil.Clock()})
	require.NoError(t, err)
	t.Cleanup(svc.Hub.Stop)

	h := NewRouter(svc.HTTP(backends.Readiness()), Options{
		Authenticator:       svc.Auth,
		Limiter:             svc.Limiter,
		Locator:             geoip.NewLocator(nil),
		Logger:              zerolog.Nop(),
		RateLimitPerMin:     cfg.RateLimitPerMin,
		AuthRateLimitPerMin: cfg.AuthRateLimitPerMin,
		StaticDir:           cfg.StoragePath,
	})
	return &server{t: t, handler: h, svc: svc}
}

func (s *server) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID                  string `json:"id"`
		Role                string `json:"role"`
		OnboardingCompleted bool   `json:"onboarding_completed"`
	} `json:"user"`
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Field   string         `json:"field"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *server) signup(email, role string) session {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": email, "password": "correct horse", "name": "Test " + role, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](s.t, rec)
}

func (s *server) onboardNGO(token string) {
	s.t.Helper()
	rec := s.do(http.MethodPut, "/v1/me/ngo-profile", token, map[string]any{
		"org_name":    "Green Earth Trust",
		"description": "We plant trees and run environmental education camps.",
		"causes":      []string{"environment"},
		"location":    map[string]string{"city": "Mumbai", "country": "IN"},
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(s.t, true, decode[map[string]any](s.t, rec)["onboarding_completed"])
}

func (s *server) onboardVolunteer(token string) {
	s.t.Helper()
	rec := s.do(http.MethodPut, "/v1/me/volunteer-profile", token, map[string]any{
		"headline":       "Web developer",
		"skills":         []map[string]string{{"category": "technology", "subskill": "web-development", "level": "expert"}},
		"causes":         []string{"environment"},
		"work_mode":      "remote",
		"hours_per_week": 10,
		"volunteer_type": "free",
		"phone":          "+91 90000 00000",
		"open_to_work":   true,
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	s := newServer(t, 100)

	rec := s.do(http.MethodGet, "/v1/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/v1/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestErrorEnvelope(t *testing.T) {
	s := newServer(t, 100)

	rec := s.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorBody](t, rec).Error.Code)

	rec = s.do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "correct horse", "role": "ngo",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation", body.Error.Code)
	assert.Equal(t, "email", body.Error.Field)

	rec = s.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "nobody@example.org", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[errorBody](t, rec).Error.Code)

	rec = s.do(http.MethodGet, "/v1/projects/does-not-exist", "", nil, "Accept-Language", "hi-IN")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "hi", rec.Header().Get("Content-Language"))
}

func TestMarketplaceFlow(t *testing.T) {
	s := newServer(t, 100)

	ngo := s.signup("ngo@example.org", "ngo")
	s.onboardNGO(ngo.Token)
	vol := s.signup("vol@example.org", "volunteer")
	s.onboardVolunteer(vol.Token)

	// volunteers cannot post projects
	rec := s.do(http.MethodPost, "/v1/projects", vol.Token, map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/v1/projects", ngo.Token, map[string]any{
		"title":          "Build our donation website",
		"description":    "We need a simple site that takes donations and shows our impact.",
		"skills":         []map[string]string{{"subskill": "web-development"}},
		"causes":         []string{"environment"},
		"hours_per_week": 5,
		"duration_weeks": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[map[string]any](t, rec)
	projectID := project["id"].(string)
	assert.Equal(t, "active", project["status"])

	rec = s.do(http.MethodGet, "/v1/projects?q=donation", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	rec = s.do(http.MethodPost, "/v1/projects/"+projectID+"/applications", vol.Token, map[string]string{"cover_letter": "I build sites."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[map[string]any](t, rec)
	assert.Greater(t, app["match_score"].(float64), 0.0)

	rec = s.do(http.MethodPost, "/v1/projects/"+projectID+"/applications", vol.Token, map[string]string{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/v1/projects/"+projectID+"/applications", ngo.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 1)

	rec = s.do(http.MethodPatch, "/v1/applications/"+app["id"].(string)+"/status", ngo.Token, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", decode[map[string]any](t, rec)["status"])

	rec = s.do(http.MethodGet, "/v1/conversations", vol.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode[map[string][]map[string]any](t, rec)["items"]
	require.Len(t, convs, 1)

	rec = s.do(http.MethodPost, "/v1/conversations/"+convs[0]["id"].(string)+"/messages", vol.Token, map[string]string{"body": "Thanks! When do we start?"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/conversations/unread", ngo.Token, nil)
	assert.EqualValues(t, 1, decode[map[string]int](t, rec)["unread"])

	rec = s.do(http.MethodGet, "/v1/notifications/unread", vol.Token, nil)
	assert.GreaterOrEqual(t, decode[map[string]int](t, rec)["unread"], 1)
}

func TestUnlockRequiresPayment(t *testing.T) {
	s := newServer(t, 100)
	ngo := s.signup("ngo@example.org", "ngo")
	s.onboardNGO(ngo.Token)
	vol := s.signup("vol@example.org", "volunteer")
	s.onboardVolunteer(vol.Token)

	rec := s.do(http.MethodGet, "/v1/volunteers/"+vol.User.ID, ngo.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[map[string]any](t, rec)
	assert.Equal(t, false, v["contact_unlocked"])
	assert.Empty(t, v["profile"].(map[string]any)["phone"])

	rec = s.do(http.MethodPost, "/v1/volunteers/"+vol.User.ID+"/unlock", ngo.Token, nil, "X-Country", "IN")
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.Equal(t, "payment_required", body.Error.Code)
	assert.Equal(t, "INR", body.Error.Details["currency"])
	assert.EqualValues(t, 29900, body.Error.Details["amount_minor"])
}

func TestAuthRateLimit(t *testing.T) {
	s := newServer(t, 2)
	creds := map[string]string{"email": "x@example.org", "password": "wrong-pass"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/v1/auth/login", "", creds).Code)
	}
	rec := s.do(http.MethodPost, "/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other routes keep the global budget
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/taxonomy", "", nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newServer(t, 100)
	ngo := s.signup("ngo@example.org", "ngo")
	rec := s.do(http.MethodGet, "/v1/admin/stats", ngo.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := testutil.Admin(t, s.svc.Store, "root@example.org")
	token, _, err := auth.NewSigner(s.svc.Config.JWTSecret, time.Hour, s.svc.Clock).Sign(admin)
	require.NoError(t, err)
	rec = s.do(http.MethodGet, "/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadImage(t *testing.T) {
	s := newServer(t, 100)
	vol := s.signup("vol@example.org", "volunteer")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "avatar.png")
	require.NoError(t, err)
	_, _ = part.Write(append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+vol.Token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	up := decode[map[string]any](t, rec)
	assert.True(t, strings.HasPrefix(up["url"].(string), "http://api.example.org/static/uploads/"+vol.User.ID+"/"))

	key := up["key"].(string)
	rec = s.do(http.MethodGet, "/static/"+key, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenAPIListsRoutes(t *testing.T) {
	s := newServer(t, 100)
	rec := s.do(http.MethodGet, "/v1/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[struct {
		Paths map[string]map[string]struct {
			Security []any `json:"security"`
		} `json:"paths"`
	}](t, rec)
	require.Contains(t, doc.Paths, "/v1/projects/{id}")
	assert.Empty(t, doc.Paths["/v1/projects/{id}"]["get"].Security)
	assert.NotEmpty(t, doc.Paths["/v1/projects/{id}"]["patch"].Security)
	assert.Contains(t, doc.Paths, "/v1/admin/settings")
}
