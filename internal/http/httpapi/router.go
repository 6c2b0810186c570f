package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"justbecause/internal/domain"
	"justbecause/internal/http/handlers"
	"justbecause/internal/infra/geoip"
	mw "justbecause/internal/middleware"
	"justbecause/internal/ratelimit"
)

// Options configures the middleware around the handlers.
type Options struct {
	Authenticator       mw.Authenticator
	Limiter             ratelimit.Limiter
	Locator             *geoip.Locator
	Logger              zerolog.Logger
	RateLimitPerMin     int
	AuthRateLimitPerMin int
	StaticDir           string
}

// publicOperations are reachable without a bearer token. The OpenAPI
// document marks every other operation as secured.
var publicOperations = map[string]bool{
	"GET /v1/healthz":                    true,
	"GET /v1/readyz":                     true,
	"GET /v1/openapi.json":               true,
	"GET /v1/docs":                       true,
	"GET /v1/taxonomy":                   true,
	"GET /v1/i18n/messages":              true,
	"GET /v1/stats/public":               true,
	"GET /v1/billing/plans":              true,
	"POST /v1/billing/webhooks/stripe":   true,
	"POST /v1/billing/webhooks/razorpay": true,
	"POST /v1/auth/signup":               true,
	"POST /v1/auth/login":                true,
	"POST /v1/auth/google":               true,
	"POST /v1/auth/forgot-password":      true,
	"POST /v1/auth/reset-password":       true,
	"POST /v1/auth/verify-email":         true,
	"GET /v1/projects":                   true,
	"GET /v1/projects/{id}":              true,
	"GET /v1/ngos":                       true,
	"GET /v1/ngos/{id}":                  true,
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(opts.Logger),
		mw.Metrics(app.Metrics),
		mw.CORS(app.AllowedOrigins),
		mw.I18N(app.Translator, opts.Locator),
		mw.RateLimit(opts.Limiter, ratelimit.Rule{Name: "global", Limit: opts.RateLimitPerMin, Window: time.Minute}, mw.ByClientIP),
	)

	authn := mw.Auth(opts.Authenticator)
	optional := mw.OptionalAuth(opts.Authenticator)
	authLimit := mw.RateLimit(opts.Limiter, ratelimit.Rule{Name: "auth", Limit: opts.AuthRateLimitPerMin, Window: time.Minute}, mw.ByClientIP)
	ngoOnly := mw.RequireRole(domain.RoleNGO, domain.RoleAdmin)
	volunteerOnly := mw.RequireRole(domain.RoleVolunteer)

	r.Handle("/metrics", app.Metrics.Handler())
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/readyz", app.Ready)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
		r.Get("/taxonomy", app.GetTaxonomy)
		r.Get("/i18n/messages", app.I18nMessages)
		r.Get("/stats/public", app.PublicStats)
		r.Get("/billing/plans", app.Plans)
		r.Post("/billing/webhooks/stripe", app.StripeWebhook)
		r.Post("/billing/webhooks/razorpay", app.RazorpayWebhook)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/signup", app.Signup)
			r.Post("/login", app.Login)
			r.Post("/google", app.GoogleSignIn)
			r.Post("/forgot-password", app.ForgotPassword)
			r.Post("/reset-password", app.ResetPassword)
			r.Post("/verify-email", app.VerifyEmail)
			r.With(authn).Post("/resend-verification", app.ResendVerification)
			r.With(authn).Post("/role", app.ChooseRole)
		})

		// Anonymous browsing; a token, when sent, unlocks owner views.
		r.Group(func(r chi.Router) {
			r.Use(optional)
			r.Get("/projects", app.BrowseProjects)
			r.Get("/projects/{id}", app.GetProject)
			r.Get("/ngos", app.BrowseNGOs)
			r.Get("/ngos/{id}", app.GetNGO)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/ws", app.Websocket)

			r.Get("/me", app.Me)
			r.Patch("/me", app.UpdateMe)
			r.Get("/me/export", app.ExportMe)
			r.With(volunteerOnly).Put("/me/volunteer-profile", app.SaveVolunteerProfile)
			r.With(mw.RequireRole(domain.RoleNGO)).Put("/me/ngo-profile", app.SaveNGOProfile)

			r.Get("/volunteers", app.BrowseVolunteers)
			r.Get("/volunteers/{id}", app.GetVolunteer)
			r.Post("/volunteers/{id}/unlock", app.UnlockVolunteer)
			r.Get("/unlocks", app.UnlockedVolunteers)

			r.With(ngoOnly).Post("/projects", app.CreateProject)
			r.Patch("/projects/{id}", app.UpdateProject)
			r.Delete("/projects/{id}", app.DeleteProject)
			r.With(ngoOnly).Get("/projects/mine", app.MyProjects)
			r.With(volunteerOnly).Get("/projects/recommended", app.RecommendProjects)
			r.With(ngoOnly).Get("/projects/{id}/recommended-volunteers", app.RecommendVolunteers)
			r.With(volunteerOnly).Post("/projects/{id}/applications", app.Apply)
			r.With(ngoOnly).Get("/projects/{id}/applications", app.ProjectApplications)

			r.With(volunteerOnly).Get("/applications/mine", app.MyApplications)
			r.With(ngoOnly).Patch("/applications/{id}/status", app.ChangeApplicationStatus)
			r.With(volunteerOnly).Post("/applications/{id}/withdraw", app.WithdrawApplication)

			r.Get("/conversations", app.ListConversations)
			r.Post("/conversations", app.StartConversation)
			r.Get("/conversations/unread", app.UnreadMessages)
			r.Get("/conversations/{id}/messages", app.ListMessages)
			r.Post("/conversations/{id}/messages", app.SendMessage)
			r.Post("/conversations/{id}/read", app.MarkConversationRead)

			r.Get("/notifications", app.ListNotifications)
			r.Get("/notifications/unread", app.UnreadNotifications)
			r.Post("/notifications/read-all", app.MarkAllNotificationsRead)
			r.Post("/notifications/{id}/read", app.MarkNotificationRead)

			r.Post("/billing/quote", app.Quote)
			r.Post("/billing/checkout", app.Checkout)
			r.Get("/billing/transactions", app.MyTransactions)
			r.Post("/billing/coupons/validate", app.ValidateCoupon)
			r.Post("/billing/razorpay/confirm", app.ConfirmRazorpay)

			r.With(ngoOnly).Post("/assist/draft", app.DraftDescription)
			r.Post("/assist/skills", app.SuggestSkills)

			r.Post("/uploads/image", app.UploadImage)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mw.RequireRole(domain.RoleAdmin))
				r.Get("/stats", app.AdminStats)
				r.Get("/users", app.AdminListUsers)
				r.Patch("/users/{id}", app.AdminUpdateUser)
				r.Post("/users/{id}/verify", app.AdminVerifyNGO)
				r.Get("/transactions", app.AdminTransactions)
				r.Get("/coupons", app.AdminCoupons)
				r.Post("/coupons", app.AdminCreateCoupon)
				r.Patch("/coupons/{id}", app.AdminUpdateCoupon)
				r.Get("/settings", app.AdminSettings)
				r.Put("/settings", app.AdminPutSettings)
				r.Delete("/projects/{id}", app.AdminDeleteProject)
			})
		})
	})

	doc, err := handlers.BuildOpenAPI(r, publicOperations)
	if err != nil {
		opts.Logger.Warn().Err(err).Msg("openapi document not built")
	}
	app.SetOpenAPI(doc)
	return r
}
