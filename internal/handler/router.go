package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marga/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.ProfileAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	ProfileService    ProfileServiceInterface
	SavedPlaceService SavedPlaceServiceInterface
	PlaceService      PlaceServiceInterface
	EventService      EventServiceInterface
	FeedbackService   FeedbackServiceInterface
	PartnerService    PartnerServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → Session → CSRF → RateLimit(General)
//
// 公開ルート（/health、/metrics、/auth/signup、/auth/signin、スポット・イベント・認定パートナー一覧）は
// Session以降のチェーンの外に配置する。/auth/signoutはCSRF検証のみを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService, authHandler)
	savedHandler := NewSavedPlaceHandler(deps.SavedPlaceService)
	placeHandler := NewPlaceHandler(deps.PlaceService)
	eventHandler := NewEventHandler(deps.EventService)
	feedbackHandler := NewFeedbackHandler(deps.FeedbackService)
	partnerHandler := NewPartnerHandler(deps.PartnerService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 新規登録とサインインはクライアントIP単位の同じ制限を共有する
	r.With(deps.RateLimiter.SignInMiddleware()).Post("/auth/signup", authHandler.SignUp)
	r.With(deps.RateLimiter.SignInMiddleware()).Post("/auth/signin", authHandler.SignIn)
	// サインアウトはセッションが無効でも成功させるため、セッション検証の外に置く
	r.With(middleware.NewCSRFMiddleware(deps.CSRFConfig)).Post("/auth/signout", authHandler.SignOut)
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Get("/api/places", placeHandler.List)
	r.Get("/api/places/{id}", placeHandler.Get)
	r.Get("/api/events", eventHandler.List)
	r.Get("/api/partners", partnerHandler.ListVerified)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/auth/me", authHandler.Me)

		r.Route("/api/profiles", func(r chi.Router) {
			r.Get("/", profileHandler.List)
			r.Delete("/me", profileHandler.Withdraw)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Patch("/", profileHandler.Update)
				r.Delete("/", profileHandler.Delete)

				r.Get("/saved", savedHandler.List)
				r.Put("/saved/{placeID}", savedHandler.Add)
				r.Delete("/saved/{placeID}", savedHandler.Remove)
			})
		})

		r.Post("/api/events", eventHandler.Create)
		r.Delete("/api/events/{id}", eventHandler.Delete)
		r.Post("/api/feedback", feedbackHandler.Submit)

		r.Route("/api/partner-applications", func(r chi.Router) {
			r.Get("/", partnerHandler.List)
			r.Post("/", partnerHandler.Submit)
			r.Post("/{id}/accept", partnerHandler.Accept)
			r.Post("/{id}/reject", partnerHandler.Reject)
		})
	})

	return r
}
