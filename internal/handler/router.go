package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/unicloset/internal/middleware"
	"github.com/hitoshi/unicloset/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 出品
	ListingService ListingServiceInterface
	OwnerResolver  OwnerResolver

	// ユーザー
	UserService UserServiceInterface

	// 画像プロキシ
	ImageGuard        security.ImageGuardService
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）と販売中出品の閲覧系ルートはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	listingHandler := NewListingHandler(deps.ListingService, deps.OwnerResolver)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)
	imageHandler := NewImageHandler(deps.ImageGuard, deps.ImageFetchTimeout, deps.ImageMaxSize)

	// --- 認証不要のルート ---

	// 死活監視
	r.Get("/health", HealthCheck)

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 販売中出品の閲覧はログイン不要（キャンパス内の回覧を想定）
	r.Get("/api/listings", listingHandler.ListAvailable)
	r.Get("/api/listings/{id}", listingHandler.Get)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 出品管理
		// POST /api/listings - 出品作成（作成専用レート制限を追加）
		r.With(deps.RateLimiter.ListingCreationMiddleware()).Post("/api/listings", listingHandler.Create)
		r.Get("/api/listings/mine", listingHandler.ListMine)
		r.Post("/api/listings/{id}/sold", listingHandler.MarkSold)
		r.Delete("/api/listings/{id}", listingHandler.Delete)

		// 画像プロキシ（認証必須。匿名の踏み台化を防ぐ）
		r.Get("/api/images", imageHandler.Proxy)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Patch("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}

// HealthCheck は死活監視エンドポイント。
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
