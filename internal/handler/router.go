package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studylog/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DB がそのまま実装する。CSVストレージ構成ではnilでよい。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	RateLimiter   *middleware.RateLimiter
	CSRFConfig    middleware.CSRFConfig
	Logger        *slog.Logger
	Metrics       middleware.HTTPMetricsRecorder // nil可
	MetricsRoute  http.Handler                   // nil可。/metrics のハンドラー

	// ヘルスチェック
	HealthChecker HealthChecker // nil可

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics AuthMetricsRecorder // nil可
	AuthConfig  AuthHandlerConfig

	// 学習タイマー・記録
	TimerService   TimerServiceInterface
	RecordLister   RecordLister
	SessionUpdater SessionDataUpdater
	Sanitizer      SubjectSanitizer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CSRF
//
// 認証必須ルートはさらに Session → RateLimit(General) を通過する。
// ログイン・サインアップのPOSTにはIP単位のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.TimerService, deps.AuthMetrics, deps.AuthConfig)
	studyHandler := NewStudyHandler(deps.TimerService, deps.RecordLister, deps.SessionUpdater, deps.Sanitizer)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsRoute != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsRoute)
	}

	r.Get("/login", authHandler.LoginPage)
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
	r.Get("/signup", authHandler.SignupPage)
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/signup", authHandler.Signup)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", studyHandler.Dashboard)
		r.Get("/logout", authHandler.Logout)

		// 教科クリック用にGETも受け付ける（subjectはクエリパラメータ）
		r.Get("/start_study", studyHandler.StartStudy)
		r.Post("/start_study", studyHandler.StartStudy)
		r.Get("/end_study", studyHandler.EndStudy)

		r.Get("/subject/{name}", studyHandler.SubjectDetail)
		r.Get("/get_random_color", RandomColor)
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// checkerがnilの場合（CSVストレージ構成）はプロセス生存のみを報告する。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
